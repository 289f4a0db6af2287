package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every setting the bot needs for one deployment.
type Config struct {
	Topic      string          `yaml:"topic"`
	Schedule   string          `yaml:"schedule"`
	MaxPapers  int             `yaml:"max_papers"`
	Workers    int             `yaml:"workers"`
	RunOnStart bool            `yaml:"run_on_start"`
	ReportFile string          `yaml:"report_file"`
	Logging    LoggingConfig   `yaml:"logging"`
	Storage    StorageConfig   `yaml:"storage"`
	Sources    SourcesConfig   `yaml:"sources"`
	LLM        LLMConfig       `yaml:"llm"`
	Channels   ChannelsConfig  `yaml:"channels"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
	Web        WebConfig       `yaml:"web"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

// SourcesConfig enables and tunes the individual paper sources.
type SourcesConfig struct {
	Arxiv           ArxivConfig           `yaml:"arxiv"`
	ArxivListing    ArxivListingConfig    `yaml:"arxiv_listing"`
	SemanticScholar SemanticScholarConfig `yaml:"semantic_scholar"`
	Springer        SpringerConfig        `yaml:"springer"`
}

type ArxivConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Topics            []string `yaml:"topics"`
	MaxPerTopic       int      `yaml:"max_per_topic"`
	TopicDelaySeconds int      `yaml:"topic_delay_seconds"`
}

type ArxivListingConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Categories []CategoryConfig `yaml:"categories"`
}

type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type SemanticScholarConfig struct {
	Enabled     bool     `yaml:"enabled"`
	APIKey      string   `yaml:"api_key"`
	Topics      []string `yaml:"topics"`
	MaxPerTopic int      `yaml:"max_per_topic"`
}

type SpringerConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Feeds      []string `yaml:"feeds"`
	MaxPerFeed int      `yaml:"max_per_feed"`
}

// LLMConfig describes the OpenAI-compatible completion backend and the retry
// budget for summary generation.
type LLMConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	MaxAttempts    int     `yaml:"max_attempts"`
	BackoffSeconds int     `yaml:"backoff_seconds"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// ChannelsConfig wires the push destinations. A channel with an empty webhook
// URL is disabled.
type ChannelsConfig struct {
	WeChat WeChatConfig `yaml:"wechat"`
	Feishu FeishuConfig `yaml:"feishu"`
}

type WeChatConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	MaxChars   int    `yaml:"max_chars"`
}

type FeishuConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	MaxBytes   int    `yaml:"max_bytes"`
}

// RateLimitConfig bounds outbound sends per destination and defines the
// peak-hour windows during which sends are deferred.
type RateLimitConfig struct {
	WindowSeconds int         `yaml:"window_seconds"`
	MaxRequests   int         `yaml:"max_requests"`
	PeakHours     []HourRange `yaml:"peak_hours"`
}

// HourRange is a half-open [Start, End) hour-of-day interval.
type HourRange struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

var envVarExpr = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarExpr.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

func setDefaults(cfg *Config) {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 8 * * *"
	}
	if cfg.MaxPapers == 0 {
		cfg.MaxPapers = 5
	}
	if cfg.Workers == 0 {
		cfg.Workers = 3
	}
	if cfg.ReportFile == "" {
		cfg.ReportFile = "daily_report.md"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "paperbot.db"
	}
	if cfg.Sources.Arxiv.MaxPerTopic == 0 {
		cfg.Sources.Arxiv.MaxPerTopic = 1
	}
	if cfg.Sources.Arxiv.TopicDelaySeconds == 0 {
		cfg.Sources.Arxiv.TopicDelaySeconds = 15
	}
	if len(cfg.Sources.Arxiv.Topics) == 0 {
		cfg.Sources.Arxiv.Topics = []string{
			"Large Language Models",
			"LLM Agents",
			"Chain of Thought",
			"LLM Reasoning",
		}
	}
	if cfg.Sources.SemanticScholar.MaxPerTopic == 0 {
		cfg.Sources.SemanticScholar.MaxPerTopic = 1
	}
	if cfg.Sources.Springer.MaxPerFeed == 0 {
		cfg.Sources.Springer.MaxPerFeed = 2
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://integrate.api.nvidia.com/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "z-ai/glm4.7"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.3
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 3500
	}
	if cfg.LLM.MaxAttempts == 0 {
		cfg.LLM.MaxAttempts = 3
	}
	if cfg.LLM.BackoffSeconds == 0 {
		cfg.LLM.BackoffSeconds = 2
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 120
	}
	if cfg.Channels.WeChat.MaxChars == 0 {
		cfg.Channels.WeChat.MaxChars = 4000
	}
	if cfg.Channels.Feishu.MaxBytes == 0 {
		cfg.Channels.Feishu.MaxBytes = 20 * 1024
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 60
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = 20
	}
	if cfg.RateLimit.PeakHours == nil {
		cfg.RateLimit.PeakHours = []HourRange{{Start: 10, End: 11}, {Start: 17, End: 18}}
	}
	if cfg.Web.Addr == "" {
		cfg.Web.Addr = ":8080"
	}
}

func validate(cfg *Config) error {
	if cfg.Topic == "" {
		return fmt.Errorf("config: topic is required")
	}
	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("config: llm.api_key is required (set NVIDIA_API_KEY env var)")
	}
	if !cfg.Sources.Arxiv.Enabled && !cfg.Sources.ArxivListing.Enabled &&
		!cfg.Sources.SemanticScholar.Enabled && !cfg.Sources.Springer.Enabled {
		return fmt.Errorf("config: at least one source must be enabled")
	}
	if cfg.Sources.Springer.Enabled && len(cfg.Sources.Springer.Feeds) == 0 {
		return fmt.Errorf("config: sources.springer.feeds is required when enabled")
	}
	if cfg.Sources.ArxivListing.Enabled && len(cfg.Sources.ArxivListing.Categories) == 0 {
		return fmt.Errorf("config: sources.arxiv_listing.categories is required when enabled")
	}
	for _, r := range cfg.RateLimit.PeakHours {
		if r.Start < 0 || r.Start > 23 || r.End < 0 || r.End > 24 || r.End <= r.Start {
			return fmt.Errorf("config: invalid peak hour range %d-%d", r.Start, r.End)
		}
	}
	return nil
}

// Load reads the config file, expands environment variables, applies
// defaults, and validates the configuration. A .env file next to the process
// is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
