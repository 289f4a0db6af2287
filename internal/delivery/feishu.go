package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/render"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/retry"
)

// feishuRateLimitedCode is the in-band error code the bot returns when
// the group is being flooded.
const feishuRateLimitedCode = 11232

type feishuContent struct {
	Text string `json:"text"`
}

type feishuPayload struct {
	MsgType string        `json:"msg_type"`
	Content feishuContent `json:"content"`
}

type feishuResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// FeishuNotifier pushes markdown messages to a Feishu group bot
// webhook.
type FeishuNotifier struct {
	webhookURL  string
	client      *http.Client
	retryConfig retry.Config
}

func NewFeishuNotifier(webhookURL string) *FeishuNotifier {
	return &FeishuNotifier{
		webhookURL:  webhookURL,
		client:      &http.Client{Timeout: 30 * time.Second},
		retryConfig: retry.DefaultConfig(),
	}
}

func (n *FeishuNotifier) Name() string {
	return "feishu"
}

func (n *FeishuNotifier) Send(ctx context.Context, msg render.Message) error {
	err := retry.WithBackoff(ctx, n.retryConfig, func(ctx context.Context) error {
		return n.push(ctx, msg.Text)
	})
	if err != nil {
		return fmt.Errorf("feishu: %w", err)
	}
	return nil
}

func (n *FeishuNotifier) push(ctx context.Context, content string) error {
	payload := feishuPayload{
		MsgType: "markdown",
		Content: feishuContent{Text: content},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var result feishuResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if result.Code == feishuRateLimitedCode {
		// Worded so the retry layer treats it as retryable.
		return fmt.Errorf("bot rate limited: code %d: %s", result.Code, result.Msg)
	}
	if result.Code != 0 {
		return fmt.Errorf("bot rejected message: code %d: %s", result.Code, result.Msg)
	}

	return nil
}
