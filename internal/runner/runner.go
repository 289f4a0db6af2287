// Package runner orchestrates the fetch, dedupe, summarize, render,
// deliver pipeline.
package runner

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/delivery"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/fetcher"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/paper"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/render"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/summarizer"
)

// Generator is the summary production half of the pipeline.
type Generator interface {
	Generate(ctx context.Context, p paper.Paper) (summarizer.PaperSummary, error)
}

// History is the seen-paper bookkeeping half of the storage layer.
type History interface {
	AlreadySeen(ctx context.Context, keys []string) (map[string]bool, error)
	MarkSeen(ctx context.Context, papers []paper.Paper) error
	SaveReport(ctx context.Context, runID, topic, body string) error
}

// Channel bundles everything one delivery target needs: its compact
// renderer, its transport, and its rate limit scheduler. Scheduler may
// be nil for targets without one.
type Channel struct {
	Name      string
	Renderer  render.Renderer
	Notifier  delivery.Notifier
	Scheduler *delivery.Scheduler
}

// Runner executes the full pipeline once per invocation.
type Runner struct {
	topic      string
	maxPapers  int
	workers    int
	reportFile string

	sources   []fetcher.Fetcher
	generator Generator
	history   History
	report    render.Renderer
	channels  []Channel
	logger    *zap.Logger
}

type Config struct {
	Topic      string
	MaxPapers  int
	Workers    int
	ReportFile string
	Sources    []fetcher.Fetcher
	Generator  Generator
	History    History
	Report     render.Renderer
	Channels   []Channel
	Logger     *zap.Logger
}

func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	report := cfg.Report
	if report == nil {
		report = render.NewMarkdownRenderer()
	}
	return &Runner{
		topic:      cfg.Topic,
		maxPapers:  cfg.MaxPapers,
		workers:    workers,
		reportFile: cfg.ReportFile,
		sources:    cfg.Sources,
		generator:  cfg.Generator,
		history:    cfg.History,
		report:     report,
		channels:   cfg.Channels,
		logger:     logger,
	}
}

// Run executes the pipeline: fetch from every source, dedupe, filter
// against history, summarize, write the full report, then deliver to
// each channel. One failing source, paper, or channel never aborts the
// run; only a total fetch wipeout does.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("starting pipeline", zap.String("topic", r.topic))

	papers, fetchErrs := r.fetchAll(ctx)
	if len(papers) == 0 && fetchErrs == len(r.sources) {
		return fmt.Errorf("runner: all %d sources failed", len(r.sources))
	}
	r.logger.Info("fetched papers", zap.Int("count", len(papers)))

	for i := range papers {
		papers[i] = paper.Normalize(papers[i])
	}
	papers = paper.Dedupe(papers)
	r.logger.Info("after dedupe", zap.Int("count", len(papers)))

	papers, err := r.filterSeen(ctx, papers)
	if err != nil {
		return fmt.Errorf("runner: history lookup failed: %w", err)
	}
	r.logger.Info("after history filter", zap.Int("count", len(papers)))

	if len(papers) == 0 {
		r.logger.Info("no new papers, nothing to publish")
		return nil
	}

	if r.maxPapers > 0 && len(papers) > r.maxPapers {
		papers = papers[:r.maxPapers]
	}

	summaries := r.summarizeAll(ctx, papers)
	meta := paper.NewRunMetadata(r.topic, time.Now(), papers)

	report := r.report.Render(summaries, meta)
	if err := r.persistReport(ctx, meta, report); err != nil {
		r.logger.Warn("failed to persist report", zap.Error(err))
	}

	delivered := r.deliverAll(ctx, summaries, meta, report)

	if err := r.history.MarkSeen(ctx, papers); err != nil {
		r.logger.Warn("failed to record seen papers", zap.Error(err))
	}

	r.logger.Info("pipeline finished",
		zap.String("run_id", meta.RunID),
		zap.Int("papers", len(papers)),
		zap.Int("channels_delivered", delivered),
		zap.Int("channels_total", len(r.channels)))
	return nil
}

// fetchAll queries every source, tolerating per-source failure.
func (r *Runner) fetchAll(ctx context.Context) ([]paper.Paper, int) {
	var papers []paper.Paper
	failures := 0
	for _, src := range r.sources {
		batch, err := src.Fetch(ctx)
		if err != nil {
			failures++
			r.logger.Warn("source fetch failed",
				zap.String("source", src.Name()),
				zap.Error(err))
		}
		// A source may return a partial batch alongside its error.
		papers = append(papers, batch...)
	}
	return papers, failures
}

// filterSeen drops papers any of whose identity keys are in history.
func (r *Runner) filterSeen(ctx context.Context, papers []paper.Paper) ([]paper.Paper, error) {
	var allKeys []string
	for _, p := range papers {
		allKeys = append(allKeys, paper.Keys(p)...)
	}

	seen, err := r.history.AlreadySeen(ctx, allKeys)
	if err != nil {
		return nil, err
	}

	fresh := papers[:0]
	for _, p := range papers {
		isSeen := false
		for _, key := range paper.Keys(p) {
			if seen[key] {
				isSeen = true
				break
			}
		}
		if !isSeen {
			fresh = append(fresh, p)
		}
	}
	return fresh, nil
}

// summarizeAll runs the generator over a bounded worker pool. Results
// keep the input order regardless of completion order. A failed paper
// gets a metadata-only summary so it still appears in the report.
func (r *Runner) summarizeAll(ctx context.Context, papers []paper.Paper) []summarizer.PaperSummary {
	results := make([]summarizer.PaperSummary, len(papers))

	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup

	for i, p := range papers {
		wg.Add(1)
		go func(i int, p paper.Paper) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := r.generator.Generate(ctx, p)
			if err != nil {
				r.logger.Warn("summary generation failed",
					zap.String("title", p.Title),
					zap.Error(err))
				result = summarizer.PaperSummary{Paper: p}
			}
			results[i] = result
		}(i, p)
	}

	wg.Wait()
	return results
}

func (r *Runner) persistReport(ctx context.Context, meta paper.RunMetadata, report render.Message) error {
	if r.reportFile != "" {
		if err := os.WriteFile(r.reportFile, []byte(report.Text), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", r.reportFile, err)
		}
	}
	return r.history.SaveReport(ctx, meta.RunID, meta.Topic, report.Text)
}

// deliverAll renders and sends to every channel, honoring each
// channel's scheduler. Returns how many channels got the message.
func (r *Runner) deliverAll(ctx context.Context, summaries []summarizer.PaperSummary, meta paper.RunMetadata, fullReport render.Message) int {
	delivered := 0
	for _, ch := range r.channels {
		if err := r.deliverOne(ctx, ch, summaries, meta, fullReport); err != nil {
			r.logger.Warn("channel delivery failed",
				zap.String("channel", ch.Name),
				zap.Error(err))
			continue
		}
		delivered++

		if ch.Scheduler != nil {
			r.logger.Info("rate limit status", zap.Stringer("status", ch.Scheduler.Status()))
		}
	}
	return delivered
}

func (r *Runner) deliverOne(ctx context.Context, ch Channel, summaries []summarizer.PaperSummary, meta paper.RunMetadata, fullReport render.Message) error {
	msg := fullReport
	if ch.Renderer != nil {
		msg = ch.Renderer.Render(summaries, meta)
	}
	if msg.Truncated {
		r.logger.Info("compact render truncated",
			zap.String("channel", ch.Name),
			zap.Int("bytes", msg.Bytes))
	}

	if ch.Scheduler != nil {
		if err := r.awaitAdmission(ctx, ch); err != nil {
			return err
		}
	}

	return ch.Notifier.Send(ctx, msg)
}

// awaitAdmission loops on the scheduler until it admits the send. A
// Defer decision skips the channel for this run; a Wait sleeps out the
// window.
func (r *Runner) awaitAdmission(ctx context.Context, ch Channel) error {
	for {
		decision := ch.Scheduler.Admit()
		switch decision.Action {
		case delivery.Proceed:
			return nil
		case delivery.Defer:
			return fmt.Errorf("deferred: %s", decision.Reason)
		case delivery.Wait:
			r.logger.Info("rate limited, waiting",
				zap.String("channel", ch.Name),
				zap.Duration("wait", decision.Wait),
				zap.String("reason", decision.Reason))
			select {
			case <-time.After(decision.Wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			return fmt.Errorf("unknown scheduler action %v", decision.Action)
		}
	}
}
