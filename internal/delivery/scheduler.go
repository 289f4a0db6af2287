// Package delivery pushes rendered digests to channel webhooks under a
// rate limit and a peak-hour avoidance policy.
package delivery

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/config"
)

// Action is the scheduler's verdict for one send request.
type Action int

const (
	// Proceed admits the request and counts it against the window.
	Proceed Action = iota
	// Wait tells the caller to try again after Decision.Wait.
	Wait
	// Defer rejects the request because the clock is inside a
	// configured peak interval.
	Defer
)

func (a Action) String() string {
	switch a {
	case Proceed:
		return "proceed"
	case Wait:
		return "wait"
	case Defer:
		return "defer"
	default:
		return "unknown"
	}
}

// Decision is the result of one Admit call.
type Decision struct {
	Action Action
	Wait   time.Duration
	Reason string
}

// State is the persistent part of the rate limiter: the current window
// and how much of it is used.
type State struct {
	WindowStart time.Time
	Count       int
	LastRequest time.Time
}

// StateStore persists limiter state across process restarts.
type StateStore interface {
	LoadRateState(channel string) (State, bool, error)
	SaveRateState(channel string, state State) error
}

// Status is a read-only snapshot of the limiter for logging.
type Status struct {
	Channel      string
	Count        int
	Remaining    int
	ResetSeconds int
	InPeak       bool
}

func (s Status) String() string {
	return fmt.Sprintf("channel=%s used=%d remaining=%d reset=%ds peak=%v",
		s.Channel, s.Count, s.Remaining, s.ResetSeconds, s.InPeak)
}

// Scheduler enforces a fixed-window rate limit for one channel. Only a
// Proceed decision mutates state; Wait and Defer leave the window
// untouched so a rejected caller costs nothing.
type Scheduler struct {
	mu      sync.Mutex
	channel string
	limit   int
	window  time.Duration
	peak    []config.HourRange
	state   State
	store   StateStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewScheduler builds a scheduler for one channel. store may be nil,
// in which case state lives only in memory.
func NewScheduler(channel string, cfg config.RateLimitConfig, store StateStore, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		channel: channel,
		limit:   cfg.MaxRequests,
		window:  time.Duration(cfg.WindowSeconds) * time.Second,
		peak:    cfg.PeakHours,
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
	if store != nil {
		saved, ok, err := store.LoadRateState(channel)
		switch {
		case err != nil:
			// A broken store must not block delivery; start a
			// fresh window instead.
			logger.Warn("Failed to load rate limiter state",
				zap.String("channel", channel),
				zap.Error(err))
		case ok:
			s.state = saved
		}
	}
	return s
}

// Admit decides whether a send may happen now.
func (s *Scheduler) Admit() Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if s.inPeak(now) {
		return Decision{
			Action: Defer,
			Reason: fmt.Sprintf("peak hours (%02d:00)", now.Hour()),
		}
	}

	elapsed := now.Sub(s.state.WindowStart)
	if s.state.WindowStart.IsZero() || elapsed >= s.window {
		s.state = State{WindowStart: now, Count: 1, LastRequest: now}
		s.persist()
		return Decision{Action: Proceed}
	}

	if s.state.Count < s.limit {
		s.state.Count++
		s.state.LastRequest = now
		s.persist()
		return Decision{Action: Proceed}
	}

	wait := s.window - elapsed
	return Decision{
		Action: Wait,
		Wait:   wait,
		Reason: fmt.Sprintf("window exhausted (%d/%d)", s.state.Count, s.limit),
	}
}

// Status reports the limiter's view of the current moment without
// mutating anything.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	elapsed := now.Sub(s.state.WindowStart)

	count := s.state.Count
	resetSeconds := 0
	if s.state.WindowStart.IsZero() || elapsed >= s.window {
		count = 0
	} else {
		resetSeconds = int((s.window - elapsed).Seconds())
	}

	remaining := s.limit - count
	if remaining < 0 {
		remaining = 0
	}

	return Status{
		Channel:      s.channel,
		Count:        count,
		Remaining:    remaining,
		ResetSeconds: resetSeconds,
		InPeak:       s.inPeak(now),
	}
}

func (s *Scheduler) inPeak(now time.Time) bool {
	hour := now.Hour()
	for _, r := range s.peak {
		if hour >= r.Start && hour < r.End {
			return true
		}
	}
	return false
}

// persist is best-effort: a storage hiccup must not block delivery.
func (s *Scheduler) persist() {
	if s.store != nil {
		_ = s.store.SaveRateState(s.channel, s.state)
	}
}
