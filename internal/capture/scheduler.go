// Package capture runs the camera loop: a fast live cadence that refreshes
// the single-slot live directory, and every N-th tick an archive capture
// admitted into the bounded archive.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/camvault/internal/clock"
	"github.com/dmitrijs2005/camvault/internal/common"
	"github.com/dmitrijs2005/camvault/internal/events"
	"github.com/dmitrijs2005/camvault/internal/filex"
	"github.com/dmitrijs2005/camvault/internal/frames"
	"github.com/dmitrijs2005/camvault/internal/logging"
)

// FailurePolicy decides what a camera failure that survived its retries
// does to the loop.
type FailurePolicy int

const (
	// FailureSkip drops the cycle and tries again at the next tick.
	FailureSkip FailurePolicy = iota
	// FailureFatal stops the loop with ErrCaptureFatal.
	FailureFatal
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return FailureSkip, nil
	case "fatal":
		return FailureFatal, nil
	}
	return FailureSkip, fmt.Errorf("unknown device failure policy %q", s)
}

func (p FailurePolicy) String() string {
	if p == FailureFatal {
		return "fatal"
	}
	return "skip"
}

type State int

const (
	StateIdle State = iota
	StateCapturingLive
	StateCapturingArchive
	StateSleeping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturingLive:
		return "capturing_live"
	case StateCapturingArchive:
		return "capturing_archive"
	case StateSleeping:
		return "sleeping"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

type Config struct {
	FastPeriod   time.Duration
	ArchiveEvery int

	// Retries is the number of extra attempts per acquisition, spaced by an
	// exponential backoff starting at RetryDelay and capped at MaxRetryDelay.
	Retries       uint64
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	OnFailure FailurePolicy
	// MaxConsecutiveFailures stops the loop after that many failed
	// acquisitions in a row regardless of OnFailure. Zero disables it.
	MaxConsecutiveFailures int
}

// Stats is a snapshot of the loop's counters.
type Stats struct {
	State               string `json:"state"`
	Ticks               uint64 `json:"ticks"`
	LiveCaptures        uint64 `json:"live_captures"`
	ArchiveCaptures     uint64 `json:"archive_captures"`
	Failures            uint64 `json:"failures"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastError           string `json:"last_error,omitempty"`
}

// Scheduler is the single writer of the archive and live directories. Run
// must not be called concurrently with itself.
type Scheduler struct {
	cfg       Config
	camera    Camera
	archive   *ArchiveStore
	live      *LiveSlot
	clock     clock.Clock
	publisher events.Publisher
	logger    logging.Logger

	mu    sync.Mutex
	state State
	stats Stats
}

func NewScheduler(cfg Config, camera Camera, archive *ArchiveStore, live *LiveSlot,
	clk clock.Clock, publisher events.Publisher, logger logging.Logger) (*Scheduler, error) {

	if cfg.FastPeriod <= 0 {
		return nil, fmt.Errorf("fast period must be positive, got %s", cfg.FastPeriod)
	}
	if cfg.ArchiveEvery < 1 {
		return nil, fmt.Errorf("archive interval must be at least 1, got %d", cfg.ArchiveEvery)
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.MaxRetryDelay < cfg.RetryDelay {
		cfg.MaxRetryDelay = cfg.RetryDelay
	}
	if publisher == nil {
		publisher = events.Nop{}
	}

	return &Scheduler{
		cfg:       cfg,
		camera:    camera,
		archive:   archive,
		live:      live,
		clock:     clk,
		publisher: publisher,
		logger:    logger.With("module", "capture"),
	}, nil
}

// errStopped marks an acquisition cut short by cancellation.
var errStopped = errors.New("capture stopped")

// Run loops until ctx is cancelled, returning nil, or until a device
// failure is fatal under the configured policy, returning an error that
// wraps common.ErrCaptureFatal.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info(ctx, "capture loop started",
		"fast_period", s.cfg.FastPeriod.String(),
		"archive_every", s.cfg.ArchiveEvery,
		"archive_dir", s.archive.Dir(),
		"live_dir", s.live.Dir(),
		"free_slots", s.archive.Free(),
		"on_failure", s.cfg.OnFailure.String())
	defer s.setState(StateStopped)

	for tick := uint64(0); ; tick++ {
		s.setState(StateIdle)

		if err := s.tick(ctx, tick); err != nil {
			if errors.Is(err, errStopped) {
				return s.stopped(ctx)
			}
			s.logger.Error(ctx, "capture loop stopped", "error", err)
			return err
		}

		s.setState(StateSleeping)
		select {
		case <-ctx.Done():
			return s.stopped(ctx)
		case <-s.clock.After(s.cfg.FastPeriod):
		}
	}
}

func (s *Scheduler) stopped(ctx context.Context) error {
	s.logger.Info(ctx, "capturing images has been stopped")
	return nil
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.stats
	out.State = s.state.String()
	return out
}

func (s *Scheduler) tick(ctx context.Context, n uint64) error {
	if ctx.Err() != nil {
		return errStopped
	}

	ts := s.clock.Now()
	name := frames.Name(ts)

	s.mu.Lock()
	s.stats.Ticks++
	s.mu.Unlock()

	s.setState(StateCapturingLive)
	if err := s.captureLive(ctx, name); err != nil {
		if ferr := s.failed(ctx, "live", ts, err); ferr != nil {
			return ferr
		}
	}

	if n%uint64(s.cfg.ArchiveEvery) != 0 {
		return nil
	}

	s.setState(StateCapturingArchive)
	if err := s.captureArchive(ctx, name, ts); err != nil {
		if ferr := s.failed(ctx, "archive", ts, err); ferr != nil {
			return ferr
		}
	}

	return nil
}

func (s *Scheduler) captureLive(ctx context.Context, name string) error {
	tmp := s.live.TempPath(name)
	if err := s.acquire(ctx, tmp); err != nil {
		return err
	}
	if err := s.live.Publish(ctx, tmp, name); err != nil {
		return err
	}

	s.succeeded(func(st *Stats) { st.LiveCaptures++ })
	s.logger.Debug(ctx, "live frame captured", "filename", name)
	return nil
}

func (s *Scheduler) captureArchive(ctx context.Context, name string, ts time.Time) error {
	tmp := s.archive.TempPath(name)
	if err := s.acquire(ctx, tmp); err != nil {
		return err
	}

	evicted, err := s.archive.Admit(ctx, tmp, name)
	if err != nil {
		return err
	}

	s.succeeded(func(st *Stats) { st.ArchiveCaptures++ })
	s.logger.Info(ctx, "image captured",
		"filename", name,
		"evicted", evicted,
		"free_slots", s.archive.Free())

	s.publish(ctx, events.Event{Kind: events.KindArchive, Filename: name, CapturedAt: ts, Evicted: evicted})
	return nil
}

// acquire runs the camera into tmp with retries. A failed attempt never
// leaves tmp behind.
func (s *Scheduler) acquire(ctx context.Context, tmp string) error {
	b := retry.NewExponential(s.cfg.RetryDelay)
	b = retry.WithCappedDuration(s.cfg.MaxRetryDelay, b)
	b = retry.WithMaxRetries(s.cfg.Retries, b)

	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := s.camera.Capture(ctx, tmp)
		if err == nil {
			return nil
		}
		_ = filex.RemoveIfExists(tmp)

		if ctx.Err() != nil {
			return errStopped
		}
		s.logger.Warn(ctx, "camera attempt failed", "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})

	if err != nil && ctx.Err() != nil {
		_ = filex.RemoveIfExists(tmp)
		return errStopped
	}
	return err
}

// failed records a failed acquisition and returns a non-nil error when the
// loop has to stop.
func (s *Scheduler) failed(ctx context.Context, kind string, ts time.Time, err error) error {
	if errors.Is(err, errStopped) {
		return err
	}

	s.mu.Lock()
	s.stats.Failures++
	s.stats.ConsecutiveFailures++
	s.stats.LastError = err.Error()
	consecutive := s.stats.ConsecutiveFailures
	s.mu.Unlock()

	s.logger.Error(ctx, "capture failed", "kind", kind, "consecutive", consecutive, "error", err)
	s.publish(ctx, events.Event{Kind: events.KindFailure, CapturedAt: ts, Error: err.Error()})

	if s.cfg.OnFailure == FailureFatal {
		return fmt.Errorf("%w: %s capture: %w", common.ErrCaptureFatal, kind, err)
	}
	if limit := s.cfg.MaxConsecutiveFailures; limit > 0 && consecutive >= limit {
		return fmt.Errorf("%w: %d consecutive failures: %w", common.ErrCaptureFatal, consecutive, err)
	}
	return nil
}

func (s *Scheduler) succeeded(update func(*Stats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(&s.stats)
	s.stats.ConsecutiveFailures = 0
}

func (s *Scheduler) publish(ctx context.Context, ev events.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn(ctx, "cannot publish capture event", "kind", ev.Kind, "error", err)
	}
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
