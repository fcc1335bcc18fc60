package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/kafka"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/model"
)

// ProgressSource is the part of the backend API the watcher polls
type ProgressSource interface {
	GetCurrentRunID(ctx context.Context) (model.ID, bool, error)
	GetCurrentLog(ctx context.Context) (string, error)
	GetCurrentRuntimeInfo(ctx context.Context) (*model.RuntimeInfo, error)
}

// EventPublisher publishes progress updates
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event kafka.Event) error
}

// WatcherConfig controls polling
type WatcherConfig struct {
	Interval    time.Duration
	MaxInterval time.Duration
	MaxElapsed  time.Duration
	LogTail     int
	Topic       string
}

// RunWatcher follows the run currently executing on the backend
type RunWatcher struct {
	source    ProgressSource
	publisher EventPublisher
	cfg       WatcherConfig
	logger    *zap.Logger
}

// NewRunWatcher creates a new watcher. publisher may be nil.
func NewRunWatcher(source ProgressSource, publisher EventPublisher, cfg WatcherConfig, logger *zap.Logger) *RunWatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.MaxInterval < cfg.Interval {
		cfg.MaxInterval = cfg.Interval
	}
	if cfg.Topic == "" {
		cfg.Topic = "run-progress"
	}
	return &RunWatcher{
		source:    source,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Watch polls the backend until ctx is done and calls onUpdate whenever the
// progress changes. While the backend is unreachable polling backs off
// exponentially; Watch gives up once MaxElapsed passes without a
// successful poll.
func (w *RunWatcher) Watch(ctx context.Context, onUpdate func(model.RunProgress)) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.cfg.Interval
	b.MaxInterval = w.cfg.MaxInterval
	b.MaxElapsedTime = w.cfg.MaxElapsed
	// NewExponentialBackOff already reset with the library defaults
	b.Reset()
	retry := backoff.WithContext(b, ctx)

	var last *model.RunProgress
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		progress, err := w.Snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			wait := retry.NextBackOff()
			if wait == backoff.Stop {
				return fmt.Errorf("backend unreachable: %w", err)
			}
			w.logger.Warn("Failed to poll run progress",
				zap.Duration("retry_in", wait),
				zap.Error(err))
			timer.Reset(wait)
			continue
		}
		retry.Reset()

		if last == nil || changed(*last, progress) {
			last = &progress
			if onUpdate != nil {
				onUpdate(progress)
			}
			w.publish(ctx, progress)
		}
		timer.Reset(w.cfg.Interval)
	}
}

// Snapshot polls the backend once
func (w *RunWatcher) Snapshot(ctx context.Context) (model.RunProgress, error) {
	runID, running, err := w.source.GetCurrentRunID(ctx)
	if err != nil {
		return model.RunProgress{}, err
	}
	if !running {
		return model.RunProgress{Running: false}, nil
	}

	log, err := w.source.GetCurrentLog(ctx)
	if err != nil {
		return model.RunProgress{}, err
	}

	runtime, err := w.source.GetCurrentRuntimeInfo(ctx)
	if err != nil {
		return model.RunProgress{}, err
	}

	return model.RunProgress{
		RunID:      runID,
		Running:    true,
		Percentage: ParseProgress(log),
		LogTail:    tail(log, w.cfg.LogTail),
		Runtime:    runtime,
	}, nil
}

func (w *RunWatcher) publish(ctx context.Context, progress model.RunProgress) {
	if w.publisher == nil {
		return
	}
	event := kafka.Event{Key: progress.RunID.String(), Payload: progress}
	if err := w.publisher.Publish(ctx, w.cfg.Topic, event); err != nil {
		// Progress events are best effort; the next change publishes again
		w.logger.Warn("Failed to publish run progress",
			zap.String("run_id", progress.RunID.String()),
			zap.Error(err))
	}
}

var progressPattern = regexp.MustCompile(`(\d+)\s+of\s+(\d+)`)

// ParseProgress derives a percentage from the last "<n> of <m>" marker the
// checker writes to its log
func ParseProgress(log string) float64 {
	matches := progressPattern.FindAllStringSubmatch(log, -1)
	if len(matches) == 0 {
		return 0
	}
	last := matches[len(matches)-1]

	cur, err := strconv.ParseFloat(last[1], 64)
	if err != nil {
		return 0
	}
	total, err := strconv.ParseFloat(last[2], 64)
	if err != nil || total == 0 {
		return 0
	}

	pct := cur / total * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// tail returns the last n lines of s; n <= 0 keeps everything
func tail(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if n <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

func changed(prev, next model.RunProgress) bool {
	if prev.RunID != next.RunID || prev.Running != next.Running ||
		prev.Percentage != next.Percentage || prev.LogTail != next.LogTail {
		return true
	}
	return samples(prev.Runtime) != samples(next.Runtime)
}

func samples(info *model.RuntimeInfo) int {
	if info == nil {
		return 0
	}
	return len(info.XAxis)
}
