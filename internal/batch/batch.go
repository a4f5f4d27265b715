package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"recoder/internal/benchmark"
	"recoder/internal/commit"
	"recoder/internal/config"
	"recoder/internal/deps"
	"recoder/internal/discovery"
	"recoder/internal/encodecmd"
	"recoder/internal/encoders"
	"recoder/internal/ffmpeg"
	"recoder/internal/history"
	"recoder/internal/logging"
	"recoder/internal/marker"
	"recoder/internal/notifications"
	"recoder/internal/progress"
	"recoder/internal/scheduler"
)

// ErrNoEncoders is returned when every selected profile failed its probe.
var ErrNoEncoders = errors.New("no working encoder profiles")

// RunStore persists runs and their outcomes.
type RunStore interface {
	Recorder
	BeginRun(ctx context.Context, run history.Run) error
	FinishRun(ctx context.Context, runID string, queued int, originalBytes, newBytes int64, finishedAt time.Time) error
}

// Options wires a Batch. Only Config is required.
type Options struct {
	Config         *config.Config
	Tools          deps.Tools
	Runner         ffmpeg.Runner
	Inspector      marker.Inspector
	Notifier       notifications.Service
	History        RunStore
	ProgressSink   progress.Sink
	Observer       scheduler.Observer
	ForceBenchmark bool
	Logger         *slog.Logger
}

// Summary describes a finished (or interrupted) run.
type Summary struct {
	RunID      string
	Encoders   []string
	Benchmarks []benchmark.Result
	Queued     int
	Totals     commit.Summary
	Counts     map[history.Outcome]int
	Elapsed    time.Duration
}

// Batch runs encode batches.
type Batch struct {
	cfg      *config.Config
	opts     Options
	runner   ffmpeg.Runner
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a Batch, filling unset collaborators from the config.
func New(opts Options) (*Batch, error) {
	if opts.Config == nil {
		return nil, errors.New("batch requires a config")
	}
	cfg := opts.Config
	if opts.Tools.FFmpeg == "" || opts.Tools.FFprobe == "" {
		resolved := deps.ResolveTools(cfg.Paths.FFmpegBinary, cfg.Paths.FFprobeBinary)
		if opts.Tools.FFmpeg == "" {
			opts.Tools.FFmpeg = resolved.FFmpeg
		}
		if opts.Tools.FFprobe == "" {
			opts.Tools.FFprobe = resolved.FFprobe
		}
	}
	runner := opts.Runner
	if runner == nil {
		runner = ffmpeg.NewRunner(cfg.KillGrace())
	}
	if opts.Inspector == nil {
		opts.Inspector = marker.FFprobeInspector{Binary: opts.Tools.FFprobe}
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Batch{
		cfg:      cfg,
		opts:     opts,
		runner:   runner,
		notifier: notifier,
		logger:   logging.NewComponentLogger(opts.Logger, "batch"),
		now:      time.Now,
	}, nil
}

// Benchmark probes the configured encoder profiles, reusing fresh cache entries.
func (b *Batch) Benchmark(ctx context.Context) ([]benchmark.Result, error) {
	profiles, err := encoders.Select(b.cfg.Encoding.Encoders)
	if err != nil {
		return nil, err
	}
	cache := benchmark.NewCache(b.cfg.BenchmarkCachePath(), b.opts.Logger)
	discoverer := benchmark.NewDiscoverer(b.runner, cache, benchmark.Options{
		Binary:       b.opts.Tools.FFmpeg,
		MaxAge:       b.cfg.BenchmarkMaxAge(),
		ProbeSeconds: b.cfg.Benchmark.ProbeSeconds,
		Resolution:   b.cfg.Benchmark.Resolution,
		Force:        b.opts.ForceBenchmark,
	}, b.opts.Logger)
	return discoverer.Discover(ctx, profiles)
}

// Run encodes files on one slot per working profile and blocks until the
// queue drains or ctx is cancelled. A cancelled run still returns its partial
// summary alongside ctx.Err().
func (b *Batch) Run(ctx context.Context, files []discovery.File) (Summary, error) {
	started := b.now()
	summary := Summary{Queued: len(files), Counts: map[history.Outcome]int{}}
	if len(files) == 0 {
		b.logger.Info("nothing to encode", logging.String(logging.FieldEventType, "batch_empty"))
		return summary, nil
	}

	results, err := b.Benchmark(ctx)
	if err != nil {
		return summary, fmt.Errorf("benchmark encoders: %w", err)
	}
	summary.Benchmarks = results
	for _, r := range benchmark.Available(results) {
		summary.Encoders = append(summary.Encoders, r.Profile)
	}
	if len(summary.Encoders) == 0 {
		return summary, ErrNoEncoders
	}

	summary.RunID = uuid.NewString()
	totals := &commit.Totals{}
	hostname, _ := os.Hostname()
	committer := commit.NewCommitter(totals, b.notifier,
		commit.NewJournal(filepath.Join(b.cfg.Paths.LogDir, commit.JournalFileName)),
		commit.NewJournal(filepath.Join(b.cfg.Paths.LogDir, commit.ErrorJournalFileName)),
		commit.Options{SettleDelay: b.cfg.SettleDelay(), Hostname: hostname},
		b.opts.Logger)

	var recorder Recorder
	if b.opts.History != nil {
		if err := b.opts.History.BeginRun(ctx, history.Run{ID: summary.RunID, StartedAt: started, Encoders: summary.Encoders}); err != nil {
			logging.WarnWithContext(b.logger, "failed to record run start", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "outcomes of this run will not be recorded"))
		} else {
			recorder = b.opts.History
		}
	}
	handler, err := NewHandler(HandlerConfig{
		RunID:     summary.RunID,
		Binary:    b.opts.Tools.FFmpeg,
		Settings:  encodecmd.Settings{Quality: b.cfg.Encoding.Quality, Preset: b.cfg.Encoding.Preset},
		Reencode:  b.cfg.Encoding.Reencode,
		Checker:   marker.NewDetector(b.opts.Inspector, b.opts.Logger),
		Runner:    b.runner,
		Tracker:   progress.NewTracker(b.opts.ProgressSink),
		Committer: committer,
		Totals:    totals,
		Recorder:  recorder,
		Notifier:  b.notifier,
		Logger:    b.opts.Logger,
	})
	if err != nil {
		return summary, err
	}

	sched, err := scheduler.New(summary.Encoders, handler, scheduler.Options{
		Tick:       b.cfg.TickInterval(),
		DrainTicks: b.cfg.Scheduler.DrainTicks,
		Observer:   b.opts.Observer,
		Logger:     b.opts.Logger,
	})
	if err != nil {
		return summary, err
	}

	for _, f := range files {
		totals.AddOriginal(f.Size)
	}
	sched.Push(discovery.Paths(files)...)
	b.logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_started"),
		logging.Int("files", len(files)),
		logging.Int64("original_bytes", discovery.TotalSize(files)),
		logging.Any("encoders", summary.Encoders))

	runErr := sched.Run(ctx)

	summary.Totals = totals.Summary()
	summary.Counts = handler.Counts()
	summary.Elapsed = b.now().Sub(started)
	b.finish(ctx, summary, recorder != nil, runErr)
	return summary, runErr
}

func (b *Batch) finish(ctx context.Context, summary Summary, recordRun bool, runErr error) {
	s := summary.Totals
	if recordRun {
		if err := b.opts.History.FinishRun(context.WithoutCancel(ctx), summary.RunID, summary.Queued, s.Original, s.New, b.now()); err != nil {
			logging.WarnWithContext(b.logger, "failed to record run end", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run totals missing from history"))
		}
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "batch_finished"),
		logging.Int("queued", summary.Queued),
		logging.Int("encoded", summary.Counts[history.OutcomeEncoded]),
		logging.Int("skipped", summary.Counts[history.OutcomeSkipped]),
		logging.Int("failed", summary.Counts[history.OutcomeFailed]),
		logging.Int("manual_fix", summary.Counts[history.OutcomeManualFix]),
		logging.Int64("original_bytes", s.Original),
		logging.Int64("new_bytes", s.New),
		logging.Int64("saved_bytes", s.Saved()),
		logging.Float64("saved_percent", s.SavedPercent()),
		logging.Duration("elapsed", summary.Elapsed),
	}
	if runErr != nil {
		b.logger.Warn("batch interrupted", logging.Args(append(attrs, logging.Error(runErr))...)...)
		return
	}
	b.logger.Info("batch finished", logging.Args(attrs...)...)

	hostname, _ := os.Hostname()
	if err := b.notifier.Publish(ctx, notifications.EventRunCompleted, notifications.Payload{
		"hostname":       hostname,
		"files":          summary.Queued,
		"encoded":        summary.Counts[history.OutcomeEncoded],
		"skipped":        summary.Counts[history.OutcomeSkipped],
		"failed":         summary.Counts[history.OutcomeFailed],
		"original_size":  commit.FormatSize(s.Original),
		"new_size":       commit.FormatSize(s.New),
		"saved_size":     commit.FormatSize(s.Saved()),
		"original_bytes": s.Original,
		"new_bytes":      s.New,
		"saved_bytes":    s.Saved(),
		"saved_percent":  commit.FormatPercent(s.SavedPercent()),
		"duration":       summary.Elapsed.Round(time.Second).String(),
	}); err != nil {
		logging.WarnWithContext(b.logger, "run notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no batch summary push notification"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"))
	}
}
