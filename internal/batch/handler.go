package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"recoder/internal/commit"
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

// Checker decides whether a file needs encoding.
type Checker interface {
	Check(ctx context.Context, path string, req marker.Request) marker.Decision
}

// Committer finalizes a successful encode.
type Committer interface {
	Commit(ctx context.Context, req commit.Request) (commit.Result, error)
}

// Recorder persists per-file outcomes.
type Recorder interface {
	Record(ctx context.Context, rec history.Record) error
}

// HandlerConfig wires a Handler.
type HandlerConfig struct {
	RunID     string
	Binary    string
	Settings  encodecmd.Settings
	Reencode  bool
	Checker   Checker
	Runner    ffmpeg.Runner
	Tracker   *progress.Tracker
	Committer Committer
	Totals    *commit.Totals
	Recorder  Recorder
	Notifier  notifications.Service
	Logger    *slog.Logger
}

// Handler runs one task on one slot. It implements scheduler.Handler.
type Handler struct {
	cfg    HandlerConfig
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	counts map[history.Outcome]int
}

// NewHandler validates cfg and returns a Handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	switch {
	case cfg.Checker == nil:
		return nil, errors.New("batch handler requires a checker")
	case cfg.Runner == nil:
		return nil, errors.New("batch handler requires a runner")
	case cfg.Committer == nil:
		return nil, errors.New("batch handler requires a committer")
	case cfg.Totals == nil:
		return nil, errors.New("batch handler requires totals")
	}
	if cfg.Tracker == nil {
		cfg.Tracker = progress.NewTracker(nil)
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notifications.NewService(nil)
	}
	return &Handler{
		cfg:    cfg,
		logger: logging.NewComponentLogger(cfg.Logger, "batch"),
		now:    time.Now,
		counts: make(map[history.Outcome]int),
	}, nil
}

// Counts returns how many tasks ended in each outcome so far.
func (h *Handler) Counts() map[history.Outcome]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[history.Outcome]int, len(h.counts))
	for k, v := range h.counts {
		out[k] = v
	}
	return out
}

// Handle implements scheduler.Handler. It never panics on IO failures and
// always returns once the task reached a terminal outcome.
func (h *Handler) Handle(ctx context.Context, slot scheduler.Slot, task scheduler.Task) {
	ctx = logging.WithTask(ctx, task.ID.String())
	ctx = logging.WithSlot(ctx, slot.Index, slot.Profile)
	logger := logging.WithContext(ctx, h.logger).With(logging.String(logging.FieldFile, task.Path))
	started := h.now()

	rec := history.Record{
		RunID:     h.cfg.RunID,
		TaskID:    task.ID.String(),
		Path:      task.Path,
		StartedAt: started,
	}
	originalSize := fileSize(task.Path)
	rec.OriginalBytes = originalSize

	decision := h.cfg.Checker.Check(ctx, task.Path, marker.Request{
		Reencode: h.cfg.Reencode,
		Quality:  h.cfg.Settings.Quality,
	})
	if decision.Action == marker.Skip {
		h.cfg.Totals.AddNew(originalSize)
		rec.Outcome = history.OutcomeSkipped
		rec.NewBytes = originalSize
		rec.ErrorMessage = decision.Reason
		h.finish(ctx, logger, rec)
		return
	}

	profile, err := encoders.Lookup(slot.Profile)
	if err == nil {
		rec.Encoder = profile.Name
		rec.Quality = intPtr(h.cfg.Settings.Quality)
		rec.Preset = intPtr(h.cfg.Settings.Preset)
	}
	var job encodecmd.Job
	if err == nil {
		job, err = encodecmd.Build(h.cfg.Binary, profile, h.cfg.Settings, task.Path)
	}
	if err != nil {
		h.fail(ctx, logger, rec, originalSize, fmt.Errorf("build encode command: %w", err), nil)
		return
	}

	jobID := uuid.NewString()
	h.cfg.Tracker.Register(jobID, progress.JobRecord{
		DisplayName: filepath.Base(task.Path),
		Profile:     profile.Name,
		Command:     job.Command,
	})
	logger.Info("encode started",
		logging.String(logging.FieldEventType, "encode_started"),
		logging.String(logging.FieldJobID, jobID),
		logging.String("output", job.Output))
	logger.Debug("ffmpeg command", logging.String("command", job.Command))

	result, runErr := h.cfg.Runner.Run(ctx, ffmpeg.Request{
		Binary: job.Binary,
		Args:   job.Args,
		Dir:    filepath.Dir(task.Path),
		OnLine: func(line string) { h.cfg.Tracker.Observe(jobID, line) },
	})
	success := runErr == nil && result.ExitCode == 0
	h.cfg.Tracker.Finish(jobID, success)

	if !success {
		exit := result.ExitCode
		if runErr == nil {
			runErr = fmt.Errorf("ffmpeg exited with code %d", exit)
		}
		h.fail(ctx, logger, rec, originalSize, runErr, &result)
		return
	}

	res, err := h.cfg.Committer.Commit(ctx, commit.Request{
		TaskID:  task.ID.String(),
		Source:  task.Path,
		Encoded: job.Output,
		Final:   job.Final,
		Profile: profile,
		Quality: h.cfg.Settings.Quality,
		Preset:  h.cfg.Settings.Preset,
	})
	rec.ExitCode = intPtr(0)
	if err != nil {
		h.fail(ctx, logger, rec, originalSize, fmt.Errorf("commit: %w", err), nil)
		return
	}
	rec.OriginalBytes = res.OriginalSize
	rec.NewBytes = res.NewSize
	if res.Outcome == commit.ManualFix {
		rec.Outcome = history.OutcomeManualFix
		if res.Err != nil {
			rec.ErrorMessage = res.Err.Error()
		}
	} else {
		rec.Outcome = history.OutcomeEncoded
	}
	h.finish(ctx, logger, rec)
}

// fail records an encode that did not produce a committed file. The original
// is left in place and counts at its unchanged size.
func (h *Handler) fail(ctx context.Context, logger *slog.Logger, rec history.Record, originalSize int64, cause error, result *ffmpeg.Result) {
	h.cfg.Totals.AddNew(originalSize)
	rec.Outcome = history.OutcomeFailed
	rec.NewBytes = originalSize
	rec.ErrorMessage = cause.Error()

	attrs := []logging.Attr{
		logging.Error(cause),
		logging.String(logging.FieldImpact, "original file left untouched"),
	}
	if result != nil {
		rec.ExitCode = intPtr(result.ExitCode)
		attrs = append(attrs,
			logging.Int("exit_code", result.ExitCode),
			logging.Duration("elapsed", result.Elapsed))
		if len(result.Tail) > 0 {
			attrs = append(attrs, logging.String("stderr_tail", strings.Join(result.Tail, "\n")))
		}
	}

	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		logger.Warn("encode cancelled", logging.Args(attrs...)...)
	} else {
		logging.ErrorWithContext(logger, "encode failed", "encode_failed",
			append(attrs, logging.String(logging.FieldErrorHint, "inspect stderr_tail or rerun with --log-level debug"))...)
		if err := h.cfg.Notifier.Publish(ctx, notifications.EventTaskFailed, notifications.Payload{
			"file":    filepath.Base(rec.Path),
			"path":    rec.Path,
			"encoder": rec.Encoder,
			"error":   rec.ErrorMessage,
		}); err != nil {
			logger.Debug("failure notification failed", logging.Error(err))
		}
	}
	h.finish(ctx, logger, rec)
}

func (h *Handler) finish(ctx context.Context, logger *slog.Logger, rec history.Record) {
	rec.FinishedAt = h.now()
	h.mu.Lock()
	h.counts[rec.Outcome]++
	h.mu.Unlock()

	if h.cfg.Recorder == nil {
		return
	}
	// History rows are written even when the run is being cancelled.
	if err := h.cfg.Recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		logging.WarnWithContext(logger, "failed to record outcome", "history_write_failed",
			logging.Error(err),
			logging.String("outcome", string(rec.Outcome)),
			logging.String(logging.FieldImpact, "run history is incomplete"),
			logging.String(logging.FieldErrorHint, "check the state directory and history.db"))
	}
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func intPtr(v int) *int { return &v }
