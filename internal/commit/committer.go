package commit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"recoder/internal/encoders"
	"recoder/internal/logging"
	"recoder/internal/notifications"
)

// Outcome classifies how a commit ended.
type Outcome int

const (
	// Committed means the encoded file replaced the original.
	Committed Outcome = iota
	// ManualFix means the swap failed part way and a human must finish it.
	ManualFix
)

func (o Outcome) String() string {
	if o == ManualFix {
		return "manual_fix"
	}
	return "committed"
}

// Request describes a finished encode ready to be committed.
type Request struct {
	TaskID  string
	Source  string
	Encoded string
	Final   string
	Profile encoders.Profile
	Quality int
	Preset  int
}

// Result reports what the commit did.
type Result struct {
	Outcome      Outcome
	OriginalSize int64
	NewSize      int64
	FinalPath    string
	// Err is the swap failure behind a ManualFix outcome.
	Err error
}

// Options configures a Committer.
type Options struct {
	SettleDelay time.Duration
	Hostname    string
}

// Committer swaps encoded outputs into place.
type Committer struct {
	totals   *Totals
	notifier notifications.Service
	journal  *Journal
	errors   *Journal
	opts     Options
	logger   *slog.Logger
}

// NewCommitter wires a Committer. journal and errorJournal may be nil.
func NewCommitter(totals *Totals, notifier notifications.Service, journal, errorJournal *Journal, opts Options, logger *slog.Logger) *Committer {
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	if opts.Hostname == "" {
		opts.Hostname, _ = os.Hostname()
	}
	return &Committer{
		totals:   totals,
		notifier: notifier,
		journal:  journal,
		errors:   errorJournal,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "commit"),
	}
}

// Commit finalizes req. An error means nothing on disk was changed; a swap
// failure is reported as a ManualFix result instead.
func (c *Committer) Commit(ctx context.Context, req Request) (Result, error) {
	logger := logging.WithContext(ctx, c.logger).With(logging.String(logging.FieldFile, req.Source))

	if c.opts.SettleDelay > 0 {
		timer := time.NewTimer(c.opts.SettleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}

	original, err := os.Stat(req.Source)
	if err != nil {
		return Result{}, fmt.Errorf("stat original: %w", err)
	}
	encoded, err := os.Stat(req.Encoded)
	if err != nil {
		return Result{}, fmt.Errorf("stat encoded output: %w", err)
	}

	result := Result{OriginalSize: original.Size(), NewSize: encoded.Size(), FinalPath: req.Final}
	c.totals.AddNew(result.NewSize)

	line := DeltaLine(req.Source, result.OriginalSize, result.NewSize, req.Profile.Name, req.Quality, req.Preset)
	if err := c.journal.Append(line); err != nil {
		logging.WarnWithContext(logger, "failed to write encode journal", "journal_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "size change not recorded in encode.log"),
			logging.String(logging.FieldErrorHint, "check the log directory is writable"))
	}
	logger.Info("encode finished",
		logging.String(logging.FieldEventType, "encode_committed"),
		logging.Int64("original_bytes", result.OriginalSize),
		logging.Int64("new_bytes", result.NewSize),
		logging.Int64("saved_bytes", result.OriginalSize-result.NewSize),
		logging.Float64("saved_percent", Summary{Original: result.OriginalSize, New: result.NewSize}.SavedPercent()))

	if err := c.notifier.Publish(ctx, notifications.EventTaskCompleted, c.payload(req, result)); err != nil {
		logging.WarnWithContext(logger, "task notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no push notification for this file"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"))
	}

	if err := swap(req.Source, req.Encoded, req.Final); err != nil {
		result.Outcome = ManualFix
		result.Err = err
		c.recordManualFix(ctx, logger, req, err)
		return result, nil
	}
	result.Outcome = Committed
	return result, nil
}

// swap removes the original and moves the encoded output to its final name.
// When the final name differs from the source it must not already exist.
func swap(source, encoded, final string) error {
	if filepath.Clean(final) != filepath.Clean(source) {
		if _, err := os.Stat(final); err == nil {
			return fmt.Errorf("destination %s already exists", final)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat destination: %w", err)
		}
	}
	if err := os.Remove(source); err != nil {
		return fmt.Errorf("remove original: %w", err)
	}
	if err := os.Rename(encoded, final); err != nil {
		return fmt.Errorf("rename encoded output: %w", err)
	}
	return nil
}

func (c *Committer) recordManualFix(ctx context.Context, logger *slog.Logger, req Request, cause error) {
	entry := fmt.Sprintf("MANUAL FIX REQUIRED: original=%q encoded=%q final=%q: %v", req.Source, req.Encoded, req.Final, cause)
	if err := c.errors.Append(entry); err != nil {
		logger.Error("failed to write error journal", logging.Error(err))
	}
	logging.ErrorWithContext(logger, "could not swap encoded file into place", "commit_manual_fix",
		logging.Error(cause),
		logging.Alert("manual_fix"),
		logging.String("encoded", req.Encoded),
		logging.String("final", req.Final),
		logging.String(logging.FieldErrorHint, "finish the rename by hand; see errors.log"),
		logging.String(logging.FieldImpact, "original and encoded files may both be present"))
	if err := c.notifier.Publish(ctx, notifications.EventManualFix, notifications.Payload{
		"file":    req.Source,
		"encoded": req.Encoded,
		"error":   cause.Error(),
	}); err != nil {
		logger.Debug("manual fix notification failed", logging.Error(err))
	}
}

func (c *Committer) payload(req Request, result Result) notifications.Payload {
	s := Summary{Original: result.OriginalSize, New: result.NewSize}
	return notifications.Payload{
		"file":           filepath.Base(req.Source),
		"path":           req.Source,
		"hostname":       c.opts.Hostname,
		"original_size":  FormatSize(s.Original),
		"new_size":       FormatSize(s.New),
		"saved_size":     FormatSize(s.Saved()),
		"original_bytes": s.Original,
		"new_bytes":      s.New,
		"saved_bytes":    s.Saved(),
		"saved_percent":  FormatPercent(s.SavedPercent()),
		"encoder":        req.Profile.Name,
		"encoder_name":   req.Profile.DisplayName,
		"quality":        req.Quality,
		"preset":         req.Preset,
	}
}
