package benchmark

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"recoder/internal/encoders"
	"recoder/internal/ffmpeg"
	"recoder/internal/logging"
)

var speedPattern = regexp.MustCompile(`speed=\s*(\d+(?:\.\d+)?)x`)

// Options tunes probing and cache reuse.
type Options struct {
	Binary       string
	MaxAge       time.Duration
	ProbeSeconds int
	Resolution   string
	// Force ignores cached entries and probes every profile.
	Force bool
	Now   func() time.Time
}

// Discoverer probes encoder profiles, reusing fresh cached results.
type Discoverer struct {
	runner ffmpeg.Runner
	cache  *Cache
	opts   Options
	logger *slog.Logger
}

// NewDiscoverer wires a Discoverer.
func NewDiscoverer(runner ffmpeg.Runner, cache *Cache, opts Options, logger *slog.Logger) *Discoverer {
	if opts.Binary == "" {
		opts.Binary = "ffmpeg"
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7 * 24 * time.Hour
	}
	if opts.ProbeSeconds <= 0 {
		opts.ProbeSeconds = 600
	}
	if opts.Resolution == "" {
		opts.Resolution = "1920x1080"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Discoverer{
		runner: runner,
		cache:  cache,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "benchmark"),
	}
}

// Discover returns one result per profile, in profile order. Probes run
// sequentially so they never compete for the same hardware. Probe failures
// are recorded as Failed results; only cancellation and cache write failures
// are returned as errors.
func (d *Discoverer) Discover(ctx context.Context, profiles []encoders.Profile) ([]Result, error) {
	results := make([]Result, 0, len(profiles))
	for _, profile := range profiles {
		if !d.opts.Force {
			if cached, ok := d.cache.Lookup(profile.Name); ok && cached.Reusable(d.opts.Now(), d.opts.MaxAge) {
				d.logger.Debug("reusing cached benchmark",
					logging.String(logging.FieldEncoder, profile.Name),
					logging.Float64("speed", cached.Speed),
					logging.Time("measured_at", cached.MeasuredAt))
				results = append(results, cached)
				continue
			}
		}

		result, err := d.probe(ctx, profile)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	if err := d.cache.Update(results); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *Discoverer) probe(ctx context.Context, profile encoders.Profile) (Result, error) {
	logger := d.logger.With(logging.String(logging.FieldEncoder, profile.Name))
	logger.Info("benchmarking encoder", logging.String("display_name", profile.DisplayName))

	var speed string
	run, err := d.runner.Run(ctx, ffmpeg.Request{
		Binary: d.opts.Binary,
		Args:   ProbeArgs(profile, d.opts.Resolution, d.opts.ProbeSeconds),
		OnLine: func(line string) {
			if m := speedPattern.FindAllStringSubmatch(line, -1); len(m) > 0 {
				speed = m[len(m)-1][1]
			}
		},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		logging.WarnWithContext(logger, "encoder probe could not run", "benchmark_probe_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "encoder marked unavailable"),
			logging.String(logging.FieldErrorHint, "check the ffmpeg binary path"))
		return d.failed(profile), nil
	}

	result := Result{Profile: profile.Name, MeasuredAt: d.opts.Now()}
	if run.ExitCode != 0 || speed == "" {
		logger.Info("encoder unavailable",
			logging.Int("exit_code", run.ExitCode),
			logging.Bool("speed_reported", speed != ""))
		return d.failed(profile), nil
	}
	value, err := strconv.ParseFloat(speed, 64)
	if err != nil {
		return d.failed(profile), nil
	}
	result.Speed = value
	logger.Info("encoder available",
		logging.String("speed", FormatSpeed(value)),
		logging.Duration("elapsed", run.Elapsed))
	return result, nil
}

func (d *Discoverer) failed(profile encoders.Profile) Result {
	return Result{Profile: profile.Name, Failed: true, MeasuredAt: d.opts.Now()}
}

// ProbeArgs builds the ffmpeg arguments for a synthetic benchmark encode.
func ProbeArgs(profile encoders.Profile, resolution string, seconds int) []string {
	source := fmt.Sprintf("color=size=%s:rate=1:duration=%d", resolution, seconds)
	args := []string{"-hide_banner", "-f", "lavfi", "-i", source, "-c:v", profile.Name}
	args = append(args, profile.SelectArgs...)
	return append(args, "-f", "null", "-")
}

// Available filters out failed results, preserving order.
func Available(results []Result) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if !r.Failed {
			out = append(out, r)
		}
	}
	return out
}

// FormatSpeed renders a speed multiplier the way ffmpeg prints it.
func FormatSpeed(speed float64) string {
	return strconv.FormatFloat(speed, 'f', -1, 64) + "x"
}
