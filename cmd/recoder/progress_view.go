package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"recoder/internal/logging"
	"recoder/internal/progress"
	"recoder/internal/scheduler"
)

const progressLogBucket = 10

type viewEvent struct {
	progress *progress.Event
	freed    bool
}

// progressView renders batch progress. On a terminal it draws one bar over
// the queued files with per-slot percentages in the description; elsewhere
// it emits sampled progress log lines.
type progressView struct {
	interactive bool
	out         io.Writer
	logger      *slog.Logger
	sampler     *logging.ProgressSampler
	bar         *progressbar.ProgressBar

	events    chan viewEvent
	closeOnce sync.Once

	jobs map[string]progress.Event
}

func newProgressView(out io.Writer, total int, logger *slog.Logger, forcePlain bool) *progressView {
	v := &progressView{
		interactive: !forcePlain && isTerminal(out),
		out:         out,
		logger:      logging.NewComponentLogger(logger, "progress"),
		sampler:     logging.NewProgressSampler(progressLogBucket),
		events:      make(chan viewEvent, 256),
		jobs:        make(map[string]progress.Event),
	}
	if v.interactive {
		v.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription("starting"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionFullWidth(),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(out) }),
		)
	}
	return v
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Sink receives tracker events from slot goroutines. Time updates are
// dropped when the renderer falls behind; lifecycle events are not.
func (v *progressView) Sink(ev progress.Event) {
	if ev.Kind == progress.EventTime {
		select {
		case v.events <- viewEvent{progress: &ev}:
		default:
		}
		return
	}
	v.events <- viewEvent{progress: &ev}
}

// Observe receives scheduler events.
func (v *progressView) Observe(ev scheduler.Event) {
	if ev.Kind == scheduler.EventFreed {
		v.events <- viewEvent{freed: true}
	}
}

// Close stops Run once buffered events are rendered. Safe to call twice.
func (v *progressView) Close() {
	v.closeOnce.Do(func() { close(v.events) })
}

// Run renders events until Close.
func (v *progressView) Run() error {
	for ev := range v.events {
		switch {
		case ev.freed:
			if v.bar != nil {
				_ = v.bar.Add(1)
			}
		case ev.progress != nil:
			v.handle(*ev.progress)
		}
	}
	if v.bar != nil {
		_ = v.bar.Finish()
	}
	return nil
}

func (v *progressView) handle(ev progress.Event) {
	if ev.Kind == progress.EventFinished {
		delete(v.jobs, ev.JobID)
		v.sampler.Forget(ev.JobID)
	} else {
		v.jobs[ev.JobID] = ev
	}

	if v.interactive {
		v.bar.Describe(v.describe())
		return
	}
	if ev.Kind == progress.EventFinished {
		return
	}
	percent := ev.Percent()
	if !v.sampler.ShouldLog(ev.JobID, percent) {
		return
	}
	v.logger.Info("encode progress",
		logging.String(logging.FieldJobID, ev.JobID),
		logging.String(logging.FieldEncoder, ev.Job.Profile),
		logging.String(logging.FieldFile, ev.Job.DisplayName),
		logging.Float64("progress_percent", max(percent, 0)))
}

func (v *progressView) describe() string {
	if len(v.jobs) == 0 {
		return "waiting"
	}
	parts := make([]string, 0, len(v.jobs))
	for _, ev := range v.jobs {
		var label string
		if p := ev.Percent(); p >= 0 {
			label = fmt.Sprintf("%s %s %3.0f%%", ev.Job.Profile, truncate(ev.Job.DisplayName, 24), p)
		} else {
			label = fmt.Sprintf("%s %s", ev.Job.Profile, truncate(ev.Job.DisplayName, 24))
		}
		parts = append(parts, label)
	}
	sort.Strings(parts)
	return strings.Join(parts, " | ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
