package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"recoder/internal/batch"
	"recoder/internal/config"
	"recoder/internal/discovery"
	"recoder/internal/encoders"
	"recoder/internal/history"
	"recoder/internal/logging"
)

type runFlags struct {
	quality        int
	preset         int
	encoders       []string
	reencode       bool
	forceBenchmark bool
	plain          bool
	jsonOutput     bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run <path>...",
		Short: "Encode every video file under the given paths",
		Long: `Encode every video file under the given files or folders.

One worker runs per selected encoder. Files already tagged by recoder are
skipped unless --reencode is set and --quality is higher than the recorded
value. Interrupting the run stops the running ffmpeg processes and leaves the
original files in place.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCfg, err := applyRunFlags(cmd, *cfg, flags)
			if err != nil {
				return err
			}
			return runBatch(cmd, ctx, runCfg, args, flags)
		},
	}

	cmd.Flags().IntVarP(&flags.quality, "quality", "q", 0, "Quality level 0-51 (overrides encoding.quality)")
	cmd.Flags().IntVarP(&flags.preset, "preset", "p", 0, "Preset index (overrides encoding.preset)")
	cmd.Flags().StringSliceVarP(&flags.encoders, "encoders", "e", nil, "Encoders to use, comma separated (overrides encoding.encoders)")
	cmd.Flags().BoolVar(&flags.reencode, "reencode", false, "Re-encode tagged files when the requested quality is higher")
	cmd.Flags().BoolVar(&flags.forceBenchmark, "refresh-benchmarks", false, "Ignore cached encoder benchmarks")
	cmd.Flags().BoolVar(&flags.plain, "no-progress-bar", false, "Log sampled progress instead of drawing a progress bar")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}

func applyRunFlags(cmd *cobra.Command, cfg config.Config, flags runFlags) (*config.Config, error) {
	if cmd.Flags().Changed("quality") {
		cfg.Encoding.Quality = flags.quality
	}
	if cmd.Flags().Changed("preset") {
		cfg.Encoding.Preset = flags.preset
	}
	if cmd.Flags().Changed("encoders") {
		names := make([]string, 0, len(flags.encoders))
		for _, name := range flags.encoders {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		if _, err := encoders.Select(names); err != nil {
			return nil, err
		}
		cfg.Encoding.Encoders = names
	}
	if cmd.Flags().Changed("reencode") {
		cfg.Encoding.Reencode = flags.reencode
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func runBatch(cmd *cobra.Command, cmdCtx *commandContext, cfg *config.Config, roots []string, flags runFlags) error {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	tools, err := cmdCtx.tools()
	if err != nil {
		return err
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another recoder run is active (lock %s)", cfg.LockPath())
	}
	defer func() { _ = lock.Unlock() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	files, err := discovery.Find(ctx, roots, discovery.Options{Extensions: cfg.Encoding.Extensions, Logger: logger})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Found %d files (%s)\n", len(files), formatBytes(discovery.TotalSize(files)))
	if len(files) == 0 {
		return nil
	}

	store, err := history.Open(ctx, cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	view := newProgressView(cmd.ErrOrStderr(), len(files), logger, flags.plain)
	b, err := batch.New(batch.Options{
		Config:         cfg,
		Tools:          tools,
		History:        store,
		ProgressSink:   view.Sink,
		Observer:       view.Observe,
		ForceBenchmark: flags.forceBenchmark,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	var summary batch.Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer view.Close()
		var runErr error
		summary, runErr = b.Run(gctx, files)
		return runErr
	})
	g.Go(view.Run)
	runErr := g.Wait()

	if summary.RunID == "" && runErr != nil {
		return runErr
	}
	if flags.jsonOutput {
		if err := writeJSON(cmd, newSummaryJSON(summary)); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, renderSummary(summary))
	}
	if errors.Is(runErr, context.Canceled) {
		fmt.Fprintln(out, "Run interrupted; unfinished files were left untouched")
	}
	return runErr
}

type summaryJSON struct {
	RunID         string         `json:"run_id"`
	Encoders      []string       `json:"encoders"`
	Queued        int            `json:"queued"`
	Outcomes      map[string]int `json:"outcomes"`
	OriginalBytes int64          `json:"original_bytes"`
	NewBytes      int64          `json:"new_bytes"`
	SavedBytes    int64          `json:"saved_bytes"`
	SavedPercent  float64        `json:"saved_percent"`
	ElapsedSecs   float64        `json:"elapsed_seconds"`
}

func newSummaryJSON(s batch.Summary) summaryJSON {
	outcomes := make(map[string]int, len(s.Counts))
	for k, v := range s.Counts {
		outcomes[string(k)] = v
	}
	return summaryJSON{
		RunID:         s.RunID,
		Encoders:      s.Encoders,
		Queued:        s.Queued,
		Outcomes:      outcomes,
		OriginalBytes: s.Totals.Original,
		NewBytes:      s.Totals.New,
		SavedBytes:    s.Totals.Saved(),
		SavedPercent:  s.Totals.SavedPercent(),
		ElapsedSecs:   s.Elapsed.Seconds(),
	}
}

func renderSummary(s batch.Summary) string {
	rows := [][]string{
		{"Encoders", strings.Join(s.Encoders, ", ")},
		{"Files", fmt.Sprintf("%d", s.Queued)},
		{"Encoded", fmt.Sprintf("%d", s.Counts[history.OutcomeEncoded])},
		{"Skipped", fmt.Sprintf("%d", s.Counts[history.OutcomeSkipped])},
		{"Failed", fmt.Sprintf("%d", s.Counts[history.OutcomeFailed])},
		{"Manual fix", fmt.Sprintf("%d", s.Counts[history.OutcomeManualFix])},
		{"Original size", formatBytes(s.Totals.Original)},
		{"New size", formatBytes(s.Totals.New)},
		{"Saved", fmt.Sprintf("%s (%.1f%%)", formatBytes(s.Totals.Saved()), s.Totals.SavedPercent())},
		{"Elapsed", s.Elapsed.Round(time.Second).String()},
	}
	return renderTable([]string{"Run " + s.RunID, ""}, rows, []columnAlignment{alignLeft, alignRight})
}
