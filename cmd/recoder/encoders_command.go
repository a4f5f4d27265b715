package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"recoder/internal/batch"
	"recoder/internal/benchmark"
	"recoder/internal/encoders"
)

func newEncodersCommand(ctx *commandContext) *cobra.Command {
	var refresh bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "encoders",
		Short: "Benchmark encoders and list which ones work on this machine",
		Long: `Benchmark every configured encoder with a short synthetic encode and list
the results. Results are cached for benchmark.max_age_hours; --refresh probes
again regardless of the cache.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			tools, err := ctx.tools()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			b, err := batch.New(batch.Options{Config: cfg, Tools: tools, ForceBenchmark: refresh, Logger: logger})
			if err != nil {
				return err
			}
			results, err := b.Benchmark(runCtx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, results)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderBenchmarks(results))
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Probe every encoder even if a fresh cached result exists")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

func renderBenchmarks(results []benchmark.Result) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		name, class := r.Profile, ""
		if p, err := encoders.Lookup(r.Profile); err == nil {
			name = p.DisplayName
			class = string(p.Class)
		}
		status, speed := "available", benchmark.FormatSpeed(r.Speed)
		if r.Failed {
			status, speed = "unavailable", "-"
		}
		rows = append(rows, []string{r.Profile, name, class, speed, status, humanize.Time(r.MeasuredAt)})
	}
	return renderTable(
		[]string{"Encoder", "Name", "Class", "Speed", "Status", "Measured"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}
