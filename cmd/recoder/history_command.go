package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"recoder/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		runID      string
		latest     bool
		failed     bool
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded file outcomes from previous runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cmd.Context(), cfg.HistoryPath())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			filter := history.Filter{RunID: runID, Limit: limit}
			if latest && runID == "" {
				run, err := store.LatestRun(cmd.Context())
				if err != nil {
					return err
				}
				if run == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				filter.RunID = run.ID
			}
			if failed {
				filter.Outcomes = []history.Outcome{history.OutcomeFailed, history.OutcomeManualFix}
			}

			records, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, newHistoryJSON(records))
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No outcomes recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistory(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Only show outcomes of this run ID")
	cmd.Flags().BoolVar(&latest, "latest", false, "Only show outcomes of the most recent run")
	cmd.Flags().BoolVar(&failed, "failed", false, "Only show failed and manual-fix outcomes")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum rows to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print outcomes as JSON")
	return cmd
}

type historyJSON struct {
	RunID         string    `json:"run_id"`
	TaskID        string    `json:"task_id"`
	Path          string    `json:"path"`
	Outcome       string    `json:"outcome"`
	Encoder       string    `json:"encoder,omitempty"`
	Quality       *int      `json:"quality,omitempty"`
	Preset        *int      `json:"preset,omitempty"`
	OriginalBytes int64     `json:"original_bytes"`
	NewBytes      int64     `json:"new_bytes"`
	ExitCode      *int      `json:"exit_code,omitempty"`
	Error         string    `json:"error,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

func newHistoryJSON(records []history.Record) []historyJSON {
	out := make([]historyJSON, 0, len(records))
	for _, r := range records {
		out = append(out, historyJSON{
			RunID:         r.RunID,
			TaskID:        r.TaskID,
			Path:          r.Path,
			Outcome:       string(r.Outcome),
			Encoder:       r.Encoder,
			Quality:       r.Quality,
			Preset:        r.Preset,
			OriginalBytes: r.OriginalBytes,
			NewBytes:      r.NewBytes,
			ExitCode:      r.ExitCode,
			Error:         r.ErrorMessage,
			StartedAt:     r.StartedAt,
			FinishedAt:    r.FinishedAt,
		})
	}
	return out
}

func renderHistory(records []history.Record) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		encoder := r.Encoder
		if encoder == "" {
			encoder = "-"
		}
		saved := "-"
		if r.Outcome == history.OutcomeEncoded || r.Outcome == history.OutcomeManualFix {
			saved = formatBytes(r.OriginalBytes - r.NewBytes)
		}
		rows = append(rows, []string{
			filepath.Base(r.Path),
			string(r.Outcome),
			encoder,
			formatOptionalInt(r.Quality),
			formatOptionalInt(r.Preset),
			formatBytes(r.OriginalBytes),
			formatBytes(r.NewBytes),
			saved,
			r.FinishedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return renderTable(
		[]string{"File", "Outcome", "Encoder", "Q", "P", "Original", "New", "Saved", "Finished"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}
