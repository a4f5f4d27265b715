package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"recoder/internal/config"
	"recoder/internal/encodecmd"
	"recoder/internal/encoders"
	"recoder/internal/marker"
	"recoder/internal/media/ffprobe"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var encoderName string

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show a file's recoder marker, the skip decision, and the ffmpeg command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			tools, err := ctx.tools()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			probe, err := ffprobe.Inspect(cmd.Context(), tools.FFprobe, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "File:      %s\n", path)
			fmt.Fprintf(out, "Codec:     %s\n", valueOrDash(probe.VideoCodec()))
			fmt.Fprintf(out, "Duration:  %.1fs\n", probe.DurationSeconds())
			fmt.Fprintf(out, "Size:      %s\n", formatBytes(probe.SizeBytes()))

			detector := marker.NewDetector(marker.FFprobeInspector{Binary: tools.FFprobe}, nil)
			found, err := detector.Find(cmd.Context(), path)
			if err != nil {
				return err
			}
			markerText := "-"
			if found != nil {
				markerText = found.String()
			}
			fmt.Fprintf(out, "Marker:    %s\n", markerText)
			decision := marker.Decide(found, marker.Request{Reencode: cfg.Encoding.Reencode, Quality: cfg.Encoding.Quality})
			fmt.Fprintf(out, "Decision:  %s (%s)\n", decision.Action, decision.Reason)

			if strings.TrimSpace(encoderName) == "" {
				return nil
			}
			profile, err := encoders.Lookup(encoderName)
			if err != nil {
				return err
			}
			job, err := encodecmd.Build(tools.FFmpeg, profile, encodecmd.Settings{Quality: cfg.Encoding.Quality, Preset: cfg.Encoding.Preset}, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Command:   %s\n", job.Command)
			return nil
		},
	}

	cmd.Flags().StringVarP(&encoderName, "encoder", "e", "", "Also print the ffmpeg command this encoder would run")
	return cmd
}

func valueOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
