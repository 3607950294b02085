package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/QuizMix/pkg/quizmix/audio"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var probeOnly bool

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Check that a clip is playable and play it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if probeOnly {
				meta, err := audio.ReadMetadata(cmd.Context(), path)
				if err != nil {
					return fmt.Errorf("%s is not playable: %w", path, err)
				}
				printMetadata(cmd, meta, len(data))
				return nil
			}

			if !audio.Available("ffprobe", "ffplay") {
				return fmt.Errorf("preview needs ffprobe and ffplay on PATH")
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			fmt.Fprintf(out, "▶ Playing %s (Ctrl+C to stop)\n", path)
			meta, err := audio.NewPlayer().Play(runCtx, path, data)
			if meta != nil {
				printMetadata(cmd, meta, len(data))
			}
			if runCtx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&probeOnly, "probe", false, "Only print stream information")
	return cmd
}

func printMetadata(cmd *cobra.Command, meta *audio.Metadata, size int) {
	rows := [][]string{
		{"Codec", meta.Codec},
		{"Duration", meta.Duration().Round(10 * time.Millisecond).String()},
		{"Sample rate", fmt.Sprintf("%d Hz", meta.SampleRate)},
		{"Channels", fmt.Sprint(meta.Channels)},
		{"Size", humanize.Bytes(uint64(size))},
	}
	if meta.Title != "" {
		rows = append(rows, []string{"Title", meta.Title})
	}
	if meta.Artist != "" {
		rows = append(rows, []string{"Artist", meta.Artist})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
}
