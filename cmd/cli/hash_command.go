package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/QuizMix/pkg/logger"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/ingest"
)

func newHashCommand(ctx *commandContext) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "hash <file>...",
		Short: "Print content fingerprints and group duplicate files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if concurrency <= 0 {
				concurrency = cfg.Ingest.Concurrency
			}

			p := ingest.New(
				ingest.WithConcurrency(concurrency),
				ingest.WithLogger(logger.GetLogger().With("hash")),
			)
			results := p.Collect(cmd.Context(), ingest.PathFiles(args))
			// Completion order is arbitrary; print in argument order.
			slices.SortFunc(results, func(a, b ingest.Result) int { return a.Index - b.Index })

			fmt.Fprintln(cmd.OutOrStdout(), renderHashes(args, results))

			failed := 0
			for _, r := range results {
				if !r.OK() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be read", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&concurrency, "jobs", "j", 0, "Files hashed in parallel (default from config)")
	return cmd
}

// duplicateOf maps each result index to the index of the first file with the
// same fingerprint, for every file after the first.
func duplicateOf(results []ingest.Result) map[int]int {
	first := make(map[string]int)
	dups := make(map[int]int)
	for _, r := range results {
		if !r.OK() {
			continue
		}
		if idx, ok := first[r.Record.Fingerprint]; ok {
			dups[r.Index] = idx
			continue
		}
		first[r.Record.Fingerprint] = r.Index
	}
	return dups
}

func renderHashes(paths []string, results []ingest.Result) string {
	dups := duplicateOf(results)
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if !r.OK() {
			rows = append(rows, []string{paths[r.Index], "", "", "error: " + r.Err.Error()})
			continue
		}
		status := "unique"
		if idx, ok := dups[r.Index]; ok {
			status = "duplicate of " + paths[idx]
		}
		rows = append(rows, []string{
			paths[r.Index],
			r.Record.Fingerprint,
			humanize.Bytes(uint64(len(r.Record.Payload.Data))),
			status,
		})
	}
	return strings.TrimRight(renderTable(
		[]string{"File", "SHA-1", "Size", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	), "\n")
}
