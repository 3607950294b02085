package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/QuizMix/pkg/logger"
	"github.com/himanishpuri/QuizMix/pkg/models"
	"github.com/himanishpuri/QuizMix/pkg/quizmix"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/audio"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/ingest"
)

type buildOptions struct {
	out       string
	prompts   string
	format    string
	sort      bool
	assumeYes bool
}

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build <clip>...",
		Short: "Deduplicate clips and mix them with numbered prompts into one track",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if opts.prompts != "" {
				cfg.Prompts.Location = opts.prompts
			}
			if opts.format != "" {
				cfg.Audio.Format = opts.format
			} else if ext := strings.TrimPrefix(filepath.Ext(opts.out), "."); ext != "" {
				if _, err := audio.ParseFormat(ext); err == nil {
					cfg.Audio.Format = ext
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			svcOpts, err := cfg.ServiceOptions(logger.GetLogger().With("build"))
			if err != nil {
				return err
			}
			svc, err := quizmix.NewService(svcOpts...)
			if err != nil {
				return err
			}
			defer svc.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			confirmer := terminalConfirmer(opts.assumeYes, cmd.InOrStdin(), cmd.ErrOrStderr(), isTerminal(os.Stdin))
			return runBuild(runCtx, cmd, svc, args, opts, confirmer)
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "quiz.mp3", "Output file")
	cmd.Flags().StringVarP(&opts.prompts, "prompts", "p", "", "Directory or base URL of question-<n>.mp3 clips")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format: mp3 or wav (default from --out extension)")
	cmd.Flags().BoolVar(&opts.sort, "sort", false, "Sort clips by file name before mixing")
	cmd.Flags().BoolVarP(&opts.assumeYes, "yes", "y", false, "Answer yes to confirmation prompts")

	return cmd
}

func runBuild(ctx context.Context, cmd *cobra.Command, svc quizmix.Service, paths []string, opts buildOptions, confirmer quizmix.Confirmer) error {
	out := cmd.OutOrStdout()

	sess, err := svc.NewSession(ctx)
	if err != nil {
		return err
	}

	report, err := sess.Upload(ctx, ingest.PathFiles(paths))
	if err != nil {
		return err
	}
	for _, n := range report.Notices() {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", noticeMark(n.Kind), n.Message)
	}
	if len(report.Failed) > 0 && len(report.Accepted) == 0 {
		return fmt.Errorf("none of the %d clips could be read", len(paths))
	}

	if opts.sort {
		sorted, err := sess.SortByName(ctx, confirmer)
		if err != nil {
			if _, ok := quizmix.IsConfirmation(err); ok {
				return errors.New("sorting needs confirmation: rerun with --yes")
			}
			return err
		}
		if !sorted {
			fmt.Fprintln(out, "Keeping upload order")
		}
	}

	fmt.Fprintln(out, renderItems(sess.Items()))

	exp, err := sess.Concatenate(ctx)
	if errors.Is(err, quizmix.ErrEmptyPlaylist) {
		fmt.Fprintln(out, "Nothing to mix")
		return nil
	}
	if err != nil {
		return err
	}

	if dir := filepath.Dir(opts.out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(opts.out, exp.Data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", opts.out, err)
	}

	fmt.Fprintf(out, "Wrote %s (%s, %d segments, %s)\n",
		opts.out, humanize.Bytes(uint64(exp.Size())), exp.Segments, exp.Duration.Round(100*time.Millisecond))
	return nil
}

func renderItems(items []models.Item) string {
	rows := make([][]string, len(items))
	for i, it := range items {
		rows[i] = []string{
			fmt.Sprint(i + 1),
			it.Name,
			it.DisplayName(),
			humanize.Bytes(uint64(it.Size)),
			it.Fingerprint[:min(12, len(it.Fingerprint))],
		}
	}
	return renderTable(
		[]string{"#", "File", "Title", "Size", "Fingerprint"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func noticeMark(kind models.NoticeKind) string {
	switch kind {
	case models.NoticeDuplicate:
		return "⚠️ "
	case models.NoticeIngestFailed, models.NoticeExportFailed:
		return "❌"
	default:
		return "✅"
	}
}
