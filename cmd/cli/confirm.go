package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/himanishpuri/QuizMix/pkg/quizmix"
)

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// terminalConfirmer asks on the terminal. Without a terminal it can only
// proceed when --yes was given.
func terminalConfirmer(assumeYes bool, in io.Reader, out io.Writer, interactive bool) quizmix.Confirmer {
	if assumeYes {
		return quizmix.Always
	}
	if !interactive {
		return quizmix.Confirmed(false)
	}
	reader := bufio.NewReader(in)
	return quizmix.ConfirmFunc(func(ctx context.Context, question string) (bool, error) {
		fmt.Fprintf(out, "%s [y/N] ", question)
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	})
}
