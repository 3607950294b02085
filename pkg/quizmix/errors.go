package quizmix

import (
	"context"
	"errors"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrEmptyPlaylist        = errors.New("playlist is empty")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrClipNotFound         = errors.New("clip not found")
	ErrExportNotFound       = errors.New("export not found")
	ErrNoPromptSource       = errors.New("no prompt source configured")
)

const (
	SortQuestion  = "Sort the list by file name?"
	ClearQuestion = "Clear the question list?"
)

// ConfirmationError carries the question that still needs an answer.
type ConfirmationError struct {
	Question string
}

func (e *ConfirmationError) Error() string {
	return "confirmation required: " + e.Question
}

func (e *ConfirmationError) Is(target error) bool {
	return target == ErrConfirmationRequired
}

// Confirmed answers every question with confirmed. When confirmed is false
// it fails with a *ConfirmationError, so a caller that cannot prompt
// interactively can relay the question.
func Confirmed(confirmed bool) Confirmer {
	return ConfirmFunc(func(_ context.Context, question string) (bool, error) {
		if confirmed {
			return true, nil
		}
		return false, &ConfirmationError{Question: question}
	})
}

// Always confirms without asking.
var Always Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
