package quizmix

import (
	"context"

	"github.com/himanishpuri/QuizMix/pkg/models"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/audio"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/ingest"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/prompts"
)

type Service interface {
	NewSession(ctx context.Context) (*Session, error)
	Session(id string) (*Session, error)
	EndSession(ctx context.Context, id string) error
	SessionCount() int
	Export(ctx context.Context, id string) (*Export, error)
	ClipCount(ctx context.Context) (int64, error)
	Close() error
}

// Storage keeps clip payloads and finished exports.
type Storage interface {
	PutPayload(ctx context.Context, sessionID, fingerprint string, p ingest.Payload) error
	Payload(ctx context.Context, sessionID, fingerprint string) (*ingest.Payload, error)
	Payloads(ctx context.Context, sessionID string, fingerprints []string) (map[string]*ingest.Payload, error)
	ClearPayloads(ctx context.Context, sessionID string) error
	DropSession(ctx context.Context, sessionID string) error
	SaveExport(ctx context.Context, exp *Export) error
	Export(ctx context.Context, id string) (*Export, error)
	PayloadCount(ctx context.Context) (int64, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Confirmer asks the user a yes/no question. Returning false leaves the
// state untouched; an error aborts the operation.
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

type ConfirmFunc func(ctx context.Context, question string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, question string) (bool, error) {
	return f(ctx, question)
}

// Notifier receives transient notices as they are raised. It is called with
// no session lock held.
type Notifier interface {
	Notify(sessionID string, n models.Notice)
}

type NotifyFunc func(sessionID string, n models.Notice)

func (f NotifyFunc) Notify(sessionID string, n models.Notice) { f(sessionID, n) }

// PromptSource supplies prompt clip n, counting from 1.
type PromptSource = prompts.Source

// Mixer turns an ordered list of encoded segments into one encoded track.
type Mixer interface {
	Mix(ctx context.Context, inputs []audio.Input) (*audio.Output, error)
}

// Prober checks that a payload can be played.
type Prober interface {
	Probe(ctx context.Context, name string, data []byte) (*audio.Metadata, error)
}

type ProbeFunc func(ctx context.Context, name string, data []byte) (*audio.Metadata, error)

func (f ProbeFunc) Probe(ctx context.Context, name string, data []byte) (*audio.Metadata, error) {
	return f(ctx, name, data)
}
