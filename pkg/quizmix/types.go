package quizmix

import (
	"bytes"
	"io"
	"time"

	"github.com/himanishpuri/QuizMix/pkg/models"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/audio"
)

// UploadReport summarizes one upload batch. Every file lands in exactly one
// of Accepted, Duplicates or Failed.
type UploadReport struct {
	Accepted   []models.Item
	Duplicates []models.Notice
	Failed     []models.Notice
}

func (r *UploadReport) Notices() []models.Notice {
	out := make([]models.Notice, 0, len(r.Duplicates)+len(r.Failed))
	out = append(out, r.Duplicates...)
	return append(out, r.Failed...)
}

// Preview is a playable clip.
type Preview struct {
	Item     models.Item
	Data     []byte
	Metadata *audio.Metadata // nil when no prober is configured
}

func (p *Preview) Reader() io.ReadSeeker { return bytes.NewReader(p.Data) }

// Export is a finished mix waiting to be downloaded.
type Export struct {
	ID          string
	SessionID   string
	FileName    string
	ContentType string
	Data        []byte
	Segments    int
	Duration    time.Duration
	CreatedAt   time.Time
}

func (e *Export) Size() int64 { return int64(len(e.Data)) }
