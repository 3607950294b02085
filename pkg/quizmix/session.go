package quizmix

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/himanishpuri/QuizMix/pkg/models"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/audio"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/ingest"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/playlist"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/prompts"
)

// maxPending bounds the notices kept for a session nobody is polling.
const maxPending = 64

// Session is one user's working set: an ordered playlist and the payloads of
// its items. All methods are safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	svc *quizService

	mu      sync.Mutex
	list    *playlist.Playlist
	pending []models.Notice
	closed  bool // set by EndSession; no payload is stored afterwards
}

func newSession(id string, svc *quizService) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		svc:       svc,
		list:      playlist.New(),
	}
}

// Upload ingests files and submits every fingerprinted clip in completion
// order. A file that cannot be read is reported, not dropped.
func (s *Session) Upload(ctx context.Context, files []ingest.File) (*UploadReport, error) {
	report := &UploadReport{}

	for res := range s.svc.pipeline.Run(ctx, files) {
		if !res.OK() {
			n := s.raise(models.Notice{
				Kind:     models.NoticeIngestFailed,
				FileName: res.Name,
				Message:  fmt.Sprintf("%s could not be read: %v", res.Name, res.Err),
			})
			report.Failed = append(report.Failed, n)
			continue
		}

		item, notice, err := s.submit(ctx, res.Record)
		switch {
		case errors.Is(err, ErrSessionNotFound):
			return report, err
		case err != nil:
			n := s.raise(models.Notice{
				Kind:        models.NoticeIngestFailed,
				FileName:    res.Name,
				Fingerprint: res.Record.Fingerprint,
				Message:     fmt.Sprintf("%s could not be stored: %v", res.Name, err),
			})
			report.Failed = append(report.Failed, n)
		case notice != nil:
			report.Duplicates = append(report.Duplicates, *notice)
		default:
			report.Accepted = append(report.Accepted, item)
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	s.svc.log.Infof("Session %s: %d accepted, %d duplicate, %d failed",
		s.ID, len(report.Accepted), len(report.Duplicates), len(report.Failed))
	return report, nil
}

// Submit adds one ingested record. A record whose fingerprint is already in
// the playlist is rejected with a duplicate notice and changes nothing.
func (s *Session) Submit(ctx context.Context, rec ingest.Record) (playlist.Outcome, error) {
	_, notice, err := s.submit(ctx, rec)
	if err != nil {
		return playlist.Accepted, err
	}
	if notice != nil {
		return playlist.Duplicate, nil
	}
	return playlist.Accepted, nil
}

func (s *Session) submit(ctx context.Context, rec ingest.Record) (models.Item, *models.Notice, error) {
	item, notice, err := s.submitLocked(ctx, rec)
	if notice != nil {
		s.svc.deliver(s.ID, *notice)
	}
	return item, notice, err
}

func (s *Session) submitLocked(ctx context.Context, rec ingest.Record) (models.Item, *models.Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return models.Item{}, nil, fmt.Errorf("%s: %w", s.ID, ErrSessionNotFound)
	}

	if _, dup := s.list.Find(rec.Fingerprint); dup {
		n := s.queueLocked(models.Notice{
			Kind:        models.NoticeDuplicate,
			FileName:    rec.Payload.Name,
			Fingerprint: rec.Fingerprint,
			Message:     fmt.Sprintf("%s is a duplicate file", rec.Payload.Name),
		})
		s.svc.log.Debugf("Session %s: rejected duplicate %s (%s)", s.ID, rec.Payload.Name, rec.Fingerprint)
		return models.Item{}, &n, nil
	}

	if err := s.svc.storage.PutPayload(ctx, s.ID, rec.Fingerprint, rec.Payload); err != nil {
		return models.Item{}, nil, err
	}

	item := rec.Item()
	item.AddedAt = time.Now()
	s.list.Submit(item)
	return item, nil, nil
}

func (s *Session) Items() []models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Items()
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Len()
}

func (s *Session) Empty() bool { return s.Len() == 0 }

// CanConcatenate reports whether there is anything to mix.
func (s *Session) CanConcatenate() bool { return !s.Empty() }

// Reorder moves the item at from to to. Out-of-range indices are clamped;
// the applied pair is returned.
func (s *Session) Reorder(from, to int) (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Reorder(from, to)
}

// SortByName sorts the playlist by file name once c confirms. It reports
// whether the sort happened.
func (s *Session) SortByName(ctx context.Context, c Confirmer) (bool, error) {
	ok, err := c.Confirm(ctx, SortQuestion)
	if err != nil || !ok {
		return false, err
	}

	s.mu.Lock()
	s.list.SortByName(s.svc.config.SortLocale)
	s.mu.Unlock()
	return true, nil
}

// Clear empties the playlist once c confirms. Exports already produced stay
// downloadable.
func (s *Session) Clear(ctx context.Context, c Confirmer) (bool, error) {
	ok, err := c.Confirm(ctx, ClearQuestion)
	if err != nil || !ok {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.svc.storage.ClearPayloads(ctx, s.ID); err != nil {
		return false, fmt.Errorf("clearing payloads: %w", err)
	}
	s.list.Clear()
	return true, nil
}

// Preview returns the payload of an item. With a prober configured the
// payload is only handed out once it has been probed as playable.
func (s *Session) Preview(ctx context.Context, fingerprint string) (*Preview, error) {
	s.mu.Lock()
	item, ok := s.list.Find(fingerprint)
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", fingerprint, ErrClipNotFound)
	}

	p, err := s.svc.storage.Payload(ctx, s.ID, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fingerprint, err)
	}

	preview := &Preview{Item: item, Data: p.Data}
	if prober := s.svc.config.Prober; prober != nil {
		meta, err := prober.Probe(ctx, item.Name, p.Data)
		if err != nil {
			return nil, fmt.Errorf("%s is not playable: %w", item.Name, err)
		}
		preview.Metadata = meta
	}
	return preview, nil
}

// Concatenate mixes prompt n before item n for the current order and stores
// the result as an export. An empty playlist yields ErrEmptyPlaylist and no
// side effects. Any failure is also raised as a notice.
func (s *Session) Concatenate(ctx context.Context) (*Export, error) {
	items := s.Items()
	if len(items) == 0 {
		return nil, ErrEmptyPlaylist
	}

	exp, err := s.concatenate(ctx, items)
	if err != nil {
		s.raise(models.Notice{
			Kind:    models.NoticeExportFailed,
			Message: fmt.Sprintf("Concatenation failed: %v", err),
		})
		s.svc.log.Errorf("Session %s: concatenation failed: %v", s.ID, err)
		return nil, err
	}

	s.raise(models.Notice{
		Kind:    models.NoticeExported,
		Message: fmt.Sprintf("%s is ready", exp.FileName),
	})
	s.svc.log.Infof("Session %s: exported %s (%d segments, %s)", s.ID, exp.FileName, exp.Segments, exp.Duration)
	return exp, nil
}

func (s *Session) concatenate(ctx context.Context, items []models.Item) (*Export, error) {
	if s.svc.prompts == nil {
		return nil, ErrNoPromptSource
	}

	clips, err := prompts.FetchRange(ctx, s.svc.prompts, len(items))
	if err != nil {
		return nil, fmt.Errorf("fetching prompts: %w", err)
	}

	fps := make([]string, len(items))
	for i, it := range items {
		fps[i] = it.Fingerprint
	}
	payloads, err := s.svc.storage.Payloads(ctx, s.ID, fps)
	if err != nil {
		return nil, fmt.Errorf("loading clips: %w", err)
	}

	plan := playlist.Interleave(items)
	inputs := make([]audio.Input, 0, len(plan))
	for _, seg := range plan {
		switch seg.Kind {
		case models.SegmentPrompt:
			c := clips[seg.Prompt-1]
			inputs = append(inputs, audio.Input{Name: c.Name, Data: c.Data})
		case models.SegmentClip:
			p := payloads[seg.Item.Fingerprint]
			inputs = append(inputs, audio.Input{Name: p.Name, Data: p.Data})
		}
	}

	out, err := s.svc.mixer.Mix(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("mixing: %w", err)
	}

	exp := &Export{
		SessionID:   s.ID,
		FileName:    exportName(s.svc.config.ExportName, out.Format, time.Now()),
		ContentType: out.ContentType,
		Data:        out.Data,
		Segments:    len(inputs),
		Duration:    out.Duration,
	}
	if err := s.svc.storage.SaveExport(ctx, exp); err != nil {
		return nil, fmt.Errorf("saving export: %w", err)
	}
	return exp, nil
}

func exportName(base string, f audio.Format, at time.Time) string {
	if base == "" {
		base = "quiz"
	}
	if f == "" {
		f = audio.FormatMP3
	}
	return fmt.Sprintf("%s-%s%s", base, at.Format("20060102-150405"), f.Ext())
}

// Notices drains the notices raised since the last call.
func (s *Session) Notices() []models.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

// raise queues n and hands it to the Notifier once the session lock is
// released, so a Notifier may call back into the session.
func (s *Session) raise(n models.Notice) models.Notice {
	s.mu.Lock()
	n = s.queueLocked(n)
	s.mu.Unlock()

	s.svc.deliver(s.ID, n)
	return n
}

func (s *Session) queueLocked(n models.Notice) models.Notice {
	n = stamp(n)
	if len(s.pending) >= maxPending {
		s.pending = s.pending[1:]
	}
	s.pending = append(s.pending, n)
	return n
}

// IsConfirmation reports whether err asks for a confirmation and returns the
// pending question.
func IsConfirmation(err error) (string, bool) {
	var ce *ConfirmationError
	if errors.As(err, &ce) {
		return ce.Question, true
	}
	return "", errors.Is(err, ErrConfirmationRequired)
}
