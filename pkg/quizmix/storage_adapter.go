package quizmix

import (
	"context"
	"errors"

	"github.com/himanishpuri/QuizMix/pkg/quizmix/ingest"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/storage"
)

// storageAdapter adapts storage.DBClient to the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage opens the payload store at dbPath. storage.MemoryDSN keeps
// it in memory.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) PutPayload(ctx context.Context, sessionID, fingerprint string, p ingest.Payload) error {
	return s.db.PutClip(ctx, &storage.Clip{
		SessionID:   sessionID,
		Fingerprint: fingerprint,
		Name:        p.Name,
		ContentType: p.ContentType,
		Data:        p.Data,
	})
}

func (s *storageAdapter) Payload(ctx context.Context, sessionID, fingerprint string) (*ingest.Payload, error) {
	clip, err := s.db.GetClip(ctx, sessionID, fingerprint)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return toPayload(clip), nil
}

func (s *storageAdapter) Payloads(ctx context.Context, sessionID string, fingerprints []string) (map[string]*ingest.Payload, error) {
	clips, err := s.db.GetClips(ctx, sessionID, fingerprints)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	out := make(map[string]*ingest.Payload, len(clips))
	for fp, c := range clips {
		out[fp] = toPayload(c)
	}
	return out, nil
}

func (s *storageAdapter) ClearPayloads(ctx context.Context, sessionID string) error {
	return s.db.DeleteClips(ctx, sessionID)
}

func (s *storageAdapter) DropSession(ctx context.Context, sessionID string) error {
	return s.db.DeleteSession(ctx, sessionID)
}

func (s *storageAdapter) SaveExport(ctx context.Context, exp *Export) error {
	row := &storage.Export{
		ID:          exp.ID,
		SessionID:   exp.SessionID,
		FileName:    exp.FileName,
		ContentType: exp.ContentType,
		Data:        exp.Data,
	}
	if err := s.db.SaveExport(ctx, row); err != nil {
		return err
	}
	exp.ID = row.ID
	exp.CreatedAt = row.CreatedAt
	return nil
}

func (s *storageAdapter) Export(ctx context.Context, id string) (*Export, error) {
	row, err := s.db.GetExport(ctx, id)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return &Export{
		ID:          row.ID,
		SessionID:   row.SessionID,
		FileName:    row.FileName,
		ContentType: row.ContentType,
		Data:        row.Data,
		CreatedAt:   row.CreatedAt,
	}, nil
}

func (s *storageAdapter) PayloadCount(ctx context.Context) (int64, error) {
	return s.db.ClipCount(ctx)
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}

func toPayload(c *storage.Clip) *ingest.Payload {
	return &ingest.Payload{Name: c.Name, Data: c.Data, ContentType: c.ContentType}
}

func mapStorageErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrClipNotFound):
		return ErrClipNotFound
	case errors.Is(err, storage.ErrExportNotFound):
		return ErrExportNotFound
	default:
		return err
	}
}
