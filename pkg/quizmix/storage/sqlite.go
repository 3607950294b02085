package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// MemoryDSN keeps everything in process memory: payloads vanish with the
// process, which is the default lifetime of a session.
const MemoryDSN = ":memory:"

const errDBClientNil = "db client is nil"

var (
	ErrClipNotFound   = errors.New("clip not found")
	ErrExportNotFound = errors.New("export not found")
	ErrLocked         = errors.New("database is locked by another process")
)

type DBClient struct {
	DB   *gorm.DB
	db   *sql.DB
	lock *flock.Flock
}

// Clip holds the bytes of one accepted clip. A fingerprint is unique per session.
type Clip struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	SessionID   string `gorm:"type:varchar(36);uniqueIndex:idx_clip_session_fp,priority:1"`
	Fingerprint string `gorm:"type:varchar(40);uniqueIndex:idx_clip_session_fp,priority:2"`
	Name        string
	ContentType string
	Size        int64
	Data        []byte
	CreatedAt   time.Time
}

// Export is a finished concatenation waiting to be downloaded.
type Export struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	SessionID   string `gorm:"type:varchar(36);index:idx_export_session"`
	FileName    string
	ContentType string
	Size        int64
	Data        []byte
	CreatedAt   time.Time
}

// NewDBClientWithPath opens (and migrates) the database at dbPath. An
// on-disk database is guarded by an exclusive lock file next to it.
func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	inMemory := dbPath == "" || dbPath == MemoryDSN
	dsn := dbPath

	var lock *flock.Flock
	if inMemory {
		// Each connection to ":memory:" would otherwise see its own database.
		dsn = fmt.Sprintf("file:quizmix-%s?mode=memory&cache=shared", uuid.NewString())
	} else {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating db dir: %w", err)
			}
		}
		lock = flock.New(dbPath + ".lock")
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("locking db: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("%s: %w", dbPath, ErrLocked)
		}
		dsn = dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		releaseLock(lock)
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		releaseLock(lock)
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	if inMemory {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(4)
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := db.AutoMigrate(&Clip{}, &Export{}); err != nil {
		sqlDB.Close()
		releaseLock(lock)
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB, lock: lock}, nil
}

func releaseLock(lock *flock.Flock) {
	if lock != nil {
		_ = lock.Unlock()
	}
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	err := c.db.Close()
	releaseLock(c.lock)
	return err
}

// PutClip stores the clip bytes. Storing the same fingerprint twice in one
// session keeps the first copy.
func (c *DBClient) PutClip(ctx context.Context, clip *Clip) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	clip.Size = int64(len(clip.Data))
	err := c.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(clip).Error
	if err != nil {
		return fmt.Errorf("storing clip %s: %w", clip.Fingerprint, err)
	}
	return nil
}

func (c *DBClient) GetClip(ctx context.Context, sessionID, fingerprint string) (*Clip, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var clip Clip
	err := c.DB.WithContext(ctx).
		Where("session_id = ? AND fingerprint = ?", sessionID, fingerprint).
		First(&clip).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying clip: %w", err)
	}
	return &clip, nil
}

// GetClips loads several clips of one session at once, keyed by fingerprint.
func (c *DBClient) GetClips(ctx context.Context, sessionID string, fingerprints []string) (map[string]*Clip, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	out := make(map[string]*Clip, len(fingerprints))
	if len(fingerprints) == 0 {
		return out, nil
	}

	var rows []Clip
	if err := c.DB.WithContext(ctx).
		Where("session_id = ? AND fingerprint IN ?", sessionID, fingerprints).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("batch querying clips: %w", err)
	}
	for i := range rows {
		out[rows[i].Fingerprint] = &rows[i]
	}

	for _, fp := range fingerprints {
		if _, ok := out[fp]; !ok {
			return nil, fmt.Errorf("%s: %w", fp, ErrClipNotFound)
		}
	}
	return out, nil
}

// DeleteSession drops every clip and export that belongs to sessionID.
func (c *DBClient) DeleteSession(ctx context.Context, sessionID string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&Clip{}).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ?", sessionID).Delete(&Export{}).Error
	})
}

// DeleteClips drops the clips of a session but keeps its exports, so a
// download started before a clear still completes.
func (c *DBClient) DeleteClips(ctx context.Context, sessionID string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if err := c.DB.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&Clip{}).Error; err != nil {
		return fmt.Errorf("deleting clips: %w", err)
	}
	return nil
}

func (c *DBClient) SaveExport(ctx context.Context, exp *Export) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if exp.ID == "" {
		exp.ID = uuid.NewString()
	}
	exp.Size = int64(len(exp.Data))
	if err := c.DB.WithContext(ctx).Create(exp).Error; err != nil {
		return fmt.Errorf("storing export: %w", err)
	}
	return nil
}

func (c *DBClient) GetExport(ctx context.Context, id string) (*Export, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var exp Export
	err := c.DB.WithContext(ctx).Where("id = ?", id).First(&exp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrExportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying export: %w", err)
	}
	return &exp, nil
}

// ClipCount is used by health reporting.
func (c *DBClient) ClipCount(ctx context.Context) (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var n int64
	if err := c.DB.WithContext(ctx).Model(&Clip{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// IsMemory reports whether dsn selects the in-process database.
func IsMemory(dsn string) bool {
	return dsn == "" || dsn == MemoryDSN || strings.Contains(dsn, "mode=memory")
}
