// Package quizmix assembles quiz tracks: uploaded clips are fingerprinted,
// deduplicated and ordered per session, then mixed with numbered prompt
// clips into one downloadable file.
package quizmix

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/himanishpuri/QuizMix/pkg/logger"
	"github.com/himanishpuri/QuizMix/pkg/models"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/audio"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/ingest"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/prompts"
)

// quizService is the default implementation of the Service interface.
type quizService struct {
	storage  Storage
	log      Logger
	config   *Config
	pipeline *ingest.Pipeline
	mixer    Mixer
	prompts  PromptSource

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger().With("quizmix")
	}

	stor := cfg.Storage
	if stor == nil {
		var err error
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	mixer := cfg.Mixer
	if mixer == nil {
		mc := cfg.Mix
		if mc.PCM.TempDir == "" {
			mc.PCM.TempDir = cfg.TempDir
		}
		mixer = audio.NewMixer(mc)
	}

	src := cfg.Prompts
	if src != nil {
		if _, cached := src.(*prompts.Cache); !cached {
			src = prompts.NewCache(src)
		}
	}

	return &quizService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
		pipeline: ingest.New(
			ingest.WithConcurrency(cfg.IngestConcurrency),
			ingest.WithMaxBytes(cfg.MaxUploadBytes),
			ingest.WithLogger(cfg.Logger),
		),
		mixer:    mixer,
		prompts:  src,
		sessions: make(map[string]*Session),
	}, nil
}

func (s *quizService) NewSession(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess := newSession(uuid.NewString(), s)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.log.Infof("Session %s started", sess.ID)
	return sess, nil
}

func (s *quizService) Session(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	return sess, nil
}

// EndSession forgets the session and drops its payloads and exports. An
// upload still running on it stores nothing further.
func (s *quizService) EndSession(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}

	sess.mu.Lock()
	sess.closed = true
	err := s.storage.DropSession(ctx, id)
	sess.mu.Unlock()
	if err != nil {
		return fmt.Errorf("dropping session data: %w", err)
	}
	s.log.Infof("Session %s ended", id)
	return nil
}

func (s *quizService) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *quizService) Export(ctx context.Context, id string) (*Export, error) {
	return s.storage.Export(ctx, id)
}

// ClipCount is the number of stored payloads across all sessions.
func (s *quizService) ClipCount(ctx context.Context) (int64, error) {
	return s.storage.PayloadCount(ctx)
}

func (s *quizService) Close() error {
	return s.storage.Close()
}

func stamp(n models.Notice) models.Notice {
	if n.Duration == 0 {
		n.Duration = models.DefaultNoticeDuration
	}
	if n.At.IsZero() {
		n.At = time.Now()
	}
	return n
}

func (s *quizService) deliver(sessionID string, n models.Notice) {
	if s.config.Notifier != nil {
		s.config.Notifier.Notify(sessionID, n)
	}
}
