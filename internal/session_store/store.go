package session_store //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lewisedginton/ward_desk/internal/entities"
	"github.com/lewisedginton/ward_desk/pkg/logger"
	"github.com/lewisedginton/ward_desk/pkg/metrics"
)

const (
	MenuWindow = 30 * time.Minute
	ChatWindow = time.Hour

	MenuKeyPrefix = "ussd_session:"
	ChatKeyPrefix = "ai_context:"
)

// Config configures a Store for one channel.
type Config struct {
	Channel Channel
	// Window is the inactivity limit. Zero selects the channel default.
	Window    time.Duration
	KeyPrefix string
	Logger    logger.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// Stats describes the store for diagnostics.
type Stats struct {
	Channel  Channel       `json:"channel"`
	Window   time.Duration `json:"window"`
	Active   int           `json:"active_sessions"`
	Capacity int           `json:"capacity"`
}

// Store is the best-effort facade over a Backend. Backend failures degrade to
// fresh sessions on load and are logged on save; they never fail a turn.
type Store struct {
	backend Backend
	cfg     Config
	log     logger.Logger
}

// NewStore wraps backend for cfg.Channel.
func NewStore(backend Backend, cfg Config) *Store {
	if cfg.Channel == "" {
		cfg.Channel = ChannelChat
	}
	if cfg.Window <= 0 {
		cfg.Window = ChatWindow
		if cfg.Channel == ChannelMenu {
			cfg.Window = MenuWindow
		}
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = ChatKeyPrefix
		if cfg.Channel == ChannelMenu {
			cfg.KeyPrefix = MenuKeyPrefix
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{
		backend: backend,
		cfg:     cfg,
		log:     cfg.Logger.WithFields(logger.ChannelField(string(cfg.Channel))),
	}
}

// Window is the inactivity limit of this store.
func (s *Store) Window() time.Duration { return s.cfg.Window }

// Now reads the store clock.
func (s *Store) Now() time.Time { return s.cfg.Now() }

func (s *Store) key(sessionID string) string {
	return s.cfg.KeyPrefix + sessionID
}

// Load returns the live context for sessionID, or a fresh one when none
// exists, it has expired, or the backend is unavailable.
func (s *Store) Load(ctx context.Context, sessionID string) *Context {
	c, err := s.Get(ctx, sessionID)
	switch {
	case err == nil:
		return c
	case errors.Is(err, ErrNotFound):
	default:
		s.log.Warn("Session store unavailable, starting fresh session",
			logger.SessionIDField(sessionID), logger.ErrorField(err))
		s.cfg.Metrics.SessionStoreFailed("load")
	}
	return NewContext(sessionID, s.cfg.Channel, s.cfg.Now())
}

// Get returns the live context for sessionID. Expired contexts are removed
// and reported as ErrNotFound.
func (s *Store) Get(ctx context.Context, sessionID string) (*Context, error) {
	if s.backend == nil {
		return nil, ErrNotFound
	}
	c, err := s.backend.Get(ctx, s.key(sessionID))
	if err != nil {
		return nil, err
	}
	if c.Expired(s.cfg.Window, s.cfg.Now()) {
		if err := s.backend.Delete(ctx, s.key(sessionID)); err != nil {
			s.log.Debug("Failed to remove expired session",
				logger.SessionIDField(sessionID), logger.ErrorField(err))
		}
		return nil, ErrNotFound
	}
	normalize(c, sessionID, s.cfg.Channel)
	return c, nil
}

func normalize(c *Context, sessionID string, ch Channel) {
	c.SessionID = sessionID
	if c.Channel == "" {
		c.Channel = ch
	}
	if c.Slots == nil {
		c.Slots = map[string]string{}
	}
	if c.Entities == nil {
		c.Entities = entities.Set{}
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
}

// Save touches c and writes it with the store window as expiry. Failures are
// logged and counted.
func (s *Store) Save(ctx context.Context, c *Context) {
	if s.backend == nil {
		return
	}
	c.Touch(s.cfg.Now())
	if err := s.backend.Set(ctx, s.key(c.SessionID), c, s.cfg.Window); err != nil {
		s.log.Warn("Failed to save session",
			logger.SessionIDField(c.SessionID), logger.ErrorField(err))
		s.cfg.Metrics.SessionStoreFailed("save")
	}
}

// Delete removes a session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if s.backend == nil {
		return nil
	}
	if err := s.backend.Delete(ctx, s.key(sessionID)); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// Stats reports the window and, for the memory backend, occupancy.
func (s *Store) Stats() Stats {
	st := Stats{Channel: s.cfg.Channel, Window: s.cfg.Window, Active: -1, Capacity: -1}
	if mb, ok := s.backend.(*MemoryBackend); ok {
		st.Active = mb.Len()
		st.Capacity = mb.Capacity()
	}
	return st
}
