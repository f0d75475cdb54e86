// Package server wires the ward-desk components and serves the menu and chat
// channels over HTTP and the chat connectors.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/lewisedginton/ward_desk/internal/assistant"
	appconfig "github.com/lewisedginton/ward_desk/internal/config"
	"github.com/lewisedginton/ward_desk/internal/connectors/slack"
	"github.com/lewisedginton/ward_desk/internal/connectors/telegram"
	"github.com/lewisedginton/ward_desk/internal/knowledge_base"
	"github.com/lewisedginton/ward_desk/internal/menu"
	"github.com/lewisedginton/ward_desk/internal/models"
	"github.com/lewisedginton/ward_desk/internal/persistence"
	"github.com/lewisedginton/ward_desk/internal/session_store"
	"github.com/lewisedginton/ward_desk/pkg/health"
	"github.com/lewisedginton/ward_desk/pkg/health/checkers"
	"github.com/lewisedginton/ward_desk/pkg/logger"
	"github.com/lewisedginton/ward_desk/pkg/metrics"
	"github.com/lewisedginton/ward_desk/pkg/utils"
)

const shutdownTimeout = 10 * time.Second

// Connector is a chat transport started alongside the HTTP server.
type Connector interface {
	Start(ctx context.Context) error
}

// Server owns every component of a running ward desk.
type Server struct {
	cfg     *appconfig.AppConfig
	log     logger.Logger
	metrics *metrics.Metrics
	health  *health.HealthChecker

	sessions  *sessionBackends
	pool      *pgxpool.Pool
	knowledge *knowledge_base.KnowledgeBase
	menu      *menu.Service
	assistant *assistant.Assistant
}

// New creates a Server with all components initialized. Connectors are built
// in Run.
func New(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		log:     log,
		metrics: metrics.NewMetrics(cfg.Metrics.EnableHTTPMetrics, cfg.Metrics.EnableConversationMetrics, log),
	}

	var err error
	s.sessions, err = newSessionBackends(cfg.Sessions, log, s.metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	var (
		recorder  menu.Recorder
		directory menu.Directory
	)
	if cfg.Database.Enabled {
		s.pool, err = OpenDatabase(ctx, cfg.Database.GetConnectionConfig(), log)
		if err != nil {
			s.Close()
			return nil, err
		}
		repo := persistence.NewRepository(s.pool, log)
		recorder, directory = repo, repo
	} else {
		log.Info("Database disabled, menu submissions are not recorded")
	}

	s.knowledge, err = NewKnowledgeBase(ctx, cfg.Knowledge, log)
	if err != nil {
		s.Close()
		return nil, err
	}

	generator, err := models.New(ctx, cfg.Generation.ModelConfig(), log)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create generation provider: %w", err)
	}

	s.menu = menu.NewService(menu.ServiceConfig{
		Store:     s.sessions.Menu,
		Directory: directory,
		Recorder:  recorder,
		Logger:    log,
		Metrics:   s.metrics,
	})
	s.assistant = assistant.New(assistant.Config{
		Store:             s.sessions.Chat,
		Knowledge:         s.knowledge,
		Generator:         generator,
		AnswerThreshold:   cfg.Knowledge.AnswerThreshold,
		GenerationTimeout: cfg.Generation.Timeout,
		HistoryTurns:      cfg.Generation.HistoryTurns,
		MaxTokens:         cfg.Generation.MaxTokens,
		Temperature:       cfg.Generation.Temperature,
		Logger:            log,
		Metrics:           s.metrics,
	})

	s.health = s.createHealthChecker()
	return s, nil
}

// Assistant is the chat orchestrator.
func (s *Server) Assistant() *assistant.Assistant { return s.assistant }

// Menu is the dial-menu service.
func (s *Server) Menu() *menu.Service { return s.menu }

// Knowledge is the loaded knowledge base.
func (s *Server) Knowledge() *knowledge_base.KnowledgeBase { return s.knowledge }

// Handler is the HTTP API.
func (s *Server) Handler() http.Handler {
	opts := RouterOptions{
		Logger:      s.log,
		Metrics:     s.metrics,
		CORSOrigins: s.cfg.Security.CORSAllowedOrigins,
		Timeout:     time.Duration(s.cfg.Security.RequestTimeout) * time.Second,
	}
	if s.cfg.Health.Enabled {
		opts.Health = s.health
		opts.LivenessPath = s.cfg.Health.LivenessPath
		opts.ReadinessPath = s.cfg.Health.ReadinessPath
	}
	return NewRouter(&API{
		Menu:         s.menu,
		Chat:         s.assistant,
		Knowledge:    s.knowledge,
		Logger:       s.log,
		MaxBodyBytes: s.cfg.Security.MaxRequestSize,
	}, opts)
}

func (s *Server) createHealthChecker() *health.HealthChecker {
	h := health.New(
		health.WithLogger(s.log),
		health.WithTimeout(s.cfg.Health.Timeout),
		health.WithFailureThreshold(s.cfg.Health.FailureThreshold),
	)
	h.AddLivenessCheck(health.NewCheckFunc("process", func(context.Context) error { return nil }))
	if s.sessions.Redis != nil {
		h.AddReadinessCheck(checkers.NewRedisChecker(s.sessions.Redis, "redis"))
	}
	if s.pool != nil {
		h.AddReadinessCheck(checkers.NewPostgresChecker(s.pool, "postgres"))
	}
	return h
}

// Connectors builds the chat connectors that are configured.
func (s *Server) Connectors() (map[string]Connector, error) {
	out := map[string]Connector{}
	if s.cfg.Telegram.Enabled() {
		c, err := telegram.NewConnector(telegram.Config{
			BotToken: s.cfg.Telegram.BotToken,
			Debug:    s.cfg.Telegram.Debug,
		}, s.assistant, s.log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Telegram connector: %w", err)
		}
		out["telegram"] = c
	} else {
		s.log.Info("Telegram connector disabled (missing TELEGRAM_BOT_TOKEN)")
	}
	if s.cfg.Slack.Enabled() {
		c, err := slack.NewConnector(slack.Config{
			BotToken: s.cfg.Slack.BotToken,
			AppToken: s.cfg.Slack.AppToken,
			Debug:    s.cfg.Slack.Debug,
		}, s.assistant, s.log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Slack connector: %w", err)
		}
		out["slack"] = c
	} else {
		s.log.Info("Slack connector disabled (missing SLACK_BOT_TOKEN or SLACK_APP_TOKEN)")
	}
	return out, nil
}

// Run serves HTTP and starts the configured connectors. It blocks until ctx
// is cancelled, a signal arrives or a listener fails.
//
//nolint:revive // cognitive-complexity: Server orchestration requires managing multiple listeners
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.sessions.Memory != nil {
		s.sessions.Memory.StartSweeper(ctx, s.cfg.Sessions.SweepInterval)
	}

	connectors, err := s.Connectors()
	if err != nil {
		return err
	}

	var errChans []<-chan error
	if s.cfg.Metrics.ExposeMetrics {
		errChans = append(errChans, s.metrics.Listen(s.cfg.Metrics.Port))
	}

	srv := &http.Server{
		Addr:           s.cfg.HTTP.Addr(),
		Handler:        s.Handler(),
		ReadTimeout:    s.cfg.HTTP.ReadTimeout(),
		WriteTimeout:   s.cfg.HTTP.WriteTimeout(),
		IdleTimeout:    s.cfg.HTTP.IdleTimeout(),
		MaxHeaderBytes: s.cfg.HTTP.MaxHeaderBytes,
	}
	s.log.Info("HTTP server listening", logger.StringField("addr", srv.Addr))
	errChans = append(errChans, utils.Serve(srv))

	var wg sync.WaitGroup
	for name, c := range connectors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.log.Info("Starting connector", logger.StringField("connector", name))
			if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Error("Connector stopped", logger.StringField("connector", name), logger.ErrorField(err))
			}
		}()
	}

	runErr := utils.WaitForShutdown(ctx, s.log, utils.MergeErrorChans(errChans...))
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout) //nolint:contextcheck // New context needed for shutdown
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil { //nolint:contextcheck // Using new context for graceful shutdown
		s.log.Error("HTTP server shutdown error", logger.ErrorField(err))
	}
	if err := s.metrics.Shutdown(shutdownCtx); err != nil { //nolint:contextcheck // Using new context for graceful shutdown
		s.log.Error("Metrics listener shutdown error", logger.ErrorField(err))
	}

	wg.Wait()
	s.log.Info("Server stopped")
	return runErr
}

// RunConnector runs a single named connector without the HTTP server.
func (s *Server) RunConnector(ctx context.Context, name string) error {
	connectors, err := s.Connectors()
	if err != nil {
		return err
	}
	c, ok := connectors[name]
	if !ok {
		return fmt.Errorf("connector %q is not configured", name)
	}
	if s.sessions.Memory != nil {
		s.sessions.Memory.StartSweeper(ctx, s.cfg.Sessions.SweepInterval)
	}
	s.log.Info("Starting connector", logger.StringField("connector", name))
	if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s connector: %w", name, err)
	}
	return nil
}

// SessionStats describes both session stores.
func (s *Server) SessionStats() []session_store.Stats {
	return []session_store.Stats{s.sessions.Menu.Stats(), s.sessions.Chat.Stats()}
}

// Close releases the database pool and Redis client.
func (s *Server) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.sessions != nil && s.sessions.Redis != nil {
		if err := s.sessions.Redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			s.log.Warn("Failed to close Redis client", logger.ErrorField(err))
		}
	}
}
