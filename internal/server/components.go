package server

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/lewisedginton/ward_desk/internal/config"
	"github.com/lewisedginton/ward_desk/internal/knowledge_base"
	"github.com/lewisedginton/ward_desk/internal/persistence"
	"github.com/lewisedginton/ward_desk/internal/session_store"
	"github.com/lewisedginton/ward_desk/internal/storage_manager"
	"github.com/lewisedginton/ward_desk/pkg/logger"
	"github.com/lewisedginton/ward_desk/pkg/metrics"
)

// NewStorageManager builds the file provider that holds the knowledge corpus.
func NewStorageManager(ctx context.Context, cfg appconfig.KnowledgeConfig, log logger.Logger) (*storage_manager.StorageManager, error) {
	switch cfg.Backend {
	case "local", "":
		log.Info("Using local knowledge storage", logger.StringField("directory", cfg.LocalDir))

		// Ensure directory exists (0750 needed for directory traversal)
		if err := os.MkdirAll(cfg.LocalDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		return storage_manager.New(ctx, storage_manager.Config{
			Backend:     storage_manager.BackendLocal,
			LocalConfig: &storage_manager.LocalConfig{BaseDir: cfg.LocalDir},
		})

	case "s3":
		log.Info("Using S3 knowledge storage",
			logger.StringField("bucket", cfg.S3Bucket),
			logger.StringField("prefix", cfg.S3Prefix),
			logger.StringField("region", cfg.S3Region))
		return storage_manager.New(ctx, storage_manager.Config{
			Backend: storage_manager.BackendS3,
			S3Config: &storage_manager.S3Config{
				Bucket: cfg.S3Bucket,
				Prefix: cfg.S3Prefix,
				Region: cfg.S3Region,
			},
		})

	case "git":
		log.Info("Using git knowledge storage",
			logger.StringField("path", cfg.GitPath),
			logger.StringField("branch", cfg.GitBranch))
		return storage_manager.New(ctx, storage_manager.Config{
			Backend: storage_manager.BackendGit,
			GitConfig: &storage_manager.GitProviderOptions{
				Path:          cfg.GitPath,
				RemoteURL:     cfg.GitRemoteURL,
				Branch:        cfg.GitBranch,
				AuthorName:    cfg.GitAuthorName,
				AuthorEmail:   cfg.GitAuthorEmail,
				InitIfMissing: cfg.GitRemoteURL == "",
				PushOnWrite:   cfg.GitPush,
			},
		})

	default:
		return nil, fmt.Errorf("unsupported knowledge backend: %s (must be 'local', 's3' or 'git')", cfg.Backend)
	}
}

// NewKnowledgeBase loads the corpus through the configured storage backend.
func NewKnowledgeBase(ctx context.Context, cfg appconfig.KnowledgeConfig, log logger.Logger) (*knowledge_base.KnowledgeBase, error) {
	sm, err := NewStorageManager(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	loadCtx, cancel := context.WithTimeout(ctx, cfg.LoadTimeout)
	defer cancel()
	return knowledge_base.Load(loadCtx, knowledge_base.Config{
		Provider:      sm.GetProvider(""),
		Path:          cfg.Path,
		TopK:          cfg.TopK,
		MinSimilarity: cfg.MinSimilarity,
		Logger:        log,
	}), nil
}

// sessionBackends builds the menu and chat stores over one shared backend.
type sessionBackends struct {
	Menu   *session_store.Store
	Chat   *session_store.Store
	Memory *session_store.MemoryBackend
	Redis  redis.UniversalClient
}

func newSessionBackends(cfg appconfig.SessionsConfig, log logger.Logger, m *metrics.Metrics) (*sessionBackends, error) {
	out := &sessionBackends{}
	var backend session_store.Backend

	switch cfg.Backend {
	case appconfig.SessionBackendRedis:
		client, err := session_store.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		out.Redis = client
		backend = session_store.NewRedisBackend(client)
		log.Info("Using Redis session store")
	default:
		mem, err := session_store.NewMemoryBackend(cfg.MemoryCapacity, log)
		if err != nil {
			return nil, err
		}
		out.Memory = mem
		backend = mem
		log.Info("Using in-memory session store", logger.IntField("capacity", cfg.MemoryCapacity))
	}

	out.Menu = session_store.NewStore(backend, session_store.Config{
		Channel: session_store.ChannelMenu,
		Window:  cfg.MenuWindow,
		Logger:  log,
		Metrics: m,
	})
	out.Chat = session_store.NewStore(backend, session_store.Config{
		Channel: session_store.ChannelChat,
		Window:  cfg.ChatWindow,
		Logger:  log,
		Metrics: m,
	})
	return out, nil
}

// OpenDatabase connects to Postgres and applies pending migrations.
func OpenDatabase(ctx context.Context, url string, log logger.Logger) (*pgxpool.Pool, error) {
	pool, err := persistence.Connect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := persistence.NewMigrationManager(pool, log).RunMigrations(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return pool, nil
}
