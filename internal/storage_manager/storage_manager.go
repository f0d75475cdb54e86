package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BackendType selects the storage backend.
type BackendType string

const (
	BackendLocal BackendType = "local"
	BackendS3    BackendType = "s3"
	BackendGit   BackendType = "git"
)

// Config selects a backend and carries its settings.
type Config struct {
	Backend     BackendType
	LocalConfig *LocalConfig
	S3Config    *S3Config
	GitConfig   *GitProviderOptions
}

// LocalConfig roots the local backend.
type LocalConfig struct {
	BaseDir string
}

// S3Config addresses the S3 backend. A nil Client is built from the default
// AWS credential chain, with Region overriding the chain's region when set.
type S3Config struct {
	Bucket string
	Prefix string
	Region string
	Client *s3.Client
}

// StorageManager hands out namespace-scoped providers over one backend.
type StorageManager struct {
	backend  BackendType
	provider FileProvider
}

// New builds the configured backend.
func New(ctx context.Context, cfg Config) (*StorageManager, error) {
	var provider FileProvider

	switch cfg.Backend {
	case BackendLocal, "":
		if cfg.LocalConfig == nil || cfg.LocalConfig.BaseDir == "" {
			return nil, fmt.Errorf("base directory is required for local backend")
		}
		provider = NewLocalFileProvider(cfg.LocalConfig.BaseDir)

	case BackendS3:
		if cfg.S3Config == nil || cfg.S3Config.Bucket == "" {
			return nil, fmt.Errorf("bucket is required for s3 backend")
		}
		client := cfg.S3Config.Client
		if client == nil {
			var opts []func(*config.LoadOptions) error
			if cfg.S3Config.Region != "" {
				opts = append(opts, config.WithRegion(cfg.S3Config.Region))
			}
			awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
			if err != nil {
				return nil, fmt.Errorf("failed to load AWS config: %w", err)
			}
			client = s3.NewFromConfig(awsCfg)
		}
		provider = NewS3FileProvider(cfg.S3Config.Bucket, cfg.S3Config.Prefix, NewAWSS3Client(client))

	case BackendGit:
		if cfg.GitConfig == nil {
			return nil, fmt.Errorf("git config is required for git backend")
		}
		gp, err := NewGitFileProvider(ctx, *cfg.GitConfig)
		if err != nil {
			return nil, err
		}
		provider = gp

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Backend)
	}

	return &StorageManager{backend: cfg.Backend, provider: provider}, nil
}

// NewWithProvider wraps an existing provider, mostly for tests.
func NewWithProvider(provider FileProvider) *StorageManager {
	return &StorageManager{provider: provider}
}

// GetProvider returns a provider scoped to namespace, or the root for "".
func (m *StorageManager) GetProvider(namespace string) FileProvider {
	if namespace == "" {
		return m.provider
	}
	return NewPrefixedFileProvider(m.provider, namespace)
}

// Backend reports the configured backend.
func (m *StorageManager) Backend() BackendType {
	return m.backend
}
