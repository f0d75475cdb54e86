package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// KnowledgeConfig holds the knowledge corpus location and retrieval tuning.
type KnowledgeConfig struct {
	Backend  string `env:"KNOWLEDGE_BACKEND" yaml:"backend" default:"local"` // "local", "s3", or "git"
	Path     string `env:"KNOWLEDGE_PATH" yaml:"path" default:"knowledge_base.json"`
	LocalDir string `env:"KNOWLEDGE_LOCAL_DIR" yaml:"local_dir" default:"./data"`

	S3Bucket string `env:"KNOWLEDGE_S3_BUCKET" yaml:"s3_bucket"`
	S3Prefix string `env:"KNOWLEDGE_S3_PREFIX" yaml:"s3_prefix"`
	S3Region string `env:"KNOWLEDGE_S3_REGION" yaml:"s3_region"`

	// Git backend configuration
	GitPath        string `env:"KNOWLEDGE_GIT_PATH" yaml:"git_path"`
	GitRemoteURL   string `env:"KNOWLEDGE_GIT_REMOTE_URL" yaml:"git_remote_url"`
	GitBranch      string `env:"KNOWLEDGE_GIT_BRANCH" yaml:"git_branch" default:"main"`
	GitAuthorName  string `env:"KNOWLEDGE_GIT_AUTHOR_NAME" yaml:"git_author_name" default:"ward-desk"`
	GitAuthorEmail string `env:"KNOWLEDGE_GIT_AUTHOR_EMAIL" yaml:"git_author_email" default:"ward-desk@localhost"`
	GitPush        bool   `env:"KNOWLEDGE_GIT_PUSH" yaml:"git_push"`

	TopK            int           `env:"KNOWLEDGE_TOP_K" yaml:"top_k" default:"3"`
	MinSimilarity   float64       `env:"KNOWLEDGE_MIN_SIMILARITY" yaml:"min_similarity" default:"0.1"`
	AnswerThreshold float64       `env:"KNOWLEDGE_ANSWER_THRESHOLD" yaml:"answer_threshold" default:"0.5"`
	LoadTimeout     time.Duration `env:"KNOWLEDGE_LOAD_TIMEOUT" yaml:"load_timeout" default:"30s"`
}

func (k KnowledgeConfig) Validate() error {
	var result error
	switch k.Backend {
	case "local":
		if k.LocalDir == "" {
			result = multierror.Append(result, fmt.Errorf("knowledge local_dir is required for the local backend"))
		}
	case "s3":
		if k.S3Bucket == "" {
			result = multierror.Append(result, fmt.Errorf("knowledge s3_bucket is required for the s3 backend"))
		}
	case "git":
		if k.GitPath == "" {
			result = multierror.Append(result, fmt.Errorf("knowledge git_path is required for the git backend"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("knowledge backend must be local, s3 or git, got %q", k.Backend))
	}
	if k.Path == "" {
		result = multierror.Append(result, fmt.Errorf("knowledge path is required"))
	}
	if k.TopK < 1 {
		result = multierror.Append(result, fmt.Errorf("knowledge top_k must be at least 1"))
	}
	if k.MinSimilarity < 0 || k.MinSimilarity > 1 {
		result = multierror.Append(result, fmt.Errorf("knowledge min_similarity must be within [0, 1]"))
	}
	if k.AnswerThreshold < 0 || k.AnswerThreshold > 1 {
		result = multierror.Append(result, fmt.Errorf("knowledge answer_threshold must be within [0, 1]"))
	}
	return result
}
