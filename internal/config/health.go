package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// HealthConfig holds health check configuration. Probes are served by the API
// router.
type HealthConfig struct {
	Enabled          bool          `env:"HEALTH_ENABLED" yaml:"enabled" default:"true"`
	LivenessPath     string        `env:"HEALTH_LIVENESS_PATH" yaml:"liveness_path" default:"/health/live"`
	ReadinessPath    string        `env:"HEALTH_READINESS_PATH" yaml:"readiness_path" default:"/health/ready"`
	Timeout          time.Duration `env:"HEALTH_TIMEOUT" yaml:"timeout" default:"10s"`
	FailureThreshold int           `env:"HEALTH_FAILURE_THRESHOLD" yaml:"failure_threshold" default:"3"`
}

func (h HealthConfig) Validate() error {
	if !h.Enabled {
		return nil
	}
	var result error
	for _, p := range []string{h.LivenessPath, h.ReadinessPath} {
		if !strings.HasPrefix(p, "/") {
			result = multierror.Append(result, fmt.Errorf("health path must start with '/', got %q", p))
		}
	}
	if h.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("health timeout must be greater than 0"))
	}
	if h.FailureThreshold < 1 {
		result = multierror.Append(result, fmt.Errorf("health failure_threshold must be at least 1"))
	}
	return result
}
