package health

import (
	"encoding/json"
	"net/http"

	"github.com/lewisedginton/ward_desk/pkg/logger"
)

// HealthResponse is the JSON body of the probe endpoints.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Checks  map[string]CheckStatus `json:"checks,omitempty"`
	Message string                 `json:"message,omitempty"`
}

// CheckStatus is one entry of HealthResponse.Checks.
type CheckStatus struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// LivenessHandler answers 200 when alive and 503 otherwise.
func (h *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := h.CheckLiveness(r.Context())
		h.write(w, status, err)
	}
}

// ReadinessHandler answers 200 when ready for traffic and 503 otherwise.
func (h *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := h.CheckReadiness(r.Context())
		h.write(w, status, err)
	}
}

func (h *HealthChecker) write(w http.ResponseWriter, status *HealthStatus, err error) {
	resp := HealthResponse{Status: "healthy", Checks: make(map[string]CheckStatus, len(status.Checks))}
	code := http.StatusOK
	if !status.Healthy {
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
		if err != nil {
			resp.Message = err.Error()
		}
	}

	for _, r := range status.Checks {
		cs := CheckStatus{Status: "ok", Latency: r.Latency.String()}
		if !r.Healthy {
			cs.Status = "error"
			cs.Error = r.Error
		}
		resp.Checks[r.Name] = cs
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("Failed to encode health response", logger.ErrorField(err))
	}
}
