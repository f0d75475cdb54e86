package checkers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisChecker(t *testing.T) {
	t.Run("names", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
		defer client.Close()

		assert.Equal(t, "redis-sessions", NewRedisChecker(client, "redis-sessions").Name())
		assert.Equal(t, "redis", NewRedisChecker(client, "").Name())
	})

	t.Run("fails when redis is unreachable", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{
			Addr:        "localhost:1",
			DialTimeout: 100 * time.Millisecond,
			MaxRetries:  -1,
		})
		defer client.Close()

		err := NewRedisChecker(client, "test").Check(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis ping failed")
	})
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestPostgresChecker(t *testing.T) {
	tests := []struct {
		name     string
		checker  string
		err      error
		wantName string
		wantErr  bool
	}{
		{"healthy", "", nil, "postgres", false},
		{"named", "submissions-db", nil, "submissions-db", false},
		{"ping fails", "", errors.New("connection refused"), "postgres", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewPostgresChecker(fakePinger{err: tt.err}, tt.checker)
			assert.Equal(t, tt.wantName, c.Name())

			err := c.Check(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "postgres ping failed")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestHTTPChecker(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"no content", http.StatusNoContent, false},
		{"not found", http.StatusNotFound, true},
		{"unavailable", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var method string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				method = r.Method
				w.WriteHeader(tt.code)
			}))
			defer server.Close()

			err := NewHTTPChecker(server.URL, "ready").Check(context.Background())
			assert.Equal(t, http.MethodGet, method)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("uses URL as name when name is empty", func(t *testing.T) {
		assert.Equal(t, "http://example.invalid/health", NewHTTPChecker("http://example.invalid/health", "").Name())
	})

	t.Run("fails when unreachable", func(t *testing.T) {
		c := NewHTTPCheckerWithClient("http://localhost:1", "down", &http.Client{Timeout: 200 * time.Millisecond})
		assert.Error(t, c.Check(context.Background()))
	})
}
