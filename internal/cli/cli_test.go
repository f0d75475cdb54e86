package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/ward_desk/internal/assistant"
	"github.com/lewisedginton/ward_desk/internal/knowledge_base"
	"github.com/lewisedginton/ward_desk/internal/menu"
	"github.com/lewisedginton/ward_desk/internal/session_store"
)

func newMenuService(t *testing.T) *menu.Service {
	t.Helper()
	backend, err := session_store.NewMemoryBackend(10, nil)
	require.NoError(t, err)
	return menu.NewService(menu.ServiceConfig{
		Store: session_store.NewStore(backend, session_store.Config{Channel: session_store.ChannelMenu}),
	})
}

func TestRunMenu(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "exit from root",
			input: "0\n",
			want:  []string{"Welcome to VOO Ward Services", "Thank you for using VOO Ward Services!"},
		},
		{
			name:  "issue report",
			input: "2\n1\nBurst pipe on Main Road\n",
			want:  []string{"Select Issue Category:", "Describe the issue", "Issue Reported!", "Ticket: ISS", "-sim1", "Category: Water"},
		},
		{
			name:  "input runs out",
			input: "1\n",
			want:  []string{"Voter Registration"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := runMenu(context.Background(), newMenuService(t), strings.NewReader(tt.input), &out,
				menu.Turn{SessionID: "sim1-" + tt.name, PhoneNumber: "+27820000000"})
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
		})
	}
}

func TestDialSessionIDsGiveDistinctTickets(t *testing.T) {
	day := time.Date(2024, 11, 22, 0, 0, 0, 0, time.UTC)
	codes := map[string]bool{}
	for range 20 {
		code := menu.TicketCode(newDialSessionID(), day)
		assert.NotContains(t, code, "dial")
		codes[code] = true
	}
	assert.Greater(t, len(codes), 1)
}

func TestRunMenuRejectsMissingSession(t *testing.T) {
	err := runMenu(context.Background(), newMenuService(t), strings.NewReader(""), &bytes.Buffer{}, menu.Turn{})
	assert.ErrorIs(t, err, menu.ErrMalformedTurn)
}

func TestRunChat(t *testing.T) {
	backend, err := session_store.NewMemoryBackend(10, nil)
	require.NoError(t, err)
	store := session_store.NewStore(backend, session_store.Config{Channel: session_store.ChannelChat})
	a := assistant.New(assistant.Config{
		Store:     store,
		Knowledge: knowledge_base.New(knowledge_base.DefaultCorpus(), knowledge_base.Config{}),
	})

	input := "hello\n\nI want to report a broken water pipe\n/reset\n/quit\nnever read\n"
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), a, strings.NewReader(input), &out, assistant.Turn{UserID: "cli-test"}))

	text := out.String()
	assert.Contains(t, text, "Welcome to VOO Ward services")
	assert.Contains(t, text, "[greeting")
	assert.Contains(t, text, "[issue_reporting")
	assert.Contains(t, text, "next: collect_location, create_issue_report")
	assert.Contains(t, text, "Session cleared.")
	assert.NotContains(t, text, "never read")

	_, err = store.Get(context.Background(), "cli-test")
	assert.ErrorIs(t, err, session_store.ErrNotFound)
}

func TestConfigValidateCommand(t *testing.T) {
	for _, k := range []string{"LOG_LEVEL", "LOG_FORMAT", "SESSION_BACKEND", "LLM_PROVIDER", "KNOWLEDGE_BACKEND", "CONFIG_FILE"} {
		t.Setenv(k, "")
	}

	run := func(args ...string) (string, error) {
		app := NewApp()
		var out, errOut bytes.Buffer
		app.Writer = &out
		app.ErrWriter = &errOut
		err := app.Run(append([]string{"ward-desk"}, args...))
		return out.String(), err
	}

	out, err := run("config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sessions:\n  backend: redis\n"), 0o600))
	_, err = run("--config-file", path, "config", "validate")
	assert.ErrorContains(t, err, "redis_url is required")
}

func TestHealthcheckCommand(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ready", http.StatusOK, false},
		{"not ready", http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			app := NewApp()
			var out bytes.Buffer
			app.Writer = &out
			app.ErrWriter = &bytes.Buffer{}
			err := app.Run([]string{"ward-desk", "healthcheck", "--url", srv.URL})
			if tt.wantErr {
				assert.ErrorContains(t, err, "unhealthy status code")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok\n", out.String())
		})
	}
}
