package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lewisedginton/ward_desk/internal/assistant"
	"github.com/lewisedginton/ward_desk/internal/knowledge_base"
	"github.com/lewisedginton/ward_desk/internal/menu"
	"github.com/lewisedginton/ward_desk/internal/session_store"
	"github.com/lewisedginton/ward_desk/pkg/logger"
)

// MenuService handles dial-menu callbacks.
type MenuService interface {
	Handle(ctx context.Context, t menu.Turn) (menu.Response, error)
}

// ChatService handles free-text turns and session inspection.
type ChatService interface {
	Handle(ctx context.Context, t assistant.Turn) (assistant.Reply, error)
	Inspect(ctx context.Context, userID string) (assistant.ContextView, error)
	Reset(ctx context.Context, userID string) error
}

// KnowledgeService searches and extends the knowledge corpus.
type KnowledgeService interface {
	Search(query string) []knowledge_base.Result
	Learn(ctx context.Context, e knowledge_base.Entry) error
}

const defaultMaxBodyBytes = 64 << 10

// API holds the HTTP handlers of both channels.
type API struct {
	Menu      MenuService
	Chat      ChatService
	Knowledge KnowledgeService
	Logger    logger.Logger

	MaxBodyBytes int64
}

type errorResponse struct {
	Error string `json:"error"`
}

type searchResponse struct {
	Query   string                  `json:"query"`
	Results []knowledge_base.Result `json:"results"`
}

func (a *API) log(r *http.Request) logger.Logger {
	base := a.Logger
	if base == nil {
		base = logger.NewNopLogger()
	}
	return logger.GetLoggerFromContext(r.Context(), base)
}

func (a *API) limit(w http.ResponseWriter, r *http.Request) {
	n := a.MaxBodyBytes
	if n <= 0 {
		n = defaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, n)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// handleUSSD accepts the gateway callback as a form or as JSON and answers in
// plain text with the CON/END prefix.
func (a *API) handleUSSD(w http.ResponseWriter, r *http.Request) {
	a.limit(w, r)
	var turn menu.Turn
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&turn); err != nil {
			http.Error(w, "END Invalid request", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "END Invalid request", http.StatusBadRequest)
			return
		}
		turn = menu.Turn{
			SessionID:   r.PostForm.Get("sessionId"),
			ServiceCode: r.PostForm.Get("serviceCode"),
			PhoneNumber: r.PostForm.Get("phoneNumber"),
			Text:        r.PostForm.Get("text"),
		}
	}

	resp, err := a.Menu.Handle(r.Context(), turn)
	if errors.Is(err, menu.ErrMalformedTurn) {
		http.Error(w, "END "+err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		a.log(r).Error("Menu turn failed", logger.ErrorField(err))
		http.Error(w, "END Service temporarily unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(resp.Wire()))
}

func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	a.limit(w, r)
	var turn assistant.Turn
	if err := json.NewDecoder(r.Body).Decode(&turn); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reply, err := a.Chat.Handle(r.Context(), turn)
	if errors.Is(err, assistant.ErrMalformedTurn) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		a.log(r).Error("Chat turn failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "chat turn failed")
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (a *API) handleGetContext(w http.ResponseWriter, r *http.Request) {
	view, err := a.Chat.Inspect(r.Context(), chi.URLParam(r, "sessionID"))
	switch {
	case errors.Is(err, session_store.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case err != nil:
		a.log(r).Error("Context lookup failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "context lookup failed")
	default:
		writeJSON(w, http.StatusOK, view)
	}
}

func (a *API) handleDeleteContext(w http.ResponseWriter, r *http.Request) {
	if err := a.Chat.Reset(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		a.log(r).Error("Context reset failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "context reset failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	results := a.Knowledge.Search(q)
	if results == nil {
		results = []knowledge_base.Result{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: q, Results: results})
}

func (a *API) handleLearn(w http.ResponseWriter, r *http.Request) {
	a.limit(w, r)
	var entry knowledge_base.Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := a.Knowledge.Learn(r.Context(), entry)
	switch {
	case errors.Is(err, knowledge_base.ErrInvalidEntry):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, knowledge_base.ErrDuplicateQuestion):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		a.log(r).Error("Learning entry failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to store entry")
	default:
		writeJSON(w, http.StatusCreated, entry)
	}
}
