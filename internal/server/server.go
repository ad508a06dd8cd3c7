// Package server exposes conversations and the streaming chat endpoint over
// HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/travel-concierge/internal/core/error"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/metrics"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

const Version = "0.1.0"

// ChatStore is the part of the chat store the API reads and edits.
type ChatStore interface {
	CreateConversation(ctx context.Context, title string) (*model.Conversation, error)
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	ListConversations(ctx context.Context) ([]model.Conversation, error)
	UpdateConversation(ctx context.Context, id, title string) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	GetMessages(ctx context.Context, conversationID string) ([]model.StoredMessage, error)
}

// Deps are the collaborators of the API. States is optional; when set,
// deleting a conversation also drops its checkpoint.
type Deps struct {
	Runner      graph.Runner
	Chats       ChatStore
	States      model.StateStore
	Config      model.ServerConfig
	LLMProvider string
}

// Server implements the REST and SSE handlers.
type Server struct {
	runner      graph.Runner
	chats       ChatStore
	states      model.StateStore
	cfg         model.ServerConfig
	llmProvider string
}

// NewHandler creates the HTTP handler for the API.
func NewHandler(deps Deps) http.Handler {
	s := &Server{
		runner:      deps.Runner,
		chats:       deps.Chats,
		states:      deps.States,
		cfg:         deps.Config,
		llmProvider: deps.LLMProvider,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observeRequests)
	r.Use(s.enableCORS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", s.listConversations)
			r.Post("/", s.createConversation)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getConversation)
				r.Patch("/", s.updateConversation)
				r.Delete("/", s.deleteConversation)
				r.Get("/messages", s.getMessages)
				r.Post("/bookings/{ref}/cancel", s.cancelBooking)
			})
		})

		r.Post("/chat", s.chat)
	})
	r.Handle("/metrics", metrics.Handler())

	return r
}

func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.allowOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowOrigin(origin string) bool {
	for _, allowed := range s.cfg.AllowOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimSpace(allowed), origin) {
			return true
		}
	}
	return false
}

// observeRequests records request counts and latency by route pattern.
func observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RequestCount.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(started).Seconds())
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":       "ok",
		"version":      Version,
		"llm_provider": s.llmProvider,
	})
}

type conversationRequest struct {
	Title string `json:"title"`
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.chats.ListConversations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if convs == nil {
		convs = []model.Conversation{}
	}
	writeJSON(w, http.StatusOK, convs)
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	conv, err := s.chats.CreateConversation(r.Context(), strings.TrimSpace(req.Title))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	id, err := conversationID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	conv, err := s.chats.GetConversation(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) updateConversation(w http.ResponseWriter, r *http.Request) {
	id, err := conversationID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req conversationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, r, errx.BadRequest("Title must not be empty"))
		return
	}
	conv, err := s.chats.UpdateConversation(r.Context(), id, title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) deleteConversation(w http.ResponseWriter, r *http.Request) {
	id, err := conversationID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.chats.DeleteConversation(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	if s.states != nil {
		if err := s.states.Delete(r.Context(), id); err != nil {
			logx.Warn().Err(err).Str("conversation_id", id).Msg("Failed to drop conversation state")
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	id, err := conversationID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msgs, err := s.chats.GetMessages(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []model.StoredMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) cancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := conversationID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bk, err := s.runner.CancelBooking(r.Context(), id, chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bk)
}

func conversationID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if err := model.ValidateConversationID(id); err != nil {
		return "", errx.New(err, http.StatusBadRequest, "Invalid conversation ID format")
	}
	return id, nil
}

// decodeBody accepts an empty body as the zero value.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return errx.New(err, http.StatusBadRequest, "Invalid request body")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errx.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
	} else {
		logx.Debug().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg("Request rejected")
	}
	writeJSON(w, status, map[string]string{"detail": errx.MessageOf(err)})
}
