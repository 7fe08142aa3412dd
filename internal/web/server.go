// Package web exposes the session API over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sezatoare/sezatoare/internal/catalog"
	"github.com/sezatoare/sezatoare/internal/orchestrator"
	"github.com/sezatoare/sezatoare/internal/session"
	"github.com/sezatoare/sezatoare/internal/stream"
	"github.com/sezatoare/sezatoare/internal/tool"
)

// Server bundles the HTTP surface over the orchestrator and its stores.
type Server struct {
	store     *session.Store
	registry  *catalog.Registry
	knowledge *catalog.KnowledgeCatalog
	orch      *orchestrator.Orchestrator

	http *http.Server
}

func NewServer(addr string, store *session.Store, registry *catalog.Registry,
	knowledge *catalog.KnowledgeCatalog, orch *orchestrator.Orchestrator) *Server {
	s := &Server{store: store, registry: registry, knowledge: knowledge, orch: orch}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Route("/chats", func(r chi.Router) {
		r.Get("/", s.listChats)
		r.Post("/", s.createChat)
		r.Post("/cleanup", s.cleanup)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getChat)
			r.Post("/settings", s.updateSettings)
			r.Post("/supervisor", s.toggleSupervisor)
			r.Post("/message", s.postMessage)
			r.Post("/message/stream", s.postMessageStream)
		})
	})
	r.Get("/agents", s.listAgents)
	r.Get("/tools", s.listTools)
	r.Get("/knowledgebase", s.listKnowledge)

	s.http = &http.Server{Addr: addr, Handler: r}
	return s
}

// ListenAndServe blocks until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	log.Printf("[Web] Listening on %s", s.http.Addr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Web] Response encode failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func (s *Server) listChats(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) createChat(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Create()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         sess.ID,
		"created_at": sess.CreatedAt,
	})
}

func (s *Server) getChat(w http.ResponseWriter, r *http.Request) {
	sess, ok, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type settingsRequest struct {
	AgentSequence  []session.PlanEntry `json:"agent_sequence"`
	SupervisorMode bool                `json:"supervisor_mode"`
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings body: "+err.Error())
		return
	}
	sess, err := s.store.Update(chi.URLParam(r, "id"), func(sess *session.Session) error {
		sess.AgentSequence = req.AgentSequence
		sess.SupervisorMode = req.SupervisorMode
		return nil
	})
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) toggleSupervisor(w http.ResponseWriter, r *http.Request) {
	enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "enabled must be true or false")
		return
	}
	sess, err := s.store.Update(chi.URLParam(r, "id"), func(sess *session.Session) error {
		sess.SupervisorMode = enabled
		return nil
	})
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":              sess.ID,
		"supervisor_mode": sess.SupervisorMode,
	})
}

type messageRequest struct {
	Text string `json:"text"`
}

// postMessage runs a full turn and returns the collected events once the
// turn is done.
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid message body: "+err.Error())
		return
	}
	var collector stream.Collector
	err := s.orch.RunTurn(r.Context(), chi.URLParam(r, "id"), req.Text, &collector)
	if err != nil && len(collector.Events()) == 0 {
		writeError(w, turnErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": collector.Events()})
}

// postMessageStream runs a turn with live NDJSON output. Once the first
// frame is written the HTTP status is fixed; later failures surface as
// system frames on the stream itself.
func (s *Server) postMessageStream(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid message body: "+err.Error())
		return
	}
	sw, err := stream.NewWriter(r.Context(), w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	err = s.orch.RunTurn(r.Context(), chi.URLParam(r, "id"), req.Text, sw)
	if err != nil && !sw.Started() {
		writeError(w, turnErrorStatus(err), err.Error())
	}
}

func turnErrorStatus(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrEmptyPrompt):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agents":   s.registry.List(),
		"metadata": s.registry.Metadata(),
	})
}

func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": tool.Definitions})
}

func (s *Server) listKnowledge(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Key         string `json:"key"`
		Label       string `json:"label"`
		Description string `json:"description,omitempty"`
	}
	out := []entry{}
	for _, key := range s.knowledge.Keys() {
		e, _ := s.knowledge.Get(key)
		out = append(out, entry{Key: key, Label: e.Label, Description: e.Description})
	}
	writeJSON(w, http.StatusOK, map[string]any{"knowledgebase": out})
}

func (s *Server) cleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := s.store.Cleanup()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if removed == nil {
		removed = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}
