package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"chromamind-service/internal/app"
	"chromamind-service/internal/domain"
	"github.com/google/uuid"
)

// AgentHandler exposes the same API surface as the central service, backed by
// the offline-first pipeline: submissions are scored and recorded locally
// before any network I/O, so the quiz flow completes even when the central
// service is down.
type AgentHandler struct {
	reconciler *app.Reconciler
	catalog    app.CatalogRepository
	now        func() time.Time
}

func NewAgentHandler(reconciler *app.Reconciler, catalog app.CatalogRepository) *AgentHandler {
	return &AgentHandler{reconciler: reconciler, catalog: catalog, now: time.Now}
}

// NewAgentHandlerWithClock is test-only for deterministic timestamps.
func NewAgentHandlerWithClock(reconciler *app.Reconciler, catalog app.CatalogRepository, now func() time.Time) *AgentHandler {
	return &AgentHandler{reconciler: reconciler, catalog: catalog, now: now}
}

func (h *AgentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.health)
	mux.HandleFunc("GET /api/submissions", h.list)
	mux.HandleFunc("POST /api/quiz/submit", h.submit)
	mux.HandleFunc("DELETE /api/submissions/{id}", h.deleteOne)
	mux.HandleFunc("DELETE /api/submissions", h.deleteAll)
	mux.HandleFunc("POST /api/sync", h.kickSync)
}

func (h *AgentHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// submit scores the quiz locally and records it write-through. The response
// carries the locally computed result; the central copy (which may rescore)
// replaces it in the history once the sync lands.
func (h *AgentHandler) submit(w http.ResponseWriter, r *http.Request) {
	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if len(payload.Answers) == 0 {
		writeError(w, http.StatusBadRequest, "answers required")
		return
	}
	if payload.User.Age < 0 {
		writeError(w, http.StatusBadRequest, "age must be non-negative")
		return
	}

	catalog, err := h.catalog.GetCatalog(r.Context())
	if err != nil {
		log.Printf("load catalog: %v", err)
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}

	raw := app.NormalizeAnswers(payload.Answers)
	breakdown, assigned := app.Score(raw, catalog)

	// A client-supplied sessionId makes retried submits upsert instead of
	// duplicating, same as the central handler.
	sessionID := payload.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	sub := domain.Submission{
		SessionID:      sessionID,
		Name:           payload.User.Name,
		Age:            payload.User.Age,
		Timestamp:      h.now().UTC(),
		RawAnswers:     raw,
		ScoreBreakdown: breakdown,
		AssignedColor:  assigned,
	}
	h.reconciler.RecordNew(r.Context(), sub)
	writeJSON(w, http.StatusOK, submitResult{Success: true, Result: sub})
}

func (h *AgentHandler) list(w http.ResponseWriter, r *http.Request) {
	history := h.reconciler.MergedView(r.Context())
	w.Header().Set("X-Server-Count", strconv.Itoa(history.ServerCount))
	w.Header().Set("X-Local-Count", strconv.Itoa(history.LocalCount))
	writeJSON(w, http.StatusOK, history.Items)
}

func (h *AgentHandler) deleteOne(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}
	// Best-effort everywhere; the record is gone from the merged view as of
	// now, so the user's intent is honored regardless of central reachability.
	h.reconciler.DeleteOne(r.Context(), id)
	writeJSON(w, http.StatusOK, successBody{Success: true})
}

func (h *AgentHandler) deleteAll(w http.ResponseWriter, r *http.Request) {
	h.reconciler.DeleteAll(r.Context())
	writeJSON(w, http.StatusOK, successBody{Success: true})
}

// kickSync is the regained-connectivity/focus signal from the UI.
func (h *AgentHandler) kickSync(w http.ResponseWriter, _ *http.Request) {
	h.reconciler.Kick()
	writeJSON(w, http.StatusAccepted, successBody{Success: true})
}
