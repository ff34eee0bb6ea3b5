package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"chromamind-service/internal/app"
	"chromamind-service/internal/domain"
)

// APIHandler exposes the central submission API. This side is authoritative:
// every accepted submission is rescored against the shared catalog.
type APIHandler struct {
	service   *app.SubmissionService
	profiles  map[string]domain.ColorProfile
	pageLimit int
}

func NewAPIHandler(service *app.SubmissionService, profiles map[string]domain.ColorProfile, pageLimit int) *APIHandler {
	if pageLimit <= 0 {
		pageLimit = 200
	}
	return &APIHandler{service: service, profiles: profiles, pageLimit: pageLimit}
}

func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.health)
	mux.HandleFunc("GET /api/submissions", h.list)
	mux.HandleFunc("POST /api/quiz/submit", h.submit)
	mux.HandleFunc("DELETE /api/submissions/{id}", h.deleteOne)
	mux.HandleFunc("DELETE /api/submissions", h.deleteAll)
	mux.HandleFunc("GET /api/profiles", h.listProfiles)
}

type submitPayload struct {
	SessionID string `json:"sessionId"`
	User      struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	} `json:"user"`
	Answers []string `json:"answers"`
}

func (h *APIHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (h *APIHandler) submit(w http.ResponseWriter, r *http.Request) {
	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if len(payload.Answers) == 0 {
		writeError(w, http.StatusBadRequest, "answers required")
		return
	}

	sub, err := h.service.Submit(r.Context(), domain.SubmissionInput{
		SessionID: payload.SessionID,
		Name:      payload.User.Name,
		Age:       payload.User.Age,
		Answers:   payload.Answers,
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("submit: %v", err)
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, submitResult{Success: true, Result: sub})
}

func (h *APIHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := h.pageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < limit {
			limit = n
		}
	}
	subs, err := h.service.List(r.Context(), limit)
	if err != nil {
		log.Printf("list submissions: %v", err)
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	if subs == nil {
		subs = []domain.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *APIHandler) deleteOne(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.service.Delete(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, successBody{Success: true})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "id required")
	default:
		log.Printf("delete submission: %v", err)
		writeError(w, http.StatusInternalServerError, "db error")
	}
}

func (h *APIHandler) deleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAll(r.Context()); err != nil {
		log.Printf("delete all submissions: %v", err)
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: true})
}

func (h *APIHandler) listProfiles(w http.ResponseWriter, _ *http.Request) {
	out := make([]domain.ColorProfile, 0, len(h.profiles))
	for _, c := range domain.Categories {
		if p, ok := h.profiles[c]; ok {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}
