package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ethpandaops/netops/pkg/index"
	"github.com/ethpandaops/netops/pkg/observability"
	"github.com/ethpandaops/netops/pkg/store"
	"github.com/ethpandaops/netops/pkg/types"
)

const defaultSearchLimit = 3

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// SearchResponse is returned by the runbook search endpoint.
type SearchResponse struct {
	Query   string        `json:"query"`
	Limit   int           `json:"limit"`
	Matches []index.Match `json:"matches"`
}

// RunbooksResponse is returned by the runbook listing endpoint.
type RunbooksResponse struct {
	Categories []string        `json:"categories"`
	Runbooks   []types.Runbook `json:"runbooks"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:     msg,
		RequestID: observability.GetRequestID(r.Context()),
	})
}

func (s *service) mountHealthRoutes(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	})

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "alive"})
	})

	// Ready once the runbook index answers queries.
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := s.searcher.Query("", 1); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "not ready"})
			return
		}

		writeJSON(w, http.StatusOK, HealthResponse{Status: "ready"})
	})
}

func (s *service) handleListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.tickets.Tickets(r.Context())
	if err != nil {
		observability.LoggerFromContext(r.Context(), s.log).WithError(err).Error("Failed to list tickets")
		writeError(w, r, http.StatusInternalServerError, "failed to list tickets")

		return
	}

	writeJSON(w, http.StatusOK, tickets)
}

func (s *service) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	incidentID := chi.URLParam(r, "incidentID")

	ticket, err := s.tickets.Ticket(r.Context(), incidentID)

	switch {
	case errors.Is(err, store.ErrTicketNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case err != nil:
		observability.LoggerFromContext(r.Context(), s.log).WithError(err).Error("Failed to read ticket")
		writeError(w, r, http.StatusInternalServerError, "failed to read ticket")
	default:
		writeJSON(w, http.StatusOK, ticket)
	}
}

func (s *service) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, r, http.StatusBadRequest, "query parameter q is required")
		return
	}

	limit := defaultSearchLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "limit must be an integer")
			return
		}

		limit = n
	}

	matches, err := s.searcher.Query(query, limit)

	switch {
	case errors.Is(err, index.ErrInvalidTopK):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, index.ErrIndexNotBuilt):
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, SearchResponse{Query: query, Limit: limit, Matches: matches})
	}
}

func (s *service) handleListRunbooks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RunbooksResponse{
		Categories: s.runbooks.Categories(),
		Runbooks:   s.runbooks.All(),
	})
}

func (s *service) handleGetRunbook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runbookID")

	rb := s.runbooks.Get(id)
	if rb == nil {
		writeError(w, r, http.StatusNotFound, "runbook "+id+" not found")
		return
	}

	writeJSON(w, http.StatusOK, rb)
}
