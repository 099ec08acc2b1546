package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/graphgen/internal/apperr"
	"github.com/starford/graphgen/internal/directives"
	"github.com/starford/graphgen/internal/flowservice"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *flowservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *flowservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Root handles GET /.
//
//	@Summary		Service status
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/ [get]
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok", Service: "graphgen"})
}

// Generate handles POST /generate.
//
//	@Summary		Generate or update a diagram from a prompt
//	@Tags			graph
//	@Accept			json
//	@Produce		json
//	@Param			body	body		GenerateRequest	true	"Prompt, mode and optional current graph"
//	@Success		200		{object}	graph.Graph
//	@Failure		400		{object}	errResponse
//	@Failure		429		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Router			/generate [post]
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	res, err := h.svc.Generate(r.Context(), req.toResolver())
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidRequest):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		case errors.Is(err, apperr.ErrQuotaExceeded):
			writeJSON(w, http.StatusTooManyRequests, errorBody("generation quota exceeded, try again later"))
		default:
			slog.Error("generate failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusOK, res.Graph)
}

// Modes handles GET /modes.
//
//	@Summary		List generation modes
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	ModesResponse
//	@Router			/modes [get]
func (h *Handler) Modes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ModesResponse{Modes: h.svc.Modes(), Default: directives.DefaultMode})
}

// History handles GET /history.
//
//	@Summary		Recent generation outcomes
//	@Tags			graph
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum entries"
//	@Success		200		{object}	HistoryResponse
//	@Failure		404		{object}	errResponse
//	@Router			/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.Recent(r.Context(), limit)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("history is disabled"))
		} else {
			slog.Error("list history failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries})
}
