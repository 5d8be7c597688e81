package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/rally/internal/domain/model"
)

// idempotencyHeader lets clients retry a submission safely.
const idempotencyHeader = "Idempotency-Key"

// RallyDependencies defines rally and results entry operations.
type RallyDependencies interface {
	CreateRally(ctx context.Context, r model.Rally) (model.Rally, error)
	Rallies(ctx context.Context) ([]model.Rally, error)
	SubmitResults(ctx context.Context, rallyID string, rows []model.ResultInput, idempotencyKey string) ([]model.Result, error)
	ImportResults(ctx context.Context, rallyID string, body io.Reader, defaultClass, idempotencyKey string) ([]model.Result, error)
	ApproveRally(ctx context.Context, rallyID string) (int, error)
}

// RalliesHandler handles rally and results requests.
type RalliesHandler struct {
	responder
	deps RallyDependencies
}

type createRallyRequest struct {
	Name           string  `json:"name"`
	HeldOn         string  `json:"held_on"`
	ChampionshipID *string `json:"championship_id"`
}

type submitResultsRequest struct {
	Results []model.ResultInput `json:"results"`
}

type submitResultsResponse struct {
	Count   int            `json:"count"`
	Results []model.Result `json:"results"`
}

type approveResponse struct {
	Approved int `json:"approved"`
}

// HandleList handles GET /rallies.
func (h *RalliesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_rallies"
	rallies, err := h.deps.Rallies(r.Context())
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(rallies))
}

// HandleCreate handles POST /rallies.
func (h *RalliesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_rally"
	var req createRallyRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}
	heldOn, err := parseDate(req.HeldOn)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	rally, err := h.deps.CreateRally(r.Context(), model.Rally{Name: req.Name, HeldOn: heldOn, ChampionshipID: req.ChampionshipID})
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, rally)
}

// HandleSubmit handles POST /rallies/{id}/results with a JSON body.
func (h *RalliesHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_results"
	var req submitResultsRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}
	out, err := h.deps.SubmitResults(r.Context(), r.PathValue("id"), req.Results, r.Header.Get(idempotencyHeader))
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitResultsResponse{Count: len(out), Results: listOf(out)})
}

// HandleImport handles POST /rallies/{id}/results/import with an HTML body.
// The class query parameter fills rows without a class.
func (h *RalliesHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	const op = "api.import_results"
	out, err := h.deps.ImportResults(r.Context(), r.PathValue("id"), h.body(w, r),
		r.URL.Query().Get("class"), r.Header.Get(idempotencyHeader))
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitResultsResponse{Count: len(out), Results: listOf(out)})
}

// HandleApprove handles POST /rallies/{id}/approve.
func (h *RalliesHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	const op = "api.approve_rally"
	n, err := h.deps.ApproveRally(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, approveResponse{Approved: n})
}

// parseDate accepts YYYY-MM-DD or RFC3339; empty means unknown.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, NewKind("held_on must be YYYY-MM-DD or RFC3339", ErrBadRequest)
	}
	return t, nil
}
