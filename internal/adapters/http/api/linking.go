package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/rally/internal/domain/linking"
	"github.com/okian/rally/internal/domain/model"
)

// LinkingDependencies defines manual linking and review operations.
type LinkingDependencies interface {
	UnlinkedResults(ctx context.Context) ([]model.Result, error)
	SuggestForResult(ctx context.Context, resultID string) ([]linking.Suggestion, error)
	SuggestForName(ctx context.Context, name string) ([]linking.Suggestion, error)
	LinkResult(ctx context.Context, resultID, participantID string) (model.Result, error)
	UnlinkResult(ctx context.Context, resultID string) (model.Result, error)
	SetResultStatus(ctx context.Context, resultID, status string) (model.Result, error)
}

// LinkingHandler handles result review requests.
type LinkingHandler struct {
	responder
	deps LinkingDependencies
}

type linkRequest struct {
	ParticipantID string `json:"participant_id"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// HandleUnlinked handles GET /results/unlinked.
func (h *LinkingHandler) HandleUnlinked(w http.ResponseWriter, r *http.Request) {
	const op = "api.unlinked_results"
	rs, err := h.deps.UnlinkedResults(r.Context())
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(rs))
}

// HandleResultSuggestions handles GET /results/{id}/suggestions.
func (h *LinkingHandler) HandleResultSuggestions(w http.ResponseWriter, r *http.Request) {
	const op = "api.result_suggestions"
	out, err := h.deps.SuggestForResult(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(out))
}

// HandleNameSuggestions handles GET /suggestions?name=.
func (h *LinkingHandler) HandleNameSuggestions(w http.ResponseWriter, r *http.Request) {
	const op = "api.name_suggestions"
	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		h.fail(w, r, op, NewKind("missing name", ErrBadRequest))
		return
	}
	out, err := h.deps.SuggestForName(r.Context(), name)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(out))
}

// HandleLink handles POST /results/{id}/link.
func (h *LinkingHandler) HandleLink(w http.ResponseWriter, r *http.Request) {
	const op = "api.link_result"
	var req linkRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}
	if strings.TrimSpace(req.ParticipantID) == "" {
		h.fail(w, r, op, NewKind("missing participant_id", ErrBadRequest))
		return
	}
	res, err := h.deps.LinkResult(r.Context(), r.PathValue("id"), req.ParticipantID)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleUnlink handles POST /results/{id}/unlink.
func (h *LinkingHandler) HandleUnlink(w http.ResponseWriter, r *http.Request) {
	const op = "api.unlink_result"
	res, err := h.deps.UnlinkResult(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleStatus handles POST /results/{id}/status.
func (h *LinkingHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.result_status"
	var req statusRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}
	res, err := h.deps.SetResultStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
