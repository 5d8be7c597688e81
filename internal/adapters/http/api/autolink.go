package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/rally/internal/domain/linking"
)

// AutoLinkDependencies defines batch auto-link operations.
type AutoLinkDependencies interface {
	RunAutoLink(ctx context.Context, dryRun bool) (linking.Summary, error)
	ScheduleAutoLink(ctx context.Context, reason, rallyID string) (bool, error)
}

// AutoLinkHandler handles auto-link requests.
type AutoLinkHandler struct {
	responder
	deps AutoLinkDependencies
}

type scheduleResponse struct {
	Status string `json:"status"`
}

// HandleRun handles POST /autolink. With async=true the batch is queued
// for the background worker and 202 is returned; otherwise the batch runs
// in the request and its summary is returned. dry_run=true computes the
// summary without writing.
func (h *AutoLinkHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.autolink"
	dryRun, err := boolParam(r, "dry_run")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	async, err := boolParam(r, "async")
	if err != nil {
		h.fail(w, r, op, err)
		return
	}

	if async {
		if dryRun {
			h.fail(w, r, op, NewKind("dry_run cannot be async", ErrBadRequest))
			return
		}
		scheduled, err := h.deps.ScheduleAutoLink(r.Context(), "api", "")
		if err != nil {
			h.fail(w, r, op, err)
			return
		}
		status := "scheduled"
		if !scheduled {
			status = "already_scheduled"
		}
		writeJSON(w, http.StatusAccepted, scheduleResponse{Status: status})
		return
	}

	sum, err := h.deps.RunAutoLink(r.Context(), dryRun)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func boolParam(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, WrapKind(name, ErrBadRequest, err)
	}
	return b, nil
}
