package api

import (
	"context"
	"net/http"

	"github.com/okian/rally/internal/domain/model"
)

// ParticipantDependencies defines the participant and alias operations.
type ParticipantDependencies interface {
	Participants(ctx context.Context) ([]model.Participant, error)
	Participant(ctx context.Context, id string) (model.Participant, error)
	CreateParticipant(ctx context.Context, name string, aliases []string) (model.Participant, error)
	AddAlias(ctx context.Context, participantID, text string) (model.Alias, error)
	AliasConflicts(ctx context.Context) ([]model.AliasConflict, error)
}

// ParticipantsHandler handles participant requests.
type ParticipantsHandler struct {
	responder
	deps ParticipantDependencies
}

type createParticipantRequest struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

type addAliasRequest struct {
	Alias string `json:"alias"`
}

// HandleList handles GET /participants.
func (h *ParticipantsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_participants"
	ps, err := h.deps.Participants(r.Context())
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(ps))
}

// HandleGet handles GET /participants/{id}.
func (h *ParticipantsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_participant"
	p, err := h.deps.Participant(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleCreate handles POST /participants.
func (h *ParticipantsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_participant"
	var req createParticipantRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}
	p, err := h.deps.CreateParticipant(r.Context(), req.Name, req.Aliases)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleAddAlias handles POST /participants/{id}/aliases.
func (h *ParticipantsHandler) HandleAddAlias(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_alias"
	var req addAliasRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}
	a, err := h.deps.AddAlias(r.Context(), r.PathValue("id"), req.Alias)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// HandleConflicts handles GET /aliases/conflicts.
func (h *ParticipantsHandler) HandleConflicts(w http.ResponseWriter, r *http.Request) {
	const op = "api.alias_conflicts"
	conflicts, err := h.deps.AliasConflicts(r.Context())
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(conflicts))
}
