package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/standings"
)

// ChampionshipDependencies defines championship, team and standings operations.
type ChampionshipDependencies interface {
	CreateChampionship(ctx context.Context, c model.Championship) (model.Championship, error)
	Championships(ctx context.Context) ([]model.Championship, error)
	AttachRally(ctx context.Context, championshipID, rallyID string) error
	CreateTeam(ctx context.Context, championshipID, name string, memberIDs []string) (model.Team, error)
	Teams(ctx context.Context, championshipID string) ([]model.Team, error)
	Standings(ctx context.Context, championshipID, class string) (standings.Table, error)
}

// ChampionshipsHandler handles championship requests.
type ChampionshipsHandler struct {
	responder
	deps ChampionshipDependencies
}

type createChampionshipRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type attachRallyRequest struct {
	RallyID string `json:"rally_id"`
}

type createTeamRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

// HandleList handles GET /championships.
func (h *ChampionshipsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_championships"
	cs, err := h.deps.Championships(r.Context())
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(cs))
}

// HandleCreate handles POST /championships.
func (h *ChampionshipsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_championship"
	var req createChampionshipRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}
	c, err := h.deps.CreateChampionship(r.Context(), model.Championship{Name: req.Name, Kind: req.Kind})
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HandleAttachRally handles POST /championships/{id}/rallies.
func (h *ChampionshipsHandler) HandleAttachRally(w http.ResponseWriter, r *http.Request) {
	const op = "api.attach_rally"
	var req attachRallyRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}
	if strings.TrimSpace(req.RallyID) == "" {
		h.fail(w, r, op, NewKind("missing rally_id", ErrBadRequest))
		return
	}
	if err := h.deps.AttachRally(r.Context(), r.PathValue("id"), req.RallyID); err != nil {
		h.fail(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListTeams handles GET /championships/{id}/teams.
func (h *ChampionshipsHandler) HandleListTeams(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_teams"
	teams, err := h.deps.Teams(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, listOf(teams))
}

// HandleCreateTeam handles POST /championships/{id}/teams.
func (h *ChampionshipsHandler) HandleCreateTeam(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_team"
	var req createTeamRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, op, err)
		return
	}
	t, err := h.deps.CreateTeam(r.Context(), r.PathValue("id"), req.Name, req.MemberIDs)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// HandleStandings handles GET /championships/{id}/standings?class=.
func (h *ChampionshipsHandler) HandleStandings(w http.ResponseWriter, r *http.Request) {
	const op = "api.standings"
	table, err := h.deps.Standings(r.Context(), r.PathValue("id"), r.URL.Query().Get("class"))
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	table.Entries = listOf(table.Entries)
	writeJSON(w, http.StatusOK, table)
}
