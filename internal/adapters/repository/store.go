// Package repository persists participants, results and championships.
package repository

import (
	"context"

	"github.com/okian/rally/internal/domain/model"
)

// ParticipantStore manages canonical participants and their aliases.
type ParticipantStore interface {
	// CreateParticipant stores p and any aliases it carries. ID and
	// timestamps are assigned by the store.
	CreateParticipant(ctx context.Context, p model.Participant) (model.Participant, error)
	Participant(ctx context.Context, id string) (model.Participant, error)
	// Participants returns every participant with its aliases.
	Participants(ctx context.Context) ([]model.Participant, error)
	// AddAlias records text for a participant, bumping the usage counter
	// when the normalized text is already known.
	AddAlias(ctx context.Context, participantID, text string) (model.Alias, error)
	// AliasConflicts lists alias keys held by more than one participant.
	AliasConflicts(ctx context.Context) ([]model.AliasConflict, error)
}

// ResultStore manages rallies and their result rows.
type ResultStore interface {
	CreateRally(ctx context.Context, r model.Rally) (model.Rally, error)
	Rally(ctx context.Context, id string) (model.Rally, error)
	Rallies(ctx context.Context) ([]model.Rally, error)
	// AddResults stores rows for a rally as pending and unlinked.
	AddResults(ctx context.Context, rallyID string, rows []model.ResultInput) ([]model.Result, error)
	// AddSubmission is AddResults guarded by an idempotency key. A key
	// already stored for the rally fails with ErrDuplicateKey and writes
	// nothing. An empty key behaves like AddResults.
	AddSubmission(ctx context.Context, rallyID, key string, rows []model.ResultInput) ([]model.Result, error)
	Result(ctx context.Context, id string) (model.Result, error)
	UnlinkedResults(ctx context.Context) ([]model.Result, error)
	CountUnlinked(ctx context.Context) (int, error)
	// LinkResult fails with ErrAlreadyLinked when the row already has a
	// participant.
	LinkResult(ctx context.Context, resultID, participantID, alias string) error
	CreateParticipantAndLink(ctx context.Context, resultID string, p model.Participant) (model.Participant, error)
	UnlinkResult(ctx context.Context, resultID string) error
	SetResultStatus(ctx context.Context, resultID, status string) (model.Result, error)
	// ApproveRally approves every pending row of a rally and returns how
	// many rows changed.
	ApproveRally(ctx context.Context, rallyID string) (int, error)
}

// ChampionshipStore manages championships and teams.
type ChampionshipStore interface {
	CreateChampionship(ctx context.Context, c model.Championship) (model.Championship, error)
	Championship(ctx context.Context, id string) (model.Championship, error)
	Championships(ctx context.Context) ([]model.Championship, error)
	AttachRally(ctx context.Context, championshipID, rallyID string) error
	CreateTeam(ctx context.Context, t model.Team) (model.Team, error)
	Teams(ctx context.Context, championshipID string) ([]model.Team, error)
	// ChampionshipResults returns every row of the championship's rallies
	// regardless of status.
	ChampionshipResults(ctx context.Context, championshipID string) ([]model.Result, error)
}

// Store is the full persistence surface used by the service.
type Store interface {
	ParticipantStore
	ResultStore
	ChampionshipStore
	Ping(ctx context.Context) error
	Close() error
}
