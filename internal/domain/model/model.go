// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Result approval states.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Championship kinds.
const (
	KindIndividual = "individual"
	KindTeam       = "team"
)

// Participant is the canonical identity a set of result rows should reference.
type Participant struct {
	ID            string    `json:"id"`
	CanonicalName string    `json:"canonical_name"`
	DisplayName   string    `json:"display_name"`
	Aliases       []Alias   `json:"aliases"`
	CreatedAt     time.Time `json:"created_at"`
}

// Name returns the display name, falling back to the canonical name.
func (p Participant) Name() string {
	if strings.TrimSpace(p.DisplayName) != "" {
		return p.DisplayName
	}
	return p.CanonicalName
}

// Alias is a known alternate free-text spelling of a participant's name.
// Key holds the normalized text and is unique per participant.
type Alias struct {
	ParticipantID string    `json:"participant_id"`
	Text          string    `json:"text"`
	Key           string    `json:"key"`
	UsageCount    int       `json:"usage_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// AliasConflict reports an alias key attached to more than one participant.
type AliasConflict struct {
	Key            string   `json:"key"`
	ParticipantIDs []string `json:"participant_ids"`
}

// Result is one row of a rally's classification.
type Result struct {
	ID              string    `json:"id"`
	RallyID         string    `json:"rally_id"`
	ParticipantName string    `json:"participant_name"`
	ParticipantID   *string   `json:"participant_id,omitempty"`
	Class           string    `json:"class"`
	Position        int       `json:"position"` // 0 = not classified
	Points          *int      `json:"points,omitempty"`
	TotalTimeMS     int64     `json:"total_time_ms"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// Linked reports whether the row references a canonical participant.
func (r Result) Linked() bool {
	return r.ParticipantID != nil && *r.ParticipantID != ""
}

// ResultInput carries a result row submitted for a rally.
type ResultInput struct {
	ParticipantName string `json:"participant_name"`
	Class           string `json:"class"`
	Position        int    `json:"position"`
	Points          *int   `json:"points,omitempty"`
	TotalTimeMS     int64  `json:"total_time_ms"`
}

// Rally is a single competition event.
type Rally struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	HeldOn         time.Time `json:"held_on"`
	ChampionshipID *string   `json:"championship_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Championship groups rallies into a season with standings.
type Championship struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// Team is a set of participants scoring together in a team championship.
type Team struct {
	ID             string    `json:"id"`
	ChampionshipID string    `json:"championship_id"`
	Name           string    `json:"name"`
	MemberIDs      []string  `json:"member_ids"`
	CreatedAt      time.Time `json:"created_at"`
}

// ValidStatus reports whether s is a known result status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ValidKind reports whether k is a known championship kind.
func ValidKind(k string) bool {
	return k == KindIndividual || k == KindTeam
}
