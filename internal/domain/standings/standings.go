// Package standings aggregates approved rally results into championship
// tables for individuals and teams.
package standings

import (
	"math"
	"sort"
	"strings"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/similarity"
)

// unlinkedPrefix marks entries keyed by a free-text name.
const unlinkedPrefix = "name:"

// PointsTable maps a 1-based finishing position to points.
type PointsTable []int

// DefaultPointsTable is used when no table is configured.
var DefaultPointsTable = PointsTable{25, 18, 15, 12, 10, 8, 6, 4, 2, 1}

// For returns the points for position. Unclassified (0) and positions
// beyond the table score nothing.
func (t PointsTable) For(position int) int {
	if position < 1 || position > len(t) {
		return 0
	}
	return t[position-1]
}

// Entry is one row of a standings table.
type Entry struct {
	Rank int    `json:"rank"`
	Key  string `json:"key"`
	Name string `json:"name"`
	// ParticipantID is empty for rows built from unlinked results.
	ParticipantID string   `json:"participant_id,omitempty"`
	Members       []string `json:"members,omitempty"`
	Points        int      `json:"points"`
	Wins          int      `json:"wins"`
	BestPosition  int      `json:"best_position"`
	Starts        int      `json:"starts"`
}

// Table is a computed championship table.
type Table struct {
	Championship model.Championship `json:"championship"`
	Class        string             `json:"class,omitempty"`
	PointsTable  PointsTable        `json:"points_table"`
	Entries      []Entry            `json:"entries"`
	// Individual is set for team championships.
	Individual []Entry `json:"individual,omitempty"`
}

// Calculator computes standings with a fixed points table.
type Calculator struct {
	table PointsTable
}

// NewCalculator creates a calculator using DefaultPointsTable unless
// overridden.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{table: DefaultPointsTable}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Table returns a copy of the configured points table.
func (c *Calculator) Table() PointsTable {
	return append(PointsTable(nil), c.table...)
}

// Points returns the points a result earns: the explicit override when set,
// otherwise the table value for its position.
func (c *Calculator) Points(r model.Result) int {
	if r.Points != nil {
		return *r.Points
	}
	return c.table.For(r.Position)
}

// Individual builds the individual table from results. Only approved rows
// count; class filters by class when non-empty. names resolves participant
// ids to display names.
func (c *Calculator) Individual(results []model.Result, names map[string]string, class string) []Entry {
	byKey := make(map[string]*Entry)
	for _, r := range results {
		if r.Status != model.StatusApproved || !classMatches(r.Class, class) {
			continue
		}

		key, name, pid := entryIdentity(r, names)
		if key == "" {
			continue
		}
		e, ok := byKey[key]
		if !ok {
			e = &Entry{Key: key, Name: name, ParticipantID: pid}
			byKey[key] = e
		}
		e.add(c.Points(r), r.Position)
	}

	out := make([]Entry, 0, len(byKey))
	for _, e := range byKey {
		out = append(out, *e)
	}
	sortAndRank(out)
	return out
}

// Teams sums each team's member rows from an individual table. Members
// without results contribute nothing.
func (c *Calculator) Teams(teams []model.Team, individual []Entry) []Entry {
	byParticipant := make(map[string]Entry, len(individual))
	for _, e := range individual {
		if e.ParticipantID != "" {
			byParticipant[e.ParticipantID] = e
		}
	}

	out := make([]Entry, 0, len(teams))
	for _, t := range teams {
		e := Entry{Key: t.ID, Name: t.Name, Members: append([]string(nil), t.MemberIDs...)}
		for _, id := range t.MemberIDs {
			m, ok := byParticipant[id]
			if !ok {
				continue
			}
			e.Points += m.Points
			e.Wins += m.Wins
			e.Starts += m.Starts
			e.BestPosition = better(e.BestPosition, m.BestPosition)
		}
		out = append(out, e)
	}
	sortAndRank(out)
	return out
}

func (e *Entry) add(points, position int) {
	e.Starts++
	e.Points += points
	if position == 1 {
		e.Wins++
	}
	e.BestPosition = better(e.BestPosition, position)
}

// better returns the better of two positions where 0 means none.
func better(a, b int) int {
	switch {
	case b < 1:
		return a
	case a < 1:
		return b
	}
	return min(a, b)
}

func entryIdentity(r model.Result, names map[string]string) (key, name, participantID string) {
	if r.Linked() {
		id := *r.ParticipantID
		name = names[id]
		if name == "" {
			name = strings.TrimSpace(r.ParticipantName)
		}
		return id, name, id
	}
	norm := similarity.Normalize(r.ParticipantName)
	if norm == "" {
		return "", "", ""
	}
	return unlinkedPrefix + norm, strings.Join(strings.Fields(r.ParticipantName), " "), ""
}

func classMatches(class, filter string) bool {
	filter = strings.TrimSpace(filter)
	return filter == "" || strings.EqualFold(strings.TrimSpace(class), filter)
}

// sortAndRank orders entries by points desc, wins desc, best position asc
// and name asc, then assigns dense ranks on (points, wins).
func sortAndRank(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if pa, pb := rankablePosition(a.BestPosition), rankablePosition(b.BestPosition); pa != pb {
			return pa < pb
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Key < b.Key
	})
	assignRanksWithTies(entries)
}

// rankablePosition sorts "no classified finish" after every real position.
func rankablePosition(p int) int {
	if p < 1 {
		return math.MaxInt
	}
	return p
}

// assignRanksWithTies gives equal (points, wins) the same rank; the next
// distinct entry gets the following rank.
func assignRanksWithTies(entries []Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Points != entries[i-1].Points || entries[i].Wins != entries[i-1].Wins {
			rank++
		}
		entries[i].Rank = rank
	}
}
