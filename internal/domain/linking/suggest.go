// Package linking matches free-text result names to canonical participants.
package linking

import (
	"sort"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/similarity"
)

// Default thresholds.
const (
	DefaultSuggestThreshold  = 0.6
	DefaultAutoLinkThreshold = 0.9
)

// What a suggestion matched on.
const (
	MatchedAlias         = "alias"
	MatchedCanonicalName = "canonical_name"
	MatchedDisplayName   = "display_name"
	MatchedAliasSimilar  = "alias_similarity"
)

// Suggestion is a ranked merge candidate for a free-text name.
type Suggestion struct {
	CandidateID  string  `json:"candidate_id"`
	Name         string  `json:"name"`
	Score        float64 `json:"score"`
	IsExactAlias bool    `json:"is_exact_alias"`
	MatchedOn    string  `json:"matched_on"`
}

// SuggestOptions controls which candidates are returned.
type SuggestOptions struct {
	// Threshold is exclusive: only scores strictly above it are kept.
	Threshold float64
	// Limit caps the result size; <= 0 means no cap.
	Limit int
}

// Suggest ranks participants by similarity to name. Scores above the
// threshold are returned, highest first, ties broken by candidate id.
func Suggest(name string, participants []model.Participant, opts SuggestOptions) []Suggestion {
	out := make([]Suggestion, 0)
	for _, p := range participants {
		s := Match(name, p)
		if s.Score > opts.Threshold {
			out = append(out, s)
		}
	}
	sortSuggestions(out)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// Match scores a single participant against name. A normalized-equal alias
// wins outright with score 1 and IsExactAlias set; otherwise the best score
// across canonical name, display name and aliases is used.
func Match(name string, p model.Participant) Suggestion {
	best := Suggestion{CandidateID: p.ID, Name: p.Name()}
	key := similarity.Normalize(name)
	if key == "" {
		return best
	}

	for _, a := range p.Aliases {
		if aliasKey(a) == key {
			best.Score = similarity.ExactScore
			best.IsExactAlias = true
			best.MatchedOn = MatchedAlias
			return best
		}
	}

	consider := func(candidate, matchedOn string) {
		if s := similarity.Score(name, candidate); s > best.Score {
			best.Score = s
			best.MatchedOn = matchedOn
		}
	}
	consider(p.CanonicalName, MatchedCanonicalName)
	consider(p.DisplayName, MatchedDisplayName)
	for _, a := range p.Aliases {
		consider(a.Text, MatchedAliasSimilar)
	}
	return best
}

// ExactAliasOwners returns the participants holding an alias equal to name
// after normalization.
func ExactAliasOwners(name string, participants []model.Participant) []model.Participant {
	key := similarity.Normalize(name)
	if key == "" {
		return nil
	}
	var owners []model.Participant
	for _, p := range participants {
		for _, a := range p.Aliases {
			if aliasKey(a) == key {
				owners = append(owners, p)
				break
			}
		}
	}
	return owners
}

func aliasKey(a model.Alias) string {
	if a.Key != "" {
		return a.Key
	}
	return similarity.Normalize(a.Text)
}

func sortSuggestions(s []Suggestion) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		if s[i].IsExactAlias != s[j].IsExactAlias {
			return s[i].IsExactAlias
		}
		return s[i].CandidateID < s[j].CandidateID
	})
}
