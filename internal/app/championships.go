package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/standings"
	"github.com/okian/rally/pkg/metrics"
)

// CreateChampionship stores a championship.
func (s *Service) CreateChampionship(ctx context.Context, c model.Championship) (model.Championship, error) {
	return s.store.CreateChampionship(ctx, c)
}

// Championships lists all championships.
func (s *Service) Championships(ctx context.Context) ([]model.Championship, error) {
	return s.store.Championships(ctx)
}

// AttachRally moves a rally into a championship.
func (s *Service) AttachRally(ctx context.Context, championshipID, rallyID string) error {
	return s.store.AttachRally(ctx, championshipID, rallyID)
}

// CreateTeam adds a team to a team championship.
func (s *Service) CreateTeam(ctx context.Context, championshipID, name string, memberIDs []string) (model.Team, error) {
	c, err := s.store.Championship(ctx, championshipID)
	if err != nil {
		return model.Team{}, err
	}
	if c.Kind != model.KindTeam {
		return model.Team{}, fmt.Errorf("championship %s is %s: %w", c.ID, c.Kind, ErrWrongChampionshipKind)
	}
	return s.store.CreateTeam(ctx, model.Team{ChampionshipID: championshipID, Name: name, MemberIDs: memberIDs})
}

// Teams lists a championship's teams.
func (s *Service) Teams(ctx context.Context, championshipID string) ([]model.Team, error) {
	if _, err := s.store.Championship(ctx, championshipID); err != nil {
		return nil, err
	}
	return s.store.Teams(ctx, championshipID)
}

// Standings computes the table for a championship from approved results,
// optionally for one class only.
func (s *Service) Standings(ctx context.Context, championshipID, class string) (standings.Table, error) {
	start := time.Now()

	c, err := s.store.Championship(ctx, championshipID)
	if err != nil {
		return standings.Table{}, err
	}
	results, err := s.store.ChampionshipResults(ctx, championshipID)
	if err != nil {
		return standings.Table{}, err
	}
	participants, err := s.store.Participants(ctx)
	if err != nil {
		return standings.Table{}, err
	}
	names := make(map[string]string, len(participants))
	for _, p := range participants {
		names[p.ID] = p.Name()
	}

	out := standings.Table{Championship: c, Class: class, PointsTable: s.calc.Table()}
	individual := s.calc.Individual(results, names, class)
	if c.Kind == model.KindTeam {
		teams, err := s.store.Teams(ctx, championshipID)
		if err != nil {
			return standings.Table{}, err
		}
		out.Entries = s.calc.Teams(teams, individual)
		out.Individual = individual
	} else {
		out.Entries = individual
	}

	metrics.RecordStandingsComputed(c.Kind, float64(time.Since(start).Microseconds())/1000)
	return out, nil
}
