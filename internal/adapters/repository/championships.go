package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/okian/rally/internal/domain/model"
)

// CreateChampionship stores a championship of kind individual or team.
func (s *SQLStore) CreateChampionship(ctx context.Context, c model.Championship) (model.Championship, error) {
	defer observe("create_championship", time.Now())

	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return model.Championship{}, fmt.Errorf("championship name is empty: %w", ErrInvalidInput)
	}
	if c.Kind == "" {
		c.Kind = model.KindIndividual
	}
	if !model.ValidKind(c.Kind) {
		return model.Championship{}, fmt.Errorf("championship kind %q: %w", c.Kind, ErrInvalidInput)
	}
	c.ID = s.newID()
	c.CreatedAt = s.timestamp()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO championship (id, name, kind, created_at)
		VALUES ($1, $2, $3, $4)
	`, c.ID, c.Name, c.Kind, c.CreatedAt)
	if err != nil {
		return model.Championship{}, fmt.Errorf("insert championship: %w", err)
	}
	return c, nil
}

// Championship loads one championship.
func (s *SQLStore) Championship(ctx context.Context, id string) (model.Championship, error) {
	defer observe("championship", time.Now())

	var c model.Championship
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, created_at FROM championship WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Kind, &c.CreatedAt)
	if err != nil {
		return model.Championship{}, notFound(err, "championship", id)
	}
	return c, nil
}

// Championships lists championships by name.
func (s *SQLStore) Championships(ctx context.Context) ([]model.Championship, error) {
	defer observe("championships", time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, created_at FROM championship ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query championships: %w", err)
	}
	defer rows.Close()

	out := make([]model.Championship, 0)
	for rows.Next() {
		var c model.Championship
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan championship: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate championships: %w", err)
	}
	return out, nil
}

// AttachRally makes rallyID count towards championshipID. A rally belongs
// to at most one championship; attaching again moves it.
func (s *SQLStore) AttachRally(ctx context.Context, championshipID, rallyID string) error {
	defer observe("attach_rally", time.Now())

	return s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM championship WHERE id = $1`, championshipID)
		if err != nil {
			return fmt.Errorf("check championship: %w", err)
		}
		if !ok {
			return fmt.Errorf("championship %s: %w", championshipID, ErrNotFound)
		}
		res, err := tx.ExecContext(ctx, `UPDATE rally SET championship_id = $1 WHERE id = $2`, championshipID, rallyID)
		if err != nil {
			return fmt.Errorf("attach rally: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("attach rally: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("rally %s: %w", rallyID, ErrNotFound)
		}
		return nil
	})
}

// CreateTeam stores a team and its members. Duplicate member ids are
// collapsed; every member must exist.
func (s *SQLStore) CreateTeam(ctx context.Context, t model.Team) (model.Team, error) {
	defer observe("create_team", time.Now())

	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return model.Team{}, fmt.Errorf("team name is empty: %w", ErrInvalidInput)
	}
	members := make([]string, 0, len(t.MemberIDs))
	seen := make(map[string]struct{}, len(t.MemberIDs))
	for _, id := range t.MemberIDs {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	t.MemberIDs = members
	t.ID = s.newID()
	t.CreatedAt = s.timestamp()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM championship WHERE id = $1`, t.ChampionshipID)
		if err != nil {
			return fmt.Errorf("check championship: %w", err)
		}
		if !ok {
			return fmt.Errorf("championship %s: %w", t.ChampionshipID, ErrNotFound)
		}
		taken, err := exists(ctx, tx, `SELECT 1 FROM team WHERE championship_id = $1 AND name = $2`, t.ChampionshipID, t.Name)
		if err != nil {
			return fmt.Errorf("check team name: %w", err)
		}
		if taken {
			return fmt.Errorf("team %q already exists: %w", t.Name, ErrInvalidInput)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO team (id, championship_id, name, created_at)
			VALUES ($1, $2, $3, $4)
		`, t.ID, t.ChampionshipID, t.Name, t.CreatedAt); err != nil {
			return fmt.Errorf("insert team: %w", err)
		}

		for _, pid := range t.MemberIDs {
			ok, err := exists(ctx, tx, `SELECT 1 FROM participant WHERE id = $1`, pid)
			if err != nil {
				return fmt.Errorf("check participant: %w", err)
			}
			if !ok {
				return fmt.Errorf("participant %s: %w", pid, ErrNotFound)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO team_member (team_id, participant_id) VALUES ($1, $2)`, t.ID, pid,
			); err != nil {
				return fmt.Errorf("insert team member: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return model.Team{}, err
	}
	return t, nil
}

// Teams lists a championship's teams with their members.
func (s *SQLStore) Teams(ctx context.Context, championshipID string) ([]model.Team, error) {
	defer observe("teams", time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, championship_id, name, created_at
		FROM team
		WHERE championship_id = $1
		ORDER BY name, id
	`, championshipID)
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	defer rows.Close()

	out := make([]model.Team, 0)
	index := make(map[string]int)
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.ChampionshipID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		t.MemberIDs = []string{}
		index[t.ID] = len(out)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teams: %w", err)
	}
	rows.Close()

	memberRows, err := s.db.QueryContext(ctx, `
		SELECT tm.team_id, tm.participant_id
		FROM team_member tm
		JOIN team t ON t.id = tm.team_id
		WHERE t.championship_id = $1
		ORDER BY tm.team_id, tm.participant_id
	`, championshipID)
	if err != nil {
		return nil, fmt.Errorf("query team members: %w", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var teamID, pid string
		if err := memberRows.Scan(&teamID, &pid); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		if i, ok := index[teamID]; ok {
			out[i].MemberIDs = append(out[i].MemberIDs, pid)
		}
	}
	if err := memberRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate team members: %w", err)
	}
	return out, nil
}

// ChampionshipResults returns every row of the championship's rallies.
func (s *SQLStore) ChampionshipResults(ctx context.Context, championshipID string) ([]model.Result, error) {
	defer observe("championship_results", time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+resultColumns+`
		FROM rally_result rr
		JOIN rally r ON r.id = rr.rally_id
		WHERE r.championship_id = $1
		ORDER BY r.held_on, rr.rally_id, rr.seq
	`, championshipID)
	if err != nil {
		return nil, fmt.Errorf("query championship results: %w", err)
	}
	return collectResults(rows)
}
