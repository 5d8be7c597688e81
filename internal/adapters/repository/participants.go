package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/similarity"
)

// CreateParticipant stores a new participant and its aliases.
func (s *SQLStore) CreateParticipant(ctx context.Context, p model.Participant) (model.Participant, error) {
	defer observe("create_participant", time.Now())

	var created model.Participant
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		created, err = s.insertParticipant(ctx, tx, p)
		return err
	})
	return created, err
}

func (s *SQLStore) insertParticipant(ctx context.Context, tx *sql.Tx, p model.Participant) (model.Participant, error) {
	p.DisplayName = strings.Join(strings.Fields(p.DisplayName), " ")
	p.CanonicalName = similarity.Normalize(p.CanonicalName)
	if p.CanonicalName == "" {
		p.CanonicalName = similarity.Normalize(p.DisplayName)
	}
	if p.CanonicalName == "" {
		return model.Participant{}, fmt.Errorf("participant name is empty: %w", ErrInvalidInput)
	}
	if p.DisplayName == "" {
		p.DisplayName = p.CanonicalName
	}
	p.ID = s.newID()
	p.CreatedAt = s.timestamp()

	_, err := tx.ExecContext(ctx, `
		INSERT INTO participant (id, canonical_name, display_name, created_at)
		VALUES ($1, $2, $3, $4)
	`, p.ID, p.CanonicalName, p.DisplayName, p.CreatedAt)
	if err != nil {
		return model.Participant{}, fmt.Errorf("insert participant: %w", err)
	}

	for _, a := range p.Aliases {
		if err := s.upsertAlias(ctx, tx, p.ID, a.Text); err != nil {
			return model.Participant{}, err
		}
	}
	aliases, err := loadAliases(ctx, tx, p.ID)
	if err != nil {
		return model.Participant{}, err
	}
	p.Aliases = aliases
	return p, nil
}

// Participant loads one participant with its aliases.
func (s *SQLStore) Participant(ctx context.Context, id string) (model.Participant, error) {
	defer observe("participant", time.Now())

	var p model.Participant
	err := s.db.QueryRowContext(ctx, `
		SELECT id, canonical_name, display_name, created_at
		FROM participant
		WHERE id = $1
	`, id).Scan(&p.ID, &p.CanonicalName, &p.DisplayName, &p.CreatedAt)
	if err != nil {
		return model.Participant{}, notFound(err, "participant", id)
	}
	p.Aliases, err = loadAliases(ctx, s.db, id)
	if err != nil {
		return model.Participant{}, err
	}
	return p, nil
}

// Participants returns all participants ordered by canonical name.
func (s *SQLStore) Participants(ctx context.Context) ([]model.Participant, error) {
	defer observe("participants", time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, canonical_name, display_name, created_at
		FROM participant
		ORDER BY canonical_name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	out := make([]model.Participant, 0)
	index := make(map[string]int)
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.CanonicalName, &p.DisplayName, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		p.Aliases = []model.Alias{}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	rows.Close()

	aliasRows, err := s.db.QueryContext(ctx, `
		SELECT participant_id, alias_key, alias_text, usage_count, created_at
		FROM participant_alias
		ORDER BY participant_id, created_at, alias_key
	`)
	if err != nil {
		return nil, fmt.Errorf("query aliases: %w", err)
	}
	defer aliasRows.Close()

	for aliasRows.Next() {
		a, err := scanAlias(aliasRows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[a.ParticipantID]; ok {
			out[i].Aliases = append(out[i].Aliases, a)
		}
	}
	if err := aliasRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aliases: %w", err)
	}
	return out, nil
}

// AddAlias records text as an alias of participantID.
func (s *SQLStore) AddAlias(ctx context.Context, participantID, text string) (model.Alias, error) {
	defer observe("add_alias", time.Now())

	key := similarity.Normalize(text)
	if key == "" {
		return model.Alias{}, fmt.Errorf("alias text is empty: %w", ErrInvalidInput)
	}

	var alias model.Alias
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM participant WHERE id = $1`, participantID)
		if err != nil {
			return fmt.Errorf("check participant: %w", err)
		}
		if !ok {
			return fmt.Errorf("participant %s: %w", participantID, ErrNotFound)
		}
		if err := s.upsertAlias(ctx, tx, participantID, text); err != nil {
			return err
		}
		row := tx.QueryRowContext(ctx, `
			SELECT participant_id, alias_key, alias_text, usage_count, created_at
			FROM participant_alias
			WHERE participant_id = $1 AND alias_key = $2
		`, participantID, key)
		alias, err = scanAlias(row)
		return err
	})
	return alias, err
}

// AliasConflicts lists alias keys attached to more than one participant.
func (s *SQLStore) AliasConflicts(ctx context.Context) ([]model.AliasConflict, error) {
	defer observe("alias_conflicts", time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT alias_key, participant_id
		FROM participant_alias
		WHERE alias_key IN (
			SELECT alias_key FROM participant_alias
			GROUP BY alias_key
			HAVING COUNT(*) > 1
		)
		ORDER BY alias_key, participant_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query alias conflicts: %w", err)
	}
	defer rows.Close()

	out := make([]model.AliasConflict, 0)
	for rows.Next() {
		var key, pid string
		if err := rows.Scan(&key, &pid); err != nil {
			return nil, fmt.Errorf("scan alias conflict: %w", err)
		}
		if n := len(out); n > 0 && out[n-1].Key == key {
			out[n-1].ParticipantIDs = append(out[n-1].ParticipantIDs, pid)
			continue
		}
		out = append(out, model.AliasConflict{Key: key, ParticipantIDs: []string{pid}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alias conflicts: %w", err)
	}
	return out, nil
}

// upsertAlias inserts text for participantID or bumps its usage counter.
// Blank text is ignored.
func (s *SQLStore) upsertAlias(ctx context.Context, tx *sql.Tx, participantID, text string) error {
	key := similarity.Normalize(text)
	if key == "" {
		return nil
	}
	text = strings.Join(strings.Fields(text), " ")
	_, err := tx.ExecContext(ctx, `
		INSERT INTO participant_alias (participant_id, alias_key, alias_text, usage_count, created_at)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (participant_id, alias_key)
		DO UPDATE SET usage_count = participant_alias.usage_count + 1
	`, participantID, key, text, s.timestamp())
	if err != nil {
		return fmt.Errorf("upsert alias: %w", err)
	}
	return nil
}

type rowsQueryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadAliases(ctx context.Context, q rowsQueryer, participantID string) ([]model.Alias, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT participant_id, alias_key, alias_text, usage_count, created_at
		FROM participant_alias
		WHERE participant_id = $1
		ORDER BY created_at, alias_key
	`, participantID)
	if err != nil {
		return nil, fmt.Errorf("query aliases: %w", err)
	}
	defer rows.Close()

	out := make([]model.Alias, 0)
	for rows.Next() {
		a, err := scanAlias(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aliases: %w", err)
	}
	return out, nil
}

func scanAlias(row scanner) (model.Alias, error) {
	var a model.Alias
	if err := row.Scan(&a.ParticipantID, &a.Key, &a.Text, &a.UsageCount, &a.CreatedAt); err != nil {
		return model.Alias{}, fmt.Errorf("scan alias: %w", err)
	}
	return a, nil
}
