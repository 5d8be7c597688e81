package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/okian/rally/internal/domain/model"
)

const resultColumns = `rr.id, rr.rally_id, rr.participant_name, rr.participant_id, rr.class,
	rr.position, rr.points, rr.total_time_ms, rr.status, rr.created_at`

func scanResult(row scanner) (model.Result, error) {
	var (
		r      model.Result
		pid    sql.NullString
		points sql.NullInt64
	)
	err := row.Scan(&r.ID, &r.RallyID, &r.ParticipantName, &pid, &r.Class,
		&r.Position, &points, &r.TotalTimeMS, &r.Status, &r.CreatedAt)
	if err != nil {
		return model.Result{}, err
	}
	r.ParticipantID = stringPtr(pid)
	r.Points = intPtr(points)
	return r, nil
}

func collectResults(rows *sql.Rows) ([]model.Result, error) {
	defer rows.Close()
	out := make([]model.Result, 0)
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

// CreateRally stores a rally, optionally attached to a championship.
func (s *SQLStore) CreateRally(ctx context.Context, r model.Rally) (model.Rally, error) {
	defer observe("create_rally", time.Now())

	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return model.Rally{}, fmt.Errorf("rally name is empty: %w", ErrInvalidInput)
	}
	r.ChampionshipID = stringPtr(nullString(r.ChampionshipID))
	r.ID = s.newID()
	r.CreatedAt = s.timestamp()
	r.HeldOn = r.HeldOn.UTC()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if r.ChampionshipID != nil {
			ok, err := exists(ctx, tx, `SELECT 1 FROM championship WHERE id = $1`, *r.ChampionshipID)
			if err != nil {
				return fmt.Errorf("check championship: %w", err)
			}
			if !ok {
				return fmt.Errorf("championship %s: %w", *r.ChampionshipID, ErrNotFound)
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rally (id, name, held_on, championship_id, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, r.ID, r.Name, r.HeldOn, nullString(r.ChampionshipID), r.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert rally: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Rally{}, err
	}
	return r, nil
}

func scanRally(row scanner) (model.Rally, error) {
	var (
		r   model.Rally
		cid sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Name, &r.HeldOn, &cid, &r.CreatedAt); err != nil {
		return model.Rally{}, err
	}
	r.ChampionshipID = stringPtr(cid)
	return r, nil
}

// Rally loads one rally.
func (s *SQLStore) Rally(ctx context.Context, id string) (model.Rally, error) {
	defer observe("rally", time.Now())

	r, err := scanRally(s.db.QueryRowContext(ctx, `
		SELECT id, name, held_on, championship_id, created_at
		FROM rally
		WHERE id = $1
	`, id))
	if err != nil {
		return model.Rally{}, notFound(err, "rally", id)
	}
	return r, nil
}

// Rallies lists rallies by date.
func (s *SQLStore) Rallies(ctx context.Context) ([]model.Rally, error) {
	defer observe("rallies", time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, held_on, championship_id, created_at
		FROM rally
		ORDER BY held_on, name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query rallies: %w", err)
	}
	defer rows.Close()

	out := make([]model.Rally, 0)
	for rows.Next() {
		r, err := scanRally(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rally: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rallies: %w", err)
	}
	return out, nil
}

// AddResults stores rows for a rally as pending and unlinked, in order.
func (s *SQLStore) AddResults(ctx context.Context, rallyID string, rows []model.ResultInput) ([]model.Result, error) {
	return s.AddSubmission(ctx, rallyID, "", rows)
}

// AddSubmission stores rows like AddResults and records key for the rally
// in the same transaction.
func (s *SQLStore) AddSubmission(ctx context.Context, rallyID, key string, rows []model.ResultInput) ([]model.Result, error) {
	defer observe("add_results", time.Now())

	for i, in := range rows {
		if strings.TrimSpace(in.ParticipantName) == "" {
			return nil, fmt.Errorf("row %d: participant name is empty: %w", i+1, ErrInvalidInput)
		}
		if in.Position < 0 {
			return nil, fmt.Errorf("row %d: negative position: %w", i+1, ErrInvalidInput)
		}
	}

	out := make([]model.Result, 0, len(rows))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM rally WHERE id = $1`, rallyID)
		if err != nil {
			return fmt.Errorf("check rally: %w", err)
		}
		if !ok {
			return fmt.Errorf("rally %s: %w", rallyID, ErrNotFound)
		}

		if key != "" {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO submission (rally_id, idempotency_key, row_count, created_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (rally_id, idempotency_key) DO NOTHING
			`, rallyID, key, len(rows), s.timestamp())
			if err != nil {
				return fmt.Errorf("record submission: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("record submission: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("rally %s key %q: %w", rallyID, key, ErrDuplicateKey)
			}
		}

		var seq int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) FROM rally_result WHERE rally_id = $1`, rallyID,
		).Scan(&seq); err != nil {
			return fmt.Errorf("load result sequence: %w", err)
		}

		now := s.timestamp()
		for _, in := range rows {
			seq++
			r := model.Result{
				ID:              s.newID(),
				RallyID:         rallyID,
				ParticipantName: strings.Join(strings.Fields(in.ParticipantName), " "),
				Class:           strings.TrimSpace(in.Class),
				Position:        in.Position,
				Points:          in.Points,
				TotalTimeMS:     in.TotalTimeMS,
				Status:          model.StatusPending,
				CreatedAt:       now,
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO rally_result (id, rally_id, seq, participant_name, class, position, points, total_time_ms, status, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`, r.ID, r.RallyID, seq, r.ParticipantName, r.Class, r.Position, nullInt(r.Points), r.TotalTimeMS, r.Status, r.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert result: %w", err)
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Result loads one result row.
func (s *SQLStore) Result(ctx context.Context, id string) (model.Result, error) {
	defer observe("result", time.Now())

	r, err := scanResult(s.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM rally_result rr WHERE rr.id = $1`, id))
	if err != nil {
		return model.Result{}, notFound(err, "result", id)
	}
	return r, nil
}

// UnlinkedResults returns rows without a participant in entry order.
func (s *SQLStore) UnlinkedResults(ctx context.Context) ([]model.Result, error) {
	defer observe("unlinked_results", time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+resultColumns+`
		FROM rally_result rr
		WHERE rr.participant_id IS NULL
		ORDER BY rr.created_at, rr.rally_id, rr.seq
	`)
	if err != nil {
		return nil, fmt.Errorf("query unlinked results: %w", err)
	}
	return collectResults(rows)
}

// CountUnlinked returns the number of rows without a participant.
func (s *SQLStore) CountUnlinked(ctx context.Context) (int, error) {
	defer observe("count_unlinked", time.Now())

	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rally_result WHERE participant_id IS NULL`,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unlinked results: %w", err)
	}
	return n, nil
}

// LinkResult links an unlinked row and records alias in one transaction.
func (s *SQLStore) LinkResult(ctx context.Context, resultID, participantID, alias string) error {
	defer observe("link_result", time.Now())

	return s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM participant WHERE id = $1`, participantID)
		if err != nil {
			return fmt.Errorf("check participant: %w", err)
		}
		if !ok {
			return fmt.Errorf("participant %s: %w", participantID, ErrNotFound)
		}
		if err := s.linkTx(ctx, tx, resultID, participantID); err != nil {
			return err
		}
		return s.upsertAlias(ctx, tx, participantID, alias)
	})
}

// CreateParticipantAndLink creates p, records the row's name as alias and
// links the row, all in one transaction.
func (s *SQLStore) CreateParticipantAndLink(ctx context.Context, resultID string, p model.Participant) (model.Participant, error) {
	defer observe("create_participant_and_link", time.Now())

	var created model.Participant
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			name string
			pid  sql.NullString
		)
		err := tx.QueryRowContext(ctx,
			`SELECT participant_name, participant_id FROM rally_result WHERE id = $1`, resultID,
		).Scan(&name, &pid)
		if err != nil {
			return notFound(err, "result", resultID)
		}
		if pid.Valid {
			return fmt.Errorf("result %s: %w", resultID, ErrAlreadyLinked)
		}

		p.Aliases = append(p.Aliases, model.Alias{Text: name})
		created, err = s.insertParticipant(ctx, tx, p)
		if err != nil {
			return err
		}
		return s.linkTx(ctx, tx, resultID, created.ID)
	})
	if err != nil {
		return model.Participant{}, err
	}
	return created, nil
}

// linkTx sets participant_id only when the row is still unlinked.
func (s *SQLStore) linkTx(ctx context.Context, tx *sql.Tx, resultID, participantID string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE rally_result SET participant_id = $1
		WHERE id = $2 AND participant_id IS NULL
	`, participantID, resultID)
	if err != nil {
		return fmt.Errorf("link result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("link result: %w", err)
	}
	if n == 1 {
		return nil
	}

	ok, err := exists(ctx, tx, `SELECT 1 FROM rally_result WHERE id = $1`, resultID)
	if err != nil {
		return fmt.Errorf("check result: %w", err)
	}
	if !ok {
		return fmt.Errorf("result %s: %w", resultID, ErrNotFound)
	}
	return fmt.Errorf("result %s: %w", resultID, ErrAlreadyLinked)
}

// UnlinkResult clears a row's participant. Aliases are kept.
func (s *SQLStore) UnlinkResult(ctx context.Context, resultID string) error {
	defer observe("unlink_result", time.Now())

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE rally_result SET participant_id = NULL
			WHERE id = $1 AND participant_id IS NOT NULL
		`, resultID)
		if err != nil {
			return fmt.Errorf("unlink result: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("unlink result: %w", err)
		} else if n == 1 {
			return nil
		}

		ok, err := exists(ctx, tx, `SELECT 1 FROM rally_result WHERE id = $1`, resultID)
		if err != nil {
			return fmt.Errorf("check result: %w", err)
		}
		if !ok {
			return fmt.Errorf("result %s: %w", resultID, ErrNotFound)
		}
		return fmt.Errorf("result %s: %w", resultID, ErrNotLinked)
	})
}

// SetResultStatus moves a row to status and returns the updated row.
func (s *SQLStore) SetResultStatus(ctx context.Context, resultID, status string) (model.Result, error) {
	defer observe("set_result_status", time.Now())

	if !model.ValidStatus(status) {
		return model.Result{}, fmt.Errorf("status %q: %w", status, ErrInvalidInput)
	}

	var out model.Result
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE rally_result SET status = $1 WHERE id = $2`, status, resultID)
		if err != nil {
			return fmt.Errorf("update result status: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("update result status: %w", err)
		} else if n == 0 {
			return fmt.Errorf("result %s: %w", resultID, ErrNotFound)
		}
		out, err = scanResult(tx.QueryRowContext(ctx,
			`SELECT `+resultColumns+` FROM rally_result rr WHERE rr.id = $1`, resultID))
		if err != nil {
			return fmt.Errorf("reload result: %w", err)
		}
		return nil
	})
	return out, err
}

// ApproveRally approves all pending rows of a rally.
func (s *SQLStore) ApproveRally(ctx context.Context, rallyID string) (int, error) {
	defer observe("approve_rally", time.Now())

	var n int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM rally WHERE id = $1`, rallyID)
		if err != nil {
			return fmt.Errorf("check rally: %w", err)
		}
		if !ok {
			return fmt.Errorf("rally %s: %w", rallyID, ErrNotFound)
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE rally_result SET status = $1
			WHERE rally_id = $2 AND status = $3
		`, model.StatusApproved, rallyID, model.StatusPending)
		if err != nil {
			return fmt.Errorf("approve rally results: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	return int(n), err
}
