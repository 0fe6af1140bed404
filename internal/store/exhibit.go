package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
)

// AssignExhibits runs the transactional get-or-create loop of a registry
// refresh. Numbers continue from the case maximum; existing rows are never
// touched. The immediate transaction lock serializes concurrent refreshes of
// the same case, so numbers cannot be assigned twice.
func (s *Store) AssignExhibits(ctx context.Context, caseID int64, refs []model.EvidenceRef) (int, error) {
	created := 0
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM legal_cases WHERE id = ?`, caseID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		var max sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			`SELECT MAX(exhibit_number) FROM exhibit_entries WHERE case_id = ?`, caseID).Scan(&max); err != nil {
			return err
		}
		next := int(max.Int64) + 1

		now := fmtTime(time.Now().UTC())
		for _, ref := range refs {
			var one int
			err := tx.QueryRowContext(ctx,
				`SELECT 1 FROM exhibit_entries WHERE case_id = ? AND content_kind = ? AND content_id = ?`,
				caseID, ref.Kind, ref.ID).Scan(&one)
			if err == nil {
				continue
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO exhibit_entries (case_id, content_kind, content_id, exhibit_number, created_at)
				 VALUES (?, ?, ?, ?, ?)`,
				caseID, ref.Kind, ref.ID, next, now); err != nil {
				return err
			}
			next++
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (s *Store) GetExhibitNumber(ctx context.Context, caseID int64, ref model.EvidenceRef) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT exhibit_number FROM exhibit_entries WHERE case_id = ? AND content_kind = ? AND content_id = ?`,
		caseID, ref.Kind, ref.ID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return n, err
}

func (s *Store) ListExhibits(ctx context.Context, caseID int64) ([]model.ExhibitEntry, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, case_id, content_kind, content_id, exhibit_number, created_at
		 FROM exhibit_entries WHERE case_id = ? ORDER BY exhibit_number`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ExhibitEntry
	for rows.Next() {
		var e model.ExhibitEntry
		var created string
		if err := rows.Scan(&e.ID, &e.CaseID, &e.ContentKind, &e.ContentID, &e.ExhibitNumber, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(created)
		out = append(out, e)
	}
	return out, rows.Err()
}
