package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
)

func (s *Store) CreateProtagonist(ctx context.Context, p *model.Protagonist) error {
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO protagonists (first_name, last_name, role) VALUES (?, ?, ?)`,
		p.FirstName, p.LastName, p.Role)
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetProtagonist(ctx context.Context, id int64) (*model.Protagonist, error) {
	return getProtagonist(ctx, s.DB, id)
}

func getProtagonist(ctx context.Context, q dbtx, id int64) (*model.Protagonist, error) {
	var p model.Protagonist
	err := q.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, role FROM protagonists WHERE id = ?`, id).
		Scan(&p.ID, &p.FirstName, &p.LastName, &p.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListProtagonists(ctx context.Context) ([]model.Protagonist, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, first_name, last_name, role FROM protagonists ORDER BY last_name, first_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Protagonist
	for rows.Next() {
		var p model.Protagonist
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Role); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FindProtagonistByEmail resolves an address case-insensitively.
func (s *Store) FindProtagonistByEmail(ctx context.Context, address string) (*model.Protagonist, error) {
	var p model.Protagonist
	err := s.DB.QueryRowContext(ctx,
		`SELECT p.id, p.first_name, p.last_name, p.role
		 FROM protagonists p JOIN protagonist_emails e ON e.protagonist_id = p.id
		 WHERE e.address = ?`, address).
		Scan(&p.ID, &p.FirstName, &p.LastName, &p.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetOrCreateProtagonistByEmail is the transactional get-or-create behind
// reconciliation. Concurrent callers race on the unique address index; the
// loser re-reads the winner's row, so the call is idempotent.
func (s *Store) GetOrCreateProtagonistByEmail(ctx context.Context, address, firstName, lastName, role string) (*model.Protagonist, bool, error) {
	if p, err := s.FindProtagonistByEmail(ctx, address); err == nil {
		return p, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	var created *model.Protagonist
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO protagonists (first_name, last_name, role) VALUES (?, ?, ?)`,
			firstName, lastName, role)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO protagonist_emails (protagonist_id, address) VALUES (?, ?)`,
			id, address); err != nil {
			return err
		}
		created = &model.Protagonist{ID: id, FirstName: firstName, LastName: lastName, Role: role}
		return nil
	})
	if err != nil {
		// Unique violation means another caller created it first.
		if p, ferr := s.FindProtagonistByEmail(ctx, address); ferr == nil {
			return p, false, nil
		}
		return nil, false, err
	}
	return created, true, nil
}

func (s *Store) AddProtagonistEmail(ctx context.Context, protagonistID int64, address string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO protagonist_emails (protagonist_id, address) VALUES (?, ?)`,
		protagonistID, address)
	return err
}

func (s *Store) ListProtagonistEmails(ctx context.Context, protagonistID int64) ([]model.ProtagonistEmail, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, protagonist_id, address FROM protagonist_emails WHERE protagonist_id = ? ORDER BY id`,
		protagonistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ProtagonistEmail
	for rows.Next() {
		var e model.ProtagonistEmail
		if err := rows.Scan(&e.ID, &e.ProtagonistID, &e.Address); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MergeProtagonists moves every inbound reference from duplicate to original
// in one transaction, then deletes the duplicate. Batch updates, no per-row
// loops.
func (s *Store) MergeProtagonists(ctx context.Context, originalID, duplicateID int64) error {
	if originalID == duplicateID {
		return fmt.Errorf("cannot merge a protagonist into itself")
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProtagonistTx(ctx, tx, originalID); err != nil {
			return fmt.Errorf("original: %w", err)
		}
		if _, err := getProtagonistTx(ctx, tx, duplicateID); err != nil {
			return fmt.Errorf("duplicate: %w", err)
		}

		reassignments := []string{
			`UPDATE emails SET sender_protagonist_id = ? WHERE sender_protagonist_id = ?`,
			`UPDATE documents SET author_protagonist_id = ? WHERE author_protagonist_id = ?`,
			`UPDATE pdf_documents SET author_protagonist_id = ? WHERE author_protagonist_id = ?`,
			`UPDATE photo_documents SET author_protagonist_id = ? WHERE author_protagonist_id = ?`,
			`UPDATE chat_participants SET protagonist_id = ? WHERE protagonist_id = ?`,
			`UPDATE protagonist_emails SET protagonist_id = ? WHERE protagonist_id = ?`,
		}
		for _, stmt := range reassignments {
			if _, err := tx.ExecContext(ctx, stmt, originalID, duplicateID); err != nil {
				return err
			}
		}

		// Recipient rows may collide when both protagonists received the
		// same email; drop the duplicate's row in that case.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM email_recipients
			 WHERE protagonist_id = ?
			   AND email_id IN (SELECT email_id FROM email_recipients WHERE protagonist_id = ?)`,
			duplicateID, originalID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE email_recipients SET protagonist_id = ? WHERE protagonist_id = ?`,
			originalID, duplicateID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `DELETE FROM protagonists WHERE id = ?`, duplicateID)
		return err
	})
}

func getProtagonistTx(ctx context.Context, tx *sql.Tx, id int64) (*model.Protagonist, error) {
	return getProtagonist(ctx, tx, id)
}
