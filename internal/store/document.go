package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
)

func (s *Store) CreateDocument(ctx context.Context, d *model.Document) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO documents (title, source_type, author_protagonist_id, original_date, solemn_declaration, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.Title, d.SourceType, nullInt(d.AuthorProtagonistID), fmtTimePtr(d.OriginalDate),
		d.SolemnDeclaration, fmtTime(d.CreatedAt))
	if err != nil {
		return err
	}
	d.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetDocument(ctx context.Context, id int64) (*model.Document, error) {
	var d model.Document
	var authorID sql.NullInt64
	var origDate sql.NullString
	var created string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, title, source_type, author_protagonist_id, original_date, solemn_declaration, created_at
		 FROM documents WHERE id = ?`, id).
		Scan(&d.ID, &d.Title, &d.SourceType, &authorID, &origDate, &d.SolemnDeclaration, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.AuthorProtagonistID = int64Ptr(authorID)
	d.OriginalDate = parseTimeNull(origDate)
	d.CreatedAt = parseTime(created)
	if d.AuthorProtagonistID != nil {
		d.Author, _ = s.GetProtagonist(ctx, *d.AuthorProtagonistID)
	}
	return &d, nil
}

func (s *Store) ListDocuments(ctx context.Context, sourceType string) ([]model.Document, error) {
	query := `SELECT id FROM documents ORDER BY created_at`
	args := []any{}
	if sourceType != "" {
		query = `SELECT id FROM documents WHERE source_type = ? ORDER BY created_at`
		args = append(args, sourceType)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []model.Document
	for _, id := range ids {
		d, err := s.GetDocument(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

func (s *Store) CreateStatement(ctx context.Context, st *model.Statement) error {
	st.Normalize()
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO statements (text, is_true, is_falsifiable, is_user_created, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		st.Text, st.IsTrue, st.IsFalsifiable, st.IsUserCreated, fmtTime(st.CreatedAt))
	if err != nil {
		return err
	}
	st.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetStatement(ctx context.Context, id int64) (*model.Statement, error) {
	var st model.Statement
	var created string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, text, is_true, is_falsifiable, is_user_created, created_at
		 FROM statements WHERE id = ?`, id).
		Scan(&st.ID, &st.Text, &st.IsTrue, &st.IsFalsifiable, &st.IsUserCreated, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	st.CreatedAt = parseTime(created)
	return &st, nil
}

func (s *Store) UpdateStatement(ctx context.Context, st *model.Statement) error {
	st.Normalize()
	res, err := s.DB.ExecContext(ctx,
		`UPDATE statements SET text = ?, is_true = ?, is_falsifiable = ? WHERE id = ?`,
		st.Text, st.IsTrue, st.IsFalsifiable, st.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetStatementsByIDs(ctx context.Context, ids []int64) ([]model.Statement, error) {
	var out []model.Statement
	for _, id := range ids {
		st, err := s.GetStatement(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, nil
}
