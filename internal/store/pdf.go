package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
)

func (s *Store) CreatePDFDocument(ctx context.Context, d *model.PDFDocument) error {
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now().UTC()
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO pdf_documents (title, author_protagonist_id, document_date, doc_type, file_path, uploaded_at, ai_analysis)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.Title, nullInt(d.AuthorProtagonistID), fmtTimePtr(d.DocumentDate),
		d.DocType, d.FilePath, fmtTime(d.UploadedAt), d.AIAnalysis)
	if err != nil {
		return err
	}
	d.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetPDFDocument(ctx context.Context, id int64) (*model.PDFDocument, error) {
	var d model.PDFDocument
	var authorID sql.NullInt64
	var docDate sql.NullString
	var uploaded string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, title, author_protagonist_id, document_date, doc_type, file_path, uploaded_at, ai_analysis
		 FROM pdf_documents WHERE id = ?`, id).
		Scan(&d.ID, &d.Title, &authorID, &docDate, &d.DocType, &d.FilePath, &uploaded, &d.AIAnalysis)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.AuthorProtagonistID = int64Ptr(authorID)
	d.DocumentDate = parseTimeNull(docDate)
	d.UploadedAt = parseTime(uploaded)
	if d.AuthorProtagonistID != nil {
		d.Author, _ = s.GetProtagonist(ctx, *d.AuthorProtagonistID)
	}
	return &d, nil
}

func (s *Store) UpdatePDFAnalysis(ctx context.Context, id int64, analysis string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE pdf_documents SET ai_analysis = ? WHERE id = ?`, analysis, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreatePDFQuote(ctx context.Context, q *model.PDFQuote) error {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO pdf_quotes (pdf_document_id, quote_text, page_number, created_at) VALUES (?, ?, ?, ?)`,
		q.PDFDocumentID, q.QuoteText, q.PageNumber, fmtTime(q.CreatedAt))
	if err != nil {
		return err
	}
	q.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetPDFQuote(ctx context.Context, id int64) (*model.PDFQuote, error) {
	var q model.PDFQuote
	var created string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, pdf_document_id, quote_text, page_number, created_at FROM pdf_quotes WHERE id = ?`, id).
		Scan(&q.ID, &q.PDFDocumentID, &q.QuoteText, &q.PageNumber, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	q.CreatedAt = parseTime(created)
	return &q, nil
}

func (s *Store) UpdatePDFQuote(ctx context.Context, id int64, quoteText string, pageNumber int) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE pdf_quotes SET quote_text = ?, page_number = ? WHERE id = ?`,
		quoteText, pageNumber, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeletePDFQuote(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM pdf_quotes WHERE id = ?`, id)
	return err
}
