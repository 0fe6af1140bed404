package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
)

// narrativeM2M maps an evidence kind to its narrative join table.
var narrativeM2M = map[model.EvidenceKind]struct{ table, column string }{
	model.KindStatement:     {"narrative_source_statements", "statement_id"},
	model.KindEvent:         {"narrative_events", "event_id"},
	model.KindEmailQuote:    {"narrative_email_quotes", "email_quote_id"},
	model.KindPDFQuote:      {"narrative_pdf_quotes", "pdf_quote_id"},
	model.KindPhotoDocument: {"narrative_photo_documents", "photo_document_id"},
	model.KindChatSequence:  {"narrative_chat_sequences", "chat_sequence_id"},
}

func (s *Store) CreateNarrative(ctx context.Context, n *model.TrameNarrative) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.TypeArgument == "" {
		n.TypeArgument = model.ArgumentContradiction
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO narratives (title, summary, type_argument, ai_analysis_json, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		n.Title, n.Summary, n.TypeArgument, n.AIAnalysisJSON, fmtTime(n.CreatedAt))
	if err != nil {
		return err
	}
	n.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetNarrative(ctx context.Context, id int64) (*model.TrameNarrative, error) {
	var n model.TrameNarrative
	var created string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, title, summary, type_argument, ai_analysis_json, created_at
		 FROM narratives WHERE id = ?`, id).
		Scan(&n.ID, &n.Title, &n.Summary, &n.TypeArgument, &n.AIAnalysisJSON, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	n.CreatedAt = parseTime(created)

	var lerr error
	n.TargetedStatementIDs, lerr = s.listIDs(ctx,
		`SELECT statement_id FROM narrative_targeted_statements WHERE narrative_id = ? ORDER BY statement_id`, id)
	if lerr != nil {
		return nil, lerr
	}
	n.SourceStatementIDs, lerr = s.listIDs(ctx,
		`SELECT statement_id FROM narrative_source_statements WHERE narrative_id = ? ORDER BY statement_id`, id)
	if lerr != nil {
		return nil, lerr
	}
	n.EventIDs, lerr = s.listIDs(ctx,
		`SELECT event_id FROM narrative_events WHERE narrative_id = ? ORDER BY event_id`, id)
	if lerr != nil {
		return nil, lerr
	}
	n.EmailQuoteIDs, lerr = s.listIDs(ctx,
		`SELECT email_quote_id FROM narrative_email_quotes WHERE narrative_id = ? ORDER BY email_quote_id`, id)
	if lerr != nil {
		return nil, lerr
	}
	n.PDFQuoteIDs, lerr = s.listIDs(ctx,
		`SELECT pdf_quote_id FROM narrative_pdf_quotes WHERE narrative_id = ? ORDER BY pdf_quote_id`, id)
	if lerr != nil {
		return nil, lerr
	}
	n.PhotoDocumentIDs, lerr = s.listIDs(ctx,
		`SELECT photo_document_id FROM narrative_photo_documents WHERE narrative_id = ? ORDER BY photo_document_id`, id)
	if lerr != nil {
		return nil, lerr
	}
	n.ChatSequenceIDs, lerr = s.listIDs(ctx,
		`SELECT chat_sequence_id FROM narrative_chat_sequences WHERE narrative_id = ? ORDER BY chat_sequence_id`, id)
	if lerr != nil {
		return nil, lerr
	}
	return &n, nil
}

func (s *Store) listIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) UpdateNarrative(ctx context.Context, n *model.TrameNarrative) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE narratives SET title = ?, summary = ?, type_argument = ? WHERE id = ?`,
		n.Title, n.Summary, n.TypeArgument, n.ID)
	if err != nil {
		return err
	}
	if rn, _ := res.RowsAffected(); rn == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdateNarrativeAnalysis(ctx context.Context, id int64, analysisJSON string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE narratives SET ai_analysis_json = ? WHERE id = ?`, analysisJSON, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetNarrativeEvidence replaces one evidence collection of a narrative.
// Callers go through the exhibit mediator, never here directly, so every
// mutation triggers a registry refresh on the containing cases.
func (s *Store) SetNarrativeEvidence(ctx context.Context, narrativeID int64, kind model.EvidenceKind, ids []int64) error {
	m2m, ok := narrativeM2M[kind]
	if !ok {
		return fmt.Errorf("evidence kind %q has no narrative collection", kind)
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+m2m.table+` WHERE narrative_id = ?`, narrativeID); err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO `+m2m.table+` (narrative_id, `+m2m.column+`) VALUES (?, ?)`,
				narrativeID, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) SetNarrativeTargets(ctx context.Context, narrativeID int64, statementIDs []int64) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM narrative_targeted_statements WHERE narrative_id = ?`, narrativeID); err != nil {
			return err
		}
		for _, id := range statementIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO narrative_targeted_statements (narrative_id, statement_id) VALUES (?, ?)`,
				narrativeID, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// CasesContainingNarrative lists every case whose contestations link the
// narrative. Registry refresh fans out over this set.
func (s *Store) CasesContainingNarrative(ctx context.Context, narrativeID int64) ([]int64, error) {
	return s.listIDs(ctx,
		`SELECT DISTINCT c.case_id FROM contestations c
		 JOIN contestation_narratives cn ON cn.contestation_id = c.id
		 WHERE cn.narrative_id = ?
		 ORDER BY c.case_id`, narrativeID)
}

func (s *Store) ListNarratives(ctx context.Context) ([]model.TrameNarrative, error) {
	ids, err := s.listIDs(ctx, `SELECT id FROM narratives ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	var out []model.TrameNarrative
	for _, id := range ids {
		n, err := s.GetNarrative(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, nil
}
