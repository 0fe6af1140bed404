package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
)

func (s *Store) CreateCase(ctx context.Context, c *model.LegalCase) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO legal_cases (title, created_at) VALUES (?, ?)`,
		c.Title, fmtTime(c.CreatedAt))
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetCase(ctx context.Context, id int64) (*model.LegalCase, error) {
	var c model.LegalCase
	var created string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, title, created_at FROM legal_cases WHERE id = ?`, id).
		Scan(&c.ID, &c.Title, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(created)
	return &c, nil
}

func (s *Store) CreateContestation(ctx context.Context, pc *model.PerjuryContestation) error {
	if pc.CreatedAt.IsZero() {
		pc.CreatedAt = time.Now().UTC()
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO contestations (case_id, title, section_declaration, section_proof, section_mens_rea, section_intent, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			pc.CaseID, pc.Title, pc.SectionDeclaration, pc.SectionProof,
			pc.SectionMensRea, pc.SectionIntent, fmtTime(pc.CreatedAt))
		if err != nil {
			return err
		}
		if pc.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		if err := s.setContestationTargetsTx(ctx, tx, pc.ID, pc.CaseID, pc.TargetedStatementIDs); err != nil {
			return err
		}
		for _, nid := range pc.NarrativeIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO contestation_narratives (contestation_id, narrative_id) VALUES (?, ?)`,
				pc.ID, nid); err != nil {
				return err
			}
		}
		return nil
	})
}

// setContestationTargetsTx enforces the one-contestation-per-statement rule:
// a statement already targeted by a different contestation in the same case
// is rejected with ErrAlreadyTargeted.
func (s *Store) setContestationTargetsTx(ctx context.Context, tx *sql.Tx, contestationID, caseID int64, statementIDs []int64) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM contestation_targeted_statements WHERE contestation_id = ?`, contestationID); err != nil {
		return err
	}
	for _, sid := range statementIDs {
		var other int64
		err := tx.QueryRowContext(ctx,
			`SELECT cts.contestation_id FROM contestation_targeted_statements cts
			 JOIN contestations c ON c.id = cts.contestation_id
			 WHERE cts.statement_id = ? AND c.case_id = ? AND cts.contestation_id != ?`,
			sid, caseID, contestationID).Scan(&other)
		if err == nil {
			return ErrAlreadyTargeted
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO contestation_targeted_statements (contestation_id, statement_id) VALUES (?, ?)`,
			contestationID, sid); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SetContestationTargets(ctx context.Context, contestationID int64, statementIDs []int64) error {
	pc, err := s.GetContestation(ctx, contestationID)
	if err != nil {
		return err
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		return s.setContestationTargetsTx(ctx, tx, contestationID, pc.CaseID, statementIDs)
	})
}

func (s *Store) SetContestationNarratives(ctx context.Context, contestationID int64, narrativeIDs []int64) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM contestation_narratives WHERE contestation_id = ?`, contestationID); err != nil {
			return err
		}
		for _, nid := range narrativeIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO contestation_narratives (contestation_id, narrative_id) VALUES (?, ?)`,
				contestationID, nid); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetContestation(ctx context.Context, id int64) (*model.PerjuryContestation, error) {
	var pc model.PerjuryContestation
	var created string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, case_id, title, section_declaration, section_proof, section_mens_rea, section_intent, created_at
		 FROM contestations WHERE id = ?`, id).
		Scan(&pc.ID, &pc.CaseID, &pc.Title, &pc.SectionDeclaration, &pc.SectionProof,
			&pc.SectionMensRea, &pc.SectionIntent, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	pc.CreatedAt = parseTime(created)

	pc.TargetedStatementIDs, err = s.listIDs(ctx,
		`SELECT statement_id FROM contestation_targeted_statements WHERE contestation_id = ? ORDER BY statement_id`, id)
	if err != nil {
		return nil, err
	}
	pc.NarrativeIDs, err = s.listIDs(ctx,
		`SELECT narrative_id FROM contestation_narratives WHERE contestation_id = ? ORDER BY narrative_id`, id)
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

func (s *Store) ListContestationsByCase(ctx context.Context, caseID int64) ([]model.PerjuryContestation, error) {
	ids, err := s.listIDs(ctx,
		`SELECT id FROM contestations WHERE case_id = ? ORDER BY id`, caseID)
	if err != nil {
		return nil, err
	}
	var out []model.PerjuryContestation
	for _, id := range ids {
		pc, err := s.GetContestation(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *pc)
	}
	return out, nil
}

// UpdateContestationSections is the finalization save: the four argument
// sections, edited freely by the user.
func (s *Store) UpdateContestationSections(ctx context.Context, pc *model.PerjuryContestation) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE contestations SET title = ?, section_declaration = ?, section_proof = ?,
		        section_mens_rea = ?, section_intent = ? WHERE id = ?`,
		pc.Title, pc.SectionDeclaration, pc.SectionProof, pc.SectionMensRea, pc.SectionIntent, pc.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteContestation(ctx context.Context, id int64) error {
	// Registry entries stay; exhibit numbers are stable across the case.
	_, err := s.DB.ExecContext(ctx, `DELETE FROM contestations WHERE id = ?`, id)
	return err
}

// CandidateStatements lists allegations not yet targeted by any contestation
// in the case: the queryset offered when composing a new contestation.
func (s *Store) CandidateStatements(ctx context.Context, caseID int64) ([]model.Statement, error) {
	ids, err := s.listIDs(ctx,
		`SELECT st.id FROM statements st
		 WHERE st.is_true = 0 AND st.is_falsifiable = 1
		   AND st.id NOT IN (
			SELECT cts.statement_id FROM contestation_targeted_statements cts
			JOIN contestations c ON c.id = cts.contestation_id
			WHERE c.case_id = ?)
		 ORDER BY st.id`, caseID)
	if err != nil {
		return nil, err
	}
	return s.GetStatementsByIDs(ctx, ids)
}

func (s *Store) CreateSuggestion(ctx context.Context, sug *model.AISuggestion) error {
	if sug.CreatedAt.IsZero() {
		sug.CreatedAt = time.Now().UTC()
	}
	content := "{}"
	if len(sug.Content) > 0 {
		content = string(sug.Content)
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO ai_suggestions (contestation_id, raw_response, content_json, parsing_success, model_version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sug.ContestationID, sug.RawResponse, content, sug.ParsingSuccess, sug.ModelVersion, fmtTime(sug.CreatedAt))
	if err != nil {
		return err
	}
	sug.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetSuggestion(ctx context.Context, id int64) (*model.AISuggestion, error) {
	var sug model.AISuggestion
	var content, created string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, contestation_id, raw_response, content_json, parsing_success, model_version, created_at
		 FROM ai_suggestions WHERE id = ?`, id).
		Scan(&sug.ID, &sug.ContestationID, &sug.RawResponse, &content, &sug.ParsingSuccess,
			&sug.ModelVersion, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sug.Content = json.RawMessage(content)
	sug.CreatedAt = parseTime(created)
	return &sug, nil
}

func (s *Store) UpdateSuggestionParse(ctx context.Context, id int64, content json.RawMessage, success bool) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE ai_suggestions SET content_json = ?, parsing_success = ? WHERE id = ?`,
		string(content), success, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSuggestionRaw exists for the retry flow: the user can fix the raw
// text in place before re-running the parse.
func (s *Store) UpdateSuggestionRaw(ctx context.Context, id int64, raw string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE ai_suggestions SET raw_response = ? WHERE id = ?`, raw, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListSuggestions(ctx context.Context, contestationID int64) ([]model.AISuggestion, error) {
	ids, err := s.listIDs(ctx,
		`SELECT id FROM ai_suggestions WHERE contestation_id = ? ORDER BY id`, contestationID)
	if err != nil {
		return nil, err
	}
	var out []model.AISuggestion
	for _, id := range ids {
		sug, err := s.GetSuggestion(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *sug)
	}
	return out, nil
}
