package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
)

func (s *Store) GetThreadByThreadID(ctx context.Context, threadID string) (*model.EmailThread, error) {
	var t model.EmailThread
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, thread_id, subject, source FROM email_threads WHERE thread_id = ?`, threadID).
		Scan(&t.ID, &t.ThreadID, &t.Subject, &t.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) CreateThreadTx(ctx context.Context, tx *sql.Tx, t *model.EmailThread) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO email_threads (thread_id, subject, source) VALUES (?, ?, ?)`,
		t.ThreadID, t.Subject, t.Source)
	if err != nil {
		return err
	}
	t.ID, err = res.LastInsertId()
	return err
}

// KnownThreadIDs filters the given provider thread ids down to those already
// saved, so a provider search only streams the new ones.
func (s *Store) KnownThreadIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	known := make(map[string]bool)
	for _, id := range ids {
		var one int
		err := s.DB.QueryRowContext(ctx,
			`SELECT 1 FROM email_threads WHERE thread_id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		known[id] = true
	}
	return known, nil
}

func (s *Store) EmailExists(ctx context.Context, messageID string) (bool, error) {
	var one int
	err := s.DB.QueryRowContext(ctx,
		`SELECT 1 FROM emails WHERE message_id = ?`, messageID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ThreadPKForMessageID resolves the saved thread holding a message id, used
// to attach uploaded replies to their existing conversation.
func (s *Store) ThreadPKForMessageID(ctx context.Context, messageID string) (int64, error) {
	var pk int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT thread_pk FROM emails WHERE message_id = ?`, messageID).Scan(&pk)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return pk, err
}

func (s *Store) CreateEmailTx(ctx context.Context, tx *sql.Tx, e *model.Email) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO emails (thread_pk, message_id, subject, sender_raw, to_raw, cc_raw, bcc_raw,
		                     date_sent, body_text, eml_path, source, in_reply_to, references_hdr,
		                     sender_protagonist_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ThreadPK, e.MessageID, e.Subject, e.SenderRaw, e.ToRaw, e.CcRaw, e.BccRaw,
		fmtTime(e.DateSent), e.BodyText, e.EmlPath, e.Source, e.InReplyTo, e.References,
		nullInt(e.SenderProtagonistID))
	if err != nil {
		return err
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	for _, pid := range e.RecipientIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO email_recipients (email_id, protagonist_id) VALUES (?, ?)`,
			e.ID, pid); err != nil {
			return err
		}
	}
	return nil
}

const emailCols = `id, thread_pk, message_id, subject, sender_raw, to_raw, cc_raw, bcc_raw,
	date_sent, body_text, eml_path, source, in_reply_to, references_hdr, sender_protagonist_id`

func scanEmail(scan func(...any) error) (*model.Email, error) {
	var e model.Email
	var dateSent string
	var senderID sql.NullInt64
	err := scan(&e.ID, &e.ThreadPK, &e.MessageID, &e.Subject, &e.SenderRaw, &e.ToRaw,
		&e.CcRaw, &e.BccRaw, &dateSent, &e.BodyText, &e.EmlPath, &e.Source,
		&e.InReplyTo, &e.References, &senderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.DateSent = parseTime(dateSent)
	e.SenderProtagonistID = int64Ptr(senderID)
	return &e, nil
}

func (s *Store) GetEmail(ctx context.Context, id int64) (*model.Email, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+emailCols+` FROM emails WHERE id = ?`, id)
	e, err := scanEmail(row.Scan)
	if err != nil {
		return nil, err
	}
	if e.SenderProtagonistID != nil {
		e.Sender, _ = s.GetProtagonist(ctx, *e.SenderProtagonistID)
	}
	return e, nil
}

func (s *Store) ListEmailsByThread(ctx context.Context, threadPK int64) ([]model.Email, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+emailCols+` FROM emails WHERE thread_pk = ? ORDER BY date_sent`, threadPK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Email
	for rows.Next() {
		e, err := scanEmail(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// MessageIDsForThread supports the delta sync: diff against the remote set
// and fetch only the missing messages.
func (s *Store) MessageIDsForThread(ctx context.Context, threadPK int64) (map[string]bool, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT message_id FROM emails WHERE thread_pk = ?`, threadPK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// ThreadDate is min(date_sent) over the thread's emails.
func (s *Store) ThreadDate(ctx context.Context, threadPK int64) (time.Time, error) {
	var min sql.NullString
	err := s.DB.QueryRowContext(ctx,
		`SELECT MIN(date_sent) FROM emails WHERE thread_pk = ?`, threadPK).Scan(&min)
	if err != nil || !min.Valid {
		return time.Time{}, err
	}
	return parseTime(min.String), nil
}

func (s *Store) CreateEmailQuote(ctx context.Context, q *model.EmailQuote) error {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO email_quotes (email_id, quote_text, created_at) VALUES (?, ?, ?)`,
		q.EmailID, q.QuoteText, fmtTime(q.CreatedAt))
	if err != nil {
		return err
	}
	q.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetEmailQuote(ctx context.Context, id int64) (*model.EmailQuote, error) {
	var q model.EmailQuote
	var created string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, email_id, quote_text, created_at FROM email_quotes WHERE id = ?`, id).
		Scan(&q.ID, &q.EmailID, &q.QuoteText, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	q.CreatedAt = parseTime(created)
	return &q, nil
}

// UpdateEmailQuote is content-only; the parent email never changes.
func (s *Store) UpdateEmailQuote(ctx context.Context, id int64, quoteText string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE email_quotes SET quote_text = ? WHERE id = ?`, quoteText, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteEmailQuote(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM email_quotes WHERE id = ?`, id)
	return err
}
