package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
)

func (s *Store) GetOrCreateChatParticipant(ctx context.Context, rawIdentity string) (*model.ChatParticipant, error) {
	var p model.ChatParticipant
	var protagonistID sql.NullInt64
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, raw_identity, protagonist_id FROM chat_participants WHERE raw_identity = ?`,
		rawIdentity).Scan(&p.ID, &p.RawIdentity, &protagonistID)
	if err == nil {
		p.ProtagonistID = int64Ptr(protagonistID)
		return &p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO chat_participants (raw_identity) VALUES (?)`, rawIdentity)
	if err != nil {
		return nil, err
	}
	p.RawIdentity = rawIdentity
	p.ID, err = res.LastInsertId()
	return &p, err
}

func (s *Store) LinkChatParticipant(ctx context.Context, participantID, protagonistID int64) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE chat_participants SET protagonist_id = ? WHERE id = ?`, protagonistID, participantID)
	return err
}

func (s *Store) CreateChatMessage(ctx context.Context, m *model.ChatMessage) error {
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO chat_messages (participant_id, timestamp, text, topic_id, raw_json)
		 VALUES (?, ?, ?, ?, ?)`,
		m.ParticipantID, fmtTime(m.Timestamp), m.Text, m.TopicID, m.RawJSON)
	if err != nil {
		return err
	}
	m.ID, err = res.LastInsertId()
	return err
}

func (s *Store) CreateChatSequence(ctx context.Context, seq *model.ChatSequence) error {
	if seq.CreatedAt.IsZero() {
		seq.CreatedAt = time.Now().UTC()
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO chat_sequences (title, created_at) VALUES (?, ?)`,
		seq.Title, fmtTime(seq.CreatedAt))
	if err != nil {
		return err
	}
	if seq.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	if len(seq.MessageIDs) > 0 {
		return s.SetSequenceMessages(ctx, seq.ID, seq.MessageIDs)
	}
	return nil
}

// SetSequenceMessages replaces the message set and recomputes start/end
// dates from min/max timestamps, all in one transaction.
func (s *Store) SetSequenceMessages(ctx context.Context, sequenceID int64, messageIDs []int64) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM chat_sequence_messages WHERE sequence_id = ?`, sequenceID); err != nil {
			return err
		}
		for i, mid := range messageIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO chat_sequence_messages (sequence_id, message_id, position) VALUES (?, ?, ?)`,
				sequenceID, mid, i); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE chat_sequences SET
				start_date = (SELECT MIN(m.timestamp) FROM chat_messages m
					JOIN chat_sequence_messages sm ON sm.message_id = m.id WHERE sm.sequence_id = ?),
				end_date = (SELECT MAX(m.timestamp) FROM chat_messages m
					JOIN chat_sequence_messages sm ON sm.message_id = m.id WHERE sm.sequence_id = ?)
			 WHERE id = ?`,
			sequenceID, sequenceID, sequenceID)
		return err
	})
}

func (s *Store) GetChatSequence(ctx context.Context, id int64) (*model.ChatSequence, error) {
	var seq model.ChatSequence
	var start, end sql.NullString
	var created string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, title, start_date, end_date, created_at FROM chat_sequences WHERE id = ?`, id).
		Scan(&seq.ID, &seq.Title, &start, &end, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	seq.StartDate = parseTimeNull(start)
	seq.EndDate = parseTimeNull(end)
	seq.CreatedAt = parseTime(created)

	rows, err := s.DB.QueryContext(ctx,
		`SELECT message_id FROM chat_sequence_messages WHERE sequence_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var mid int64
		if err := rows.Scan(&mid); err != nil {
			return nil, err
		}
		seq.MessageIDs = append(seq.MessageIDs, mid)
	}
	return &seq, rows.Err()
}

// TranscriptLine is one rendered chat line with the sender resolved through
// the participant's protagonist when linked.
type TranscriptLine struct {
	Timestamp  time.Time
	SenderName string
	Text       string
}

func (s *Store) SequenceTranscript(ctx context.Context, sequenceID int64) ([]TranscriptLine, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT m.timestamp, m.text, cp.raw_identity, p.first_name, p.last_name
		 FROM chat_sequence_messages sm
		 JOIN chat_messages m ON m.id = sm.message_id
		 JOIN chat_participants cp ON cp.id = m.participant_id
		 LEFT JOIN protagonists p ON p.id = cp.protagonist_id
		 WHERE sm.sequence_id = ?
		 ORDER BY m.timestamp`, sequenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TranscriptLine
	for rows.Next() {
		var ts, text, raw string
		var first, last sql.NullString
		if err := rows.Scan(&ts, &text, &raw, &first, &last); err != nil {
			return nil, err
		}
		line := TranscriptLine{Timestamp: parseTime(ts), Text: text, SenderName: raw}
		if first.Valid {
			line.SenderName = first.String
			if last.Valid && last.String != "" {
				line.SenderName += " " + last.String
			}
		}
		out = append(out, line)
	}
	return out, rows.Err()
}
