package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
)

func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO events (date, explanation, parent_event_id, allegation_node_id, email_id, email_quote, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			fmtTime(e.Date), e.Explanation, nullInt(e.ParentEventID), nullInt(e.AllegationNodeID),
			nullInt(e.EmailID), e.EmailQuote, fmtTime(e.CreatedAt))
		if err != nil {
			return err
		}
		if e.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		for _, pid := range e.PhotoIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO event_photos (event_id, photo_id) VALUES (?, ?)`,
				e.ID, pid); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	var e model.Event
	var date, created string
	var parentID, nodeID, emailID sql.NullInt64
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, date, explanation, parent_event_id, allegation_node_id, email_id, email_quote, created_at
		 FROM events WHERE id = ?`, id).
		Scan(&e.ID, &date, &e.Explanation, &parentID, &nodeID, &emailID, &e.EmailQuote, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Date = parseTime(date)
	e.CreatedAt = parseTime(created)
	e.ParentEventID = int64Ptr(parentID)
	e.AllegationNodeID = int64Ptr(nodeID)
	e.EmailID = int64Ptr(emailID)

	rows, err := s.DB.QueryContext(ctx,
		`SELECT photo_id FROM event_photos WHERE event_id = ? ORDER BY photo_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var pid int64
		if err := rows.Scan(&pid); err != nil {
			return nil, err
		}
		e.PhotoIDs = append(e.PhotoIDs, pid)
	}
	return &e, rows.Err()
}

// SetEventPhotos replaces the photo links; duplicates across sources are
// collapsed by the primary key.
func (s *Store) SetEventPhotos(ctx context.Context, eventID int64, photoIDs []int64) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM event_photos WHERE event_id = ?`, eventID); err != nil {
			return err
		}
		for _, pid := range photoIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO event_photos (event_id, photo_id) VALUES (?, ?)`,
				eventID, pid); err != nil {
				return err
			}
		}
		return nil
	})
}
