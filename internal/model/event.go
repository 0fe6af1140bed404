package model

import "time"

type Event struct {
	ID               int64     `json:"id"`
	Date             time.Time `json:"date"` // date-only, midnight in local zone
	Explanation      string    `json:"explanation"`
	ParentEventID    *int64    `json:"parent_event_id,omitempty"`
	AllegationNodeID *int64    `json:"allegation_node_id,omitempty"`
	EmailID          *int64    `json:"email_id,omitempty"`
	EmailQuote       string    `json:"email_quote,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	PhotoIDs         []int64   `json:"photo_ids,omitempty"`
}
