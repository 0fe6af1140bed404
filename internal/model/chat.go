package model

import "time"

type ChatParticipant struct {
	ID            int64  `json:"id"`
	RawIdentity   string `json:"raw_identity"` // email from the Takeout export
	ProtagonistID *int64 `json:"protagonist_id,omitempty"`
}

type ChatMessage struct {
	ID            int64     `json:"id"`
	ParticipantID int64     `json:"participant_id"`
	Timestamp     time.Time `json:"timestamp"`
	Text          string    `json:"text"`
	TopicID       string    `json:"topic_id"`
	RawJSON       string    `json:"raw_json,omitempty"`
}

// ChatSequence is a user-curated ordered subset of messages. Start and end
// dates are derived from the message set and recomputed on every mutation.
type ChatSequence struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	MessageIDs []int64    `json:"message_ids,omitempty"`
}
