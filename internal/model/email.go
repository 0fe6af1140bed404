package model

import "time"

type EmailThread struct {
	ID       int64  `json:"id"`
	ThreadID string `json:"thread_id"`
	Subject  string `json:"subject"`
	Source   string `json:"source"`
}

type Email struct {
	ID                  int64        `json:"id"`
	ThreadPK            int64        `json:"thread_pk"`
	MessageID           string       `json:"message_id"`
	Subject             string       `json:"subject"`
	SenderRaw           string       `json:"sender_raw"`
	ToRaw               string       `json:"to_raw"`
	CcRaw               string       `json:"cc_raw"`
	BccRaw              string       `json:"bcc_raw"`
	DateSent            time.Time    `json:"date_sent"`
	BodyText            string       `json:"body_text"`
	EmlPath             string       `json:"eml_path"`
	Source              string       `json:"source"`
	InReplyTo           string       `json:"in_reply_to"`
	References          string       `json:"references"`
	SenderProtagonistID *int64       `json:"sender_protagonist_id,omitempty"`
	Sender              *Protagonist `json:"sender,omitempty"`
	RecipientIDs        []int64      `json:"recipient_ids,omitempty"`
}

type EmailQuote struct {
	ID        int64     `json:"id"`
	EmailID   int64     `json:"email_id"`
	QuoteText string    `json:"quote_text"`
	CreatedAt time.Time `json:"created_at"`
}
