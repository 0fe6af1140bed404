package model

import "time"

const (
	ArgumentContradiction = "CONTRADICTION"
	ArgumentSupport       = "SUPPORT"
)

// TrameNarrative is the evidence dossier: a set of evidence confronted
// against the statements it argues about. It references evidence, never owns
// it; deleting a narrative leaves every leaf untouched.
type TrameNarrative struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary"` // rich text
	TypeArgument   string    `json:"type_argument"`
	AIAnalysisJSON string    `json:"ai_analysis_json,omitempty"`
	CreatedAt      time.Time `json:"created_at"`

	TargetedStatementIDs []int64 `json:"targeted_statement_ids,omitempty"`
	SourceStatementIDs   []int64 `json:"source_statement_ids,omitempty"`
	EventIDs             []int64 `json:"event_ids,omitempty"`
	EmailQuoteIDs        []int64 `json:"email_quote_ids,omitempty"`
	PDFQuoteIDs          []int64 `json:"pdf_quote_ids,omitempty"`
	PhotoDocumentIDs     []int64 `json:"photo_document_ids,omitempty"`
	ChatSequenceIDs      []int64 `json:"chat_sequence_ids,omitempty"`
}
