package model

import (
	"encoding/json"
	"time"
)

type LegalCase struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// PerjuryContestation attacks a set of allegations with supporting
// narratives. The four sections are the user's finalized argument.
type PerjuryContestation struct {
	ID                 int64     `json:"id"`
	CaseID             int64     `json:"case_id"`
	Title              string    `json:"title"`
	SectionDeclaration string    `json:"section_declaration"`
	SectionProof       string    `json:"section_proof"`
	SectionMensRea     string    `json:"section_mens_rea"`
	SectionIntent      string    `json:"section_intent"`
	CreatedAt          time.Time `json:"created_at"`

	TargetedStatementIDs []int64 `json:"targeted_statement_ids,omitempty"`
	NarrativeIDs         []int64 `json:"narrative_ids,omitempty"`
}

// ExhibitEntry maps one evidence object to its exhibit number within a case.
// The number is assigned once and never changes.
type ExhibitEntry struct {
	ID            int64        `json:"id"`
	CaseID        int64        `json:"case_id"`
	ContentKind   EvidenceKind `json:"content_kind"`
	ContentID     int64        `json:"content_id"`
	ExhibitNumber int          `json:"exhibit_number"`
	CreatedAt     time.Time    `json:"created_at"`
}

// AISuggestion records one LLM generation attempt against a contestation.
// RawResponse is always persisted, even when the JSON does not decode.
type AISuggestion struct {
	ID             int64           `json:"id"`
	ContestationID int64           `json:"contestation_id"`
	RawResponse    string          `json:"raw_response"`
	Content        json.RawMessage `json:"content,omitempty"`
	ParsingSuccess bool            `json:"parsing_success"`
	ModelVersion   string          `json:"model_version"`
	CreatedAt      time.Time       `json:"created_at"`
}
