package model

import "time"

const (
	SourceReproduced = "REPRODUCED" // imported adversary filing
	SourceProduced   = "PRODUCED"   // the user's own work
)

type Document struct {
	ID                  int64        `json:"id"`
	Title               string       `json:"title"`
	SourceType          string       `json:"source_type"`
	AuthorProtagonistID *int64       `json:"author_protagonist_id,omitempty"`
	Author              *Protagonist `json:"author,omitempty"`
	OriginalDate        *time.Time   `json:"original_date,omitempty"`
	SolemnDeclaration   string       `json:"solemn_declaration,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
}

// Statement is an atomic textual claim. IsTrue=false together with
// IsFalsifiable=true marks an allegation of perjury, the first-class target
// of contestations.
type Statement struct {
	ID            int64     `json:"id"`
	Text          string    `json:"text"`
	IsTrue        bool      `json:"is_true"`
	IsFalsifiable bool      `json:"is_falsifiable"`
	IsUserCreated bool      `json:"is_user_created"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s *Statement) IsAllegation() bool {
	return !s.IsTrue && s.IsFalsifiable
}

// Normalize enforces the truth/falsifiability coupling: a statement held
// true cannot simultaneously be flagged falsifiable.
func (s *Statement) Normalize() {
	if s.IsTrue {
		s.IsFalsifiable = false
	}
}

// LibraryNode is one node of a document's materialized-path forest. The path
// is the source of truth for the hierarchy; Depth = len(Path)/step.
type LibraryNode struct {
	ID          int64        `json:"id"`
	DocumentID  int64        `json:"document_id"`
	Path        string       `json:"path"`
	Depth       int          `json:"depth"`
	Item        string       `json:"item"`
	ContentKind EvidenceKind `json:"content_kind"`
	ContentID   int64        `json:"content_id"`
	CreatedAt   time.Time    `json:"created_at"`
}
