package model

// EvidenceKind tags the polymorphic links used by library nodes, narrative
// collections and the exhibit registry. Stored as-is in the content_kind
// columns, so values are part of the schema.
type EvidenceKind string

const (
	KindStatement     EvidenceKind = "statement"
	KindEmailQuote    EvidenceKind = "email_quote"
	KindPDFQuote      EvidenceKind = "pdf_quote"
	KindEvent         EvidenceKind = "event"
	KindPhotoDocument EvidenceKind = "photo_document"
	KindChatSequence  EvidenceKind = "chat_sequence"
	KindNarrative     EvidenceKind = "narrative"

	// Container kinds. The registry numbers the parent Email of a quote,
	// not the quote itself; same for PDF documents.
	KindEmail       EvidenceKind = "email"
	KindPDFDocument EvidenceKind = "pdf_document"
	KindDocument    EvidenceKind = "document"
)

// EvidenceRef identifies one evidence object of any kind.
type EvidenceRef struct {
	Kind EvidenceKind `json:"kind"`
	ID   int64        `json:"id"`
}
