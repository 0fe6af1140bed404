package model

import "time"

type PDFDocument struct {
	ID                  int64        `json:"id"`
	Title               string       `json:"title"`
	AuthorProtagonistID *int64       `json:"author_protagonist_id,omitempty"`
	Author              *Protagonist `json:"author,omitempty"`
	DocumentDate        *time.Time   `json:"document_date,omitempty"`
	DocType             string       `json:"doc_type"`
	FilePath            string       `json:"file_path"`
	UploadedAt          time.Time    `json:"uploaded_at"`
	AIAnalysis          string       `json:"ai_analysis,omitempty"`
}

type PDFQuote struct {
	ID            int64     `json:"id"`
	PDFDocumentID int64     `json:"pdf_document_id"`
	QuoteText     string    `json:"quote_text"`
	PageNumber    int       `json:"page_number"`
	CreatedAt     time.Time `json:"created_at"`
}
