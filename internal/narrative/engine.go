// Package narrative fuses a dossier's evidence into chronological timelines
// confronted against targeted statements.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

// Item is the uniform shape every evidence kind reduces to for timeline
// consumers.
type Item struct {
	Kind        model.EvidenceKind `json:"type"`
	ObjectID    int64              `json:"object_id"`
	Date        time.Time          `json:"date"`
	HasDate     bool               `json:"has_date"`
	Content     string             `json:"content"`
	AuthorName  string             `json:"author_name"`
	AuthorRole  string             `json:"author_role"`
	SourceTitle string             `json:"source_title"`
	SortKey     string             `json:"sort_key"`
}

// SourceDoc is one container document referenced by a narrative: the parent
// Email of a quote, the parent PDFDocument, or the Document holding a
// statement.
type SourceDoc struct {
	Kind  model.EvidenceKind `json:"kind"`
	ID    int64              `json:"id"`
	Type  string             `json:"type"`
	Title string             `json:"title"`
	URL   string             `json:"url"`
}

type Engine struct {
	Store *store.Store
}

func NewEngine(s *store.Store) *Engine {
	return &Engine{Store: s}
}

// ChronologicalEvidence returns the narrative's dated items sorted by the
// tri-key (day, author, sort key), which groups same-day same-author
// evidence into one scene. Items with no effective date sort last.
func (e *Engine) ChronologicalEvidence(ctx context.Context, narrativeID int64) ([]Item, error) {
	n, err := e.Store.GetNarrative(ctx, narrativeID)
	if err != nil {
		return nil, err
	}
	items, err := e.collectItems(ctx, n)
	if err != nil {
		return nil, err
	}
	SortItems(items)
	return items, nil
}

// SortItems orders timeline items by the tri-key. Exported because the
// contestation dossier re-sorts after merging several narratives' items.
func SortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.HasDate != b.HasDate {
			return a.HasDate // unknown dates placed last, never dropped
		}
		ad, bd := a.Date.Format("2006-01-02"), b.Date.Format("2006-01-02")
		if ad != bd {
			return ad < bd
		}
		if a.AuthorName != b.AuthorName {
			return a.AuthorName < b.AuthorName
		}
		return a.SortKey < b.SortKey
	})
}

func (e *Engine) collectItems(ctx context.Context, n *model.TrameNarrative) ([]Item, error) {
	var items []Item

	for _, id := range n.EmailQuoteIDs {
		q, err := e.Store.GetEmailQuote(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		email, err := e.Store.GetEmail(ctx, q.EmailID)
		if err != nil {
			return nil, err
		}
		it := Item{
			Kind:        model.KindEmailQuote,
			ObjectID:    q.ID,
			Date:        email.DateSent,
			HasDate:     !email.DateSent.IsZero(),
			Content:     q.QuoteText,
			SourceTitle: email.Subject,
			SortKey:     q.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if email.Sender != nil {
			it.AuthorName = email.Sender.FullName()
			it.AuthorRole = email.Sender.Role
		}
		items = append(items, it)
	}

	for _, id := range n.PDFQuoteIDs {
		q, err := e.Store.GetPDFQuote(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		doc, err := e.Store.GetPDFDocument(ctx, q.PDFDocumentID)
		if err != nil {
			return nil, err
		}
		date := doc.UploadedAt // fallback
		if doc.DocumentDate != nil {
			date = *doc.DocumentDate
		}
		it := Item{
			Kind:        model.KindPDFQuote,
			ObjectID:    q.ID,
			Date:        date,
			HasDate:     !date.IsZero(),
			Content:     fmt.Sprintf("p. %d — %s", q.PageNumber, q.QuoteText),
			SourceTitle: doc.Title,
			SortKey:     q.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if doc.Author != nil {
			it.AuthorName = doc.Author.FullName()
			it.AuthorRole = doc.Author.Role
		}
		items = append(items, it)
	}

	for _, id := range n.SourceStatementIDs {
		it, err := e.statementItem(ctx, id)
		if err != nil {
			return nil, err
		}
		if it != nil {
			items = append(items, *it)
		}
	}

	for _, id := range n.EventIDs {
		ev, err := e.Store.GetEvent(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, Item{
			Kind:        model.KindEvent,
			ObjectID:    ev.ID,
			Date:        ev.Date,
			HasDate:     !ev.Date.IsZero(),
			Content:     ev.Explanation,
			SourceTitle: "Événement",
			SortKey:     ev.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}

	for _, id := range n.PhotoDocumentIDs {
		pd, err := e.Store.GetPhotoDocument(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		it := Item{
			Kind:        model.KindPhotoDocument,
			ObjectID:    pd.ID,
			Date:        pd.CreatedAt,
			HasDate:     !pd.CreatedAt.IsZero(),
			Content:     pd.Description,
			SourceTitle: pd.Title,
			SortKey:     pd.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if pd.Author != nil {
			it.AuthorName = pd.Author.FullName()
			it.AuthorRole = pd.Author.Role
		}
		items = append(items, it)
	}

	for _, id := range n.ChatSequenceIDs {
		seq, err := e.Store.GetChatSequence(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		it := Item{
			Kind:        model.KindChatSequence,
			ObjectID:    seq.ID,
			SourceTitle: seq.Title,
			SortKey:     seq.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if seq.StartDate != nil {
			it.Date = *seq.StartDate
			it.HasDate = true
		}
		lines, err := e.Store.SequenceTranscript(ctx, seq.ID)
		if err != nil {
			return nil, err
		}
		it.Content = transcriptPreview(lines)
		items = append(items, it)
	}

	return items, nil
}

// statementItem resolves a statement through its library node to recover the
// source document's date, author and in-document order. A statement from a
// document with no original date stays in the timeline with date unknown.
func (e *Engine) statementItem(ctx context.Context, statementID int64) (*Item, error) {
	st, err := e.Store.GetStatement(ctx, statementID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	it := Item{
		Kind:     model.KindStatement,
		ObjectID: st.ID,
		Content:  st.Text,
		SortKey:  st.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	node, err := e.Store.FindNodeForStatement(ctx, statementID)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("narrative: statement %d has no library node", statementID)
		return &it, nil
	}
	if err != nil {
		return nil, err
	}
	// In-document order: the node path keeps statements from the same
	// source in the document's own sequence.
	it.SortKey = node.Path
	doc, err := e.Store.GetDocument(ctx, node.DocumentID)
	if err != nil {
		return nil, err
	}
	it.SourceTitle = doc.Title
	if doc.OriginalDate != nil {
		it.Date = *doc.OriginalDate
		it.HasDate = true
	}
	if doc.Author != nil {
		it.AuthorName = doc.Author.FullName()
		it.AuthorRole = doc.Author.Role
	}
	return &it, nil
}

func transcriptPreview(lines []store.TranscriptLine) string {
	const max = 3
	out := ""
	for i, l := range lines {
		if i >= max {
			out += fmt.Sprintf("… (%d messages)", len(lines))
			break
		}
		out += fmt.Sprintf("[%s] %s: %s\n", l.Timestamp.Format("2006-01-02 15:04"), l.SenderName, l.Text)
	}
	return out
}

// SourceDocuments returns the unique container documents referenced by the
// narrative, in first-reference order.
func (e *Engine) SourceDocuments(ctx context.Context, narrativeID int64) ([]SourceDoc, error) {
	n, err := e.Store.GetNarrative(ctx, narrativeID)
	if err != nil {
		return nil, err
	}

	seen := make(map[model.EvidenceRef]bool)
	var out []SourceDoc
	add := func(d SourceDoc) {
		ref := model.EvidenceRef{Kind: d.Kind, ID: d.ID}
		if !seen[ref] {
			seen[ref] = true
			out = append(out, d)
		}
	}

	for _, id := range n.EmailQuoteIDs {
		q, err := e.Store.GetEmailQuote(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		email, err := e.Store.GetEmail(ctx, q.EmailID)
		if err != nil {
			return nil, err
		}
		add(SourceDoc{
			Kind: model.KindEmail, ID: email.ID, Type: "Courriel",
			Title: email.Subject, URL: fmt.Sprintf("/emails/%d", email.ID),
		})
	}
	for _, id := range n.PDFQuoteIDs {
		q, err := e.Store.GetPDFQuote(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		add(SourceDoc{
			Kind: model.KindPDFDocument, ID: q.PDFDocumentID, Type: "Document PDF",
			Title: pdfTitle(ctx, e.Store, q.PDFDocumentID),
			URL:   fmt.Sprintf("/pdf-documents/%d", q.PDFDocumentID),
		})
	}
	for _, id := range n.SourceStatementIDs {
		node, err := e.Store.FindNodeForStatement(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		doc, err := e.Store.GetDocument(ctx, node.DocumentID)
		if err != nil {
			return nil, err
		}
		add(SourceDoc{
			Kind: model.KindDocument, ID: doc.ID, Type: "Document",
			Title: doc.Title, URL: fmt.Sprintf("/documents/%d", doc.ID),
		})
	}
	return out, nil
}

func pdfTitle(ctx context.Context, s *store.Store, id int64) string {
	doc, err := s.GetPDFDocument(ctx, id)
	if err != nil {
		return ""
	}
	return doc.Title
}
