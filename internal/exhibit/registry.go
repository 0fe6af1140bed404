// Package exhibit assigns stable P-N labels to every unique evidence object
// referenced by a case. Numbers are monotonic and never reassigned.
package exhibit

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

type Registry struct {
	Store *store.Store
}

func NewRegistry(s *store.Store) *Registry {
	return &Registry{Store: s}
}

// Label renders an exhibit number as the court-facing "P-N" form.
func Label(n int) string {
	return fmt.Sprintf("P-%d", n)
}

// RefreshCase scans the case graph (contestations → narratives → evidence)
// and get-or-creates a registry row per unique object. Existing rows are
// never touched, so labels are stable under any later mutation. Returns the
// number of rows created.
func (r *Registry) RefreshCase(ctx context.Context, caseID int64) (int, error) {
	refs, err := r.collectCaseEvidence(ctx, caseID)
	if err != nil {
		return 0, err
	}
	return r.Store.AssignExhibits(ctx, caseID, refs)
}

// collectCaseEvidence builds the deterministic iteration order: evidence
// kinds in a fixed sequence, ascending id within each kind. Quotes resolve
// to their parent container (Email, PDFDocument).
func (r *Registry) collectCaseEvidence(ctx context.Context, caseID int64) ([]model.EvidenceRef, error) {
	contestations, err := r.Store.ListContestationsByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	sets := map[model.EvidenceKind]map[int64]bool{
		model.KindEvent:         {},
		model.KindEmail:         {},
		model.KindPDFDocument:   {},
		model.KindPhotoDocument: {},
		model.KindChatSequence:  {},
	}

	for _, pc := range contestations {
		for _, nid := range pc.NarrativeIDs {
			n, err := r.Store.GetNarrative(ctx, nid)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			for _, id := range n.EventIDs {
				sets[model.KindEvent][id] = true
			}
			for _, id := range n.EmailQuoteIDs {
				q, err := r.Store.GetEmailQuote(ctx, id)
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				if err != nil {
					return nil, err
				}
				sets[model.KindEmail][q.EmailID] = true
			}
			for _, id := range n.PDFQuoteIDs {
				q, err := r.Store.GetPDFQuote(ctx, id)
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				if err != nil {
					return nil, err
				}
				sets[model.KindPDFDocument][q.PDFDocumentID] = true
			}
			for _, id := range n.PhotoDocumentIDs {
				sets[model.KindPhotoDocument][id] = true
			}
			for _, id := range n.ChatSequenceIDs {
				sets[model.KindChatSequence][id] = true
			}
		}
	}

	kindOrder := []model.EvidenceKind{
		model.KindEvent,
		model.KindEmail,
		model.KindPDFDocument,
		model.KindPhotoDocument,
		model.KindChatSequence,
	}
	var refs []model.EvidenceRef
	for _, kind := range kindOrder {
		ids := make([]int64, 0, len(sets[kind]))
		for id := range sets[kind] {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			refs = append(refs, model.EvidenceRef{Kind: kind, ID: id})
		}
	}
	return refs, nil
}

// LabelFor resolves the label of one object within a case, or "" when the
// object has no entry yet.
func (r *Registry) LabelFor(ctx context.Context, caseID int64, ref model.EvidenceRef) (string, error) {
	n, err := r.Store.GetExhibitNumber(ctx, caseID, ref)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return Label(n), nil
}
