package exhibit

import (
	"context"
	"log"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

// Notifier is the application-level mediator standing in for database
// triggers: every narrative↔evidence or contestation↔narrative mutation goes
// through it so the registry refresh fires on each affected case. Keeping it
// in the application makes the refresh testable without a live server.
type Notifier struct {
	Store    *store.Store
	Registry *Registry
}

func NewNotifier(s *store.Store, r *Registry) *Notifier {
	return &Notifier{Store: s, Registry: r}
}

// SetNarrativeEvidence replaces one evidence collection of a narrative and
// refreshes every case containing the narrative.
func (n *Notifier) SetNarrativeEvidence(ctx context.Context, narrativeID int64, kind model.EvidenceKind, ids []int64) error {
	if err := n.Store.SetNarrativeEvidence(ctx, narrativeID, kind, ids); err != nil {
		return err
	}
	return n.refreshCasesOf(ctx, narrativeID)
}

// SetContestationNarratives relinks a contestation's narratives and
// refreshes its case.
func (n *Notifier) SetContestationNarratives(ctx context.Context, contestationID int64, narrativeIDs []int64) error {
	pc, err := n.Store.GetContestation(ctx, contestationID)
	if err != nil {
		return err
	}
	if err := n.Store.SetContestationNarratives(ctx, contestationID, narrativeIDs); err != nil {
		return err
	}
	_, err = n.Registry.RefreshCase(ctx, pc.CaseID)
	return err
}

func (n *Notifier) refreshCasesOf(ctx context.Context, narrativeID int64) error {
	caseIDs, err := n.Store.CasesContainingNarrative(ctx, narrativeID)
	if err != nil {
		return err
	}
	for _, cid := range caseIDs {
		created, err := n.Registry.RefreshCase(ctx, cid)
		if err != nil {
			return err
		}
		if created > 0 {
			log.Printf("exhibit: case %d gained %d exhibit(s)", cid, created)
		}
	}
	return nil
}
