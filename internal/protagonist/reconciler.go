// Package protagonist maps raw sender header fragments to canonical people.
package protagonist

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

// AutoGeneratedRole marks protagonists created by reconciliation rather than
// by the user.
const AutoGeneratedRole = "Auto-Generated"

var (
	// `"Display Name" <addr@host>` or `Display Name <addr@host>`
	displayAddrRe = regexp.MustCompile(`^\s*"?([^"<]*)"?\s*<\s*([^<>\s@]+@[^<>\s@]+)\s*>\s*$`)
	bareAddrRe    = regexp.MustCompile(`^\s*<?\s*([^<>\s@]+@[^<>\s@]+)\s*>?\s*$`)
)

type Reconciler struct {
	Store *store.Store
}

func NewReconciler(s *store.Store) *Reconciler {
	return &Reconciler{Store: s}
}

// Parse extracts (displayName, address) from a raw header fragment. The
// address is lowercased; displayName may be empty. ok is false for
// unparseable input.
func Parse(raw string) (displayName, address string, ok bool) {
	if m := displayAddrRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), strings.ToLower(m[2]), true
	}
	if m := bareAddrRe.FindStringSubmatch(raw); m != nil {
		return "", strings.ToLower(m[1]), true
	}
	return "", "", false
}

// nameFromParts derives (first, last) from the display name, falling back to
// the address local-part when there is no display name.
func nameFromParts(displayName, address string) (string, string) {
	if displayName == "" {
		local := address
		if i := strings.IndexByte(address, '@'); i > 0 {
			local = address[:i]
		}
		return local, ""
	}
	tokens := strings.Fields(displayName)
	if len(tokens) == 1 {
		return tokens[0], ""
	}
	return tokens[0], strings.Join(tokens[1:], " ")
}

// Reconcile resolves a raw `"Name" <addr@host>` fragment to a protagonist,
// creating one when the address is unknown. Returns (nil, nil) for input it
// cannot parse; it never fails the caller's ingest over a bad header.
// Idempotent: the underlying get-or-create races on the unique address index.
func (r *Reconciler) Reconcile(ctx context.Context, raw string) (*model.Protagonist, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	displayName, address, ok := Parse(raw)
	if !ok {
		log.Printf("reconcile: unparseable sender %q", raw)
		return nil, nil
	}
	first, last := nameFromParts(displayName, address)
	p, created, err := r.Store.GetOrCreateProtagonistByEmail(ctx, address, first, last, AutoGeneratedRole)
	if err != nil {
		return nil, err
	}
	if created {
		log.Printf("reconcile: created protagonist %q for %s", p.FullName(), address)
	}
	return p, nil
}

// ReconcileList reconciles a comma-separated recipient header, skipping
// fragments that do not parse.
func (r *Reconciler) ReconcileList(ctx context.Context, raw string) ([]*model.Protagonist, error) {
	var out []*model.Protagonist
	for _, part := range splitAddressList(raw) {
		p, err := r.Reconcile(ctx, part)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

// splitAddressList splits on commas outside quoted display names.
func splitAddressList(raw string) []string {
	var parts []string
	var b strings.Builder
	inQuotes := false
	for _, c := range raw {
		switch {
		case c == '"':
			inQuotes = !inQuotes
			b.WriteRune(c)
		case c == ',' && !inQuotes:
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteRune(c)
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		parts = append(parts, s)
	}
	return parts
}

// Merge moves every inbound reference from duplicate to original and deletes
// the duplicate. All-or-nothing.
func (r *Reconciler) Merge(ctx context.Context, originalID, duplicateID int64) error {
	return r.Store.MergeProtagonists(ctx, originalID, duplicateID)
}
