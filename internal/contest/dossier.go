// Package contest assembles the confronted dossier of a perjury
// contestation and drives the LLM drafting flow around it.
package contest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/LPDavidbdeb/court-sub000/internal/exhibit"
	"github.com/LPDavidbdeb/court-sub000/internal/llm"
	"github.com/LPDavidbdeb/court-sub000/internal/model"
	"github.com/LPDavidbdeb/court-sub000/internal/narrative"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

type Orchestrator struct {
	Store    *store.Store
	Engine   *narrative.Engine
	Registry *exhibit.Registry
	Client   llm.Client
	Personas *llm.Personas
}

func NewOrchestrator(s *store.Store, e *narrative.Engine, r *exhibit.Registry, c llm.Client, p *llm.Personas) *Orchestrator {
	return &Orchestrator{Store: s, Engine: e, Registry: r, Client: c, Personas: p}
}

// BuildDossier renders the full confronted dossier of a contestation:
// allegation context, narrative findings, unified timeline, exhibit index.
// This is the text handed to the drafting personas.
func (o *Orchestrator) BuildDossier(ctx context.Context, contestationID int64) (string, error) {
	pc, err := o.Store.GetContestation(ctx, contestationID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CONTESTATION: %s\n\n", pc.Title)

	section, err := o.allegationContext(ctx, pc)
	if err != nil {
		return "", err
	}
	b.WriteString("=== DÉCLARATIONS VISÉES ===\n")
	b.WriteString(section)

	section, err = o.narrativeFindings(ctx, pc)
	if err != nil {
		return "", err
	}
	b.WriteString("\n=== CONSTATS OBJECTIFS ===\n")
	b.WriteString(section)

	section, err = o.unifiedTimeline(ctx, pc)
	if err != nil {
		return "", err
	}
	b.WriteString("\n=== CHRONOLOGIE UNIFIÉE ===\n")
	b.WriteString(section)

	section, err = o.exhibitIndex(ctx, pc)
	if err != nil {
		return "", err
	}
	b.WriteString("\n=== INDEX DES PIÈCES ===\n")
	b.WriteString(section)

	return b.String(), nil
}

// allegationContext groups the targeted statements by the document they
// appear in. The solemn declaration of each document is emitted once, before
// its statements.
func (o *Orchestrator) allegationContext(ctx context.Context, pc *model.PerjuryContestation) (string, error) {
	type docGroup struct {
		doc   *model.Document
		lines []string
	}
	var order []int64
	groups := make(map[int64]*docGroup)
	var orphans []string

	for _, sid := range pc.TargetedStatementIDs {
		st, err := o.Store.GetStatement(ctx, sid)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		node, err := o.Store.FindNodeForStatement(ctx, sid)
		if errors.Is(err, store.ErrNotFound) {
			orphans = append(orphans, fmt.Sprintf("[ déclaration hors document : « %s » ]", st.Text))
			continue
		}
		if err != nil {
			return "", err
		}
		doc, err := o.Store.GetDocument(ctx, node.DocumentID)
		if err != nil {
			return "", err
		}
		g, ok := groups[doc.ID]
		if !ok {
			g = &docGroup{doc: doc}
			groups[doc.ID] = g
			order = append(order, doc.ID)
		}
		g.lines = append(g.lines, formatStatement(doc, st))
	}

	var b strings.Builder
	for _, docID := range order {
		g := groups[docID]
		if g.doc.SolemnDeclaration != "" {
			fmt.Fprintf(&b, "Déclaration solennelle (%s) : %s\n", g.doc.Title, g.doc.SolemnDeclaration)
		}
		for _, line := range g.lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	for _, line := range orphans {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func formatStatement(doc *model.Document, st *model.Statement) string {
	author := "auteur inconnu"
	role := ""
	if doc.Author != nil {
		author = doc.Author.FullName()
		role = doc.Author.Role
	}
	date := "date inconnue"
	if doc.OriginalDate != nil {
		date = doc.OriginalDate.Format("2006-01-02")
	}
	return fmt.Sprintf("[ %s [%s], dans le document %s en date du %s ecrit : « %s » ]",
		author, role, doc.Title, date, st.Text)
}

// narrativeFindings flattens each supporting narrative's structured analysis
// into FAIT ÉTABLI / DÉTAIL / IMPACT blocks.
func (o *Orchestrator) narrativeFindings(ctx context.Context, pc *model.PerjuryContestation) (string, error) {
	var b strings.Builder
	for _, nid := range pc.NarrativeIDs {
		analysis, err := o.Engine.StructuredAnalysis(ctx, nid)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		for _, f := range analysis.ConstatsObjectifs {
			fmt.Fprintf(&b, "FAIT ÉTABLI: %s\nDÉTAIL: %s\nIMPACT: %s\n\n",
				f.FaitIdentifie, f.DescriptionFactuelle, f.ContradictionDirecte)
		}
	}
	return b.String(), nil
}

// unifiedTimeline merges every supporting narrative's timeline, deduplicates
// by (kind, object id) and renders each item with its exhibit label. Quote
// items carry the label of their parent container.
func (o *Orchestrator) unifiedTimeline(ctx context.Context, pc *model.PerjuryContestation) (string, error) {
	seen := make(map[model.EvidenceRef]bool)
	var items []narrative.Item
	for _, nid := range pc.NarrativeIDs {
		nItems, err := o.Engine.ChronologicalEvidence(ctx, nid)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		for _, it := range nItems {
			ref := model.EvidenceRef{Kind: it.Kind, ID: it.ObjectID}
			if seen[ref] {
				continue
			}
			seen[ref] = true
			items = append(items, it)
		}
	}
	narrative.SortItems(items)

	var b strings.Builder
	for _, it := range items {
		date := "date inconnue"
		if it.HasDate {
			date = it.Date.Format("2006-01-02")
		}
		label, err := o.itemLabel(ctx, pc.CaseID, it)
		if err != nil {
			return "", err
		}
		if label != "" {
			label = " [" + label + "]"
		}
		author := it.AuthorName
		if author == "" {
			author = "—"
		}
		fmt.Fprintf(&b, "%s%s | %s | %s : %s\n", date, label, author, it.SourceTitle, it.Content)
	}
	return b.String(), nil
}

// itemLabel resolves a timeline item to its registry label. Email and PDF
// quotes are registered through their parent container, so the lookup is
// redirected there.
func (o *Orchestrator) itemLabel(ctx context.Context, caseID int64, it narrative.Item) (string, error) {
	ref := model.EvidenceRef{Kind: it.Kind, ID: it.ObjectID}
	switch it.Kind {
	case model.KindEmailQuote:
		q, err := o.Store.GetEmailQuote(ctx, it.ObjectID)
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		ref = model.EvidenceRef{Kind: model.KindEmail, ID: q.EmailID}
	case model.KindPDFQuote:
		q, err := o.Store.GetPDFQuote(ctx, it.ObjectID)
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		ref = model.EvidenceRef{Kind: model.KindPDFDocument, ID: q.PDFDocumentID}
	case model.KindStatement:
		// Statements are not registry objects.
		return "", nil
	}
	return o.Registry.LabelFor(ctx, caseID, ref)
}

// exhibitIndex renders one reference block per registry object referenced by
// this contestation, ordered by natural label sort (P-2 before P-10).
func (o *Orchestrator) exhibitIndex(ctx context.Context, pc *model.PerjuryContestation) (string, error) {
	refs, err := o.contestationRefs(ctx, pc)
	if err != nil {
		return "", err
	}

	type labeled struct {
		ref   model.EvidenceRef
		label string
	}
	var entries []labeled
	for ref := range refs {
		label, err := o.Registry.LabelFor(ctx, pc.CaseID, ref)
		if err != nil {
			return "", err
		}
		if label == "" {
			continue // object not registered yet; refresh the case first
		}
		entries = append(entries, labeled{ref: ref, label: label})
	}
	sort.Slice(entries, func(i, j int) bool {
		return NaturalLabelLess(entries[i].label, entries[j].label)
	})

	var b strings.Builder
	for _, e := range entries {
		block, err := o.exhibitBlock(ctx, e.ref)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "--- %s ---\n%s\n", e.label, block)
	}
	return b.String(), nil
}

// contestationRefs resolves the unique registry-level objects this
// contestation's narratives reference, quotes folded into their containers.
func (o *Orchestrator) contestationRefs(ctx context.Context, pc *model.PerjuryContestation) (map[model.EvidenceRef]bool, error) {
	refs := make(map[model.EvidenceRef]bool)
	for _, nid := range pc.NarrativeIDs {
		n, err := o.Store.GetNarrative(ctx, nid)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, id := range n.EventIDs {
			refs[model.EvidenceRef{Kind: model.KindEvent, ID: id}] = true
		}
		for _, id := range n.PhotoDocumentIDs {
			refs[model.EvidenceRef{Kind: model.KindPhotoDocument, ID: id}] = true
		}
		for _, id := range n.ChatSequenceIDs {
			refs[model.EvidenceRef{Kind: model.KindChatSequence, ID: id}] = true
		}
		for _, id := range n.EmailQuoteIDs {
			q, err := o.Store.GetEmailQuote(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			refs[model.EvidenceRef{Kind: model.KindEmail, ID: q.EmailID}] = true
		}
		for _, id := range n.PDFQuoteIDs {
			q, err := o.Store.GetPDFQuote(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			refs[model.EvidenceRef{Kind: model.KindPDFDocument, ID: q.PDFDocumentID}] = true
		}
	}
	return refs, nil
}

func (o *Orchestrator) exhibitBlock(ctx context.Context, ref model.EvidenceRef) (string, error) {
	switch ref.Kind {
	case model.KindEmail:
		email, err := o.Store.GetEmail(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		sender := email.SenderRaw
		if email.Sender != nil {
			sender = email.Sender.FullName()
		}
		return fmt.Sprintf("Courriel de %s, %s, objet « %s »\n%s",
			sender, email.DateSent.Format("2006-01-02 15:04"), email.Subject,
			StripQuotedLines(email.BodyText)), nil

	case model.KindChatSequence:
		seq, err := o.Store.GetChatSequence(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		lines, err := o.Store.SequenceTranscript(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Séquence de clavardage « %s »\n%s", seq.Title, transcriptByDay(lines)), nil

	case model.KindPhotoDocument:
		pd, err := o.Store.GetPhotoDocument(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		body := pd.Description
		if pd.AIAnalysis != "" {
			body = pd.AIAnalysis
		}
		return fmt.Sprintf("Document photographié « %s » (%d photos)\n%s", pd.Title, len(pd.PhotoIDs), body), nil

	case model.KindPDFDocument:
		doc, err := o.Store.GetPDFDocument(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Document PDF « %s »\n%s", doc.Title, doc.AIAnalysis), nil

	case model.KindEvent:
		ev, err := o.Store.GetEvent(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Événement du %s\n%s", ev.Date.Format("2006-01-02"), ev.Explanation), nil
	}
	return "", fmt.Errorf("unsupported exhibit kind %q", ref.Kind)
}

// StripQuotedLines removes ">"-prefixed reply quotes from an email body,
// keeping only the author's own text.
func StripQuotedLines(body string) string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// transcriptByDay groups a chat transcript into day headers.
func transcriptByDay(lines []store.TranscriptLine) string {
	var b strings.Builder
	var day string
	for _, l := range lines {
		d := l.Timestamp.Format("2006-01-02")
		if d != day {
			day = d
			fmt.Fprintf(&b, "— %s —\n", day)
		}
		fmt.Fprintf(&b, "%s %s : %s\n", l.Timestamp.Format("15:04"), l.SenderName, l.Text)
	}
	return b.String()
}

// NaturalLabelLess orders exhibit labels numerically: P-2 before P-10.
// Non-numeric labels fall back to plain string order.
func NaturalLabelLess(a, b string) bool {
	na, oka := labelNumber(a)
	nb, okb := labelNumber(b)
	if oka && okb {
		return na < nb
	}
	return a < b
}

func labelNumber(label string) (int, bool) {
	i := strings.LastIndexByte(label, '-')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(label[i+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
