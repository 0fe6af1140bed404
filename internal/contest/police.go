package contest

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/LPDavidbdeb/court-sub000/internal/llm"
	"github.com/LPDavidbdeb/court-sub000/internal/model"
	"github.com/LPDavidbdeb/court-sub000/internal/narrative"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

// PoliceReport is the fixed response schema of the police_investigator
// persona.
type PoliceReport struct {
	Title            string          `json:"title"`
	ComplainantInfo  string          `json:"complainant_info"`
	IncidentOverview string          `json:"incident_overview"`
	NarrativeIntro   string          `json:"narrative_intro"`
	Offenses         []PoliceOffense `json:"offenses"`
	MensReaAnalysis  string          `json:"mens_rea_analysis"`
	Request          string          `json:"request"`
}

type PoliceOffense struct {
	Declaration        string   `json:"declaration"`
	ContradictingFacts []string `json:"contradicting_facts"`
	Analysis           string   `json:"analysis"`
}

type dossierXML struct {
	XMLName      xml.Name        `xml:"dossier"`
	Declarations declarationsXML `xml:"declarations_suspectes"`
	Chronologie  chronologieXML  `xml:"chronologie_faits"`
}

type declarationsXML struct {
	Declarations []declarationXML `xml:"declaration"`
}

type declarationXML struct {
	ID     int64  `xml:"id,attr"`
	Auteur string `xml:"auteur,attr,omitempty"`
	Date   string `xml:"date,attr,omitempty"`
	Texte  string `xml:",chardata"`
}

type chronologieXML struct {
	Faits []faitXML `xml:"fait"`
}

type faitXML struct {
	Date   string `xml:"date,attr,omitempty"`
	Source string `xml:"source,attr,omitempty"`
	Piece  string `xml:"piece,attr,omitempty"`
	Texte  string `xml:",chardata"`
}

// BuildPoliceXML serializes the contestation into the XML dossier the police
// persona consumes: suspect declarations on one side, the unified fact
// chronology on the other.
func (o *Orchestrator) BuildPoliceXML(ctx context.Context, contestationID int64) (string, error) {
	pc, err := o.Store.GetContestation(ctx, contestationID)
	if err != nil {
		return "", err
	}

	var doc dossierXML
	for _, sid := range pc.TargetedStatementIDs {
		st, err := o.Store.GetStatement(ctx, sid)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		decl := declarationXML{ID: st.ID, Texte: st.Text}
		if node, err := o.Store.FindNodeForStatement(ctx, sid); err == nil {
			if d, err := o.Store.GetDocument(ctx, node.DocumentID); err == nil {
				if d.Author != nil {
					decl.Auteur = d.Author.FullName()
				}
				if d.OriginalDate != nil {
					decl.Date = d.OriginalDate.Format("2006-01-02")
				}
			}
		}
		doc.Declarations.Declarations = append(doc.Declarations.Declarations, decl)
	}

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

	for _, it := range items {
		fait := faitXML{Source: it.SourceTitle, Texte: it.Content}
		if it.HasDate {
			fait.Date = it.Date.Format("2006-01-02")
		}
		label, err := o.itemLabel(ctx, pc.CaseID, it)
		if err != nil {
			return "", err
		}
		fait.Piece = label
		doc.Chronologie.Faits = append(doc.Chronologie.Faits, fait)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return xml.Header + string(out), nil
}

// GeneratePoliceReport runs the strict-rules persona over the XML dossier.
// The attempt is persisted the same way as a drafting suggestion; the report
// is additionally decoded when parsing succeeds.
func (o *Orchestrator) GeneratePoliceReport(ctx context.Context, contestationID int64) (*model.AISuggestion, *PoliceReport, error) {
	dossier, err := o.BuildPoliceXML(ctx, contestationID)
	if err != nil {
		return nil, nil, err
	}
	prompt, persona, err := o.Personas.Render(llm.PersonaPoliceInvestigator, dossier)
	if err != nil {
		return nil, nil, err
	}

	sug := &model.AISuggestion{
		ContestationID: contestationID,
		ModelVersion:   persona.Model,
	}
	raw, llmErr := o.Client.GenerateJSON(ctx, prompt, persona.Model, persona.Temperature)
	if llmErr != nil {
		log.Printf("contest: police report failed for contestation %d: %v", contestationID, llmErr)
		sug.RawResponse = fmt.Sprintf("ERREUR: %v", llmErr)
		if err := o.Store.CreateSuggestion(ctx, sug); err != nil {
			return nil, nil, err
		}
		return sug, nil, nil
	}

	sug.RawResponse = raw
	var report *PoliceReport
	if block, ok := ExtractJSONBlock(raw); ok {
		var r PoliceReport
		if err := json.Unmarshal([]byte(block), &r); err == nil {
			report = &r
			sug.Content = json.RawMessage(block)
			sug.ParsingSuccess = true
		}
	}
	if err := o.Store.CreateSuggestion(ctx, sug); err != nil {
		return nil, nil, err
	}
	return sug, report, nil
}

var (
	yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

	// Phrases marking a continuous period: a year mentioned alongside one of
	// these covers the whole calendar year.
	continuousPhrases = []string{
		"toute l'année",
		"toute l'annee",
		"tout au long",
		"durant",
		"pendant",
		"depuis",
		"au cours de",
	}
)

// DateMatchesDeclaration applies matching rule (a): the fact date falls in a
// period the declaration explicitly mentions. A year combined with a
// continuous-period phrase covers the entire calendar year.
func DateMatchesDeclaration(declaration string, factDate time.Time) bool {
	years := yearRe.FindAllString(declaration, -1)
	if len(years) == 0 {
		return false
	}
	lower := strings.ToLower(declaration)
	continuous := false
	for _, p := range continuousPhrases {
		if strings.Contains(lower, p) {
			continuous = true
			break
		}
	}
	if !continuous {
		return false
	}
	for _, y := range years {
		year, err := strconv.Atoi(y)
		if err != nil {
			continue
		}
		if factDate.Year() == year {
			return true
		}
	}
	return false
}

// ContainsKeyword applies matching rule (b): case-insensitive substring
// match of any declaration keyword in the fact text.
func ContainsKeyword(factText string, keywords []string) bool {
	lower := strings.ToLower(factText)
	for _, kw := range keywords {
		kw = strings.TrimSpace(strings.ToLower(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
