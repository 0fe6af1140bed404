package contest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/LPDavidbdeb/court-sub000/internal/llm"
	"github.com/LPDavidbdeb/court-sub000/internal/narrative"
)

// AnalyzeNarrative runs the auditor persona over one narrative's evidence and
// stores the structured findings on the narrative.
func (o *Orchestrator) AnalyzeNarrative(ctx context.Context, narrativeID int64) (*narrative.Analysis, error) {
	n, err := o.Store.GetNarrative(ctx, narrativeID)
	if err != nil {
		return nil, err
	}
	items, err := o.Engine.ChronologicalEvidence(ctx, narrativeID)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "TRAME: %s\nRÉSUMÉ: %s\n\nPREUVES:\n", n.Title, n.Summary)
	for _, it := range items {
		date := "date inconnue"
		if it.HasDate {
			date = it.Date.Format("2006-01-02")
		}
		fmt.Fprintf(&b, "- %s | %s | %s : %s\n", date, it.AuthorName, it.SourceTitle, it.Content)
	}

	targets, err := o.Store.GetStatementsByIDs(ctx, n.TargetedStatementIDs)
	if err != nil {
		return nil, err
	}
	if len(targets) > 0 {
		b.WriteString("\nDÉCLARATIONS VISÉES:\n")
		for _, st := range targets {
			fmt.Fprintf(&b, "- « %s »\n", st.Text)
		}
	}

	prompt, persona, err := o.Personas.Render(llm.PersonaAuditor, b.String())
	if err != nil {
		return nil, err
	}
	raw, err := o.Client.GenerateJSON(ctx, prompt, persona.Model, persona.Temperature)
	if err != nil {
		return nil, err
	}
	block, ok := ExtractJSONBlock(raw)
	if !ok {
		return nil, fmt.Errorf("auditor returned no JSON for narrative %d", narrativeID)
	}
	var analysis narrative.Analysis
	if err := json.Unmarshal([]byte(block), &analysis); err != nil {
		return nil, fmt.Errorf("auditor JSON undecodable for narrative %d: %w", narrativeID, err)
	}
	if err := o.Store.UpdateNarrativeAnalysis(ctx, narrativeID, block); err != nil {
		return nil, err
	}
	return &analysis, nil
}
