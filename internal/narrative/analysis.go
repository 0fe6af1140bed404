package narrative

import (
	"context"
	"encoding/json"
)

// Finding is one objective finding of the auditor persona.
type Finding struct {
	FaitIdentifie        string `json:"fait_identifie"`
	DescriptionFactuelle string `json:"description_factuelle"`
	ContradictionDirecte string `json:"contradiction_directe"`
}

// Analysis is the auditor JSON written to TrameNarrative.ai_analysis_json.
type Analysis struct {
	ConstatsObjectifs []Finding `json:"constats_objectifs"`
}

// StructuredAnalysis returns the auditor analysis of a narrative. When no
// analysis has been generated yet, it synthesizes one "manual" finding from
// the user summary so downstream consumers always get the same shape.
func (e *Engine) StructuredAnalysis(ctx context.Context, narrativeID int64) (*Analysis, error) {
	n, err := e.Store.GetNarrative(ctx, narrativeID)
	if err != nil {
		return nil, err
	}
	if n.AIAnalysisJSON != "" {
		var a Analysis
		if err := json.Unmarshal([]byte(n.AIAnalysisJSON), &a); err == nil && len(a.ConstatsObjectifs) > 0 {
			return &a, nil
		}
		// Malformed stored analysis falls through to the manual finding.
	}
	return &Analysis{
		ConstatsObjectifs: []Finding{{
			FaitIdentifie:        n.Title,
			DescriptionFactuelle: n.Summary,
			ContradictionDirecte: "Constat manuel (analyse non générée)",
		}},
	}, nil
}
