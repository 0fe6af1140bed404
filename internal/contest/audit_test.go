package contest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LPDavidbdeb/court-sub000/internal/model"
)

func TestAnalyzeNarrativeStoresFindings(t *testing.T) {
	mock := &MockLLM{Response: "```json\n" + `{
		"constats_objectifs": [{
			"fait_identifie": "Courriel du 14 mars 2022",
			"description_factuelle": "Un échange a eu lieu.",
			"contradiction_directe": "Contredit l'absence de contact."
		}]
	}` + "\n```"}
	o, _ := newOrchestrator(t, mock)
	ctx := context.Background()

	n := &model.TrameNarrative{Title: "Contacts en 2022", Summary: "Les échanges ont continué."}
	require.NoError(t, o.Store.CreateNarrative(ctx, n))

	analysis, err := o.AnalyzeNarrative(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, analysis.ConstatsObjectifs, 1)
	assert.Equal(t, "Courriel du 14 mars 2022", analysis.ConstatsObjectifs[0].FaitIdentifie)

	// The prompt carries the narrative context.
	require.Len(t, mock.Prompts, 1)
	assert.Contains(t, mock.Prompts[0], "Contacts en 2022")

	// The findings are persisted on the narrative.
	stored, err := o.Store.GetNarrative(ctx, n.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.AIAnalysisJSON, "fait_identifie")

	got, err := o.Engine.StructuredAnalysis(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, analysis.ConstatsObjectifs, got.ConstatsObjectifs)
}

func TestAnalyzeNarrativeRejectsNonJSON(t *testing.T) {
	mock := &MockLLM{Response: "désolé, pas de JSON"}
	o, _ := newOrchestrator(t, mock)
	ctx := context.Background()

	n := &model.TrameNarrative{Title: "T"}
	require.NoError(t, o.Store.CreateNarrative(ctx, n))

	_, err := o.AnalyzeNarrative(ctx, n.ID)
	assert.Error(t, err)

	// Nothing was stored.
	stored, err := o.Store.GetNarrative(ctx, n.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.AIAnalysisJSON)
}
