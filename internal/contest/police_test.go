package contest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateMatchesDeclaration(t *testing.T) {
	d := func(y, m, day int) time.Time {
		return time.Date(y, time.Month(m), day, 0, 0, 0, 0, time.UTC)
	}
	cases := []struct {
		name        string
		declaration string
		date        time.Time
		want        bool
	}{
		{"continuous year", "Je n'ai eu aucun contact durant 2021.", d(2021, 6, 15), true},
		{"toute l'année", "Il a été absent toute l'année 2020.", d(2020, 1, 2), true},
		{"sans accent", "Il a été absent toute l'annee 2020.", d(2020, 1, 2), true},
		{"wrong year", "Je n'ai eu aucun contact durant 2021.", d(2022, 6, 15), false},
		{"year without phrase", "La rencontre de 2021 fut brève.", d(2021, 6, 15), false},
		{"no year", "Je n'ai jamais eu de contact.", d(2021, 6, 15), false},
		{"two years", "Aucun paiement depuis 2019 et 2020.", d(2020, 3, 1), true},
		{"case insensitive phrase", "AUCUN CONTACT DURANT 2021", d(2021, 12, 31), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DateMatchesDeclaration(tc.declaration, tc.date))
		})
	}
}

func TestContainsKeyword(t *testing.T) {
	assert.True(t, ContainsKeyword("Virement reçu de Marc Côté", []string{"virement"}))
	assert.True(t, ContainsKeyword("VIREMENT REÇU", []string{"Virement"}))
	assert.True(t, ContainsKeyword("un paiement en retard", []string{"absent", "paiement"}))
	assert.False(t, ContainsKeyword("rien à signaler", []string{"virement", "paiement"}))
	assert.False(t, ContainsKeyword("texte", []string{"", "  "}), "blank keywords never match")
	assert.False(t, ContainsKeyword("texte", nil))
}

func TestBuildPoliceXMLShape(t *testing.T) {
	mock := &MockLLM{}
	o, pcID := newOrchestrator(t, mock)
	ctx := context.Background()

	out, err := o.BuildPoliceXML(ctx, pcID)
	require.NoError(t, err)
	assert.Contains(t, out, "<?xml")
	assert.Contains(t, out, "<dossier>")
	assert.Contains(t, out, "<declarations_suspectes>")
	assert.Contains(t, out, "<chronologie_faits>")
}

func TestGeneratePoliceReportDecodes(t *testing.T) {
	mock := &MockLLM{Response: `{
		"title": "Rapport",
		"offenses": [{"declaration": "d", "contradicting_facts": ["f1"], "analysis": "a"}]
	}`}
	o, pcID := newOrchestrator(t, mock)

	sug, report, err := o.GeneratePoliceReport(context.Background(), pcID)
	require.NoError(t, err)
	assert.True(t, sug.ParsingSuccess)
	require.NotNil(t, report)
	assert.Equal(t, "Rapport", report.Title)
	require.Len(t, report.Offenses, 1)
	assert.Equal(t, []string{"f1"}, report.Offenses[0].ContradictingFacts)
}

func TestGeneratePoliceReportPersistsFailure(t *testing.T) {
	mock := &MockLLM{Err: assert.AnError}
	o, pcID := newOrchestrator(t, mock)
	ctx := context.Background()

	sug, report, err := o.GeneratePoliceReport(ctx, pcID)
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.False(t, sug.ParsingSuccess)
	assert.Contains(t, sug.RawResponse, "ERREUR:")

	got, err := o.Store.GetSuggestion(ctx, sug.ID)
	require.NoError(t, err)
	assert.False(t, got.ParsingSuccess)
}

func TestNaturalLabelLess(t *testing.T) {
	assert.True(t, NaturalLabelLess("P-2", "P-10"))
	assert.False(t, NaturalLabelLess("P-10", "P-2"))
	assert.True(t, NaturalLabelLess("P-1", "P-2"))
	assert.False(t, NaturalLabelLess("P-3", "P-3"))
	// Non-numeric labels fall back to string order.
	assert.True(t, NaturalLabelLess("A", "B"))
}

func TestStripQuotedLines(t *testing.T) {
	body := "Bonjour,\n> Le 3 mai, Anne a écrit :\n> ancien texte\nVoici ma réponse.\n\n> encore une citation\nMerci."
	got := StripQuotedLines(body)
	assert.Equal(t, "Bonjour,\nVoici ma réponse.\n\nMerci.", got)
	assert.Equal(t, "", StripQuotedLines("> tout cité\n> rien d'autre"))
}
