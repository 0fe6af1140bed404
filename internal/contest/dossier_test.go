package contest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LPDavidbdeb/court-sub000/internal/library"
	"github.com/LPDavidbdeb/court-sub000/internal/model"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

func TestFormatStatement(t *testing.T) {
	d := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	doc := &model.Document{
		Title:        "Affidavit du défendeur",
		OriginalDate: &d,
		Author:       &model.Protagonist{FirstName: "Marc", LastName: "Côté", Role: "Partie adverse"},
	}
	st := &model.Statement{Text: "Je n'ai jamais reçu ces sommes"}

	got := formatStatement(doc, st)
	assert.Equal(t,
		"[ Marc Côté [Partie adverse], dans le document Affidavit du défendeur en date du 2022-03-01 ecrit : « Je n'ai jamais reçu ces sommes » ]",
		got)
}

func TestFormatStatementUnknownAuthorAndDate(t *testing.T) {
	doc := &model.Document{Title: "Lettre"}
	st := &model.Statement{Text: "x"}
	got := formatStatement(doc, st)
	assert.Contains(t, got, "auteur inconnu")
	assert.Contains(t, got, "date inconnue")
}

func TestBuildDossierFullGraph(t *testing.T) {
	mock := &MockLLM{}
	o, pcID := newOrchestrator(t, mock)
	ctx := context.Background()
	s := o.Store

	// An adversary document holding the targeted allegation.
	author := &model.Protagonist{FirstName: "Marc", LastName: "Côté", Role: "Partie adverse"}
	require.NoError(t, s.CreateProtagonist(ctx, author))
	docDate := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	doc := &model.Document{
		Title:               "Affidavit",
		SourceType:          model.SourceReproduced,
		AuthorProtagonistID: &author.ID,
		OriginalDate:        &docDate,
		SolemnDeclaration:   "Je déclare solennellement que ce qui suit est vrai.",
	}
	require.NoError(t, s.CreateDocument(ctx, doc))

	alleg := &model.Statement{Text: "Aucun contact durant 2022", IsFalsifiable: true}
	require.NoError(t, s.CreateStatement(ctx, alleg))
	tree := library.NewTree(s)
	_, err := tree.AddRoot(ctx, doc.ID, model.KindStatement, alleg.ID, "")
	require.NoError(t, err)

	// A supporting narrative carrying one dated event.
	ev := &model.Event{Date: time.Date(2022, 5, 10, 0, 0, 0, 0, time.UTC), Explanation: "Rencontre au palais"}
	require.NoError(t, s.CreateEvent(ctx, ev))
	n := &model.TrameNarrative{Title: "Contacts maintenus", Summary: "Les rencontres ont continué."}
	require.NoError(t, s.CreateNarrative(ctx, n))
	require.NoError(t, s.SetNarrativeEvidence(ctx, n.ID, model.KindEvent, []int64{ev.ID}))

	require.NoError(t, s.SetContestationTargets(ctx, pcID, []int64{alleg.ID}))
	require.NoError(t, s.SetContestationNarratives(ctx, pcID, []int64{n.ID}))

	pc, err := s.GetContestation(ctx, pcID)
	require.NoError(t, err)
	_, err = o.Registry.RefreshCase(ctx, pc.CaseID)
	require.NoError(t, err)

	dossier, err := o.BuildDossier(ctx, pcID)
	require.NoError(t, err)

	assert.Contains(t, dossier, "=== DÉCLARATIONS VISÉES ===")
	assert.Contains(t, dossier, "Je déclare solennellement")
	assert.Contains(t, dossier, "« Aucun contact durant 2022 »")
	assert.Contains(t, dossier, "Marc Côté [Partie adverse]")

	// No generated analysis: the manual fallback finding appears.
	assert.Contains(t, dossier, "=== CONSTATS OBJECTIFS ===")
	assert.Contains(t, dossier, "FAIT ÉTABLI: Contacts maintenus")

	assert.Contains(t, dossier, "=== CHRONOLOGIE UNIFIÉE ===")
	assert.Contains(t, dossier, "2022-05-10")
	assert.Contains(t, dossier, "[P-1]")

	assert.Contains(t, dossier, "=== INDEX DES PIÈCES ===")
	assert.Contains(t, dossier, "Rencontre au palais")
}

func TestBuildDossierOrphanStatement(t *testing.T) {
	mock := &MockLLM{}
	o, pcID := newOrchestrator(t, mock)
	ctx := context.Background()

	st := &model.Statement{Text: "Déclaration isolée", IsFalsifiable: true}
	require.NoError(t, o.Store.CreateStatement(ctx, st))
	require.NoError(t, o.Store.SetContestationTargets(ctx, pcID, []int64{st.ID}))

	dossier, err := o.BuildDossier(ctx, pcID)
	require.NoError(t, err)
	assert.Contains(t, dossier, "[ déclaration hors document : « Déclaration isolée » ]")
}

func TestBuildDossierUnknownContestation(t *testing.T) {
	o, _ := newOrchestrator(t, &MockLLM{})
	_, err := o.BuildDossier(context.Background(), 9999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTranscriptByDay(t *testing.T) {
	lines := []store.TranscriptLine{
		{Timestamp: time.Date(2022, 3, 1, 9, 5, 0, 0, time.UTC), SenderName: "Anne Roy", Text: "Bonjour"},
		{Timestamp: time.Date(2022, 3, 1, 9, 7, 0, 0, time.UTC), SenderName: "Marc Côté", Text: "Salut"},
		{Timestamp: time.Date(2022, 3, 2, 18, 0, 0, 0, time.UTC), SenderName: "Anne Roy", Text: "Des nouvelles ?"},
	}
	got := transcriptByDay(lines)
	want := "— 2022-03-01 —\n" +
		"09:05 Anne Roy : Bonjour\n" +
		"09:07 Marc Côté : Salut\n" +
		"— 2022-03-02 —\n" +
		"18:00 Anne Roy : Des nouvelles ?\n"
	assert.Equal(t, want, got)
}
