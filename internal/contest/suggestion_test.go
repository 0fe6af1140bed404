package contest

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LPDavidbdeb/court-sub000/internal/exhibit"
	"github.com/LPDavidbdeb/court-sub000/internal/llm"
	"github.com/LPDavidbdeb/court-sub000/internal/model"
	"github.com/LPDavidbdeb/court-sub000/internal/narrative"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

func newOrchestrator(t *testing.T, mock *MockLLM) (*Orchestrator, int64) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	lc := &model.LegalCase{Title: "Dossier"}
	require.NoError(t, s.CreateCase(ctx, lc))
	pc := &model.PerjuryContestation{CaseID: lc.ID, Title: "Fausse déclaration sur les contacts"}
	require.NoError(t, s.CreateContestation(ctx, pc))

	o := NewOrchestrator(s, narrative.NewEngine(s), exhibit.NewRegistry(s), mock, llm.NewPersonas(nil))
	return o, pc.ID
}

func TestExtractJSONBlock(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare", `{"a": 1}`, `{"a": 1}`, true},
		{"fenced", "Voici :\n```json\n{\"a\": 1}\n```\nVoilà.", `{"a": 1}`, true},
		{"nested", `x {"a": {"b": 2}} y`, `{"a": {"b": 2}}`, true},
		{"brace in string", `{"a": "un { deux }"}`, `{"a": "un { deux }"}`, true},
		{"escaped quote", `{"a": "il a dit \" { \" fin"}`, `{"a": "il a dit \" { \" fin"}`, true},
		{"none", "pas de json ici", "", false},
		{"unbalanced", `{"a": 1`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractJSONBlock(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseSuggestionNormalizesKeys(t *testing.T) {
	raw := "```json\n" + `{"content_sec1": "texte 1", "suggestion_sec2": "texte 2"}` + "\n```"
	content, ok := parseSuggestion(raw)
	require.True(t, ok)

	var m map[string]string
	require.NoError(t, json.Unmarshal(content, &m))
	assert.Equal(t, "texte 1", m["suggestion_sec1"])
	assert.Equal(t, "texte 2", m["suggestion_sec2"])
	_, aliasLeft := m["content_sec1"]
	assert.False(t, aliasLeft)
}

func TestParseSuggestionCanonicalWins(t *testing.T) {
	raw := `{"content_sec1": "alias", "suggestion_sec1": "canonique"}`
	content, ok := parseSuggestion(raw)
	require.True(t, ok)

	var m map[string]string
	require.NoError(t, json.Unmarshal(content, &m))
	assert.Equal(t, "canonique", m["suggestion_sec1"])
}

func TestGenerateSuggestionParsesResponse(t *testing.T) {
	mock := &MockLLM{Response: `Réponse : {"suggestion_sec1": "La déclaration est contredite."}`}
	o, pcID := newOrchestrator(t, mock)

	sug, err := o.GenerateSuggestion(context.Background(), pcID)
	require.NoError(t, err)
	assert.True(t, sug.ParsingSuccess)
	assert.NotZero(t, sug.ID)
	assert.Contains(t, string(sug.Content), "contredite")

	// The prompt carries the dossier, not raw ids.
	require.Len(t, mock.Prompts, 1)
	assert.Contains(t, mock.Prompts[0], "DÉCLARATIONS VISÉES")
}

func TestGenerateSuggestionPersistsFailure(t *testing.T) {
	mock := &MockLLM{Err: errors.New("quota exceeded")}
	o, pcID := newOrchestrator(t, mock)
	ctx := context.Background()

	sug, err := o.GenerateSuggestion(ctx, pcID)
	require.NoError(t, err, "an LLM failure is recorded, not returned")
	assert.False(t, sug.ParsingSuccess)
	assert.Equal(t, "ERREUR: quota exceeded", sug.RawResponse)

	// The failed attempt is on disk for later inspection.
	got, err := o.Store.GetSuggestion(ctx, sug.ID)
	require.NoError(t, err)
	assert.Equal(t, sug.RawResponse, got.RawResponse)
}

func TestGenerateSuggestionKeepsUndecodableRaw(t *testing.T) {
	mock := &MockLLM{Response: "Je ne peux pas répondre en JSON."}
	o, pcID := newOrchestrator(t, mock)

	sug, err := o.GenerateSuggestion(context.Background(), pcID)
	require.NoError(t, err)
	assert.False(t, sug.ParsingSuccess)
	assert.Equal(t, "Je ne peux pas répondre en JSON.", sug.RawResponse)
}

func TestRetryParseRecovers(t *testing.T) {
	mock := &MockLLM{Response: "préambule... " + `{"suggestion_sec1": "texte"}`}
	o, pcID := newOrchestrator(t, mock)
	ctx := context.Background()

	sug := &model.AISuggestion{
		ContestationID: pcID,
		RawResponse:    "préambule {\"content_sec3\": \"récupéré\"} fin",
	}
	require.NoError(t, o.Store.CreateSuggestion(ctx, sug))

	got, err := o.RetryParse(ctx, sug.ID)
	require.NoError(t, err)
	assert.True(t, got.ParsingSuccess)
	assert.Contains(t, string(got.Content), "suggestion_sec3")

	stored, err := o.Store.GetSuggestion(ctx, sug.ID)
	require.NoError(t, err)
	assert.True(t, stored.ParsingSuccess)
}

func TestRetryParseStillFailing(t *testing.T) {
	mock := &MockLLM{}
	o, pcID := newOrchestrator(t, mock)
	ctx := context.Background()

	sug := &model.AISuggestion{ContestationID: pcID, RawResponse: "ERREUR: quota exceeded"}
	require.NoError(t, o.Store.CreateSuggestion(ctx, sug))

	got, err := o.RetryParse(ctx, sug.ID)
	assert.Error(t, err)
	require.NotNil(t, got, "the suggestion comes back with the error for display")
	assert.False(t, got.ParsingSuccess)
}
