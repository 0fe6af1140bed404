//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"github.com/LPDavidbdeb/court-sub000/internal/config"
	"github.com/LPDavidbdeb/court-sub000/internal/contest"
	"github.com/LPDavidbdeb/court-sub000/internal/exhibit"
	"github.com/LPDavidbdeb/court-sub000/internal/llm"
	"github.com/LPDavidbdeb/court-sub000/internal/model"
	"github.com/LPDavidbdeb/court-sub000/internal/narrative"
	"github.com/LPDavidbdeb/court-sub000/internal/store"
)

// Exercises the full suggestion pipeline against the configured provider:
// dossier assembly, persona prompt, JSON generation, parse and persist.
func TestSuggestionRoundTrip(t *testing.T) {
	// 1. Setup
	_ = godotenv.Load("../../.env")
	cfg, err := config.Load("../../config/config.toml")
	if err != nil {
		t.Logf("Config not found, using default: %v", err)
		cfg = &config.Config{
			LLM: config.LLMConfig{
				Provider: "gemini",
				Model:    "gemini-2.0-flash",
			},
		}
		cfg.ApplyEnv()
	}
	if cfg.LLM.APIKey == "" && os.Getenv("LLM_API_KEY") == "" {
		t.Skip("LLM_API_KEY not set")
	}

	ctx := context.Background()
	s, err := store.Open(filepath.Join(t.TempDir(), "integration.db"))
	require.NoError(t, err)
	defer s.Close()

	client, err := llm.NewClient(ctx, cfg.LLM)
	require.NoError(t, err)

	engine := narrative.NewEngine(s)
	registry := exhibit.NewRegistry(s)
	o := contest.NewOrchestrator(s, engine, registry, client, llm.NewPersonas(cfg.Personas))

	// 2. Minimal case: one targeted allegation inside one contestation.
	lc := &model.LegalCase{Title: "Dossier d'intégration"}
	require.NoError(t, s.CreateCase(ctx, lc))
	pc := &model.PerjuryContestation{CaseID: lc.ID, Title: "Absence de contact"}
	require.NoError(t, s.CreateContestation(ctx, pc))

	st := &model.Statement{Text: "Je n'ai eu aucun contact avec la demanderesse en 2022", IsFalsifiable: true}
	require.NoError(t, s.CreateStatement(ctx, st))
	require.NoError(t, s.SetContestationTargets(ctx, pc.ID, []int64{st.ID}))

	// 3. Generate and verify persistence.
	sug, err := o.GenerateSuggestion(ctx, pc.ID)
	require.NoError(t, err)
	require.NotNil(t, sug)
	require.NotEmpty(t, sug.RawResponse)

	stored, err := s.ListSuggestions(ctx, pc.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	if !sug.ParsingSuccess {
		t.Logf("provider returned undecodable payload: %.200s", sug.RawResponse)
	}
}
