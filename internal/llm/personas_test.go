package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LPDavidbdeb/court-sub000/internal/config"
)

func TestDefaultPersonas(t *testing.T) {
	p := NewPersonas(nil)

	auditor, err := p.Get(PersonaAuditor)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, auditor.Temperature, 0.001)

	police, err := p.Get(PersonaPoliceInvestigator)
	require.NoError(t, err)
	assert.Zero(t, police.Temperature, "mechanical rules need a deterministic model")

	writer, err := p.Get(PersonaLegalWriter)
	require.NoError(t, err)
	assert.Equal(t, NoTemperature, writer.Temperature)

	_, err = p.Get("inconnu")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	p := NewPersonas(nil)

	prompt, persona, err := p.Render(PersonaLegalWriter, "CONTENU DU DOSSIER")
	require.NoError(t, err)
	assert.Contains(t, prompt, "CONTENU DU DOSSIER")
	assert.Contains(t, prompt, "suggestion_sec1")
	assert.Equal(t, NoTemperature, persona.Temperature)

	// The copy editor takes three slots: context, text, custom instruction.
	prompt, _, err = p.Render(PersonaCopyEditor, "contexte", "texte", "consigne")
	require.NoError(t, err)
	assert.Contains(t, prompt, "contexte")
	assert.Contains(t, prompt, "texte")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(prompt), "consigne"))
}

func TestOverridesMergeOntoDefaults(t *testing.T) {
	p := NewPersonas(map[string]config.Persona{
		PersonaAuditor: {Model: "gemini-2.0-pro", Temperature: 0.7},
	})

	auditor, err := p.Get(PersonaAuditor)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-pro", auditor.Model)
	assert.InDelta(t, 0.7, auditor.Temperature, 0.001)
	// The default template survives a partial override.
	assert.Contains(t, auditor.Template, "constats_objectifs")
}

func TestOverrideTemplateReplaces(t *testing.T) {
	p := NewPersonas(map[string]config.Persona{
		PersonaCopyEditor: {Template: "Corrige: %s %s %s"},
	})
	prompt, _, err := p.Render(PersonaCopyEditor, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, "Corrige: a b c", prompt)
}
