package llm

import (
	"fmt"

	"github.com/LPDavidbdeb/court-sub000/internal/config"
)

// Persona keys. Templates are fmt.Sprintf strings, overridable from the
// [personas] table of the config file.
const (
	PersonaAuditor            = "auditor"
	PersonaPoliceInvestigator = "police_investigator"
	PersonaLegalWriter        = "redacteur_juridique"
	PersonaCopyEditor         = "copy_editor"
	PersonaPhotoAnalyst       = "photo_analyst"
	PersonaPDFTranscriber     = "pdf_transcriber"
)

// NoTemperature leaves the model default in place (editorial personas).
const NoTemperature float32 = -1

var defaultPersonas = map[string]config.Persona{
	PersonaAuditor: {
		Temperature: 0.2,
		Template: `Tu es un auditeur judiciaire. Tu analyses un dossier de preuves de façon strictement factuelle.
À partir du dossier suivant, identifie les constats objectifs qui contredisent directement les déclarations visées.

DOSSIER:
%s

Réponds en JSON avec exactement cette structure:
{"constats_objectifs": [{"fait_identifie": "...", "description_factuelle": "...", "contradiction_directe": "..."}]}`,
	},
	PersonaPoliceInvestigator: {
		Temperature: 0,
		Template: `Tu es un enquêteur de police rédigeant un rapport de plainte pour parjure (art. 131 C.cr.).
Tu appliques MÉCANIQUEMENT les règles de correspondance, sans interprétation:
(a) un <fait> contredit une <declaration> si sa date tombe dans une période explicitement mentionnée par la déclaration (une année avec formulation de période continue couvre l'année civile entière);
(b) ou si le texte du fait contient un des mots-clés de la déclaration.

DOSSIER XML:
%s

Réponds en JSON avec exactement cette structure:
{"title": "...", "complainant_info": "...", "incident_overview": "...", "narrative_intro": "...", "offenses": [{"declaration": "...", "contradicting_facts": ["..."], "analysis": "..."}], "mens_rea_analysis": "...", "request": "..."}`,
	},
	PersonaLegalWriter: {
		Temperature: NoTemperature,
		Template: `Tu es un rédacteur juridique assistant un justiciable non représenté dans une contestation pour parjure.
À partir du dossier confronté suivant, rédige les quatre sections de l'argument.

%s

Réponds en JSON avec exactement cette structure:
{"suggestion_sec1": "<1. Déclaration visée>", "suggestion_sec2": "<2. Preuve de fausseté>", "suggestion_sec3": "<3. Connaissance de la fausseté (mens rea)>", "suggestion_sec4": "<4. Intention de tromper>"}`,
	},
	PersonaCopyEditor: {
		Temperature: NoTemperature,
		Template: `Tu es un réviseur linguistique. Corrige l'orthographe et la grammaire du texte HTML suivant en préservant TOUTES les balises HTML telles quelles. Ne reformule pas.

CONTEXTE DU DOCUMENT:
%s

TEXTE À CORRIGER:
%s

%s`,
	},
	PersonaPhotoAnalyst: {
		Temperature: 0.2,
		Template: `Tu es un expert en analyse documentaire judiciaire. Décris et transcris fidèlement le contenu des images suivantes (document photographié). Transcription intégrale du texte visible, puis description matérielle.

TITRE DU DOCUMENT: %s`,
	},
	PersonaPDFTranscriber: {
		Temperature: 0.2,
		Template: `Tu es un expert en analyse documentaire judiciaire. Les images suivantes sont les pages d'un document PDF. Transcris intégralement le texte, puis résume la portée du document.

TITRE DU DOCUMENT: %s`,
	},
}

// Personas resolves persona keys to their prompt/model/temperature triple,
// config overrides taking precedence over the built-in defaults.
type Personas struct {
	personas map[string]config.Persona
}

func NewPersonas(overrides map[string]config.Persona) *Personas {
	m := make(map[string]config.Persona, len(defaultPersonas))
	for k, v := range defaultPersonas {
		m[k] = v
	}
	for k, v := range overrides {
		base := m[k]
		if v.Template != "" {
			base.Template = v.Template
		}
		if v.Model != "" {
			base.Model = v.Model
		}
		base.Temperature = v.Temperature
		m[k] = base
	}
	return &Personas{personas: m}
}

func (p *Personas) Get(key string) (config.Persona, error) {
	persona, ok := p.personas[key]
	if !ok {
		return config.Persona{}, fmt.Errorf("unknown persona %q", key)
	}
	return persona, nil
}

// Render fills the persona template with args.
func (p *Personas) Render(key string, args ...any) (string, config.Persona, error) {
	persona, err := p.Get(key)
	if err != nil {
		return "", config.Persona{}, err
	}
	return fmt.Sprintf(persona.Template, args...), persona, nil
}
