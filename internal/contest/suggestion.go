package contest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/LPDavidbdeb/court-sub000/internal/llm"
	"github.com/LPDavidbdeb/court-sub000/internal/model"
)

// Canonical suggestion section keys. Some model versions answer with
// content_secN instead; parsing normalizes to the canonical form.
var suggestionKeys = map[string]string{
	"content_sec1": "suggestion_sec1",
	"content_sec2": "suggestion_sec2",
	"content_sec3": "suggestion_sec3",
	"content_sec4": "suggestion_sec4",
}

// GenerateSuggestion builds the dossier, runs the legal-writer persona and
// persists the attempt. The raw response is stored even when it does not
// decode, and an LLM failure is recorded as a parse-failed attempt rather
// than lost.
func (o *Orchestrator) GenerateSuggestion(ctx context.Context, contestationID int64) (*model.AISuggestion, error) {
	dossier, err := o.BuildDossier(ctx, contestationID)
	if err != nil {
		return nil, err
	}
	prompt, persona, err := o.Personas.Render(llm.PersonaLegalWriter, dossier)
	if err != nil {
		return nil, err
	}

	sug := &model.AISuggestion{
		ContestationID: contestationID,
		ModelVersion:   persona.Model,
	}
	raw, llmErr := o.Client.GenerateJSON(ctx, prompt, persona.Model, persona.Temperature)
	if llmErr != nil {
		log.Printf("contest: suggestion generation failed for contestation %d: %v", contestationID, llmErr)
		sug.RawResponse = fmt.Sprintf("ERREUR: %v", llmErr)
		if err := o.Store.CreateSuggestion(ctx, sug); err != nil {
			return nil, err
		}
		return sug, nil
	}

	sug.RawResponse = raw
	if content, ok := parseSuggestion(raw); ok {
		sug.Content = content
		sug.ParsingSuccess = true
	}
	if err := o.Store.CreateSuggestion(ctx, sug); err != nil {
		return nil, err
	}
	return sug, nil
}

// RetryParse re-runs the extraction pass over a stored raw response: the
// first balanced {...} block is decoded and, on success, replaces the
// suggestion content.
func (o *Orchestrator) RetryParse(ctx context.Context, suggestionID int64) (*model.AISuggestion, error) {
	sug, err := o.Store.GetSuggestion(ctx, suggestionID)
	if err != nil {
		return nil, err
	}
	content, ok := parseSuggestion(sug.RawResponse)
	if !ok {
		return sug, fmt.Errorf("no decodable JSON block in suggestion %d", suggestionID)
	}
	if err := o.Store.UpdateSuggestionParse(ctx, suggestionID, content, true); err != nil {
		return nil, err
	}
	sug.Content = content
	sug.ParsingSuccess = true
	return sug, nil
}

func parseSuggestion(raw string) (json.RawMessage, bool) {
	block, ok := ExtractJSONBlock(raw)
	if !ok {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(block), &m); err != nil {
		return nil, false
	}
	for alias, canonical := range suggestionKeys {
		if v, ok := m[alias]; ok {
			if _, exists := m[canonical]; !exists {
				m[canonical] = v
			}
			delete(m, alias)
		}
	}
	out, err := json.Marshal(m)
	if err != nil {
		return nil, false
	}
	return out, true
}

// ExtractJSONBlock returns the first balanced top-level {...} block of the
// text, tolerating markdown fences and prose around it. Braces inside JSON
// strings do not count toward the balance.
func ExtractJSONBlock(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if start >= 0 && inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start >= 0 {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		case '"':
			if start >= 0 {
				inString = true
			}
		}
	}
	return "", false
}
