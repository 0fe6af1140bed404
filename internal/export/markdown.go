package export

import (
	"regexp"
	"strings"
)

// Span is one run of section text after inline markdown expansion.
type Span struct {
	Text string
	Bold bool
}

// Line is one paragraph-to-be of a rendered section. Number is the 1-based
// ordinal within the current run of numbered lines, 0 otherwise.
type Line struct {
	Spans    []Span
	Bullet   bool
	Numbered bool
	Number   int
}

var (
	boldRe     = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	numberedRe = regexp.MustCompile(`^\d+[.)]\s+`)
)

// ParseSection splits finalized section text into renderable lines: bullet
// and numbered list items are detected per line, `**bold**` runs expand to
// bold spans. Empty lines are dropped.
func ParseSection(text string) []Line {
	var out []Line
	num := 0
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, " \t")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		l := Line{}
		if prefix, ok := bulletPrefix(trimmed); ok {
			l.Bullet = true
			trimmed = strings.TrimSpace(trimmed[len(prefix):])
		} else if numberedRe.MatchString(trimmed) {
			l.Numbered = true
			num++
			l.Number = num
			trimmed = strings.TrimSpace(numberedRe.ReplaceAllString(trimmed, ""))
		}
		if !l.Numbered {
			num = 0
		}
		l.Spans = parseSpans(trimmed)
		out = append(out, l)
	}
	return out
}

func bulletPrefix(line string) (string, bool) {
	for _, p := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, p) {
			return p, true
		}
	}
	return "", false
}

func parseSpans(text string) []Span {
	var spans []Span
	rest := text
	for {
		loc := boldRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		if loc[0] > 0 {
			spans = append(spans, Span{Text: rest[:loc[0]]})
		}
		spans = append(spans, Span{Text: rest[loc[2]:loc[3]], Bold: true})
		rest = rest[loc[1]:]
	}
	if rest != "" {
		spans = append(spans, Span{Text: rest})
	}
	return spans
}
