package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSectionDropsEmptyLines(t *testing.T) {
	lines := ParseSection("premier\n\n\nsecond\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "premier", lines[0].Spans[0].Text)
	assert.Equal(t, "second", lines[1].Spans[0].Text)
}

func TestParseSectionBullets(t *testing.T) {
	for _, text := range []string{"- élément", "* élément", "• élément"} {
		lines := ParseSection(text)
		require.Len(t, lines, 1, text)
		assert.True(t, lines[0].Bullet, text)
		require.Len(t, lines[0].Spans, 1, text)
		assert.Equal(t, "élément", lines[0].Spans[0].Text, text)
	}
}

func TestParseSectionNumbered(t *testing.T) {
	lines := ParseSection("1. premier point\n2) second point\n10. dixième")
	require.Len(t, lines, 3)
	for i, l := range lines {
		assert.True(t, l.Numbered, i)
		assert.False(t, l.Bullet, i)
		assert.Equal(t, i+1, l.Number, i)
	}
	assert.Equal(t, "premier point", lines[0].Spans[0].Text)
	assert.Equal(t, "second point", lines[1].Spans[0].Text)
	assert.Equal(t, "dixième", lines[2].Spans[0].Text)
}

func TestParseSectionNumberingRestartsAfterBreak(t *testing.T) {
	lines := ParseSection("1. un\n2. deux\nparagraphe libre\n7. sept")
	require.Len(t, lines, 4)
	assert.Equal(t, 1, lines[0].Number)
	assert.Equal(t, 2, lines[1].Number)
	assert.Equal(t, 0, lines[2].Number)
	// A plain paragraph ends the run; the next list restarts at 1.
	assert.True(t, lines[3].Numbered)
	assert.Equal(t, 1, lines[3].Number)
}

func TestParseSectionPlainNumberIsNotNumbered(t *testing.T) {
	lines := ParseSection("2022 fut une année difficile.")
	require.Len(t, lines, 1)
	assert.False(t, lines[0].Numbered)
}

func TestParseSpansBold(t *testing.T) {
	lines := ParseSection("Il a **nié** toute rencontre, **deux fois**.")
	require.Len(t, lines, 1)
	spans := lines[0].Spans
	require.Len(t, spans, 4)
	assert.Equal(t, Span{Text: "Il a "}, spans[0])
	assert.Equal(t, Span{Text: "nié", Bold: true}, spans[1])
	assert.Equal(t, Span{Text: " toute rencontre, "}, spans[2])
	assert.Equal(t, Span{Text: "deux fois", Bold: true}, spans[3])
}

func TestParseSpansUnclosedBoldStaysLiteral(t *testing.T) {
	lines := ParseSection("texte **sans fermeture")
	require.Len(t, lines, 1)
	require.Len(t, lines[0].Spans, 1)
	assert.Equal(t, "texte **sans fermeture", lines[0].Spans[0].Text)
	assert.False(t, lines[0].Spans[0].Bold)
}

func TestParseSectionBoldInsideBullet(t *testing.T) {
	lines := ParseSection("- pièce **P-3** déposée")
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Bullet)
	require.Len(t, lines[0].Spans, 3)
	assert.True(t, lines[0].Spans[1].Bold)
	assert.Equal(t, "P-3", lines[0].Spans[1].Text)
}
