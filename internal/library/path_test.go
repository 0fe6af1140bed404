package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentRoundTrip(t *testing.T) {
	cases := []struct {
		n   int
		seg string
	}{
		{0, "0000"},
		{1, "0001"},
		{9, "0009"},
		{10, "000A"},
		{35, "000Z"},
		{36, "0010"},
		{1295, "00ZZ"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.seg, Segment(tc.n))
		assert.Equal(t, tc.n, SegmentValue(tc.seg))
	}
}

func TestSegmentOrderIsLexicographic(t *testing.T) {
	prev := Segment(1)
	for n := 2; n < 100; n++ {
		cur := Segment(n)
		assert.Less(t, prev, cur)
		prev = cur
	}
}

func TestPathHelpers(t *testing.T) {
	p := ChildPath(ChildPath("", 1), 3) // "00010003"
	assert.Equal(t, "00010003", p)
	assert.Equal(t, 2, Depth(p))
	assert.Equal(t, "0001", ParentPath(p))
	assert.Equal(t, "0003", LastSegment(p))
	assert.Equal(t, "00010004", NextSiblingPath(p))

	assert.Equal(t, "", ParentPath("0001"))
	assert.Equal(t, 1, Depth("0001"))
}

func TestRebase(t *testing.T) {
	assert.Equal(t, "00050003", Rebase("00010003", "0001", "0005"))
	// Deep subtree keeps its tail under the new prefix.
	assert.Equal(t, "0002000100070001", Rebase("0001000100070001", "00010001", "00020001"))
}

func TestDisplayLabel(t *testing.T) {
	assert.Equal(t, "", DisplayLabel(1, 3))
	assert.Equal(t, "1.", DisplayLabel(2, 1))
	assert.Equal(t, "12.", DisplayLabel(2, 12))
	assert.Equal(t, "a.", DisplayLabel(3, 1))
	assert.Equal(t, "z.", DisplayLabel(3, 26))
	assert.Equal(t, "aa.", DisplayLabel(3, 27))
	assert.Equal(t, "i.", DisplayLabel(4, 1))
	assert.Equal(t, "iv.", DisplayLabel(4, 4))
	assert.Equal(t, "ix.", DisplayLabel(4, 9))
	assert.Equal(t, "xiv.", DisplayLabel(5, 14))
}

func TestIndentPixels(t *testing.T) {
	assert.Equal(t, 0, IndentPixels(1))
	assert.Equal(t, 40, IndentPixels(2))
	assert.Equal(t, 120, IndentPixels(4))
}
