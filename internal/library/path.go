// Package library implements the materialized-path forest that structures a
// document. The path string is the source of truth: fixed-width base-36
// segments whose lexicographic order is the sibling order.
package library

import (
	"fmt"
	"strings"
)

// PathStep is the width of one path segment. Depth = len(path)/PathStep.
const PathStep = 4

const pathAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Segment encodes a 1-based sibling ordinal as a fixed-width base-36 string.
// Fixed width keeps lexicographic order equal to numeric order.
func Segment(n int) string {
	if n < 0 {
		n = 0
	}
	base := len(pathAlphabet)
	b := []byte{'0', '0', '0', '0'}
	for i := PathStep - 1; i >= 0 && n > 0; i-- {
		b[i] = pathAlphabet[n%base]
		n /= base
	}
	return string(b)
}

// SegmentValue decodes a path segment back to its ordinal.
func SegmentValue(seg string) int {
	n := 0
	for i := 0; i < len(seg); i++ {
		n = n*len(pathAlphabet) + strings.IndexByte(pathAlphabet, seg[i])
	}
	return n
}

func Depth(path string) int {
	return len(path) / PathStep
}

// ParentPath strips the last segment; empty for roots.
func ParentPath(path string) string {
	if len(path) <= PathStep {
		return ""
	}
	return path[:len(path)-PathStep]
}

func LastSegment(path string) string {
	return path[len(path)-PathStep:]
}

// ChildPath appends ordinal n under parent (parent may be "" for roots).
func ChildPath(parent string, n int) string {
	return parent + Segment(n)
}

// NextSiblingPath increments the last segment.
func NextSiblingPath(path string) string {
	return ParentPath(path) + Segment(SegmentValue(LastSegment(path))+1)
}

// Rebase replaces oldPrefix with newPrefix at the head of path. The caller
// guarantees the prefix matches.
func Rebase(path, oldPrefix, newPrefix string) string {
	return newPrefix + path[len(oldPrefix):]
}

// LetterLabel renders a 1-based index as a., b., ... z., then aa., ab., ...
// (spreadsheet extension; monotonic among equal-width labels).
func LetterLabel(i int) string {
	if i < 1 {
		return ""
	}
	var b []byte
	for i > 0 {
		i--
		b = append([]byte{byte('a' + i%26)}, b...)
		i /= 26
	}
	return string(b) + "."
}

var romanPairs = []struct {
	value  int
	letter string
}{
	{1000, "m"}, {900, "cm"}, {500, "d"}, {400, "cd"},
	{100, "c"}, {90, "xc"}, {50, "l"}, {40, "xl"},
	{10, "x"}, {9, "ix"}, {5, "v"}, {4, "iv"}, {1, "i"},
}

// RomanLabel renders a 1-based index as i., ii., iii., iv., ...
func RomanLabel(i int) string {
	if i < 1 {
		return ""
	}
	var b strings.Builder
	for _, p := range romanPairs {
		for i >= p.value {
			b.WriteString(p.letter)
			i -= p.value
		}
	}
	return b.String() + "."
}

// DisplayLabel renders the derived list glyph for a node at the given depth
// and 1-based sibling index. Depth 1 nodes (roots) carry no glyph.
func DisplayLabel(depth, index int) string {
	switch depth {
	case 1:
		return ""
	case 2:
		return fmt.Sprintf("%d.", index)
	case 3:
		return LetterLabel(index)
	default:
		return RomanLabel(index)
	}
}

// IndentPixels is the rendered indentation for a node depth.
func IndentPixels(depth int) int {
	if depth < 1 {
		return 0
	}
	return (depth - 1) * 40
}
