// Package recitation scores a transcribed recitation against its reference verse.
//
// Pipeline order
// 1 UTF-8 repair drop invalid bytes
// 2 NFKD decomposition so hamza carriers split into letter + combining hamza
// and presentation forms U+FB50..U+FEFF (the lam-alif ligature) fold to base letters
// 3 Remove Arabic diacritics, Quranic annotation marks and any other combining
// mark, the honorific signs U+0610..U+061A included
// 4 Remove everything outside the Arabic block except whitespace
// 5 Collapse whitespace to single spaces and trim
//
// Everything here is pure and safe for concurrent use.
package recitation

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// arabicMarks covers harakat, tanwin, shadda, sukun, superscript alif and
// the Quranic annotation signs.
var arabicMarks = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x064B, Hi: 0x065F, Stride: 1},
		{Lo: 0x0670, Hi: 0x0670, Stride: 1},
		{Lo: 0x06D6, Hi: 0x06ED, Stride: 1},
	},
}

// arabicBlock is U+0600..U+06FF
var arabicBlock = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0600, Hi: 0x06FF, Stride: 1},
	},
}

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKD,
			runes.Remove(runes.In(arabicMarks)),
			runes.Remove(runes.In(unicode.Mn)),
			runes.Remove(runes.Predicate(func(r rune) bool {
				return !unicode.Is(arabicBlock, r) && !unicode.IsSpace(r)
			})),
		)
	},
}

// Normalize reduces s to bare Arabic letters separated by single spaces.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	return strings.Join(strings.Fields(ns), " ")
}
