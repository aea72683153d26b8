// Package moderation masks disallowed words in chat messages.
package moderation

import (
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// Filter matches every censored word in one pass with an Aho-Corasick
// automaton built over folded text.
type Filter struct {
	machine *goahocorasick.Machine
	mask    rune
}

// NewFilter builds the automaton. An empty word list yields a pass-through
// filter.
func NewFilter(words []string, mask rune) (*Filter, error) {
	folded := lo.Uniq(lo.FilterMap(words, func(w string, _ int) (string, bool) {
		runes, _ := fold(strings.TrimSpace(w))
		return string(runes), len(runes) > 0
	}))
	f := &Filter{mask: mask}
	if len(folded) == 0 {
		return f, nil
	}
	patterns := lo.Map(folded, func(w string, _ int) []rune { return []rune(w) })
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	f.machine = m
	return f, nil
}

// Censor replaces every matched span, punctuation included, with the mask.
func (f *Filter) Censor(text string) string {
	if f == nil || f.machine == nil || text == "" {
		return text
	}
	folded, index := fold(text)
	if len(folded) == 0 {
		return text
	}
	hits := f.machine.MultiPatternSearch(folded, false)
	if len(hits) == 0 {
		return text
	}
	out := []rune(text)
	for _, h := range hits {
		end := h.Pos + len(h.Word) - 1
		if h.Pos < 0 || end >= len(index) {
			continue
		}
		for i := index[h.Pos]; i <= index[end]; i++ {
			if !unicode.IsSpace(out[i]) {
				out[i] = f.mask
			}
		}
	}
	return string(out)
}

// fold lowercases, undoes common digit/symbol substitutions and drops
// punctuation. index maps each folded rune back to its source position.
func fold(s string) (folded []rune, index []int) {
	src := []rune(s)
	folded = make([]rune, 0, len(src))
	index = make([]int, 0, len(src))
	for i, r := range src {
		r = unfake(unicode.ToLower(r))
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		folded = append(folded, r)
		index = append(index, i)
	}
	return folded, index
}

var lookalikes = map[rune]rune{
	'0': 'o',
	'1': 'i',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'7': 't',
	'@': 'a',
	'$': 's',
	'!': 'i',
}

func unfake(r rune) rune {
	if c, ok := lookalikes[r]; ok {
		return c
	}
	return r
}
