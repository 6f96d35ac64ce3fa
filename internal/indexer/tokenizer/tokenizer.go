// Package tokenizer provides text tokenisation for the document indexer.
// It lower-cases input and splits it into maximal runs of word characters
// (letters, digits and underscore). Everything else is a separator.
package tokenizer

import (
	"strings"
	"unicode"
)

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into lowercased Tokens. No stop-words are removed and
// no stemming is applied, so every word occurrence is kept.
func Tokenize(text string) []Token {
	words := strings.FieldsFunc(lower(text), isSeparator)
	tokens := make([]Token, 0, len(words))
	for pos, word := range words {
		tokens = append(tokens, Token{
			Term:     word,
			Position: pos,
		})
	}
	return tokens
}

// Terms is Tokenize without positions.
func Terms(text string) []string {
	return strings.FieldsFunc(lower(text), isSeparator)
}

// Normalize lower-cases a query term. It does not split, so a multi-word
// query stays a single literal term.
func Normalize(term string) string {
	return lower(term)
}

// IsWordRune reports whether r belongs inside a token.
func IsWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_'
}

func isSeparator(r rune) bool {
	return !IsWordRune(r)
}

// lower is strings.ToLower plus the Greek final sigma rule: a capital sigma
// that ends a word lower-cases to ς, so "ΟΔΟΣ" becomes "οδος".
func lower(s string) string {
	if !strings.ContainsRune(s, 'Σ') {
		return strings.ToLower(s)
	}
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range runes {
		if r == 'Σ' && isFinalSigma(runes, i) {
			b.WriteRune('ς')
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// isFinalSigma reports whether the sigma at i follows a cased letter and is
// not followed by one, skipping case-ignorable runes in both directions.
func isFinalSigma(runes []rune, i int) bool {
	before := false
	for j := i - 1; j >= 0; j-- {
		if isCaseIgnorable(runes[j]) {
			continue
		}
		before = isCased(runes[j])
		break
	}
	if !before {
		return false
	}
	for j := i + 1; j < len(runes); j++ {
		if isCaseIgnorable(runes[j]) {
			continue
		}
		return !isCased(runes[j])
	}
	return true
}

func isCased(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
}

func isCaseIgnorable(r rune) bool {
	switch r {
	case '\'', '.', ':', '\u00b7', '\u0387', '\u2018', '\u2019', '\u2024', '\u2027':
		return true
	}
	return unicode.In(r, unicode.Mn, unicode.Me, unicode.Cf, unicode.Lm, unicode.Sk)
}
