// Package tokenizer provides the text normalisation shared by index
// construction and query parsing. Both sides of a search must agree on
// token boundaries, so this is the only tokenizer in the codebase.
package tokenizer

import "strings"

// Tokenize lower-cases text, replaces every character that is not an ASCII
// letter, digit, or space with a space, and splits on whitespace runs.
// Tokens keep their original order; empty fragments are dropped. Non-ASCII
// characters are treated like punctuation and become separators.
//
// Tokenize is pure and never fails: any input, including the empty string,
// yields a (possibly empty) token slice.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	text = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == ' ':
			return r
		default:
			return ' '
		}
	}, text)
	return strings.Fields(text)
}
