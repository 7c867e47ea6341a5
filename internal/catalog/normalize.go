package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FuzzyWildcard is the single-character wildcard the fuzzy transform emits in
// place of vowels. It matches exactly one character in pattern predicates.
const FuzzyWildcard = '_'

// fuzzyVowels is the character class replaced by the fuzzy transform: the
// five vowels, upper and lower case, plus their common diacritic variants.
// Driven by a table so the class is extensible without touching the
// transform itself.
var fuzzyVowels = func() map[rune]struct{} {
	const chars = "aeiouAEIOU" +
		"áéíóúÁÉÍÓÚ" +
		"àèìòùÀÈÌÒÙ" +
		"äëïöüÄËÏÖÜ" +
		"âêîôûÂÊÎÔÛ"
	set := make(map[rune]struct{}, len(chars))
	for _, r := range chars {
		set[r] = struct{}{}
	}
	return set
}()

var tokenSeparators = strings.NewReplacer(
	"(", " ", ")", " ",
	",", " ", ".", " ",
	"-", " ", "/", " ",
)

// Tokenize splits free search text into terms, treating common punctuation as
// whitespace and dropping empty tokens.
func Tokenize(text string) []string {
	return strings.Fields(tokenSeparators.Replace(text))
}

// FuzzyTerm replaces every vowel of a term with FuzzyWildcard so that pattern
// matches tolerate accents and vowel misspellings. Terms of up to three runes
// are returned unchanged. Pure and idempotent: wildcards are not vowels, so
// re-fuzzing already fuzzed text is a no-op.
func FuzzyTerm(term string) string {
	r := []rune(term)
	if len(r) <= 3 {
		return term
	}
	for i, c := range r {
		if _, ok := fuzzyVowels[c]; ok {
			r[i] = FuzzyWildcard
		}
	}
	return string(r)
}

// stripDiacritics folds accented characters to their ASCII base form via NFD
// decomposition and combining-mark removal.
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeLocation canonicalizes a free-text site name for comparison:
// diacritics stripped, case folded, surrounding whitespace trimmed. The
// allocator keys its suffix and ceiling configuration by this form.
func NormalizeLocation(location string) string {
	return strings.ToLower(strings.TrimSpace(stripDiacritics(location)))
}
