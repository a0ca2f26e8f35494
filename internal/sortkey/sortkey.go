// Package sortkey derives the canonical comparison key of a headword.
//
// Keys are used only for ordering and matching, never for display. The
// pipeline folds Greek and Latin spellings of the same name onto one ASCII
// form so that headwords from different volumes sort into a single total
// order.
package sortkey

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	leadingParticleRe = regexp.MustCompile(`^a[db]? `)
	leadingAbbrevRe   = regexp.MustCompile(`^[a-z]?\. `)
	numeralRe         = regexp.MustCompile(`[0-9]+`)
)

// Rough-breathing approximations for a Greek vowel opening a word.
var initialVowels = map[rune]string{
	'Ε': "he", 'ε': "he", 'Η': "he", 'η': "he",
	'Ι': "hi", 'ι': "hi",
	'Ο': "ho", 'ο': "ho",
	'Υ': "hy", 'υ': "hy",
}

// Applied after case folding; every class collapses onto one ASCII letter group.
var translation = map[rune]string{
	'α': "a",
	'β': "b",
	'χ': "ch",
	'δ': "d",
	'ε': "e", 'η': "e",
	'γ': "g",
	'ι': "i", 'j': "i",
	'κ': "k",
	'λ': "l",
	'μ': "m",
	'ν': "n",
	'ο': "o", 'ω': "o",
	'π': "p",
	'φ': "ph",
	'ψ': "ps",
	'ρ': "r",
	'σ': "s", 'ς': "s",
	'τ': "t",
	'θ': "th",
	'υ': "u", 'v': "u", 'w': "u",
	'ξ': "x",
	'ζ': "z",

	'(': "", ')': "", '?': "", '\'': "", 'ʾ': "", 'ʿ': "", '-': "", '–': "",
}

// Normalize returns the sort key of text. It is total, deterministic and
// idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	key := stripMarks(text)
	key = rewriteInitialVowels(key)
	key = translate(cases.Fold().String(key))

	// Stripping a particle or a dot can expose another leading particle,
	// so the tail of the pipeline runs to a fixed point.
	for {
		next := tidy(key)
		if next == key {
			return key
		}
		key = next
	}
}

func stripMarks(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

func rewriteInitialVowels(text string) string {
	text = strings.ReplaceAll(text, "ου", "u")
	text = strings.ReplaceAll(text, "Ου", "U")

	var b strings.Builder
	b.Grow(len(text))
	wordStart := true
	for _, r := range text {
		if repl, ok := initialVowels[r]; ok && wordStart {
			b.WriteString(repl)
		} else {
			b.WriteRune(r)
		}
		wordStart = r == ' '
	}
	return b.String()
}

func translate(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if repl, ok := translation[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func tidy(key string) string {
	key = leadingParticleRe.ReplaceAllString(key, "")
	key = leadingAbbrevRe.ReplaceAllString(key, "")
	key = numeralRe.ReplaceAllStringFunc(key, padNumeral)
	key = strings.ReplaceAll(key, ".", " ")
	return strings.Trim(key, " ")
}

func padNumeral(digits string) string {
	if len(digits) >= 3 {
		return digits
	}
	return strings.Repeat("0", 3-len(digits)) + digits
}
