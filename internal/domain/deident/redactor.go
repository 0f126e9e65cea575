package deident

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// RedactionEntry maps one placeholder token back to the identifying value it
// replaced. One entry exists per distinct (category, value) pair found in the
// text, not per occurrence and not per format variant.
type RedactionEntry struct {
	Placeholder   string
	Category      IdentifierCategory
	OriginalValue string
}

// RedactionMapping is the ordered set of substitutions made during one
// redaction call, in order of first occurrence in the source text. It must be
// discarded once re-identification completes.
type RedactionMapping []RedactionEntry

// ScrubResult is the outcome of one redaction call.
type ScrubResult struct {
	ScrubbedText string
	Mapping      RedactionMapping
}

// ErrLeak reports that a scrubbed text still contains a verbatim identifier
// value. Callers must fail closed: text carrying this error never leaves the
// trusted boundary.
var ErrLeak = errors.New("deident: identifier value present in scrubbed text")

// piece is a region of the working text. A piece with a non-nil entry is an
// already-placed placeholder and is opaque to further scanning.
type piece struct {
	text  string
	entry *RedactionEntry
}

// Redact replaces every whole-token occurrence of the patient's identifying
// values in sourceText with placeholder tokens. It never fails: an empty
// source or an empty identifier set yields the source unchanged with an empty
// mapping.
//
// Surface forms are substituted longest first so that a shorter form that is a
// substring of a longer one cannot match inside text a more specific form has
// already claimed. Matching is case-insensitive and bounded at word edges.
func Redact(sourceText string, ids PatientIdentifiers) ScrubResult {
	forms := normalize(ids)
	if sourceText == "" || len(forms) == 0 {
		return ScrubResult{ScrubbedText: sourceText, Mapping: RedactionMapping{}}
	}

	// Longest first. The sort is stable so equal-length forms keep the fixed
	// field order from the normalizer, which makes the category that claims a
	// textually identical value deterministic.
	sort.SliceStable(forms, func(i, j int) bool {
		return len(forms[i].form) > len(forms[j].form)
	})

	// One shared entry per (category, canonical value) pair, allocated on the
	// first form of the pair that matches anywhere.
	entries := make(map[string]*RedactionEntry)
	entryKey := func(f surfaceForm) string {
		return string(f.category) + "\x00" + strings.ToLower(f.canonical)
	}

	pieces := []piece{{text: sourceText}}
	for _, f := range forms {
		pieces = substituteForm(pieces, f, entries, entryKey(f))
	}

	// Assign tokens and assemble the mapping in first-occurrence order.
	var (
		b       strings.Builder
		mapping = RedactionMapping{}
		next    = 1
	)
	for _, p := range pieces {
		if p.entry == nil {
			b.WriteString(p.text)
			continue
		}
		if p.entry.Placeholder == "" {
			p.entry.Placeholder = fmt.Sprintf("[[%s-%d]]", p.entry.Category.tokenWord(), next)
			next++
			mapping = append(mapping, *p.entry)
		}
		b.WriteString(p.entry.Placeholder)
	}

	return ScrubResult{ScrubbedText: b.String(), Mapping: mapping}
}

// substituteForm scans every unlocked piece for whole-token occurrences of the
// form and splits matches out into locked placeholder pieces.
func substituteForm(pieces []piece, f surfaceForm, entries map[string]*RedactionEntry, key string) []piece {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(f.form))

	var out []piece
	for _, p := range pieces {
		if p.entry != nil {
			out = append(out, p)
			continue
		}

		locs := wholeTokenMatches(p.text, re)
		if len(locs) == 0 {
			out = append(out, p)
			continue
		}

		entry := entries[key]
		if entry == nil {
			entry = &RedactionEntry{Category: f.category, OriginalValue: f.canonical}
			entries[key] = entry
		}

		prev := 0
		for _, loc := range locs {
			if loc[0] > prev {
				out = append(out, piece{text: p.text[prev:loc[0]]})
			}
			out = append(out, piece{entry: entry})
			prev = loc[1]
		}
		if prev < len(p.text) {
			out = append(out, piece{text: p.text[prev:]})
		}
	}
	return out
}

// wholeTokenMatches returns the index ranges of case-insensitive matches whose
// edges fall on token boundaries: the rune adjacent to an alphanumeric match
// edge must not itself be alphanumeric. Punctuation-adjacent matches and
// possessives ("Doe's") therefore still count.
func wholeTokenMatches(text string, re *regexp.Regexp) [][]int {
	var locs [][]int
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if boundaryBefore(text, loc[0]) && boundaryAfter(text, loc[1]) {
			locs = append(locs, loc)
		}
	}
	return locs
}

func boundaryBefore(text string, start int) bool {
	first, _ := utf8.DecodeRuneInString(text[start:])
	if !isWordRune(first) {
		return true
	}
	if start == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:start])
	return !isWordRune(prev)
}

func boundaryAfter(text string, end int) bool {
	last, _ := utf8.DecodeLastRuneInString(text[:end])
	if !isWordRune(last) {
		return true
	}
	if end == len(text) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(text[end:])
	return !isWordRune(next)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

var placeholderPattern = regexp.MustCompile(`\[\[[A-Z]+-[0-9]+\]\]`)

// VerifyScrubbed checks the no-leak invariant: the scrubbed text must contain
// no whole-token occurrence of any populated identifier value. A violation is
// fatal to the call that produced the text; returning it to a caller would be
// a compliance failure, not a formatting bug.
//
// Placeholder tokens are opaque to the scan. An identifier that collides with
// token vocabulary (a surname "Payer", a payer id equal to a token ordinal)
// must not match inside a placeholder and fail a clean text.
func VerifyScrubbed(scrubbedText string, ids PatientIdentifiers) error {
	masked := placeholderPattern.ReplaceAllStringFunc(scrubbedText, func(tok string) string {
		return strings.Repeat(" ", len(tok))
	})
	for _, f := range normalize(ids) {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(f.form))
		if len(wholeTokenMatches(masked, re)) > 0 {
			return fmt.Errorf("%w (category %s)", ErrLeak, f.category)
		}
	}
	return nil
}
