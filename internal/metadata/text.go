package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"scoreflow/internal/instruments"
	"scoreflow/internal/textutil"
)

var titleStopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {},
	"and": {}, "but": {}, "or": {}, "nor": {}, "for": {}, "yet": {}, "so": {},
	"as": {}, "at": {}, "by": {}, "in": {}, "of": {}, "on": {}, "to": {}, "up": {}, "via": {},
}

func collapseSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// NormalizeTitle collapses whitespace and title-cases value, keeping
// articles, conjunctions, and short prepositions lowercase unless they open
// the title.
func NormalizeTitle(value string) string {
	words := strings.Fields(value)
	if len(words) == 0 {
		return ""
	}
	// Casers carry state; build one per call.
	caser := cases.Title(language.English)
	for idx, word := range words {
		lowered := strings.ToLower(word)
		if _, stop := titleStopwords[lowered]; stop && idx > 0 {
			words[idx] = lowered
			continue
		}
		words[idx] = caser.String(lowered)
	}
	return strings.Join(words, " ")
}

// NormalizePersonName turns "Last, First" into "First Last" and proper-cases
// every word. Further comma-separated pieces ("Smith, John, Jr.") follow the
// reordered name without commas, so the result never needs reordering again.
func NormalizePersonName(value string) string {
	value = collapseSpace(value)
	if value == "" {
		return ""
	}
	if strings.Contains(value, ",") {
		pieces := strings.Split(value, ",")
		last := strings.TrimSpace(pieces[0])
		words := make([]string, 0, len(pieces))
		if first := strings.TrimSpace(pieces[1]); first != "" {
			words = append(words, first)
		}
		if last != "" {
			words = append(words, last)
		}
		for _, suffix := range pieces[2:] {
			if suffix = strings.TrimSpace(suffix); suffix != "" {
				words = append(words, suffix)
			}
		}
		value = strings.Join(words, " ")
	}
	return cases.Title(language.Und).String(strings.ToLower(value))
}

// NormalizePublisher collapses whitespace. Publisher names carry their own
// casing ("C.L. Barnhouse") so it is left alone.
func NormalizePublisher(value string) string {
	return collapseSpace(value)
}

var chairOrdinals = map[string]string{
	"1": "1st", "1st": "1st", "first": "1st", "i": "1st",
	"2": "2nd", "2nd": "2nd", "second": "2nd", "ii": "2nd",
	"3": "3rd", "3rd": "3rd", "third": "3rd", "iii": "3rd",
	"4": "4th", "4th": "4th", "fourth": "4th", "iv": "4th",
}

var chairSpecials = map[string]string{
	"aux":  "Aux",
	"solo": "Solo",
}

// NormalizeChair maps any representation of the first four chairs to
// "1st".."4th" and recognizes Aux and Solo. It returns "" for empty input
// and the lowercased input for anything else.
func NormalizeChair(value string) string {
	lowered := strings.ToLower(collapseSpace(value))
	if lowered == "" {
		return ""
	}
	if canonical, ok := chairOrdinals[lowered]; ok {
		return canonical
	}
	if canonical, ok := chairSpecials[lowered]; ok {
		return canonical
	}
	return lowered
}

// NormalizeChairNumber is NormalizeChair for numeric input.
func NormalizeChairNumber(n int) string {
	return NormalizeChair(strconv.Itoa(n))
}

// ChairFromLabel pulls a chair designation out of a part label such as
// "2nd Bb Trumpet" or "Clarinet III". It returns "" when the label names no
// chair.
func ChairFromLabel(label string) string {
	tokens := strings.FieldsFunc(label, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, token := range tokens {
		lowered := strings.ToLower(token)
		// Lowercase roman numerals are too easy to hit by accident.
		if isRoman(lowered) && token != strings.ToUpper(token) {
			continue
		}
		if canonical, ok := chairOrdinals[lowered]; ok {
			return canonical
		}
		if canonical, ok := chairSpecials[lowered]; ok {
			return canonical
		}
	}
	return ""
}

func isRoman(lowered string) bool {
	switch lowered {
	case "i", "ii", "iii", "iv":
		return true
	}
	return false
}

var transpositionAliases = map[string]instruments.Transposition{
	"c": instruments.TranspositionC, "concert": instruments.TranspositionC, "concertpitch": instruments.TranspositionC,
	"bb": instruments.TranspositionBb,
	"eb": instruments.TranspositionEb,
	"f":  instruments.TranspositionF,
	"g":  instruments.TranspositionG,
	"d":  instruments.TranspositionD,
	"a":  instruments.TranspositionA,
}

var flatReplacer = strings.NewReplacer("♭", "b", "-flat", "b", " flat", "b", "flat", "b", " ", "", "-", "")

// NormalizeTransposition canonicalizes flat spellings ("B-flat", "B♭") and
// bare keys to the supported transpositions, defaulting to C.
func NormalizeTransposition(value string) instruments.Transposition {
	lowered := strings.ToLower(collapseSpace(value))
	lowered = strings.TrimPrefix(lowered, "in ")
	lowered = flatReplacer.Replace(lowered)
	if t, ok := transpositionAliases[lowered]; ok {
		return t
	}
	return instruments.TranspositionC
}

// GeneratePartFingerprint builds the dedup key for a normalized part. The
// result depends only on its arguments.
func GeneratePartFingerprint(sessionID, instrument, chair string, pageStart, pageEnd int) string {
	chairToken := "no-chair"
	if strings.TrimSpace(chair) != "" {
		chairToken = textutil.Slugify(chair)
	}
	return fmt.Sprintf("%s:%s:%s:p%d-%d", strings.TrimSpace(sessionID), textutil.Slugify(instrument), chairToken, pageStart, pageEnd)
}
