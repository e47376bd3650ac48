package match

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Distance returns the Levenshtein edit distance between a and b, counted
// in runes.
func Distance(a, b string) int {
	if a == b {
		return 0
	}

	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}

	// One row over the shorter string; row[j] is the distance between the
	// consumed prefix of ra and rb[:j].
	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}

	for i, ca := range ra {
		diag := row[0]
		row[0] = i + 1

		for j, cb := range rb {
			above := row[j+1]

			cost := 1
			if ca == cb {
				cost = 0
			}

			row[j+1] = min(above+1, row[j]+1, diag+cost)
			diag = above
		}
	}

	return row[len(rb)]
}

// Similarity scores a against b between 0 (nothing in common) and 1
// (equal once normalized).
func Similarity(a, b string) float64 {
	na, nb := NormalizeIdent(a), NormalizeIdent(b)

	longest := max(utf8.RuneCountInString(na), utf8.RuneCountInString(nb))
	if longest == 0 {
		return 1
	}

	return 1 - float64(Distance(na, nb))/float64(longest)
}

// NormalizeIdent folds an element or type name for comparison:
// "local_end" and "End" both become "end", "value[x]" becomes "value" and
// "Measure.Group" becomes "measuregroup".
func NormalizeIdent(s string) string {
	s = strings.TrimPrefix(s, "local_")
	s = strings.TrimSuffix(s, "[x]")

	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.', ' ':
			return -1
		}

		return unicode.ToLower(r)
	}, s)
}
