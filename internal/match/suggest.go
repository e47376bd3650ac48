package match

import (
	"sort"
)

// DefaultThreshold is the minimum normalized score for a name to be suggested.
const DefaultThreshold = 0.6

// Candidate is a known name scored against an unrecognized one.
type Candidate struct {
	Name  string
	Score float64
}

// CandidateList is a list of candidates sorted by descending score.
type CandidateList []Candidate

func (c CandidateList) Len() int { return len(c) }

func (c CandidateList) Swap(i, j int) { c[i], c[j] = c[j], c[i] }

// Less orders by score, then by name for determinism.
func (c CandidateList) Less(i, j int) bool {
	if c[i].Score != c[j].Score {
		return c[i].Score > c[j].Score
	}

	return c[i].Name < c[j].Name
}

// Top returns at most n candidates.
func (c CandidateList) Top(n int) CandidateList {
	if n >= len(c) {
		return c
	}

	return c[:n]
}

// Names returns the candidate names in order.
func (c CandidateList) Names() []string {
	names := make([]string, len(c))
	for i := range c {
		names[i] = c[i].Name
	}

	return names
}

// Rank scores every known name against name and returns those at or above
// threshold, best first.
func Rank(name string, known []string, threshold float64) CandidateList {
	var res CandidateList

	for _, k := range known {
		score := Similarity(name, k)
		if score >= threshold {
			res = append(res, Candidate{Name: k, Score: score})
		}
	}

	sort.Sort(res)

	return res
}

// Suggest returns up to limit known names close to name, for "did you mean" hints.
func Suggest(name string, known []string, limit int) []string {
	return Rank(name, known, DefaultThreshold).Top(limit).Names()
}
