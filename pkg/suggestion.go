package symspell

import (
	"fmt"
	"sort"
)

// SuggestItem is a spelling candidate: the corrected term, its edit distance
// from the input, and its dictionary count (for compound results, the
// estimated joint count of the whole phrase).
type SuggestItem struct {
	Term     string `json:"term"`
	Distance int    `json:"distance"`
	Count    int64  `json:"count"`
}

func (s SuggestItem) String() string {
	return fmt.Sprintf("%s, %d, %d", s.Term, s.Distance, s.Count)
}

// less orders by ascending distance, then descending count, then term so the
// ranking is total and stable across runs.
func (s SuggestItem) less(o SuggestItem) bool {
	if s.Distance != o.Distance {
		return s.Distance < o.Distance
	}
	if s.Count != o.Count {
		return s.Count > o.Count
	}
	return s.Term < o.Term
}

func sortSuggestions(items []SuggestItem) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].less(items[j]) })
}
