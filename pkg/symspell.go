// Package symspell implements symmetric-delete spelling correction: a
// dictionary of terms and counts is indexed by every deletion of each term's
// prefix, so candidate lookup only ever generates deletions of the input.
//
// A SymSpell is built once (CreateDictionaryEntry / LoadDictionary*) and is
// then safe for concurrent Lookup and LookupCompound calls as long as nothing
// adds entries any more.
package symspell

import (
	"errors"
	"fmt"
	"math"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hbollon/go-edlib"

	"gramfix/pkg/options"
	"gramfix/pkg/verbosity"
)

// ErrEditDistanceTooLarge is returned when a lookup asks for a larger edit
// distance than the one the index was built with.
var ErrEditDistanceTooLarge = errors.New("symspell: lookup edit distance exceeds dictionary edit distance")

type SymSpell struct {
	options options.SymspellOptions

	// deletes maps every prefix deletion to the dictionary terms it came from.
	deletes map[string][]string
	// words holds terms at or above the count threshold.
	words map[string]int64
	// belowThreshold accumulates counts of terms not yet frequent enough.
	belowThreshold map[string]int64

	bigrams        map[string]int64
	bigramCountMin int64

	maxLength int
}

func NewSymSpell(opt ...options.Options) *SymSpell {
	o := options.DefaultOptions
	for _, config := range opt {
		config.Apply(&o)
	}
	if o.MaxDictionaryEditDistance < 0 {
		o.MaxDictionaryEditDistance = 0
	}
	if o.PrefixLength < 1 || o.PrefixLength <= o.MaxDictionaryEditDistance {
		o.PrefixLength = o.MaxDictionaryEditDistance + 1
	}
	if o.CountThreshold < 0 {
		o.CountThreshold = 0
	}
	return &SymSpell{
		options:        o,
		deletes:        make(map[string][]string),
		words:          make(map[string]int64),
		belowThreshold: make(map[string]int64),
		bigrams:        make(map[string]int64),
		bigramCountMin: math.MaxInt64,
	}
}

// Options returns the effective index parameters.
func (s *SymSpell) Options() options.SymspellOptions { return s.options }

// WordCount is the number of terms usable as corrections.
func (s *SymSpell) WordCount() int { return len(s.words) }

// EntryCount is the number of distinct deletions in the index.
func (s *SymSpell) EntryCount() int { return len(s.deletes) }

// MaxLength is the rune length of the longest indexed term.
func (s *SymSpell) MaxLength() int { return s.maxLength }

// Count returns the count of term and whether it is a dictionary word.
func (s *SymSpell) Count(term string) (int64, bool) {
	c, ok := s.words[term]
	return c, ok
}

// CreateDictionaryEntry adds count occurrences of term. It reports whether the
// term became a new dictionary word (as opposed to an update or a term still
// below the count threshold).
func (s *SymSpell) CreateDictionaryEntry(term string, count int64) bool {
	if count <= 0 {
		if s.options.CountThreshold > 0 {
			return false
		}
		count = 0
	}

	if s.options.CountThreshold > 1 {
		if prev, ok := s.belowThreshold[term]; ok {
			count = saturatingAdd(prev, count)
			if count < s.options.CountThreshold {
				s.belowThreshold[term] = count
				return false
			}
			delete(s.belowThreshold, term)
		} else if prev, ok := s.words[term]; ok {
			s.words[term] = saturatingAdd(prev, count)
			return false
		} else if count < s.options.CountThreshold {
			s.belowThreshold[term] = count
			return false
		}
	} else if prev, ok := s.words[term]; ok {
		s.words[term] = saturatingAdd(prev, count)
		return false
	}

	s.words[term] = count
	if n := len([]rune(term)); n > s.maxLength {
		s.maxLength = n
	}

	for _, del := range s.editsPrefix(term).ToSlice() {
		s.deletes[del] = append(s.deletes[del], term)
	}
	return true
}

// editsPrefix returns term's prefix and every deletion of it up to the
// dictionary edit distance.
func (s *SymSpell) editsPrefix(term string) mapset.Set[string] {
	set := mapset.NewThreadUnsafeSet[string]()
	runes := []rune(term)
	if len(runes) <= s.options.MaxDictionaryEditDistance {
		set.Add("")
	}
	if len(runes) > s.options.PrefixLength {
		runes = runes[:s.options.PrefixLength]
	}
	set.Add(string(runes))
	s.edits(runes, 0, set)
	return set
}

func (s *SymSpell) edits(word []rune, distance int, set mapset.Set[string]) {
	distance++
	if len(word) <= 1 {
		return
	}
	for i := range word {
		del := removeAt(word, i)
		if set.Add(string(del)) && distance < s.options.MaxDictionaryEditDistance {
			s.edits(del, distance, set)
		}
	}
}

// Lookup returns dictionary suggestions for a single term within
// maxEditDistance, ordered by distance then count.
func (s *SymSpell) Lookup(input string, verb verbosity.Verbosity, maxEditDistance int) ([]SuggestItem, error) {
	if maxEditDistance > s.options.MaxDictionaryEditDistance {
		return nil, fmt.Errorf("%w: %d > %d", ErrEditDistanceTooLarge, maxEditDistance, s.options.MaxDictionaryEditDistance)
	}
	if maxEditDistance < 0 {
		maxEditDistance = 0
	}

	var suggestions []SuggestItem
	inputRunes := []rune(input)
	inputLen := len(inputRunes)

	// too long to match anything
	if inputLen-maxEditDistance > s.maxLength {
		return suggestions, nil
	}

	if count, ok := s.words[input]; ok {
		suggestions = append(suggestions, SuggestItem{Term: input, Distance: 0, Count: count})
		if verb != verbosity.All {
			return suggestions, nil
		}
	}
	if maxEditDistance == 0 {
		return suggestions, nil
	}

	consideredDeletes := mapset.NewThreadUnsafeSet[string]()
	consideredSuggestions := mapset.NewThreadUnsafeSet[string](input)

	maxEditDistance2 := maxEditDistance
	prefixLength := s.options.PrefixLength

	inputPrefixLen := inputLen
	candidates := make([]string, 0, 16)
	if inputPrefixLen > prefixLength {
		inputPrefixLen = prefixLength
		candidates = append(candidates, string(inputRunes[:inputPrefixLen]))
	} else {
		candidates = append(candidates, input)
	}

	for pointer := 0; pointer < len(candidates); pointer++ {
		candidate := candidates[pointer]
		candidateRunes := []rune(candidate)
		candidateLen := len(candidateRunes)
		lengthDiff := inputPrefixLen - candidateLen

		// candidates are ordered by deletion count, none further on can be closer
		if lengthDiff > maxEditDistance2 {
			if verb == verbosity.All {
				continue
			}
			break
		}

		for _, suggestion := range s.deletes[candidate] {
			if suggestion == input {
				continue
			}
			suggestionRunes := []rune(suggestion)
			suggestionLen := len(suggestionRunes)
			if abs(suggestionLen-inputLen) > maxEditDistance2 ||
				suggestionLen < candidateLen ||
				(suggestionLen == candidateLen && suggestion != candidate) {
				continue
			}
			suggestionPrefixLen := min(suggestionLen, prefixLength)
			if suggestionPrefixLen > inputPrefixLen && suggestionPrefixLen-candidateLen > maxEditDistance2 {
				continue
			}

			var distance int
			switch {
			case candidateLen == 0:
				// no common characters at all
				distance = max(inputLen, suggestionLen)
				if distance > maxEditDistance2 || !consideredSuggestions.Add(suggestion) {
					continue
				}
			case suggestionLen == 1:
				if strings.ContainsRune(input, suggestionRunes[0]) {
					distance = inputLen - 1
				} else {
					distance = inputLen
				}
				if distance > maxEditDistance2 || !consideredSuggestions.Add(suggestion) {
					continue
				}
			default:
				if (verb != verbosity.All && !s.deleteInSuggestionPrefix(candidateRunes, suggestionRunes)) ||
					!consideredSuggestions.Add(suggestion) {
					continue
				}
				distance = edlib.OSADamerauLevenshteinDistance(input, suggestion)
			}

			if distance > maxEditDistance2 {
				continue
			}
			item := SuggestItem{Term: suggestion, Distance: distance, Count: s.words[suggestion]}
			if len(suggestions) > 0 {
				switch verb {
				case verbosity.Closest:
					if distance < maxEditDistance2 {
						suggestions = suggestions[:0]
					}
				case verbosity.Top:
					if distance < maxEditDistance2 || item.Count > suggestions[0].Count {
						maxEditDistance2 = distance
						suggestions[0] = item
					}
					continue
				}
			}
			if verb != verbosity.All {
				maxEditDistance2 = distance
			}
			suggestions = append(suggestions, item)
		}

		// derive further deletions of the candidate
		if lengthDiff < maxEditDistance && candidateLen <= prefixLength {
			if verb != verbosity.All && lengthDiff >= maxEditDistance2 {
				continue
			}
			for i := range candidateRunes {
				del := string(removeAt(candidateRunes, i))
				if consideredDeletes.Add(del) {
					candidates = append(candidates, del)
				}
			}
		}
	}

	if len(suggestions) > 1 {
		sortSuggestions(suggestions)
	}
	return suggestions, nil
}

// deleteInSuggestionPrefix checks that every rune of del appears, in order,
// within the indexed prefix of suggestion. A false result means the delete and
// the suggestion only met through an unrelated deletion path.
func (s *SymSpell) deleteInSuggestionPrefix(del, suggestion []rune) bool {
	if len(del) == 0 {
		return true
	}
	suggestionLen := min(len(suggestion), s.options.PrefixLength)
	j := 0
	for _, r := range del {
		for j < suggestionLen && r != suggestion[j] {
			j++
		}
		if j == suggestionLen {
			return false
		}
	}
	return true
}

func removeAt(runes []rune, i int) []rune {
	out := make([]rune, 0, len(runes)-1)
	out = append(out, runes[:i]...)
	return append(out, runes[i+1:]...)
}

func saturatingAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
