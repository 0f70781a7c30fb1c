package symspell

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"

	"gramfix/pkg/verbosity"
)

// n approximates the number of words in the corpus the English frequency
// dictionary was built from; it normalises counts into probabilities.
const n = 1024908267229.0

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// ParseWords lowercases text and splits it into terms. Punctuation is
// dropped; apostrophes inside a word are kept.
func ParseWords(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// LookupCompound corrects a multi-word phrase as a whole. It handles three
// cases: a space wrongly inserted into a word, a space wrongly omitted between
// two words, and independent misspellings of separate words. The result is a
// single suggestion whose Term is the full corrected phrase in lowercase and
// whose Distance is measured against the lowercased input.
func (s *SymSpell) LookupCompound(phrase string, maxEditDistance int) ([]SuggestItem, error) {
	if maxEditDistance > s.options.MaxDictionaryEditDistance {
		return nil, ErrEditDistanceTooLarge
	}
	terms := ParseWords(phrase)
	if len(terms) == 0 {
		return nil, nil
	}

	parts := make([]SuggestItem, 0, len(terms))
	lastCombi := false
	lastKept := false

	for i, term := range terms {
		if s.keepVerbatim(term) {
			parts = append(parts, SuggestItem{Term: term, Distance: 0, Count: 0})
			lastCombi, lastKept = false, true
			continue
		}

		suggestions, err := s.Lookup(term, verbosity.Top, maxEditDistance)
		if err != nil {
			return nil, err
		}

		// merge with the previous term, always tried before splitting
		if i > 0 && !lastCombi && !lastKept {
			combi, err := s.Lookup(terms[i-1]+term, verbosity.Top, maxEditDistance)
			if err != nil {
				return nil, err
			}
			if len(combi) > 0 {
				best1 := parts[len(parts)-1]
				best2 := unknownItem(term, maxEditDistance)
				if len(suggestions) > 0 {
					best2 = suggestions[0]
				}
				distance1 := best1.Distance + best2.Distance
				if distance1 >= 0 &&
					(combi[0].Distance+1 < distance1 ||
						(combi[0].Distance+1 == distance1 &&
							float64(combi[0].Count) > float64(best1.Count)/n*float64(best2.Count))) {
					merged := combi[0]
					merged.Distance++
					parts[len(parts)-1] = merged
					lastCombi, lastKept = true, false
					continue
				}
			}
		}
		lastCombi, lastKept = false, false

		// exact matches and single characters are never split
		if len(suggestions) > 0 && (suggestions[0].Distance == 0 || runeLen(term) == 1) {
			parts = append(parts, suggestions[0])
			continue
		}

		var best *SuggestItem
		if len(suggestions) > 0 {
			best = &suggestions[0]
		}
		runes := []rune(term)
		for j := 1; j < len(runes); j++ {
			part1, part2 := string(runes[:j]), string(runes[j:])
			s1, err := s.Lookup(part1, verbosity.Top, maxEditDistance)
			if err != nil {
				return nil, err
			}
			if len(s1) == 0 {
				continue
			}
			s2, err := s.Lookup(part2, verbosity.Top, maxEditDistance)
			if err != nil {
				return nil, err
			}
			if len(s2) == 0 {
				continue
			}

			splitTerm := s1[0].Term + " " + s2[0].Term
			// a split outside the bound is no better than leaving the term alone
			splitDistance := edlib.OSADamerauLevenshteinDistance(term, splitTerm)
			if splitDistance > maxEditDistance {
				continue
			}
			if best != nil {
				if splitDistance > best.Distance {
					continue
				}
				if splitDistance < best.Distance {
					best = nil
				}
			}

			var splitCount int64
			if bigram, ok := s.bigrams[splitTerm]; ok {
				splitCount = bigram
				if len(suggestions) > 0 {
					single := suggestions[0]
					if s1[0].Term+s2[0].Term == term {
						splitCount = max(splitCount, single.Count+2)
					} else if s1[0].Term == single.Term || s2[0].Term == single.Term {
						splitCount = max(splitCount, single.Count+1)
					}
				} else if s1[0].Term+s2[0].Term == term {
					splitCount = max(splitCount, max(s1[0].Count, s2[0].Count)+2)
				}
			} else {
				// naive Bayes: P(AB) = P(A) * P(B)
				naive := float64(s1[0].Count) / n * float64(s2[0].Count)
				splitCount = min(s.bigramCountMin, int64(naive))
			}

			split := SuggestItem{Term: splitTerm, Distance: splitDistance, Count: splitCount}
			if best == nil || split.Count > best.Count {
				best = &split
			}
		}

		if best != nil {
			parts = append(parts, *best)
		} else {
			parts = append(parts, unknownItem(term, maxEditDistance))
		}
	}

	var sb strings.Builder
	joined := n
	for i, p := range parts {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(p.Term)
		joined *= float64(p.Count) / n
	}
	term := sb.String()
	count := int64(math.MaxInt64)
	if joined < float64(math.MaxInt64) {
		count = int64(joined)
	}
	distance := edlib.OSADamerauLevenshteinDistance(strings.Join(terms, " "), term)
	return []SuggestItem{{Term: term, Distance: distance, Count: count}}, nil
}

// keepVerbatim reports terms the dictionary cannot meaningfully correct:
// numbers and digit-bearing tokens (when configured) and contractions, which
// the frequency dictionary does not carry.
func (s *SymSpell) keepVerbatim(term string) bool {
	if strings.ContainsAny(term, "'’") {
		return true
	}
	if s.options.IgnoreTermsWithDigits && strings.IndexFunc(term, unicode.IsDigit) >= 0 {
		return true
	}
	return false
}

// unknownItem stands in for a term with no suggestion, counted as 10 / 10^len.
func unknownItem(term string, maxEditDistance int) SuggestItem {
	var count int64
	if runeLen(term) <= 1 {
		count = 1
	}
	return SuggestItem{Term: term, Distance: maxEditDistance + 1, Count: count}
}

func runeLen(s string) int { return len([]rune(s)) }
