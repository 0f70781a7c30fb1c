package corrector

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

func isUpper(s string) bool { return strings.ToUpper(s) == s && strings.ToLower(s) != s }

func isCapitalized(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func title(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
}

// matchCase renders corrected in the casing style of orig. A word the
// dictionary left alone keeps its exact original spelling.
func matchCase(orig, corrected string) string {
	switch {
	case strings.ToLower(orig) == corrected:
		return orig
	case utf8.RuneCountInString(orig) > 1 && isUpper(orig):
		return strings.ToUpper(corrected)
	case isCapitalized(orig):
		return title(corrected)
	default:
		return corrected
	}
}

// splitCase renders the two halves of a split word. When the split only
// inserted a space the original spelling is cut in two; otherwise the first
// half takes the word's style and the second stays lowercase unless the word
// was all caps.
func splitCase(orig, first, second string) []string {
	r := []rune(orig)
	n := utf8.RuneCountInString(first)
	if strings.ToLower(orig) == first+second && len(r) == n+utf8.RuneCountInString(second) {
		return []string{string(r[:n]), string(r[n:])}
	}
	if len(r) > 1 && isUpper(orig) {
		second = strings.ToUpper(second)
	}
	return []string{matchCase(orig, first), second}
}

type step uint8

const (
	keep  step = iota // one word to one word
	merge             // two words to one
	split             // one word to two
)

// transferCase aligns the original words with the corrected ones and copies
// casing across. Compound correction only ever maps one word to one, two to
// one or one to two, so the cheapest alignment by edit distance recovers
// which source word each corrected word came from.
func transferCase(orig, corrected []string) string {
	n, m := len(orig), len(corrected)
	if n == 0 || m == 0 {
		return strings.Join(corrected, " ")
	}
	lower := make([]string, n)
	for i, w := range orig {
		lower[i] = strings.ToLower(w)
	}

	const inf = math.MaxInt / 2
	cost := make([][]int, n+1)
	move := make([][]step, n+1)
	for i := range cost {
		cost[i] = make([]int, m+1)
		move[i] = make([]step, m+1)
		for j := range cost[i] {
			cost[i][j] = inf
		}
	}
	cost[n][m] = 0
	for i := n; i >= 0; i-- {
		for j := m; j >= 0; j-- {
			if i == n && j == m {
				continue
			}
			try := func(s step, di, dj int, a, b string) {
				if rest := cost[i+di][j+dj]; rest < inf {
					if c := rest + edlib.OSADamerauLevenshteinDistance(a, b); c < cost[i][j] {
						cost[i][j], move[i][j] = c, s
					}
				}
			}
			if i < n && j < m {
				try(keep, 1, 1, lower[i], corrected[j])
			}
			if i+1 < n && j < m {
				try(merge, 2, 1, lower[i]+lower[i+1], corrected[j])
			}
			if i < n && j+1 < m {
				try(split, 1, 2, lower[i], corrected[j]+corrected[j+1])
			}
		}
	}
	if cost[0][0] == inf {
		corrected[0] = matchCase(orig[0], corrected[0])
		return strings.Join(corrected, " ")
	}

	out := make([]string, 0, m)
	for i, j := 0, 0; i < n; {
		switch move[i][j] {
		case keep:
			out = append(out, matchCase(orig[i], corrected[j]))
			i, j = i+1, j+1
		case merge:
			out = append(out, matchCase(orig[i]+orig[i+1], corrected[j]))
			i, j = i+2, j+1
		case split:
			out = append(out, splitCase(orig[i], corrected[j], corrected[j+1])...)
			i, j = i+1, j+2
		}
	}
	return strings.Join(out, " ")
}
