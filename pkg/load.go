package symspell

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/edsrzf/mmap-go"
)

// ErrEmptyDictionary is returned when a dictionary source yields no usable entries.
var ErrEmptyDictionary = errors.New("symspell: dictionary has no entries")

// LoadDictionaryFile memory-maps path and loads it with LoadDictionary.
func (s *SymSpell) LoadDictionaryFile(path string, termIndex, countIndex int, separator string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("symspell: open dictionary: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("symspell: stat dictionary: %w", err)
	}
	if st.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyDictionary, path)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return fmt.Errorf("symspell: mmap dictionary: %w", err)
	}
	defer m.Unmap()

	return s.LoadDictionary(bytes.NewReader(m), termIndex, countIndex, separator)
}

// LoadDictionary reads one entry per line. Fields are split on separator, or
// on any run of whitespace when separator is empty. Lines whose count does not
// parse are skipped.
func (s *SymSpell) LoadDictionary(r io.Reader, termIndex, countIndex int, separator string) error {
	n := 0
	err := scanEntries(r, termIndex, countIndex, separator, func(term string, count int64) {
		s.CreateDictionaryEntry(term, count)
		n++
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEmptyDictionary
	}
	return nil
}

// LoadBigramDictionary reads "w1 w2 count" lines (termIndex points at w1 and
// the term spans two fields when separator is empty or a space).
func (s *SymSpell) LoadBigramDictionary(r io.Reader, termIndex, countIndex int, separator string) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		parts := splitLine(sc.Text(), separator)
		minParts := 3
		if separator != "" && separator != " " {
			minParts = 2
		}
		if len(parts) < minParts || termIndex+1 >= len(parts) || countIndex >= len(parts) {
			continue
		}
		key := parts[termIndex]
		if minParts == 3 {
			key = parts[termIndex] + " " + parts[termIndex+1]
		}
		count, err := strconv.ParseInt(parts[countIndex], 10, 64)
		if err != nil {
			continue
		}
		s.bigrams[key] = count
		if count < s.bigramCountMin {
			s.bigramCountMin = count
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("symspell: read bigrams: %w", err)
	}
	return nil
}

func scanEntries(r io.Reader, termIndex, countIndex int, separator string, fn func(string, int64)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		parts := splitLine(sc.Text(), separator)
		if termIndex >= len(parts) || countIndex >= len(parts) {
			continue
		}
		term := strings.TrimSpace(parts[termIndex])
		if term == "" {
			continue
		}
		count, err := strconv.ParseInt(strings.TrimSpace(parts[countIndex]), 10, 64)
		if err != nil {
			continue
		}
		fn(term, count)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("symspell: read dictionary: %w", err)
	}
	return nil
}

func splitLine(line, separator string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if separator == "" {
		return strings.Fields(line)
	}
	return strings.Split(line, separator)
}
