// Package corrector applies compound spelling correction from a frequency
// dictionary to free-form text while keeping punctuation and casing intact.
package corrector

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gramfix/internal/platform/logger"
	symspell "gramfix/pkg"
	"gramfix/pkg/options"
	"gramfix/pkg/verbosity"
)

// customWordCount ranks user words above anything in the frequency list.
const customWordCount = 1_000_000_000

// WordSource supplies extra dictionary words, typically a Redis set.
type WordSource interface {
	All(ctx context.Context) ([]string, error)
}

// runRe matches words separated only by horizontal whitespace. Compound
// correction never crosses punctuation or a line break.
var runRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*(?:[ \t]+[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*)*`)

type SpellCorrector struct {
	config   CorrectorConfig
	symspell *symspell.SymSpell
}

// New wraps an already built index. The index must not be modified afterwards.
func New(cfg CorrectorConfig, index *symspell.SymSpell) *SpellCorrector {
	return &SpellCorrector{config: cfg, symspell: index}
}

// NewSpellCorrector builds the index from the dictionary at dictionaryPath,
// the optional bigram file and the custom words. A failing word source is
// logged and skipped.
func NewSpellCorrector(ctx context.Context, cfg CorrectorConfig, dictionaryPath string, words WordSource) (*SpellCorrector, error) {
	log := logger.Named("corrector")
	start := time.Now()

	opts := []options.Options{
		options.WithMaxDictionaryEditDistance(cfg.MaxEditDistance),
		options.WithPrefixLength(cfg.PrefixLength),
		options.WithCountThreshold(cfg.CountThreshold),
	}
	if cfg.CorrectDigits {
		opts = append(opts, options.WithoutIgnoringDigits())
	}
	index := symspell.NewSymSpell(opts...)
	if err := index.LoadDictionaryFile(dictionaryPath, 0, 1, ""); err != nil {
		return nil, fmt.Errorf("corrector: load dictionary %s: %w", dictionaryPath, err)
	}

	if cfg.BigramPath != "" {
		f, err := os.Open(cfg.BigramPath)
		if err != nil {
			return nil, fmt.Errorf("corrector: open bigrams: %w", err)
		}
		err = index.LoadBigramDictionary(f, 0, 2, "")
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("corrector: load bigrams %s: %w", cfg.BigramPath, err)
		}
	}

	custom := 0
	if words != nil {
		list, err := words.All(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("custom words unavailable, continuing without them")
		}
		for _, w := range list {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" {
				continue
			}
			index.CreateDictionaryEntry(w, customWordCount)
			custom++
		}
	}

	log.Info().
		Str("path", dictionaryPath).
		Int("words", index.WordCount()).
		Int("entries", index.EntryCount()).
		Int("custom_words", custom).
		Dur("elapsed", time.Since(start)).
		Msg("dictionary loaded")

	return New(cfg, index), nil
}

// CorrectCompound returns the best single rewrite of text. Each run of words
// is corrected as a compound, so wrongly split or joined words are repaired
// along with misspellings. Text with nothing to improve comes back unchanged.
func (sc *SpellCorrector) CorrectCompound(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	return runRe.ReplaceAllStringFunc(text, sc.correctRun)
}

func (sc *SpellCorrector) correctRun(run string) string {
	res, err := sc.symspell.LookupCompound(run, sc.config.MaxEditDistance)
	if err != nil || len(res) == 0 || res[0].Term == "" {
		return run
	}
	corrected := strings.Fields(res[0].Term)
	if !sc.config.PreserveCase {
		return strings.Join(corrected, " ")
	}
	return transferCase(strings.Fields(run), corrected)
}

// Lookup lists the closest dictionary suggestions for a single word.
func (sc *SpellCorrector) Lookup(word string) []symspell.SuggestItem {
	res, err := sc.symspell.Lookup(strings.ToLower(word), verbosity.Closest, sc.config.MaxEditDistance)
	if err != nil {
		return nil
	}
	return res
}

// WordCount is the number of dictionary words available for correction.
func (sc *SpellCorrector) WordCount() int { return sc.symspell.WordCount() }

// Name identifies the corrector as a pipeline stage.
func (sc *SpellCorrector) Name() string { return "spell" }

// Apply runs CorrectCompound as a pipeline stage.
func (sc *SpellCorrector) Apply(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return sc.CorrectCompound(text), nil
}
