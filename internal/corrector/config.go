package corrector

// CorrectorConfig controls how the dictionary index is built and how its
// suggestions are applied to text.
type CorrectorConfig struct {
	MaxEditDistance int
	PrefixLength    int
	CountThreshold  int64
	// PreserveCase transfers the input's casing onto corrected words. When
	// false the corrected runs come back lowercase.
	PreserveCase bool
	// CorrectDigits lets compound correction rewrite terms containing digits,
	// which are otherwise kept verbatim.
	CorrectDigits bool
	// BigramPath is an optional "w1 w2 count" file that sharpens split choices.
	BigramPath string
}

// DefaultConfig is the configuration the service runs with.
func DefaultConfig() CorrectorConfig {
	return CorrectorConfig{
		MaxEditDistance: 2,
		PrefixLength:    7,
		CountThreshold:  1,
		PreserveCase:    true,
	}
}
