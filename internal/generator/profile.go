package generator

import "sort"

// DefaultProfile is the production model.
const DefaultProfile = "bart-gec"

// Profile is a complete preset for one grammar model: which model to load,
// its prompt prefix, its decoding policy and the stage order it was tuned for.
type Profile struct {
	Name         string
	Model        string
	PromptPrefix string
	Decoding     DecodingConfig
	StageOrder   string
}

var profiles = map[string]Profile{
	"bart-gec": {
		Name:  "bart-gec",
		Model: "prithivida/grammar_error_correcter_v1",
		Decoding: DecodingConfig{
			MaxNewTokens:  80,
			Strategy:      BeamSearch,
			NumBeams:      4,
			EarlyStopping: true,
		},
		StageOrder: "grammar_then_spell",
	},
	"t5-fix": {
		Name:         "t5-fix",
		Model:        "grammar-model/checkpoint-72",
		PromptPrefix: "fix: ",
		Decoding: DecodingConfig{
			MaxNewTokens: 128,
			Strategy:     Sampling,
			TopK:         50,
			TopP:         0.95,
		},
		StageOrder: "grammar_then_spell",
	},
	"t5-fix-spell-first": {
		Name:         "t5-fix-spell-first",
		Model:        "grammar-model/checkpoint-72",
		PromptPrefix: "fix: ",
		Decoding: DecodingConfig{
			MaxNewTokens:      64,
			Strategy:          BeamSearch,
			NumBeams:          5,
			EarlyStopping:     true,
			RepetitionPenalty: 2.5,
		},
		StageOrder: "spell_then_grammar",
	},
}

// LookupProfile returns the named preset.
func LookupProfile(name string) (Profile, bool) {
	p, ok := profiles[name]
	return p, ok
}

// ProfileNames lists the known presets in sorted order.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
