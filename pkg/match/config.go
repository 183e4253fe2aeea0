package match

// Config carries every tunable of the resolution engine. The values here
// were tuned against a real name corpus and have changed over the product's
// life, so all of them are injected rather than hard-coded. Start from
// DefaultConfig and override fields (the server unmarshals its YAML section
// on top of the defaults).
type Config struct {
	// Mononyms is the allow-list of single-token names accepted without a
	// full first+last name (e.g. "neymar", "pele"). Entries are compared
	// against the normalized query.
	Mononyms []string `yaml:"mononyms"`

	// PrefixLimit bounds the prefix stage result set.
	PrefixLimit int `yaml:"prefix_limit"`
	// TokenLimit bounds the token stage result set.
	TokenLimit int `yaml:"token_limit"`
	// FuzzyLimit bounds each fuzzy variation lookup.
	FuzzyLimit int `yaml:"fuzzy_limit"`
	// MaxVariations bounds the prefix variations generated per query token.
	MaxVariations int `yaml:"max_variations"`

	// Edit-distance thresholds by name length: names up to ShortLen get
	// ShortEdits allowed edits, up to MediumLen get MediumEdits, anything
	// longer gets LongEdits. Length is the shorter of query and closest
	// token.
	ShortLen    int `yaml:"short_len"`
	ShortEdits  int `yaml:"short_edits"`
	MediumLen   int `yaml:"medium_len"`
	MediumEdits int `yaml:"medium_edits"`
	LongEdits   int `yaml:"long_edits"`

	// LengthRatioMin rejects fuzzy candidates whose length ratio
	// min(len)/max(len) against the query falls below it. This is the guard
	// that keeps "ronaldo" from matching "ronaldinho".
	LengthRatioMin float64 `yaml:"length_ratio_min"`
	// PhoneticSlack is the extra edit allowance granted when the phonetic
	// codes match. Phonetic similarity never overrides LengthRatioMin.
	PhoneticSlack int `yaml:"phonetic_slack"`

	Weights Weights `yaml:"weights"`
}

// Weights are the composite-score coefficients of the fuzzy stage. Lower
// composite scores rank better.
type Weights struct {
	// Distance multiplies the edit distance.
	Distance float64 `yaml:"distance"`
	// FirstToken is subtracted when the closest token is the candidate's
	// lead token (first-name/last-name order bias).
	FirstToken float64 `yaml:"first_token"`
	// LengthDiff multiplies the absolute length difference between query
	// and closest token.
	LengthDiff float64 `yaml:"length_diff"`
	// Suffix3 is subtracted when the last three characters match exactly;
	// Suffix2 when only the last two do.
	Suffix3 float64 `yaml:"suffix3"`
	Suffix2 float64 `yaml:"suffix2"`
	// NameLength multiplies the candidate's full-name length, a tiny
	// tiebreak preferring shorter names.
	NameLength float64 `yaml:"name_length"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PrefixLimit:    10,
		TokenLimit:     50,
		FuzzyLimit:     25,
		MaxVariations:  24,
		ShortLen:       4,
		ShortEdits:     0,
		MediumLen:      8,
		MediumEdits:    1,
		LongEdits:      2,
		LengthRatioMin: 0.8,
		PhoneticSlack:  1,
		Weights: Weights{
			Distance:   10,
			FirstToken: 2,
			LengthDiff: 0.5,
			Suffix3:    1,
			Suffix2:    0.5,
			NameLength: 0.01,
		},
	}
}

// editThreshold returns the allowed edit distance for a name of length n.
func (c Config) editThreshold(n int) int {
	switch {
	case n <= c.ShortLen:
		return c.ShortEdits
	case n <= c.MediumLen:
		return c.MediumEdits
	default:
		return c.LongEdits
	}
}
