package match

// vowelSwaps are the single-vowel substitutions the fuzzy stage probes,
// covering the most common misspellings seen in the guess corpus.
var vowelSwaps = map[byte]byte{
	'a': 'e',
	'e': 'a',
	'i': 'e',
	'o': 'u',
	'u': 'o',
	'y': 'i',
}

// prefixVariations enumerates the wildcard-prefix probes for one query
// token: the token itself, shortened prefixes, single-character deletions,
// adjacent transpositions, and single vowel substitutions. The result is
// deduplicated, keeps generation order, and is capped at max entries.
func prefixVariations(token string, max int) []string {
	if len(token) < 2 {
		return nil
	}

	seen := map[string]bool{}
	var out []string
	add := func(v string) {
		if len(v) < 2 || seen[v] || (max > 0 && len(out) >= max) {
			return
		}
		seen[v] = true
		out = append(out, v)
	}

	add(token)

	// Shortened prefixes catch trailing typos and clipped endings.
	for cut := 1; cut <= 2; cut++ {
		if len(token)-cut >= 3 {
			add(token[:len(token)-cut])
		}
	}

	// Single-character deletions.
	for i := 0; i < len(token); i++ {
		add(token[:i] + token[i+1:])
	}

	// Adjacent transpositions.
	for i := 0; i+1 < len(token); i++ {
		if token[i] == token[i+1] {
			continue
		}
		b := []byte(token)
		b[i], b[i+1] = b[i+1], b[i]
		add(string(b))
	}

	// Single vowel substitutions.
	for i := 0; i < len(token); i++ {
		if sub, ok := vowelSwaps[token[i]]; ok {
			add(token[:i] + string(sub) + token[i+1:])
		}
	}

	return out
}
