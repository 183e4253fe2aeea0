package match

import (
	"github.com/antzucaro/matchr"
	"github.com/hbollon/go-edlib"

	"github.com/mezzala/gaffer/pkg/roster"
)

// scorer qualifies and ranks fuzzy-stage candidates.
type scorer struct {
	cfg Config
}

// score evaluates one pooled candidate against the query. It returns the
// annotated candidate and whether it qualifies for the fuzzy result set.
//
// The comparison unit is whichever of the candidate's full normalized name
// or individual name tokens sits closest to the query by edit distance:
// "christiano ronaldo" is judged against the full "cristiano ronaldo" while
// "ronaldihno" is judged against the single token "ronaldinho".
func (s scorer) score(q Query, p roster.Player) (Candidate, bool) {
	fullDistance := edlib.LevenshteinDistance(q.Text, p.Normalized)

	closest := p.Normalized
	distance := fullDistance
	for _, t := range p.Tokens {
		d := edlib.LevenshteinDistance(q.Text, t)
		// Prefer a token over the full name on ties, and the earliest token
		// among equally close ones.
		if d < distance || (d == distance && closest == p.Normalized) {
			closest = t
			distance = d
		}
	}

	qLen, cLen := len(q.Text), len(closest)
	shorter, longer := qLen, cLen
	if shorter > longer {
		shorter, longer = longer, shorter
	}

	// The length-ratio guard is absolute: no amount of edit or phonetic
	// similarity lets a 7-letter query claim an 11-letter name.
	if longer == 0 || float64(shorter)/float64(longer) < s.cfg.LengthRatioMin {
		return Candidate{}, false
	}

	threshold := s.cfg.editThreshold(shorter)
	phonetic := phoneticMatch(q.Text, closest)

	if distance > threshold && !(phonetic && distance <= threshold+s.cfg.PhoneticSlack) {
		return Candidate{}, false
	}

	w := s.cfg.Weights
	score := float64(distance) * w.Distance
	if len(p.Tokens) > 0 && closest == p.Tokens[0] {
		score -= w.FirstToken
	}
	score += w.LengthDiff * float64(abs(qLen-cLen))
	switch {
	case suffixEqual(q.Text, closest, 3):
		score -= w.Suffix3
	case suffixEqual(q.Text, closest, 2):
		score -= w.Suffix2
	}
	score += w.NameLength * float64(len(p.Normalized))

	return Candidate{
		Player:   p,
		Stage:    StageFuzzy,
		Distance: distance,
		Phonetic: phonetic,
		Score:    score,
	}, true
}

// phoneticMatch reports whether two names share a Soundex or a primary
// Double Metaphone code. Empty codes never match.
func phoneticMatch(a, b string) bool {
	if sa, sb := matchr.Soundex(a), matchr.Soundex(b); sa != "" && sa == sb {
		return true
	}
	pa, _ := matchr.DoubleMetaphone(a)
	pb, _ := matchr.DoubleMetaphone(b)
	return pa != "" && pa == pb
}

func suffixEqual(a, b string, n int) bool {
	if len(a) < n || len(b) < n {
		return false
	}
	return a[len(a)-n:] == b[len(b)-n:]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
