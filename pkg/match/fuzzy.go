package match

import (
	"context"
	"fmt"
	"sort"

	"github.com/mezzala/gaffer/pkg/roster"
)

// fuzzyGen is the last-resort stage: it probes the token index with prefix
// variations of every query token, pools the hits, and keeps only the
// candidates that survive the scorer's threshold and length-ratio checks.
// Results come back sorted best-first by composite score.
type fuzzyGen struct {
	idx roster.Index
	cfg Config
	sc  scorer
}

func newFuzzyGen(idx roster.Index, cfg Config) fuzzyGen {
	return fuzzyGen{idx: idx, cfg: cfg, sc: scorer{cfg: cfg}}
}

func (g fuzzyGen) stage() Stage { return StageFuzzy }

func (g fuzzyGen) generate(ctx context.Context, q Query) ([]Candidate, error) {
	pool := make(map[int64]roster.Player)
	var order []int64

	for _, token := range q.Tokens {
		for _, variant := range prefixVariations(token, g.cfg.MaxVariations) {
			players, err := g.idx.Tokens(ctx, []string{variant}, g.cfg.FuzzyLimit)
			if err != nil {
				return nil, fmt.Errorf("fuzzy stage %q: %w", variant, err)
			}
			for _, p := range players {
				if _, ok := pool[p.ID]; !ok {
					pool[p.ID] = p
					order = append(order, p.ID)
				}
			}
		}
	}

	var out []Candidate
	for _, id := range order {
		if c, ok := g.sc.score(q, pool[id]); ok {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score < out[b].Score
		}
		return out[a].Player.ID < out[b].Player.ID
	})
	return out, nil
}
