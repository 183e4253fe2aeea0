package match

import (
	"context"
	"log/slog"

	"github.com/mezzala/gaffer/pkg/roster"
)

// Resolver is the resolution orchestrator: it normalizes a raw query, runs
// the full-name gate, walks the cascade stages in order, and applies the
// ambiguity policy to produce exactly one terminal Resolution per call.
//
// A Resolver holds no mutable state; one instance serves any number of
// concurrent Resolve calls against the same index snapshot.
type Resolver struct {
	idx      roster.Index
	cfg      Config
	logger   *slog.Logger
	mononyms map[string]bool
	gens     []generator
}

// New builds a Resolver over an index with the given configuration.
func New(idx roster.Index, cfg Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	mononyms := make(map[string]bool, len(cfg.Mononyms))
	for _, m := range cfg.Mononyms {
		q := Normalize(m)
		if q.Text != "" {
			mononyms[q.Text] = true
		}
	}
	return &Resolver{
		idx:      idx,
		cfg:      cfg,
		logger:   logger,
		mononyms: mononyms,
		gens: []generator{
			exactGen{idx: idx},
			prefixGen{idx: idx, limit: cfg.PrefixLimit},
			tokenGen{idx: idx, limit: cfg.TokenLimit},
			newFuzzyGen(idx, cfg),
		},
	}
}

// Resolve decides which canonical player a raw free-text guess refers to.
// Index failures propagate as errors, distinct from the four Resolution
// variants, so callers can surface them as transient faults rather than
// "player not found".
func (r *Resolver) Resolve(ctx context.Context, raw string) (Resolution, error) {
	q := Normalize(raw)

	if len(q.Tokens) < 2 {
		ok, err := r.mononymAllowed(ctx, q)
		if err != nil {
			return Resolution{}, err
		}
		if !ok {
			return NeedsFullName(), nil
		}
	}

	for _, g := range r.gens {
		cands, err := g.generate(ctx, q)
		if err != nil {
			return Resolution{}, err
		}
		if len(cands) == 0 {
			continue
		}

		res := r.decide(g.stage(), cands)
		r.logger.Debug("query resolved",
			"query", q.Text, "stage", string(g.stage()),
			"candidates", len(cands), "outcome", res.Outcome.String())
		return res, nil
	}

	return NotFound(), nil
}

// decide applies the terminal policy to a non-empty candidate set.
//
// The fuzzy stage always collapses to the single best-scored candidate and
// never reports ambiguity: revealing that several players are close to a
// misspelled guess would leak the answer set to the user. That trade is a
// recorded product decision, not an oversight.
func (r *Resolver) decide(stage Stage, cands []Candidate) Resolution {
	if stage == StageFuzzy {
		return Found(cands[0].Player)
	}

	n := distinctIdentities(cands)
	if n > 1 {
		return Ambiguous(n)
	}
	return Found(cands[0].Player)
}

// mononymAllowed reports whether a sub-two-token query may enter the
// cascade: either the allow-list carries it, or an exact roster record with
// the mononym flag matches it. Empty queries never pass.
func (r *Resolver) mononymAllowed(ctx context.Context, q Query) (bool, error) {
	if len(q.Tokens) == 0 {
		return false, nil
	}
	if r.mononyms[q.Text] {
		return true, nil
	}
	players, err := r.idx.Exact(ctx, q.Text)
	if err != nil {
		return false, err
	}
	for _, p := range players {
		if p.Mononym {
			return true, nil
		}
	}
	return false, nil
}

// distinctIdentities counts candidates that differ in display name or
// nationality. Duplicate rows of the same identity collapse to one.
func distinctIdentities(cands []Candidate) int {
	seen := make(map[string]bool, len(cands))
	for _, c := range cands {
		seen[c.Player.Name+"\x00"+c.Player.Nationality] = true
	}
	return len(seen)
}
