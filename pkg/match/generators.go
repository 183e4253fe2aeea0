package match

import (
	"context"
	"fmt"

	"github.com/mezzala/gaffer/pkg/roster"
)

// Stage identifies which cascade strategy produced a candidate.
type Stage string

const (
	StageExact  Stage = "exact"
	StagePrefix Stage = "prefix"
	StageToken  Stage = "token"
	StageFuzzy  Stage = "fuzzy"
)

// Candidate is a roster record annotated with how it matched. Distance,
// Phonetic and Score are filled only by the fuzzy stage; the other stages
// are binary matches.
type Candidate struct {
	Player   roster.Player
	Stage    Stage
	Distance int
	Phonetic bool
	Score    float64
}

// generator is one cascade strategy. The orchestrator walks an ordered list
// of generators and stops at the first that yields candidates, so exact or
// prefix identity is never overridden by a fuzzy guess.
type generator interface {
	stage() Stage
	generate(ctx context.Context, q Query) ([]Candidate, error)
}

type exactGen struct {
	idx roster.Index
}

func (g exactGen) stage() Stage { return StageExact }

func (g exactGen) generate(ctx context.Context, q Query) ([]Candidate, error) {
	players, err := g.idx.Exact(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("exact stage: %w", err)
	}
	return wrap(players, StageExact), nil
}

type prefixGen struct {
	idx   roster.Index
	limit int
}

func (g prefixGen) stage() Stage { return StagePrefix }

func (g prefixGen) generate(ctx context.Context, q Query) ([]Candidate, error) {
	players, err := g.idx.Prefix(ctx, q.Text, g.limit)
	if err != nil {
		return nil, fmt.Errorf("prefix stage: %w", err)
	}
	return wrap(players, StagePrefix), nil
}

type tokenGen struct {
	idx   roster.Index
	limit int
}

func (g tokenGen) stage() Stage { return StageToken }

func (g tokenGen) generate(ctx context.Context, q Query) ([]Candidate, error) {
	players, err := g.idx.Tokens(ctx, q.Tokens, g.limit)
	if err != nil {
		return nil, fmt.Errorf("token stage: %w", err)
	}
	return wrap(players, StageToken), nil
}

func wrap(players []roster.Player, stage Stage) []Candidate {
	if len(players) == 0 {
		return nil
	}
	out := make([]Candidate, len(players))
	for i, p := range players {
		out[i] = Candidate{Player: p, Stage: stage}
	}
	return out
}
