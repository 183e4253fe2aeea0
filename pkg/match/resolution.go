package match

import (
	"fmt"

	"github.com/mezzala/gaffer/pkg/roster"
)

// Outcome is the terminal state of one resolution attempt. Every call
// resolves to exactly one of the four variants; there is no partial or
// multi-valued outcome.
type Outcome int

const (
	// OutcomeNotFound means no stage produced a qualifying candidate.
	OutcomeNotFound Outcome = iota
	// OutcomeFound means exactly one player was resolved.
	OutcomeFound
	// OutcomeAmbiguous means a non-fuzzy stage matched more than one
	// distinct identity; the caller should ask for more specific input.
	OutcomeAmbiguous
	// OutcomeNeedsFullName means the query had fewer than two tokens and is
	// not an allowed mononym.
	OutcomeNeedsFullName
)

// String returns the wire name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeAmbiguous:
		return "ambiguous"
	case OutcomeNeedsFullName:
		return "need_full_name"
	default:
		return "not_found"
	}
}

// Resolution is the tagged result of one resolve call. Player is set only
// for OutcomeFound; Distinct only for OutcomeAmbiguous.
type Resolution struct {
	Outcome  Outcome
	Player   *roster.Player
	Distinct int
}

// Found wraps a resolved player.
func Found(p roster.Player) Resolution {
	return Resolution{Outcome: OutcomeFound, Player: &p}
}

// NotFound is the no-match terminal.
func NotFound() Resolution {
	return Resolution{Outcome: OutcomeNotFound}
}

// Ambiguous reports n distinct matching identities.
func Ambiguous(n int) Resolution {
	return Resolution{Outcome: OutcomeAmbiguous, Distinct: n}
}

// NeedsFullName is the terminal for queries failing the full-name gate.
func NeedsFullName() Resolution {
	return Resolution{Outcome: OutcomeNeedsFullName}
}

func (r Resolution) String() string {
	switch r.Outcome {
	case OutcomeFound:
		return fmt.Sprintf("found(%s)", r.Player.Name)
	case OutcomeAmbiguous:
		return fmt.Sprintf("ambiguous(%d)", r.Distinct)
	default:
		return r.Outcome.String()
	}
}
