// Package roster holds the canonical player records and the read-only
// lookup indexes the resolution engine runs against. Records are built by
// the import pipeline and never mutated after load.
package roster

import "context"

// Player is one canonical roster entry.
type Player struct {
	ID          int64    `json:"id"`
	WikidataID  string   `json:"wikidata_id,omitempty"`
	Name        string   `json:"name"`
	Normalized  string   `json:"-"`
	Tokens      []string `json:"-"`
	Mononym     bool     `json:"-"`
	Nationality string   `json:"nationality,omitempty"`
	Position    string   `json:"position,omitempty"`
}

// Index is the lookup contract the resolution engine consumes. All three
// operations are pure reads against an immutable snapshot; implementations
// must be safe for concurrent use.
type Index interface {
	// Exact returns players whose normalized name equals name.
	Exact(ctx context.Context, name string) ([]Player, error)
	// Prefix returns up to limit players whose normalized name starts with name.
	Prefix(ctx context.Context, name string, limit int) ([]Player, error)
	// Tokens returns up to limit players matching a token query where every
	// token except the last must match a whole name token and the last may
	// match as a prefix. Results are ranked by the index's own relevance order.
	Tokens(ctx context.Context, tokens []string, limit int) ([]Player, error)
}

// Stint is one club spell in a player's career history.
type Stint struct {
	Club           string `json:"club"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	IsNationalTeam bool   `json:"is_national_team"`
}

// Card is the full player view served to the game client: identity plus
// career history and the top clubs used for hints.
type Card struct {
	Player   Player   `json:"player"`
	Clubs    []Stint  `json:"clubs"`
	TopClubs []string `json:"top_clubs"`
}

// Stats summarizes the roster database.
type Stats struct {
	TotalPlayers     int          `json:"total_players"`
	TotalClubs       int          `json:"total_clubs"`
	TopNationalities []GroupCount `json:"top_nationalities"`
	TopPositions     []GroupCount `json:"top_positions"`
}

// GroupCount is one row of a grouped count (nationality or position).
type GroupCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}
