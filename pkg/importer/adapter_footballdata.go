package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/mezzala/gaffer/pkg/match"
	"github.com/mezzala/gaffer/pkg/roster"
)

func init() {
	Register(&footballDataAdapter{})
}

// freeTierCompetitions are the competition codes available on the free tier
// of football-data.org.
var freeTierCompetitions = []string{"PL", "BL1", "PD", "SA", "FL1", "DED", "PPL"}

// footballDataAdapter imports current squads from the football-data.org v4 API.
// It replaces the roster, so it is an alternative to wikidata-players rather
// than a supplement. Set FOOTBALL_DATA_TOKEN for authenticated requests.
type footballDataAdapter struct{}

func (a *footballDataAdapter) ID() string { return "football-data" }
func (a *footballDataAdapter) Description() string {
	return "football-data.org current squads (free-tier competitions)"
}
func (a *footballDataAdapter) DefaultURL() string { return "https://api.football-data.org/v4" }
func (a *footballDataAdapter) License() string    { return "football-data.org terms" }

type fdTeamsResponse struct {
	Teams []fdTeam `json:"teams"`
}

type fdTeam struct {
	ID    int        `json:"id"`
	Name  string     `json:"name"`
	Area  fdArea     `json:"area"`
	Squad []fdPerson `json:"squad"`
}

type fdArea struct {
	Name string `json:"name"`
}

type fdPerson struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Position    string `json:"position"`
	Nationality string `json:"nationality"`
}

func (a *footballDataAdapter) Import(ctx context.Context, sourceURL string, store *roster.Store) error {
	token := os.Getenv("FOOTBALL_DATA_TOKEN")

	seen := make(map[int]bool)
	personName := make(map[int]string)
	var players []roster.Player
	type stint struct {
		personID int
		teamID   int
		teamName string
		country  string
	}
	var stints []stint

	for _, code := range freeTierCompetitions {
		fmt.Printf("  fetching %s squads...\n", code)
		teams, err := fetchTeams(ctx, sourceURL, code, token)
		if err != nil {
			return fmt.Errorf("competition %s: %w", code, err)
		}

		for _, team := range teams {
			for _, person := range team.Squad {
				if person.Name == "" {
					continue
				}
				stints = append(stints, stint{person.ID, team.ID, team.Name, team.Area.Name})
				if seen[person.ID] {
					continue
				}
				seen[person.ID] = true
				personName[person.ID] = person.Name

				normalized, tokens := match.NormalizeName(person.Name)
				players = append(players, roster.Player{
					Name:        person.Name,
					Normalized:  normalized,
					Tokens:      tokens,
					Mononym:     len(tokens) == 1,
					Nationality: person.Nationality,
					Position:    person.Position,
				})
			}
		}

		// Free tier allows 10 requests per minute.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(6 * time.Second):
		}
	}

	fmt.Printf("  importing %d players\n", len(players))
	if err := store.ImportPlayers(ctx, players); err != nil {
		return err
	}

	// Attach current-squad stints. football-data person IDs are not stored in
	// the players table, so resolve through the normalized name.
	byNormalized := make(map[string]int64, len(players))
	imported, err := store.AllPlayers(ctx)
	if err != nil {
		return err
	}
	for _, p := range imported {
		byNormalized[p.Normalized] = p.ID
	}

	attached := 0
	for _, st := range stints {
		playerNorm, _ := match.NormalizeName(personName[st.personID])
		playerID, ok := byNormalized[playerNorm]
		if !ok {
			continue
		}
		clubNorm, _ := match.NormalizeName(st.teamName)
		clubID, err := store.UpsertClub(ctx, "fd-"+strconv.Itoa(st.teamID), st.teamName, clubNorm, st.country)
		if err != nil {
			return err
		}
		if err := store.AddStint(ctx, playerID, clubID, "", "", false); err != nil {
			return err
		}
		attached++
	}
	fmt.Printf("  %d squad entries recorded\n", attached)
	return nil
}

func fetchTeams(ctx context.Context, base, competition, token string) ([]fdTeam, error) {
	url := base + "/competitions/" + competition + "/teams"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if token != "" {
		req.Header.Set("X-Auth-Token", token)
	}

	client := &http.Client{Timeout: time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}

	var parsed fdTeamsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode teams: %w", err)
	}
	return parsed.Teams, nil
}
