package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mezzala/gaffer/pkg/match"
	"github.com/mezzala/gaffer/pkg/roster"
)

func init() {
	Register(&wikidataPlayersAdapter{})
}

const wikidataUserAgent = "gaffer/1.0 (roster import)"

// mensLeagues lists the top five European men's leagues by Wikidata entity ID.
var mensLeagues = []struct {
	Name string
	QID  string
}{
	{"Premier League", "Q9448"},
	{"La Liga", "Q324867"},
	{"Bundesliga", "Q82595"},
	{"Serie A", "Q15804"},
	{"Ligue 1", "Q13394"},
}

type wikidataPlayersAdapter struct{}

func (a *wikidataPlayersAdapter) ID() string { return "wikidata-players" }
func (a *wikidataPlayersAdapter) Description() string {
	return "Wikidata football players (top 5 men's leagues + women's football)"
}
func (a *wikidataPlayersAdapter) DefaultURL() string { return "https://query.wikidata.org/sparql" }
func (a *wikidataPlayersAdapter) License() string    { return "CC0" }

func (a *wikidataPlayersAdapter) Import(ctx context.Context, sourceURL string, store *roster.Store) error {
	seen := make(map[string]bool)
	var players []roster.Player

	for _, league := range mensLeagues {
		fmt.Printf("  fetching %s...\n", league.Name)
		bindings, err := runSPARQL(ctx, sourceURL, leaguePlayersQuery(league.QID))
		if err != nil {
			return fmt.Errorf("query %s: %w", league.Name, err)
		}
		added := collectPlayers(bindings, seen, &players)
		fmt.Printf("  %s: %d new players\n", league.Name, added)
	}

	fmt.Printf("  fetching women's football players...\n")
	bindings, err := runSPARQL(ctx, sourceURL, womensPlayersQuery(10000))
	if err != nil {
		return fmt.Errorf("query women's players: %w", err)
	}
	added := collectPlayers(bindings, seen, &players)
	fmt.Printf("  women's football: %d new players\n", added)

	fmt.Printf("  importing %d players\n", len(players))
	return store.ImportPlayers(ctx, players)
}

// collectPlayers appends players parsed from bindings that have not been seen
// yet and returns the number added.
func collectPlayers(bindings []sparqlBinding, seen map[string]bool, players *[]roster.Player) int {
	added := 0
	for _, b := range bindings {
		wikidataID := b["wikidataId"].Value
		if wikidataID == "" || seen[wikidataID] {
			continue
		}
		name := b["playerLabel"].Value
		// Entities without an English label come back as their Q-number.
		if name == "" || isQID(name) {
			continue
		}

		normalized, tokens := match.NormalizeName(name)
		seen[wikidataID] = true
		*players = append(*players, roster.Player{
			WikidataID:  wikidataID,
			Name:        name,
			Normalized:  normalized,
			Tokens:      tokens,
			Mononym:     len(tokens) == 1,
			Nationality: b["nationalityLabel"].Value,
			Position:    b["positionLabel"].Value,
		})
		added++
	}
	return added
}

func isQID(s string) bool {
	if len(s) < 2 || s[0] != 'Q' {
		return false
	}
	_, err := strconv.Atoi(s[1:])
	return err == nil
}

func leaguePlayersQuery(leagueQID string) string {
	return fmt.Sprintf(`
SELECT DISTINCT ?player ?playerLabel ?nationalityLabel ?positionLabel ?wikidataId
WHERE {
  BIND(REPLACE(STR(?player), "http://www.wikidata.org/entity/", "") AS ?wikidataId)
  ?player wdt:P106 wd:Q937857 .
  ?player p:P54 ?clubStatement .
  ?clubStatement ps:P54 ?club .
  ?club wdt:P118 wd:%s .
  OPTIONAL { ?player wdt:P27 ?nationality . }
  OPTIONAL { ?player wdt:P413 ?position . }
  SERVICE wikibase:label { bd:serviceParam wikibase:language "en". }
}`, leagueQID)
}

func womensPlayersQuery(limit int) string {
	return fmt.Sprintf(`
SELECT DISTINCT ?player ?playerLabel ?nationalityLabel ?positionLabel ?wikidataId
WHERE {
  BIND(REPLACE(STR(?player), "http://www.wikidata.org/entity/", "") AS ?wikidataId)
  ?player wdt:P106 wd:Q937857 .
  ?player wdt:P21 wd:Q6581072 .
  ?player wdt:P54 ?club .
  OPTIONAL { ?player wdt:P27 ?nationality . }
  OPTIONAL { ?player wdt:P413 ?position . }
  SERVICE wikibase:label { bd:serviceParam wikibase:language "en". }
}
LIMIT %d`, limit)
}

// sparqlValue is one cell of a SPARQL JSON result.
type sparqlValue struct {
	Value string `json:"value"`
}

// sparqlBinding maps variable names to values for one result row.
type sparqlBinding map[string]sparqlValue

type sparqlResponse struct {
	Results struct {
		Bindings []sparqlBinding `json:"bindings"`
	} `json:"results"`
}

// runSPARQL executes a query against a SPARQL endpoint with retry on rate
// limiting and transient failures.
func runSPARQL(ctx context.Context, endpoint, query string) ([]sparqlBinding, error) {
	client := &http.Client{Timeout: 2 * time.Minute}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(10*attempt) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		q := req.URL.Query()
		q.Set("query", query)
		req.URL.RawQuery = q.Encode()
		req.Header.Set("Accept", "application/sparql-results+json")
		req.Header.Set("User-Agent", wikidataUserAgent)

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			lastErr = fmt.Errorf("rate limited by %s", endpoint)
			// Honor Retry-After when the endpoint sends one.
			if wait, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Duration(wait) * time.Second):
				}
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			continue
		}

		var parsed sparqlResponse
		err = json.NewDecoder(resp.Body).Decode(&parsed)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("decode response: %w", err)
			continue
		}
		return parsed.Results.Bindings, nil
	}
	return nil, fmt.Errorf("sparql query failed after 3 attempts: %w", lastErr)
}
