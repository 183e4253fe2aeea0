package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/mezzala/gaffer/pkg/match"
	"github.com/mezzala/gaffer/pkg/roster"
)

func init() {
	Register(&wikidataCareersAdapter{})
}

// wikidataCareersAdapter fetches club histories for players already imported
// by wikidata-players. One SPARQL query per player, so it is slow on large
// rosters; run it after the roster import settles.
type wikidataCareersAdapter struct{}

func (a *wikidataCareersAdapter) ID() string { return "wikidata-careers" }
func (a *wikidataCareersAdapter) Description() string {
	return "Wikidata club histories for imported players"
}
func (a *wikidataCareersAdapter) DefaultURL() string { return "https://query.wikidata.org/sparql" }
func (a *wikidataCareersAdapter) License() string    { return "CC0" }

func (a *wikidataCareersAdapter) Import(ctx context.Context, sourceURL string, store *roster.Store) error {
	players, err := store.AllPlayers(ctx)
	if err != nil {
		return err
	}

	done := 0
	for _, p := range players {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p.WikidataID == "" {
			continue
		}

		bindings, err := runSPARQL(ctx, sourceURL, clubHistoryQuery(p.WikidataID))
		if err != nil {
			fmt.Printf("  %s (%s): %v\n", p.Name, p.WikidataID, err)
			continue
		}

		for _, b := range bindings {
			clubName := b["clubLabel"].Value
			if clubName == "" || isQID(clubName) {
				continue
			}
			normalized, _ := match.NormalizeName(clubName)
			clubID, err := store.UpsertClub(ctx, b["clubId"].Value, clubName, normalized, "")
			if err != nil {
				return err
			}
			national := b["isNationalTeam"].Value == "true"
			start := truncateDate(b["startTime"].Value)
			end := truncateDate(b["endTime"].Value)
			if err := store.AddStint(ctx, p.ID, clubID, start, end, national); err != nil {
				return err
			}
		}

		done++
		if done%100 == 0 {
			fmt.Printf("  %d/%d players processed\n", done, len(players))
		}

		// Stay well under the Wikidata rate limit.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	fmt.Printf("  club histories fetched for %d players\n", done)
	return nil
}

// truncateDate cuts a Wikidata timestamp ("2003-08-12T00:00:00Z") to its date part.
func truncateDate(ts string) string {
	if len(ts) > 10 {
		return ts[:10]
	}
	return ts
}

func clubHistoryQuery(wikidataID string) string {
	return fmt.Sprintf(`
SELECT ?clubLabel ?clubId ?startTime ?endTime ?isNationalTeam
WHERE {
  wd:%s p:P54 ?clubStatement .
  ?clubStatement ps:P54 ?club .
  BIND(REPLACE(STR(?club), "http://www.wikidata.org/entity/", "") AS ?clubId)
  OPTIONAL { ?clubStatement pq:P580 ?startTime . }
  OPTIONAL { ?clubStatement pq:P582 ?endTime . }
  OPTIONAL {
    ?club wdt:P31 wd:Q6979593 .
    BIND(true AS ?isNationalTeam)
  }
  SERVICE wikibase:label { bd:serviceParam wikibase:language "en". }
}
ORDER BY ?startTime`, wikidataID)
}
