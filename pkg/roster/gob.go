package roster

import (
	"encoding/gob"
	"fmt"
	"os"
)

// loadGob deserializes a player slice from a gob-encoded snapshot file.
func loadGob(path string) ([]Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gob file: %w", err)
	}
	defer f.Close()

	var players []Player
	if err := gob.NewDecoder(f).Decode(&players); err != nil {
		return nil, fmt.Errorf("decode gob: %w", err)
	}
	return players, nil
}

// SaveGob serializes a player slice to a gob-encoded file at path. Used by
// the import pipeline to produce fast-loading snapshots.
func SaveGob(players []Player, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gob file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(players); err != nil {
		return fmt.Errorf("encode gob: %w", err)
	}
	return nil
}
