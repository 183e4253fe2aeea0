package importer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mezzala/gaffer/pkg/roster"
)

// ExportSnapshot writes the store's roster as data.gob + manifest.yaml into
// dir, producing a self-contained snapshot loadable without SQLite.
func ExportSnapshot(ctx context.Context, store *roster.Store, dir, id, version string) error {
	players, err := store.AllPlayers(ctx)
	if err != nil {
		return err
	}
	if err := ensureDir(dir); err != nil {
		return err
	}
	if err := roster.SaveGob(players, filepath.Join(dir, "data.gob")); err != nil {
		return fmt.Errorf("save gob: %w", err)
	}
	return writeManifest(dir, &roster.Manifest{
		ID:       id,
		Version:  version,
		Source:   "local roster database",
		License:  "source-dependent",
		DataFile: "data.gob",
	})
}
