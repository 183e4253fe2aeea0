package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mezzala/gaffer/pkg/importer"
	"github.com/mezzala/gaffer/pkg/roster"
)

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	source := fs.String("source", "", "adapter ID to import (e.g. wikidata-players)")
	dbPath := fs.String("db", "gaffer.db", "roster database path")
	sourcesDB := fs.String("sources-db", "sources.db", "import sources database path")
	fs.Parse(args)

	sdb, err := importer.OpenSourceDB(*sourcesDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open sources db: %v\n", err)
		os.Exit(1)
	}
	defer sdb.Close()

	if err := sdb.Seed(importer.All()); err != nil {
		fmt.Fprintf(os.Stderr, "seed sources: %v\n", err)
		os.Exit(1)
	}

	if *source == "" {
		fmt.Println("Available sources:")
		fmt.Println()
		sources, _ := sdb.ListSources()
		for _, src := range sources {
			status := ""
			if src.LastStatus != nil {
				status = fmt.Sprintf("  [%d]", *src.LastStatus)
			}
			fmt.Printf("  %-20s  %s%s\n", src.AdapterID, src.Description, status)
		}
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  gaffer import --source <id> [--db <path>]")
		return
	}

	a, err := importer.Get(*source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		fmt.Println("\nAvailable sources:")
		for _, a := range importer.All() {
			fmt.Printf("  %s\n", a.ID())
		}
		os.Exit(1)
	}

	url, err := sdb.GetURL(a.ID())
	if err != nil {
		fmt.Fprintf(os.Stderr, "[%s] URL lookup failed: %v\n", a.ID(), err)
		os.Exit(1)
	}

	store, err := roster.OpenStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open roster db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	fmt.Printf("[%s] importing...\n", a.ID())
	if err := a.Import(ctx, url, store); err != nil {
		fmt.Fprintf(os.Stderr, "[%s] import failed: %v\n", a.ID(), err)
		os.Exit(1)
	}

	count, _ := store.Count(ctx)
	fmt.Printf("[%s] OK: %d players in %s\n", a.ID(), count, *dbPath)
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dbPath := fs.String("db", "gaffer.db", "roster database path")
	dir := fs.String("dir", "snapshot", "output directory")
	id := fs.String("id", "roster", "snapshot ID")
	snapVersion := fs.String("version", time.Now().Format("2006-01"), "snapshot version")
	fs.Parse(args)

	store, err := roster.OpenStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open roster db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := importer.ExportSnapshot(ctx, store, *dir, *id, *snapVersion); err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("snapshot written to %s/\n", *dir)
}

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	sourcesDB := fs.String("sources-db", "sources.db", "import sources database path")
	fs.Parse(args)

	sdb, err := importer.OpenSourceDB(*sourcesDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open sources db: %v\n", err)
		os.Exit(1)
	}
	defer sdb.Close()

	if err := sdb.Seed(importer.All()); err != nil {
		fmt.Fprintf(os.Stderr, "seed sources: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	checker := importer.NewChecker(sdb, logger, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	checker.CheckAll(ctx)
}
