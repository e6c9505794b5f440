package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"results-web/internal/config"
	"results-web/internal/database"
	"results-web/internal/importer"
	"results-web/internal/models"
	"results-web/internal/service"
	"results-web/internal/utils"
)

func main() {
	kindFlag := flag.String("kind", "students", "feed kind: students or results")
	dryRun := flag.Bool("dry-run", false, "validate and report without writing")
	commit := flag.Bool("commit", false, "apply the feed to the database")
	notes := flag.String("notes", "", "operator notes recorded on the batch")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <csv-file>\n\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if *dryRun && *commit {
		log.Fatal("--dry-run and --commit are mutually exclusive")
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	path := flag.Arg(0)
	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("Cannot open %s: %v", path, err)
	}
	defer file.Close()

	kind, err := service.ParseImportKind(*kindFlag)
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewMySQL(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	imports := service.NewImportService(db, cfg, utils.GetLogger())
	meta := importer.Metadata{
		Filename: filepath.Base(path),
		Notes:    *notes,
	}

	ctx := context.Background()

	var summary *models.ImportSummary
	if *commit {
		summary, err = imports.Commit(ctx, kind, file, meta)
	} else {
		if !*dryRun {
			fmt.Println("Neither --dry-run nor --commit given; defaulting to dry run.")
		}
		summary, err = imports.Preview(ctx, kind, file, meta)
	}
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	mode := "committed"
	if summary.Batch.IsDryRun {
		mode = "dry run"
	}
	fmt.Printf("Batch %d (%s, %s): %d rows\n", summary.Batch.ID, summary.Batch.ImportKind, mode, summary.RowCount())
	fmt.Printf("  created: %d  updated: %d  skipped: %d\n", summary.Created, summary.Updated, summary.Skipped)

	for _, row := range summary.RowResults {
		if !row.HasErrors() {
			continue
		}
		fmt.Printf("  row %d: %s\n", row.RowNumber, strings.Join(row.Errors, "; "))
	}

	if summary.Skipped > 0 {
		os.Exit(1)
	}
}
