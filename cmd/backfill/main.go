package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"results-web/internal/config"
	"results-web/internal/database"
	"results-web/internal/repository"
	"results-web/internal/service"
	"results-web/internal/utils"
)

// Aligns result status with published_at for rows written before the
// status workflow existed.
func main() {
	apply := flag.Bool("apply", false, "apply the backfill instead of listing candidates")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewMySQL(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	statusService := service.NewStatusService(repository.NewResultRepository(db), utils.GetLogger())
	ctx := context.Background()

	if !*apply {
		candidates, err := statusService.ListBackfillCandidates(ctx)
		if err != nil {
			log.Fatalf("Failed to list candidates: %v", err)
		}
		fmt.Printf("%d result(s) have published_at set without published status:\n", len(candidates))
		for _, result := range candidates {
			fmt.Printf("  result %d (%s, %s): status=%s published_at=%s\n",
				result.ID, result.RollNumber, result.Subject, result.Status,
				result.PublishedAt.Format("2006-01-02"))
		}
		fmt.Println("Run with --apply to fix them.")
		return
	}

	fixed, err := statusService.BackfillPublishedStatus(ctx)
	if err != nil {
		log.Fatalf("Backfill failed: %v", err)
	}
	fmt.Printf("Backfill finished, %d result(s) updated.\n", fixed)
}
