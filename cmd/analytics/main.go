package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"results-web/internal/config"
	"results-web/internal/database"
	"results-web/internal/repository"
	"results-web/internal/service"
	"results-web/internal/utils"
)

// Recomputes subject aggregates and anomaly flags from published
// results, either for one sitting or for all of them.
func main() {
	subject := flag.String("subject", "", "recompute a single subject (requires --exam-date)")
	examDate := flag.String("exam-date", "", "exam date in YYYY-MM-DD format")
	flag.Parse()

	if (*subject == "") != (*examDate == "") {
		log.Fatal("--subject and --exam-date must be given together")
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

	redisClient, err := database.NewRedis(cfg)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		log.Printf("Continuing without aggregate caching")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	analytics := service.NewAnalyticsService(
		repository.NewResultRepository(db),
		repository.NewAnalyticsRepository(db),
		redisClient,
		utils.GetLogger(),
	)
	ctx := context.Background()

	if *subject != "" {
		date, err := time.Parse("2006-01-02", *examDate)
		if err != nil {
			log.Fatalf("Invalid --exam-date: %v", err)
		}
		if err := analytics.RecomputeSubject(ctx, *subject, date); err != nil {
			log.Fatalf("Recompute failed: %v", err)
		}
		fmt.Printf("Recomputed aggregate for %s (%s).\n", *subject, *examDate)
		return
	}

	recomputed, err := analytics.RecomputeAll(ctx)
	if err != nil {
		log.Fatalf("Recompute failed: %v", err)
	}
	fmt.Printf("Recomputed %d subject sitting(s).\n", recomputed)
}
