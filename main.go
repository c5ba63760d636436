// backend/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/gewnthar/faresight/backend/catalog"
	"github.com/gewnthar/faresight/backend/config"
	"github.com/gewnthar/faresight/backend/database"
	"github.com/gewnthar/faresight/backend/services"
)

func main() {
	mode := flag.String("mode", "collect", "what to run: collect | discover | seed | backfill")
	configPath := flag.String("config", "", "path to config.yaml (default: config/config.yaml)")
	flag.Parse()

	log.Println("Starting Faresight collector...")

	// Credentials live in .env during development; missing file is fine in
	// production where the environment is set directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using process environment.")
	}

	path := *configPath
	if path == "" {
		path = "config/config.yaml"
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = "backend/config/config.yaml"
		}
	}
	if err := config.LoadConfig(path); err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	log.Printf("Configuration loaded. DB name: %s, daily quota: %d, runs/day: %d",
		config.AppConfig.Database.DBName,
		config.AppConfig.Collector.DailyApiQuota,
		config.AppConfig.Collector.RunsPerDay)

	if err := database.InitDB(config.AppConfig.Database); err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}
	defer database.CloseDB()

	if err := database.InitSchema(); err != nil {
		log.Fatalf("Error applying schema: %v", err)
	}

	// A batch run should stop at the next safe point on SIGINT/SIGTERM;
	// committed offers and state survive the interruption.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "collect":
		if err := services.RunCollection(ctx); err != nil {
			log.Fatalf("Collection run failed: %v", err)
		}
	case "discover":
		if err := services.RunDiscovery(ctx); err != nil {
			log.Fatalf("Route discovery failed: %v", err)
		}
	case "seed":
		if _, _, err := catalog.SeedRoutes(config.AppConfig.Seed.RoutesCSV); err != nil {
			log.Fatalf("Route seeding failed: %v", err)
		}
	case "backfill":
		if _, err := database.BackfillMissingFingerprints(); err != nil {
			log.Fatalf("Fingerprint backfill failed: %v", err)
		}
	default:
		log.Fatalf("Unknown mode %q (want collect, discover, seed or backfill)", *mode)
	}

	log.Println("Done.")
}
