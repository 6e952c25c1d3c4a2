package main

import (
	"flag"
	"log"
	"os"
	"time"

	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/lac-hong-legacy/lingo_api/model"
	"github.com/lac-hong-legacy/lingo_api/seed/seeders"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	var (
		seedType = flag.String("type", "all", "Type of seeding: all, learners")
		dbPath   = flag.String("db", "", "Database path (overrides DB_DATABASE env var)")
		help     = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	databasePath := *dbPath
	if databasePath == "" {
		databasePath = os.Getenv("DB_DATABASE")
		if databasePath == "" {
			databasePath = "lingo.db"
		}
	}

	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&model.LearnerProgress{}, &model.XPEvent{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Printf("Connected to database: %s", databasePath)

	mainSeeder := seeders.NewMainSeeder(db, time.Now())

	switch *seedType {
	case "all":
		log.Println("Running complete database seeding...")
		if err := mainSeeder.SeedAll(); err != nil {
			log.Fatalf("Failed to seed database: %v", err)
		}
	case "learners":
		log.Println("Seeding learners only...")
		if err := mainSeeder.SeedLearnersOnly(); err != nil {
			log.Fatalf("Failed to seed learners: %v", err)
		}
	default:
		log.Fatalf("Unknown seed type: %s. Use 'all' or 'learners'", *seedType)
	}

	log.Println("Seeding operation completed successfully!")
}

func showHelp() {
	log.Println(`
Database Seeding Tool for the learner progress API

Usage: go run ./seed [flags]

Flags:
  -type string
        Type of seeding to perform (default "all")
        Options: all, learners
  -db string
        Database path (overrides DB_DATABASE environment variable)
  -help
        Show this help message

Seeded learners:
  demo-steady  seven day streak, goal met every day up to yesterday
  demo-broken  broken streak with a backup of 5 and a treat to restore it
  demo-new     fresh record

Environment Variables:
  DB_DATABASE - Default database path (default: lingo.db)
`)
}
