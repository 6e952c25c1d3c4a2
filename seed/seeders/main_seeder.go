package seeders

import (
	"log"
	"time"

	"gorm.io/gorm"
)

// MainSeeder coordinates all seeding operations
type MainSeeder struct {
	db  *gorm.DB
	now time.Time
}

// NewMainSeeder creates a new main seeder. Seeded histories end on now's day.
func NewMainSeeder(db *gorm.DB, now time.Time) *MainSeeder {
	return &MainSeeder{db: db, now: now}
}

// SeedAll runs all seeders in the correct order
func (s *MainSeeder) SeedAll() error {
	log.Println("Starting database seeding...")

	if err := s.SeedLearnersOnly(); err != nil {
		log.Printf("Learner seeding failed: %v", err)
		return err
	}

	log.Println("Database seeding completed successfully!")
	return nil
}

func (s *MainSeeder) SeedLearnersOnly() error {
	return NewLearnerSeeder(s.db, s.now).SeedLearners()
}
