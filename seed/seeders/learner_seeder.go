package seeders

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lac-hong-legacy/lingo_api/ledger"
	"github.com/lac-hong-legacy/lingo_api/model"
	"github.com/lac-hong-legacy/lingo_api/services/repositories"
	"gorm.io/gorm"
)

// LearnerSeeder creates demo learners whose state is produced by replaying awards
// through the ledger, so every seeded record is one the API could have produced.
type LearnerSeeder struct {
	repo *repositories.ProgressRepository
	now  time.Time
}

func NewLearnerSeeder(db *gorm.DB, now time.Time) *LearnerSeeder {
	return &LearnerSeeder{
		repo: repositories.NewProgressRepository(db),
		now:  now,
	}
}

// dayAward is an award made daysAgo days before the seed day, at noon.
type dayAward struct {
	daysAgo int
	xp      int
}

type demoLearner struct {
	userID   string
	timezone string
	awards   []dayAward
}

func demoLearners() []demoLearner {
	steady := demoLearner{userID: "demo-steady", timezone: "America/New_York"}
	for d := 7; d >= 1; d-- {
		steady.awards = append(steady.awards, dayAward{daysAgo: d, xp: 60})
	}

	// Five goal days, a short day, a missed day, then a short day that finds the break.
	broken := demoLearner{userID: "demo-broken", timezone: "Europe/London"}
	for d := 8; d >= 4; d-- {
		broken.awards = append(broken.awards, dayAward{daysAgo: d, xp: 50})
	}
	broken.awards = append(broken.awards, dayAward{daysAgo: 3, xp: 10}, dayAward{daysAgo: 1, xp: 10})

	return []demoLearner{
		steady,
		broken,
		{userID: "demo-new", timezone: "Asia/Ho_Chi_Minh"},
	}
}

func (s *LearnerSeeder) SeedLearners() error {
	log.Println("Seeding demo learners...")

	for _, learner := range demoLearners() {
		if _, err := s.repo.GetProgress(learner.userID); err == nil {
			log.Printf("Learner %s already exists, skipping", learner.userID)
			continue
		} else if !errors.Is(err, repositories.ErrProgressNotFound) {
			return err
		}

		rec, err := s.replay(learner)
		if err != nil {
			return fmt.Errorf("replay %s: %w", learner.userID, err)
		}

		progress := &model.LearnerProgress{UserID: learner.userID}
		progress.SetRecord(rec)
		if err := s.repo.CreateProgress(progress); err != nil {
			return fmt.Errorf("create %s: %w", learner.userID, err)
		}

		log.Printf("Seeded %s: total_xp=%d streak=%d backup=%d treats=%d",
			learner.userID, rec.TotalXP, rec.StreakCount, rec.StreakBackup, rec.Treats)
	}

	return nil
}

func (s *LearnerSeeder) replay(learner demoLearner) (ledger.Record, error) {
	loc, err := ledger.LoadZone(learner.timezone)
	if err != nil {
		return ledger.Record{}, err
	}

	local := s.now.In(loc)
	rec := ledger.NewRecord(learner.timezone)

	for _, a := range learner.awards {
		at := time.Date(local.Year(), local.Month(), local.Day()-a.daysAgo, 12, 0, 0, 0, loc)
		var out ledger.Outcome
		rec, out, err = ledger.ApplyXPAward(rec, ledger.Award{Amount: a.xp, At: at, Timezone: learner.timezone})
		if err != nil {
			return ledger.Record{}, err
		}

		event := &model.XPEvent{
			UserID:       learner.userID,
			Amount:       a.xp,
			DayKey:       rec.LastActiveDate,
			Timezone:     learner.timezone,
			TotalXPAfter: rec.TotalXP,
			StreakAfter:  rec.StreakCount,
			TreatsEarned: out.TreatsEarned,
			CreatedAt:    at.UTC(),
		}
		if err := s.repo.RecordXPEvent(event); err != nil {
			return ledger.Record{}, err
		}
	}
	return rec, nil
}
