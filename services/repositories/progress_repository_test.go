package repositories_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lac-hong-legacy/lingo_api/ledger"
	"github.com/lac-hong-legacy/lingo_api/model"
	"github.com/lac-hong-legacy/lingo_api/services/repositories"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// progressStore is the behaviour both repositories share.
type progressStore interface {
	GetProgress(userID string) (*model.LearnerProgress, error)
	CreateProgress(progress *model.LearnerProgress) error
	UpdateProgress(progress *model.LearnerProgress, expectedVersion int64) error
	ListProgress(offset, limit int) ([]model.LearnerProgress, error)
	RecordXPEvent(event *model.XPEvent) error
	ListXPEvents(userID string, limit int) ([]model.XPEvent, error)
	DeleteXPEventsBefore(cutoff time.Time) (int64, error)
}

func openSqlite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "progress.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.LearnerProgress{}, &model.XPEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func forEachStore(t *testing.T, fn func(t *testing.T, store progressStore)) {
	t.Helper()
	t.Run("gorm", func(t *testing.T) {
		fn(t, repositories.NewProgressRepository(openSqlite(t)))
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, repositories.NewMemoryProgressRepository())
	})
}

func newProgress(userID string) *model.LearnerProgress {
	p := &model.LearnerProgress{UserID: userID}
	p.SetRecord(ledger.NewRecord("UTC"))
	return p
}

func TestCreateAndGetProgress(t *testing.T) {
	forEachStore(t, func(t *testing.T, store progressStore) {
		if _, err := store.GetProgress("alice"); !errors.Is(err, repositories.ErrProgressNotFound) {
			t.Fatalf("expected ErrProgressNotFound, got %v", err)
		}

		p := newProgress("alice")
		if err := store.CreateProgress(p); err != nil {
			t.Fatalf("create: %v", err)
		}
		if p.ID == "" {
			t.Error("expected an ID to be assigned")
		}
		if p.Version != 1 {
			t.Errorf("expected version 1, got %d", p.Version)
		}

		got, err := store.GetProgress("alice")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.DailyGoal != ledger.DefaultDailyGoal {
			t.Errorf("expected daily goal %d, got %d", ledger.DefaultDailyGoal, got.DailyGoal)
		}
		if got.LastActiveDate != nil || got.StreakBrokenDate != nil {
			t.Errorf("expected unset day keys, got %v %v", got.LastActiveDate, got.StreakBrokenDate)
		}
	})
}

func TestCreateProgressTwiceFails(t *testing.T) {
	forEachStore(t, func(t *testing.T, store progressStore) {
		if err := store.CreateProgress(newProgress("bob")); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := store.CreateProgress(newProgress("bob")); !errors.Is(err, repositories.ErrProgressExists) {
			t.Errorf("expected ErrProgressExists, got %v", err)
		}
	})
}

func TestUpdateProgressCompareAndSwap(t *testing.T) {
	forEachStore(t, func(t *testing.T, store progressStore) {
		p := newProgress("carol")
		if err := store.CreateProgress(p); err != nil {
			t.Fatalf("create: %v", err)
		}

		first, _ := store.GetProgress("carol")
		second, _ := store.GetProgress("carol")

		rec := first.Record()
		rec.TotalXP = 30
		rec.LastActiveDate = "2025-07-01"
		first.SetRecord(rec)
		if err := store.UpdateProgress(first, 1); err != nil {
			t.Fatalf("first update: %v", err)
		}
		if first.Version != 2 {
			t.Errorf("expected version 2, got %d", first.Version)
		}

		rec = second.Record()
		rec.TotalXP = 99
		second.SetRecord(rec)
		if err := store.UpdateProgress(second, 1); !errors.Is(err, repositories.ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}

		got, _ := store.GetProgress("carol")
		if got.TotalXP != 30 {
			t.Errorf("expected total 30, got %d", got.TotalXP)
		}
		if got.LastActiveDate == nil || *got.LastActiveDate != "2025-07-01" {
			t.Errorf("expected last active 2025-07-01, got %v", got.LastActiveDate)
		}
	})
}

func TestUpdateProgressClearsDayKeys(t *testing.T) {
	forEachStore(t, func(t *testing.T, store progressStore) {
		p := newProgress("dan")
		rec := p.Record()
		rec.StreakBrokenDate = "2025-07-03"
		rec.StreakBackup = 4
		p.SetRecord(rec)
		if err := store.CreateProgress(p); err != nil {
			t.Fatalf("create: %v", err)
		}

		rec.StreakBrokenDate = ""
		rec.StreakBackup = 0
		p.SetRecord(rec)
		if err := store.UpdateProgress(p, p.Version); err != nil {
			t.Fatalf("update: %v", err)
		}

		got, _ := store.GetProgress("dan")
		if got.StreakBrokenDate != nil {
			t.Errorf("expected broken date cleared, got %q", *got.StreakBrokenDate)
		}
	})
}

func TestXPEventsNewestFirstAndPruned(t *testing.T) {
	forEachStore(t, func(t *testing.T, store progressStore) {
		base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
		for i := 0; i < 5; i++ {
			err := store.RecordXPEvent(&model.XPEvent{
				UserID:    "erin",
				Amount:    10 * (i + 1),
				DayKey:    "2025-07-01",
				Timezone:  "UTC",
				CreatedAt: base.Add(time.Duration(i) * time.Hour),
			})
			if err != nil {
				t.Fatalf("record: %v", err)
			}
		}
		_ = store.RecordXPEvent(&model.XPEvent{UserID: "frank", Amount: 1, DayKey: "2025-07-01", Timezone: "UTC", CreatedAt: base})

		events, err := store.ListXPEvents("erin", 3)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(events) != 3 {
			t.Fatalf("expected 3 events, got %d", len(events))
		}
		if events[0].Amount != 50 || events[2].Amount != 30 {
			t.Errorf("expected newest first, got %d..%d", events[0].Amount, events[2].Amount)
		}

		deleted, err := store.DeleteXPEventsBefore(base.Add(2 * time.Hour))
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if deleted != 3 {
			t.Errorf("expected 3 deleted, got %d", deleted)
		}
		events, _ = store.ListXPEvents("erin", 10)
		if len(events) != 3 {
			t.Errorf("expected 3 remaining, got %d", len(events))
		}
	})
}

func TestListProgressPages(t *testing.T) {
	forEachStore(t, func(t *testing.T, store progressStore) {
		for _, id := range []string{"u3", "u1", "u2"} {
			if err := store.CreateProgress(newProgress(id)); err != nil {
				t.Fatalf("create %s: %v", id, err)
			}
		}

		page, err := store.ListProgress(0, 2)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(page) != 2 || page[0].UserID != "u1" || page[1].UserID != "u2" {
			t.Errorf("unexpected first page %+v", page)
		}
		page, _ = store.ListProgress(2, 2)
		if len(page) != 1 || page[0].UserID != "u3" {
			t.Errorf("unexpected second page %+v", page)
		}
	})
}
