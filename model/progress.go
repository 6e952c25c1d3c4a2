package model

import (
	"time"

	"github.com/lac-hong-legacy/lingo_api/ledger"
)

const (
	PlacementBeginner     = "beginner"
	PlacementIntermediate = "intermediate"
	PlacementAdvanced     = "advanced"
)

// LearnerProgress is the stored form of a learner's ledger record. Version is bumped on
// every write and guards read-modify-write cycles.
type LearnerProgress struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"uniqueIndex;not null;size:128"`

	TotalXP          int     `json:"total_xp" gorm:"default:0;not null"`
	DailyXP          int     `json:"daily_xp" gorm:"default:0;not null"`
	DailyGoal        int     `json:"daily_goal" gorm:"default:50;not null"`
	StreakCount      int     `json:"streak_count" gorm:"default:0;not null"`
	StreakBackup     int     `json:"streak_backup" gorm:"default:0;not null"`
	StreakBrokenDate *string `json:"streak_broken_date" gorm:"size:10"`
	LastActiveDate   *string `json:"last_active_date" gorm:"size:10"`
	LastStreakDate   *string `json:"last_streak_date" gorm:"size:10"`
	Timezone         string  `json:"timezone" gorm:"default:UTC;not null;size:64"`
	Treats           int     `json:"treats" gorm:"default:0;not null"`

	// Placement is updated on its own and never feeds the ledger.
	PlacementLevel       string     `json:"placement_level" gorm:"size:20"`
	PlacementScore       int        `json:"placement_score" gorm:"default:0"`
	PlacementCompletedAt *time.Time `json:"placement_completed_at"`

	Version   int64     `json:"version" gorm:"default:1;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *LearnerProgress) Record() ledger.Record {
	return ledger.Record{
		TotalXP:          p.TotalXP,
		DailyXP:          p.DailyXP,
		DailyGoal:        p.DailyGoal,
		StreakCount:      p.StreakCount,
		StreakBackup:     p.StreakBackup,
		StreakBrokenDate: deref(p.StreakBrokenDate),
		LastActiveDate:   deref(p.LastActiveDate),
		LastStreakDate:   deref(p.LastStreakDate),
		Timezone:         p.Timezone,
		Treats:           p.Treats,
	}
}

func (p *LearnerProgress) SetRecord(rec ledger.Record) {
	p.TotalXP = rec.TotalXP
	p.DailyXP = rec.DailyXP
	p.DailyGoal = rec.DailyGoal
	p.StreakCount = rec.StreakCount
	p.StreakBackup = rec.StreakBackup
	p.StreakBrokenDate = ref(rec.StreakBrokenDate)
	p.LastActiveDate = ref(rec.LastActiveDate)
	p.LastStreakDate = ref(rec.LastStreakDate)
	p.Timezone = rec.Timezone
	p.Treats = rec.Treats
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// XPEvent is the audit trail of accepted awards.
type XPEvent struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	UserID       string    `json:"user_id" gorm:"index:idx_xp_events_user_created;not null;size:128"`
	Amount       int       `json:"amount" gorm:"not null"`
	DayKey       string    `json:"day_key" gorm:"not null;size:10"`
	Timezone     string    `json:"timezone" gorm:"not null;size:64"`
	TotalXPAfter int       `json:"total_xp_after" gorm:"not null"`
	StreakAfter  int       `json:"streak_after" gorm:"not null"`
	TreatsEarned int       `json:"treats_earned" gorm:"default:0;not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"index:idx_xp_events_user_created;index"`
}
