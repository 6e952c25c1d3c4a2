package dto

import (
	"time"

	"github.com/lac-hong-legacy/lingo_api/ledger"
	"github.com/lac-hong-legacy/lingo_api/model"
)

type AwardXPRequest struct {
	XP       *int   `json:"xp" validate:"required,gte=0,lte=10000"`
	Timezone string `json:"timezone" validate:"max=64"`
}

func (r AwardXPRequest) Validate() error {
	return GetValidator().Struct(r)
}

type UpdateDailyGoalRequest struct {
	DailyGoal int `json:"daily_goal" validate:"required,gte=1,lte=1000"`
}

func (r UpdateDailyGoalRequest) Validate() error {
	return GetValidator().Struct(r)
}

type PlacementRequest struct {
	Level string `json:"level" validate:"required,placement_level"`
	Score int    `json:"score" validate:"gte=0,lte=100"`
}

func (r PlacementRequest) Validate() error {
	return GetValidator().Struct(r)
}

type ProgressResponse struct {
	UserID           string  `json:"user_id"`
	TotalXP          int     `json:"total_xp"`
	DailyXP          int     `json:"daily_xp"`
	DailyGoal        int     `json:"daily_goal"`
	StreakCount      int     `json:"streak_count"`
	StreakBackup     int     `json:"streak_backup"`
	StreakBrokenDate *string `json:"streak_broken_date"`
	LastActiveDate   *string `json:"last_active_date"`
	LastStreakDate   *string `json:"last_streak_date"`
	Timezone         string  `json:"timezone"`
	Treats           int     `json:"treats"`

	TodayKey         string `json:"today_key"`
	GoalMetToday     bool   `json:"goal_met_today"`
	StreakRestorable bool   `json:"streak_restorable"`
	XPToNextTreat    int    `json:"xp_to_next_treat"`

	PlacementLevel       string     `json:"placement_level,omitempty"`
	PlacementScore       int        `json:"placement_score,omitempty"`
	PlacementCompletedAt *time.Time `json:"placement_completed_at,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

type AwardXPResponse struct {
	Progress         ProgressResponse `json:"progress"`
	Outcome          ledger.Outcome   `json:"outcome"`
	TimezoneFallback bool             `json:"timezone_fallback"`
}

type RestoreRejectedData struct {
	Reason string `json:"reason" example:"no_treats"`
}

type XPEventResponse struct {
	ID           string    `json:"id"`
	Amount       int       `json:"amount"`
	DayKey       string    `json:"day_key"`
	Timezone     string    `json:"timezone"`
	TotalXPAfter int       `json:"total_xp_after"`
	StreakAfter  int       `json:"streak_after"`
	TreatsEarned int       `json:"treats_earned"`
	CreatedAt    time.Time `json:"created_at"`
}

type XPHistoryResponse struct {
	Events []XPEventResponse `json:"events"`
}

type RateLimitInfo struct {
	Allowed   bool       `json:"allowed"`
	Remaining int        `json:"remaining"`
	ResetTime *time.Time `json:"reset_time,omitempty"`
}

func NewXPEventResponse(e model.XPEvent) XPEventResponse {
	return XPEventResponse{
		ID:           e.ID,
		Amount:       e.Amount,
		DayKey:       e.DayKey,
		Timezone:     e.Timezone,
		TotalXPAfter: e.TotalXPAfter,
		StreakAfter:  e.StreakAfter,
		TreatsEarned: e.TreatsEarned,
		CreatedAt:    e.CreatedAt,
	}
}
