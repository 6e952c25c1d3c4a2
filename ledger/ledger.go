// Package ledger implements streak and XP accounting for a single learner.
//
// Every function here is pure: it takes a Record, returns a new Record and never
// touches storage or the wall clock. Callers are responsible for reading and writing
// records so that two updates for the same learner are never computed from the same
// snapshot.
package ledger

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultDailyGoal = 50
	XPPerTreat       = 200
)

// Record is one learner's gamification state. Day-key fields hold "" when unset.
type Record struct {
	TotalXP          int    `json:"total_xp"`
	DailyXP          int    `json:"daily_xp"`
	DailyGoal        int    `json:"daily_goal"`
	StreakCount      int    `json:"streak_count"`
	StreakBackup     int    `json:"streak_backup"`
	StreakBrokenDate string `json:"streak_broken_date"`
	LastActiveDate   string `json:"last_active_date"`
	LastStreakDate   string `json:"last_streak_date"`
	Timezone         string `json:"timezone"`
	Treats           int    `json:"treats"`
}

// NewRecord returns the state of a learner that has never earned XP.
func NewRecord(timezone string) Record {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	return Record{
		DailyGoal: DefaultDailyGoal,
		Timezone:  timezone,
	}
}

// Award is a request to add XP at a given instant, observed in a given zone.
type Award struct {
	Amount   int
	At       time.Time
	Timezone string
}

// Outcome describes what a single award did to a record.
type Outcome struct {
	TodayKey string `json:"today_key"`
	Rollover bool   `json:"rollover"`

	StreakBroken   bool `json:"streak_broken"`
	StreakCredited bool `json:"streak_credited"`
	BreakForgiven  bool `json:"break_forgiven"`
	MadeUp         bool `json:"made_up"`

	TreatsEarned int `json:"treats_earned"`
}

// GoalMet reports whether the record's daily XP reaches its goal.
func (r Record) GoalMet() bool {
	return r.DailyXP >= r.goal()
}

// Restorable reports whether RestoreStreak would accept the record.
func (r Record) Restorable() bool {
	return checkRestore(r) == ""
}

// XPToNextTreat is the XP still needed to cross the next treat threshold.
func (r Record) XPToNextTreat() int {
	return XPPerTreat - r.TotalXP%XPPerTreat
}

func (r Record) goal() int {
	if r.DailyGoal <= 0 {
		return DefaultDailyGoal
	}
	return r.DailyGoal
}

// ApplyXPAward adds award to rec and returns the updated record.
//
// The only failure is ErrInvalidTimezone, in which case rec is returned unchanged and
// the caller is expected to retry with a valid zone.
func ApplyXPAward(rec Record, award Award) (Record, Outcome, error) {
	var out Outcome

	todayKey, err := DateKey(award.At, award.Timezone)
	if err != nil {
		return rec, out, err
	}
	yesterdayKey, err := PreviousDateKey(award.At, award.Timezone)
	if err != nil {
		return rec, out, err
	}

	// A zone change can make the award land on a day before the last active one.
	// Such awards count towards the last active day instead of rolling back.
	if rec.LastActiveDate != "" && todayKey < rec.LastActiveDate {
		todayKey = rec.LastActiveDate
	}

	amount := award.Amount
	if amount < 0 {
		amount = 0
	}

	next := rec
	next.DailyGoal = rec.goal()
	next.Timezone = award.Timezone
	goal := next.DailyGoal

	if rec.LastActiveDate != todayKey {
		out.Rollover = true

		if rec.LastActiveDate != "" && rec.LastActiveDate != yesterdayKey && rec.DailyXP < goal {
			next.StreakBackup = rec.StreakCount
			next.StreakCount = 0
			next.StreakBrokenDate = todayKey
			out.StreakBroken = true
		}

		next.DailyXP = 0
	}

	// Make-up is judged on the break as it stands before today's goal credit.
	brokenDate := next.StreakBrokenDate
	backup := next.StreakBackup

	nextDailyXP := next.DailyXP + amount
	nextTotalXP := rec.TotalXP + amount
	treatsEarned := nextTotalXP/XPPerTreat - rec.TotalXP/XPPerTreat

	if nextDailyXP >= goal && rec.LastStreakDate != todayKey {
		next.StreakCount++
		next.LastStreakDate = todayKey
		out.StreakCredited = true

		if next.StreakBrokenDate == todayKey {
			next.StreakBrokenDate = ""
			next.StreakBackup = 0
			out.BreakForgiven = true
		}
	}

	if brokenDate != "" && nextDailyXP >= goal*2 && backup > 0 {
		next.StreakCount = backup + 1
		next.StreakBackup = 0
		next.StreakBrokenDate = ""
		next.LastStreakDate = todayKey
		out.MadeUp = true
		out.BreakForgiven = false
	}

	next.LastActiveDate = todayKey
	next.DailyXP = nextDailyXP
	next.TotalXP = nextTotalXP
	next.Treats = rec.Treats + treatsEarned

	out.TodayKey = todayKey
	out.TreatsEarned = treatsEarned

	return next, out, nil
}

const (
	ReasonNoBrokenStreak = "no_broken_streak"
	ReasonNoTreats       = "no_treats"
	ReasonNoBackup       = "no_backup"
)

var ErrRestoreRejected = errors.New("cannot restore streak")

// RestoreRejectedError names the first restoration precondition that failed.
type RestoreRejectedError struct {
	Reason string
}

func (e *RestoreRejectedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrRestoreRejected, e.Reason)
}

func (e *RestoreRejectedError) Is(target error) bool {
	return target == ErrRestoreRejected
}

func checkRestore(rec Record) string {
	switch {
	case rec.StreakBrokenDate == "":
		return ReasonNoBrokenStreak
	case rec.Treats < 1:
		return ReasonNoTreats
	case rec.StreakBackup < 1:
		return ReasonNoBackup
	}
	return ""
}

// RestoreStreak spends one treat to bring back the streak saved when it broke.
// On rejection rec is returned unchanged together with a *RestoreRejectedError.
func RestoreStreak(rec Record) (Record, error) {
	if reason := checkRestore(rec); reason != "" {
		return rec, &RestoreRejectedError{Reason: reason}
	}

	next := rec
	next.StreakCount = rec.StreakBackup
	next.StreakBackup = 0
	next.StreakBrokenDate = ""
	next.Treats = rec.Treats - 1
	return next, nil
}
