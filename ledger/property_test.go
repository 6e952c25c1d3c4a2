package ledger_test

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"
	"time"

	"github.com/lac-hong-legacy/lingo_api/ledger"
)

var zones = []string{"UTC", "America/New_York", "Asia/Kolkata", "Pacific/Auckland", "Europe/London"}

type step struct {
	Advance time.Duration
	Amount  int
	Zone    string
	Restore bool
}

// script is a random learner history: awards spread over hours and days, with the
// occasional restoration attempt.
type script []step

func (script) Generate(r *rand.Rand, size int) reflect.Value {
	n := 1 + r.Intn(size+20)
	s := make(script, n)
	for i := range s {
		s[i] = step{
			Advance: time.Duration(r.Intn(80)) * time.Hour,
			Amount:  r.Intn(160),
			Zone:    zones[r.Intn(len(zones))],
			Restore: r.Intn(6) == 0,
		}
		if r.Intn(4) == 0 {
			// A few same-hour bursts to exercise goal crossing within one day.
			s[i].Advance = time.Duration(r.Intn(30)) * time.Minute
		}
	}
	return reflect.ValueOf(s)
}

func runScript(t *testing.T, s script, check func(before, after ledger.Record, st step, out ledger.Outcome, err error) bool) bool {
	t.Helper()
	rec := ledger.NewRecord("UTC")
	at := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	for _, st := range s {
		at = at.Add(st.Advance)
		before := rec

		var (
			out ledger.Outcome
			err error
		)
		if st.Restore {
			rec, err = ledger.RestoreStreak(rec)
		} else {
			rec, out, err = ledger.ApplyXPAward(rec, ledger.Award{Amount: st.Amount, At: at, Timezone: st.Zone})
			if err != nil {
				t.Errorf("apply: %v", err)
				return false
			}
		}
		if !check(before, rec, st, out, err) {
			t.Logf("before %+v", before)
			t.Logf("after  %+v (step %+v, outcome %+v, err %v)", rec, st, out, err)
			return false
		}
	}
	return true
}

func quickCheck(t *testing.T, f func(script) bool) {
	t.Helper()
	if err := quick.Check(f, &quick.Config{MaxCount: 300}); err != nil {
		t.Error(err)
	}
}

func TestProperty_TotalXPMonotonic(t *testing.T) {
	quickCheck(t, func(s script) bool {
		return runScript(t, s, func(before, after ledger.Record, _ step, _ ledger.Outcome, _ error) bool {
			return after.TotalXP >= before.TotalXP
		})
	})
}

func TestProperty_TreatAccrualExact(t *testing.T) {
	quickCheck(t, func(s script) bool {
		return runScript(t, s, func(before, after ledger.Record, st step, out ledger.Outcome, err error) bool {
			if st.Restore {
				if err != nil {
					return after.Treats == before.Treats
				}
				return after.Treats == before.Treats-1
			}
			earned := after.TotalXP/ledger.XPPerTreat - before.TotalXP/ledger.XPPerTreat
			return after.Treats-before.Treats == earned && out.TreatsEarned == earned && after.Treats >= 0
		})
	})
}

func TestProperty_AtMostOneCreditPerDay(t *testing.T) {
	quickCheck(t, func(s script) bool {
		credited := map[string]int{}
		return runScript(t, s, func(before, after ledger.Record, st step, out ledger.Outcome, _ error) bool {
			if st.Restore || out.MadeUp {
				return true
			}
			if out.StreakCredited {
				credited[out.TodayKey]++
				if credited[out.TodayKey] > 1 {
					return false
				}
			}
			base := before.StreakCount
			if out.StreakBroken {
				base = 0
			}
			return after.StreakCount-base <= 1
		})
	})
}

func TestProperty_BreakRequiresGapWithUnmetGoal(t *testing.T) {
	quickCheck(t, func(s script) bool {
		rec := ledger.NewRecord("UTC")
		at := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
		for _, st := range s {
			at = at.Add(st.Advance)
			if st.Restore {
				continue
			}
			yesterday, _ := ledger.PreviousDateKey(at, st.Zone)
			before := rec
			var out ledger.Outcome
			rec, out, _ = ledger.ApplyXPAward(rec, ledger.Award{Amount: st.Amount, At: at, Timezone: st.Zone})
			if !out.StreakBroken {
				continue
			}
			if before.LastActiveDate == "" || before.LastActiveDate == yesterday || before.DailyXP >= before.DailyGoal {
				return false
			}
		}
		return true
	})
}

func TestProperty_BackupImpliesBrokenDate(t *testing.T) {
	quickCheck(t, func(s script) bool {
		return runScript(t, s, func(_, after ledger.Record, _ step, _ ledger.Outcome, _ error) bool {
			return after.StreakBackup == 0 || after.StreakBrokenDate != ""
		})
	})
}

func TestProperty_RestoreAcceptedAtMostOnceInARow(t *testing.T) {
	quickCheck(t, func(s script) bool {
		return runScript(t, s, func(_, after ledger.Record, st step, _ ledger.Outcome, err error) bool {
			if !st.Restore || err != nil {
				return true
			}
			again, err := ledger.RestoreStreak(after)
			return errors.Is(err, ledger.ErrRestoreRejected) && again == after
		})
	})
}

func TestProperty_LastStreakDateNeverRecredited(t *testing.T) {
	quickCheck(t, func(s script) bool {
		return runScript(t, s, func(before, after ledger.Record, st step, out ledger.Outcome, _ error) bool {
			if st.Restore || !out.StreakCredited {
				return true
			}
			return before.LastStreakDate != after.LastStreakDate
		})
	})
}
