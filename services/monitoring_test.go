package services

import (
	"testing"
	"time"

	"github.com/lac-hong-legacy/lingo_api/dto"
	"github.com/lac-hong-legacy/lingo_api/services/repositories"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func counterDelta(c prometheus.Collector, before float64) float64 {
	return testutil.ToFloat64(c) - before
}

func TestLedgerCountersFollowAwardsAndRestores(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	svc := NewProgressService(repositories.NewMemoryProgressRepository())
	svc.SetClock(func() time.Time { return now })

	restored := ledgerStreakRestorationsTotal.WithLabelValues(RestoreMethodTreat)
	xpBefore := testutil.ToFloat64(ledgerXPAwardedTotal)
	creditsBefore := testutil.ToFloat64(ledgerStreakCreditsTotal)
	breaksBefore := testutil.ToFloat64(ledgerStreakBreaksTotal)
	treatsBefore := testutil.ToFloat64(ledgerTreatsEarnedTotal)
	restoredBefore := testutil.ToFloat64(restored)

	awardAt := func(amount int) {
		t.Helper()
		if _, err := svc.AwardXP("carol", dto.AwardXPRequest{XP: &amount, Timezone: "UTC"}); err != nil {
			t.Fatalf("award %d: %v", amount, err)
		}
	}

	for i := 0; i < 4; i++ {
		awardAt(50)
		now = now.Add(24 * time.Hour)
	}
	awardAt(10)
	now = now.Add(48 * time.Hour)
	awardAt(5)

	if _, err := svc.RestoreStreak("carol"); err != nil {
		t.Fatalf("restore: %v", err)
	}

	checks := []struct {
		name   string
		metric prometheus.Collector
		before float64
		want   float64
	}{
		{"xp awarded", ledgerXPAwardedTotal, xpBefore, 215},
		{"streak credits", ledgerStreakCreditsTotal, creditsBefore, 4},
		{"streak breaks", ledgerStreakBreaksTotal, breaksBefore, 1},
		{"treats earned", ledgerTreatsEarnedTotal, treatsBefore, 1},
		{"treat restorations", restored, restoredBefore, 1},
	}
	for _, c := range checks {
		if got := counterDelta(c.metric, c.before); got != c.want {
			t.Errorf("%s: expected +%v, got +%v", c.name, c.want, got)
		}
	}
}
