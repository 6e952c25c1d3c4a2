package services_test

import (
	"testing"
	"time"

	"github.com/lac-hong-legacy/lingo_api/services"
	"github.com/lac-hong-legacy/lingo_api/shared"
)

func TestRateLimitFixedWindow(t *testing.T) {
	clock := newClock(july(1))
	svc := services.NewRateLimitService(2, clock.Now)

	for i := 1; i <= 2; i++ {
		allowed, info, err := svc.IsAllowed("alice", shared.EndpointXPAward)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("expected request %d to be allowed", i)
		}
		if info.Remaining != 2-i {
			t.Errorf("expected %d remaining, got %d", 2-i, info.Remaining)
		}
	}

	allowed, info, _ := svc.IsAllowed("alice", shared.EndpointXPAward)
	if allowed {
		t.Fatal("expected third request to be limited")
	}
	if info.ResetTime == nil || !info.ResetTime.Equal(july(1).Add(time.Hour)) {
		t.Errorf("expected reset at %v, got %v", july(1).Add(time.Hour), info.ResetTime)
	}

	if allowed, _, _ := svc.IsAllowed("bob", shared.EndpointXPAward); !allowed {
		t.Error("expected other learners to have their own window")
	}

	clock.Advance(time.Hour)
	if allowed, _, _ := svc.IsAllowed("alice", shared.EndpointXPAward); !allowed {
		t.Error("expected a new window after an hour")
	}
}

func TestRateLimitUnknownEndpointAllowed(t *testing.T) {
	svc := services.NewRateLimitService(1, time.Now)

	for i := 0; i < 3; i++ {
		if allowed, _, _ := svc.IsAllowed("alice", "unknown"); !allowed {
			t.Fatal("expected unknown endpoints to be unlimited")
		}
	}
}

func TestRateLimitDisabledWithZeroLimit(t *testing.T) {
	svc := services.NewRateLimitService(0, time.Now)

	for i := 0; i < 5; i++ {
		if allowed, _, _ := svc.IsAllowed("alice", shared.EndpointXPAward); !allowed {
			t.Fatal("expected a zero limit to disable limiting")
		}
	}
}
