package repositories

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lac-hong-legacy/lingo_api/model"
)

// MemoryProgressRepository keeps progress in process memory. It gives the same
// compare-and-swap guarantees as ProgressRepository and is used by tests and local runs.
type MemoryProgressRepository struct {
	mu       sync.Mutex
	progress map[string]model.LearnerProgress
	events   []model.XPEvent
}

func NewMemoryProgressRepository() *MemoryProgressRepository {
	return &MemoryProgressRepository{
		progress: make(map[string]model.LearnerProgress),
	}
}

func (r *MemoryProgressRepository) GetProgress(userID string) (*model.LearnerProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.progress[userID]
	if !ok {
		return nil, ErrProgressNotFound
	}
	return copyProgress(p), nil
}

func (r *MemoryProgressRepository) CreateProgress(progress *model.LearnerProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.progress[progress.UserID]; ok {
		return ErrProgressExists
	}
	if progress.ID == "" {
		id, _ := uuid.NewV7()
		progress.ID = id.String()
	}
	if progress.Version == 0 {
		progress.Version = 1
	}
	now := time.Now()
	progress.CreatedAt = now
	progress.UpdatedAt = now

	r.progress[progress.UserID] = *copyProgress(*progress)
	return nil
}

func (r *MemoryProgressRepository) UpdateProgress(progress *model.LearnerProgress, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.progress[progress.UserID]
	if !ok || current.Version != expectedVersion {
		return ErrVersionConflict
	}

	progress.ID = current.ID
	progress.CreatedAt = current.CreatedAt
	progress.Version = expectedVersion + 1
	progress.UpdatedAt = time.Now()

	r.progress[progress.UserID] = *copyProgress(*progress)
	return nil
}

func (r *MemoryProgressRepository) ListProgress(offset, limit int) ([]model.LearnerProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.progress))
	for id := range r.progress {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if offset >= len(ids) {
		return nil, nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}

	rows := make([]model.LearnerProgress, 0, end-offset)
	for _, id := range ids[offset:end] {
		rows = append(rows, *copyProgress(r.progress[id]))
	}
	return rows, nil
}

func (r *MemoryProgressRepository) RecordXPEvent(event *model.XPEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == "" {
		id, _ := uuid.NewV7()
		event.ID = id.String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	r.events = append(r.events, *event)
	return nil
}

func (r *MemoryProgressRepository) ListXPEvents(userID string, limit int) ([]model.XPEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var events []model.XPEvent
	for i := len(r.events) - 1; i >= 0 && len(events) < limit; i-- {
		if r.events[i].UserID == userID {
			events = append(events, r.events[i])
		}
	}
	return events, nil
}

func (r *MemoryProgressRepository) DeleteXPEventsBefore(cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.events[:0]
	var deleted int64
	for _, e := range r.events {
		if e.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.events = kept
	return deleted, nil
}

func copyProgress(p model.LearnerProgress) *model.LearnerProgress {
	cp := p
	cp.StreakBrokenDate = copyString(p.StreakBrokenDate)
	cp.LastActiveDate = copyString(p.LastActiveDate)
	cp.LastStreakDate = copyString(p.LastStreakDate)
	if p.PlacementCompletedAt != nil {
		t := *p.PlacementCompletedAt
		cp.PlacementCompletedAt = &t
	}
	return &cp
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
