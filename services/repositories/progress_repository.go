package repositories

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lac-hong-legacy/lingo_api/model"
	"gorm.io/gorm"
)

var (
	ErrProgressNotFound = errors.New("progress not found")
	ErrProgressExists   = errors.New("progress already exists")
	ErrVersionConflict  = errors.New("progress was modified concurrently")
)

// ProgressRepository stores learner progress rows and the XP event trail.
type ProgressRepository struct {
	BaseRepository
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (r *ProgressRepository) GetProgress(userID string) (*model.LearnerProgress, error) {
	var progress model.LearnerProgress
	if err := r.db.Where("user_id = ?", userID).First(&progress).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProgressNotFound
		}
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressRepository) CreateProgress(progress *model.LearnerProgress) error {
	if progress.ID == "" {
		id, _ := uuid.NewV7()
		progress.ID = id.String()
	}
	if progress.Version == 0 {
		progress.Version = 1
	}

	if err := r.db.Create(progress).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrProgressExists
		}
		return err
	}
	return nil
}

// UpdateProgress writes progress only if the stored row still carries expectedVersion.
// On success progress.Version is advanced to match the row.
func (r *ProgressRepository) UpdateProgress(progress *model.LearnerProgress, expectedVersion int64) error {
	now := time.Now()
	result := r.db.Model(&model.LearnerProgress{}).
		Where("user_id = ? AND version = ?", progress.UserID, expectedVersion).
		Updates(map[string]interface{}{
			"total_xp":               progress.TotalXP,
			"daily_xp":               progress.DailyXP,
			"daily_goal":             progress.DailyGoal,
			"streak_count":           progress.StreakCount,
			"streak_backup":          progress.StreakBackup,
			"streak_broken_date":     progress.StreakBrokenDate,
			"last_active_date":       progress.LastActiveDate,
			"last_streak_date":       progress.LastStreakDate,
			"timezone":               progress.Timezone,
			"treats":                 progress.Treats,
			"placement_level":        progress.PlacementLevel,
			"placement_score":        progress.PlacementScore,
			"placement_completed_at": progress.PlacementCompletedAt,
			"version":                expectedVersion + 1,
			"updated_at":             now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	progress.Version = expectedVersion + 1
	progress.UpdatedAt = now
	return nil
}

func (r *ProgressRepository) ListProgress(offset, limit int) ([]model.LearnerProgress, error) {
	var rows []model.LearnerProgress
	err := r.db.Order("user_id ASC").Offset(offset).Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *ProgressRepository) RecordXPEvent(event *model.XPEvent) error {
	if event.ID == "" {
		id, _ := uuid.NewV7()
		event.ID = id.String()
	}
	return r.db.Create(event).Error
}

func (r *ProgressRepository) ListXPEvents(userID string, limit int) ([]model.XPEvent, error) {
	var events []model.XPEvent
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *ProgressRepository) DeleteXPEventsBefore(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", cutoff).Delete(&model.XPEvent{})
	return result.RowsAffected, result.Error
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
