package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/lac-hong-legacy/lingo_api/dto"
	"github.com/lac-hong-legacy/lingo_api/ledger"
	"github.com/lac-hong-legacy/lingo_api/model"
	"github.com/lac-hong-legacy/lingo_api/services/repositories"
	"github.com/lac-hong-legacy/lingo_api/shared"
	log "github.com/sirupsen/logrus"
)

const PROGRESS_SVC = "progress_svc"

const (
	defaultMaxRetries   = 5
	defaultCacheTTL     = 5 * time.Minute
	defaultHistoryLimit = 30
	maxHistoryLimit     = 100
	snapshotPageSize    = 500
)

// ProgressStore persists learner progress. UpdateProgress must only succeed when the
// stored row still has expectedVersion and returns repositories.ErrVersionConflict
// otherwise.
type ProgressStore interface {
	GetProgress(userID string) (*model.LearnerProgress, error)
	CreateProgress(progress *model.LearnerProgress) error
	UpdateProgress(progress *model.LearnerProgress, expectedVersion int64) error
	ListProgress(offset, limit int) ([]model.LearnerProgress, error)
	RecordXPEvent(event *model.XPEvent) error
	ListXPEvents(userID string, limit int) ([]model.XPEvent, error)
	DeleteXPEventsBefore(cutoff time.Time) (int64, error)
}

// ProgressCache is a read-through cache of stored progress rows. SetVersioned must not
// replace an entry whose version is equal or newer.
type ProgressCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetVersioned(ctx context.Context, key string, value interface{}, version int64, expiration time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

type ProgressService struct {
	appContext.DefaultService

	store     ProgressStore
	cache     ProgressCache
	handleErr func(error) error

	cacheTTL   time.Duration
	maxRetries int
	now        func() time.Time
}

func (svc ProgressService) Id() string {
	return PROGRESS_SVC
}

// NewProgressService builds a ProgressService outside the service container.
func NewProgressService(store ProgressStore) *ProgressService {
	return &ProgressService{
		store:      store,
		cacheTTL:   defaultCacheTTL,
		maxRetries: defaultMaxRetries,
		now:        time.Now,
	}
}

func (svc *ProgressService) Configure(ctx *appContext.Context) error {
	svc.now = time.Now

	svc.maxRetries = defaultMaxRetries
	if v, err := strconv.Atoi(os.Getenv("PROGRESS_MAX_RETRIES")); err == nil && v > 0 {
		svc.maxRetries = v
	}

	svc.cacheTTL = defaultCacheTTL
	if v, err := time.ParseDuration(os.Getenv("PROGRESS_CACHE_TTL")); err == nil && v > 0 {
		svc.cacheTTL = v
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *ProgressService) Start() error {
	dbSvc := svc.Service(DB_SVC).(*DatabaseService)
	svc.store = repositories.NewProgressRepository(dbSvc.Db())
	svc.handleErr = dbSvc.HandleError

	if redisSvc, ok := svc.Service(REDIS_SVC).(*RedisService); ok && redisSvc != nil {
		svc.cache = redisSvc
		log.WithField("ttl", svc.cacheTTL).Info("Progress cache enabled")
	}
	return nil
}

func (svc *ProgressService) SetClock(now func() time.Time) {
	svc.now = now
}

func (svc *ProgressService) SetCache(cache ProgressCache, ttl time.Duration) {
	svc.cache = cache
	svc.cacheTTL = ttl
}

func (svc *ProgressService) SetMaxRetries(n int) {
	svc.maxRetries = n
}

// GetProgress returns the learner's progress, creating a fresh record on first use.
// timezone is only used to initialise that record.
func (svc *ProgressService) GetProgress(userID, timezone string) (*dto.ProgressResponse, error) {
	p, err := svc.cachedProgress(userID)
	if errors.Is(err, repositories.ErrProgressNotFound) {
		p, err = svc.initProgress(userID, timezone)
	}
	if err != nil {
		return nil, err
	}

	resp := svc.toResponse(p)
	return &resp, nil
}

// AwardXP applies an XP award and persists the result.
func (svc *ProgressService) AwardXP(userID string, req dto.AwardXPRequest) (*dto.AwardXPResponse, error) {
	amount := 0
	if req.XP != nil {
		amount = *req.XP
	}

	var (
		outcome  ledger.Outcome
		fallback bool
	)

	p, err := svc.mutate(userID, req.Timezone, func(p *model.LearnerProgress) error {
		rec, out, usedFallback, err := svc.applyAward(userID, p.Record(), amount, req.Timezone)
		if err != nil {
			return err
		}
		p.SetRecord(rec)
		outcome = out
		fallback = usedFallback
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordAward(amount, outcome)
	svc.recordEvent(p, amount, outcome)

	log.WithFields(log.Fields{
		"user_id":         userID,
		"amount":          amount,
		"today":           outcome.TodayKey,
		"streak":          p.StreakCount,
		"streak_broken":   outcome.StreakBroken,
		"streak_credited": outcome.StreakCredited,
		"made_up":         outcome.MadeUp,
		"treats_earned":   outcome.TreatsEarned,
	}).Debug("XP awarded")

	return &dto.AwardXPResponse{
		Progress:         svc.toResponse(p),
		Outcome:          outcome,
		TimezoneFallback: fallback,
	}, nil
}

// applyAward runs the ledger with the requested zone, falling back to the stored zone
// and then UTC when the requested one cannot be loaded.
func (svc *ProgressService) applyAward(userID string, rec ledger.Record, amount int, timezone string) (ledger.Record, ledger.Outcome, bool, error) {
	if timezone == "" {
		timezone = rec.Timezone
	}

	award := ledger.Award{Amount: amount, At: svc.now(), Timezone: timezone}
	next, out, err := ledger.ApplyXPAward(rec, award)
	if err == nil {
		return next, out, false, nil
	}
	if !errors.Is(err, ledger.ErrInvalidTimezone) {
		return rec, out, false, err
	}

	for _, candidate := range []string{rec.Timezone, ledger.DefaultTimezone} {
		if candidate == "" || candidate == timezone {
			continue
		}
		award.Timezone = candidate
		next, out, err = ledger.ApplyXPAward(rec, award)
		if err == nil {
			log.WithFields(log.Fields{
				"user_id":   userID,
				"requested": timezone,
				"used":      candidate,
			}).Warn("Invalid timezone in XP award, using fallback")
			return next, out, true, nil
		}
	}
	return rec, out, false, shared.NewInternalError(err, "No usable timezone")
}

// RestoreStreak spends a treat to bring back the learner's broken streak.
func (svc *ProgressService) RestoreStreak(userID string) (*dto.ProgressResponse, error) {
	p, err := svc.mutate(userID, "", func(p *model.LearnerProgress) error {
		rec, err := ledger.RestoreStreak(p.Record())
		if err != nil {
			var rejected *ledger.RestoreRejectedError
			if errors.As(err, &rejected) {
				return shared.NewAppError(http.StatusBadRequest, err, "Cannot restore streak", dto.RestoreRejectedData{Reason: rejected.Reason})
			}
			return err
		}
		p.SetRecord(rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordRestoration(RestoreMethodTreat)
	log.WithFields(log.Fields{
		"user_id": userID,
		"streak":  p.StreakCount,
		"treats":  p.Treats,
	}).Info("Streak restored")

	resp := svc.toResponse(p)
	return &resp, nil
}

func (svc *ProgressService) UpdateDailyGoal(userID string, goal int) (*dto.ProgressResponse, error) {
	if goal < 1 {
		return nil, shared.NewBadRequestError(nil, "Daily goal must be positive")
	}

	p, err := svc.mutate(userID, "", func(p *model.LearnerProgress) error {
		p.DailyGoal = goal
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := svc.toResponse(p)
	return &resp, nil
}

func (svc *ProgressService) UpdatePlacement(userID string, req dto.PlacementRequest) (*dto.ProgressResponse, error) {
	p, err := svc.mutate(userID, "", func(p *model.LearnerProgress) error {
		completedAt := svc.now().UTC()
		p.PlacementLevel = req.Level
		p.PlacementScore = req.Score
		p.PlacementCompletedAt = &completedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := svc.toResponse(p)
	return &resp, nil
}

func (svc *ProgressService) GetXPHistory(userID string, limit int) (*dto.XPHistoryResponse, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	events, err := svc.store.ListXPEvents(userID, limit)
	if err != nil {
		return nil, svc.storageError(err, "Failed to load XP history")
	}

	resp := &dto.XPHistoryResponse{Events: make([]dto.XPEventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, dto.NewXPEventResponse(e))
	}
	return resp, nil
}

// PruneXPEvents deletes XP events recorded before cutoff.
func (svc *ProgressService) PruneXPEvents(cutoff time.Time) (int64, error) {
	deleted, err := svc.store.DeleteXPEventsBefore(cutoff)
	if err != nil {
		return 0, svc.storageError(err, "Failed to prune XP events")
	}
	return deleted, nil
}

// WriteSnapshot writes every stored progress row to w as JSON lines.
func (svc *ProgressService) WriteSnapshot(w io.Writer) (int, error) {
	bw := bufio.NewWriter(w)
	written := 0

	for offset := 0; ; offset += snapshotPageSize {
		rows, err := svc.store.ListProgress(offset, snapshotPageSize)
		if err != nil {
			return written, svc.storageError(err, "Failed to read progress for snapshot")
		}

		for i := range rows {
			line, err := shared.JSONMarshal(&rows[i])
			if err != nil {
				return written, fmt.Errorf("marshal progress %s: %w", rows[i].UserID, err)
			}
			if _, err := bw.Write(append(line, '\n')); err != nil {
				return written, err
			}
			written++
		}

		if len(rows) < snapshotPageSize {
			break
		}
	}

	return written, bw.Flush()
}

// mutate reads the learner's row, lets apply change it and writes it back if nobody
// else wrote in between. Conflicting writes are retried on a fresh read.
func (svc *ProgressService) mutate(userID, timezone string, apply func(p *model.LearnerProgress) error) (*model.LearnerProgress, error) {
	for attempt := 1; attempt <= svc.maxRetries; attempt++ {
		p, err := svc.loadProgress(userID, timezone)
		if err != nil {
			return nil, err
		}

		version := p.Version
		if err := apply(p); err != nil {
			return nil, err
		}

		err = svc.store.UpdateProgress(p, version)
		if err == nil {
			svc.writeThrough(p)
			return p, nil
		}
		if !errors.Is(err, repositories.ErrVersionConflict) {
			return nil, svc.storageError(err, "Progress not saved")
		}

		recordUpdateConflict()
		log.WithFields(log.Fields{
			"user_id": userID,
			"attempt": attempt,
		}).Debug("Progress update conflict, retrying")
	}

	log.WithField("user_id", userID).Warn("Progress update gave up after repeated conflicts")
	return nil, shared.NewConflictError(repositories.ErrVersionConflict, "Progress was updated concurrently, please retry")
}

func (svc *ProgressService) loadProgress(userID, timezone string) (*model.LearnerProgress, error) {
	p, err := svc.store.GetProgress(userID)
	if errors.Is(err, repositories.ErrProgressNotFound) {
		return svc.initProgress(userID, timezone)
	}
	if err != nil {
		return nil, svc.storageError(err, "Failed to load progress")
	}
	return p, nil
}

func (svc *ProgressService) initProgress(userID, timezone string) (*model.LearnerProgress, error) {
	_, zone := ledger.ResolveZone(timezone)

	p := &model.LearnerProgress{UserID: userID}
	p.SetRecord(ledger.NewRecord(zone))

	err := svc.store.CreateProgress(p)
	if errors.Is(err, repositories.ErrProgressExists) {
		p, err = svc.store.GetProgress(userID)
	}
	if err != nil {
		return nil, svc.storageError(err, "Failed to initialise progress")
	}

	log.WithFields(log.Fields{
		"user_id":  userID,
		"timezone": zone,
	}).Info("Initialised learner progress")
	return p, nil
}

func (svc *ProgressService) cachedProgress(userID string) (*model.LearnerProgress, error) {
	ctx := context.Background()
	key := progressCacheKey(userID)

	if svc.cache != nil {
		var cached model.LearnerProgress
		found, err := svc.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			log.WithError(err).WithField("key", key).Warn("Progress cache read failed")
		} else if found {
			return &cached, nil
		}
	}

	p, err := svc.store.GetProgress(userID)
	if errors.Is(err, repositories.ErrProgressNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, svc.storageError(err, "Failed to load progress")
	}

	if svc.cache != nil {
		if _, err := svc.cache.SetVersioned(ctx, key, p, p.Version, svc.cacheTTL); err != nil {
			log.WithError(err).WithField("key", key).Warn("Progress cache write failed")
		}
	}
	return p, nil
}

// writeThrough caches a freshly committed row. A reader that loaded an older version
// can no longer put it back over this one. If the write fails the entry is dropped.
func (svc *ProgressService) writeThrough(p *model.LearnerProgress) {
	if svc.cache == nil {
		return
	}
	ctx := context.Background()
	key := progressCacheKey(p.UserID)

	if _, err := svc.cache.SetVersioned(ctx, key, p, p.Version, svc.cacheTTL); err != nil {
		log.WithError(err).WithField("user_id", p.UserID).Warn("Progress cache write failed, dropping entry")
		if err := svc.cache.Delete(ctx, key); err != nil {
			log.WithError(err).WithField("user_id", p.UserID).Warn("Progress cache invalidation failed")
		}
	}
}

func (svc *ProgressService) recordEvent(p *model.LearnerProgress, amount int, out ledger.Outcome) {
	if amount < 0 {
		amount = 0
	}
	event := &model.XPEvent{
		UserID:       p.UserID,
		Amount:       amount,
		DayKey:       out.TodayKey,
		Timezone:     p.Timezone,
		TotalXPAfter: p.TotalXP,
		StreakAfter:  p.StreakCount,
		TreatsEarned: out.TreatsEarned,
		CreatedAt:    svc.now().UTC(),
	}
	if err := svc.store.RecordXPEvent(event); err != nil {
		log.WithError(err).WithField("user_id", p.UserID).Error("Failed to record XP event")
	}
}

func (svc *ProgressService) storageError(err error, message string) error {
	if svc.handleErr != nil {
		err = svc.handleErr(err)
	} else {
		log.WithError(err).Error(message)
	}
	return shared.NewInternalError(err, message)
}

func (svc *ProgressService) toResponse(p *model.LearnerProgress) dto.ProgressResponse {
	rec := p.Record()

	loc, _ := ledger.ResolveZone(rec.Timezone)
	todayKey := svc.now().In(loc).Format(ledger.DayKeyLayout)

	return dto.ProgressResponse{
		UserID:           p.UserID,
		TotalXP:          rec.TotalXP,
		DailyXP:          rec.DailyXP,
		DailyGoal:        rec.DailyGoal,
		StreakCount:      rec.StreakCount,
		StreakBackup:     rec.StreakBackup,
		StreakBrokenDate: p.StreakBrokenDate,
		LastActiveDate:   p.LastActiveDate,
		LastStreakDate:   p.LastStreakDate,
		Timezone:         rec.Timezone,
		Treats:           rec.Treats,

		TodayKey:         todayKey,
		GoalMetToday:     rec.LastActiveDate == todayKey && rec.GoalMet(),
		StreakRestorable: rec.Restorable(),
		XPToNextTreat:    rec.XPToNextTreat(),

		PlacementLevel:       p.PlacementLevel,
		PlacementScore:       p.PlacementScore,
		PlacementCompletedAt: p.PlacementCompletedAt,

		UpdatedAt: p.UpdatedAt,
	}
}

func progressCacheKey(userID string) string {
	return "progress:" + userID
}
