package services

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
)

const SCHEDULER_SVC = "scheduler_svc"

const (
	defaultEventRetentionDays = 90
	defaultSnapshotAt         = "03:00"
)

// SnapshotUploader stores a finished snapshot.
type SnapshotUploader interface {
	UploadFile(objectName string, reader io.Reader, objectSize int64, contentType string) error
}

// SchedulerService runs daily housekeeping. It never touches streak state: breaks are
// only ever detected when the learner's next award arrives.
type SchedulerService struct {
	appContext.DefaultService

	scheduler   *gocron.Scheduler
	progressSvc *ProgressService
	uploader    SnapshotUploader

	retention  time.Duration
	snapshotAt string
	now        func() time.Time
}

func (svc SchedulerService) Id() string {
	return SCHEDULER_SVC
}

func (svc *SchedulerService) Configure(ctx *appContext.Context) error {
	days := defaultEventRetentionDays
	if v, err := strconv.Atoi(os.Getenv("XP_EVENT_RETENTION_DAYS")); err == nil && v > 0 {
		days = v
	}
	svc.retention = time.Duration(days) * 24 * time.Hour

	svc.snapshotAt = os.Getenv("SNAPSHOT_AT")
	if svc.snapshotAt == "" {
		svc.snapshotAt = defaultSnapshotAt
	}
	svc.now = time.Now

	return svc.DefaultService.Configure(ctx)
}

func (svc *SchedulerService) Start() error {
	svc.progressSvc = svc.Service(PROGRESS_SVC).(*ProgressService)
	if minioSvc, ok := svc.Service(MINIO_SVC).(*MinIOService); ok && minioSvc != nil {
		svc.uploader = minioUploader{minioSvc}
	}

	svc.scheduler = gocron.NewScheduler(time.UTC)

	if _, err := svc.scheduler.Every(1).Day().At(svc.snapshotAt).Do(svc.runHousekeeping); err != nil {
		return fmt.Errorf("schedule housekeeping: %w", err)
	}

	svc.scheduler.StartAsync()
	log.WithFields(log.Fields{
		"at":        svc.snapshotAt,
		"retention": svc.retention,
		"snapshots": svc.uploader != nil,
	}).Info("Scheduler started")
	return nil
}

func (svc *SchedulerService) Shutdown() {
	if svc.scheduler != nil {
		svc.scheduler.Stop()
	}
}

// NewSchedulerService builds a SchedulerService outside the service container.
func NewSchedulerService(progressSvc *ProgressService, uploader SnapshotUploader, retention time.Duration, now func() time.Time) *SchedulerService {
	return &SchedulerService{
		progressSvc: progressSvc,
		uploader:    uploader,
		retention:   retention,
		snapshotAt:  defaultSnapshotAt,
		now:         now,
	}
}

func (svc *SchedulerService) runHousekeeping() {
	if _, err := svc.PruneEvents(); err != nil {
		log.WithError(err).Error("XP event cleanup failed")
	}
	if svc.uploader != nil {
		if _, err := svc.ExportSnapshot(); err != nil {
			log.WithError(err).Error("Progress snapshot failed")
		}
	}
}

// PruneEvents deletes XP events older than the retention window.
func (svc *SchedulerService) PruneEvents() (int64, error) {
	cutoff := svc.now().UTC().Add(-svc.retention)
	deleted, err := svc.progressSvc.PruneXPEvents(cutoff)
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"cutoff":  cutoff.Format(time.RFC3339),
		"deleted": deleted,
	}).Info("Pruned XP events")
	return deleted, nil
}

// ExportSnapshot uploads every progress row as JSON lines and returns the object name.
func (svc *SchedulerService) ExportSnapshot() (string, error) {
	if svc.uploader == nil {
		return "", fmt.Errorf("snapshot storage is not configured")
	}

	var buf bytes.Buffer
	rows, err := svc.progressSvc.WriteSnapshot(&buf)
	if err != nil {
		return "", err
	}

	objectName := snapshotObjectName(svc.now())
	if err := svc.uploader.UploadFile(objectName, &buf, int64(buf.Len()), "application/x-ndjson"); err != nil {
		return "", err
	}

	log.WithFields(log.Fields{
		"object": objectName,
		"rows":   rows,
	}).Info("Progress snapshot uploaded")
	return objectName, nil
}

func snapshotObjectName(at time.Time) string {
	return fmt.Sprintf("snapshots/progress/%s.jsonl", at.UTC().Format("2006-01-02"))
}

type minioUploader struct {
	svc *MinIOService
}

func (u minioUploader) UploadFile(objectName string, reader io.Reader, objectSize int64, contentType string) error {
	_, err := u.svc.UploadFile(objectName, reader, objectSize, contentType)
	return err
}
