package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/lac-hong-legacy/lingo_api/model"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DatabaseService struct {
	context.DefaultService
	db *gorm.DB

	driver   string
	database string
}

const DB_SVC = "db_svc"

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

func (ds DatabaseService) Id() string {
	return DB_SVC
}

func (ds DatabaseService) Db() *gorm.DB {
	return ds.db
}

func (ds *DatabaseService) Configure(ctx *context.Context) error {
	ds.driver = strings.ToLower(os.Getenv("DB_DRIVER"))
	if ds.driver == "" {
		ds.driver = DriverSqlite
	}

	switch ds.driver {
	case DriverSqlite:
		ds.database = os.Getenv("DB_DATABASE")
		if ds.database == "" {
			ds.database = "lingo.db"
		}
	case DriverPostgres:
		ds.database = postgresDSN()
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", ds.driver)
	}

	return ds.DefaultService.Configure(ctx)
}

func postgresDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	dbname := getEnv("DB_NAME", "lingo_api")
	sslmode := getEnv("DB_SSLMODE", "disable")
	timezone := getEnv("DB_TIMEZONE", "UTC")

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		host, user, password, dbname, port, sslmode, timezone)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (ds *DatabaseService) Start() (err error) {
	config := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true,
	}

	if ds.driver == DriverPostgres {
		err = ds.connectPostgres(config)
	} else {
		ds.db, err = gorm.Open(sqlite.Open(ds.database), config)
	}
	if err != nil {
		return err
	}

	err = ds.db.AutoMigrate(&model.LearnerProgress{}, &model.XPEvent{})
	if err != nil {
		log.Printf("Failed to migrate database: %v", err)
		return err
	}

	log.WithField("driver", ds.driver).Info("Database connected and migrated successfully")
	return nil
}

func (ds *DatabaseService) connectPostgres(config *gorm.Config) (err error) {
	maxRetries := 10
	retryDelay := time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		log.Printf("Attempting to connect to database (attempt %d/%d)...", attempt, maxRetries)

		ds.db, err = gorm.Open(postgres.Open(ds.database), config)
		if err == nil {
			sqlDB, dbErr := ds.db.DB()
			if dbErr == nil {
				pingErr := sqlDB.Ping()
				if pingErr == nil {
					log.Println("Successfully connected to database")
					return nil
				}
				err = pingErr
			} else {
				err = dbErr
			}
		}

		if attempt == maxRetries {
			log.Printf("Failed to connect to database after %d attempts: %v", maxRetries, err)
			return err
		}

		log.Printf("Database connection failed: %v. Retrying in %v...", err, retryDelay)
		time.Sleep(retryDelay)

		retryDelay *= 2
		if retryDelay > 10*time.Second {
			retryDelay = 10 * time.Second
		}
	}
	return err
}

func (ds *DatabaseService) Shutdown() {
	if ds.db == nil {
		return
	}
	sqlDB, err := ds.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

// HandleError classifies a storage error, logs it and wraps it with its type.
func (ds *DatabaseService) HandleError(err error) error {
	if err == nil {
		return nil
	}

	var statusCode int
	var errorType string

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		statusCode = http.StatusNotFound
		errorType = "NOT_FOUND"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		statusCode = http.StatusConflict
		errorType = "CONFLICT"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		statusCode = http.StatusBadRequest
		errorType = "FOREIGN_KEY_VIOLATION"
	case errors.Is(err, gorm.ErrInvalidTransaction):
		statusCode = http.StatusInternalServerError
		errorType = "TRANSACTION_ERROR"
	default:
		msg := err.Error()
		switch {
		case strings.Contains(msg, "duplicate key value violates unique constraint"),
			strings.Contains(msg, "UNIQUE constraint failed"):
			statusCode = http.StatusConflict
			errorType = "UNIQUE_CONSTRAINT"
		case strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"),
			strings.Contains(msg, "no such table"):
			statusCode = http.StatusInternalServerError
			errorType = "SCHEMA_ERROR"
		case strings.Contains(msg, "connection refused"), strings.Contains(msg, "database is locked"):
			statusCode = http.StatusServiceUnavailable
			errorType = "DATABASE_CONNECTION_ERROR"
		default:
			statusCode = http.StatusInternalServerError
			errorType = "INTERNAL_ERROR"
		}
	}

	logEntry := log.WithFields(log.Fields{
		"status_code": statusCode,
		"error_type":  errorType,
		"error":       err.Error(),
	})

	if statusCode >= 500 {
		logEntry.Error("Database error occurred")
	} else {
		logEntry.Warn("Database operation failed")
	}

	return fmt.Errorf("%s: %w", errorType, err)
}
