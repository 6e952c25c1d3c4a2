package main

import (
	"os"
	"strings"

	_ "time/tzdata"

	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/lac-hong-legacy/lingo_api/services"
	"github.com/rs/zerolog/log"
	"github.com/sirupsen/logrus"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Warn().Err(err).Msg("No .env file loaded, using process environment")
	}

	configureLogging(os.Getenv("LOG_LEVEL"))

	svcs := []context.Service{
		&services.DatabaseService{},
	}

	if os.Getenv("REDIS_ADDR") != "" {
		svcs = append(svcs, &services.RedisService{})
	}
	if os.Getenv("MINIO_ENDPOINT") != "" {
		svcs = append(svcs, &services.MinIOService{})
	}

	svcs = append(svcs,
		&services.JWTService{},
		&services.AuthMiddleware{},
		&services.RateLimitService{},
		&services.ProgressService{},
		&services.MonitoringService{},
		&services.SchedulerService{},

		&services.HttpService{},
	)

	ctx, err := context.NewCtx(svcs...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build service context")
		return
	}

	err = ctx.Run()
	if err != nil {
		log.Fatal().Err(err).Msg("Service context stopped")
		return
	}
}

func configureLogging(level string) {
	if level == "" {
		return
	}
	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.Warn().Str("level", level).Msg("Unknown LOG_LEVEL")
		return
	}
	logrus.SetLevel(parsed)
}
