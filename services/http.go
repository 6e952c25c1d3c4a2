package services

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/lac-hong-legacy/lingo_api/services/handlers"
	"github.com/lac-hong-legacy/lingo_api/shared"
	log "github.com/sirupsen/logrus"
)

type HttpService struct {
	context.DefaultService

	authSvc       *AuthMiddleware
	progressSvc   *ProgressService
	rateLimitSvc  *RateLimitService
	monitoringSvc *MonitoringService

	port int
	app  *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.authSvc = svc.Service(AUTH_MIDDLEWARE_SVC).(*AuthMiddleware)
	svc.progressSvc = svc.Service(PROGRESS_SVC).(*ProgressService)
	svc.rateLimitSvc = svc.Service(RATE_LIMIT_SVC).(*RateLimitService)
	if monitoringSvc, ok := svc.Service(MONITORING_SVC).(*MonitoringService); ok {
		svc.monitoringSvc = monitoringSvc
	}

	svc.app = NewApp(svc.progressSvc, svc.authSvc, svc.rateLimitSvc, svc.monitoringSvc)

	log.WithField("port", svc.port).Info("HTTP server listening")
	return svc.app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	if svc.app != nil {
		_ = svc.app.Shutdown()
	}
}

// NewApp builds the fiber application with every route mounted. monitoringSvc may be nil.
func NewApp(progressSvc handlers.ProgressServiceInterface, authSvc handlers.AuthServiceInterface, rateLimitSvc handlers.RateLimitServiceInterface, monitoringSvc *MonitoringService) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               SERVICE_NAME,
		JSONEncoder:           shared.JSONMarshal,
		JSONDecoder:           shared.JSONUnmarshal,
		ErrorHandler:          HandleError,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + shared.LearnerIDHeader,
	}))
	if os.Getenv("LOG_LEVEL") == "TRACE" {
		app.Use(logger.New())
	}
	if monitoringSvc != nil {
		app.Use(MonitoringMiddleware(monitoringSvc))
	}

	app.Get("/ping", ping)

	v1 := app.Group("/api/v1")
	v1.Get("/ping", ping)

	handlers.NewProgressHandler(progressSvc, authSvc, rateLimitSvc).RegisterRoutes(v1)

	app.Use(func(c *fiber.Ctx) error {
		return shared.NewNotFoundError(errors.New("page not found"), "Not Found")
	})

	return app
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func ping(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "max-age=10")

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", "pong")
}

// HandleError renders errors returned by handlers and middleware.
func HandleError(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		if appErr.StatusCode >= fiber.StatusInternalServerError {
			log.WithError(err).WithField("path", c.Path()).Error("Request failed")
		}
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	log.WithError(err).WithField("path", c.Path()).Error("Unhandled error")
	return shared.ResponseInternalError(c)
}
