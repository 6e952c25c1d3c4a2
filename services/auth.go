package services

import (
	"os"
	"strings"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/lingo_api/shared"
	log "github.com/sirupsen/logrus"
)

type AuthMiddleware struct {
	context.DefaultService

	jwtSvc   *JWTService
	disabled bool
}

const AUTH_MIDDLEWARE_SVC = "auth"

func (svc AuthMiddleware) Id() string {
	return AUTH_MIDDLEWARE_SVC
}

func (svc *AuthMiddleware) Configure(ctx *context.Context) error {
	svc.disabled = strings.EqualFold(os.Getenv("AUTH_DISABLED"), "true")
	return svc.DefaultService.Configure(ctx)
}

func (svc *AuthMiddleware) Start() error {
	svc.jwtSvc = svc.Service(JWT_SVC).(*JWTService)
	if svc.disabled {
		log.Warn("Authentication disabled, learners are identified by the X-Learner-ID header")
	}
	return nil
}

// NewAuthMiddleware builds an AuthMiddleware outside the service container.
func NewAuthMiddleware(jwtSvc *JWTService, disabled bool) *AuthMiddleware {
	return &AuthMiddleware{jwtSvc: jwtSvc, disabled: disabled}
}

// RequiredAuth resolves the learner for the request and stores it under shared.UserID.
func (svc *AuthMiddleware) RequiredAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if svc.disabled {
			learnerID := strings.TrimSpace(c.Get(shared.LearnerIDHeader))
			if learnerID == "" {
				learnerID = shared.LocalLearnerID
			}
			c.Locals(shared.UserID, learnerID)
			return c.Next()
		}

		token, err := svc.jwtSvc.ExtractTokenFromHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return shared.NewUnauthorizedError(err, "Unauthorized")
		}

		userID, err := svc.jwtSvc.VerifyJWTToken(token)
		if err != nil {
			log.WithError(err).Debug("Rejected JWT")
			return shared.NewUnauthorizedError(err, "Invalid JWT token")
		}

		c.Locals(shared.UserID, userID)
		return c.Next()
	}
}
