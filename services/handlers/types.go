package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/lingo_api/dto"
)

type ProgressServiceInterface interface {
	GetProgress(userID, timezone string) (*dto.ProgressResponse, error)
	AwardXP(userID string, req dto.AwardXPRequest) (*dto.AwardXPResponse, error)
	RestoreStreak(userID string) (*dto.ProgressResponse, error)
	UpdateDailyGoal(userID string, goal int) (*dto.ProgressResponse, error)
	UpdatePlacement(userID string, req dto.PlacementRequest) (*dto.ProgressResponse, error)
	GetXPHistory(userID string, limit int) (*dto.XPHistoryResponse, error)
}

type AuthServiceInterface interface {
	RequiredAuth() fiber.Handler
}

type RateLimitServiceInterface interface {
	UserBasedRateLimit(endpointType string) fiber.Handler
}
