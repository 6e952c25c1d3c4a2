package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/lingo_api/dto"
	"github.com/lac-hong-legacy/lingo_api/shared"
)

type ProgressHandler struct {
	progressSvc  ProgressServiceInterface
	authSvc      AuthServiceInterface
	rateLimitSvc RateLimitServiceInterface
}

func NewProgressHandler(progressSvc ProgressServiceInterface, authSvc AuthServiceInterface, rateLimitSvc RateLimitServiceInterface) *ProgressHandler {
	return &ProgressHandler{
		progressSvc:  progressSvc,
		authSvc:      authSvc,
		rateLimitSvc: rateLimitSvc,
	}
}

func (h *ProgressHandler) RegisterRoutes(v1 fiber.Router) {
	progress := v1.Group("/progress", h.authSvc.RequiredAuth())

	progress.Get("/", h.GetProgress)
	progress.Post("/", h.rateLimitSvc.UserBasedRateLimit(shared.EndpointXPAward), h.AwardXP)
	progress.Post("/restore", h.RestoreStreak)
	progress.Put("/goal", h.UpdateDailyGoal)
	progress.Put("/placement", h.UpdatePlacement)
	progress.Get("/history", h.GetXPHistory)
}

// @Summary Get progress
// @Description Get the learner's XP and streak state, initialising it on first use
// @Tags progress
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param timezone query string false "IANA zone used when the record is created"
// @Success 200 {object} shared.Response{data=dto.ProgressResponse}
// @Router /api/v1/progress [get]
func (h *ProgressHandler) GetProgress(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	progress, err := h.progressSvc.GetProgress(userID, c.Query("timezone"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", progress)
}

// @Summary Award XP
// @Description Add XP, rolling the day over and crediting or breaking the streak as needed
// @Tags progress
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param awardRequest body dto.AwardXPRequest true "XP award"
// @Success 200 {object} shared.Response{data=dto.AwardXPResponse}
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 409 {object} shared.Response
// @Failure 429 {object} shared.Response{data=dto.RateLimitInfo}
// @Router /api/v1/progress [post]
func (h *ProgressHandler) AwardXP(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.AwardXPRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	result, err := h.progressSvc.AwardXP(userID, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", result)
}

// @Summary Restore streak
// @Description Spend one treat to bring back a broken streak
// @Tags progress
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.ProgressResponse}
// @Failure 400 {object} shared.Response{data=dto.RestoreRejectedData}
// @Router /api/v1/progress/restore [post]
func (h *ProgressHandler) RestoreStreak(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	progress, err := h.progressSvc.RestoreStreak(userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", progress)
}

// @Summary Update daily goal
// @Tags progress
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param goalRequest body dto.UpdateDailyGoalRequest true "Daily goal"
// @Success 200 {object} shared.Response{data=dto.ProgressResponse}
// @Router /api/v1/progress/goal [put]
func (h *ProgressHandler) UpdateDailyGoal(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.UpdateDailyGoalRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	progress, err := h.progressSvc.UpdateDailyGoal(userID, req.DailyGoal)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", progress)
}

// @Summary Record placement
// @Description Store the result of the placement test beside the learner's progress
// @Tags progress
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param placementRequest body dto.PlacementRequest true "Placement result"
// @Success 200 {object} shared.Response{data=dto.ProgressResponse}
// @Router /api/v1/progress/placement [put]
func (h *ProgressHandler) UpdatePlacement(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.PlacementRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	progress, err := h.progressSvc.UpdatePlacement(userID, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", progress)
}

// @Summary XP history
// @Tags progress
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param limit query int false "Number of events (1-100)" default(30)
// @Success 200 {object} shared.Response{data=dto.XPHistoryResponse}
// @Router /api/v1/progress/history [get]
func (h *ProgressHandler) GetXPHistory(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	limit := 30
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			return shared.NewBadRequestError(err, "limit must be between 1 and 100")
		}
		limit = parsed
	}

	history, err := h.progressSvc.GetXPHistory(userID, limit)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", history)
}
