package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/preptrack/core/internal/application/services"
	"github.com/preptrack/core/internal/infrastructure/logger"
)

// ProgressHandler serves derived statistics and analytics
type ProgressHandler struct {
	progressService *services.ProgressService
	logger          *logger.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService *services.ProgressService, logger *logger.Logger) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		logger:          logger,
	}
}

// GetProgress godoc
// @Summary Get overall progress
// @Description Aggregate completion, status and difficulty breakdowns, and study time
// @Tags progress
// @Produce json
// @Success 200 {object} entities.Progress
// @Router /progress [get]
func (h *ProgressHandler) GetProgress(c echo.Context) error {
	progress, err := h.progressService.Overview(c.Request().Context())
	if err != nil {
		h.logger.Error("Get progress failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to compute progress")
	}

	return c.JSON(http.StatusOK, progress)
}

// GetTopicStats godoc
// @Summary Get per-topic completion statistics
// @Tags progress
// @Produce json
// @Success 200 {array} entities.TopicProgress
// @Router /progress/topics [get]
func (h *ProgressHandler) GetTopicStats(c echo.Context) error {
	stats, err := h.progressService.TopicStats(c.Request().Context())
	if err != nil {
		h.logger.Error("Get topic stats failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to compute topic stats")
	}

	return c.JSON(http.StatusOK, stats)
}

// GetDifficultyStats godoc
// @Summary Get per-difficulty completion statistics
// @Tags progress
// @Produce json
// @Success 200 {array} entities.DifficultyProgress
// @Router /progress/difficulty [get]
func (h *ProgressHandler) GetDifficultyStats(c echo.Context) error {
	stats, err := h.progressService.DifficultyStats(c.Request().Context())
	if err != nil {
		h.logger.Error("Get difficulty stats failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to compute difficulty stats")
	}

	return c.JSON(http.StatusOK, stats)
}

// GetWeeklyProgress godoc
// @Summary Get weekly activity
// @Description Problems completed and worked per week over the last N weeks
// @Tags analytics
// @Produce json
// @Param weeks query int false "Number of weeks (default 4)"
// @Success 200 {object} ports.WeeklyProgress
// @Router /analytics/weekly [get]
func (h *ProgressHandler) GetWeeklyProgress(c echo.Context) error {
	weeks := 4
	if weeksStr := c.QueryParam("weeks"); weeksStr != "" {
		n, err := strconv.Atoi(weeksStr)
		if err != nil || n < 1 || n > 52 {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid weeks parameter")
		}
		weeks = n
	}

	progress, err := h.progressService.WeeklyProgress(c.Request().Context(), weeks)
	if err != nil {
		h.logger.Error("Get weekly progress failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to compute weekly progress")
	}

	return c.JSON(http.StatusOK, progress)
}

// GetTimeDistribution godoc
// @Summary Get study time by topic
// @Tags analytics
// @Produce json
// @Success 200 {array} ports.TimeDistributionEntry
// @Router /analytics/time-distribution [get]
func (h *ProgressHandler) GetTimeDistribution(c echo.Context) error {
	entries, err := h.progressService.TimeDistribution(c.Request().Context())
	if err != nil {
		h.logger.Error("Get time distribution failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to compute time distribution")
	}

	return c.JSON(http.StatusOK, entries)
}

// GetAttemptsDistribution godoc
// @Summary Get problems bucketed by attempt count
// @Tags analytics
// @Produce json
// @Success 200 {object} ports.AttemptsDistribution
// @Router /analytics/attempts [get]
func (h *ProgressHandler) GetAttemptsDistribution(c echo.Context) error {
	dist, err := h.progressService.AttemptsDistribution(c.Request().Context())
	if err != nil {
		h.logger.Error("Get attempts distribution failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to compute attempts distribution")
	}

	return c.JSON(http.StatusOK, dist)
}

// GetProductivityInsights godoc
// @Summary Get session productivity insights
// @Tags analytics
// @Produce json
// @Success 200 {object} ports.ProductivityInsights
// @Router /analytics/productivity [get]
func (h *ProgressHandler) GetProductivityInsights(c echo.Context) error {
	insights, err := h.progressService.ProductivityInsights(c.Request().Context())
	if err != nil {
		h.logger.Error("Get productivity insights failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to compute productivity insights")
	}

	return c.JSON(http.StatusOK, insights)
}

// GetRecommendations godoc
// @Summary Get study recommendations
// @Tags analytics
// @Produce json
// @Success 200 {array} string
// @Router /analytics/recommendations [get]
func (h *ProgressHandler) GetRecommendations(c echo.Context) error {
	recs, err := h.progressService.Recommendations(c.Request().Context())
	if err != nil {
		h.logger.Error("Get recommendations failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to compute recommendations")
	}

	return c.JSON(http.StatusOK, recs)
}

// GetRotationStats godoc
// @Summary Get rotation review statistics
// @Tags rotation
// @Produce json
// @Success 200 {object} entities.RotationStats
// @Router /rotation/stats [get]
func (h *ProgressHandler) GetRotationStats(c echo.Context) error {
	stats, err := h.progressService.RotationStats(c.Request().Context())
	if err != nil {
		h.logger.Error("Get rotation stats failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to compute rotation stats")
	}

	return c.JSON(http.StatusOK, stats)
}
