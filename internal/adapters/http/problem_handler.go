package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/preptrack/core/internal/application/services"
	"github.com/preptrack/core/internal/domain/entities"
	"github.com/preptrack/core/internal/infrastructure/logger"
	"github.com/preptrack/core/internal/ports"
)

// ProblemHandler handles problem-related requests
type ProblemHandler struct {
	problemService *services.ProblemService
	logger         *logger.Logger
}

// NewProblemHandler creates a new problem handler
func NewProblemHandler(problemService *services.ProblemService, logger *logger.Logger) *ProblemHandler {
	return &ProblemHandler{
		problemService: problemService,
		logger:         logger,
	}
}

// CreateProblem godoc
// @Summary Create a new problem
// @Description Create a new problem under an existing topic
// @Tags problems
// @Accept json
// @Produce json
// @Param request body ports.CreateProblemRequest true "Problem data"
// @Success 201 {object} entities.Problem
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Router /problems [post]
func (h *ProblemHandler) CreateProblem(c echo.Context) error {
	var req ports.CreateProblemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	problem, err := h.problemService.CreateProblem(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("Create problem failed", "error", err, "title", req.Title)
		return err
	}

	return c.JSON(http.StatusCreated, problem)
}

// GetProblem godoc
// @Summary Get problem by ID
// @Tags problems
// @Produce json
// @Param id path string true "Problem ID"
// @Success 200 {object} entities.Problem
// @Failure 404 {object} ports.ErrorResponse
// @Router /problems/{id} [get]
func (h *ProblemHandler) GetProblem(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	problem, err := h.problemService.GetProblem(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, problem)
}

// UpdateProblem godoc
// @Summary Update a problem
// @Tags problems
// @Accept json
// @Produce json
// @Param id path string true "Problem ID"
// @Param request body ports.UpdateProblemRequest true "Fields to update"
// @Success 200 {object} entities.Problem
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Router /problems/{id} [put]
func (h *ProblemHandler) UpdateProblem(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req ports.UpdateProblemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	problem, err := h.problemService.UpdateProblem(c.Request().Context(), id, req)
	if err != nil {
		h.logger.Error("Update problem failed", "error", err, "problem_id", id)
		return err
	}

	return c.JSON(http.StatusOK, problem)
}

// DeleteProblem godoc
// @Summary Delete a problem
// @Description Delete a problem and remove it from every session's worked list
// @Tags problems
// @Produce json
// @Param id path string true "Problem ID"
// @Success 200 {object} ports.MessageResponse
// @Failure 404 {object} ports.ErrorResponse
// @Router /problems/{id} [delete]
func (h *ProblemHandler) DeleteProblem(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	if err := h.problemService.DeleteProblem(c.Request().Context(), id); err != nil {
		h.logger.Error("Delete problem failed", "error", err, "problem_id", id)
		return err
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Problem deleted successfully"})
}

// ListProblems godoc
// @Summary List problems
// @Description List problems with filtering by topic, status, difficulty and search
// @Tags problems
// @Produce json
// @Param topic_id query string false "Filter by topic"
// @Param status query string false "Filter by status"
// @Param difficulty query string false "Filter by difficulty"
// @Param search query string false "Search in title and description"
// @Success 200 {object} ports.PaginatedResponse[entities.Problem]
// @Router /problems [get]
func (h *ProblemHandler) ListProblems(c echo.Context) error {
	filter := ports.ProblemFilter{
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: c.QueryParam("sort_order"),
	}

	if topicIDStr := c.QueryParam("topic_id"); topicIDStr != "" {
		topicID, err := parseUUID(topicIDStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid topic_id parameter")
		}
		filter.TopicID = &topicID
	}

	if statusStr := c.QueryParam("status"); statusStr != "" {
		status := entities.Status(statusStr)
		if !status.IsValid() {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid status parameter")
		}
		filter.Status = &status
	}

	if difficultyStr := c.QueryParam("difficulty"); difficultyStr != "" {
		difficulty := entities.Difficulty(difficultyStr)
		if !difficulty.IsValid() {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid difficulty parameter")
		}
		filter.Difficulty = &difficulty
	}

	if search := c.QueryParam("search"); search != "" {
		filter.Search = &search
	}

	limit, offset, err := parseLimitOffset(c, 20)
	if err != nil {
		return err
	}
	filter.Limit = limit
	filter.Offset = offset

	problems, total, err := h.problemService.ListProblems(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("List problems failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve problems")
	}

	response := ports.PaginatedResponse[*entities.Problem]{
		Data:   problems,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	return c.JSON(http.StatusOK, response)
}

// SetStatus godoc
// @Summary Change a problem's status
// @Description Set the problem's status. Completing stamps the completion time.
// @Tags problems
// @Accept json
// @Produce json
// @Param id path string true "Problem ID"
// @Param request body ports.SetStatusRequest true "New status"
// @Success 200 {object} entities.Problem
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Router /problems/{id}/status [put]
func (h *ProblemHandler) SetStatus(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req ports.SetStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	problem, err := h.problemService.SetProblemStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		h.logger.Error("Set problem status failed", "error", err, "problem_id", id)
		return err
	}

	return c.JSON(http.StatusOK, problem)
}

// AddNote godoc
// @Summary Add a note to a problem
// @Description Append a timestamped note to the problem
// @Tags problems
// @Accept json
// @Produce json
// @Param id path string true "Problem ID"
// @Param request body ports.AddNoteRequest true "Note text"
// @Success 200 {object} entities.Problem
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Router /problems/{id}/notes [post]
func (h *ProblemHandler) AddNote(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req ports.AddNoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	problem, err := h.problemService.AddProblemNote(c.Request().Context(), id, req.Note)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, problem)
}

// AddTime godoc
// @Summary Add time to a problem
// @Description Add study minutes to the problem's accumulated time
// @Tags problems
// @Accept json
// @Produce json
// @Param id path string true "Problem ID"
// @Param request body ports.AddTimeRequest true "Minutes to add"
// @Success 200 {object} entities.Problem
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Router /problems/{id}/time [post]
func (h *ProblemHandler) AddTime(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req ports.AddTimeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	problem, err := h.problemService.AddProblemTime(c.Request().Context(), id, req.Minutes)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, problem)
}

// IncrementAttempts godoc
// @Summary Record an attempt on a problem
// @Tags problems
// @Produce json
// @Param id path string true "Problem ID"
// @Success 200 {object} entities.Problem
// @Failure 404 {object} ports.ErrorResponse
// @Router /problems/{id}/attempts [post]
func (h *ProblemHandler) IncrementAttempts(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	problem, err := h.problemService.IncrementProblemAttempts(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, problem)
}

// NextRotationProblem godoc
// @Summary Get the next rotation review problem
// @Description Pick a completed problem not yet reviewed in the current rotation round
// @Tags rotation
// @Produce json
// @Success 200 {object} entities.Problem
// @Failure 404 {object} ports.ErrorResponse
// @Router /rotation/next [get]
func (h *ProblemHandler) NextRotationProblem(c echo.Context) error {
	problem, err := h.problemService.NextRotationProblem(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, problem)
}

// MarkRotationReviewed godoc
// @Summary Mark a rotation review as done
// @Tags rotation
// @Produce json
// @Param id path string true "Problem ID"
// @Success 200 {object} entities.Problem
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Router /rotation/{id}/complete [post]
func (h *ProblemHandler) MarkRotationReviewed(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	problem, err := h.problemService.MarkRotationReviewed(c.Request().Context(), id)
	if err != nil {
		h.logger.Error("Mark rotation reviewed failed", "error", err, "problem_id", id)
		return err
	}

	return c.JSON(http.StatusOK, problem)
}

// RecalculateTime godoc
// @Summary Recalculate problem time from sessions
// @Description Rebuild every problem's time and attempts from the recorded sessions
// @Tags problems
// @Produce json
// @Success 200 {object} map[string]int
// @Router /problems/recalculate-time [post]
func (h *ProblemHandler) RecalculateTime(c echo.Context) error {
	totals, err := h.problemService.RecalculateTimeFromSessions(c.Request().Context())
	if err != nil {
		h.logger.Error("Recalculate time failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to recalculate time")
	}

	// Keys are stringified for JSON.
	result := make(map[string]int, len(totals))
	for id, minutes := range totals {
		result[id.String()] = minutes
	}

	return c.JSON(http.StatusOK, result)
}
