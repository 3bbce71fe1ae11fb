package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/preptrack/core/internal/application/services"
	"github.com/preptrack/core/internal/domain/entities"
	"github.com/preptrack/core/internal/infrastructure/logger"
	"github.com/preptrack/core/internal/ports"
)

// SessionHandler handles study session requests
type SessionHandler struct {
	sessionService *services.SessionService
	logger         *logger.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService *services.SessionService, logger *logger.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		logger:         logger,
	}
}

// LogSession godoc
// @Summary Log a finished study session
// @Description Record a study session and charge its duration to the referenced problems
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body ports.LogSessionRequest true "Session data"
// @Success 201 {object} entities.StudySession
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) LogSession(c echo.Context) error {
	var req ports.LogSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := h.sessionService.LogSession(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("Log session failed", "error", err)
		return err
	}

	return c.JSON(http.StatusCreated, session)
}

// GetSession godoc
// @Summary Get session by ID
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} entities.StudySession
// @Failure 404 {object} ports.ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	session, err := h.sessionService.GetSession(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, session)
}

// DeleteSession godoc
// @Summary Delete a session
// @Description Delete a session and reverse the time it charged to problems
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} ports.MessageResponse
// @Failure 404 {object} ports.ErrorResponse
// @Router /sessions/{id} [delete]
func (h *SessionHandler) DeleteSession(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	if err := h.sessionService.DeleteSession(c.Request().Context(), id); err != nil {
		h.logger.Error("Delete session failed", "error", err, "session_id", id)
		return err
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Session deleted successfully"})
}

// ListSessions godoc
// @Summary List sessions
// @Description List sessions with optional problem and date range filters
// @Tags sessions
// @Produce json
// @Param problem_id query string false "Filter by referenced problem"
// @Param start_date query string false "RFC3339 lower bound on start time"
// @Param end_date query string false "RFC3339 upper bound on start time"
// @Success 200 {object} ports.PaginatedResponse[entities.StudySession]
// @Router /sessions [get]
func (h *SessionHandler) ListSessions(c echo.Context) error {
	filter := ports.SessionFilter{
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: c.QueryParam("sort_order"),
	}

	if problemIDStr := c.QueryParam("problem_id"); problemIDStr != "" {
		problemID, err := parseUUID(problemIDStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid problem_id parameter")
		}
		filter.ProblemID = &problemID
	}

	if startStr := c.QueryParam("start_date"); startStr != "" {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid start_date parameter")
		}
		filter.StartDate = &start
	}

	if endStr := c.QueryParam("end_date"); endStr != "" {
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid end_date parameter")
		}
		filter.EndDate = &end
	}

	limit, offset, err := parseLimitOffset(c, 20)
	if err != nil {
		return err
	}
	filter.Limit = limit
	filter.Offset = offset

	sessions, total, err := h.sessionService.ListSessions(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("List sessions failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve sessions")
	}

	response := ports.PaginatedResponse[*entities.StudySession]{
		Data:   sessions,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	return c.JSON(http.StatusOK, response)
}

// StartSession godoc
// @Summary Start a live session
// @Description Open a live study session. Only one session may be active at a time.
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body ports.StartSessionRequest true "Session data"
// @Success 201 {object} entities.StudySession
// @Failure 409 {object} ports.ErrorResponse
// @Router /sessions/start [post]
func (h *SessionHandler) StartSession(c echo.Context) error {
	var req ports.StartSessionRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
		}
		if err := c.Validate(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	session, err := h.sessionService.StartSession(c.Request().Context(), req.Notes, req.ProblemIDs)
	if err != nil {
		h.logger.Error("Start session failed", "error", err)
		return err
	}

	return c.JSON(http.StatusCreated, session)
}

// StopSession godoc
// @Summary Stop the live session
// @Description Close the active session and charge its wall-clock duration to its problems
// @Tags sessions
// @Produce json
// @Success 200 {object} entities.StudySession
// @Failure 404 {object} ports.ErrorResponse
// @Router /sessions/stop [post]
func (h *SessionHandler) StopSession(c echo.Context) error {
	session, err := h.sessionService.StopSession(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, session)
}

// GetActiveSession godoc
// @Summary Get the live session
// @Tags sessions
// @Produce json
// @Success 200 {object} entities.StudySession
// @Failure 404 {object} ports.ErrorResponse
// @Router /sessions/active [get]
func (h *SessionHandler) GetActiveSession(c echo.Context) error {
	session, err := h.sessionService.GetActiveSession(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, session)
}
