package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/preptrack/core/internal/application/services"
	"github.com/preptrack/core/internal/domain/entities"
	"github.com/preptrack/core/internal/infrastructure/logger"
	"github.com/preptrack/core/internal/ports"
)

// TopicHandler handles topic-related requests
type TopicHandler struct {
	topicService   *services.TopicService
	problemService *services.ProblemService
	logger         *logger.Logger
}

// NewTopicHandler creates a new topic handler
func NewTopicHandler(topicService *services.TopicService, problemService *services.ProblemService, logger *logger.Logger) *TopicHandler {
	return &TopicHandler{
		topicService:   topicService,
		problemService: problemService,
		logger:         logger,
	}
}

// CreateTopic godoc
// @Summary Create a new topic
// @Description Create a new study topic with the provided details
// @Tags topics
// @Accept json
// @Produce json
// @Param request body ports.CreateTopicRequest true "Topic data"
// @Success 201 {object} entities.Topic
// @Failure 400 {object} ports.ErrorResponse
// @Failure 409 {object} ports.ErrorResponse
// @Router /topics [post]
func (h *TopicHandler) CreateTopic(c echo.Context) error {
	var req ports.CreateTopicRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	topic, err := h.topicService.CreateTopic(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("Create topic failed", "error", err, "name", req.Name)
		return err
	}

	return c.JSON(http.StatusCreated, topic)
}

// GetTopic godoc
// @Summary Get topic by ID
// @Description Get topic information by topic ID
// @Tags topics
// @Produce json
// @Param id path string true "Topic ID"
// @Success 200 {object} entities.Topic
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Router /topics/{id} [get]
func (h *TopicHandler) GetTopic(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	topic, err := h.topicService.GetTopic(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, topic)
}

// UpdateTopic godoc
// @Summary Update a topic
// @Description Update topic name or description
// @Tags topics
// @Accept json
// @Produce json
// @Param id path string true "Topic ID"
// @Param request body ports.UpdateTopicRequest true "Fields to update"
// @Success 200 {object} entities.Topic
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Router /topics/{id} [put]
func (h *TopicHandler) UpdateTopic(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req ports.UpdateTopicRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	topic, err := h.topicService.UpdateTopic(c.Request().Context(), id, req)
	if err != nil {
		h.logger.Error("Update topic failed", "error", err, "topic_id", id)
		return err
	}

	return c.JSON(http.StatusOK, topic)
}

// DeleteTopic godoc
// @Summary Delete a topic
// @Description Delete a topic. Its problems are deleted too unless a reassignment target is given in the body.
// @Tags topics
// @Accept json
// @Produce json
// @Param id path string true "Topic ID"
// @Success 200 {object} ports.MessageResponse
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Router /topics/{id} [delete]
func (h *TopicHandler) DeleteTopic(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	// The body is optional; an empty body means cascade delete.
	var req ports.DeleteTopicRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
		}
	}

	if err := h.topicService.DeleteTopic(c.Request().Context(), id, req); err != nil {
		h.logger.Error("Delete topic failed", "error", err, "topic_id", id)
		return err
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Topic deleted successfully"})
}

// ListTopics godoc
// @Summary List topics
// @Description List topics with optional search and pagination
// @Tags topics
// @Produce json
// @Param search query string false "Search in name and description"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} ports.PaginatedResponse[entities.Topic]
// @Router /topics [get]
func (h *TopicHandler) ListTopics(c echo.Context) error {
	filter := ports.TopicFilter{
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: c.QueryParam("sort_order"),
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

	topics, total, err := h.topicService.ListTopics(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("List topics failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve topics")
	}

	response := ports.PaginatedResponse[*entities.Topic]{
		Data:   topics,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	return c.JSON(http.StatusOK, response)
}

// GetTopicProblems godoc
// @Summary List a topic's problems
// @Description List every problem that belongs to the topic
// @Tags topics
// @Produce json
// @Param id path string true "Topic ID"
// @Success 200 {array} entities.Problem
// @Failure 404 {object} ports.ErrorResponse
// @Router /topics/{id}/problems [get]
func (h *TopicHandler) GetTopicProblems(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	if _, err := h.topicService.GetTopic(c.Request().Context(), id); err != nil {
		return err
	}

	problems, _, err := h.problemService.ListProblems(c.Request().Context(), ports.ProblemFilter{TopicID: &id})
	if err != nil {
		h.logger.Error("List topic problems failed", "error", err, "topic_id", id)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve problems")
	}

	return c.JSON(http.StatusOK, problems)
}
