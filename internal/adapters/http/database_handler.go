package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/preptrack/core/internal/infrastructure/docstore"
	"github.com/preptrack/core/internal/infrastructure/logger"
	"github.com/preptrack/core/internal/ports"
)

// DatabaseHandler manages the active document file
type DatabaseHandler struct {
	store  *docstore.Store
	logger *logger.Logger
}

// NewDatabaseHandler creates a new database handler
func NewDatabaseHandler(store *docstore.Store, logger *logger.Logger) *DatabaseHandler {
	return &DatabaseHandler{
		store:  store,
		logger: logger,
	}
}

// GetPath godoc
// @Summary Get the active document path
// @Tags database
// @Produce json
// @Success 200 {object} ports.DatabaseInfoResponse
// @Router /database/path [get]
func (h *DatabaseHandler) GetPath(c echo.Context) error {
	return c.JSON(http.StatusOK, ports.DatabaseInfoResponse{Path: h.store.Path()})
}

// Switch godoc
// @Summary Switch to another document file
// @Description Flush the active document, then load the given file. A missing file is created empty; a corrupt file is refused and the current document stays active.
// @Tags database
// @Accept json
// @Produce json
// @Param request body ports.SwitchDatabaseRequest true "Target file path"
// @Success 200 {object} ports.DatabaseInfoResponse
// @Failure 400 {object} ports.ErrorResponse
// @Failure 422 {object} ports.ErrorResponse
// @Router /database/switch [post]
func (h *DatabaseHandler) Switch(c echo.Context) error {
	var req ports.SwitchDatabaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.store.Switch(req.Path); err != nil {
		h.logger.Error("Database switch failed", "error", err, "path", req.Path)
		if errors.Is(err, docstore.ErrCorrupt) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "Target file is not a valid document")
		}
		return err
	}

	h.logger.Info("Database switched", "path", h.store.Path())

	return c.JSON(http.StatusOK, ports.DatabaseInfoResponse{Path: h.store.Path()})
}
