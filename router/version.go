package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetVersion GET /version
func (h *Handlers) GetVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"version":  h.Config.Version,
		"revision": h.Config.Revision,
	})
}
