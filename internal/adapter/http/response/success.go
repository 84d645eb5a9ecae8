package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// Health writes a health check response.
func Health(c echo.Context, sessions int) error {
	return c.JSON(http.StatusOK, &HealthResponse{
		Status:   "ok",
		Sessions: sessions,
	})
}
