package health

import (
	"github.com/labstack/echo/v4"
	"github.com/naka-gawa/portfolio-stats/internal/api/web"
	"go.uber.org/zap"
)

// GetResponse is the health check response
type GetResponse struct {
	Status string `json:"status"`
}

func Configure(e *echo.Echo, l *zap.Logger) {
	e.GET("/health", web.Wrap(Get, l))
}

// Get handles GET /health
func Get(c web.Context) error {
	return c.OK(GetResponse{Status: "ok"})
}
