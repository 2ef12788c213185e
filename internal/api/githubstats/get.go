// Package githubstats serves the aggregated GitHub statistics of a user.
package githubstats

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/naka-gawa/portfolio-stats/internal/api/web"
	"github.com/naka-gawa/portfolio-stats/internal/domain"
	"go.uber.org/zap"
)

// Aggregator produces the statistics of one user.
type Aggregator interface {
	Aggregate(ctx context.Context, username string) (*domain.GitHubStats, error)
}

type handler struct {
	agg Aggregator
}

func Configure(e *echo.Echo, l *zap.Logger, agg Aggregator) {
	h := &handler{agg: agg}
	e.GET("/api/github-stats", web.Wrap(h.Get, l))
}

// Get handles GET /api/github-stats?username=<login>
func (h *handler) Get(c web.Context) error {
	username := strings.TrimSpace(c.QueryParam("username"))
	if username == "" {
		return c.BadRequest("username is required")
	}

	stats, err := h.agg.Aggregate(c.Request().Context(), username)
	if err != nil {
		c.L.Error("failed to aggregate GitHub stats", zap.String("username", username), zap.Error(err))
		if errors.Is(err, domain.ErrUserNotFound) {
			return c.NotFound(err.Error())
		}
		return c.InternalError("failed to fetch GitHub stats")
	}

	return c.OK(stats)
}
