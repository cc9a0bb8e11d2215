package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/reckless-court/internal/court"
)

// MarkRequest marks every judgeable entry under a filter
type MarkRequest struct {
	Filter   string `json:"filter"`
	Judgment string `json:"judgment"`
}

// MarkResponse reports a bulk mark
type MarkResponse struct {
	Marked int          `json:"marked"`
	Notice court.Notice `json:"notice"`
}

// MarkAll handles POST /api/v1/judgments/mark
func (c *Controller) MarkAll(ctx echo.Context) error {
	var req MarkRequest
	if err := c.bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	filter, err := court.ParseFilter(req.Filter)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}

	n, notice, err := c.Court.MarkAll(filter, court.Judgment(req.Judgment))
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, MarkResponse{Marked: n, Notice: notice})
}

// GetPendingChanges handles GET /api/v1/judgments/pending
func (c *Controller) GetPendingChanges(ctx echo.Context) error {
	changes := c.Court.PendingChanges()
	return ctx.JSON(http.StatusOK, PendingResponse{Changes: changes, Count: len(changes)})
}

// SaveJudgments handles POST /api/v1/judgments/save
func (c *Controller) SaveJudgments(ctx echo.Context) error {
	res, err := c.Court.Save(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to save judgments")
	}
	return ctx.JSON(http.StatusOK, res)
}
