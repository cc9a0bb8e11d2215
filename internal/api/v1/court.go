package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/reckless-court/internal/court"
)

// CommitRequest closes the selected case
type CommitRequest struct {
	Judgment string `json:"judgment"`
	Sentence string `json:"sentence"`
}

// SelectResponse reports the case brought to the bench
type SelectResponse struct {
	Selected court.Submission `json:"selected"`
}

// GetCourtView handles GET /api/v1/court?type=
func (c *Controller) GetCourtView(ctx echo.Context) error {
	view, err := c.Court.CourtView(ctx.QueryParam("type"))
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, view)
}

// SelectCase handles POST /api/v1/court/select/:id
func (c *Controller) SelectCase(ctx echo.Context) error {
	id, err := c.intParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	s, err := c.Court.SelectCase(id)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, SelectResponse{Selected: s})
}

// Spin handles POST /api/v1/court/spin
func (c *Controller) Spin(ctx echo.Context) error {
	res, err := c.Court.Spin()
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, res)
}

// Commit handles POST /api/v1/court/commit
func (c *Controller) Commit(ctx echo.Context) error {
	var req CommitRequest
	if err := c.bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	res, err := c.Court.Commit(ctx.Request().Context(), court.Judgment(req.Judgment), req.Sentence)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, res)
}
