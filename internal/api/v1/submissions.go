// internal/api/v1/submissions.go
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/reckless-court/internal/court"
	"github.com/tphakala/reckless-court/internal/errors"
	"github.com/tphakala/reckless-court/internal/logger"
)

// SubmissionRequest is the intake form
type SubmissionRequest struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// JudgmentRequest sets one unsaved judgment
type JudgmentRequest struct {
	Judgment string `json:"judgment"`
}

// PendingResponse reports the unsaved change set
type PendingResponse struct {
	Changes []court.JudgmentChange `json:"changes"`
	Count   int                    `json:"count"`
}

// ReloadResponse reports a reload from the remote store
type ReloadResponse struct {
	Notice court.Notice     `json:"notice"`
	Stats  court.AdminStats `json:"stats"`
}

// CreateSubmission handles POST /api/v1/submissions
func (c *Controller) CreateSubmission(ctx echo.Context) error {
	var req SubmissionRequest
	if err := c.bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}

	res, err := c.Court.Submit(ctx.Request().Context(), req.Name, req.Message, court.SubmissionType(req.Type))
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	return ctx.JSON(http.StatusCreated, res)
}

// ListSubmissions handles GET /api/v1/submissions?filter=&page=
func (c *Controller) ListSubmissions(ctx echo.Context) error {
	filter, err := court.ParseFilter(ctx.QueryParam("filter"))
	if err != nil {
		return c.HandleError(ctx, err, "")
	}

	page := 1
	if p := ctx.QueryParam("page"); p != "" {
		page, err = strconv.Atoi(p)
		if err != nil || page < 1 {
			return c.HandleError(ctx, errors.Newf("invalid page %q", p).
				Component("api").
				Category(errors.CategoryValidation).
				Build(), "")
		}
	}

	return ctx.JSON(http.StatusOK, c.Court.AdminView(filter, page))
}

// ReloadSubmissions handles POST /api/v1/submissions/reload
func (c *Controller) ReloadSubmissions(ctx echo.Context) error {
	notice, err := c.Court.Reload(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load submissions")
	}
	return ctx.JSON(http.StatusOK, ReloadResponse{Notice: notice, Stats: c.Court.Stats()})
}

// SetJudgment handles PUT /api/v1/submissions/:id/judgment
func (c *Controller) SetJudgment(ctx echo.Context) error {
	id, err := c.intParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	var req JudgmentRequest
	if err := c.bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}

	if err := c.Court.SetJudgment(id, court.Judgment(req.Judgment)); err != nil {
		return c.HandleError(ctx, err, "")
	}
	c.logger.Debug("judgment staged", logger.Int("id", id), logger.String("judgment", req.Judgment))

	changes := c.Court.PendingChanges()
	return ctx.JSON(http.StatusOK, PendingResponse{Changes: changes, Count: len(changes)})
}

// SetFree handles POST /api/v1/submissions/:id/free
func (c *Controller) SetFree(ctx echo.Context) error {
	id, err := c.intParam(ctx, "id")
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	res, err := c.Court.SetFree(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, res)
}

// GetStats handles GET /api/v1/stats
func (c *Controller) GetStats(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Court.Stats())
}

// TestConnection handles POST /api/v1/connection/test
func (c *Controller) TestConnection(ctx echo.Context) error {
	n, err := c.Court.TestConnection(ctx.Request().Context())
	if err != nil {
		if errors.IsCategory(err, errors.CategoryState) {
			return c.HandleError(ctx, err, "")
		}
		return c.HandleError(ctx, err, "Connection failed: "+err.Error())
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"count":  n,
		"notice": court.Notice{Level: court.NoticeSuccess, Message: "Connection successful! Found " + strconv.Itoa(n) + " entries."},
	})
}
