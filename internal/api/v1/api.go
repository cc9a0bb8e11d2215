// internal/api/v1/api.go
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/reckless-court/internal/court"
	"github.com/tphakala/reckless-court/internal/errors"
	"github.com/tphakala/reckless-court/internal/logger"
)

// Prefix is the mount point of the JSON API
const Prefix = "/api/v1"

// Controller manages the API routes and handlers
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group
	Court *court.Court

	logger logger.Logger
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the controller logger
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates the controller and registers its routes on e
func New(e *echo.Echo, ct *court.Court, opts ...Option) (*Controller, error) {
	if ct == nil {
		return nil, errors.Newf("court is required").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	c := &Controller{
		Echo:  e,
		Group: e.Group(Prefix),
		Court: ct,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Global().Module("api")
	}
	c.initRoutes()
	return c, nil
}

func (c *Controller) initRoutes() {
	// Intake and admin
	c.Group.POST("/submissions", c.CreateSubmission)
	c.Group.GET("/submissions", c.ListSubmissions)
	c.Group.POST("/submissions/reload", c.ReloadSubmissions)
	c.Group.PUT("/submissions/:id/judgment", c.SetJudgment)
	c.Group.POST("/submissions/:id/free", c.SetFree)
	c.Group.GET("/stats", c.GetStats)

	// Judgment ledger
	c.Group.POST("/judgments/mark", c.MarkAll)
	c.Group.GET("/judgments/pending", c.GetPendingChanges)
	c.Group.POST("/judgments/save", c.SaveJudgments)

	// Court screen
	c.Group.GET("/court", c.GetCourtView)
	c.Group.POST("/court/select/:id", c.SelectCase)
	c.Group.POST("/court/spin", c.Spin)
	c.Group.POST("/court/commit", c.Commit)

	// Sentence list
	c.Group.GET("/sentences", c.ListSentences)
	c.Group.PUT("/sentences", c.ReplaceSentences)
	c.Group.POST("/sentences", c.AddSentence)
	c.Group.DELETE("/sentences", c.ClearSentences)
	c.Group.PUT("/sentences/:index", c.EditSentence)
	c.Group.DELETE("/sentences/:index", c.RemoveSentence)
	c.Group.POST("/sentences/:index/move", c.MoveSentence)

	c.Group.POST("/connection/test", c.TestConnection)
}

// NoticeResponse is the body of actions whose only result is a toast
type NoticeResponse struct {
	Notice court.Notice `json:"notice"`
}

// bind decodes the request body into v
func (c *Controller) bind(ctx echo.Context, v any) error {
	if err := ctx.Bind(v); err != nil {
		return errors.Newf("invalid request body").
			Component("api").
			Category(errors.CategoryValidation).
			Context("cause", err.Error()).
			Build()
	}
	return nil
}

// intParam parses a path parameter as a non-negative integer
func (c *Controller) intParam(ctx echo.Context, name string) (int, error) {
	v, err := strconv.Atoi(ctx.Param(name))
	if err != nil || v < 0 {
		return 0, errors.Newf("invalid %s", name).
			Component("api").
			Category(errors.CategoryValidation).
			Context("value", ctx.Param(name)).
			Build()
	}
	return v, nil
}

func (c *Controller) notice(ctx echo.Context, n court.Notice) error {
	return ctx.JSON(http.StatusOK, NoticeResponse{Notice: n})
}
