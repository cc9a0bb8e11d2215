package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/reckless-court/internal/court"
)

// SentencesResponse lists the wheel's sentences
type SentencesResponse struct {
	Sentences []string      `json:"sentences"`
	Notice    *court.Notice `json:"notice,omitempty"`
}

// SentenceTextRequest replaces the list from a newline-delimited block
type SentenceTextRequest struct {
	Text string `json:"text"`
}

// SentenceRequest carries one sentence
type SentenceRequest struct {
	Sentence string `json:"sentence"`
}

// MoveRequest reorders one sentence
type MoveRequest struct {
	To int `json:"to"`
}

// ListSentences handles GET /api/v1/sentences
func (c *Controller) ListSentences(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, SentencesResponse{Sentences: c.Court.Sentences()})
}

// ReplaceSentences handles PUT /api/v1/sentences
func (c *Controller) ReplaceSentences(ctx echo.Context) error {
	var req SentenceTextRequest
	if err := c.bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	return c.sentencesResult(ctx, func() (court.Notice, error) {
		return c.Court.ReplaceSentences(ctx.Request().Context(), req.Text)
	})
}

// AddSentence handles POST /api/v1/sentences
func (c *Controller) AddSentence(ctx echo.Context) error {
	var req SentenceRequest
	if err := c.bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	return c.sentencesResult(ctx, func() (court.Notice, error) {
		return c.Court.AddSentence(ctx.Request().Context(), req.Sentence)
	})
}

// EditSentence handles PUT /api/v1/sentences/:index
func (c *Controller) EditSentence(ctx echo.Context) error {
	index, err := c.intParam(ctx, "index")
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	var req SentenceRequest
	if err := c.bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	return c.sentencesResult(ctx, func() (court.Notice, error) {
		return c.Court.EditSentence(ctx.Request().Context(), index, req.Sentence)
	})
}

// RemoveSentence handles DELETE /api/v1/sentences/:index
func (c *Controller) RemoveSentence(ctx echo.Context) error {
	index, err := c.intParam(ctx, "index")
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	return c.sentencesResult(ctx, func() (court.Notice, error) {
		return c.Court.RemoveSentence(ctx.Request().Context(), index)
	})
}

// MoveSentence handles POST /api/v1/sentences/:index/move
func (c *Controller) MoveSentence(ctx echo.Context) error {
	index, err := c.intParam(ctx, "index")
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	var req MoveRequest
	if err := c.bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	return c.sentencesResult(ctx, func() (court.Notice, error) {
		return c.Court.MoveSentence(ctx.Request().Context(), index, req.To)
	})
}

// ClearSentences handles DELETE /api/v1/sentences
func (c *Controller) ClearSentences(ctx echo.Context) error {
	return c.sentencesResult(ctx, func() (court.Notice, error) {
		return c.Court.ClearSentences(ctx.Request().Context())
	})
}

// sentencesResult runs edit and answers with the resulting list
func (c *Controller) sentencesResult(ctx echo.Context, edit func() (court.Notice, error)) error {
	notice, err := edit()
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	return ctx.JSON(http.StatusOK, SentencesResponse{Sentences: c.Court.Sentences(), Notice: &notice})
}
