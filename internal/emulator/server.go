package emulator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/reckless-court/internal/logger"
)

// Server answers the script's GET and POST entry points
type Server struct {
	echo  *echo.Echo
	sheet *Sheet
	log   logger.Logger
	now   func() time.Time
}

// NewServer creates the emulator HTTP handler around sheet
func NewServer(sheet *Sheet, log logger.Logger) *Server {
	if log == nil {
		log = logger.Global().Module("emulator")
	}
	s := &Server{echo: echo.New(), sheet: sheet, log: log, now: time.Now}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.BodyLimit("2M"))

	s.echo.GET("/", s.handleGet)
	s.echo.POST("/", s.handlePost)
	// The deployed script lives under /macros/s/<id>/exec
	s.echo.GET("/macros/s/:deployment/exec", s.handleGet)
	s.echo.POST("/macros/s/:deployment/exec", s.handlePost)
	return s
}

// Handler returns the HTTP handler, e.g. for httptest
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on address until ctx is cancelled
func (s *Server) Start(ctx context.Context, address string) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("script emulator listening", logger.String("address", address))
		if err := s.echo.Start(address); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("emulator shutdown: %w", err)
	}
	return nil
}

type envelope struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

func (s *Server) handleGet(c echo.Context) error {
	if c.QueryParam("action") != "getSubmissions" {
		return invalidAction(c)
	}
	ctx := c.Request().Context()
	rows, err := s.sheet.Rows(ctx)
	if err != nil {
		return failure(c, err)
	}
	now := s.now()
	records := make([]Record, 0, len(rows))
	for i := range rows {
		records = append(records, toRecord(&rows[i], i, now))
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "submissions": records})
}

// handlePost accepts any content type; the non-confirming client sends
// the JSON body as text/plain.
func (s *Server) handlePost(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return scriptError(c, err)
	}
	var req envelope
	if err := json.Unmarshal(body, &req); err != nil {
		return scriptError(c, fmt.Errorf("SyntaxError: %w", err))
	}

	ctx := c.Request().Context()
	switch req.Action {
	case "addSubmission":
		return s.addSubmission(ctx, c, req.Data)
	case "updateJudgments":
		return s.updateJudgments(ctx, c, req.Data)
	case "updateJudgmentWithSentence":
		return s.updateJudgmentWithSentence(ctx, c, req.Data)
	case "updateJudgmentToFree":
		return s.updateJudgmentToFree(ctx, c, req.Data)
	}
	return invalidAction(c)
}

func (s *Server) addSubmission(ctx context.Context, c echo.Context, raw json.RawMessage) error {
	var data struct {
		Name    string `json:"name"`
		Message string `json:"message"`
		Type    string `json:"type"`
		Date    string `json:"date"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return failure(c, err)
	}
	id, err := s.sheet.Append(ctx, data.Name, data.Message, data.Type, data.Date)
	if err != nil {
		return failure(c, err)
	}
	s.log.Info("row appended", logger.Int("id", id))
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Submission added successfully",
		"id":      id,
	})
}

func (s *Server) updateJudgments(ctx context.Context, c echo.Context, raw json.RawMessage) error {
	var updates []struct {
		ID       json.Number `json:"id"`
		Judgment string      `json:"judgment"`
	}
	if err := json.Unmarshal(raw, &updates); err != nil {
		return failure(c, err)
	}
	updated := 0
	for _, u := range updates {
		ok, err := s.sheet.Update(ctx, u.ID.String(), map[string]any{"judgment": u.Judgment})
		if err != nil {
			return failure(c, err)
		}
		if ok {
			updated++
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":      true,
		"message":      fmt.Sprintf("Updated %d judgments successfully", updated),
		"updatedCount": updated,
	})
}

func (s *Server) updateJudgmentWithSentence(ctx context.Context, c echo.Context, raw json.RawMessage) error {
	var data struct {
		ID       json.Number `json:"id"`
		Judgment string      `json:"judgment"`
		Sentence string      `json:"sentence"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return failure(c, err)
	}
	if _, err := s.sheet.Update(ctx, data.ID.String(), map[string]any{
		"judgment": data.Judgment,
		"sentence": data.Sentence,
	}); err != nil {
		return failure(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Updated judgment and sentence for entry " + data.ID.String(),
		"entryId":  numberOrString(data.ID),
		"judgment": data.Judgment,
		"sentence": data.Sentence,
	})
}

func (s *Server) updateJudgmentToFree(ctx context.Context, c echo.Context, raw json.RawMessage) error {
	var data struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return failure(c, err)
	}
	if _, err := s.sheet.Update(ctx, data.ID.String(), map[string]any{
		"judgment": "free",
		"sentence": "",
	}); err != nil {
		return failure(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"message":  fmt.Sprintf("Entry %s has been set free!", data.ID.String()),
		"entryId":  numberOrString(data.ID),
		"judgment": "free",
	})
}

func numberOrString(n json.Number) any {
	if v, err := strconv.Atoi(n.String()); err == nil {
		return v
	}
	return n.String()
}

// invalidAction mirrors the script's reply to an unknown action, which has
// no success field.
func invalidAction(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"error": "Invalid action"})
}

// scriptError is the reply for a request that failed before routing
func scriptError(c echo.Context, err error) error {
	return c.JSON(http.StatusOK, map[string]any{"error": err.Error()})
}

// failure is the reply for an action that failed
func failure(c echo.Context, err error) error {
	return c.JSON(http.StatusOK, map[string]any{"success": false, "error": err.Error()})
}
