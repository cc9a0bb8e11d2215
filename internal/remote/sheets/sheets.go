// Package sheets implements court.Store directly on the Google Sheets API,
// using the same row layout as the Apps Script web app.
package sheets

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/tphakala/reckless-court/internal/court"
	"github.com/tphakala/reckless-court/internal/errors"
	"github.com/tphakala/reckless-court/internal/logger"
	"github.com/tphakala/reckless-court/internal/remote"
)

// Column letters of the sheet layout
const (
	colID       = "A"
	colJudgment = "F"
	colSentence = "G"
	lastColumn  = "G"
)

var headerRow = []any{"ID", "Name", "Message", "Type", "Date", "Judgment"}

// Config holds the Sheets backend settings
type Config struct {
	SheetID         string
	SheetName       string
	CredentialsFile string

	// HTTPClient and Endpoint replace credentials, used against a local server
	HTTPClient *http.Client
	Endpoint   string

	Logger logger.Logger
	Now    func() time.Time
}

// Client reads and writes the submissions tab
type Client struct {
	values    *gsheets.SpreadsheetsValuesService
	sheetID   string
	sheetName string
	log       logger.Logger
	now       func() time.Time
}

// New creates a Sheets backed store
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SheetID == "" || cfg.SheetName == "" {
		return nil, errors.Newf("sheets backend needs a sheet id and a sheet name").
			Component("sheets").
			Category(errors.CategoryConfiguration).
			Build()
	}

	var opts []option.ClientOption
	switch {
	case cfg.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile), option.WithScopes(gsheets.SpreadsheetsScope))
	default:
		return nil, errors.Newf("sheets backend needs a credentials file").
			Component("sheets").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to create sheets service: %w", err)).
			Component("sheets").
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &Client{
		values:    svc.Spreadsheets.Values,
		sheetID:   cfg.SheetID,
		sheetName: cfg.SheetName,
		log:       cfg.Logger,
		now:       cfg.Now,
	}
	if c.log == nil {
		c.log = logger.Global().Module("sheets")
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// a1 builds a range in the configured tab
func (c *Client) a1(cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(c.sheetName, "'", "''"), cells)
}

func (c *Client) readRows(ctx context.Context, op string) ([][]any, error) {
	vr, err := c.values.Get(c.sheetID, c.a1(colID+":"+lastColumn)).Context(ctx).Do()
	if err != nil {
		return nil, classify(err, op)
	}
	return vr.Values, nil
}

// GetSubmissions maps every data row with the sheet defaults
func (c *Client) GetSubmissions(ctx context.Context) ([]court.Submission, error) {
	rows, err := c.readRows(ctx, remote.ActionGetSubmissions)
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return []court.Submission{}, nil
	}

	now := c.now()
	subs := make([]court.Submission, 0, len(rows)-1)
	for i, row := range rows[1:] {
		id, _ := strconv.Atoi(cell(row, 0))
		if id == 0 {
			id = i + 1
		}
		subs = append(subs, court.Submission{
			ID:       id,
			Name:     cell(row, 1),
			Message:  cell(row, 2),
			Type:     court.SubmissionType(cell(row, 3)),
			Date:     remote.ParseDate(cell(row, 4), now),
			Judgment: court.ParseJudgment(cell(row, 5)),
			Sentence: cell(row, 6),
		})
	}
	return subs, nil
}

// AddSubmission appends a pending row; the id is the last row number
// before the append, so the first entry under the header gets id 1.
func (c *Client) AddSubmission(ctx context.Context, sub court.NewSubmission) (int, error) {
	rows, err := c.readRows(ctx, remote.ActionAddSubmission)
	if err != nil {
		return 0, err
	}
	lastRow := len(rows)
	if lastRow == 0 {
		if err := c.write(ctx, remote.ActionAddSubmission, &gsheets.ValueRange{
			Range:  c.a1("A1:F1"),
			Values: [][]any{headerRow},
		}); err != nil {
			return 0, err
		}
		lastRow = 1
	}

	row := []any{lastRow, sub.Name, sub.Message, string(sub.Type), remote.FormatDate(sub.Date), string(court.JudgmentPending)}
	_, err = c.values.Append(c.sheetID, c.a1("A1"), &gsheets.ValueRange{Values: [][]any{row}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, classify(err, remote.ActionAddSubmission)
	}

	c.log.Info("submission appended", logger.Int("id", lastRow))
	return lastRow, nil
}

// UpdateJudgments sets the judgment column of every matching row
func (c *Client) UpdateJudgments(ctx context.Context, changes []court.JudgmentChange) (int, error) {
	rows, err := c.readRows(ctx, remote.ActionUpdateJudgments)
	if err != nil {
		return 0, err
	}

	var data []*gsheets.ValueRange
	for _, ch := range changes {
		r := findRow(rows, ch.ID)
		if r == 0 {
			continue
		}
		data = append(data, &gsheets.ValueRange{
			Range:  c.a1(colJudgment + strconv.Itoa(r)),
			Values: [][]any{{string(ch.Judgment)}},
		})
	}
	if len(data) == 0 {
		return 0, nil
	}
	if err := c.write(ctx, remote.ActionUpdateJudgments, data...); err != nil {
		return 0, err
	}
	return len(data), nil
}

// SendJudgments writes the batch without reporting the match count. The
// Sheets API has no unconfirmed mode, so this is the same write.
func (c *Client) SendJudgments(ctx context.Context, changes []court.JudgmentChange) error {
	_, err := c.UpdateJudgments(ctx, changes)
	return err
}

// UpdateJudgmentWithSentence writes judgment and sentence of one row and
// adds the Sentence header when the sheet predates it.
func (c *Client) UpdateJudgmentWithSentence(ctx context.Context, id int, j court.Judgment, sentence string) error {
	rows, err := c.readRows(ctx, remote.ActionUpdateJudgmentWithSentence)
	if err != nil {
		return err
	}

	var data []*gsheets.ValueRange
	if len(rows) > 0 && len(rows[0]) < 7 {
		data = append(data, &gsheets.ValueRange{Range: c.a1(colSentence + "1"), Values: [][]any{{"Sentence"}}})
	}
	if r := findRow(rows, id); r != 0 {
		data = append(data, c.judgmentAndSentence(r, j, sentence))
	}
	if len(data) == 0 {
		return nil
	}
	return c.write(ctx, remote.ActionUpdateJudgmentWithSentence, data...)
}

// UpdateJudgmentToFree sets the row free and clears its sentence
func (c *Client) UpdateJudgmentToFree(ctx context.Context, id int) error {
	rows, err := c.readRows(ctx, remote.ActionUpdateJudgmentToFree)
	if err != nil {
		return err
	}
	r := findRow(rows, id)
	if r == 0 {
		return nil
	}
	return c.write(ctx, remote.ActionUpdateJudgmentToFree, c.judgmentAndSentence(r, court.JudgmentFree, ""))
}

func (c *Client) judgmentAndSentence(row int, j court.Judgment, sentence string) *gsheets.ValueRange {
	n := strconv.Itoa(row)
	return &gsheets.ValueRange{
		Range:  c.a1(colJudgment + n + ":" + colSentence + n),
		Values: [][]any{{string(j), sentence}},
	}
}

func (c *Client) write(ctx context.Context, op string, data ...*gsheets.ValueRange) error {
	_, err := c.values.BatchUpdate(c.sheetID, &gsheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return classify(err, op)
	}
	return nil
}

// findRow returns the 1-based sheet row holding id, or 0
func findRow(rows [][]any, id int) int {
	want := strconv.Itoa(id)
	for i := 1; i < len(rows); i++ {
		got := cell(rows[i], 0)
		if got == want {
			return i + 1
		}
		if f, err := strconv.ParseFloat(got, 64); err == nil && f == float64(id) {
			return i + 1
		}
	}
	return 0
}

func cell(row []any, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	if s, ok := row[i].(string); ok {
		return s
	}
	return fmt.Sprint(row[i])
}

// classify maps API failures onto the remote sentinels. 4xx answers are
// application failures, everything else is transport.
func classify(err error, op string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 {
		return errors.New(fmt.Errorf("%w: %s: %w", remote.ErrApplication, op, err)).
			Component("sheets").
			Category(errors.CategoryIntegration).
			Context("action", op).
			Context("status_code", apiErr.Code).
			Build()
	}
	return errors.New(fmt.Errorf("%w: %s: %w", remote.ErrTransport, op, err)).
		Component("sheets").
		Category(errors.CategoryNetwork).
		Context("action", op).
		Build()
}

var _ court.Store = (*Client)(nil)
