package sheets

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/reckless-court/internal/court"
	"github.com/tphakala/reckless-court/internal/errors"
	"github.com/tphakala/reckless-court/internal/remote"
)

const (
	testSheetID   = "sheet-123"
	testSheetName = "Reckless Submissions"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeSheet is a minimal Sheets values API over an in-memory grid
type fakeSheet struct {
	mu       sync.Mutex
	rows     [][]string
	failCode int
	writes   int
}

var cellRef = regexp.MustCompile(`^([A-Z])(\d+)`)

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failCode != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.failCode)
		_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"injected failure"}}`, f.failCode)
		return
	}

	prefix := "/v4/spreadsheets/" + testSheetID + "/values"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, prefix)

	switch {
	case r.Method == http.MethodGet:
		f.writeJSON(w, map[string]any{"range": strings.TrimPrefix(rest, "/"), "majorDimension": "ROWS", "values": f.rows})
	case r.Method == http.MethodPost && rest == ":batchUpdate":
		var req struct {
			Data []struct {
				Range  string  `json:"range"`
				Values [][]any `json:"values"`
			} `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, d := range req.Data {
			f.set(d.Range, d.Values)
		}
		f.writes++
		f.writeJSON(w, map[string]any{"spreadsheetId": testSheetID, "totalUpdatedRows": len(req.Data)})
	case r.Method == http.MethodPost && strings.HasSuffix(rest, ":append"):
		var vr struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, row := range vr.Values {
			f.rows = append(f.rows, toStrings(row))
		}
		f.writes++
		f.writeJSON(w, map[string]any{"spreadsheetId": testSheetID})
	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

// set writes values at the top-left cell of an A1 range such as 'Tab'!F3:G3
func (f *fakeSheet) set(a1 string, values [][]any) {
	cells := a1[strings.LastIndex(a1, "!")+1:]
	m := cellRef.FindStringSubmatch(cells)
	col := int(m[1][0] - 'A')
	row, _ := strconv.Atoi(m[2])
	for dy, vals := range values {
		r := row - 1 + dy
		for len(f.rows) <= r {
			f.rows = append(f.rows, []string{})
		}
		for dx, v := range vals {
			c := col + dx
			for len(f.rows[r]) <= c {
				f.rows[r] = append(f.rows[r], "")
			}
			f.rows[r][c] = fmt.Sprint(v)
		}
	}
}

// grid returns a copy of the sheet contents
func (f *fakeSheet) grid() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.rows))
	for i, r := range f.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func (f *fakeSheet) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *fakeSheet) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func toStrings(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func newTestClient(t *testing.T, rows [][]string) (*Client, *fakeSheet) {
	t.Helper()
	fake := &fakeSheet{rows: rows}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(t.Context(), Config{
		SheetID:    testSheetID,
		SheetName:  testSheetName,
		HTTPClient: srv.Client(),
		Endpoint:   srv.URL + "/",
		Now:        func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return c, fake
}

func seededRows() [][]string {
	return [][]string{
		{"ID", "Name", "Message", "Type", "Date", "Judgment"},
		{"1", "Ann", "hello", "kev-coin", "2024-02-01T10:00:00.000Z", "safe"},
		{"", "Bob", "hi", "hate-coin"},
		{"3", "Cy", "x", "court-case", "2024-02-03T10:00:00.000Z", "sentenced", "Sing"},
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(t.Context(), Config{SheetName: testSheetName, CredentialsFile: "creds.json"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	_, err = New(t.Context(), Config{SheetID: testSheetID, SheetName: testSheetName})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials file")
}

func TestGetSubmissions(t *testing.T) {
	c, _ := newTestClient(t, seededRows())

	subs, err := c.GetSubmissions(t.Context())
	require.NoError(t, err)
	require.Len(t, subs, 3)

	assert.Equal(t, court.Submission{
		ID: 1, Name: "Ann", Message: "hello", Type: court.TypeKevCoin,
		Date: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC), Judgment: court.JudgmentSafe,
	}, subs[0])
	assert.Equal(t, 2, subs[1].ID)
	assert.Equal(t, court.JudgmentPending, subs[1].Judgment)
	assert.Equal(t, testNow, subs[1].Date)
	assert.Equal(t, "Sing", subs[2].Sentence)
}

func TestGetSubmissions_EmptySheet(t *testing.T) {
	c, _ := newTestClient(t, nil)
	subs, err := c.GetSubmissions(t.Context())
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestAddSubmission_CreatesHeader(t *testing.T) {
	c, fake := newTestClient(t, nil)

	id, err := c.AddSubmission(t.Context(), court.NewSubmission{Name: "Ann", Message: "m", Type: court.TypeKevCoin, Date: testNow})
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	id, err = c.AddSubmission(t.Context(), court.NewSubmission{Name: "Bob", Message: "n", Type: court.TypeHateCoin, Date: testNow})
	require.NoError(t, err)
	assert.Equal(t, 2, id)

	rows := fake.grid()
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Name", "Message", "Type", "Date", "Judgment"}, rows[0])
	assert.Equal(t, []string{"1", "Ann", "m", "kev-coin", "2024-03-01T12:00:00.000Z", "pending"}, rows[1])
}

func TestUpdateJudgments(t *testing.T) {
	c, fake := newTestClient(t, seededRows())

	n, err := c.UpdateJudgments(t.Context(), []court.JudgmentChange{
		{ID: 1, Judgment: court.JudgmentReckless},
		{ID: 99, Judgment: court.JudgmentSafe},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "reckless", fake.grid()[1][5])

	n, err = c.UpdateJudgments(t.Context(), []court.JudgmentChange{{ID: 42, Judgment: court.JudgmentSafe}})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, fake.writeCount(), "no write when nothing matches")

	require.NoError(t, c.SendJudgments(t.Context(), []court.JudgmentChange{{ID: 3, Judgment: court.JudgmentSafe}}))
	assert.Equal(t, "safe", fake.grid()[3][5])
}

func TestUpdateJudgmentWithSentence(t *testing.T) {
	c, fake := newTestClient(t, seededRows())

	require.NoError(t, c.UpdateJudgmentWithSentence(t.Context(), 1, court.JudgmentSentenced, "Sing karaoke"))
	rows := fake.grid()
	assert.Equal(t, "Sentence", rows[0][6], "header added for old sheets")
	assert.Equal(t, []string{"sentenced", "Sing karaoke"}, rows[1][5:7])
}

func TestUpdateJudgmentToFree(t *testing.T) {
	c, fake := newTestClient(t, seededRows())

	require.NoError(t, c.UpdateJudgmentToFree(t.Context(), 3))
	assert.Equal(t, []string{"free", ""}, fake.grid()[3][5:7])

	require.NoError(t, c.UpdateJudgmentToFree(t.Context(), 77), "unknown id is not an error")
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		code     int
		sentinel error
		category errors.ErrorCategory
	}{
		{http.StatusForbidden, remote.ErrApplication, errors.CategoryIntegration},
		{http.StatusServiceUnavailable, remote.ErrTransport, errors.CategoryNetwork},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.code), func(t *testing.T) {
			c, fake := newTestClient(t, seededRows())
			fake.mu.Lock()
			fake.failCode = tt.code
			fake.mu.Unlock()

			_, err := c.GetSubmissions(t.Context())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.True(t, errors.IsCategory(err, tt.category))
		})
	}
}

func TestA1QuotesSheetName(t *testing.T) {
	c := &Client{sheetName: "Kev's tab"}
	assert.Equal(t, "'Kev''s tab'!A1", c.a1("A1"))
}
