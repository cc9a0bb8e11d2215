package remote

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/tphakala/reckless-court/internal/court"
)

// Actions understood by the Apps Script web app
const (
	ActionGetSubmissions             = "getSubmissions"
	ActionAddSubmission              = "addSubmission"
	ActionUpdateJudgments            = "updateJudgments"
	ActionUpdateJudgmentWithSentence = "updateJudgmentWithSentence"
	ActionUpdateJudgmentToFree       = "updateJudgmentToFree"
)

// Request is the POST body of every write action
type Request struct {
	Action string `json:"action"`
	Data   any    `json:"data"`
}

// Response is the superset of all action replies
type Response struct {
	Success      bool         `json:"success"`
	Error        string       `json:"error,omitempty"`
	Message      string       `json:"message,omitempty"`
	ID           FlexInt      `json:"id,omitempty"`
	UpdatedCount int          `json:"updatedCount,omitempty"`
	Submissions  []WireRecord `json:"submissions,omitempty"`
}

// SentenceUpdate is the data of updateJudgmentWithSentence
type SentenceUpdate struct {
	ID       int            `json:"id"`
	Judgment court.Judgment `json:"judgment"`
	Sentence string         `json:"sentence"`
}

// FreeUpdate is the data of updateJudgmentToFree
type FreeUpdate struct {
	ID int `json:"id"`
}

// NewSubmissionData is the data of addSubmission; the date travels as ISO-8601
type NewSubmissionData struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Date    string `json:"date"`
}

// WireRecord is a submission row as the sheet returns it. Cells may come back
// as numbers or strings depending on how the sheet was edited.
type WireRecord struct {
	ID       FlexInt    `json:"id"`
	Name     FlexString `json:"name"`
	Message  FlexString `json:"message"`
	Type     FlexString `json:"type"`
	Date     FlexString `json:"date"`
	Judgment FlexString `json:"judgment"`
	Sentence FlexString `json:"sentence"`
}

// FlexInt decodes a JSON number or numeric string
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = FlexInt(int(v))
	return nil
}

// FlexString decodes a JSON string, number or bool as text
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(b)
	return nil
}

// ToSubmission maps a wire row with the sheet's defaults: judgment pending,
// empty sentence, date now when missing or unparsable, id from the position.
func (r *WireRecord) ToSubmission(index int, now time.Time) court.Submission {
	id := int(r.ID)
	if id == 0 {
		id = index + 1
	}
	return court.Submission{
		ID:       id,
		Name:     string(r.Name),
		Message:  string(r.Message),
		Type:     court.SubmissionType(r.Type),
		Date:     ParseDate(string(r.Date), now),
		Judgment: court.ParseJudgment(string(r.Judgment)),
		Sentence: string(r.Sentence),
	}
}

// FromSubmission builds the wire row of s
func FromSubmission(s *court.Submission) WireRecord {
	return WireRecord{
		ID:       FlexInt(s.ID),
		Name:     FlexString(s.Name),
		Message:  FlexString(s.Message),
		Type:     FlexString(s.Type),
		Date:     FlexString(FormatDate(s.Date)),
		Judgment: FlexString(s.Judgment),
		Sentence: FlexString(s.Sentence),
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses an ISO-8601 date, falling back to now
func ParseDate(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return now
}

// FormatDate renders t the way JavaScript's toISOString does
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
