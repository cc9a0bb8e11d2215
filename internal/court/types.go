// Package court holds the application state of the Reckless Court: the
// submission collection, the judgment ledger, the sentencing queue and the
// wheel's sentence list.
package court

import (
	"context"
	"time"
)

// SubmissionType is the kind of statement a guest submits
type SubmissionType string

const (
	TypeKevCoin   SubmissionType = "kev-coin"
	TypeHateCoin  SubmissionType = "hate-coin"
	TypeCourtCase SubmissionType = "court-case"
	TypeWriteDown SubmissionType = "write-down"
)

// SubmissionTypes lists the accepted submission types in display order
var SubmissionTypes = []SubmissionType{TypeKevCoin, TypeHateCoin, TypeCourtCase, TypeWriteDown}

// Valid reports whether t is one of the accepted types
func (t SubmissionType) Valid() bool {
	switch t {
	case TypeKevCoin, TypeHateCoin, TypeCourtCase, TypeWriteDown:
		return true
	}
	return false
}

// Judgment is the verdict state of a submission
type Judgment string

const (
	JudgmentPending   Judgment = "pending"
	JudgmentSafe      Judgment = "safe"
	JudgmentReckless  Judgment = "reckless"
	JudgmentSentenced Judgment = "sentenced"
	JudgmentFree      Judgment = "free"
)

// Judgments lists every judgment in lifecycle order
var Judgments = []Judgment{JudgmentPending, JudgmentSafe, JudgmentReckless, JudgmentSentenced, JudgmentFree}

// Valid reports whether j is a known judgment
func (j Judgment) Valid() bool {
	switch j {
	case JudgmentPending, JudgmentSafe, JudgmentReckless, JudgmentSentenced, JudgmentFree:
		return true
	}
	return false
}

// ParseJudgment maps a stored value to a Judgment. Unknown or empty values
// read as pending.
func ParseJudgment(s string) Judgment {
	if j := Judgment(s); j.Valid() {
		return j
	}
	return JudgmentPending
}

// adjustable reports whether the admin may still set safe or reckless
func (j Judgment) adjustable() bool {
	return j == JudgmentPending || j == JudgmentSafe || j == JudgmentReckless
}

// Submission is one row of the court record
type Submission struct {
	ID       int            `json:"id"`
	Name     string         `json:"name"`
	Message  string         `json:"message"`
	Type     SubmissionType `json:"type"`
	Date     time.Time      `json:"date"`
	Judgment Judgment       `json:"judgment"`
	Sentence string         `json:"sentence"`
}

// NewSubmission is the payload written by intake
type NewSubmission struct {
	Name    string         `json:"name"`
	Message string         `json:"message"`
	Type    SubmissionType `json:"type"`
	Date    time.Time      `json:"date"`
}

// JudgmentChange is one entry of a batch judgment write
type JudgmentChange struct {
	ID       int      `json:"id"`
	Judgment Judgment `json:"judgment"`
}

// Store is the remote submission store
type Store interface {
	// GetSubmissions reads the whole collection
	GetSubmissions(ctx context.Context) ([]Submission, error)
	// AddSubmission appends a row and returns the id assigned by the store
	AddSubmission(ctx context.Context, sub NewSubmission) (int, error)
	// UpdateJudgments writes a batch and returns how many rows matched
	UpdateJudgments(ctx context.Context, changes []JudgmentChange) (int, error)
	// SendJudgments posts the same batch without confirmation. A nil error
	// only means the request was delivered.
	SendJudgments(ctx context.Context, changes []JudgmentChange) error
	UpdateJudgmentWithSentence(ctx context.Context, id int, judgment Judgment, sentence string) error
	UpdateJudgmentToFree(ctx context.Context, id int) error
}

// Fallback is the local snapshot store used when the remote is unavailable
type Fallback interface {
	Snapshot(ctx context.Context, subs []Submission) error
	Restore(ctx context.Context) ([]Submission, error)
	SaveSentences(ctx context.Context, sentences []string) error
	// LoadSentences reports found=false when nothing was ever saved
	LoadSentences(ctx context.Context) (sentences []string, found bool, err error)
}

type freshReadKey struct{}

// WithFreshRead marks ctx so stores skip any read cache
func WithFreshRead(ctx context.Context) context.Context {
	return context.WithValue(ctx, freshReadKey{}, true)
}

// FreshRead reports whether ctx asks for an uncached read
func FreshRead(ctx context.Context) bool {
	v, _ := ctx.Value(freshReadKey{}).(bool)
	return v
}

// Outcome describes how far a write got
type Outcome string

const (
	OutcomeNoop        Outcome = "noop"        // nothing to write
	OutcomeConfirmed   Outcome = "confirmed"   // remote acknowledged the write
	OutcomeUnconfirmed Outcome = "unconfirmed" // delivered without acknowledgement
	OutcomeLocal       Outcome = "local"       // kept in the local fallback only
)

// NoticeLevel is the severity of a user-facing notice
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is the toast shown for the result of an action
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

func success(msg string) Notice { return Notice{Level: NoticeSuccess, Message: msg} }
func info(msg string) Notice    { return Notice{Level: NoticeInfo, Message: msg} }
func warning(msg string) Notice { return Notice{Level: NoticeWarning, Message: msg} }

// Recorder receives write outcomes, e.g. for metrics
type Recorder interface {
	RecordOutcome(operation string, outcome Outcome)
}

type nopRecorder struct{}

func (nopRecorder) RecordOutcome(string, Outcome) {}
