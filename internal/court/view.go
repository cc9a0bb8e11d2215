package court

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tphakala/reckless-court/internal/errors"
)

// Filter selects the entries shown on the admin screen
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterSentenced Filter = "sentenced"
	FilterFree      Filter = "free"
)

// ParseFilter accepts all, pending, sentenced, free or a submission type.
// An empty string means all.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPending, FilterSentenced, FilterFree:
		return f, nil
	default:
		if SubmissionType(s).Valid() {
			return f, nil
		}
	}
	return "", errors.Newf("invalid filter %q", s).
		Component("court").
		Category(errors.CategoryValidation).
		Build()
}

// Match reports whether s, with its displayed judgment, passes the filter
func (f Filter) Match(s *Submission) bool {
	switch f {
	case FilterAll, "":
		return true
	case FilterPending:
		return s.Judgment == JudgmentPending
	case FilterSentenced:
		return s.Judgment == JudgmentSentenced
	case FilterFree:
		return s.Judgment == JudgmentFree
	default:
		return s.Type == SubmissionType(f)
	}
}

var (
	upper = cases.Upper(language.English)

	typeNames = map[SubmissionType]string{
		TypeKevCoin:   "kev coin",
		TypeHateCoin:  "hate coin",
		TypeCourtCase: "court case",
		TypeWriteDown: "write this down",
	}
)

// TypeLabel returns the display label of a submission type, e.g. "KEV COIN"
func TypeLabel(t SubmissionType) string {
	if name, ok := typeNames[t]; ok {
		return upper.String(name)
	}
	return "UNKNOWN"
}

// JudgmentLabel returns the display label of a judgment, e.g. "RECKLESS"
func JudgmentLabel(j Judgment) string {
	return upper.String(string(ParseJudgment(string(j))))
}

// Entry actions offered to the admin
const (
	ActionSafe     = "safe"
	ActionReckless = "reckless"
	ActionFree     = "free"
)

// EntryView is a submission decorated for display
type EntryView struct {
	Submission
	TypeLabel     string   `json:"typeLabel"`
	JudgmentLabel string   `json:"judgmentLabel"`
	Unsaved       bool     `json:"unsaved"`
	Actions       []string `json:"actions"`
}

func newEntryView(s Submission, unsaved bool) EntryView {
	v := EntryView{
		Submission:    s,
		TypeLabel:     TypeLabel(s.Type),
		JudgmentLabel: JudgmentLabel(s.Judgment),
		Unsaved:       unsaved,
		Actions:       []string{},
	}
	switch {
	case s.Judgment == JudgmentSentenced:
		v.Actions = append(v.Actions, ActionFree)
	case s.Judgment.adjustable():
		v.Actions = append(v.Actions, ActionSafe, ActionReckless)
	}
	return v
}

// AdminStats counts entries per displayed judgment
type AdminStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Safe      int `json:"safe"`
	Reckless  int `json:"reckless"`
	Sentenced int `json:"sentenced"`
	Free      int `json:"free"`
	Unsaved   int `json:"unsaved"`
}

func computeStats(entries []Submission, unsaved int) AdminStats {
	st := AdminStats{Total: len(entries), Unsaved: unsaved}
	for i := range entries {
		switch entries[i].Judgment {
		case JudgmentPending:
			st.Pending++
		case JudgmentSafe:
			st.Safe++
		case JudgmentReckless:
			st.Reckless++
		case JudgmentSentenced:
			st.Sentenced++
		case JudgmentFree:
			st.Free++
		}
	}
	return st
}

// AdminView is the admin screen
type AdminView struct {
	Filter  Filter      `json:"filter"`
	Page    int         `json:"page"`
	Pages   int         `json:"pages"`
	Matched int         `json:"matched"`
	Entries []EntryView `json:"entries"`
	Stats   AdminStats  `json:"stats"`
}

// CourtStats summarizes the sentencing queue
type CourtStats struct {
	InQueue          int `json:"inQueue"`
	AwaitingSentence int `json:"awaitingSentence"`
	Sentenced        int `json:"sentenced"`
}

// CourtView is the court screen
type CourtView struct {
	TypeFilter   Filter      `json:"typeFilter"`
	Queue        []EntryView `json:"queue"`
	Stats        CourtStats  `json:"stats"`
	Selected     *EntryView  `json:"selected,omitempty"`
	Sentences    []string    `json:"sentences"`
	CanSpin      bool        `json:"canSpin"`
	LastSpin     *SpinResult `json:"lastSpin,omitempty"`
	SpinDuration int64       `json:"spinDurationMs"`
}

// parseTypeFilter accepts all or a submission type for the court queue
func parseTypeFilter(s string) (Filter, error) {
	if s == "" || s == string(FilterAll) {
		return FilterAll, nil
	}
	if SubmissionType(s).Valid() {
		return Filter(s), nil
	}
	return "", errors.New(fmt.Errorf("invalid type filter %q", s)).
		Component("court").
		Category(errors.CategoryValidation).
		Build()
}

// paginate returns page p (1-based, clamped) of n items with the given size
func paginate(n, size, p int) (start, end, page, pages int) {
	if size <= 0 {
		size = n
	}
	pages = 1
	if n > 0 && size > 0 {
		pages = (n + size - 1) / size
	}
	page = min(max(p, 1), pages)
	start = min((page-1)*size, n)
	end = min(start+size, n)
	return start, end, page, pages
}
