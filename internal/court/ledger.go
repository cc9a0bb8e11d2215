package court

import (
	"fmt"
	"maps"
	"slices"

	"github.com/tphakala/reckless-court/internal/errors"
)

// Ledger is the two-phase judgment record: the confirmed collection plus an
// overlay of unsaved judgment changes. The displayed judgment of an entry is
// its overlay value when present. Not safe for concurrent use.
type Ledger struct {
	entries []Submission
	index   map[int]int // id -> position in entries
	pending map[int]Judgment
	saving  map[int]Judgment // values taken by a save that has not merged yet
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{
		index:   make(map[int]int),
		pending: make(map[int]Judgment),
		saving:  make(map[int]Judgment),
	}
}

// Load replaces the confirmed collection. Overlay entries survive when their
// id is still present and they still differ from the confirmed judgment, or
// while a save of them is in flight.
func (l *Ledger) Load(subs []Submission) {
	l.entries = make([]Submission, 0, len(subs))
	l.index = make(map[int]int, len(subs))
	for i := range subs {
		s := subs[i]
		if !s.Judgment.Valid() {
			s.Judgment = JudgmentPending
		}
		if pos, dup := l.index[s.ID]; dup {
			// last row wins for duplicate ids
			l.entries[pos] = s
			continue
		}
		l.index[s.ID] = len(l.entries)
		l.entries = append(l.entries, s)
	}

	for id, j := range l.pending {
		pos, ok := l.index[id]
		if _, inFlight := l.saving[id]; ok && inFlight {
			continue
		}
		if !ok || l.entries[pos].Judgment == j || !l.entries[pos].Judgment.adjustable() {
			delete(l.pending, id)
		}
	}
}

// Add appends a new entry to the confirmed collection
func (l *Ledger) Add(s Submission) {
	if pos, ok := l.index[s.ID]; ok {
		l.entries[pos] = s
		return
	}
	l.index[s.ID] = len(l.entries)
	l.entries = append(l.entries, s)
}

// Len returns the number of entries
func (l *Ledger) Len() int {
	return len(l.entries)
}

// NextID returns max id + 1, or 1 for an empty collection
func (l *Ledger) NextID() int {
	maxID := 0
	for i := range l.entries {
		maxID = max(maxID, l.entries[i].ID)
	}
	return maxID + 1
}

// Get returns the entry with its displayed judgment
func (l *Ledger) Get(id int) (Submission, bool) {
	pos, ok := l.index[id]
	if !ok {
		return Submission{}, false
	}
	s := l.entries[pos]
	if j, ok := l.pending[id]; ok {
		s.Judgment = j
	}
	return s, true
}

// Entries returns a copy of the collection with displayed judgments, in load order
func (l *Ledger) Entries() []Submission {
	out := make([]Submission, len(l.entries))
	for i := range l.entries {
		out[i] = l.entries[i]
		if j, ok := l.pending[out[i].ID]; ok {
			out[i].Judgment = j
		}
	}
	return out
}

// Confirmed returns a copy of the confirmed collection, ignoring the overlay
func (l *Ledger) Confirmed() []Submission {
	return slices.Clone(l.entries)
}

// HasPending reports whether id has an unsaved change
func (l *Ledger) HasPending(id int) bool {
	_, ok := l.pending[id]
	return ok
}

// SetJudgment records an unsaved judgment. Only pending, safe or reckless
// entries may be set, and only to safe or reckless. Setting the confirmed
// value drops the overlay entry, unless a save of the entry is in flight:
// the confirmed value is about to change, so the overlay is kept for Merge.
func (l *Ledger) SetJudgment(id int, j Judgment) error {
	if j != JudgmentSafe && j != JudgmentReckless {
		return errors.Newf("judgment must be safe or reckless, got %q", j).
			Component("court").
			Category(errors.CategoryValidation).
			Context("id", id).
			Build()
	}

	current, ok := l.Get(id)
	if !ok {
		return notFound(id)
	}
	if !current.Judgment.adjustable() {
		return errors.Newf("entry #%d is %s and cannot be judged %s", id, current.Judgment, j).
			Component("court").
			Category(errors.CategoryState).
			Context("id", id).
			Context("judgment", string(current.Judgment)).
			Build()
	}

	_, inFlight := l.saving[id]
	if !inFlight && l.entries[l.index[id]].Judgment == j {
		delete(l.pending, id)
		return nil
	}
	l.pending[id] = j
	return nil
}

// PendingChanges returns the overlay sorted by id
func (l *Ledger) PendingChanges() []JudgmentChange {
	ids := slices.Sorted(maps.Keys(l.pending))
	changes := make([]JudgmentChange, 0, len(ids))
	for _, id := range ids {
		changes = append(changes, JudgmentChange{ID: id, Judgment: l.pending[id]})
	}
	return changes
}

// BeginSave marks changes as taken by a save. Until Merge or AbortSave,
// edits of those entries stay in the overlay.
func (l *Ledger) BeginSave(changes []JudgmentChange) {
	for _, c := range changes {
		l.saving[c.ID] = c.Judgment
	}
}

// AbortSave forgets a save that will not be merged
func (l *Ledger) AbortSave(changes []JudgmentChange) {
	for _, c := range changes {
		delete(l.saving, c.ID)
	}
}

// Merge moves the given changes into the confirmed collection and clears
// their overlay entries. An overlay entry edited to a different value since
// the changes were taken is left in place.
func (l *Ledger) Merge(changes []JudgmentChange) {
	for _, c := range changes {
		delete(l.saving, c.ID)
		pos, ok := l.index[c.ID]
		if !ok {
			continue
		}
		l.entries[pos].Judgment = c.Judgment
		if l.pending[c.ID] == c.Judgment {
			delete(l.pending, c.ID)
		}
	}
}

// Confirm writes a judgment and sentence straight to the confirmed
// collection, bypassing and clearing the overlay.
func (l *Ledger) Confirm(id int, j Judgment, sentence string) error {
	pos, ok := l.index[id]
	if !ok {
		return notFound(id)
	}
	l.entries[pos].Judgment = j
	l.entries[pos].Sentence = sentence
	delete(l.pending, id)
	return nil
}

func notFound(id int) error {
	return errors.New(fmt.Errorf("entry #%d not found", id)).
		Component("court").
		Category(errors.CategoryNotFound).
		Context("id", id).
		Build()
}
