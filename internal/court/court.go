package court

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tphakala/reckless-court/internal/errors"
	"github.com/tphakala/reckless-court/internal/logger"
)

// DefaultPageSize is the admin listing page size when none is configured
const DefaultPageSize = 50

// Court is the application state shared by the intake, admin and court
// screens. All methods are safe for concurrent use; remote calls run
// outside the state lock.
type Court struct {
	mu sync.Mutex

	store    Store // nil runs on the fallback store alone
	fallback Fallback
	recorder Recorder
	log      logger.Logger
	now      func() time.Time

	ledger    *Ledger
	sentences *SentenceList
	seed      []string
	wheel     *Wheel
	pageSize  int

	selected int // id of the case at the bench, 0 for none
	lastSpin *SpinResult

	rand         Rand
	minTurns     int
	spinDuration time.Duration
}

// Option configures a Court
type Option func(*Court)

// WithClock sets the time source used for submission dates
func WithClock(now func() time.Time) Option {
	return func(c *Court) { c.now = now }
}

// WithRand sets the wheel's randomness source
func WithRand(r Rand) Option {
	return func(c *Court) { c.rand = r }
}

// WithWheel sets the minimum number of full turns and the reported animation length
func WithWheel(minTurns int, duration time.Duration) Option {
	return func(c *Court) {
		c.minTurns = minTurns
		c.spinDuration = duration
	}
}

// WithSeedSentences sets the list used when no sentences are persisted
func WithSeedSentences(seed []string) Option {
	return func(c *Court) { c.seed = slices.Clone(seed) }
}

// WithPageSize sets the admin listing page size
func WithPageSize(n int) Option {
	return func(c *Court) { c.pageSize = n }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(c *Court) { c.log = l }
}

// WithRecorder sets the outcome recorder
func WithRecorder(r Recorder) Option {
	return func(c *Court) { c.recorder = r }
}

// New creates a Court. store may be nil, in which case every write goes to
// the fallback store.
func New(store Store, fallback Fallback, opts ...Option) (*Court, error) {
	if fallback == nil {
		return nil, errors.Newf("court requires a fallback store").
			Component("court").
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &Court{
		store:     store,
		fallback:  fallback,
		recorder:  nopRecorder{},
		now:       time.Now,
		ledger:    NewLedger(),
		sentences: NewSentenceList(nil),
		pageSize:  DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Global().Module("court")
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	c.wheel = NewWheel(c.rand, c.minTurns, c.spinDuration)

	return c, nil
}

// Init loads the sentence list and the submissions
func (c *Court) Init(ctx context.Context) (Notice, error) {
	c.loadSentences(ctx)
	return c.Reload(ctx)
}

func (c *Court) loadSentences(ctx context.Context) {
	items, found, err := c.fallback.LoadSentences(ctx)
	if err != nil {
		c.log.Warn("failed to load sentences, using seed list", logger.Error(err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil && found {
		c.sentences = NewSentenceList(items)
		return
	}

	c.sentences = NewSentenceList(c.seed)
	if err == nil {
		c.persistSentencesLocked(ctx)
	}
}

// Remote reports whether a remote store is configured
func (c *Court) Remote() bool {
	return c.store != nil
}

// Reload replaces the collection from the remote store, or from the local
// snapshot when the remote cannot be read.
func (c *Court) Reload(ctx context.Context) (Notice, error) {
	var notice Notice

	var subs []Submission
	var err error
	if c.store != nil {
		subs, err = c.store.GetSubmissions(WithFreshRead(ctx))
	}

	switch {
	case c.store != nil && err == nil:
		notice = success(fmt.Sprintf("Loaded %d submissions", len(subs)))
	default:
		if err != nil {
			c.log.Warn("failed to load submissions from remote store, restoring local snapshot", logger.Error(err))
		}
		var restoreErr error
		subs, restoreErr = c.fallback.Restore(ctx)
		if restoreErr != nil {
			c.log.Error("failed to restore local snapshot", logger.Error(restoreErr))
			if err != nil {
				return Notice{}, errors.Join(err, restoreErr)
			}
			return Notice{}, restoreErr
		}
		if c.store == nil {
			notice = info(fmt.Sprintf("Loaded %d submissions from the local store", len(subs)))
		} else {
			notice = warning("Error loading submissions from the court record, using local fallback")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.ledger.Load(subs)
	if c.selected != 0 && !c.inQueueLocked(c.selected) {
		c.clearSelectionLocked()
	}

	c.log.Info("submissions loaded", logger.Int("count", len(subs)), logger.String("level", string(notice.Level)))
	return notice, nil
}

// SubmitResult reports the created entry and how far its write got
type SubmitResult struct {
	Submission Submission `json:"submission"`
	Outcome    Outcome    `json:"outcome"`
	Notice     Notice     `json:"notice"`
}

// Submit validates and records a new pending submission
func (c *Court) Submit(ctx context.Context, name, message string, typ SubmissionType) (SubmitResult, error) {
	name = strings.TrimSpace(name)
	message = strings.TrimSpace(message)
	switch {
	case name == "":
		return SubmitResult{}, errors.ValidationError("name is required")
	case message == "":
		return SubmitResult{}, errors.ValidationError("message is required")
	case !typ.Valid():
		return SubmitResult{}, errors.Newf("invalid submission type %q", typ).
			Component("court").
			Category(errors.CategoryValidation).
			Build()
	}

	c.mu.Lock()
	sub := Submission{
		ID:       c.ledger.NextID(),
		Name:     name,
		Message:  message,
		Type:     typ,
		Date:     c.now().UTC(),
		Judgment: JudgmentPending,
	}
	c.mu.Unlock()

	var remoteID int
	err := errNoRemote
	if c.store != nil {
		remoteID, err = c.store.AddSubmission(ctx, NewSubmission{Name: name, Message: message, Type: typ, Date: sub.Date})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, taken := c.ledger.Get(sub.ID); taken {
		sub.ID = c.ledger.NextID()
	}

	if err == nil {
		if _, taken := c.ledger.Get(remoteID); remoteID > 0 && !taken {
			sub.ID = remoteID
		}
		c.ledger.Add(sub)
		c.recorder.RecordOutcome("submit", OutcomeConfirmed)
		c.log.Info("submission recorded", logger.Int("id", sub.ID), logger.String("type", string(typ)))
		return SubmitResult{Submission: sub, Outcome: OutcomeConfirmed, Notice: success("Submission received by the court!")}, nil
	}

	c.logRemoteFailure("add submission", err)
	// the entry is only recorded once it is safe somewhere
	if snapErr := c.snapshotLocked(ctx, append(c.ledger.Confirmed(), sub)); snapErr != nil {
		return SubmitResult{}, snapErr
	}
	c.ledger.Add(sub)
	c.recorder.RecordOutcome("submit", OutcomeLocal)
	return SubmitResult{
		Submission: sub,
		Outcome:    OutcomeLocal,
		Notice:     warning("Court record unreachable; submission saved locally"),
	}, nil
}

// SetJudgment records an unsaved safe or reckless judgment
func (c *Court) SetJudgment(id int, j Judgment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.SetJudgment(id, j)
}

// MarkAll sets j on every entry visible under filter that may still be
// judged, and returns how many entries changed.
func (c *Court) MarkAll(filter Filter, j Judgment) (int, Notice, error) {
	if j != JudgmentSafe && j != JudgmentReckless {
		return 0, Notice{}, errors.Newf("judgment must be safe or reckless, got %q", j).
			Component("court").
			Category(errors.CategoryValidation).
			Build()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	marked := 0
	for _, s := range c.ledger.Entries() {
		if !filter.Match(&s) || !s.Judgment.adjustable() || s.Judgment == j {
			continue
		}
		if err := c.ledger.SetJudgment(s.ID, j); err != nil {
			return marked, Notice{}, err
		}
		marked++
	}

	if marked == 0 {
		return 0, info("No entries to mark"), nil
	}
	return marked, success(fmt.Sprintf("Marked %d entries as %s", marked, JudgmentLabel(j))), nil
}

// PendingChanges returns the unsaved judgment changes sorted by id
func (c *Court) PendingChanges() []JudgmentChange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.PendingChanges()
}

// SaveResult reports a batch save
type SaveResult struct {
	SavedCount int     `json:"savedCount"`
	Outcome    Outcome `json:"outcome"`
	Notice     Notice  `json:"notice"`
}

// Save writes the unsaved judgment changes in one batch. When the
// confirming write fails it is retried once without confirmation; when that
// fails too the changes are kept in the local snapshot.
func (c *Court) Save(ctx context.Context) (SaveResult, error) {
	c.mu.Lock()
	changes := c.ledger.PendingChanges()
	c.ledger.BeginSave(changes)
	c.mu.Unlock()
	if len(changes) == 0 {
		return SaveResult{Outcome: OutcomeNoop, Notice: info("No changes to save")}, nil
	}

	outcome := OutcomeLocal
	if c.store != nil {
		if _, err := c.store.UpdateJudgments(ctx, changes); err == nil {
			outcome = OutcomeConfirmed
		} else {
			c.logRemoteFailure("update judgments", err)
			if sendErr := c.store.SendJudgments(ctx, changes); sendErr == nil {
				outcome = OutcomeUnconfirmed
			} else {
				c.logRemoteFailure("send judgments", sendErr)
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if outcome == OutcomeLocal {
		snapshot := c.ledger.Confirmed()
		applyChanges(snapshot, changes)
		if err := c.snapshotLocked(ctx, snapshot); err != nil {
			c.ledger.AbortSave(changes)
			return SaveResult{}, err
		}
	}
	c.ledger.Merge(changes)
	c.recorder.RecordOutcome("save", outcome)

	n := len(changes)
	res := SaveResult{SavedCount: n, Outcome: outcome}
	switch outcome {
	case OutcomeConfirmed:
		res.Notice = success(fmt.Sprintf("Successfully saved %d judgment changes!", n))
	case OutcomeUnconfirmed:
		res.Notice = warning(fmt.Sprintf("Sent %d judgment changes; the court record did not confirm them", n))
	default:
		res.Notice = warning(fmt.Sprintf("Court record unreachable; saved %d judgment changes locally", n))
	}
	c.log.Info("judgments saved", logger.Int("count", n), logger.String("outcome", string(outcome)))
	return res, nil
}

// ActionResult reports an immediate single-entry write
type ActionResult struct {
	Submission Submission `json:"submission"`
	Outcome    Outcome    `json:"outcome"`
	Notice     Notice     `json:"notice"`
}

// SetFree frees a sentenced entry. The write is immediate and the local
// state changes whatever the write result.
func (c *Court) SetFree(ctx context.Context, id int) (ActionResult, error) {
	c.mu.Lock()
	s, ok := c.ledger.Get(id)
	c.mu.Unlock()
	if !ok {
		return ActionResult{}, notFound(id)
	}
	if s.Judgment != JudgmentSentenced {
		return ActionResult{}, errors.StateError(fmt.Sprintf("entry #%d is %s; only sentenced entries can be set free", id, s.Judgment))
	}

	err := errNoRemote
	if c.store != nil {
		err = c.store.UpdateJudgmentToFree(ctx, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cErr := c.ledger.Confirm(id, JudgmentFree, ""); cErr != nil {
		return ActionResult{}, cErr
	}
	s, _ = c.ledger.Get(id)

	if err == nil {
		c.recorder.RecordOutcome("free", OutcomeConfirmed)
		return ActionResult{Submission: s, Outcome: OutcomeConfirmed, Notice: success(fmt.Sprintf("Entry #%d has been set FREE!", id))}, nil
	}

	c.logRemoteFailure("set free", err)
	if snapErr := c.snapshotLocked(ctx, c.ledger.Confirmed()); snapErr != nil {
		c.log.Error("failed to snapshot after free", logger.Error(snapErr))
	}
	c.recorder.RecordOutcome("free", OutcomeLocal)
	return ActionResult{
		Submission: s,
		Outcome:    OutcomeLocal,
		Notice:     warning(fmt.Sprintf("Entry #%d set free locally; the court record was not updated", id)),
	}, nil
}

// Queue returns the entries awaiting sentence, ordered by id
func (c *Court) Queue() []Submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queueLocked()
}

func (c *Court) queueLocked() []Submission {
	var queue []Submission
	for _, s := range c.ledger.Entries() {
		if s.Judgment == JudgmentReckless {
			queue = append(queue, s)
		}
	}
	slices.SortFunc(queue, func(a, b Submission) int { return a.ID - b.ID })
	return queue
}

func (c *Court) inQueueLocked(id int) bool {
	s, ok := c.ledger.Get(id)
	return ok && s.Judgment == JudgmentReckless
}

// SelectCase brings a queued case to the bench
func (c *Court) SelectCase(id int) (Submission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.ledger.Get(id)
	if !ok {
		return Submission{}, notFound(id)
	}
	if s.Judgment != JudgmentReckless {
		return Submission{}, errors.StateError(fmt.Sprintf("entry #%d is not awaiting sentence", id))
	}
	if c.selected != id {
		c.lastSpin = nil
	}
	c.selected = id
	return s, nil
}

// Spin spins the wheel for the selected case
func (c *Court) Spin() (SpinResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected == 0 || !c.inQueueLocked(c.selected) {
		return SpinResult{}, errors.StateError("select a case before spinning the wheel")
	}
	res, err := c.wheel.Spin(c.sentences.Items())
	if err != nil {
		return SpinResult{}, err
	}
	c.lastSpin = &res
	c.log.Debug("wheel spun", logger.Int("case", c.selected), logger.Int("index", res.Index), logger.Int("turns", res.Turns))
	return res, nil
}

// Commit closes the selected case as safe or sentenced. Both need a
// sentence text; only sentenced keeps it.
func (c *Court) Commit(ctx context.Context, j Judgment, text string) (ActionResult, error) {
	if j != JudgmentSafe && j != JudgmentSentenced {
		return ActionResult{}, errors.Newf("judgment must be safe or sentenced, got %q", j).
			Component("court").
			Category(errors.CategoryValidation).
			Build()
	}

	c.mu.Lock()
	id := c.selected
	inQueue := id != 0 && c.inQueueLocked(id)
	c.mu.Unlock()

	if !inQueue {
		return ActionResult{}, errors.StateError("no case selected")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ActionResult{}, errors.ValidationError(fmt.Sprintf("please enter a sentence before marking as %s", j))
	}

	sentence := ""
	if j == JudgmentSentenced {
		sentence = text
	}

	err := errNoRemote
	if c.store != nil {
		err = c.store.UpdateJudgmentWithSentence(ctx, id, j, sentence)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cErr := c.ledger.Confirm(id, j, sentence); cErr != nil {
		return ActionResult{}, cErr
	}
	if c.selected == id {
		c.clearSelectionLocked()
	}
	s, _ := c.ledger.Get(id)

	if err == nil {
		c.recorder.RecordOutcome("commit", OutcomeConfirmed)
		c.log.Info("case closed", logger.Int("id", id), logger.String("judgment", string(j)))
		return ActionResult{Submission: s, Outcome: OutcomeConfirmed, Notice: success(fmt.Sprintf("Case marked as %s!", JudgmentLabel(j)))}, nil
	}

	c.logRemoteFailure("commit judgment", err)
	if snapErr := c.snapshotLocked(ctx, c.ledger.Confirmed()); snapErr != nil {
		c.log.Error("failed to snapshot after commit", logger.Error(snapErr))
	}
	c.recorder.RecordOutcome("commit", OutcomeLocal)
	return ActionResult{
		Submission: s,
		Outcome:    OutcomeLocal,
		Notice:     warning(fmt.Sprintf("Case marked as %s locally; the court record was not updated", JudgmentLabel(j))),
	}, nil
}

func (c *Court) clearSelectionLocked() {
	c.selected = 0
	c.lastSpin = nil
}

// TestConnection reads the remote collection and reports its size
func (c *Court) TestConnection(ctx context.Context) (int, error) {
	if c.store == nil {
		return 0, errors.StateError("no remote store configured")
	}
	subs, err := c.store.GetSubmissions(WithFreshRead(ctx))
	if err != nil {
		return 0, err
	}
	return len(subs), nil
}

// AdminView returns one page of the entries matching filter
func (c *Court) AdminView(filter Filter, page int) AdminView {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.ledger.Entries()
	var matched []EntryView
	for _, s := range entries {
		if filter.Match(&s) {
			matched = append(matched, newEntryView(s, c.ledger.HasPending(s.ID)))
		}
	}

	start, end, page, pages := paginate(len(matched), c.pageSize, page)
	return AdminView{
		Filter:  filter,
		Page:    page,
		Pages:   pages,
		Matched: len(matched),
		Entries: append([]EntryView{}, matched[start:end]...),
		Stats:   computeStats(entries, len(c.ledger.PendingChanges())),
	}
}

// Stats counts entries per displayed judgment
func (c *Court) Stats() AdminStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return computeStats(c.ledger.Entries(), len(c.ledger.PendingChanges()))
}

// CourtView returns the court screen, with the queue filtered by type
func (c *Court) CourtView(typeFilter string) (CourtView, error) {
	filter, err := parseTypeFilter(typeFilter)
	if err != nil {
		return CourtView{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	queue := c.queueLocked()
	view := CourtView{
		TypeFilter:   filter,
		Queue:        []EntryView{},
		Sentences:    c.sentences.Items(),
		SpinDuration: c.wheel.duration.Milliseconds(),
	}
	for _, s := range queue {
		if filter.Match(&s) {
			view.Queue = append(view.Queue, newEntryView(s, c.ledger.HasPending(s.ID)))
		}
	}
	view.Stats = CourtStats{
		InQueue:          len(queue),
		AwaitingSentence: len(view.Queue),
		Sentenced:        computeStats(c.ledger.Entries(), 0).Sentenced,
	}
	if c.selected != 0 {
		if s, ok := c.ledger.Get(c.selected); ok {
			ev := newEntryView(s, false)
			view.Selected = &ev
		}
	}
	view.CanSpin = view.Selected != nil && c.sentences.Len() > 0
	if c.lastSpin != nil {
		spin := *c.lastSpin
		view.LastSpin = &spin
	}
	return view, nil
}

// Sentences returns the wheel's sentence list
func (c *Court) Sentences() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sentences.Items()
}

// ReplaceSentences sets the sentence list from a newline separated block
func (c *Court) ReplaceSentences(ctx context.Context, text string) (Notice, error) {
	return c.editSentences(ctx, func(s *SentenceList) (Notice, error) {
		n, err := s.Replace(text)
		if err != nil {
			return Notice{}, err
		}
		return success(fmt.Sprintf("Updated wheel with %d sentences!", n)), nil
	})
}

// AddSentence appends one sentence
func (c *Court) AddSentence(ctx context.Context, sentence string) (Notice, error) {
	return c.editSentences(ctx, func(s *SentenceList) (Notice, error) {
		if err := s.Append(sentence); err != nil {
			return Notice{}, err
		}
		return success("Sentence added to the wheel"), nil
	})
}

// EditSentence replaces the sentence at index
func (c *Court) EditSentence(ctx context.Context, index int, sentence string) (Notice, error) {
	return c.editSentences(ctx, func(s *SentenceList) (Notice, error) {
		if err := s.Edit(index, sentence); err != nil {
			return Notice{}, err
		}
		return success("Sentence updated"), nil
	})
}

// RemoveSentence deletes the sentence at index
func (c *Court) RemoveSentence(ctx context.Context, index int) (Notice, error) {
	return c.editSentences(ctx, func(s *SentenceList) (Notice, error) {
		if err := s.Remove(index); err != nil {
			return Notice{}, err
		}
		return success("Sentence removed from the wheel"), nil
	})
}

// MoveSentence moves the sentence at from to position to
func (c *Court) MoveSentence(ctx context.Context, from, to int) (Notice, error) {
	return c.editSentences(ctx, func(s *SentenceList) (Notice, error) {
		if err := s.Move(from, to); err != nil {
			return Notice{}, err
		}
		return success("Sentence moved"), nil
	})
}

// ClearSentences empties the sentence list
func (c *Court) ClearSentences(ctx context.Context) (Notice, error) {
	return c.editSentences(ctx, func(s *SentenceList) (Notice, error) {
		if !s.Clear() {
			return info("No sentences to clear"), errUnchanged
		}
		return success("All sentences cleared from wheel!"), nil
	})
}

// errUnchanged tells editSentences there is nothing to persist
var errUnchanged = errors.NewStd("unchanged")

// errNoRemote stands in for a remote write when no store is configured
var errNoRemote = errors.NewStd("no remote store configured")

func (c *Court) editSentences(ctx context.Context, edit func(*SentenceList) (Notice, error)) (Notice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	notice, err := edit(c.sentences)
	if errors.Is(err, errUnchanged) {
		return notice, nil
	}
	if err != nil {
		return Notice{}, err
	}
	if !c.persistSentencesLocked(ctx) {
		notice = warning(notice.Message + " (not saved locally)")
	}
	return notice, nil
}

func (c *Court) persistSentencesLocked(ctx context.Context) bool {
	if err := c.fallback.SaveSentences(ctx, c.sentences.Items()); err != nil {
		c.log.Error("failed to save sentences", logger.Error(err))
		return false
	}
	return true
}

func (c *Court) snapshotLocked(ctx context.Context, subs []Submission) error {
	if err := c.fallback.Snapshot(ctx, subs); err != nil {
		c.log.Error("failed to snapshot submissions", logger.Error(err), logger.Int("count", len(subs)))
		return errors.New(err).
			Component("court").
			Category(errors.CategoryDatabase).
			Context("operation", "snapshot").
			Build()
	}
	return nil
}

func (c *Court) logRemoteFailure(op string, err error) {
	if errors.Is(err, errNoRemote) {
		return
	}
	c.log.Warn("remote write failed", logger.String("operation", op), logger.Error(err))
}

func applyChanges(subs []Submission, changes []JudgmentChange) {
	byID := make(map[int]Judgment, len(changes))
	for _, ch := range changes {
		byID[ch.ID] = ch.Judgment
	}
	for i := range subs {
		if j, ok := byID[subs[i].ID]; ok {
			subs[i].Judgment = j
		}
	}
}
