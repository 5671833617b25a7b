// Package session keeps the client-side view of a trial-matching session
// consistent with the remote service.
//
// A Coordinator owns the session State. Presentation reads Snapshot and
// issues commands; it never touches the caches directly.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rcliao/trialscout/internal/model"
)

// Remote is the trial-matching service as seen by a session.
type Remote interface {
	DetailSource
	SavedRemote
	UploadTranscript(ctx context.Context, transcript string) (*model.ClinicalNotes, error)
	ClinicalNotes(ctx context.Context, clinicalNotesID string) (*model.ClinicalNotes, error)
	Ranking(ctx context.Context, clinicalNotesID string) ([]model.TrialRanking, error)
	AskAI(ctx context.Context, clinicalNotesID, nctID, query string) (*model.AIAnswer, error)
}

// LoadResult is returned by a successful session load.
type LoadResult struct {
	Notes model.ClinicalNotes `json:"notes"`
	// SyncErr is set when the saved set could not be refreshed. The session
	// is usable; saved membership starts empty.
	SyncErr error `json:"-"`
}

// Coordinator composes the per-session caches behind one command surface.
// It is safe for concurrent use.
type Coordinator struct {
	remote Remote
	logger *slog.Logger

	mu        sync.Mutex
	gen       uint64
	cur       *State
	observers []func(int)
}

// NewCoordinator creates a coordinator with no session loaded.
func NewCoordinator(remote Remote, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{remote: remote, logger: logger}
}

// OnSavedCountChanged registers fn to be called with the saved count after
// every settled save/remove and after each session load or refresh.
func (c *Coordinator) OnSavedCountChanged(fn func(int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// LoadSession uploads transcript and replaces the whole session with the
// result. When the upload fails the previous session is left as it was.
func (c *Coordinator) LoadSession(ctx context.Context, transcript string) (*LoadResult, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrEmptyTranscript
	}
	notes, err := c.remote.UploadTranscript(ctx, transcript)
	if err != nil {
		return nil, err
	}
	return c.install(ctx, *notes), nil
}

// ResumeSession replaces the session with previously uploaded notes.
func (c *Coordinator) ResumeSession(ctx context.Context, clinicalNotesID string) (*LoadResult, error) {
	notes, err := c.remote.ClinicalNotes(ctx, clinicalNotesID)
	if err != nil {
		return nil, err
	}
	return c.install(ctx, *notes), nil
}

func (c *Coordinator) install(ctx context.Context, notes model.ClinicalNotes) *LoadResult {
	c.mu.Lock()
	c.gen++
	s := newState(c.gen, notes, c.remote)
	c.cur = s
	c.mu.Unlock()

	c.logger.Info("session loaded",
		slog.String("clinical_notes_id", notes.ClinicalNotesID),
		slog.Int("trials", len(notes.Trials)),
		slog.Uint64("generation", s.gen))

	res := &LoadResult{Notes: notes}
	if err := c.syncSaved(ctx, s); err != nil {
		c.logger.Warn("saved trials sync failed", slog.String("error", err.Error()))
		res.SyncErr = err
	}
	return res
}

// Reset drops the current session.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.cur = nil
}

// ViewDetail opens nctID, fetching its detail when needed, or closes it
// when it is already the open record. Closing returns a nil detail. A
// repeat call while the open record is still loading joins that fetch
// instead of closing it.
func (c *Coordinator) ViewDetail(ctx context.Context, nctID string) (*model.TrialDetail, error) {
	s, err := c.session(nctID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if s.expanded == nctID {
		if state, _ := s.details.Status(nctID); state != Loading {
			s.expanded = ""
			c.mu.Unlock()
			return nil, nil
		}
	}
	s.expanded = nctID
	s.details.markLoading(nctID)
	c.mu.Unlock()

	d, err := s.details.GetOrFetch(ctx, nctID)
	if err != nil {
		return nil, err
	}
	s.saved.RememberDetail(d)
	return &d, nil
}

// CloseDetail collapses the open record, if any.
func (c *Coordinator) CloseDetail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != nil {
		c.cur.expanded = ""
	}
}

// Detail fetches the detail of nctID without changing which record is open.
func (c *Coordinator) Detail(ctx context.Context, nctID string) (*model.TrialDetail, error) {
	s, err := c.session(nctID)
	if err != nil {
		return nil, err
	}
	d, err := s.details.GetOrFetch(ctx, nctID)
	if err != nil {
		return nil, err
	}
	s.saved.RememberDetail(d)
	return &d, nil
}

// DetailStatus returns the load state of nctID and its last error.
func (c *Coordinator) DetailStatus(nctID string) (LoadState, error) {
	s, err := c.session(nctID)
	if err != nil {
		return Idle, err
	}
	return s.details.Status(nctID)
}

// AskQuestion asks about nctID and keeps the answer, replacing any earlier
// one. Only one question per trial may be in flight.
func (c *Coordinator) AskQuestion(ctx context.Context, nctID, query string) (*model.AIAnswer, error) {
	s, err := c.session(nctID)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	c.mu.Lock()
	e, ok := s.asks[nctID]
	if !ok {
		e = &askEntry{}
		s.asks[nctID] = e
	}
	if e.state == Asking {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: ask %s", ErrAlreadyPending, nctID)
	}
	e.state = Asking
	e.err = nil
	c.mu.Unlock()

	ans, err := c.remote.AskAI(ctx, s.notes.ClinicalNotesID, nctID, query)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		// The previous answer, if any, stays readable.
		e.state = AskFailed
		e.err = err
		return nil, err
	}
	e.state = Answered
	e.answer = *ans
	if e.answer.NCTID == "" {
		e.answer.NCTID = nctID
	}
	return ans, nil
}

// Answer returns the latest answer for nctID.
func (c *Coordinator) Answer(nctID string) (model.AIAnswer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return model.AIAnswer{}, false
	}
	e, ok := c.cur.asks[nctID]
	if !ok || e.answer.NCTID == "" {
		return model.AIAnswer{}, false
	}
	return e.answer, true
}

// AskStatus returns the ask state of nctID and its last error.
func (c *Coordinator) AskStatus(nctID string) (AskState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return AskIdle, ErrNoSession
	}
	e, ok := c.cur.asks[nctID]
	if !ok {
		return AskIdle, nil
	}
	return e.state, e.err
}

// SetSearch sets the nct_id filter applied to the displayed list.
func (c *Coordinator) SetSearch(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != nil {
		c.cur.search = query
	}
}

// Search returns the active filter.
func (c *Coordinator) Search() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return ""
	}
	return c.cur.search
}

// ToggleRanking switches between the base and ranked lists, fetching the
// ranking the first time it is shown.
func (c *Coordinator) ToggleRanking(ctx context.Context) (Display, error) {
	s, err := c.current()
	if err != nil {
		return Base, err
	}
	d, err := s.ranking.Request(ctx)
	if err != nil {
		return d, err
	}

	c.mu.Lock()
	for _, r := range s.ranking.Ranking() {
		s.known[r.NCTID] = struct{}{}
	}
	c.mu.Unlock()
	return d, nil
}

// SaveOrRemove toggles saved membership of nctID and reports whether it is
// saved once the call settles.
func (c *Coordinator) SaveOrRemove(ctx context.Context, nctID string) (bool, error) {
	s, err := c.session(nctID)
	if err != nil {
		return false, err
	}
	saved, err := s.saved.Toggle(ctx, nctID)
	if saved {
		if d, ok := s.details.Detail(nctID); ok {
			s.saved.RememberDetail(d)
		}
	}
	c.notify(s)
	return saved, err
}

// RemoveSaved drops nctID from the saved set.
func (c *Coordinator) RemoveSaved(ctx context.Context, nctID string) error {
	s, err := c.session(nctID)
	if err != nil {
		return err
	}
	err = s.saved.Remove(ctx, nctID)
	c.notify(s)
	return err
}

// RefreshSaved re-reads the saved set from the service.
func (c *Coordinator) RefreshSaved(ctx context.Context) error {
	s, err := c.current()
	if err != nil {
		return err
	}
	return c.syncSaved(ctx, s)
}

// SavedTrials returns the saved trials for the saved listing.
func (c *Coordinator) SavedTrials() []model.TrialDetail {
	s, err := c.current()
	if err != nil {
		return nil
	}
	return s.saved.Details()
}

// SavedCount returns the number of saved trials.
func (c *Coordinator) SavedCount() int {
	s, err := c.current()
	if err != nil {
		return 0
	}
	return s.saved.Count()
}

// Snapshot returns the displayed view: the active list filtered by the
// search string, with per-row status.
func (c *Coordinator) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.cur
	if s == nil {
		return View{Rows: []Row{}}
	}

	rs := s.ranking.Status()
	v := View{
		ClinicalNotesID: s.notes.ClinicalNotesID,
		Patient:         s.notes.PatientData,
		Display:         rs.Display,
		RankingLoading:  rs.Loading,
		Search:          s.search,
		Expanded:        s.expanded,
		SavedCount:      s.saved.Count(),
	}

	if rs.Display == Ranked {
		ranking := s.ranking.Ranking()
		v.Total = len(ranking)
		for _, r := range Filter(ranking, s.search) {
			score := r.RelevanceScore
			row := c.row(s, r.NCTID)
			row.RelevanceScore = &score
			row.Explanation = r.Explanation
			v.Rows = append(v.Rows, row)
		}
	} else {
		v.Total = len(s.trials)
		for _, t := range Filter(s.trials, s.search) {
			v.Rows = append(v.Rows, c.row(s, t.NCTID))
		}
	}
	if v.Rows == nil {
		v.Rows = []Row{}
	}
	return v
}

// row builds the status row of one trial. Caller holds mu.
func (c *Coordinator) row(s *State, nctID string) Row {
	rec := s.byID[nctID]
	detail, _ := s.details.Status(nctID)
	row := Row{
		NCTID:         nctID,
		Conditions:    rec.Conditions,
		Interventions: rec.Interventions,
		Saved:         s.saved.Contains(nctID),
		Pending:       s.saved.Pending(nctID),
		Detail:        detail,
		Expanded:      s.expanded == nctID,
	}
	if e, ok := s.asks[nctID]; ok {
		row.Ask = e.state
	}
	return row
}

func (c *Coordinator) syncSaved(ctx context.Context, s *State) error {
	if err := s.saved.Sync(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	for _, id := range s.saved.Saved() {
		s.known[id] = struct{}{}
	}
	c.mu.Unlock()
	c.notify(s)
	return nil
}

// notify calls the saved-count observers, unless s has been superseded.
func (c *Coordinator) notify(s *State) {
	c.mu.Lock()
	if c.cur != s {
		c.mu.Unlock()
		return
	}
	observers := append([]func(int){}, c.observers...)
	c.mu.Unlock()

	n := s.saved.Count()
	for _, fn := range observers {
		fn(n)
	}
}

func (c *Coordinator) current() (*State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return nil, ErrNoSession
	}
	return c.cur, nil
}

// session returns the current state after checking that nctID belongs to it.
func (c *Coordinator) session(nctID string) (*State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return nil, ErrNoSession
	}
	if _, ok := c.cur.known[nctID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTrial, nctID)
	}
	return c.cur, nil
}
