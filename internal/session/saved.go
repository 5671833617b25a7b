package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rcliao/trialscout/internal/model"
)

// PendingState is the in-flight mutation for one saved-set member.
type PendingState int

const (
	NotPending PendingState = iota
	Saving
	Removing
)

func (p PendingState) String() string {
	switch p {
	case Saving:
		return "saving"
	case Removing:
		return "removing"
	default:
		return "idle"
	}
}

// MarshalText renders the state by name in JSON output.
func (p PendingState) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// SavedRemote is the server side of the saved set.
type SavedRemote interface {
	SaveTrial(ctx context.Context, nctID string) (*model.SaveResponse, error)
	RemoveSavedTrial(ctx context.Context, nctID string) (*model.SaveResponse, error)
	SavedTrials(ctx context.Context) ([]model.TrialDetail, error)
}

// SavedSetTracker mirrors the server's saved-trial set and applies
// save/remove optimistically. A failed call restores the exact membership
// seen before it was issued.
type SavedSetTracker struct {
	remote SavedRemote

	mu      sync.Mutex
	ids     map[string]struct{}
	details map[string]model.TrialDetail
	order   []string
	pending map[string]PendingState
}

// NewSavedSetTracker creates an empty tracker over remote.
func NewSavedSetTracker(remote SavedRemote) *SavedSetTracker {
	return &SavedSetTracker{
		remote:  remote,
		ids:     make(map[string]struct{}),
		details: make(map[string]model.TrialDetail),
		pending: make(map[string]PendingState),
	}
}

// mutation is one optimistic change: begin applies it, then exactly one of
// commit or rollback settles it.
type mutation struct {
	t         *SavedSetTracker
	id        string
	wasMember bool
	detail    model.TrialDetail
	hadDetail bool
}

func (t *SavedSetTracker) begin(id string, kind PendingState) (*mutation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p := t.pending[id]; p != NotPending {
		return nil, fmt.Errorf("%w: %s %s", ErrAlreadyPending, p, id)
	}
	_, member := t.ids[id]
	d, hadDetail := t.details[id]
	m := &mutation{t: t, id: id, wasMember: member, detail: d, hadDetail: hadDetail}

	switch kind {
	case Saving:
		t.add(id)
	case Removing:
		t.drop(id)
	}
	t.pending[id] = kind
	return m, nil
}

func (m *mutation) commit() {
	m.t.mu.Lock()
	defer m.t.mu.Unlock()
	delete(m.t.pending, m.id)
}

func (m *mutation) rollback() {
	t := m.t
	t.mu.Lock()
	defer t.mu.Unlock()
	if m.wasMember {
		t.add(m.id)
		if m.hadDetail {
			t.details[m.id] = m.detail
		}
	} else {
		t.drop(m.id)
	}
	delete(t.pending, m.id)
}

// Save adds nctID to the saved set.
func (t *SavedSetTracker) Save(ctx context.Context, nctID string) error {
	m, err := t.begin(nctID, Saving)
	if err != nil {
		return err
	}
	if _, err := t.remote.SaveTrial(ctx, nctID); err != nil {
		m.rollback()
		return err
	}
	m.commit()
	return nil
}

// Remove drops nctID from the saved set.
func (t *SavedSetTracker) Remove(ctx context.Context, nctID string) error {
	m, err := t.begin(nctID, Removing)
	if err != nil {
		return err
	}
	if _, err := t.remote.RemoveSavedTrial(ctx, nctID); err != nil {
		m.rollback()
		return err
	}
	m.commit()
	return nil
}

// Toggle saves nctID when it is not a member and removes it otherwise. It
// reports whether nctID is saved once the call settles.
func (t *SavedSetTracker) Toggle(ctx context.Context, nctID string) (bool, error) {
	if t.Contains(nctID) {
		err := t.Remove(ctx, nctID)
		return err != nil && t.Contains(nctID), err
	}
	err := t.Save(ctx, nctID)
	return err == nil || t.Contains(nctID), err
}

// Sync replaces the mirrored set with the server's list. Members with a
// pending mutation keep their optimistic state.
func (t *SavedSetTracker) Sync(ctx context.Context) error {
	trials, err := t.remote.SavedTrials(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make(map[string]struct{}, len(trials))
	details := make(map[string]model.TrialDetail, len(trials))
	order := make([]string, 0, len(trials))
	for _, d := range trials {
		if _, dup := ids[d.NCTID]; dup {
			continue
		}
		ids[d.NCTID] = struct{}{}
		details[d.NCTID] = d
		order = append(order, d.NCTID)
	}
	for id, p := range t.pending {
		switch p {
		case Saving:
			if _, ok := ids[id]; !ok {
				ids[id] = struct{}{}
				order = append(order, id)
			}
		case Removing:
			delete(ids, id)
			delete(details, id)
			order = removeID(order, id)
		}
	}
	t.ids, t.details, t.order = ids, details, order
	return nil
}

// RememberDetail stores d for the saved listing when its trial is a member.
func (t *SavedSetTracker) RememberDetail(d model.TrialDetail) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ids[d.NCTID]; ok {
		t.details[d.NCTID] = d
	}
}

// Contains reports whether nctID is currently a member.
func (t *SavedSetTracker) Contains(nctID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.ids[nctID]
	return ok
}

// Pending returns the in-flight mutation for nctID.
func (t *SavedSetTracker) Pending(nctID string) PendingState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending[nctID]
}

// Count returns the number of members.
func (t *SavedSetTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ids)
}

// Saved returns the member ids, sorted.
func (t *SavedSetTracker) Saved() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.ids))
	for id := range t.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Details returns the known details of members in saved order. Members
// whose detail has not been seen yet are returned with only the nct_id set.
func (t *SavedSetTracker) Details() []model.TrialDetail {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.TrialDetail, 0, len(t.order))
	for _, id := range t.order {
		if d, ok := t.details[id]; ok {
			out = append(out, d)
		} else {
			out = append(out, model.TrialDetail{NCTID: id})
		}
	}
	return out
}

// add and drop change membership. Caller holds mu.
func (t *SavedSetTracker) add(id string) {
	if _, ok := t.ids[id]; ok {
		return
	}
	t.ids[id] = struct{}{}
	t.order = append(t.order, id)
}

func (t *SavedSetTracker) drop(id string) {
	if _, ok := t.ids[id]; !ok {
		return
	}
	delete(t.ids, id)
	delete(t.details, id)
	t.order = removeID(t.order, id)
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
