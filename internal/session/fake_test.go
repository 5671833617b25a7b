package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/rcliao/trialscout/internal/gateway"
	"github.com/rcliao/trialscout/internal/model"
)

// fakeRemote is an in-memory Remote. Calls can be held open with a gate and
// failed per operation.
type fakeRemote struct {
	mu      sync.Mutex
	calls   map[string]int
	fail    map[string]int // op -> HTTP status to fail with
	gates   map[string]chan struct{}
	started map[string]chan struct{}

	notes   map[string]model.ClinicalNotes
	ranking []model.TrialRanking
	saved   []string
	details map[string]model.TrialDetail
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		calls:   make(map[string]int),
		fail:    make(map[string]int),
		gates:   make(map[string]chan struct{}),
		started: make(map[string]chan struct{}),
		notes:   make(map[string]model.ClinicalNotes),
		details: make(map[string]model.TrialDetail),
	}
}

func (f *fakeRemote) addTrial(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details[id] = model.TrialDetail{NCTID: id, Title: "Trial " + id, Conditions: "Asthma"}
}

// hold makes the next calls of op block until the returned release is called.
// The started channel receives once per call that reaches the remote.
func (f *fakeRemote) hold(op string) (started <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	st := make(chan struct{}, 16)
	f.gates[op] = gate
	f.started[op] = st
	var once sync.Once
	return st, func() { once.Do(func() { close(gate) }) }
}

func (f *fakeRemote) failWith(op string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = status
}

func (f *fakeRemote) clearFail(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.fail, op)
}

func (f *fakeRemote) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) enter(op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate := f.gates[op]
	st := f.started[op]
	status := f.fail[op]
	f.mu.Unlock()

	if st != nil {
		select {
		case st <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}
	if status != 0 {
		return &gateway.RemoteError{Op: op, Status: status, Message: http.StatusText(status)}
	}
	return nil
}

func (f *fakeRemote) UploadTranscript(ctx context.Context, transcript string) (*model.ClinicalNotes, error) {
	if err := f.enter(gateway.OpUpload); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	notes, ok := f.notes[transcript]
	if !ok {
		return nil, &gateway.RemoteError{Op: gateway.OpUpload, Status: 400, Message: "no trials"}
	}
	return &notes, nil
}

func (f *fakeRemote) ClinicalNotes(ctx context.Context, id string) (*model.ClinicalNotes, error) {
	if err := f.enter(gateway.OpClinicalNotes); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notes {
		if n.ClinicalNotesID == id {
			return &n, nil
		}
	}
	return nil, &gateway.RemoteError{Op: gateway.OpClinicalNotes, Status: 404, Message: "Clinical notes not found"}
}

func (f *fakeRemote) TrialDetail(ctx context.Context, id string) (*model.TrialDetail, error) {
	if err := f.enter(gateway.OpDetail); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.details[id]
	if !ok {
		return nil, &gateway.RemoteError{Op: gateway.OpDetail, Status: 404, Message: "not found"}
	}
	return &d, nil
}

func (f *fakeRemote) Ranking(ctx context.Context, id string) ([]model.TrialRanking, error) {
	if err := f.enter(gateway.OpRanking); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.TrialRanking{}, f.ranking...), nil
}

func (f *fakeRemote) AskAI(ctx context.Context, notesID, id, query string) (*model.AIAnswer, error) {
	if err := f.enter(gateway.OpAskAI); err != nil {
		return nil, err
	}
	return &model.AIAnswer{NCTID: id, Query: query, Answer: fmt.Sprintf("answer to %q", query)}, nil
}

func (f *fakeRemote) SaveTrial(ctx context.Context, id string) (*model.SaveResponse, error) {
	if err := f.enter(gateway.OpSave); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.saved {
		if s == id {
			return &model.SaveResponse{Message: "Trial saved successfully", NCTID: id}, nil
		}
	}
	f.saved = append(f.saved, id)
	return &model.SaveResponse{Message: "Trial saved successfully", NCTID: id}, nil
}

func (f *fakeRemote) RemoveSavedTrial(ctx context.Context, id string) (*model.SaveResponse, error) {
	if err := f.enter(gateway.OpRemove); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.saved {
		if s == id {
			f.saved = append(f.saved[:i], f.saved[i+1:]...)
			return &model.SaveResponse{Message: "Trial removed successfully", NCTID: id}, nil
		}
	}
	return nil, &gateway.RemoteError{Op: gateway.OpRemove, Status: 404, Message: "Trial not found in saved trials"}
}

func (f *fakeRemote) SavedTrials(ctx context.Context) ([]model.TrialDetail, error) {
	if err := f.enter(gateway.OpListSaved); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.TrialDetail, 0, len(f.saved))
	for _, id := range f.saved {
		d, ok := f.details[id]
		if !ok {
			d = model.TrialDetail{NCTID: id}
		}
		out = append(out, d)
	}
	return out, nil
}
