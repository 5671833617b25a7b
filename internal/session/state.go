package session

import (
	"context"

	"github.com/rcliao/trialscout/internal/model"
)

// AskState is the lifecycle of a question about one trial.
type AskState int

const (
	AskIdle AskState = iota
	Asking
	Answered
	AskFailed
)

func (a AskState) String() string {
	switch a {
	case Asking:
		return "asking"
	case Answered:
		return "answered"
	case AskFailed:
		return "failed"
	default:
		return "idle"
	}
}

// MarshalText renders the state by name in JSON output.
func (a AskState) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

type askEntry struct {
	state  AskState
	answer model.AIAnswer
	err    error
}

// State is everything known about one uploaded transcript. A new upload
// replaces it whole; operations hold the State they started on, so late
// responses can only touch a superseded State.
type State struct {
	gen    uint64
	notes  model.ClinicalNotes
	trials []model.TrialRecord
	byID   map[string]model.TrialRecord

	// known holds every nct_id a per-id key may use.
	known map[string]struct{}

	details *DetailCache
	saved   *SavedSetTracker
	ranking *RankingViewState

	// Guarded by Coordinator.mu.
	asks     map[string]*askEntry
	search   string
	expanded string
}

func newState(gen uint64, notes model.ClinicalNotes, remote Remote) *State {
	s := &State{
		gen:    gen,
		notes:  notes,
		trials: notes.Trials,
		byID:   make(map[string]model.TrialRecord, len(notes.Trials)),
		known:  make(map[string]struct{}, len(notes.Trials)),
		asks:   make(map[string]*askEntry),
	}
	for _, t := range notes.Trials {
		s.byID[t.NCTID] = t
		s.known[t.NCTID] = struct{}{}
	}
	s.details = NewDetailCache(remote)
	s.saved = NewSavedSetTracker(remote)
	notesID := notes.ClinicalNotesID
	s.ranking = NewRankingViewState(func(ctx context.Context) ([]model.TrialRanking, error) {
		return remote.Ranking(ctx, notesID)
	})
	return s
}

// Row is one line of the displayed trial list.
type Row struct {
	NCTID          string       `json:"nct_id"`
	Conditions     string       `json:"conditions,omitempty"`
	Interventions  string       `json:"interventions,omitempty"`
	RelevanceScore *float64     `json:"relevance_score,omitempty"`
	Explanation    string       `json:"explanation,omitempty"`
	Saved          bool         `json:"saved"`
	Pending        PendingState `json:"pending"`
	Detail         LoadState    `json:"detail"`
	Ask            AskState     `json:"ask"`
	Expanded       bool         `json:"expanded,omitempty"`
}

// View is an immutable snapshot of the session for presentation.
type View struct {
	ClinicalNotesID string            `json:"clinical_notes_id"`
	Patient         model.PatientData `json:"patient_data"`
	Display         Display           `json:"display"`
	RankingLoading  bool              `json:"ranking_loading,omitempty"`
	Search          string            `json:"search,omitempty"`
	Total           int               `json:"total"`
	Rows            []Row             `json:"rows"`
	Expanded        string            `json:"expanded,omitempty"`
	SavedCount      int               `json:"saved_count"`
}
