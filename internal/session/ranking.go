package session

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/rcliao/trialscout/internal/model"
)

// Display selects which trial list is shown.
type Display int

const (
	Base Display = iota
	Ranked
)

func (d Display) String() string {
	if d == Ranked {
		return "ranked"
	}
	return "base"
}

// MarshalText renders the display by name in JSON output.
func (d Display) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// RankingFetcher returns the full ranking of a session.
type RankingFetcher func(ctx context.Context) ([]model.TrialRanking, error)

// RankingStatus is a point-in-time view of a RankingViewState.
type RankingStatus struct {
	Display Display `json:"display"`
	Fetched bool    `json:"fetched"`
	Loading bool    `json:"loading"`
	Err     error   `json:"-"`
}

// RankingViewState holds the ranking of a session and toggles between the
// base and ranked views. The ranking is fetched at most once; hiding it
// keeps it cached.
type RankingViewState struct {
	fetch RankingFetcher

	mu       sync.Mutex
	ranking  []model.TrialRanking
	fetched  bool
	loading  bool
	display  Display
	err      error
	inflight singleflight.Group
}

// NewRankingViewState creates an unfetched ranking state.
func NewRankingViewState(fetch RankingFetcher) *RankingViewState {
	return &RankingViewState{fetch: fetch}
}

// Request hides the ranking when shown, shows it when cached, and fetches
// it otherwise. It returns the resulting display.
func (r *RankingViewState) Request(ctx context.Context) (Display, error) {
	r.mu.Lock()
	switch {
	case r.display == Ranked:
		r.display = Base
		r.mu.Unlock()
		return Base, nil
	case r.fetched:
		r.display = Ranked
		r.mu.Unlock()
		return Ranked, nil
	}
	r.loading = true
	r.mu.Unlock()

	_, err, _ := r.inflight.Do("ranking", func() (any, error) {
		r.mu.Lock()
		if r.fetched {
			r.display = Ranked
			r.loading = false
			r.mu.Unlock()
			return nil, nil
		}
		r.mu.Unlock()

		ranking, err := r.fetch(ctx)

		r.mu.Lock()
		defer r.mu.Unlock()
		r.loading = false
		if err != nil {
			r.err = err
			r.display = Base
			return nil, err
		}
		sorted := make([]model.TrialRanking, len(ranking))
		copy(sorted, ranking)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].RelevanceScore > sorted[j].RelevanceScore
		})
		r.ranking = sorted
		r.fetched = true
		r.err = nil
		r.display = Ranked
		return nil, nil
	})
	if err != nil {
		return Base, err
	}
	return Ranked, nil
}

// Ranking returns the cached ranking, best first, or nil when unfetched.
func (r *RankingViewState) Ranking() []model.TrialRanking {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.fetched {
		return nil
	}
	out := make([]model.TrialRanking, len(r.ranking))
	copy(out, r.ranking)
	return out
}

// Status returns the current display and fetch state.
func (r *RankingViewState) Status() RankingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RankingStatus{Display: r.display, Fetched: r.fetched, Loading: r.loading, Err: r.err}
}
