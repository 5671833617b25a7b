package session

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/rcliao/trialscout/internal/model"
)

// LoadState is the lifecycle of a lazily fetched value.
type LoadState int

const (
	Idle LoadState = iota
	Loading
	Loaded
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// MarshalText renders the state by name in JSON output.
func (s LoadState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// DetailSource fetches a single trial detail.
type DetailSource interface {
	TrialDetail(ctx context.Context, nctID string) (*model.TrialDetail, error)
}

type detailEntry struct {
	state  LoadState
	detail model.TrialDetail
	err    error
}

// DetailCache is a per-nct_id cache of trial details. Each key is fetched
// at most once concurrently, and a successful result is kept for the life
// of the cache. Failures are recorded but not cached.
type DetailCache struct {
	src DetailSource

	mu       sync.Mutex
	entries  map[string]*detailEntry
	inflight singleflight.Group
}

// NewDetailCache creates an empty cache over src.
func NewDetailCache(src DetailSource) *DetailCache {
	return &DetailCache{src: src, entries: make(map[string]*detailEntry)}
}

// GetOrFetch returns the cached detail for nctID, joining an in-flight fetch
// when there is one and starting a new fetch otherwise.
func (c *DetailCache) GetOrFetch(ctx context.Context, nctID string) (model.TrialDetail, error) {
	c.mu.Lock()
	e := c.entry(nctID)
	if e.state == Loaded {
		d := e.detail
		c.mu.Unlock()
		return d, nil
	}
	if e.state != Loading {
		e.state = Loading
		e.err = nil
	}
	c.mu.Unlock()

	v, err, _ := c.inflight.Do("detail:"+nctID, func() (any, error) {
		// A fetch that settled between the check above and Do must not be
		// repeated.
		c.mu.Lock()
		if e := c.entry(nctID); e.state == Loaded {
			d := e.detail
			c.mu.Unlock()
			return d, nil
		}
		c.mu.Unlock()

		d, err := c.src.TrialDetail(ctx, nctID)

		c.mu.Lock()
		defer c.mu.Unlock()
		e := c.entry(nctID)
		if err != nil {
			e.state = Failed
			e.err = err
			return model.TrialDetail{}, err
		}
		e.state = Loaded
		e.detail = *d
		e.err = nil
		return *d, nil
	})
	if err != nil {
		return model.TrialDetail{}, err
	}
	return v.(model.TrialDetail), nil
}

// Status returns the state of nctID and, when Failed, the last error.
func (c *DetailCache) Status(nctID string) (LoadState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[nctID]
	if !ok {
		return Idle, nil
	}
	return e.state, e.err
}

// Detail returns the cached detail for nctID when it is loaded.
func (c *DetailCache) Detail(nctID string) (model.TrialDetail, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[nctID]
	if !ok || e.state != Loaded {
		return model.TrialDetail{}, false
	}
	return e.detail, true
}

// Len returns the number of loaded entries.
func (c *DetailCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e.state == Loaded {
			n++
		}
	}
	return n
}

// markLoading moves an unloaded key to Loading ahead of GetOrFetch so a
// concurrent observer never sees it Idle in between.
func (c *DetailCache) markLoading(nctID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.entry(nctID); e.state != Loaded {
		e.state = Loading
		e.err = nil
	}
}

// entry returns the entry for nctID, creating an Idle one. Caller holds mu.
func (c *DetailCache) entry(nctID string) *detailEntry {
	e, ok := c.entries[nctID]
	if !ok {
		e = &detailEntry{}
		c.entries[nctID] = e
	}
	return e
}
