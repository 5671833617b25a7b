package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/trialscout/internal/gateway"
)

func TestGetOrFetchCachesSuccess(t *testing.T) {
	ctx := context.Background()
	f := newFakeRemote()
	f.addTrial("NCT001")
	c := NewDetailCache(f)

	first, err := c.GetOrFetch(ctx, "NCT001")
	require.NoError(t, err)
	second, err := c.GetOrFetch(ctx, "NCT001")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.count(gateway.OpDetail))
	state, _ := c.Status("NCT001")
	assert.Equal(t, Loaded, state)
	assert.Equal(t, 1, c.Len())
}

func TestGetOrFetchCoalescesConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	f := newFakeRemote()
	f.addTrial("NCT001")
	started, release := f.hold(gateway.OpDetail)
	c := NewDetailCache(f)

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)

	wg.Add(1)
	go func() {
		defer wg.Done()
		d, err := c.GetOrFetch(ctx, "NCT001")
		results[0], errs[0] = d.Title, err
	}()
	<-started

	state, _ := c.Status("NCT001")
	assert.Equal(t, Loading, state)

	for i := 1; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := c.GetOrFetch(ctx, "NCT001")
			results[i], errs[i] = d.Title, err
		}(i)
	}
	release()
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "Trial NCT001", results[i])
	}
	assert.Equal(t, 1, f.count(gateway.OpDetail))
}

func TestGetOrFetchFailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	f := newFakeRemote()
	f.addTrial("NCT001")
	f.failWith(gateway.OpDetail, 503)
	c := NewDetailCache(f)

	_, err := c.GetOrFetch(ctx, "NCT001")
	require.Error(t, err)
	assert.Equal(t, 503, gateway.StatusOf(err))

	state, statusErr := c.Status("NCT001")
	assert.Equal(t, Failed, state)
	assert.Equal(t, err, statusErr)
	_, ok := c.Detail("NCT001")
	assert.False(t, ok)

	f.clearFail(gateway.OpDetail)
	d, err := c.GetOrFetch(ctx, "NCT001")
	require.NoError(t, err)
	assert.Equal(t, "NCT001", d.NCTID)
	assert.Equal(t, 2, f.count(gateway.OpDetail))

	state, statusErr = c.Status("NCT001")
	assert.Equal(t, Loaded, state)
	assert.NoError(t, statusErr)
}

func TestDetailCacheKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	f := newFakeRemote()
	f.addTrial("NCT001")
	f.addTrial("NCT002")
	c := NewDetailCache(f)

	_, err := c.GetOrFetch(ctx, "NCT001")
	require.NoError(t, err)
	_, err = c.GetOrFetch(ctx, "NCT002")
	require.NoError(t, err)

	assert.Equal(t, 2, f.count(gateway.OpDetail))
	state, _ := c.Status("NCT003")
	assert.Equal(t, Idle, state)
}

func TestLoadStateString(t *testing.T) {
	tests := []struct {
		state LoadState
		want  string
	}{
		{Idle, "idle"},
		{Loading, "loading"},
		{Loaded, "loaded"},
		{Failed, "failed"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}
