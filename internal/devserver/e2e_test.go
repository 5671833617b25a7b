package devserver_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/trialscout/internal/devserver"
	"github.com/rcliao/trialscout/internal/gateway"
	"github.com/rcliao/trialscout/internal/session"
	"github.com/rcliao/trialscout/internal/store"
)

func newCoordinator(t *testing.T) (*session.Coordinator, *gateway.Client) {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	_, err = devserver.Seed(context.Background(), st, "")
	require.NoError(t, err)

	srv := httptest.NewServer(devserver.New(st, devserver.Options{}).Handler())
	t.Cleanup(srv.Close)

	client := gateway.New(srv.URL, gateway.Options{Registerer: prometheus.NewRegistry()})
	return session.NewCoordinator(client, nil), client
}

func TestSessionAgainstDevServer(t *testing.T) {
	ctx := context.Background()
	c, client := newCoordinator(t)
	require.NoError(t, client.Health(ctx))

	var counts []int
	c.OnSavedCountChanged(func(n int) { counts = append(counts, n) })

	res, err := c.LoadSession(ctx, "Patient with type 2 diabetes and obesity on metformin.")
	require.NoError(t, err)
	require.NoError(t, res.SyncErr)
	require.Len(t, res.Notes.Trials, 2)

	c.SetSearch("5555")
	view := c.Snapshot()
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "NCT05555555", view.Rows[0].NCTID)
	c.SetSearch("")

	d, err := c.ViewDetail(ctx, "NCT05012345")
	require.NoError(t, err)
	assert.Equal(t, "GLIDE", d.Acronym)

	display, err := c.ToggleRanking(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Ranked, display)
	view = c.Snapshot()
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "NCT05012345", view.Rows[0].NCTID)
	require.NotNil(t, view.Rows[0].RelevanceScore)

	a, err := c.AskQuestion(ctx, "NCT05012345", "where is it?")
	require.NoError(t, err)
	assert.Contains(t, a.Answer, "Boston")

	saved, err := c.SaveOrRemove(ctx, "NCT05012345")
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, 1, c.SavedCount())

	remote, err := client.SavedTrials(ctx)
	require.NoError(t, err)
	require.Len(t, remote, 1)

	// A new session sees the trial saved by the previous one and can
	// remove it even though it is not among its own trials.
	res, err = c.LoadSession(ctx, "Patient with asthma using albuterol.")
	require.NoError(t, err)
	require.Len(t, res.Notes.Trials, 1)
	assert.Equal(t, 1, c.SavedCount())
	require.NoError(t, c.RemoveSaved(ctx, "NCT05012345"))
	assert.Equal(t, 0, c.SavedCount())

	_, err = c.AskQuestion(ctx, "NCT04567890", " ")
	assert.ErrorIs(t, err, session.ErrEmptyQuery)

	resumed, err := c.ResumeSession(ctx, res.Notes.ClinicalNotesID)
	require.NoError(t, err)
	assert.Equal(t, res.Notes.ClinicalNotesID, resumed.Notes.ClinicalNotesID)

	assert.NotEmpty(t, counts)
	assert.Equal(t, 0, counts[len(counts)-1])
}

func TestRemoteErrorsSurface(t *testing.T) {
	ctx := context.Background()
	c, _ := newCoordinator(t)

	_, err := c.ResumeSession(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, 404, gateway.StatusOf(err))
	assert.Contains(t, err.Error(), "not found")

	_, err = c.LoadSession(ctx, "Patient with asthma.")
	require.NoError(t, err)

	_, err = c.SaveOrRemove(ctx, "NCT04567890")
	require.NoError(t, err)
	_, err = c.SaveOrRemove(ctx, "NCT04567890")
	require.NoError(t, err)
	assert.Equal(t, 0, c.SavedCount())
}
