package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcliao/trialscout/internal/model"
)

func TestFilter(t *testing.T) {
	items := []model.TrialRecord{
		{NCTID: "NCT04280705"},
		{NCTID: "NCT01234567"},
		{NCTID: "nct04999999"},
		{NCTID: "NCT02000000"},
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty returns all", "", []string{"NCT04280705", "NCT01234567", "nct04999999", "NCT02000000"}},
		{"blank returns all", "   ", []string{"NCT04280705", "NCT01234567", "nct04999999", "NCT02000000"}},
		{"case insensitive", "nct04", []string{"NCT04280705", "nct04999999"}},
		{"substring keeps order", "0000", []string{"NCT02000000"}},
		{"no match", "XYZ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(items, tt.query)
			ids := []string{}
			for _, g := range got {
				ids = append(ids, g.NCTID)
				assert.True(t, strings.Contains(strings.ToLower(g.NCTID), strings.ToLower(strings.TrimSpace(tt.query))))
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFilterEmptyQueryReturnsInput(t *testing.T) {
	items := []model.TrialRanking{{NCTID: "NCT001"}, {NCTID: "NCT002"}}
	got := Filter(items, "")
	assert.Equal(t, items, got)
	assert.Same(t, &items[0], &got[0])
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	items := []model.TrialRecord{{NCTID: "NCT001"}, {NCTID: "NCT002"}, {NCTID: "NCT003"}}
	_ = Filter(items, "2")
	assert.Equal(t, []model.TrialRecord{{NCTID: "NCT001"}, {NCTID: "NCT002"}, {NCTID: "NCT003"}}, items)
}
