package selector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reward-core/internal/model"
	"reward-core/pkg/errno"
)

type stubLister struct {
	projects []model.RewardProject
	err      error
	calls    int
}

func (s *stubLister) ListProjects(ctx context.Context) ([]model.RewardProject, error) {
	s.calls++
	return s.projects, s.err
}

func boolPtr(b bool) *bool { return &b }

func fixtures() []model.RewardProject {
	return []model.RewardProject{
		{ID: 1, Title: "Tree Planting Drive", Status: "completed", RewardStatus: "ready"},
		{ID: 2, Title: "Ocean Cleanup", Status: "completed", RewardStatus: "pending", OfferRewards: boolPtr(true)},
		{ID: 3, Title: "No Rewards Here", Status: "completed", OfferRewards: boolPtr(false)},
		{ID: 4, Title: "Still Running", Status: "active", RewardStatus: "pending"},
		{ID: 5, Title: "Tree Census", Status: "Completed", RewardStatus: "completed"},
	}
}

func TestSelector_LoadKeepsEligibleOnly(t *testing.T) {
	s := New(&stubLister{projects: fixtures()})
	require.NoError(t, s.Load(context.Background()))

	var ids []int64
	for _, p := range s.Projects() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{1, 2, 5}, ids)
	assert.True(t, s.Loaded())
	assert.NoError(t, s.Err())
}

func TestSelector_Visible(t *testing.T) {
	s := New(&stubLister{projects: fixtures()})
	require.NoError(t, s.Load(context.Background()))

	tests := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{"zero filter", Filter{}, []int64{1, 2, 5}},
		{"search is case-insensitive", Filter{Search: "tree"}, []int64{1, 5}},
		{"search trims", Filter{Search: "  OCEAN "}, []int64{2}},
		{"status", Filter{Status: "ready"}, []int64{1}},
		{"status all", Filter{Status: StatusAll, Search: "census"}, []int64{5}},
		{"no match", Filter{Search: "mars"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int64
			for _, p := range s.Visible(tt.filter) {
				got = append(got, p.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelector_Select(t *testing.T) {
	s := New(&stubLister{projects: fixtures()})
	require.NoError(t, s.Load(context.Background()))

	p, err := s.Select(2)
	require.NoError(t, err)
	assert.Equal(t, "Ocean Cleanup", p.Title)

	got, ok := s.Selected()
	assert.True(t, ok)
	assert.Equal(t, int64(2), got.ID)

	_, err = s.Select(3)
	assert.ErrorIs(t, err, errno.ErrProjectNotFound, "ineligible project cannot be selected")
}

func TestSelector_LoadFailureIsRetryable(t *testing.T) {
	api := &stubLister{err: errors.New("boom")}
	s := New(api)

	assert.Error(t, s.Load(context.Background()))
	assert.Error(t, s.Err())
	assert.False(t, s.Loaded())

	api.err = nil
	api.projects = fixtures()
	require.NoError(t, s.Reload(context.Background()))
	assert.NoError(t, s.Err())
	assert.Len(t, s.Projects(), 3)
	assert.Equal(t, 2, api.calls)
}

func TestSelector_ReloadDropsVanishedSelection(t *testing.T) {
	api := &stubLister{projects: fixtures()}
	s := New(api)
	require.NoError(t, s.Load(context.Background()))
	_, err := s.Select(1)
	require.NoError(t, err)

	api.projects = fixtures()[1:]
	require.NoError(t, s.Reload(context.Background()))
	_, ok := s.Selected()
	assert.False(t, ok)
}
