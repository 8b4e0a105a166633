package audit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reward-core/internal/model"
	"reward-core/pkg/errno"
)

type stubAPI struct {
	count   int
	queries []model.AuditQuery
	exports []model.AuditQuery
	err     error
}

func (s *stubAPI) ListAuditTrail(ctx context.Context, q model.AuditQuery) (*model.AuditPage, error) {
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	page := &model.AuditPage{Count: s.count}
	start := (q.Page - 1) * q.Limit
	for i := start; i < start+q.Limit && i < s.count; i++ {
		page.Results = append(page.Results, model.AuditRecord{
			ID:              int64(i + 1),
			ProjectTitle:    fmt.Sprintf("Project %d", i%3),
			SchoolName:      fmt.Sprintf("School %d", i),
			TransactionHash: fmt.Sprintf("0xHASH%04d", i),
		})
	}
	return page, nil
}

func (s *stubAPI) ExportAuditTrail(ctx context.Context, q model.AuditQuery, w io.Writer) (int64, error) {
	s.exports = append(s.exports, q)
	n, err := io.WriteString(w, "id,project\n1,Project 0\n")
	return int64(n), err
}

func (s *stubAPI) last() model.AuditQuery { return s.queries[len(s.queries)-1] }

var fixedNow = time.Date(2026, 10, 14, 15, 30, 0, 0, time.UTC)

func newViewer(api *stubAPI) *Viewer {
	v := New(api, 0)
	v.now = func() time.Time { return fixedNow }
	return v
}

func TestDateRange_StartDate(t *testing.T) {
	assert.Nil(t, RangeAll.StartDate(fixedNow))
	assert.Equal(t, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), *RangeToday.StartDate(fixedNow))
	assert.Equal(t, time.Date(2026, 10, 7, 15, 30, 0, 0, time.UTC), *RangeWeek.StartDate(fixedNow))
	assert.Equal(t, time.Date(2026, 9, 14, 15, 30, 0, 0, time.UTC), *RangeMonth.StartDate(fixedNow))
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("")
	require.NoError(t, err)
	assert.Equal(t, RangeAll, r)

	r, err = ParseDateRange(" Week ")
	require.NoError(t, err)
	assert.Equal(t, RangeWeek, r)

	_, err = ParseDateRange("year")
	assert.ErrorIs(t, err, errno.ErrBind)
}

func TestViewer_Pagination(t *testing.T) {
	api := &stubAPI{count: 45}
	v := newViewer(api)
	require.NoError(t, v.Load(context.Background()))

	assert.Equal(t, 3, v.TotalPages())
	assert.Len(t, v.Records(), 20)
	assert.Equal(t, model.AuditQuery{Page: 1, Limit: 20}, api.last())

	require.NoError(t, v.Next(context.Background()))
	require.NoError(t, v.Next(context.Background()))
	assert.Equal(t, 3, v.Page())
	assert.Len(t, v.Records(), 5)

	require.NoError(t, v.Next(context.Background()))
	assert.Equal(t, 3, v.Page(), "clamped at the last page")

	require.NoError(t, v.GoTo(context.Background(), -4))
	assert.Equal(t, 1, v.Page())
	require.NoError(t, v.Prev(context.Background()))
	assert.Equal(t, 1, v.Page())
}

func TestViewer_EmptyTrailStaysOnFirstPage(t *testing.T) {
	api := &stubAPI{count: 0}
	v := newViewer(api)
	require.NoError(t, v.Load(context.Background()))
	assert.Equal(t, 0, v.TotalPages())

	require.NoError(t, v.Next(context.Background()))
	assert.Equal(t, 1, v.Page())
	assert.Equal(t, 1, api.last().Page)
}

func TestViewer_TotalPages(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{0, 0}, {1, 1}, {20, 1}, {21, 2}, {40, 2}, {41, 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.count), func(t *testing.T) {
			v := newViewer(&stubAPI{count: tt.count})
			require.NoError(t, v.Load(context.Background()))
			assert.Equal(t, tt.want, v.TotalPages())
		})
	}
}

func TestViewer_FiltersResetPage(t *testing.T) {
	api := &stubAPI{count: 100}
	v := newViewer(api)
	require.NoError(t, v.GoTo(context.Background(), 3))
	require.Equal(t, 1, v.Page(), "unknown total clamps to page 1")
	require.NoError(t, v.Load(context.Background()))
	require.NoError(t, v.GoTo(context.Background(), 3))
	require.Equal(t, 3, v.Page())

	require.NoError(t, v.SetFilters(context.Background(), Filters{Status: "failed", Range: RangeToday, ProjectID: 8}))
	q := api.last()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, "failed", q.Status)
	assert.Equal(t, int64(8), q.ProjectID)
	require.NotNil(t, q.StartDate)
	assert.Equal(t, "2026-10-14", q.StartDate.Format("2006-01-02"))
}

func TestViewer_SearchIsPageLocal(t *testing.T) {
	api := &stubAPI{count: 45}
	v := newViewer(api)
	require.NoError(t, v.Load(context.Background()))
	calls := len(api.queries)

	assert.Len(t, v.Search(""), 20)
	assert.Len(t, v.Search("school 1"), 11) // School 1, 10..19
	assert.Len(t, v.Search("0xhash0003"), 1)
	assert.Len(t, v.Search("project 2"), 6)
	assert.Empty(t, v.Search("School 44"), "records of other pages are not searched")
	assert.Equal(t, calls, len(api.queries), "search never fetches")
}

func TestViewer_LoadErrorKeepsPage(t *testing.T) {
	api := &stubAPI{count: 5}
	v := newViewer(api)
	require.NoError(t, v.Load(context.Background()))

	api.err = errno.ErrNetwork
	assert.ErrorIs(t, v.Load(context.Background()), errno.ErrNetwork)
	assert.ErrorIs(t, v.Err(), errno.ErrNetwork)
	assert.Len(t, v.Records(), 5)
}

func TestViewer_ExportUsesFiltersWithoutPaging(t *testing.T) {
	api := &stubAPI{count: 5}
	v := newViewer(api)
	require.NoError(t, v.SetFilters(context.Background(), Filters{Status: "completed", Range: RangeWeek}))
	require.NoError(t, v.GoTo(context.Background(), 1))

	var buf bytes.Buffer
	n, err := v.Export(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	require.Len(t, api.exports, 1)
	q := api.exports[0]
	assert.Zero(t, q.Page)
	assert.Zero(t, q.Limit)
	assert.Equal(t, "completed", q.Status)
	assert.NotNil(t, q.StartDate)
}
