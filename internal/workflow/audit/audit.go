// Package audit pages through the history of past distributions.
package audit

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"reward-core/internal/model"
	"reward-core/pkg/errno"
	"reward-core/pkg/logger"
)

// DefaultPageSize is the fixed audit page size.
const DefaultPageSize = 20

// AuditAPI is the slice of the admin API the viewer needs.
type AuditAPI interface {
	ListAuditTrail(ctx context.Context, q model.AuditQuery) (*model.AuditPage, error)
	ExportAuditTrail(ctx context.Context, q model.AuditQuery, w io.Writer) (int64, error)
}

// DateRange selects how far back records go.
type DateRange string

const (
	RangeAll   DateRange = "all"
	RangeToday DateRange = "today"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
)

// ParseDateRange accepts all|today|week|month; empty means all.
func ParseDateRange(s string) (DateRange, error) {
	switch r := DateRange(strings.ToLower(strings.TrimSpace(s))); r {
	case "", RangeAll:
		return RangeAll, nil
	case RangeToday, RangeWeek, RangeMonth:
		return r, nil
	}
	return "", errno.ErrBind.WithMessage(fmt.Sprintf("unknown date range %q", s))
}

// StartDate maps the range onto the start_date filter; nil for all.
func (r DateRange) StartDate(now time.Time) *time.Time {
	var t time.Time
	switch r {
	case RangeToday:
		t = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case RangeWeek:
		t = now.AddDate(0, 0, -7)
	case RangeMonth:
		t = now.AddDate(0, 0, -30)
	default:
		return nil
	}
	return &t
}

// Filters are sent to the backend. Changing them returns to page 1.
type Filters struct {
	Status    string // all | pending | processing | completed | failed
	Range     DateRange
	ProjectID int64
}

// Viewer holds one page of the audit trail.
type Viewer struct {
	api      AuditAPI
	pageSize int
	now      func() time.Time

	mu      sync.Mutex
	filters Filters
	page    int
	current *model.AuditPage
	err     error
}

// New creates a viewer; pageSize <= 0 uses DefaultPageSize.
func New(api AuditAPI, pageSize int) *Viewer {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Viewer{api: api, pageSize: pageSize, now: time.Now, page: 1, filters: Filters{Range: RangeAll}}
}

// Load fetches the current page with the current filters.
func (v *Viewer) Load(ctx context.Context) error {
	v.mu.Lock()
	q := v.queryLocked(true)
	v.mu.Unlock()

	page, err := v.api.ListAuditTrail(ctx, q)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		logger.Error("failed to load audit trail", zap.Int("page", q.Page), zap.Error(err))
		v.err = err
		return err
	}
	v.current = page
	v.err = nil
	return nil
}

// SetFilters replaces the filters, resets to page 1 and refetches.
func (v *Viewer) SetFilters(ctx context.Context, f Filters) error {
	v.UseFilters(f)
	return v.Load(ctx)
}

// UseFilters replaces the filters and resets to page 1 without fetching.
func (v *Viewer) UseFilters(f Filters) {
	if f.Range == "" {
		f.Range = RangeAll
	}
	v.mu.Lock()
	v.filters = f
	v.page = 1
	v.mu.Unlock()
}

// Filters returns the active filters.
func (v *Viewer) Filters() Filters {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filters
}

// GoTo fetches page n, clamped to [1, TotalPages]. An empty trail stays on page 1.
func (v *Viewer) GoTo(ctx context.Context, n int) error {
	v.mu.Lock()
	if total := max(v.totalPagesLocked(), 1); n > total {
		n = total
	}
	if n < 1 {
		n = 1
	}
	v.page = n
	v.mu.Unlock()
	return v.Load(ctx)
}

func (v *Viewer) Next(ctx context.Context) error {
	return v.GoTo(ctx, v.Page()+1)
}

func (v *Viewer) Prev(ctx context.Context) error {
	return v.GoTo(ctx, v.Page()-1)
}

// Page is the 1-based current page.
func (v *Viewer) Page() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

// Count is the number of records matching the filters across all pages.
func (v *Viewer) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current == nil {
		return 0
	}
	return v.current.Count
}

// TotalPages is ceil(count/page_size); 0 when nothing matches.
func (v *Viewer) TotalPages() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.totalPagesLocked()
}

// Err is the last fetch error.
func (v *Viewer) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Records is the current page as returned by the backend.
func (v *Viewer) Records() []model.AuditRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current == nil {
		return nil
	}
	out := make([]model.AuditRecord, len(v.current.Results))
	copy(out, v.current.Results)
	return out
}

// Search filters the current page only, matching project title, school name or
// transaction hash case-insensitively. An empty query returns the page unchanged.
func (v *Viewer) Search(q string) []model.AuditRecord {
	records := v.Records()
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return records
	}
	var out []model.AuditRecord
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.ProjectTitle), q) ||
			strings.Contains(strings.ToLower(r.SchoolName), q) ||
			strings.Contains(strings.ToLower(r.TransactionHash), q) {
			out = append(out, r)
		}
	}
	return out
}

// Export streams the backend's CSV of every record matching the filters.
func (v *Viewer) Export(ctx context.Context, w io.Writer) (int64, error) {
	v.mu.Lock()
	q := v.queryLocked(false)
	v.mu.Unlock()

	n, err := v.api.ExportAuditTrail(ctx, q, w)
	if err != nil {
		logger.Error("audit export failed", zap.Error(err))
		return n, err
	}
	logger.Info("audit trail exported", zap.Int64("bytes", n))
	return n, nil
}

func (v *Viewer) totalPagesLocked() int {
	if v.current == nil || v.current.Count <= 0 {
		return 0
	}
	return (v.current.Count + v.pageSize - 1) / v.pageSize
}

func (v *Viewer) queryLocked(paged bool) model.AuditQuery {
	q := model.AuditQuery{
		ProjectID: v.filters.ProjectID,
		Status:    v.filters.Status,
		StartDate: v.filters.Range.StartDate(v.now()),
	}
	if paged {
		q.Page = v.page
		q.Limit = v.pageSize
	}
	return q
}
