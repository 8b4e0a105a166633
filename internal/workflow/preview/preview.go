// Package preview fetches the backend-computed distribution preview and gates execution on it.
package preview

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"reward-core/internal/model"
	"reward-core/pkg/logger"
)

// PreviewAPI is the slice of the admin API the previewer needs.
type PreviewAPI interface {
	GetPreview(ctx context.Context, projectID int64) (*model.DistributionPreview, error)
}

// Previewer holds the last fetched preview of one project.
// Nothing invalidates it automatically; call Refresh after wallets change.
type Previewer struct {
	api       PreviewAPI
	projectID int64

	mu      sync.RWMutex
	current *model.DistributionPreview
	err     error
}

func New(api PreviewAPI, projectID int64) *Previewer {
	return &Previewer{api: api, projectID: projectID}
}

// Refresh re-fetches the preview. On failure the previous preview is kept and Err is set.
func (p *Previewer) Refresh(ctx context.Context) (*model.DistributionPreview, error) {
	pv, err := p.api.GetPreview(ctx, p.projectID)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		logger.Error("failed to fetch distribution preview", zap.Int64("project_id", p.projectID), zap.Error(err))
		p.err = err
		return nil, err
	}
	p.current = pv
	p.err = nil
	logger.Debug("distribution preview fetched",
		zap.Int64("project_id", p.projectID),
		zap.Int("rows", len(pv.Distributions)),
		zap.Int("validation_errors", len(pv.ValidationErrors)))
	return pv, nil
}

// Current returns the last fetched preview, nil before the first success.
func (p *Previewer) Current() *model.DistributionPreview {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Err is the last fetch error.
func (p *Previewer) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// Ready gates the execute action. False until a preview has been fetched.
func (p *Previewer) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current != nil && p.current.Ready()
}

// ErrorsFor returns the validation messages attached to schoolID.
func (p *Previewer) ErrorsFor(schoolID int64) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil
	}
	return p.current.ErrorsFor(schoolID)
}

// Pool returns the pool capacity reported with the preview, if any.
func (p *Previewer) Pool() (model.PoolInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil || p.current.PoolInfo == nil {
		return model.PoolInfo{}, false
	}
	return *p.current.PoolInfo, true
}
