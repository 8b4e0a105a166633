// Package wallets collects and validates the payout address of every school in a project.
package wallets

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"reward-core/internal/event"
	"reward-core/internal/model"
	"reward-core/pkg/address"
	"reward-core/pkg/errno"
	"reward-core/pkg/logger"
	"reward-core/pkg/monitor"
)

// WalletAPI is the slice of the admin API the collector needs.
type WalletAPI interface {
	ListWallets(ctx context.Context, projectID int64) ([]model.SchoolWallet, error)
	SubmitWallets(ctx context.Context, projectID int64, wallets []model.WalletSubmission) ([]model.SchoolWallet, error)
}

// Journal receives a record of every accepted submission.
type Journal interface {
	WalletSubmitted(ctx context.Context, e event.WalletSubmitted)
}

// Row is the rendered state of one school.
type Row struct {
	School  model.SchoolRef
	Wallet  *model.SchoolWallet
	Status  model.WalletStatus
	Editing bool
	Draft   string
	Err     error // inline error of the last save
}

type draft struct {
	value string
	err   error
}

// Collector owns the wallet records of a single project.
type Collector struct {
	api     WalletAPI
	project model.RewardProject
	journal Journal

	mu       sync.Mutex
	wallets  map[int64]model.SchoolWallet
	drafts   map[int64]*draft
	loadErr  error
	onReady  func(bool)
	lastSent *bool
}

// New creates a collector for project. journal may be nil.
func New(api WalletAPI, project model.RewardProject, journal Journal) *Collector {
	return &Collector{
		api:     api,
		project: project,
		journal: journal,
		wallets: make(map[int64]model.SchoolWallet),
		drafts:  make(map[int64]*draft),
	}
}

// OnReadinessChange registers fn, called with AllReady whenever it changes.
// fn runs without the collector lock held.
func (c *Collector) OnReadinessChange(fn func(ready bool)) {
	c.mu.Lock()
	c.onReady = fn
	c.mu.Unlock()
}

// Project returns the project this collector works on.
func (c *Collector) Project() model.RewardProject {
	return c.project
}

// Load fetches the wallet records. Records for schools outside the project are ignored.
func (c *Collector) Load(ctx context.Context) error {
	list, err := c.api.ListWallets(ctx, c.project.ID)

	c.mu.Lock()
	if err != nil {
		c.loadErr = err
		c.mu.Unlock()
		logger.Error("failed to load school wallets", zap.Int64("project_id", c.project.ID), zap.Error(err))
		return err
	}
	c.loadErr = nil
	c.wallets = make(map[int64]model.SchoolWallet, len(list))
	for _, w := range list {
		if !c.project.HasSchool(w.SchoolID) {
			logger.Debug("ignoring wallet of foreign school", zap.Int64("school_id", w.SchoolID))
			continue
		}
		c.wallets[w.SchoolID] = w
	}
	notify := c.readinessLocked()
	c.mu.Unlock()

	notify()
	return nil
}

// Err is the last load error.
func (c *Collector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// Rows returns one row per project school, lead school first.
func (c *Collector) Rows() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	schools := c.project.Schools()
	rows := make([]Row, 0, len(schools))
	for _, s := range schools {
		row := Row{School: s}
		if w, ok := c.wallets[s.ID]; ok {
			w := w
			row.Wallet = &w
		}
		row.Status = model.StatusOf(row.Wallet)
		if d, ok := c.drafts[s.ID]; ok {
			row.Editing = true
			row.Draft = d.value
			row.Err = d.err
		}
		rows = append(rows, row)
	}
	return rows
}

// Status returns the readiness of one school.
func (c *Collector) Status(schoolID int64) model.WalletStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked(schoolID)
}

// Edit opens a draft for schoolID, prefilled with the stored address.
func (c *Collector) Edit(schoolID int64) error {
	if !c.project.HasSchool(schoolID) {
		return errno.ErrSchoolNotInProject
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.drafts[schoolID]; ok {
		return nil
	}
	c.drafts[schoolID] = &draft{value: c.wallets[schoolID].WalletAddress}
	return nil
}

// SetDraft replaces the draft text, opening the draft if needed.
func (c *Collector) SetDraft(schoolID int64, value string) error {
	if !c.project.HasSchool(schoolID) {
		return errno.ErrSchoolNotInProject
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.drafts[schoolID]
	if !ok {
		d = &draft{}
		c.drafts[schoolID] = d
	}
	d.value = value
	d.err = nil
	return nil
}

// Cancel discards the draft without a backend call.
func (c *Collector) Cancel(schoolID int64) {
	c.mu.Lock()
	delete(c.drafts, schoolID)
	c.mu.Unlock()
}

// Save submits the draft of schoolID.
// The address is validated locally first; an invalid draft never reaches the network.
// On any failure the draft stays open with the error attached.
func (c *Collector) Save(ctx context.Context, schoolID int64) error {
	if !c.project.HasSchool(schoolID) {
		return errno.ErrSchoolNotInProject
	}

	// 1. 本地校验
	c.mu.Lock()
	d, ok := c.drafts[schoolID]
	if !ok {
		c.mu.Unlock()
		return errno.ErrIllegalTransition.WithMessage("No draft open for this school")
	}
	addr, err := address.Validate(d.value)
	if err != nil {
		d.err = err
		c.mu.Unlock()
		monitor.Client.WalletSubmissionsTotal.WithLabelValues("invalid").Inc()
		return err
	}
	d.err = nil
	c.mu.Unlock()

	// 2. 提交后端
	saved, err := c.api.SubmitWallets(ctx, c.project.ID, []model.WalletSubmission{{SchoolID: schoolID, WalletAddress: addr}})
	if err != nil {
		c.mu.Lock()
		if d, ok := c.drafts[schoolID]; ok {
			d.err = err
		}
		c.mu.Unlock()
		monitor.Client.WalletSubmissionsTotal.WithLabelValues("rejected").Inc()
		logger.Warn("wallet submission failed", zap.Int64("project_id", c.project.ID), zap.Int64("school_id", schoolID), zap.Error(err))
		return err
	}
	monitor.Client.WalletSubmissionsTotal.WithLabelValues("accepted").Inc()

	// 3. 合并结果，关闭草稿
	c.mu.Lock()
	merged := false
	for _, w := range saved {
		if !c.project.HasSchool(w.SchoolID) {
			continue
		}
		c.wallets[w.SchoolID] = w
		if w.SchoolID == schoolID {
			merged = true
		}
	}
	if !merged {
		// 后端未回显: 先记为待验证
		prev := c.wallets[schoolID]
		prev.SchoolID = schoolID
		prev.WalletAddress = addr
		prev.IsValidated = false
		c.wallets[schoolID] = prev
	}
	delete(c.drafts, schoolID)
	notify := c.readinessLocked()
	c.mu.Unlock()

	if c.journal != nil {
		c.journal.WalletSubmitted(ctx, event.WalletSubmitted{ProjectID: c.project.ID, SchoolID: schoolID, WalletAddress: addr})
	}
	notify()
	return nil
}

// AllReady reports whether every project school has a ready wallet.
// A project without schools is never ready.
func (c *Collector) AllReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allReadyLocked()
}

// Missing returns the schools that are not ready yet.
func (c *Collector) Missing() []model.SchoolRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.SchoolRef
	for _, s := range c.project.Schools() {
		if c.statusLocked(s.ID) != model.WalletReady {
			out = append(out, s)
		}
	}
	return out
}

func (c *Collector) statusLocked(schoolID int64) model.WalletStatus {
	w, ok := c.wallets[schoolID]
	if !ok {
		return model.StatusOf(nil)
	}
	return model.StatusOf(&w)
}

func (c *Collector) allReadyLocked() bool {
	schools := c.project.Schools()
	if len(schools) == 0 {
		return false
	}
	for _, s := range schools {
		if c.statusLocked(s.ID) != model.WalletReady {
			return false
		}
	}
	return true
}

// readinessLocked computes readiness and returns the notification to run after unlocking.
func (c *Collector) readinessLocked() func() {
	ready := c.allReadyLocked()
	if c.lastSent != nil && *c.lastSent == ready {
		return func() {}
	}
	c.lastSent = &ready
	fn := c.onReady
	if fn == nil {
		return func() {}
	}
	return func() { fn(ready) }
}
