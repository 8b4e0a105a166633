// Package confirm implements the two-step confirmation that guards the irreversible distribute call.
package confirm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"reward-core/internal/event"
	"reward-core/internal/model"
	"reward-core/pkg/errno"
	"reward-core/pkg/logger"
	"reward-core/pkg/monitor"
	"reward-core/pkg/utils/lock"
)

// DefaultAdminNotes is sent when the admin leaves the notes blank.
const DefaultAdminNotes = "Distribution executed via admin panel"

const defaultLockTTL = 2 * time.Minute

// Distributor triggers the distribution on the backend.
type Distributor interface {
	Distribute(ctx context.Context, projectID int64, req model.DistributeRequest) (*model.DistributionResult, error)
}

// Journal records the outcome of the distribute call.
type Journal interface {
	DistributionTriggered(ctx context.Context, e event.DistributionTriggered)
	DistributionTriggerFailed(ctx context.Context, projectID int64, cause error)
}

// Options are the optional collaborators of a Confirmer.
type Options struct {
	// Locker guards the distribute call across consoles. nil disables the guard.
	Locker  lock.DistributedLock
	LockTTL time.Duration
	Journal Journal
	// OnClose runs once when the flow is cancelled or closed.
	OnClose func()
	// OnDistributed receives the new distribution id after a successful execute.
	OnDistributed func(id model.ID)
}

// Confirmer is one confirmation flow for one project. It calls Distribute at most once.
type Confirmer struct {
	api     Distributor
	project model.RewardProject
	preview model.DistributionPreview
	opts    Options

	mu        sync.Mutex
	step      Step
	typed     string
	notes     string
	err       error
	result    *model.DistributionResult
	executed  bool
	acquiring bool // an Execute is waiting on the lock
}

// New opens a confirmation flow. The preview must be ready.
func New(api Distributor, project model.RewardProject, preview *model.DistributionPreview, opts Options) (*Confirmer, error) {
	if preview == nil || !preview.Ready() {
		return nil, errno.ErrNotReady
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	return &Confirmer{
		api:     api,
		project: project,
		preview: *preview,
		opts:    opts,
		step:    StepConfirm,
	}, nil
}

// Step returns the current step.
func (c *Confirmer) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Phrase is the confirmation text required for this project.
func (c *Confirmer) Phrase() string {
	return Phrase(c.project.Title)
}

// Preview is the summary the flow was opened with.
func (c *Confirmer) Preview() model.DistributionPreview {
	return c.preview
}

// SetConfirmText records what the admin typed. Kept across Back.
func (c *Confirmer) SetConfirmText(s string) {
	c.mu.Lock()
	c.typed = s
	c.mu.Unlock()
}

// SetNotes records the admin notes. Kept across Back.
func (c *Confirmer) SetNotes(s string) {
	c.mu.Lock()
	c.notes = s
	c.mu.Unlock()
}

// ConfirmText returns the typed confirmation text.
func (c *Confirmer) ConfirmText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typed
}

// Notes returns the notes that will be sent, with the default applied.
func (c *Confirmer) Notes() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return effectiveNotes(c.notes)
}

// CanProceed reports whether the proceed action is enabled.
func (c *Confirmer) CanProceed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step == StepConfirm && PhraseMatches(c.typed, c.project.Title)
}

// Proceed moves confirm -> final once the phrase matches.
func (c *Confirmer) Proceed() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step == StepConfirm && !PhraseMatches(c.typed, c.project.Title) {
		return errno.ErrPhraseMismatch
	}
	return c.applyLocked(ActionProceed)
}

// Back returns from final to confirm.
func (c *Confirmer) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(ActionBack)
}

// Cancel aborts the flow from confirm or final without a backend call.
func (c *Confirmer) Cancel() error {
	c.mu.Lock()
	if err := c.applyLocked(ActionCancel); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()
	c.fireClose()
	return nil
}

// Close leaves the flow from any step. It is the only way out of a failed execution.
func (c *Confirmer) Close() {
	c.mu.Lock()
	if c.step == StepClosed {
		c.mu.Unlock()
		return
	}
	_ = c.applyLocked(ActionClose)
	c.mu.Unlock()
	c.fireClose()
}

// Err is the error of the last execute attempt.
func (c *Confirmer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Result is the backend response after a successful execute.
func (c *Confirmer) Result() *model.DistributionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Execute moves final -> executing and triggers the distribution.
//  - another console holding the guard: stays in final with ErrExecutionLocked, nothing sent
//  - backend failure: stays in executing with the error; only Close leaves
//  - success: completed, OnDistributed receives the id
func (c *Confirmer) Execute(ctx context.Context) (*model.DistributionResult, error) {
	c.mu.Lock()
	if c.executed || c.acquiring {
		c.mu.Unlock()
		return nil, errno.ErrAlreadyExecuted
	}
	if _, err := Transition(c.step, ActionExecute); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.acquiring = true
	c.mu.Unlock()

	// 1. 跨控制台互斥 (可选)，Redis 往返不持有 c.mu
	lockKey := fmt.Sprintf("distribute:%d", c.project.ID)
	if err := c.acquire(ctx, lockKey); err != nil {
		c.mu.Lock()
		c.acquiring = false
		c.err = err
		c.mu.Unlock()
		monitor.Client.DistributionsTriggered.WithLabelValues("locked").Inc()
		return nil, err
	}

	// 2. 进入 executing，之后无论结果如何都不会再发请求
	c.mu.Lock()
	c.acquiring = false
	if _, err := Transition(c.step, ActionExecute); err != nil {
		// Back/Cancel/Close 在取锁期间发生
		c.mu.Unlock()
		c.release(ctx, lockKey)
		return nil, err
	}
	c.step = StepExecuting
	c.executed = true
	c.err = nil
	req := model.DistributeRequest{ConfirmDistribution: true, AdminNotes: effectiveNotes(c.notes)}
	c.mu.Unlock()

	stopKeepAlive := c.keepAlive(ctx, lockKey)
	logger.Info("triggering distribution", zap.Int64("project_id", c.project.ID), zap.String("total_amount", c.preview.Summary.TotalAmount.String()))
	result, err := c.api.Distribute(ctx, c.project.ID, req)
	stopKeepAlive()
	c.release(ctx, lockKey)

	// 3. 处理结果
	c.mu.Lock()
	if err != nil {
		c.step, _ = Transition(c.step, ActionFail)
		c.err = err
		c.mu.Unlock()
		monitor.Client.DistributionsTriggered.WithLabelValues("failed").Inc()
		logger.Error("distribution trigger failed", zap.Int64("project_id", c.project.ID), zap.Error(err))
		if c.opts.Journal != nil {
			c.opts.Journal.DistributionTriggerFailed(context.WithoutCancel(ctx), c.project.ID, err)
		}
		return nil, err
	}
	next, terr := Transition(c.step, ActionSucceed)
	if terr != nil {
		// closed while the request was in flight
		c.result = result
		c.mu.Unlock()
		return result, nil
	}
	c.step = next
	c.result = result
	c.mu.Unlock()

	monitor.Client.DistributionsTriggered.WithLabelValues("accepted").Inc()
	logger.Info("distribution triggered", zap.Int64("project_id", c.project.ID), zap.String("distribution_id", result.DistributionID.String()))
	if c.opts.Journal != nil {
		c.opts.Journal.DistributionTriggered(context.WithoutCancel(ctx), event.DistributionTriggered{
			ProjectID:      c.project.ID,
			ProjectTitle:   c.project.Title,
			DistributionID: result.DistributionID.String(),
			TotalAmount:    c.preview.Summary.TotalAmount.String(),
			Recipients:     len(c.preview.Distributions),
			AdminNotes:     req.AdminNotes,
		})
	}
	if c.opts.OnDistributed != nil {
		c.opts.OnDistributed(result.DistributionID)
	}
	return result, nil
}

func (c *Confirmer) acquire(ctx context.Context, key string) error {
	if c.opts.Locker == nil {
		return nil
	}
	ok, err := c.opts.Locker.Acquire(ctx, key, c.opts.LockTTL)
	if err != nil {
		logger.Error("failed to acquire distribution lock", zap.String("key", key), zap.Error(err))
		return errno.ErrExecutionLocked.Wrap(err)
	}
	if !ok {
		logger.Warn("distribution lock held elsewhere", zap.String("key", key))
		return errno.ErrExecutionLocked
	}
	return nil
}

func (c *Confirmer) release(ctx context.Context, key string) {
	if c.opts.Locker == nil {
		return
	}
	if err := c.opts.Locker.Release(context.WithoutCancel(ctx), key); err != nil {
		logger.Warn("failed to release distribution lock", zap.String("key", key), zap.Error(err))
	}
}

// keepAlive extends the lock every LockTTL/3 until the returned stop is called,
// so a distribute call slower than LockTTL stays guarded.
func (c *Confirmer) keepAlive(ctx context.Context, key string) (stop func()) {
	if c.opts.Locker == nil {
		return func() {}
	}
	kctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(max(c.opts.LockTTL/3, time.Millisecond))
		defer ticker.Stop()
		for {
			select {
			case <-kctx.Done():
				return
			case <-ticker.C:
				ok, err := c.opts.Locker.Extend(kctx, key, c.opts.LockTTL)
				if err != nil && kctx.Err() == nil {
					logger.Warn("failed to extend distribution lock", zap.String("key", key), zap.Error(err))
				} else if err == nil && !ok {
					logger.Warn("distribution lock lost while executing", zap.String("key", key))
					return
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (c *Confirmer) applyLocked(a Action) error {
	next, err := Transition(c.step, a)
	if err != nil {
		return err
	}
	c.step = next
	return nil
}

func (c *Confirmer) fireClose() {
	if c.opts.OnClose != nil {
		c.opts.OnClose()
	}
}

func effectiveNotes(notes string) string {
	if strings.TrimSpace(notes) == "" {
		return DefaultAdminNotes
	}
	return notes
}
