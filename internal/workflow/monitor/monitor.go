// Package monitor follows a triggered distribution until all of its transactions settle.
package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"reward-core/internal/event"
	"reward-core/internal/model"
	"reward-core/pkg/logger"
	metrics "reward-core/pkg/monitor"
	"reward-core/pkg/poll"
)

// DefaultInterval is the status poll period.
const DefaultInterval = 5 * time.Second

// StatusAPI is the slice of the admin API the monitor needs.
type StatusAPI interface {
	GetDistributionStatus(ctx context.Context, distributionID model.ID) (*model.DistributionStatus, error)
}

// Journal records the terminal state of a distribution.
type Journal interface {
	DistributionFinished(ctx context.Context, e event.DistributionFinished)
}

type Options struct {
	Interval    time.Duration // 0 = DefaultInterval
	AutoRefresh bool
	Journal     Journal
	// OnComplete runs exactly once, when the overall status first turns terminal.
	OnComplete func(status model.DistributionStatus)
}

// Monitor polls one distribution.
type Monitor struct {
	api  StatusAPI
	id   model.ID
	opts Options
	log  *zap.Logger

	// fetchMu keeps at most one status request in flight
	fetchMu sync.Mutex

	mu       sync.Mutex
	ctx      context.Context
	status   *model.DistributionStatus
	err      error
	auto     bool
	task     *poll.Task
	closed   bool
	finished chan struct{}

	completeOnce sync.Once
	gaugeOnce    sync.Once
	gaugeUp      bool
}

func New(api StatusAPI, id model.ID, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Monitor{
		api:      api,
		id:       id,
		opts:     opts,
		log:      logger.With(zap.String("distribution_id", id.String())),
		auto:     opts.AutoRefresh,
		finished: make(chan struct{}),
	}
}

// ID is the monitored distribution.
func (m *Monitor) ID() model.ID { return m.id }

// Start fetches the status once and, if auto-refresh is on and the distribution
// is still running, starts polling. ctx bounds every later poll.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	m.ctx = ctx
	if !m.gaugeUp {
		m.gaugeUp = true
		metrics.Client.MonitoredDistributionsUp.Inc()
	}
	m.mu.Unlock()

	_, err := m.Refresh(ctx)

	m.mu.Lock()
	m.ensurePollingLocked()
	m.mu.Unlock()
	return err
}

// Refresh fetches the status now, regardless of auto-refresh.
func (m *Monitor) Refresh(ctx context.Context) (*model.DistributionStatus, error) {
	m.fetchMu.Lock()
	defer m.fetchMu.Unlock()
	return m.fetch(ctx)
}

// SetAutoRefresh toggles background polling. Turning it off stops the timer at once.
func (m *Monitor) SetAutoRefresh(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auto = on
	if !on {
		m.stopLocked()
		return
	}
	m.ensurePollingLocked()
}

// AutoRefresh reports the current preference.
func (m *Monitor) AutoRefresh() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auto
}

// Polling reports whether a background timer is active.
func (m *Monitor) Polling() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.task == nil {
		return false
	}
	select {
	case <-m.task.Done():
		return false
	default:
		return true
	}
}

// Status is the last fetched status, nil before the first success.
func (m *Monitor) Status() *model.DistributionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Err is the last fetch error. Polling continues after errors.
func (m *Monitor) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Terminal reports whether the distribution reached completed or failed.
func (m *Monitor) Terminal() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.terminalLocked()
}

// Progress is the completed share in percent, in [0,100].
func (m *Monitor) Progress() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == nil {
		return 0
	}
	return m.status.ProgressPercent()
}

// Finished is closed once a terminal status has been observed.
func (m *Monitor) Finished() <-chan struct{} {
	return m.finished
}

// Close stops polling for good.
func (m *Monitor) Close() {
	m.mu.Lock()
	m.closed = true
	m.stopLocked()
	m.mu.Unlock()
	m.releaseGauge()
}

func (m *Monitor) tick(ctx context.Context) bool {
	m.fetchMu.Lock()
	defer m.fetchMu.Unlock()
	_, _ = m.fetch(ctx)
	return m.Terminal()
}

// fetch must be called with fetchMu held.
func (m *Monitor) fetch(ctx context.Context) (*model.DistributionStatus, error) {
	st, err := m.api.GetDistributionStatus(ctx, m.id)

	m.mu.Lock()
	if err != nil {
		// 被 Stop/Close 取消的请求不算错误
		if ctx.Err() == nil {
			m.err = err
		}
		m.mu.Unlock()
		metrics.Client.StatusPollsTotal.WithLabelValues("error").Inc()
		m.log.Warn("distribution status poll failed", zap.Error(err))
		return nil, err
	}
	// 终态之后不再覆盖 (状态只会向前推进)
	if m.terminalLocked() {
		cur := m.status
		m.mu.Unlock()
		return cur, nil
	}
	m.status = st
	m.err = nil
	terminal := st.OverallStatus.Terminal()
	if terminal {
		m.stopLocked()
	}
	m.mu.Unlock()

	metrics.Client.StatusPollsTotal.WithLabelValues(string(st.OverallStatus)).Inc()
	m.log.Debug("distribution status",
		zap.String("overall_status", string(st.OverallStatus)),
		zap.Int("completed", st.CompletedTransactions),
		zap.Int("total", st.TotalTransactions))

	if terminal {
		m.complete(ctx, *st)
	}
	return st, nil
}

func (m *Monitor) complete(ctx context.Context, st model.DistributionStatus) {
	m.completeOnce.Do(func() {
		defer close(m.finished)
		m.releaseGauge()
		m.log.Info("distribution finished",
			zap.String("overall_status", string(st.OverallStatus)),
			zap.Int("failed", st.FailedTransactions))
		if m.opts.Journal != nil {
			// ctx 可能是刚被 stopLocked 取消的轮询 ctx
			m.opts.Journal.DistributionFinished(context.WithoutCancel(ctx), event.DistributionFinished{
				DistributionID: m.id.String(),
				OverallStatus:  string(st.OverallStatus),
				Completed:      st.CompletedTransactions,
				Failed:         st.FailedTransactions,
				Total:          st.TotalTransactions,
			})
		}
		if m.opts.OnComplete != nil {
			m.opts.OnComplete(st)
		}
	})
}

func (m *Monitor) releaseGauge() {
	m.mu.Lock()
	up := m.gaugeUp
	m.mu.Unlock()
	if !up {
		return
	}
	m.gaugeOnce.Do(func() { metrics.Client.MonitoredDistributionsUp.Dec() })
}

func (m *Monitor) terminalLocked() bool {
	return m.status != nil && m.status.OverallStatus.Terminal()
}

// ensurePollingLocked starts the timer unless it is running or not wanted.
func (m *Monitor) ensurePollingLocked() {
	if m.closed || !m.auto || m.ctx == nil || m.terminalLocked() {
		return
	}
	if m.task != nil {
		select {
		case <-m.task.Done():
		default:
			return
		}
	}
	m.task = poll.Start(m.ctx, m.opts.Interval, m.tick)
}

func (m *Monitor) stopLocked() {
	if m.task != nil {
		m.task.Stop()
		m.task = nil
	}
}
