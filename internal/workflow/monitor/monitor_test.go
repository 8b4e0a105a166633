package monitor

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reward-core/internal/event"
	"reward-core/internal/model"
	"reward-core/pkg/errno"
)

// scriptedAPI returns statuses in order and then repeats the last one.
type scriptedAPI struct {
	mu       sync.Mutex
	statuses []model.TxStatus
	calls    int32
	inFlight int32
	maxIn    int32
	err      error
}

func (s *scriptedAPI) GetDistributionStatus(ctx context.Context, id model.ID) (*model.DistributionStatus, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		cur := atomic.LoadInt32(&s.maxIn)
		if n <= cur || atomic.CompareAndSwapInt32(&s.maxIn, cur, n) {
			break
		}
	}
	call := int(atomic.AddInt32(&s.calls, 1))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	i := call - 1
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	st := s.statuses[i]
	out := &model.DistributionStatus{DistributionID: id, OverallStatus: st, TotalTransactions: 2}
	if st == model.StatusCompleted {
		out.CompletedTransactions = 2
	}
	return out, nil
}

func (s *scriptedAPI) Calls() int { return int(atomic.LoadInt32(&s.calls)) }

type stubJournal struct {
	mu     sync.Mutex
	events []event.DistributionFinished
	ctxErr []error
}

func (j *stubJournal) DistributionFinished(ctx context.Context, e event.DistributionFinished) {
	j.mu.Lock()
	j.events = append(j.events, e)
	j.ctxErr = append(j.ctxErr, ctx.Err())
	j.mu.Unlock()
}

func (j *stubJournal) contextErrors() []error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]error(nil), j.ctxErr...)
}

const tick = 10 * time.Millisecond

func TestMonitor_PollsUntilTerminal(t *testing.T) {
	api := &scriptedAPI{statuses: []model.TxStatus{model.StatusPending, model.StatusProcessing, model.StatusCompleted}}
	j := &stubJournal{}
	var completions int32
	m := New(api, "d-1", Options{Interval: tick, AutoRefresh: true, Journal: j, OnComplete: func(model.DistributionStatus) {
		atomic.AddInt32(&completions, 1)
	}})
	defer m.Close()

	require.NoError(t, m.Start(context.Background()))
	select {
	case <-m.Finished():
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not finish")
	}

	calls := api.Calls()
	time.Sleep(5 * tick)
	assert.Equal(t, calls, api.Calls(), "no request after terminal status")
	assert.Equal(t, 3, calls)
	assert.False(t, m.Polling())
	assert.True(t, m.Terminal())
	assert.Equal(t, float64(100), m.Progress())

	// a manual refresh after completion does not fire the callback again
	_, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&completions))
	assert.Len(t, j.events, 1)
	assert.LessOrEqual(t, atomic.LoadInt32(&api.maxIn), int32(1))
	// the poll ctx is cancelled on the terminal tick; the event must still be publishable
	assert.Equal(t, []error{nil}, j.contextErrors())
}

func TestMonitor_AlreadyTerminalNeverPolls(t *testing.T) {
	api := &scriptedAPI{statuses: []model.TxStatus{model.StatusFailed}}
	var completions int32
	m := New(api, "d-2", Options{Interval: tick, AutoRefresh: true, OnComplete: func(model.DistributionStatus) {
		atomic.AddInt32(&completions, 1)
	}})
	defer m.Close()

	require.NoError(t, m.Start(context.Background()))
	time.Sleep(5 * tick)
	assert.Equal(t, 1, api.Calls())
	assert.False(t, m.Polling())
	assert.Equal(t, int32(1), atomic.LoadInt32(&completions))
	assert.Equal(t, float64(0), m.Progress())
}

func TestMonitor_AutoRefreshToggle(t *testing.T) {
	api := &scriptedAPI{statuses: []model.TxStatus{model.StatusProcessing}}
	m := New(api, "d-3", Options{Interval: tick, AutoRefresh: false})
	defer m.Close()

	require.NoError(t, m.Start(context.Background()))
	time.Sleep(5 * tick)
	assert.Equal(t, 1, api.Calls(), "auto-refresh off: only the initial fetch")
	assert.False(t, m.Polling())

	_, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, api.Calls())

	m.SetAutoRefresh(true)
	assert.True(t, m.Polling())
	m.SetAutoRefresh(true)
	require.Eventually(t, func() bool { return api.Calls() >= 4 }, time.Second, tick)

	m.SetAutoRefresh(false)
	assert.False(t, m.Polling())
	time.Sleep(2 * tick)
	stopped := api.Calls()
	time.Sleep(5 * tick)
	assert.Equal(t, stopped, api.Calls(), "no request after toggle off")
	assert.LessOrEqual(t, atomic.LoadInt32(&api.maxIn), int32(1), "toggling twice must not stack timers")
}

func TestMonitor_CloseStopsPolling(t *testing.T) {
	api := &scriptedAPI{statuses: []model.TxStatus{model.StatusPending}}
	m := New(api, "d-4", Options{Interval: tick, AutoRefresh: true})
	require.NoError(t, m.Start(context.Background()))
	require.Eventually(t, func() bool { return api.Calls() >= 2 }, time.Second, tick)

	m.Close()
	time.Sleep(2 * tick)
	closed := api.Calls()
	time.Sleep(5 * tick)
	assert.Equal(t, closed, api.Calls())

	m.SetAutoRefresh(true)
	assert.False(t, m.Polling(), "a closed monitor never restarts")
}

func TestMonitor_ErrorsKeepPolling(t *testing.T) {
	api := &scriptedAPI{statuses: []model.TxStatus{model.StatusProcessing}, err: errno.ErrNetwork}
	m := New(api, "d-5", Options{Interval: tick, AutoRefresh: true})
	defer m.Close()

	err := m.Start(context.Background())
	assert.ErrorIs(t, err, errno.ErrNetwork)
	assert.True(t, m.Polling())
	require.Eventually(t, func() bool { return api.Calls() >= 3 }, time.Second, tick)
	assert.True(t, errors.Is(m.Err(), errno.ErrNetwork))
	assert.Nil(t, m.Status())
}

func TestMonitor_WriteCSV(t *testing.T) {
	ts := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := WriteCSV(&buf, []model.Transaction{
		{ID: 1, SchoolName: "Lead Academy", WalletAddress: "0xabc", Amount: decimal.NewFromInt(10), Status: model.StatusCompleted, TransactionHash: "0xhash", BlockNumber: 12, GasUsed: 21000, Timestamp: &ts},
		{ID: 2, SchoolName: "River School", Status: model.StatusFailed, RetryCount: 3, ErrorMessage: "nonce too low"},
	})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "2026-10-01T12:00:00Z", records[1][10])
	assert.Equal(t, "3", records[2][8])
	assert.Equal(t, "nonce too low", records[2][9])

	m := New(&scriptedAPI{}, "d-6", Options{})
	assert.ErrorIs(t, m.WriteCSV(&buf), errno.ErrNotFound)
}
