package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reward-core/internal/model"
	"reward-core/internal/workflow/audit"
	"reward-core/internal/workflow/confirm"
	"reward-core/internal/workflow/monitor"
	"reward-core/internal/workflow/preview"
	"reward-core/internal/workflow/selector"
	"reward-core/internal/workflow/wallets"
	"reward-core/pkg/cache"
	"reward-core/pkg/errno"
	"reward-core/pkg/rewardclient"
	"reward-core/pkg/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	store  *Store
	client *rewardclient.Client
	creds  session.Store
	logout int
}

func newFixture(t *testing.T, seed Seed) *fixture {
	t.Helper()
	f := &fixture{store: NewStore(seed)}
	srv := httptest.NewServer(NewRouter(NewHandler(f.store)))
	t.Cleanup(srv.Close)

	f.creds = session.NewCacheStore(cache.NewMemoryCache(0, time.Minute), "session")
	f.client = rewardclient.NewClient(rewardclient.Options{
		BaseURL:        srv.URL,
		Store:          f.creds,
		OnUnauthorized: func() { f.logout++ },
	})
	_, err := f.client.Login(context.Background(), seed.AdminEmail, seed.AdminPassword)
	require.NoError(t, err)
	return f
}

func TestWorkflow_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSeed())

	// 1. 选择项目
	sel := selector.New(f.client)
	require.NoError(t, sel.Load(ctx))
	var ids []int64
	for _, p := range sel.Visible(selector.Filter{}) {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{101, 102}, ids)
	project, err := sel.Select(101)
	require.NoError(t, err)

	// 2. 收集钱包
	collector := wallets.New(f.client, project, nil)
	require.NoError(t, collector.Load(ctx))
	assert.False(t, collector.AllReady())
	assert.Equal(t, model.WalletReady, collector.Status(1))

	require.NoError(t, collector.SetDraft(2, "0xnot-an-address"))
	assert.ErrorIs(t, collector.Save(ctx, 2), errno.ErrWalletAddressInvalid)

	require.NoError(t, collector.SetDraft(2, "0xde709f2102306220921060314715629080e2fb77"))
	require.NoError(t, collector.Save(ctx, 2))
	require.NoError(t, collector.SetDraft(3, "0x27b1fdb04752bbc536007a920d24acb045561c26"))
	require.NoError(t, collector.Save(ctx, 3))
	require.True(t, collector.AllReady())

	// 3. 预览
	pv := preview.New(f.client, project.ID)
	current, err := pv.Refresh(ctx)
	require.NoError(t, err)
	require.True(t, pv.Ready(), "validation errors: %+v", current.ValidationErrors)
	assert.True(t, current.Summary.TotalAmount.Equal(decimal.NewFromInt(5400)))
	assert.Len(t, current.Distributions, 3)

	// 4. 确认 + 执行
	var distributed model.ID
	c, err := confirm.New(f.client, project, current, confirm.Options{OnDistributed: func(id model.ID) { distributed = id }})
	require.NoError(t, err)
	c.SetConfirmText("  execute distribution for tree planting drive ")
	require.NoError(t, c.Proceed())
	result, err := c.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, confirm.StepCompleted, c.Step())
	assert.Equal(t, result.DistributionID, distributed)
	assert.Len(t, result.Transactions, 3)

	// 5. 监控到终态
	done := make(chan model.DistributionStatus, 1)
	m := monitor.New(f.client, distributed, monitor.Options{
		Interval:    5 * time.Millisecond,
		AutoRefresh: true,
		OnComplete:  func(st model.DistributionStatus) { done <- st },
	})
	defer m.Close()
	require.NoError(t, m.Start(ctx))
	var final model.DistributionStatus
	select {
	case final = <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("distribution did not settle")
	}
	assert.Equal(t, model.StatusCompleted, final.OverallStatus)
	assert.Equal(t, 3, final.CompletedTransactions)
	assert.Equal(t, float64(100), m.Progress())

	// 6. 审计
	v := audit.New(f.client, 0)
	require.NoError(t, v.SetFilters(ctx, audit.Filters{Status: "completed", Range: audit.RangeToday, ProjectID: 101}))
	assert.Equal(t, 3, v.Count())
	assert.Equal(t, 1, v.TotalPages())
	assert.Len(t, v.Search("lisbon"), 1)

	var buf bytes.Buffer
	_, err = v.Export(ctx, &buf)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "id,distribution_id"))

	// 7. 已发放的项目不能再次执行
	sel2 := selector.New(f.client)
	require.NoError(t, sel2.Load(ctx))
	assert.Len(t, sel2.Visible(selector.Filter{Status: "completed"}), 1)
	_, err = f.client.Distribute(ctx, 101, model.DistributeRequest{ConfirmDistribution: true})
	var apiErr *rewardclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestWorkflow_FailedTransfer(t *testing.T) {
	ctx := context.Background()
	seed := DefaultSeed()
	seed.FailSchools = []int64{5}
	f := newFixture(t, seed)

	pvData, err := f.client.GetPreview(ctx, 102)
	require.NoError(t, err)
	require.True(t, pvData.Ready())
	res, err := f.client.Distribute(ctx, 102, model.DistributeRequest{ConfirmDistribution: true, AdminNotes: confirm.DefaultAdminNotes})
	require.NoError(t, err)

	m := monitor.New(f.client, res.DistributionID, monitor.Options{Interval: 2 * time.Millisecond, AutoRefresh: true})
	defer m.Close()
	require.NoError(t, m.Start(ctx))
	select {
	case <-m.Finished():
	case <-time.After(3 * time.Second):
		t.Fatal("distribution did not settle")
	}

	st := m.Status()
	require.NotNil(t, st)
	assert.Equal(t, model.StatusFailed, st.OverallStatus)
	assert.Equal(t, 1, st.FailedTransactions)
	assert.Equal(t, 50.0, m.Progress())
	for _, tx := range st.Transactions {
		if tx.Status == model.StatusFailed {
			assert.Equal(t, 3, tx.RetryCount)
			assert.NotEmpty(t, tx.ErrorMessage)
		}
	}
}

func TestWorkflow_ExpiredSessionClearsCredentials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSeed())
	f.store.RevokeAll()

	_, err := f.client.ListProjects(ctx)
	assert.ErrorIs(t, err, errno.ErrUnauthorized)
	assert.Equal(t, 1, f.logout)

	_, err = f.creds.Load(ctx)
	assert.ErrorIs(t, err, session.ErrNoCredentials)

	_, err = f.client.ListProjects(ctx)
	assert.ErrorIs(t, err, errno.ErrNoSession, "no request without a session")
	assert.Equal(t, 1, f.logout)
}

func TestWorkflow_BadLoginKeepsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSeed())

	_, err := f.client.Login(ctx, "admin@globalclassrooms.org", "wrong")
	var apiErr *rewardclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Zero(t, f.logout)

	_, err = f.client.Session(ctx)
	assert.NoError(t, err)
}

func authedRequest(t *testing.T, s *Store, method, path, body string) *http.Request {
	t.Helper()
	resp, ok := s.Login("admin@globalclassrooms.org", "sandbox")
	require.True(t, ok)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+resp.Access)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		auth   bool
		want   int
	}{
		{"no token", http.MethodGet, "/admin/rewards/projects/", "", false, http.StatusUnauthorized},
		{"unknown project", http.MethodGet, "/admin/rewards/project/999/preview/", "", true, http.StatusNotFound},
		{"bad project id", http.MethodGet, "/admin/rewards/project/abc/wallets/", "", true, http.StatusBadRequest},
		{"invalid wallet", http.MethodPost, "/admin/rewards/project/101/wallets/", `{"wallets":[{"school_id":2,"wallet_address":"0x12"}]}`, true, http.StatusBadRequest},
		{"foreign school", http.MethodPost, "/admin/rewards/project/101/wallets/", `{"wallets":[{"school_id":5,"wallet_address":"0xde709f2102306220921060314715629080e2fb77"}]}`, true, http.StatusBadRequest},
		{"not confirmed", http.MethodPost, "/admin/rewards/project/102/distribute/", `{"confirm_distribution":false}`, true, http.StatusBadRequest},
		{"not ready", http.MethodPost, "/admin/rewards/project/101/distribute/", `{"confirm_distribution":true}`, true, http.StatusBadRequest},
		{"unknown distribution", http.MethodGet, "/admin/rewards/distribution/nope/status/", "", true, http.StatusNotFound},
		{"bad start date", http.MethodGet, "/admin/rewards/audit-trail/?start_date=14-10-2026", "", true, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(DefaultSeed())
			r := NewRouter(NewHandler(s))
			var req *http.Request
			if tt.auth {
				req = authedRequest(t, s, tt.method, tt.path, tt.body)
			} else {
				req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestHandler_ProjectsEnvelope(t *testing.T) {
	s := NewStore(DefaultSeed())
	r := NewRouter(NewHandler(s))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, s, http.MethodGet, "/admin/rewards/projects/", ""))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count   int                   `json:"count"`
		Results []model.RewardProject `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Count)
	require.NotNil(t, body.Results[0].LeadSchool)
	assert.Equal(t, "Nairobi Green Academy", body.Results[0].LeadSchool.Name)
	assert.True(t, body.Results[0].EstimatedTotalCost.Equal(decimal.NewFromInt(5400)))
	assert.Equal(t, model.RewardStatusReady, body.Results[1].RewardStatus)
}

func TestStore_StatusAdvancesOneStepPerPoll(t *testing.T) {
	s := NewStore(DefaultSeed())
	res, err := s.Distribute(102, model.DistributeRequest{ConfirmDistribution: true}, "admin")
	require.NoError(t, err)
	id := res.DistributionID.String()

	want := []model.TxStatus{model.StatusProcessing, model.StatusCompleted, model.StatusCompleted}
	for i, w := range want {
		st, err := s.Status(id)
		require.NoError(t, err)
		assert.Equal(t, w, st.OverallStatus, "poll %d", i+1)
	}

	records, total := s.Audit(AuditFilter{ProjectID: 102}, 1, 20)
	assert.Equal(t, 2, total)
	for _, r := range records {
		assert.Equal(t, model.StatusCompleted, r.Status)
		assert.NotZero(t, r.BlockNumber)
	}

	pool := s.previewLocked(s.projects[102]).PoolInfo
	assert.True(t, pool.MonthlyUsed.Equal(decimal.NewFromInt(42_600)))
}
