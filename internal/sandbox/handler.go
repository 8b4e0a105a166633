package sandbox

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reward-core/internal/handler/response"
	"reward-core/internal/model"
	"reward-core/pkg/errno"
	"reward-core/pkg/logger"
	"reward-core/pkg/validator"
)

const ctxAdminEmail = "admin_email"

// Handler serves the admin reward API from a Store.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Login POST /auth/login/
func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	if err := validator.Struct(req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}
	resp, ok := h.store.Login(req.Email, req.Password)
	if !ok {
		// 登录失败也是 401，客户端不会因此清空会话
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "No active account found with the given credentials"})
		return
	}
	response.Success(c, resp)
}

// Auth requires a Bearer token issued by Login.
func (h *Handler) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || !h.store.Authorized(token) {
			response.Unauthorized(c)
			return
		}
		c.Set(ctxAdminEmail, h.store.admin.Email)
		c.Next()
	}
}

// ListProjects GET /admin/rewards/projects/
func (h *Handler) ListProjects(c *gin.Context) {
	projects := h.store.Projects()
	response.Success(c, gin.H{"count": len(projects), "results": projects})
}

// ListWallets GET /admin/rewards/project/:id/wallets/
func (h *Handler) ListWallets(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	wallets, err := h.store.Wallets(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"wallets": wallets})
}

// SubmitWallets POST /admin/rewards/project/:id/wallets/
func (h *Handler) SubmitWallets(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req model.WalletUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	if err := validator.Struct(req); err != nil {
		response.Error(c, errno.ErrWalletAddressInvalid.WithMessage(validator.GetErrorMsg(err)))
		return
	}
	wallets, err := h.store.UpsertWallets(id, req.Wallets, c.GetString(ctxAdminEmail))
	if err != nil {
		response.Error(c, err)
		return
	}
	logger.Info("sandbox wallets stored", zap.Int64("project_id", id), zap.Int("count", len(wallets)))
	response.Success(c, gin.H{"wallets": wallets})
}

// Preview GET /admin/rewards/project/:id/preview/
func (h *Handler) Preview(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	pv, err := h.store.Preview(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, pv)
}

// Distribute POST /admin/rewards/project/:id/distribute/
func (h *Handler) Distribute(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req model.DistributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	result, err := h.store.Distribute(id, req, c.GetString(ctxAdminEmail))
	if err != nil {
		response.Error(c, err)
		return
	}
	logger.Info("sandbox distribution started",
		zap.Int64("project_id", id),
		zap.String("distribution_id", result.DistributionID.String()),
		zap.String("admin_notes", req.AdminNotes))
	response.Created(c, result)
}

// DistributionStatus GET /admin/rewards/distribution/:id/status/
func (h *Handler) DistributionStatus(c *gin.Context) {
	st, err := h.store.Status(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, st)
}

// AuditTrail GET /admin/rewards/audit-trail/
func (h *Handler) AuditTrail(c *gin.Context) {
	f, ok := auditFilter(c)
	if !ok {
		return
	}
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)
	records, total := h.store.Audit(f, page, limit)
	response.Success(c, model.AuditPage{Count: total, Results: records})
}

var auditCSVHeader = []string{"id", "distribution_id", "project_id", "project_title", "school_id", "school_name", "wallet_address", "amount", "transaction_hash", "status", "approved_by", "pool_address", "nft_id", "gas_used", "block_number", "explorer_url", "created_at"}

// AuditExport GET /admin/rewards/audit-trail/export/
func (h *Handler) AuditExport(c *gin.Context) {
	f, ok := auditFilter(c)
	if !ok {
		return
	}
	records, _ := h.store.Audit(f, 0, 0)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(auditCSVHeader)
	for _, r := range records {
		_ = w.Write([]string{
			strconv.FormatInt(r.ID, 10),
			r.DistributionID.String(),
			strconv.FormatInt(r.ProjectID, 10),
			r.ProjectTitle,
			strconv.FormatInt(r.SchoolID, 10),
			r.SchoolName,
			r.WalletAddress,
			r.Amount.String(),
			r.TransactionHash,
			string(r.Status),
			r.ApprovedBy,
			r.PoolAddress,
			r.NFTID,
			strconv.FormatUint(r.GasUsed, 10),
			strconv.FormatUint(r.BlockNumber, 10),
			r.ExplorerURL,
			r.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Flush()

	c.Header("Content-Disposition", `attachment; filename="reward-audit-trail.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func projectID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, errno.ErrBind.WithMessage("invalid project id"))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func auditFilter(c *gin.Context) (AuditFilter, bool) {
	f := AuditFilter{Status: c.Query("status")}
	if s := c.Query("project_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			response.Error(c, errno.ErrBind.WithMessage("invalid project_id"))
			return f, false
		}
		f.ProjectID = id
	}
	if s := c.Query("start_date"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			response.Error(c, errno.ErrBind.WithMessage("start_date must be YYYY-MM-DD"))
			return f, false
		}
		f.StartDate = &t
	}
	return f, true
}
