package rewardclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"reward-core/internal/model"
	"reward-core/pkg/errno"
	"reward-core/pkg/validator"
)

// ListProjects returns every project the backend reports for the reward panel.
// Eligibility filtering happens in the selector.
func (c *Client) ListProjects(ctx context.Context) ([]model.RewardProject, error) {
	body, err := c.do(ctx, call{
		endpoint: "rewards.projects",
		method:   http.MethodGet,
		path:     "/admin/rewards/projects/",
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	return decodeList[model.RewardProject](body, "results", "projects", "data")
}

// ListWallets returns the wallets submitted so far for a project.
func (c *Client) ListWallets(ctx context.Context, projectID int64) ([]model.SchoolWallet, error) {
	body, err := c.do(ctx, call{
		endpoint: "rewards.wallets.list",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/admin/rewards/project/%d/wallets/", projectID),
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	return decodeList[model.SchoolWallet](body, "wallets", "results", "data")
}

// SubmitWallets upserts wallet addresses and returns the stored records.
func (c *Client) SubmitWallets(ctx context.Context, projectID int64, wallets []model.WalletSubmission) ([]model.SchoolWallet, error) {
	req := model.WalletUpsertRequest{Wallets: wallets}
	if err := validator.Struct(req); err != nil {
		return nil, errno.ErrWalletAddressInvalid.WithMessage(validator.GetErrorMsg(err))
	}

	body, err := c.do(ctx, call{
		endpoint: "rewards.wallets.submit",
		method:   http.MethodPost,
		path:     fmt.Sprintf("/admin/rewards/project/%d/wallets/", projectID),
		body:     req,
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	return decodeList[model.SchoolWallet](body, "wallets", "results", "data")
}

// GetPreview asks the backend to compute the distribution preview.
func (c *Client) GetPreview(ctx context.Context, projectID int64) (*model.DistributionPreview, error) {
	body, err := c.do(ctx, call{
		endpoint: "rewards.preview",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/admin/rewards/project/%d/preview/", projectID),
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	var preview model.DistributionPreview
	if err := decodeObject(body, &preview); err != nil {
		return nil, err
	}
	return &preview, nil
}

// Distribute triggers the irreversible on-chain distribution. Never retried.
func (c *Client) Distribute(ctx context.Context, projectID int64, req model.DistributeRequest) (*model.DistributionResult, error) {
	body, err := c.do(ctx, call{
		endpoint: "rewards.distribute",
		method:   http.MethodPost,
		path:     fmt.Sprintf("/admin/rewards/project/%d/distribute/", projectID),
		body:     req,
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	var result model.DistributionResult
	if err := decodeObject(body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetDistributionStatus polls one distribution.
func (c *Client) GetDistributionStatus(ctx context.Context, distributionID model.ID) (*model.DistributionStatus, error) {
	body, err := c.do(ctx, call{
		endpoint: "rewards.distribution.status",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/admin/rewards/distribution/%s/status/", url.PathEscape(distributionID.String())),
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	var status model.DistributionStatus
	if err := decodeObject(body, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListAuditTrail fetches one page of historical distribution records.
func (c *Client) ListAuditTrail(ctx context.Context, q model.AuditQuery) (*model.AuditPage, error) {
	body, err := c.do(ctx, call{
		endpoint: "rewards.audit",
		method:   http.MethodGet,
		path:     "/admin/rewards/audit-trail/",
		query:    auditValues(q, true),
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	var page model.AuditPage
	if err := decodeObject(body, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ExportAuditTrail streams the backend's CSV export of the filtered set into w.
// The export is not size capped. On error n reports what already reached w.
func (c *Client) ExportAuditTrail(ctx context.Context, q model.AuditQuery, w io.Writer) (int64, error) {
	return c.stream(ctx, call{
		endpoint: "rewards.audit.export",
		method:   http.MethodGet,
		path:     "/admin/rewards/audit-trail/export/",
		query:    auditValues(q, false),
		auth:     true,
	}, w)
}

func auditValues(q model.AuditQuery, paged bool) url.Values {
	v := url.Values{}
	if paged {
		if q.Page > 0 {
			v.Set("page", strconv.Itoa(q.Page))
		}
		if q.Limit > 0 {
			v.Set("limit", strconv.Itoa(q.Limit))
		}
	}
	if q.ProjectID > 0 {
		v.Set("project_id", strconv.FormatInt(q.ProjectID, 10))
	}
	if q.Status != "" && q.Status != "all" {
		v.Set("status", q.Status)
	}
	if q.StartDate != nil {
		v.Set("start_date", q.StartDate.Format("2006-01-02"))
	}
	return v
}
