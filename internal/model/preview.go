package model

import "github.com/shopspring/decimal"

type PreviewSummary struct {
	TotalSchools          int             `json:"total_schools" validate:"min=0"`
	TotalParticipants     int             `json:"total_participants" validate:"min=0"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	SchoolsWithWallets    int             `json:"schools_with_wallets" validate:"min=0"`
	SchoolsMissingWallets int             `json:"schools_missing_wallets" validate:"min=0"`
}

// SchoolDistribution is one payout line of a preview.
type SchoolDistribution struct {
	SchoolID      int64           `json:"school_id" validate:"required"`
	SchoolName    string          `json:"school_name"`
	Participants  int             `json:"participants" validate:"min=0"`
	RewardAmount  decimal.Decimal `json:"reward_amount"`
	WalletAddress string          `json:"wallet_address"`
	WalletReady   bool            `json:"wallet_ready"`
}

type ValidationError struct {
	SchoolID   int64  `json:"school_id"`
	SchoolName string `json:"school_name"`
	Message    string `json:"error"`
}

// PoolInfo 奖池信息 (余额 + 月度额度)
type PoolInfo struct {
	PoolAddress  string          `json:"pool_address"`
	Balance      decimal.Decimal `json:"balance"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
	MonthlyUsed  decimal.Decimal `json:"monthly_used"`
}

// RemainingMonthly is limit - used, floored at zero.
func (p PoolInfo) RemainingMonthly() decimal.Decimal {
	left := p.MonthlyLimit.Sub(p.MonthlyUsed)
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

// DistributionPreview is computed on demand by the backend and never cached.
type DistributionPreview struct {
	ProjectID        int64                `json:"project_id"`
	ProjectTitle     string               `json:"project_title"`
	Summary          PreviewSummary       `json:"summary"`
	Distributions    []SchoolDistribution `json:"distributions" validate:"dive"`
	ValidationErrors []ValidationError    `json:"validation_errors"`
	PoolInfo         *PoolInfo            `json:"pool_info,omitempty"`
}

// Ready: no validation errors and no school missing a wallet.
func (p DistributionPreview) Ready() bool {
	return len(p.ValidationErrors) == 0 && p.Summary.SchoolsMissingWallets == 0
}

// ErrorsFor returns the validation messages owned by schoolID.
func (p DistributionPreview) ErrorsFor(schoolID int64) []string {
	var out []string
	for _, e := range p.ValidationErrors {
		if e.SchoolID == schoolID {
			out = append(out, e.Message)
		}
	}
	return out
}
