package model

import (
	"time"

	"reward-core/pkg/address"
)

// SchoolWallet 学校在某个项目下的收款地址
type SchoolWallet struct {
	ID            int64     `json:"id"`
	SchoolID      int64     `json:"school_id" validate:"required"`
	SchoolName    string    `json:"school_name"`
	WalletAddress string    `json:"wallet_address"`
	SubmittedBy   string    `json:"submitted_by"`
	CreatedAt     time.Time `json:"created_at"`
	IsValidated   bool      `json:"is_validated"`
}

// WalletStatus is the three-way readiness of a school's payout address.
type WalletStatus string

const (
	WalletMissing WalletStatus = "missing"
	WalletPending WalletStatus = "pending"
	WalletReady   WalletStatus = "ready"
)

// StatusOf derives the readiness of w; a nil wallet is missing.
// Ready requires a present, well-formed and backend-validated address.
func StatusOf(w *SchoolWallet) WalletStatus {
	if w == nil || w.WalletAddress == "" {
		return WalletMissing
	}
	if address.IsValid(w.WalletAddress) && w.IsValidated {
		return WalletReady
	}
	return WalletPending
}

// WalletSubmission is one {school_id, wallet_address} pair of an upsert.
type WalletSubmission struct {
	SchoolID      int64  `json:"school_id" validate:"required"`
	WalletAddress string `json:"wallet_address" validate:"required,wallet"`
}

// WalletUpsertRequest is the body of POST .../wallets/.
type WalletUpsertRequest struct {
	Wallets []WalletSubmission `json:"wallets" validate:"required,min=1,dive"`
}
