package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuditRecord 历史发放记录 (只读)
type AuditRecord struct {
	ID              int64           `json:"id"`
	DistributionID  ID              `json:"distribution_id"`
	ProjectID       int64           `json:"project_id"`
	ProjectTitle    string          `json:"project_title"`
	SchoolID        int64           `json:"school_id"`
	SchoolName      string          `json:"school_name"`
	WalletAddress   string          `json:"wallet_address"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionHash string          `json:"transaction_hash"`
	Status          TxStatus        `json:"status" validate:"omitempty,oneof=pending processing completed failed"`
	ApprovedBy      string          `json:"approved_by"`
	PoolAddress     string          `json:"pool_address"`
	NFTID           string          `json:"nft_id"`
	GasUsed         uint64          `json:"gas_used"`
	BlockNumber     uint64          `json:"block_number"`
	ExplorerURL     string          `json:"explorer_url"`
	CreatedAt       time.Time       `json:"created_at"`
}

type AuditPage struct {
	Count   int           `json:"count" validate:"min=0"`
	Results []AuditRecord `json:"results" validate:"dive"`
}

// AuditQuery maps onto the audit-trail query string; zero values are omitted.
type AuditQuery struct {
	Page      int
	Limit     int
	ProjectID int64
	Status    string
	StartDate *time.Time
}
