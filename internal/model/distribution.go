package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ID accepts both JSON strings and numbers; the backend is not consistent about distribution ids.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// TxStatus is shared by distributions and their transactions.
type TxStatus string

const (
	StatusPending    TxStatus = "pending"
	StatusProcessing TxStatus = "processing"
	StatusCompleted  TxStatus = "completed"
	StatusFailed     TxStatus = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s TxStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// DistributeRequest is the body of POST .../distribute/.
type DistributeRequest struct {
	ConfirmDistribution bool   `json:"confirm_distribution"`
	AdminNotes          string `json:"admin_notes"`
}

// BlockchainTransaction is an initial transfer returned by the distribute call.
type BlockchainTransaction struct {
	SchoolID        int64           `json:"school_id"`
	SchoolName      string          `json:"school_name"`
	WalletAddress   string          `json:"wallet_address"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionHash string          `json:"transaction_hash"`
	ExplorerURL     string          `json:"explorer_url"`
	Status          TxStatus        `json:"status" validate:"omitempty,oneof=pending processing completed failed"`
}

type DistributionResult struct {
	DistributionID ID                      `json:"distribution_id" validate:"required"`
	Message        string                  `json:"message"`
	Transactions   []BlockchainTransaction `json:"blockchain_transactions" validate:"dive"`
}

// Transaction 一笔链上转账
type Transaction struct {
	ID              int64           `json:"id"`
	SchoolName      string          `json:"school_name"`
	WalletAddress   string          `json:"wallet_address"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionHash string          `json:"transaction_hash"`
	Status          TxStatus        `json:"status" validate:"required,oneof=pending processing completed failed"`
	GasUsed         uint64          `json:"gas_used"`
	BlockNumber     uint64          `json:"block_number"`
	Timestamp       *time.Time      `json:"timestamp,omitempty"`
	ExplorerURL     string          `json:"explorer_url"`
	RetryCount      int             `json:"retry_count" validate:"min=0"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}

type DistributionStatus struct {
	DistributionID         ID            `json:"distribution_id" validate:"required"`
	ProjectTitle           string        `json:"project_title"`
	OverallStatus          TxStatus      `json:"overall_status" validate:"required,oneof=pending processing completed failed"`
	TotalTransactions      int           `json:"total_transactions" validate:"min=0"`
	CompletedTransactions  int           `json:"completed_transactions" validate:"min=0"`
	FailedTransactions     int           `json:"failed_transactions" validate:"min=0"`
	PendingTransactions    int           `json:"pending_transactions" validate:"min=0"`
	ProcessingTransactions int           `json:"processing_transactions" validate:"min=0"`
	Transactions           []Transaction `json:"transactions" validate:"dive"`
}

// ProgressPercent is completed/total as a percentage clamped to [0,100]; 0 when total is 0.
func (s DistributionStatus) ProgressPercent() float64 {
	if s.TotalTransactions <= 0 {
		return 0
	}
	pct := float64(s.CompletedTransactions) / float64(s.TotalTransactions) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
