package event

import (
	"time"
)

// Event types
const (
	TypeWalletSubmitted      = "wallet.submitted"
	TypeDistributionTrigger  = "distribution.triggered"
	TypeDistributionFailed   = "distribution.trigger_failed"
	TypeDistributionFinished = "distribution.finished"
)

// Event 控制台发出的审计事件
// Topic: events.topic (默认 reward_distribution_events)
type Event struct {
	ID             string            `json:"id"`
	Type           string            `json:"type"`
	OccurredAt     time.Time         `json:"occurred_at"`
	Actor          string            `json:"actor,omitempty"`
	ProjectID      int64             `json:"project_id,omitempty"`
	DistributionID string            `json:"distribution_id,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

// WalletSubmitted 学校钱包提交成功
type WalletSubmitted struct {
	ProjectID     int64
	SchoolID      int64
	WalletAddress string
}

// DistributionTriggered distribute 接口调用成功
type DistributionTriggered struct {
	ProjectID      int64
	ProjectTitle   string
	DistributionID string
	TotalAmount    string // Decimal string
	Recipients     int
	AdminNotes     string
}

// DistributionFinished 发放到达终态 (completed / failed)
type DistributionFinished struct {
	DistributionID string
	OverallStatus  string
	Completed      int
	Failed         int
	Total          int
}
