package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SchoolRef 学校引用 (后端只返回 id + name)
type SchoolRef struct {
	ID   int64  `json:"id" validate:"required"`
	Name string `json:"name"`
}

// RewardProject 可发放奖励的项目，由后端在项目完成时生成，客户端只读
type RewardProject struct {
	ID                    int64           `json:"id" validate:"required"`
	Title                 string          `json:"title" validate:"required"`
	LeadSchool            *SchoolRef      `json:"lead_school,omitempty"`
	ParticipatingSchools  []SchoolRef     `json:"participating_schools" validate:"dive"`
	RewardPerParticipant  decimal.Decimal `json:"reward_per_participant"`
	EstimatedParticipants int             `json:"estimated_participants" validate:"min=0"`
	EstimatedTotalCost    decimal.Decimal `json:"estimated_total_cost"`
	EndDate               string          `json:"end_date"`
	Status                string          `json:"status"`
	RewardStatus          string          `json:"reward_status" validate:"omitempty,oneof=pending ready completed"`
	OfferRewards          *bool           `json:"offer_rewards"`
	RewardsDistributed    bool            `json:"rewards_distributed"`
}

// Reward status values
const (
	RewardStatusPending   = "pending"
	RewardStatusReady     = "ready"
	RewardStatusCompleted = "completed"
)

// Eligible: project finished and rewards not explicitly disabled.
func (p RewardProject) Eligible() bool {
	if !strings.EqualFold(p.Status, "completed") {
		return false
	}
	return p.OfferRewards == nil || *p.OfferRewards
}

// Schools returns the lead school followed by the participating schools, without duplicates.
func (p RewardProject) Schools() []SchoolRef {
	seen := make(map[int64]bool, len(p.ParticipatingSchools)+1)
	out := make([]SchoolRef, 0, len(p.ParticipatingSchools)+1)
	if p.LeadSchool != nil && p.LeadSchool.ID != 0 {
		seen[p.LeadSchool.ID] = true
		out = append(out, *p.LeadSchool)
	}
	for _, s := range p.ParticipatingSchools {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}

// HasSchool reports whether schoolID belongs to the project.
func (p RewardProject) HasSchool(schoolID int64) bool {
	for _, s := range p.Schools() {
		if s.ID == schoolID {
			return true
		}
	}
	return false
}
