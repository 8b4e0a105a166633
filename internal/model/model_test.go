package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reward-core/pkg/validator"
)

func TestAllPayloads_TagsAreWellFormed(t *testing.T) {
	for _, p := range AllPayloads() {
		assert.NotPanics(t, func() { _ = validator.Struct(p) })
	}
}

func TestStatusOf(t *testing.T) {
	valid := "0x52908400098527886e0f7030069857d2e4169ee7"
	tests := []struct {
		name   string
		wallet *SchoolWallet
		want   WalletStatus
	}{
		{"nil", nil, WalletMissing},
		{"empty address", &SchoolWallet{SchoolID: 1, IsValidated: true}, WalletMissing},
		{"not validated", &SchoolWallet{SchoolID: 1, WalletAddress: valid}, WalletPending},
		{"validated but malformed", &SchoolWallet{SchoolID: 1, WalletAddress: "0xabc", IsValidated: true}, WalletPending},
		{"ready", &SchoolWallet{SchoolID: 1, WalletAddress: valid, IsValidated: true}, WalletReady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.wallet))
		})
	}
}

func TestRewardProject_Eligible(t *testing.T) {
	yes, no := true, false
	assert.True(t, RewardProject{Status: "completed"}.Eligible())
	assert.True(t, RewardProject{Status: "completed", OfferRewards: &yes}.Eligible())
	assert.False(t, RewardProject{Status: "completed", OfferRewards: &no}.Eligible())
	assert.False(t, RewardProject{Status: "active"}.Eligible())
}

func TestRewardProject_SchoolsDedupesLeadSchool(t *testing.T) {
	p := RewardProject{
		LeadSchool: &SchoolRef{ID: 1, Name: "Lead"},
		ParticipatingSchools: []SchoolRef{
			{ID: 1, Name: "Lead"},
			{ID: 2, Name: "Second"},
		},
	}
	schools := p.Schools()
	require.Len(t, schools, 2)
	assert.Equal(t, int64(1), schools[0].ID)
	assert.Equal(t, int64(2), schools[1].ID)
	assert.True(t, p.HasSchool(2))
	assert.False(t, p.HasSchool(3))
}

func TestDistributionPreview_Ready(t *testing.T) {
	p := DistributionPreview{}
	assert.True(t, p.Ready())

	p.ValidationErrors = []ValidationError{{SchoolID: 7, Message: "wallet not validated"}}
	assert.False(t, p.Ready(), "one validation error with zero missing wallets is not ready")

	p.ValidationErrors = nil
	p.Summary.SchoolsMissingWallets = 1
	assert.False(t, p.Ready())
}

func TestDistributionPreview_ErrorsFor(t *testing.T) {
	p := DistributionPreview{ValidationErrors: []ValidationError{
		{SchoolID: 1, Message: "a"},
		{SchoolID: 2, Message: "b"},
		{SchoolID: 1, Message: "c"},
	}}
	assert.Equal(t, []string{"a", "c"}, p.ErrorsFor(1))
	assert.Empty(t, p.ErrorsFor(3))
}

func TestPoolInfo_RemainingMonthly(t *testing.T) {
	p := PoolInfo{MonthlyLimit: decimal.NewFromInt(1000), MonthlyUsed: decimal.NewFromInt(250)}
	assert.True(t, p.RemainingMonthly().Equal(decimal.NewFromInt(750)))

	p.MonthlyUsed = decimal.NewFromInt(1200)
	assert.True(t, p.RemainingMonthly().IsZero())
}

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		total     int
		want      float64
	}{
		{"zero total", 0, 0, 0},
		{"none", 0, 4, 0},
		{"half", 2, 4, 50},
		{"all", 4, 4, 100},
		{"over reported", 5, 4, 100},
		{"negative", -1, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DistributionStatus{CompletedTransactions: tt.completed, TotalTransactions: tt.total}
			assert.Equal(t, tt.want, s.ProgressPercent())
		})
	}
}

func TestID_UnmarshalJSON(t *testing.T) {
	var v struct {
		ID ID `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"id": 42}`), &v))
	assert.Equal(t, ID("42"), v.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id": "dist-7"}`), &v))
	assert.Equal(t, ID("dist-7"), v.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id": null}`), &v))
	assert.Equal(t, ID(""), v.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"id": true}`), &v))
}

func TestTxStatus_Terminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
}
