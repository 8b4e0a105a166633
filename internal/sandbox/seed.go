package sandbox

import (
	"github.com/shopspring/decimal"

	"reward-core/internal/model"
)

// SchoolSeed is a participating school with its head count.
type SchoolSeed struct {
	ID           int64
	Name         string
	Participants int
	Wallet       string // optional pre-registered address
	Validated    bool
}

// ProjectSeed describes one project served by the sandbox.
type ProjectSeed struct {
	ID                   int64
	Title                string
	Status               string
	OfferRewards         *bool
	RewardPerParticipant decimal.Decimal
	EndDate              string
	LeadSchoolID         int64
	Schools              []SchoolSeed
}

// Seed is the initial state of a sandbox.
type Seed struct {
	AdminEmail    string
	AdminPassword string
	Pool          model.PoolInfo
	Projects      []ProjectSeed
	// FailSchools lists schools whose transfers end up failed.
	FailSchools []int64
}

func boolPtr(b bool) *bool { return &b }

// DefaultSeed is what `reward-console sandbox` serves.
func DefaultSeed() Seed {
	return Seed{
		AdminEmail:    "admin@globalclassrooms.org",
		AdminPassword: "sandbox",
		Pool: model.PoolInfo{
			PoolAddress:  "0x6e2c2b3b9a1f8d4e5c7a0b1d2e3f405162738495",
			Balance:      decimal.NewFromInt(1_000_000),
			MonthlyLimit: decimal.NewFromInt(250_000),
			MonthlyUsed:  decimal.NewFromInt(40_000),
		},
		Projects: []ProjectSeed{
			{
				ID:                   101,
				Title:                "Tree Planting Drive",
				Status:               "completed",
				RewardPerParticipant: decimal.NewFromInt(100),
				EndDate:              "2026-09-30",
				LeadSchoolID:         1,
				Schools: []SchoolSeed{
					{ID: 1, Name: "Nairobi Green Academy", Participants: 24, Wallet: "0x52908400098527886E0F7030069857D2E4169EE7", Validated: true},
					{ID: 2, Name: "Lisbon International School", Participants: 18},
					{ID: 3, Name: "Bogotá Riverside College", Participants: 12},
				},
			},
			{
				ID:                   102,
				Title:                "Ocean Plastic Census",
				Status:               "completed",
				OfferRewards:         boolPtr(true),
				RewardPerParticipant: decimal.NewFromInt(50),
				EndDate:              "2026-08-15",
				LeadSchoolID:         4,
				Schools: []SchoolSeed{
					{ID: 4, Name: "Cape Town Coastal High", Participants: 30, Wallet: "0x8617E340B3D01FA5F11F306F4090FD50E238070D", Validated: true},
					{ID: 5, Name: "Manila Bay School", Participants: 22, Wallet: "0xde709f2102306220921060314715629080e2fb77", Validated: true},
				},
			},
			{
				ID:                   103,
				Title:                "Community Library Build",
				Status:               "completed",
				OfferRewards:         boolPtr(false),
				RewardPerParticipant: decimal.NewFromInt(75),
				LeadSchoolID:         6,
				Schools:              []SchoolSeed{{ID: 6, Name: "Accra Learning Hub", Participants: 10}},
			},
			{
				ID:                   104,
				Title:                "Solar Classroom Pilot",
				Status:               "active",
				RewardPerParticipant: decimal.NewFromInt(120),
				LeadSchoolID:         7,
				Schools:              []SchoolSeed{{ID: 7, Name: "Kathmandu Valley School", Participants: 16}},
			},
		},
	}
}
