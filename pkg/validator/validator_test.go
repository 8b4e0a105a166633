package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type payload struct {
	Status string `validate:"required,oneof=pending processing completed failed"`
	Wallet string `validate:"omitempty,wallet"`
	Count  int    `validate:"min=0"`
}

func TestStruct(t *testing.T) {
	err := Struct(payload{Status: "completed", Wallet: "0x52908400098527886e0f7030069857d2e4169ee7"})
	assert.NoError(t, err)

	err = Struct(payload{Status: "done"})
	assert.Error(t, err)
	assert.Contains(t, GetErrorMsg(err), "payload.Status must be one of")

	err = Struct(payload{Status: "pending", Wallet: "0x123"})
	assert.Error(t, err)
	assert.Contains(t, GetErrorMsg(err), "payload.Wallet is not a valid wallet address")

	err = Struct(payload{Status: "pending", Count: -1})
	assert.Contains(t, GetErrorMsg(err), "payload.Count must be at least 0")
}

func TestGetErrorMsg_NonValidationError(t *testing.T) {
	assert.Equal(t, "invalid payload", GetErrorMsg(nil))
}
