package address

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"reward-core/pkg/errno"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"lowercase", "0x52908400098527886e0f7030069857d2e4169ee7", true},
		{"mixed case", "0x52908400098527886E0F7030069857D2E4169EE7", true},
		{"missing prefix", "52908400098527886e0f7030069857d2e4169ee7", false},
		{"upper prefix", "0X52908400098527886e0f7030069857d2e4169ee7", false},
		{"too short", "0x52908400098527886e0f7030069857d2e4169ee", false},
		{"too long", "0x52908400098527886e0f7030069857d2e4169ee77", false},
		{"non hex", "0x52908400098527886e0f7030069857d2e4169eeg", false},
		{"empty", "", false},
		{"surrounding space", " 0x52908400098527886e0f7030069857d2e4169ee7", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.input))
		})
	}
}

func TestValidate(t *testing.T) {
	addr, err := Validate("  0x52908400098527886e0f7030069857d2e4169ee7 ")
	assert.NoError(t, err)
	assert.Equal(t, "0x52908400098527886e0f7030069857d2e4169ee7", addr)

	_, err = Validate("   ")
	assert.ErrorIs(t, err, errno.ErrWalletAddressRequired)

	_, err = Validate("0xabc")
	assert.ErrorIs(t, err, errno.ErrWalletAddressInvalid)
}

func TestChecksum(t *testing.T) {
	// EIP-55 test vector
	assert.Equal(t, "0x52908400098527886E0F7030069857D2E4169EE7",
		Checksum(strings.ToLower("0x52908400098527886E0F7030069857D2E4169EE7")))
	assert.Equal(t, "not-an-address", Checksum("not-an-address"))
}

func TestShort(t *testing.T) {
	assert.Equal(t, "0x5290…9ee7", Short("0x52908400098527886e0f7030069857d2e4169ee7"))
	assert.Equal(t, "0x12", Short("0x12"))
}
