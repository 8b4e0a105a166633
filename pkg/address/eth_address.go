package address

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"reward-core/pkg/errno"
)

// walletPattern 与前端保持一致: 0x + 40 位十六进制，不校验 EIP-55 大小写
var walletPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// IsValid reports whether s is a syntactically valid payout address.
func IsValid(s string) bool {
	return walletPattern.MatchString(s)
}

// Validate trims s and returns it when valid, or a local validation error.
func Validate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errno.ErrWalletAddressRequired
	}
	if !IsValid(s) {
		return "", errno.ErrWalletAddressInvalid
	}
	return s, nil
}

// Checksum returns the EIP-55 mixed-case form of a valid address.
// Invalid input is returned unchanged.
func Checksum(s string) string {
	if !IsValid(s) {
		return s
	}
	return common.HexToAddress(s).Hex()
}

// Short renders 0x1234…abcd for table output.
func Short(s string) string {
	if len(s) < 12 {
		return s
	}
	return s[:6] + "…" + s[len(s)-4:]
}
