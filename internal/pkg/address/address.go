package address

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/grainlyyy/pds-api/internal/domain"
)

// Normalize validates a 0x-prefixed hex address and returns it in lower case.
func Normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", fmt.Errorf("address %q must be 0x-prefixed: %w", s, domain.ErrInvalidFormat)
	}
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("address %q: %w", s, domain.ErrInvalidFormat)
	}
	return strings.ToLower(s), nil
}

// IsZero reports whether s is empty or the zero address.
func IsZero(s string) bool {
	return s == "" || common.HexToAddress(s) == (common.Address{})
}
