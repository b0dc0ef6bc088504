// Package format holds the small numeric and string helpers shared by the
// explainer stages: token amount rendering, address shortening and the
// unlimited-approval check.
package format

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrInvalidNumber is returned by ParseBigInt for input that is neither a
// decimal nor a 0x-prefixed hex integer.
var ErrInvalidNumber = errors.New("invalid number")

// UnlimitedThreshold is 2^255. Approvals at or above it are treated as unlimited.
var UnlimitedThreshold = new(big.Int).Lsh(big.NewInt(1), 255)

// IsUnlimited reports whether amount is at or above UnlimitedThreshold.
func IsUnlimited(amount *big.Int) bool {
	if amount == nil {
		return false
	}
	return amount.Cmp(UnlimitedThreshold) >= 0
}

// FormatAmount renders amount scaled down by 10^decimals, trimming trailing
// zeros from the fractional part. A nil amount renders as "0".
func FormatAmount(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	if decimals <= 0 {
		return amount.String()
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	quotient, remainder := new(big.Int).QuoRem(amount, divisor, new(big.Int))
	if remainder.Sign() == 0 {
		return quotient.String()
	}

	frac := remainder.String()
	if len(frac) < decimals {
		frac = strings.Repeat("0", decimals-len(frac)) + frac
	}
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return quotient.String()
	}
	return quotient.String() + "." + frac
}

// ShortenAddress renders an address as 0x1234...abcd. Strings too short to
// shorten are returned unchanged.
func ShortenAddress(address string) string {
	const head, tail = 6, 4
	if len(address) <= head+tail {
		return address
	}
	return address[:head] + "..." + address[len(address)-tail:]
}

// SelectorHex renders a function selector as 0x-prefixed lowercase hex.
func SelectorHex(selector [4]byte) string {
	return hexutil.Encode(selector[:])
}

// ParseBigInt parses a non-negative decimal or 0x-prefixed hex integer.
func ParseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrInvalidNumber)
	}

	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
		if digits == "" {
			return new(big.Int), nil
		}
	}

	n, ok := new(big.Int).SetString(digits, base)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return n, nil
}
