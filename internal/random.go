package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
)

// NewNumericCode returns a uniformly random decimal code of exactly digits
// characters with a non-zero leading digit.
func NewNumericCode(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid code digits")
	}

	low := pow10(digits - 1)
	span := new(big.Int).Sub(pow10(digits), low)

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	n.Add(n, low)

	code := n.String()
	if len(code) != digits {
		return "", errors.New("invalid code generation length: " + strconv.Itoa(len(code)))
	}
	return code, nil
}

func pow10(exp int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
}

// IsNumericCode reports whether s is exactly digits ASCII decimal characters.
func IsNumericCode(s string, digits int) bool {
	if len(s) != digits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
