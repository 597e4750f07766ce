// Package credential generates initial passwords for imported members and
// hashes them for storage.
package credential

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/kozaktomas/veriface/internal/constants"
)

const (
	upperChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars = "abcdefghijklmnopqrstuvwxyz"
	digitChars = "0123456789"

	// MinPasswordLength fits one character from each class.
	MinPasswordLength = 4
)

var allChars = upperChars + lowerChars + digitChars + constants.PasswordSymbols

// ErrPasswordTooShort is returned for lengths below MinPasswordLength.
var ErrPasswordTooShort = errors.New("password length must be at least 4")

// GeneratePassword returns a random password of the given length with at
// least one uppercase letter, lowercase letter, digit and symbol.
func GeneratePassword(length int) (string, error) {
	if length < MinPasswordLength {
		return "", fmt.Errorf("%w: got %d", ErrPasswordTooShort, length)
	}

	buf := make([]byte, 0, length)
	for _, class := range []string{upperChars, lowerChars, digitChars, constants.PasswordSymbols} {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < length {
		c, err := randomChar(allChars)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	// Fisher-Yates so the guaranteed characters are not always in front.
	for i := len(buf) - 1; i > 0; i-- {
		j, err := randomInt(i + 1)
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}

	return string(buf), nil
}

func randomChar(set string) (byte, error) {
	i, err := randomInt(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randomInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("reading random bytes: %w", err)
	}
	return int(v.Int64()), nil
}
