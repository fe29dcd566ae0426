// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const managementCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func GenerateRandomString(length int, charset string) (string, error) {
	b := make([]byte, length)

	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}

	return string(b), nil
}

// GenerateManagementNumber returns a reference like TM-20260114-7KQ2MX.
// Ambiguous characters (0/O, 1/I) are excluded.
func GenerateManagementNumber(now time.Time) (string, error) {
	suffix, err := GenerateRandomString(6, managementCharset)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TM-%s-%s", now.UTC().Format("20060102"), suffix), nil
}
