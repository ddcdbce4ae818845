package utils

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateToken returns an opaque globally unique confirmation-token value.
func GenerateToken() string {
	return uuid.NewString()
}

func GenerateRandomString(length int) string {
	result := make([]byte, length)
	charsetLength := big.NewInt(int64(len(alphanumeric)))

	for i := range result {
		num, _ := rand.Int(rand.Reader, charsetLength)
		result[i] = alphanumeric[num.Int64()]
	}

	return string(result)
}
