package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	otpMin   = 100000
	otpRange = 900000
)

// GenerateSecureOTP returns a uniformly random six digit code in 100000-999999.
func GenerateSecureOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpRange))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}
