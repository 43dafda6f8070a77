package helpers

import (
	"crypto/rand"
	"strconv"
)

// GenOTPCode generates a random 4-digit OTP code in [1000, 9999].
// Codes are short-lived and bound to a server-side session; rate limiting
// on the confirmation endpoints keeps brute force impractical.
func GenOTPCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	n := int(b[0])<<24 | int(b[1])<<16 | int(b[2])<<8 | int(b[3])
	if n < 0 {
		n = -n
	}
	code := 1000 + n%9000
	return strconv.Itoa(code), nil
}
