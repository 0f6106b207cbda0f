package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

func NowISO() string {
	return time.Now().Format(time.RFC3339)
}

// NormalizeText trims the value, applies NFC and folds full-width ASCII
// (２曲 becomes 2曲) so form values compare the same regardless of the IME used.
func NormalizeText(s string) string {
	s = norm.NFC.String(s)
	s = width.Fold.String(s)
	return strings.TrimSpace(s)
}

// Blank reports whether a form value is empty after trimming.
func Blank(s string) bool {
	return NormalizeText(s) == ""
}

func HMACSHA256Hex(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC compares a hex signature against the expected one in constant time.
func VerifyHMAC(secret, msg, sig string) bool {
	expected := HMACSHA256Hex(secret, msg)
	return sig != "" && hmac.Equal([]byte(sig), []byte(expected))
}
