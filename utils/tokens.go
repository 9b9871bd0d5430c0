// utils/tokens.go
package utils

import (
	"crypto/rand"
	"encoding/base64"
)

const (
	ShareTokenLength   = 16
	RequestTokenLength = 32
)

const urlAlphabet = "useandom-26T198340PX75pxJACKVERYMINDBUSHWOLF_GQZbfghjklqvwyzrict"

// RandomString returns n characters drawn uniformly from a 64-symbol URL-safe alphabet.
// It panics when the system entropy source fails.
func RandomString(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = urlAlphabet[b&63]
	}
	return string(out)
}

// NewShareToken issues a token granting read-only access to a client's analytics.
func NewShareToken() string {
	return RandomString(ShareTokenLength)
}

// NewRequestToken issues the token embedded in review request links.
func NewRequestToken() string {
	return RandomString(RequestTokenLength)
}

// GenerateSecret returns a base64 secret suitable for signing sessions.
func GenerateSecret() string {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic("failed to generate secret")
	}
	return base64.StdEncoding.EncodeToString(key)
}
