package utils

import (
	"net/http"
	"strings"
)

// ClientIP is the best-effort originating address: the first X-Forwarded-For
// entry, else X-Real-IP, else empty.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Real-IP"))
}
