// utils/auth.go
package utils

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const SessionCookie = "rf_session"

const adminSubject = "admin"

// Hash password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	return string(bytes), err
}

// IsPasswordHash reports whether a stored value is a bcrypt hash rather than plaintext.
func IsPasswordHash(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$")
}

// CheckPassword compares a login attempt against the stored admin password,
// which is either a bcrypt hash or a plaintext value from the environment.
func CheckPassword(password, stored string) bool {
	if password == "" || stored == "" {
		return false
	}
	if IsPasswordHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return SecureCompare(password, stored)
}

func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Generate JWT session token
func GenerateSessionToken(secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT_SECRET not set")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": adminSubject,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	})
	return token.SignedString([]byte(secret))
}

func ParseSessionToken(secret, tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["sub"] != adminSubject {
		return errors.New("invalid token claims")
	}
	return nil
}

// AuthMiddleware accepts the session cookie or a bearer session token.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, _ := c.Cookie(SessionCookie)
		if tokenString == "" {
			tokenString = bearerToken(c.GetHeader("Authorization"))
		}
		if tokenString == "" {
			RespondWithError(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if err := ParseSessionToken(secret, tokenString); err != nil {
			RespondWithError(c, http.StatusUnauthorized, "Invalid session")
			return
		}
		c.Set("admin", true)
		c.Next()
	}
}

// SecretMiddleware gates machine-to-machine endpoints on a shared secret.
// An unset secret rejects every call.
func SecretMiddleware(secret string, extract func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" || !SecureCompare(extract(c), secret) {
			RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Next()
	}
}

func BearerFromRequest(c *gin.Context) string {
	return bearerToken(c.GetHeader("Authorization"))
}

func bearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
