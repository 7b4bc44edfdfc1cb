// Package auth issues seat tokens for table websockets and checks the
// operator's admin token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidSeatToken = errors.New("invalid seat token")

// IssueSeatToken signs a token that lets its holder drive the table.
func IssueSeatToken(secret, tableToken string, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	claims := jwt.MapClaims{
		"table": tableToken,
		"iat":   time.Now().Unix(),
		"exp":   jwt.NewNumericDate(exp).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign seat token: %w", err)
	}
	return signed, exp, nil
}

// ParseSeatToken validates a seat token and returns the table it grants.
func ParseSeatToken(secret, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidSeatToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidSeatToken
	}
	table, ok := claims["table"].(string)
	if !ok || table == "" {
		return "", ErrInvalidSeatToken
	}
	return table, nil
}

// HashAdminToken bcrypt-hashes a plain admin token for ADMIN_TOKEN_HASH.
func HashAdminToken(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hashed), nil
}

// VerifyAdminToken checks if the provided token matches the stored hash
func VerifyAdminToken(hashedToken, plainToken string) bool {
	if hashedToken == "" || plainToken == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedToken), []byte(plainToken)) == nil
}
