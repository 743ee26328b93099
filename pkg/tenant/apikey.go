package tenant

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// API keys have the form "km_<tenantID>_<secret>". The tenant ID makes
// the owning record addressable without a table scan; only the bcrypt
// hash of the secret is stored.
const apiKeyPrefix = "km"

const secretBytes = 24

// NewAPIKey generates an API key for the tenant and returns the raw key
// (shown to the user exactly once) and the bcrypt hash to persist.
func NewAPIKey(tenantID uuid.UUID) (raw, hash string, err error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate api key secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hash api key secret: %w", err)
	}

	return fmt.Sprintf("%s_%s_%s", apiKeyPrefix, tenantID, secret), string(hashed), nil
}

// ParseAPIKey splits a raw API key into tenant ID and secret.
func ParseAPIKey(raw string) (uuid.UUID, string, error) {
	parts := strings.Split(raw, "_")
	if len(parts) != 3 || parts[0] != apiKeyPrefix || parts[2] == "" {
		return uuid.UUID{}, "", ErrInvalidAPIKey
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.UUID{}, "", errors.Join(ErrInvalidAPIKey, err)
	}
	return id, parts[2], nil
}

// VerifyAPIKey compares the key's secret against the stored bcrypt hash.
func VerifyAPIKey(hash, secret string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return ErrInvalidAPIKey
	}
	return nil
}
