package helpers

import (
	"strings"

	"github.com/google/uuid"
)

// ReferralCodePrefix starts every user's referral code.
const ReferralCodePrefix = "EVO"

// IDGenerator generates various types of IDs
type IDGenerator struct{}

// NewIDGenerator creates a new ID generator
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GenerateUUID generates a UUID v4
func (g *IDGenerator) GenerateUUID() string {
	return uuid.New().String()
}

// GenerateReferralCode returns prefix followed by 8 uppercase hex characters,
// e.g. EVO3FA92C1B. Uniqueness is checked by the caller against the store.
func (g *IDGenerator) GenerateReferralCode(prefix string) string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return prefix + strings.ToUpper(raw[:8])
}
