package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Customer is identified by the (DisplayName, Phone) pair.
type Customer struct {
	ID             int64
	DisplayName    string
	Phone          string
	CredentialHash string
	CreatedAt      time.Time
}

// HashCredential returns the hex SHA-256 digest of the raw credential.
func HashCredential(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

func (c Customer) CredentialMatches(credential string) bool {
	return c.CredentialHash == HashCredential(credential)
}
