package model

import "time"

// PairingCode is a short-lived human-enterable token that one identity
// issues and another consumes to establish a Connection. At most one code
// per owner is active at any time; expiry is evaluated against ExpiresAt at
// read time, never against Active alone.
type PairingCode struct {
	ID          string    `json:"id"`
	OwnerUserID string    `json:"ownerUserId"`
	OwnerEmail  string    `json:"ownerEmail"`
	Code        string    `json:"code"`
	QRPayload   string    `json:"qrPayload"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Active      bool      `json:"active"`
}

// Expired reports whether the code is past its expiry at the given instant.
func (c *PairingCode) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

type CreatePairingCodeParams struct {
	OwnerUserID string
	OwnerEmail  string
	Code        string
	QRPayload   string
	ExpiresAt   time.Time
}
