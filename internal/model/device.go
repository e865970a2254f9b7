package model

import "time"

// Device is a registered installation. The ID is derived once on the device
// (stable hardware identifier plus a locally generated UUID) and persisted
// there, so re-registration always hits the same record.
type Device struct {
	ID              string    `json:"id"`
	OwnerUserID     string    `json:"ownerUserId"`
	DisplayName     string    `json:"displayName"`
	Model           string    `json:"model"`
	OSVersion       string    `json:"osVersion"`
	AppVersion      string    `json:"appVersion"`
	LastSeenAt      time.Time `json:"lastSeenAt"`
	RegisteredAt    time.Time `json:"registeredAt"`
	Active          bool      `json:"active"`
	IsCurrentDevice bool      `json:"isCurrentDevice"`
}

// DeviceAttrs carries the mutable device fields supplied on registration.
// Registration is a merge-upsert: empty fields leave the stored values alone.
type DeviceAttrs struct {
	DisplayName string `json:"displayName"`
	Model       string `json:"model"`
	OSVersion   string `json:"osVersion"`
	AppVersion  string `json:"appVersion"`
}

// Identity is the authenticated caller, issued by the external identity
// provider and forwarded by the gateway.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}
