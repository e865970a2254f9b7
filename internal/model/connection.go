package model

import "time"

// ConnectMethod records how the pairing code reached the peer.
type ConnectMethod string

const (
	ConnectMethodQR     ConnectMethod = "QR"
	ConnectMethodManual ConnectMethod = "MANUAL"
)

func (m ConnectMethod) Valid() bool {
	return m == ConnectMethodQR || m == ConnectMethodManual
}

// Connection links the identity that issued a pairing code to the identity
// that consumed it. The code value is denormalized for audit. Connections
// are never deactivated once created.
type Connection struct {
	ID          string        `json:"id"`
	Code        string        `json:"code"`
	OwnerUserID string        `json:"ownerUserId"`
	PeerUserID  string        `json:"peerUserId"`
	PeerEmail   string        `json:"peerEmail"`
	Method      ConnectMethod `json:"method"`
	CreatedAt   time.Time     `json:"createdAt"`
	Active      bool          `json:"active"`
}

type CreateConnectionParams struct {
	Code        string
	OwnerUserID string
	PeerUserID  string
	PeerEmail   string
	Method      ConnectMethod
}
