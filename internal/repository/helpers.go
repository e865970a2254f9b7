package repository

import (
	"errors"

	"github.com/unilocator/pairing-server-go/internal/docstore"
)

// Collection names in the document store.
const (
	CollectionPairingCodes = "pairing_codes"
	CollectionConnections  = "device_connections"
	CollectionDevices      = "user_devices"
)

// HandleNotFound converts a missing-document error into a nil result
// without error. This is the common pattern for Find* operations where a
// missing document is not an error condition.
//
// Usage:
//
//	doc, err := store.Get(ctx, collection, id)
//	return HandleNotFound(doc, err)
func HandleNotFound[T any](result *T, err error) (*T, error) {
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
