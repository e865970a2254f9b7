package service

import (
	"context"
	"errors"

	"github.com/unilocator/pairing-server-go/internal/docstore"
	apperrors "github.com/unilocator/pairing-server-go/internal/errors"
)

// mapStoreErr translates a failed store call into the application error
// taxonomy. A call cut off by its timeout is reported as a timeout rather
// than a store fault; it may in fact have completed on the store side.
func mapStoreErr(operation string, err error) *apperrors.AppError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.Timeout(operation)
	}
	if docstore.IsTransient(err) {
		return apperrors.StoreTransient(err)
	}
	return apperrors.StoreFatal(err)
}
