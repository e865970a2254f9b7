package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/unilocator/pairing-server-go/internal/audit"
	"github.com/unilocator/pairing-server-go/internal/config"
	"github.com/unilocator/pairing-server-go/internal/docstore"
	apperrors "github.com/unilocator/pairing-server-go/internal/errors"
	"github.com/unilocator/pairing-server-go/internal/model"
	"github.com/unilocator/pairing-server-go/internal/repository"
	"github.com/unilocator/pairing-server-go/internal/util"
)

// DeviceService owns device registration and liveness. Registration is a
// merge-upsert keyed by the installation identifier, so repeated logins
// refresh the record in place instead of duplicating it.
type DeviceService struct {
	deviceRepo repository.DeviceRepository
}

func NewDeviceService(deviceRepo repository.DeviceRepository) *DeviceService {
	return &DeviceService{deviceRepo: deviceRepo}
}

// Register validates the identifier and attributes, then merge-upserts the
// device record. Validation failures never reach the store.
func (s *DeviceService) Register(ctx context.Context, owner model.Identity, deviceID string, attrs model.DeviceAttrs) (*model.Device, error) {
	if !util.IsValidDeviceID(deviceID) {
		return nil, apperrors.InvalidInput("deviceId", fmt.Sprintf("must be at least %d characters of [a-zA-Z0-9_-]", util.MinDeviceIDLength))
	}
	if attrs.DisplayName != "" && !util.IsValidDeviceName(attrs.DisplayName) {
		return nil, apperrors.InvalidInput("displayName", fmt.Sprintf("must be 1-%d characters of letters, digits, spaces, hyphens, underscores", util.MaxDeviceNameLength))
	}

	writeCtx, cancel := context.WithTimeout(ctx, config.DeviceWriteTimeout)
	defer cancel()

	if err := s.deviceRepo.Upsert(writeCtx, deviceID, owner.UserID, attrs); err != nil {
		return nil, mapStoreErr("register device", err)
	}

	device, err := s.deviceRepo.Find(writeCtx, deviceID)
	if err != nil {
		return nil, mapStoreErr("register device", err)
	}
	if device == nil {
		return nil, apperrors.Internal("device record missing after upsert")
	}

	log.Info().
		Str("deviceId", deviceID).
		Str("ownerUserId", owner.UserID).
		Msg("device registered")
	audit.Log(ctx, audit.Event{
		Type:     audit.EventDeviceRegister,
		UserID:   owner.UserID,
		DeviceID: deviceID,
	})

	return device, nil
}

// TouchLastSeen refreshes only the device's liveness timestamp. Callers
// treat this as fire-and-log; a failed touch never fails a login flow.
func (s *DeviceService) TouchLastSeen(ctx context.Context, deviceID string) error {
	if !util.IsValidDeviceID(deviceID) {
		return apperrors.InvalidInput("deviceId", "malformed device identifier")
	}

	writeCtx, cancel := context.WithTimeout(ctx, config.DeviceWriteTimeout)
	defer cancel()

	err := s.deviceRepo.TouchLastSeen(writeCtx, deviceID)
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return apperrors.NotFound("Device")
	}
	return mapStoreErr("touch device", err)
}

// List returns the owner's active devices. currentDeviceID is the
// identifier resident on the calling installation; the matching record is
// flagged so clients can mark "this device".
func (s *DeviceService) List(ctx context.Context, owner model.Identity, currentDeviceID string) ([]model.Device, error) {
	queryCtx, cancel := context.WithTimeout(ctx, config.DeviceQueryTimeout)
	defer cancel()

	devices, err := s.deviceRepo.ListActiveByOwner(queryCtx, owner.UserID)
	if err != nil {
		return nil, mapStoreErr("list devices", err)
	}

	for i := range devices {
		devices[i].IsCurrentDevice = devices[i].ID == currentDeviceID
	}
	return devices, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, docstore.ErrNotFound)
}
