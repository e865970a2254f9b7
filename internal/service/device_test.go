package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/unilocator/pairing-server-go/internal/docstore"
	apperrors "github.com/unilocator/pairing-server-go/internal/errors"
	"github.com/unilocator/pairing-server-go/internal/model"
)

const testDeviceID = "myhost_2f1c9a8e-77aa-4f21-b9d0-0123456789ab"

func TestRegister_Success(t *testing.T) {
	repo := new(mockDeviceRepo)
	svc := NewDeviceService(repo)

	attrs := model.DeviceAttrs{DisplayName: "Work Laptop", Model: "XPS 13"}
	owner := model.Identity{UserID: "user-1", Email: "u@example.com"}

	repo.On("Upsert", mock.Anything, testDeviceID, "user-1", attrs).Return(nil)
	repo.On("Find", mock.Anything, testDeviceID).Return(&model.Device{
		ID:          testDeviceID,
		OwnerUserID: "user-1",
		DisplayName: "Work Laptop",
		Model:       "XPS 13",
		Active:      true,
	}, nil)

	device, err := svc.Register(context.Background(), owner, testDeviceID, attrs)
	require.NoError(t, err)
	assert.Equal(t, "Work Laptop", device.DisplayName)
	repo.AssertExpectations(t)
}

func TestRegister_RejectsShortDeviceID(t *testing.T) {
	repo := new(mockDeviceRepo)
	svc := NewDeviceService(repo)

	_, err := svc.Register(context.Background(), model.Identity{UserID: "user-1"}, "short-id", model.DeviceAttrs{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_RejectsBadDeviceIDCharset(t *testing.T) {
	repo := new(mockDeviceRepo)
	svc := NewDeviceService(repo)

	bad := "myhost_2f1c9a8e/77aa!4f21+b9d0.0123456789ab"
	_, err := svc.Register(context.Background(), model.Identity{UserID: "user-1"}, bad, model.DeviceAttrs{})
	require.Error(t, err)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_RejectsOverlongName(t *testing.T) {
	repo := new(mockDeviceRepo)
	svc := NewDeviceService(repo)

	attrs := model.DeviceAttrs{DisplayName: strings.Repeat("x", 51)}
	_, err := svc.Register(context.Background(), model.Identity{UserID: "user-1"}, testDeviceID, attrs)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
}

func TestRegister_EmptyNameAllowed(t *testing.T) {
	repo := new(mockDeviceRepo)
	svc := NewDeviceService(repo)

	repo.On("Upsert", mock.Anything, testDeviceID, "user-1", model.DeviceAttrs{}).Return(nil)
	repo.On("Find", mock.Anything, testDeviceID).Return(&model.Device{ID: testDeviceID, Active: true}, nil)

	_, err := svc.Register(context.Background(), model.Identity{UserID: "user-1"}, testDeviceID, model.DeviceAttrs{})
	require.NoError(t, err)
}

func TestTouchLastSeen_UnknownDevice(t *testing.T) {
	repo := new(mockDeviceRepo)
	svc := NewDeviceService(repo)

	repo.On("TouchLastSeen", mock.Anything, testDeviceID).Return(docstore.ErrNotFound)

	err := svc.TouchLastSeen(context.Background(), testDeviceID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
}

func TestTouchLastSeen_MalformedID(t *testing.T) {
	repo := new(mockDeviceRepo)
	svc := NewDeviceService(repo)

	err := svc.TouchLastSeen(context.Background(), "nope")
	require.Error(t, err)
	repo.AssertNotCalled(t, "TouchLastSeen", mock.Anything, mock.Anything)
}

func TestList_FlagsCurrentDevice(t *testing.T) {
	repo := new(mockDeviceRepo)
	svc := NewDeviceService(repo)

	now := time.Now()
	other := "otherhost_11111111-2222-3333-4444-555555555555"
	repo.On("ListActiveByOwner", mock.Anything, "user-1").Return([]model.Device{
		{ID: testDeviceID, OwnerUserID: "user-1", LastSeenAt: now},
		{ID: other, OwnerUserID: "user-1", LastSeenAt: now},
	}, nil)

	devices, err := svc.List(context.Background(), model.Identity{UserID: "user-1"}, testDeviceID)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.True(t, devices[0].IsCurrentDevice)
	assert.False(t, devices[1].IsCurrentDevice)
}
