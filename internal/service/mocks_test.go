package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/unilocator/pairing-server-go/internal/model"
)

// Mock repositories

type mockPairingCodeRepo struct {
	mock.Mock
}

func (m *mockPairingCodeRepo) FindValidByCode(ctx context.Context, code string, now time.Time) ([]model.PairingCode, error) {
	args := m.Called(ctx, code, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PairingCode), args.Error(1)
}

func (m *mockPairingCodeRepo) ListValid(ctx context.Context, now time.Time, limit int) ([]model.PairingCode, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PairingCode), args.Error(1)
}

func (m *mockPairingCodeRepo) FindActiveByOwner(ctx context.Context, ownerUserID string) ([]model.PairingCode, error) {
	args := m.Called(ctx, ownerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PairingCode), args.Error(1)
}

func (m *mockPairingCodeRepo) ListActive(ctx context.Context) ([]model.PairingCode, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PairingCode), args.Error(1)
}

func (m *mockPairingCodeRepo) Create(ctx context.Context, params model.CreatePairingCodeParams) (*model.PairingCode, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PairingCode), args.Error(1)
}

func (m *mockPairingCodeRepo) Deactivate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockConnectionRepo struct {
	mock.Mock
}

func (m *mockConnectionRepo) FindActive(ctx context.Context, code, peerUserID string) ([]model.Connection, error) {
	args := m.Called(ctx, code, peerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Connection), args.Error(1)
}

func (m *mockConnectionRepo) Create(ctx context.Context, params model.CreateConnectionParams) (*model.Connection, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Connection), args.Error(1)
}

type mockDeviceRepo struct {
	mock.Mock
}

func (m *mockDeviceRepo) Find(ctx context.Context, deviceID string) (*model.Device, error) {
	args := m.Called(ctx, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Device), args.Error(1)
}

func (m *mockDeviceRepo) Upsert(ctx context.Context, deviceID, ownerUserID string, attrs model.DeviceAttrs) error {
	args := m.Called(ctx, deviceID, ownerUserID, attrs)
	return args.Error(0)
}

func (m *mockDeviceRepo) TouchLastSeen(ctx context.Context, deviceID string) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}

func (m *mockDeviceRepo) ListActiveByOwner(ctx context.Context, ownerUserID string) ([]model.Device, error) {
	args := m.Called(ctx, ownerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Device), args.Error(1)
}

// fixedGenerator replays a scripted sequence of codes, repeating the last
// one when exhausted.
type fixedGenerator struct {
	codes []string
	next  int
}

func (g *fixedGenerator) Generate() string {
	if g.next < len(g.codes)-1 {
		code := g.codes[g.next]
		g.next++
		return code
	}
	return g.codes[len(g.codes)-1]
}
