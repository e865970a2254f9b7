package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/unilocator/pairing-server-go/internal/model"
	"github.com/unilocator/pairing-server-go/internal/qr"
)

func newConnectionService(codeRepo *mockPairingCodeRepo, connRepo *mockConnectionRepo) *ConnectionService {
	return NewConnectionService(NewResolverService(codeRepo), connRepo, qr.NewCodec("unilocator"))
}

func validCode(code, ownerUserID, ownerEmail string) []model.PairingCode {
	return []model.PairingCode{{
		ID:          "doc-" + code,
		Code:        code,
		OwnerUserID: ownerUserID,
		OwnerEmail:  ownerEmail,
		Active:      true,
		ExpiresAt:   time.Now().Add(time.Hour),
	}}
}

func TestConnect_Success(t *testing.T) {
	codeRepo := new(mockPairingCodeRepo)
	connRepo := new(mockConnectionRepo)
	svc := newConnectionService(codeRepo, connRepo)

	codeRepo.On("FindValidByCode", mock.Anything, "AB12-CD34", mock.Anything).
		Return(validCode("AB12-CD34", "owner-1", "owner@example.com"), nil)
	connRepo.On("FindActive", mock.Anything, "AB12-CD34", "peer-1").
		Return([]model.Connection{}, nil)
	connRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateConnectionParams) bool {
		return p.Code == "AB12-CD34" &&
			p.OwnerUserID == "owner-1" &&
			p.PeerUserID == "peer-1" &&
			p.Method == model.ConnectMethodManual
	})).Return(&model.Connection{
		ID:          "conn-1",
		Code:        "AB12-CD34",
		OwnerUserID: "owner-1",
		PeerUserID:  "peer-1",
		Active:      true,
	}, nil)

	requester := model.Identity{UserID: "peer-1", Email: "peer@example.com"}
	outcome := svc.Connect(context.Background(), "AB12-CD34", requester, model.ConnectMethodManual)

	assert.Equal(t, StatusConnected, outcome.Status)
	assert.Equal(t, "owner-1", outcome.OwnerUserID)
	assert.Equal(t, "owner@example.com", outcome.OwnerEmail)
	require.NotNil(t, outcome.Connection)
	assert.Equal(t, "conn-1", outcome.Connection.ID)
	connRepo.AssertExpectations(t)
}

func TestConnect_MalformedCode(t *testing.T) {
	codeRepo := new(mockPairingCodeRepo)
	connRepo := new(mockConnectionRepo)
	svc := newConnectionService(codeRepo, connRepo)

	for _, code := range []string{"", "abcd-1234", "AB12CD34", "AB12-CD3", "AB1!-CD34"} {
		outcome := svc.Connect(context.Background(), code, model.Identity{UserID: "peer-1"}, model.ConnectMethodManual)
		assert.Equal(t, StatusInvalidCode, outcome.Status, "code %q", code)
	}
	codeRepo.AssertNotCalled(t, "FindValidByCode", mock.Anything, mock.Anything, mock.Anything)
}

func TestConnect_UnknownCode(t *testing.T) {
	codeRepo := new(mockPairingCodeRepo)
	connRepo := new(mockConnectionRepo)
	svc := newConnectionService(codeRepo, connRepo)

	codeRepo.On("FindValidByCode", mock.Anything, "AB12-CD34", mock.Anything).
		Return([]model.PairingCode{}, nil)

	outcome := svc.Connect(context.Background(), "AB12-CD34", model.Identity{UserID: "peer-1"}, model.ConnectMethodManual)
	assert.Equal(t, StatusInvalidCode, outcome.Status)
	assert.Equal(t, "Invalid or expired device code", outcome.Message())
	connRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestConnect_SelfConnect(t *testing.T) {
	codeRepo := new(mockPairingCodeRepo)
	connRepo := new(mockConnectionRepo)
	svc := newConnectionService(codeRepo, connRepo)

	codeRepo.On("FindValidByCode", mock.Anything, "AB12-CD34", mock.Anything).
		Return(validCode("AB12-CD34", "user-1", "me@example.com"), nil)

	outcome := svc.Connect(context.Background(), "AB12-CD34", model.Identity{UserID: "user-1"}, model.ConnectMethodManual)
	assert.Equal(t, StatusSelfConnect, outcome.Status)
	assert.Equal(t, "Cannot connect to your own device", outcome.Message())
	connRepo.AssertNotCalled(t, "FindActive", mock.Anything, mock.Anything, mock.Anything)
	connRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestConnect_AlreadyConnected(t *testing.T) {
	codeRepo := new(mockPairingCodeRepo)
	connRepo := new(mockConnectionRepo)
	svc := newConnectionService(codeRepo, connRepo)

	codeRepo.On("FindValidByCode", mock.Anything, "AB12-CD34", mock.Anything).
		Return(validCode("AB12-CD34", "owner-1", "owner@example.com"), nil)
	connRepo.On("FindActive", mock.Anything, "AB12-CD34", "peer-1").
		Return([]model.Connection{{ID: "conn-existing", Active: true}}, nil)

	outcome := svc.Connect(context.Background(), "AB12-CD34", model.Identity{UserID: "peer-1"}, model.ConnectMethodManual)
	assert.Equal(t, StatusAlreadyConnected, outcome.Status)
	assert.Equal(t, "Already connected to this device", outcome.Message())
	connRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestConnectByQR_Success(t *testing.T) {
	codeRepo := new(mockPairingCodeRepo)
	connRepo := new(mockConnectionRepo)
	svc := newConnectionService(codeRepo, connRepo)

	codec := qr.NewCodec("unilocator")
	payload := codec.Build("AB12-CD34", "owner-1")

	codeRepo.On("FindValidByCode", mock.Anything, "AB12-CD34", mock.Anything).
		Return(validCode("AB12-CD34", "owner-1", "owner@example.com"), nil)
	connRepo.On("FindActive", mock.Anything, "AB12-CD34", "peer-1").
		Return([]model.Connection{}, nil)
	connRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateConnectionParams) bool {
		return p.Method == model.ConnectMethodQR
	})).Return(&model.Connection{ID: "conn-1", Active: true}, nil)

	outcome := svc.ConnectByQR(context.Background(), payload, model.Identity{UserID: "peer-1"})
	assert.Equal(t, StatusConnected, outcome.Status)
	connRepo.AssertExpectations(t)
}

func TestConnectByQR_GarbagePayload(t *testing.T) {
	codeRepo := new(mockPairingCodeRepo)
	connRepo := new(mockConnectionRepo)
	svc := newConnectionService(codeRepo, connRepo)

	outcome := svc.ConnectByQR(context.Background(), "not a payload", model.Identity{UserID: "peer-1"})
	assert.Equal(t, StatusInvalidCode, outcome.Status)
	codeRepo.AssertNotCalled(t, "FindValidByCode", mock.Anything, mock.Anything, mock.Anything)
}

func TestConnectByQR_SelfConnectBlockedBeforeLookup(t *testing.T) {
	codeRepo := new(mockPairingCodeRepo)
	connRepo := new(mockConnectionRepo)
	svc := newConnectionService(codeRepo, connRepo)

	codec := qr.NewCodec("unilocator")
	payload := codec.Build("AB12-CD34", "user-1")

	outcome := svc.ConnectByQR(context.Background(), payload, model.Identity{UserID: "user-1"})
	assert.Equal(t, StatusSelfConnect, outcome.Status)
	codeRepo.AssertNotCalled(t, "FindValidByCode", mock.Anything, mock.Anything, mock.Anything)
}

func TestConnectByQR_OwnerMismatch(t *testing.T) {
	codeRepo := new(mockPairingCodeRepo)
	connRepo := new(mockConnectionRepo)
	svc := newConnectionService(codeRepo, connRepo)

	codec := qr.NewCodec("unilocator")
	// Payload claims owner-2, but the registry says the code belongs to
	// owner-1. A stale or tampered payload must not connect.
	payload := codec.Build("AB12-CD34", "owner-2")

	codeRepo.On("FindValidByCode", mock.Anything, "AB12-CD34", mock.Anything).
		Return(validCode("AB12-CD34", "owner-1", "owner@example.com"), nil)

	outcome := svc.ConnectByQR(context.Background(), payload, model.Identity{UserID: "peer-1"})
	assert.Equal(t, StatusInvalidCode, outcome.Status)
	connRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
