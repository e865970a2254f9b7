package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unilocator/pairing-server-go/internal/middleware"
	"github.com/unilocator/pairing-server-go/internal/model"
)

const testDeviceID = "myhost_2f1c9a8e-77aa-4f21-b9d0-0123456789ab"

func registerDevice(t *testing.T, router http.Handler, userID, deviceID, name string) model.Device {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/v1/devices", userID, "", map[string]string{
		"deviceId":    deviceID,
		"displayName": name,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var device model.Device
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &device))
	return device
}

func TestRegisterDeviceEndpoint(t *testing.T) {
	router := newTestRouter(t)

	device := registerDevice(t, router, "user-1", testDeviceID, "Work Laptop")
	assert.Equal(t, testDeviceID, device.ID)
	assert.Equal(t, "user-1", device.OwnerUserID)
	assert.Equal(t, "Work Laptop", device.DisplayName)
	assert.True(t, device.Active)
	assert.False(t, device.RegisteredAt.IsZero())
}

func TestRegisterDeviceEndpoint_MergeUpsert(t *testing.T) {
	router := newTestRouter(t)

	registerDevice(t, router, "user-1", testDeviceID, "Old Name")
	first := listDevices(t, router, "user-1")
	require.Len(t, first, 1)

	updated := registerDevice(t, router, "user-1", testDeviceID, "New Name")
	assert.Equal(t, "New Name", updated.DisplayName)
	assert.Equal(t, first[0].RegisteredAt, updated.RegisteredAt, "first registration timestamp survives")

	// Still a single record.
	devices := listDevices(t, router, "user-1")
	assert.Len(t, devices, 1)
}

func TestRegisterDeviceEndpoint_RejectsShortID(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/devices", "user-1", "", map[string]string{
		"deviceId": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHeartbeatEndpoint(t *testing.T) {
	router := newTestRouter(t)

	registerDevice(t, router, "user-1", testDeviceID, "Laptop")

	rec := doJSON(t, router, http.MethodPost, "/v1/devices/"+testDeviceID+"/heartbeat", "user-1", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHeartbeatEndpoint_UnknownDevice(t *testing.T) {
	router := newTestRouter(t)

	unknown := "otherhost_11111111-2222-3333-4444-555555555555"
	rec := doJSON(t, router, http.MethodPost, "/v1/devices/"+unknown+"/heartbeat", "user-1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func listDevices(t *testing.T, router http.Handler, userID string) []model.Device {
	t.Helper()

	rec := doJSON(t, router, http.MethodGet, "/v1/devices", userID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Devices []model.Device `json:"devices"`
		Count   int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, len(resp.Devices), resp.Count)
	return resp.Devices
}

func TestListDevicesEndpoint_FlagsCurrentDevice(t *testing.T) {
	router := newTestRouter(t)

	other := "otherhost_11111111-2222-3333-4444-555555555555"
	registerDevice(t, router, "user-1", testDeviceID, "Laptop")
	registerDevice(t, router, "user-1", other, "Phone")

	req := httptest.NewRequest(http.MethodGet, "/v1/devices", nil)
	req.Header.Set(middleware.HeaderUserID, "user-1")
	req.Header.Set(HeaderDeviceID, testDeviceID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Devices []model.Device `json:"devices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Devices, 2)

	flagged := map[string]bool{}
	for _, d := range resp.Devices {
		flagged[d.ID] = d.IsCurrentDevice
	}
	assert.True(t, flagged[testDeviceID])
	assert.False(t, flagged[other])
}

func TestListDevicesEndpoint_ScopedToOwner(t *testing.T) {
	router := newTestRouter(t)

	registerDevice(t, router, "user-1", testDeviceID, "Laptop")

	devices := listDevices(t, router, "user-2")
	assert.Empty(t, devices)
}
