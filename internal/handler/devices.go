package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/unilocator/pairing-server-go/internal/errors"
	"github.com/unilocator/pairing-server-go/internal/httputil"
	"github.com/unilocator/pairing-server-go/internal/middleware"
	"github.com/unilocator/pairing-server-go/internal/model"
	"github.com/unilocator/pairing-server-go/internal/service"
)

// HeaderDeviceID identifies the calling device; listing uses it to flag
// the current device in the response.
const HeaderDeviceID = "X-Device-Id"

type DeviceHandler struct {
	deviceService *service.DeviceService
}

func NewDeviceHandler(deviceService *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService}
}

func (h *DeviceHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Register)
	r.Post("/{deviceID}/heartbeat", h.Heartbeat)
	r.Get("/", h.List)

	return r
}

type registerDeviceRequest struct {
	DeviceID    string `json:"deviceId"`
	DisplayName string `json:"displayName"`
	Model       string `json:"model"`
	OSVersion   string `json:"osVersion"`
	AppVersion  string `json:"appVersion"`
}

// POST /v1/devices
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())

	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Malformed request body"))
		return
	}

	attrs := model.DeviceAttrs{
		DisplayName: req.DisplayName,
		Model:       req.Model,
		OSVersion:   req.OSVersion,
		AppVersion:  req.AppVersion,
	}

	device, err := h.deviceService.Register(r.Context(), *ident, req.DeviceID, attrs)
	if err != nil {
		log.Error().Err(err).Str("userId", ident.UserID).Msg("failed to register device")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, device)
}

// POST /v1/devices/{deviceID}/heartbeat
func (h *DeviceHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	if err := h.deviceService.TouchLastSeen(r.Context(), deviceID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /v1/devices
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())
	currentDeviceID := r.Header.Get(HeaderDeviceID)

	devices, err := h.deviceService.List(r.Context(), *ident, currentDeviceID)
	if err != nil {
		log.Error().Err(err).Str("userId", ident.UserID).Msg("failed to list devices")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}
