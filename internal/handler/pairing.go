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
	"github.com/unilocator/pairing-server-go/internal/qr"
	"github.com/unilocator/pairing-server-go/internal/service"
	"github.com/unilocator/pairing-server-go/internal/util"
)

type PairingHandler struct {
	pairingService    *service.PairingService
	resolverService   *service.ResolverService
	connectionService *service.ConnectionService
	codec             *qr.Codec
}

func NewPairingHandler(
	pairingService *service.PairingService,
	resolverService *service.ResolverService,
	connectionService *service.ConnectionService,
	codec *qr.Codec,
) *PairingHandler {
	return &PairingHandler{
		pairingService:    pairingService,
		resolverService:   resolverService,
		connectionService: connectionService,
		codec:             codec,
	}
}

func (h *PairingHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/codes", h.IssueCode)
	r.Get("/codes/qr.png", h.CodeQR)
	r.Post("/resolve", h.Resolve)
	r.Post("/connect", h.Connect)
	r.Post("/connect/qr", h.ConnectQR)

	return r
}

// POST /v1/pairing/codes
func (h *PairingHandler) IssueCode(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())

	pc, err := h.pairingService.IssueCode(r.Context(), *ident)
	if err != nil {
		log.Error().Err(err).Str("userId", ident.UserID).Msg("failed to issue pairing code")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, pc)
}

// GET /v1/pairing/codes/qr.png?payload=...
func (h *PairingHandler) CodeQR(w http.ResponseWriter, r *http.Request) {
	payload := r.URL.Query().Get("payload")
	if payload == "" {
		httputil.WriteError(w, apperrors.MissingRequired("payload"))
		return
	}
	if _, err := h.codec.Parse(payload); err != nil {
		httputil.WriteError(w, apperrors.BadQRPayload().WithCause(err))
		return
	}

	png, err := qr.RenderPNG(payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to render qr image")
		httputil.WriteError(w, apperrors.Internal("Failed to render QR image"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

type resolveRequest struct {
	Code string `json:"code"`
}

// POST /v1/pairing/resolve
func (h *PairingHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Malformed request body"))
		return
	}
	if req.Code != "" && !util.IsValidPairingCode(req.Code) {
		httputil.WriteError(w, apperrors.InvalidInput("code", "must match XXXX-XXXX"))
		return
	}

	outcome := h.resolverService.Resolve(r.Context(), req.Code, ident.UserID)
	switch outcome.Status {
	case service.ResolveResolved:
		writeJSON(w, http.StatusOK, outcome.Code)
	case service.ResolveNotFound:
		httputil.WriteError(w, apperrors.NotFound("Valid pairing code"))
	case service.ResolveTimeout:
		httputil.WriteError(w, apperrors.Timeout("resolve code"))
	default:
		log.Error().Err(outcome.Err).Msg("code resolution failed")
		httputil.WriteError(w, outcome.Err)
	}
}

type connectRequest struct {
	Code   string `json:"code"`
	Method string `json:"method"`
}

type connectResponse struct {
	Status      service.ConnectStatus `json:"status"`
	Message     string                `json:"message"`
	OwnerUserID string                `json:"ownerUserId,omitempty"`
	OwnerEmail  string                `json:"ownerEmail,omitempty"`
	Connection  *model.Connection     `json:"connection,omitempty"`
}

// POST /v1/pairing/connect
func (h *PairingHandler) Connect(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Malformed request body"))
		return
	}

	method := model.ConnectMethod(req.Method)
	if req.Method == "" {
		method = model.ConnectMethodManual
	}
	if !method.Valid() {
		httputil.WriteError(w, apperrors.InvalidInput("method", "must be QR or MANUAL"))
		return
	}

	outcome := h.connectionService.Connect(r.Context(), req.Code, *ident, method)
	writeConnectOutcome(w, outcome)
}

type connectQRRequest struct {
	Payload string `json:"payload"`
}

// POST /v1/pairing/connect/qr
func (h *PairingHandler) ConnectQR(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentity(r.Context())

	var req connectQRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Malformed request body"))
		return
	}
	if req.Payload == "" {
		httputil.WriteError(w, apperrors.MissingRequired("payload"))
		return
	}

	outcome := h.connectionService.ConnectByQR(r.Context(), req.Payload, *ident)
	writeConnectOutcome(w, outcome)
}

func writeConnectOutcome(w http.ResponseWriter, outcome service.ConnectOutcome) {
	resp := connectResponse{
		Status:  outcome.Status,
		Message: outcome.Message(),
	}
	if outcome.Status == service.StatusConnected {
		resp.OwnerUserID = outcome.OwnerUserID
		resp.OwnerEmail = outcome.OwnerEmail
		resp.Connection = outcome.Connection
	}
	writeJSON(w, connectStatusCode(outcome.Status), resp)
}
