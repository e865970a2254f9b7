package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/unilocator/pairing-server-go/internal/audit"
	"github.com/unilocator/pairing-server-go/internal/config"
	apperrors "github.com/unilocator/pairing-server-go/internal/errors"
	"github.com/unilocator/pairing-server-go/internal/model"
	"github.com/unilocator/pairing-server-go/internal/qr"
	"github.com/unilocator/pairing-server-go/internal/repository"
	"github.com/unilocator/pairing-server-go/internal/util"
)

// ConnectStatus discriminates the outcome of a connection attempt.
type ConnectStatus string

const (
	StatusConnected        ConnectStatus = "CONNECTED"
	StatusAlreadyConnected ConnectStatus = "ALREADY_CONNECTED"
	StatusSelfConnect      ConnectStatus = "SELF_CONNECT"
	StatusInvalidCode      ConnectStatus = "INVALID_CODE"
	StatusTimeout          ConnectStatus = "TIMEOUT"
	StatusFailed           ConnectStatus = "FAILED"
)

// ConnectOutcome is the tagged result of a connection attempt. OwnerUserID
// and OwnerEmail identify the code issuer and are set on StatusConnected
// for display to the peer.
type ConnectOutcome struct {
	Status      ConnectStatus
	OwnerUserID string
	OwnerEmail  string
	Connection  *model.Connection
	Err         error
}

// Message returns the stable human-readable text for the outcome. Internal
// store errors deliberately collapse into these coarse messages.
func (o ConnectOutcome) Message() string {
	switch o.Status {
	case StatusConnected:
		return "Device connected"
	case StatusAlreadyConnected:
		return "Already connected to this device"
	case StatusSelfConnect:
		return "Cannot connect to your own device"
	case StatusInvalidCode:
		return "Invalid or expired device code"
	case StatusTimeout:
		return "Connection timed out, please try again"
	default:
		return "Connection failed, please try again"
	}
}

// ConnectionService turns a validated pairing code into a persisted
// bidirectional device connection.
type ConnectionService struct {
	resolver *ResolverService
	connRepo repository.ConnectionRepository
	codec    *qr.Codec
}

func NewConnectionService(
	resolver *ResolverService,
	connRepo repository.ConnectionRepository,
	codec *qr.Codec,
) *ConnectionService {
	return &ConnectionService{
		resolver: resolver,
		connRepo: connRepo,
		codec:    codec,
	}
}

// Connect establishes a connection from the requester to the issuer of the
// given code. Steps short-circuit on first failure: resolve, self-connect
// check, duplicate check, create.
func (s *ConnectionService) Connect(ctx context.Context, code string, requester model.Identity, method model.ConnectMethod) ConnectOutcome {
	if !util.IsValidPairingCode(code) {
		return ConnectOutcome{Status: StatusInvalidCode, Err: apperrors.ValidationError("malformed pairing code")}
	}
	return s.connectResolved(ctx, code, "", requester, method)
}

// ConnectByQR establishes a connection from a scanned QR payload. The
// payload's owner claim is checked twice: against the requester before any
// store access, and against the resolved code's owner afterwards, which
// rejects tampered or stale payloads.
func (s *ConnectionService) ConnectByQR(ctx context.Context, payload string, requester model.Identity) ConnectOutcome {
	parsed, err := s.codec.Parse(payload)
	if err != nil {
		log.Warn().Err(err).Msg("rejected qr payload")
		return ConnectOutcome{Status: StatusInvalidCode, Err: apperrors.BadQRPayload().WithCause(err)}
	}
	if !util.IsValidPairingCode(parsed.Code) {
		return ConnectOutcome{Status: StatusInvalidCode, Err: apperrors.ValidationError("malformed pairing code")}
	}
	if parsed.OwnerUserID == requester.UserID {
		audit.Log(ctx, audit.Event{Type: audit.EventSelfConnectBlocked, UserID: requester.UserID})
		return ConnectOutcome{Status: StatusSelfConnect, Err: apperrors.SelfConnect()}
	}
	return s.connectResolved(ctx, parsed.Code, parsed.OwnerUserID, requester, model.ConnectMethodQR)
}

// connectResolved runs the shared resolve-check-create sequence. When
// claimedOwner is non-empty the resolved code must belong to that owner.
func (s *ConnectionService) connectResolved(ctx context.Context, code, claimedOwner string, requester model.Identity, method model.ConnectMethod) ConnectOutcome {
	resolved := s.resolver.Resolve(ctx, code, requester.UserID)
	switch resolved.Status {
	case ResolveResolved:
	case ResolveNotFound:
		return ConnectOutcome{Status: StatusInvalidCode, Err: apperrors.InvalidPairingCode()}
	case ResolveTimeout:
		return ConnectOutcome{Status: StatusTimeout, Err: apperrors.Timeout("resolve code")}
	default:
		return ConnectOutcome{Status: StatusFailed, Err: resolved.Err}
	}

	pc := resolved.Code

	if pc.OwnerUserID == requester.UserID {
		audit.Log(ctx, audit.Event{Type: audit.EventSelfConnectBlocked, UserID: requester.UserID})
		return ConnectOutcome{Status: StatusSelfConnect, Err: apperrors.SelfConnect()}
	}
	if claimedOwner != "" && pc.OwnerUserID != claimedOwner {
		log.Warn().
			Str("code", code).
			Str("claimedOwner", claimedOwner).
			Str("actualOwner", pc.OwnerUserID).
			Msg("qr payload owner mismatch")
		return ConnectOutcome{Status: StatusInvalidCode, Err: apperrors.BadQRPayload()}
	}

	checkCtx, cancelCheck := context.WithTimeout(ctx, config.DuplicateCheckTimeout)
	existing, err := s.connRepo.FindActive(checkCtx, code, requester.UserID)
	cancelCheck()
	if err != nil {
		return s.failedOutcome("duplicate connection check", err)
	}
	if len(existing) > 0 {
		return ConnectOutcome{Status: StatusAlreadyConnected, Err: apperrors.AlreadyConnected()}
	}

	createCtx, cancelCreate := context.WithTimeout(ctx, config.ConnectionWriteTimeout)
	conn, err := s.connRepo.Create(createCtx, model.CreateConnectionParams{
		Code:        code,
		OwnerUserID: pc.OwnerUserID,
		PeerUserID:  requester.UserID,
		PeerEmail:   requester.Email,
		Method:      method,
	})
	cancelCreate()
	if err != nil {
		return s.failedOutcome("create connection", err)
	}

	log.Info().
		Str("code", code).
		Str("ownerUserId", pc.OwnerUserID).
		Str("peerUserId", requester.UserID).
		Str("method", string(method)).
		Msg("connection created")
	audit.Log(ctx, audit.Event{
		Type:   audit.EventConnectionCreate,
		UserID: requester.UserID,
		Details: map[string]any{
			"code":        code,
			"ownerUserId": pc.OwnerUserID,
			"method":      string(method),
		},
	})

	return ConnectOutcome{
		Status:      StatusConnected,
		OwnerUserID: pc.OwnerUserID,
		OwnerEmail:  pc.OwnerEmail,
		Connection:  conn,
	}
}

func (s *ConnectionService) failedOutcome(operation string, err error) ConnectOutcome {
	appErr := mapStoreErr(operation, err)
	if appErr.Code == apperrors.ErrCodeTimeout {
		return ConnectOutcome{Status: StatusTimeout, Err: appErr}
	}
	log.Error().Err(err).Msg(operation + " failed")
	return ConnectOutcome{Status: StatusFailed, Err: appErr}
}
