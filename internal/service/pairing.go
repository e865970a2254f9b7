package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/unilocator/pairing-server-go/internal/audit"
	"github.com/unilocator/pairing-server-go/internal/config"
	apperrors "github.com/unilocator/pairing-server-go/internal/errors"
	"github.com/unilocator/pairing-server-go/internal/model"
	"github.com/unilocator/pairing-server-go/internal/qr"
	"github.com/unilocator/pairing-server-go/internal/repository"
)

// DeactivationReport is the status of a best-effort sweep over a user's
// previously active codes. Per-item failures are swallowed and counted, so
// stale active codes can survive a partially failed sweep; resolvers guard
// against that by always checking expiry at read time.
type DeactivationReport struct {
	Matched     int
	Deactivated int
	Err         error
}

// PairingService owns the pairing code lifecycle: issuance, the
// single-active-code-per-owner invariant, and expiry sweeps.
type PairingService struct {
	codeRepo repository.PairingCodeRepository
	gen      CodeGenerator
	codec    *qr.Codec
	codeTTL  time.Duration
}

func NewPairingService(
	codeRepo repository.PairingCodeRepository,
	gen CodeGenerator,
	codec *qr.Codec,
	codeTTL time.Duration,
) *PairingService {
	return &PairingService{
		codeRepo: codeRepo,
		gen:      gen,
		codec:    codec,
		codeTTL:  codeTTL,
	}
}

// IssueCode generates a fresh pairing code for the caller, deactivates any
// prior active codes (best effort), and persists the new one. The whole
// operation is bounded; on timeout no code is returned even if the write
// made it to the store.
func (s *PairingService) IssueCode(ctx context.Context, owner model.Identity) (*model.PairingCode, error) {
	ctx, cancel := context.WithTimeout(ctx, config.IssueTimeout)
	defer cancel()

	code, err := s.uniqueCode(ctx, owner.UserID)
	if err != nil {
		return nil, err
	}

	payload := s.codec.Build(code, owner.UserID)

	report := s.DeactivateAllActive(ctx, owner.UserID)
	if report.Err != nil || report.Deactivated < report.Matched {
		log.Warn().
			Str("ownerUserId", owner.UserID).
			Int("matched", report.Matched).
			Int("deactivated", report.Deactivated).
			AnErr("err", report.Err).
			Msg("prior code deactivation incomplete, continuing")
	}

	writeCtx, cancelWrite := context.WithTimeout(ctx, config.CodeWriteTimeout)
	defer cancelWrite()

	pc, err := s.codeRepo.Create(writeCtx, model.CreatePairingCodeParams{
		OwnerUserID: owner.UserID,
		OwnerEmail:  owner.Email,
		Code:        code,
		QRPayload:   payload,
		ExpiresAt:   time.Now().Add(s.codeTTL),
	})
	if err != nil {
		return nil, mapStoreErr("issue code", err)
	}

	log.Info().
		Str("code", pc.Code).
		Str("ownerUserId", owner.UserID).
		Time("expiresAt", pc.ExpiresAt).
		Msg("pairing code issued")
	audit.Log(ctx, audit.Event{
		Type:    audit.EventCodeIssue,
		UserID:  owner.UserID,
		Details: map[string]any{"code": pc.Code},
	})

	return pc, nil
}

// uniqueCode draws candidates until one has no active, unexpired
// counterpart in the store. A timed-out collision check discards the
// candidate and draws a new one rather than risking a duplicate. The loop
// is unbounded; the issue timeout on ctx bounds it indirectly.
func (s *PairingService) uniqueCode(ctx context.Context, ownerUserID string) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", apperrors.Timeout("issue code")
		}

		code := s.gen.Generate()

		checkCtx, cancel := context.WithTimeout(ctx, config.CollisionScanTimeout)
		existing, err := s.codeRepo.FindValidByCode(checkCtx, code, time.Now())
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				log.Warn().Str("code", code).Msg("uniqueness check timed out, drawing a new code")
				continue
			}
			return "", mapStoreErr("issue code", err)
		}

		if len(existing) == 0 {
			return code, nil
		}
		log.Debug().Str("code", code).Str("ownerUserId", ownerUserID).Msg("code collision, retrying")
	}
}

// DeactivateAllActive clears the active flag on every active code the user
// holds. Each update is independently bounded and failures are swallowed
// per item so the sweep covers the full set.
func (s *PairingService) DeactivateAllActive(ctx context.Context, ownerUserID string) DeactivationReport {
	queryCtx, cancel := context.WithTimeout(ctx, config.DeactivateStepTimeout)
	defer cancel()

	codes, err := s.codeRepo.FindActiveByOwner(queryCtx, ownerUserID)
	if err != nil {
		log.Warn().Err(err).Str("ownerUserId", ownerUserID).Msg("failed to list prior active codes")
		return DeactivationReport{Err: err}
	}

	report := DeactivationReport{Matched: len(codes)}
	for _, pc := range codes {
		itemCtx, cancelItem := context.WithTimeout(ctx, config.DeactivateItemTimeout)
		err := s.codeRepo.Deactivate(itemCtx, pc.ID)
		cancelItem()

		if err != nil {
			log.Warn().Err(err).Str("codeId", pc.ID).Msg("failed to deactivate prior code")
			continue
		}
		report.Deactivated++
	}
	return report
}

// PruneExpired deactivates codes whose expiry has passed but whose active
// flag was never cleared. The store offers no less-than filter, so expiry
// is compared here after listing the active set.
func (s *PairingService) PruneExpired(ctx context.Context) (int64, error) {
	codes, err := s.codeRepo.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	var pruned int64
	for _, pc := range codes {
		if !pc.Expired(now) {
			continue
		}
		if err := s.codeRepo.Deactivate(ctx, pc.ID); err != nil {
			log.Warn().Err(err).Str("codeId", pc.ID).Msg("failed to prune expired code")
			continue
		}
		pruned++
	}
	return pruned, nil
}
