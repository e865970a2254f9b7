package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/unilocator/pairing-server-go/internal/config"
	"github.com/unilocator/pairing-server-go/internal/docstore"
	"github.com/unilocator/pairing-server-go/internal/model"
	"github.com/unilocator/pairing-server-go/internal/repository"
)

// ResolveStatus discriminates the outcome of a code resolution.
type ResolveStatus string

const (
	ResolveResolved ResolveStatus = "RESOLVED"
	ResolveNotFound ResolveStatus = "NOT_FOUND"
	ResolveTimeout  ResolveStatus = "TIMEOUT"
	ResolveFailed   ResolveStatus = "FAILED"
)

// ResolveOutcome is the tagged result of Resolve. Code is set only when
// Status is ResolveResolved; Err only when Status is ResolveFailed.
type ResolveOutcome struct {
	Status ResolveStatus
	Code   *model.PairingCode
	Err    error
}

// ResolverService validates pairing codes against the registry with retry
// and timeout bounding.
type ResolverService struct {
	codeRepo repository.PairingCodeRepository
}

func NewResolverService(codeRepo repository.PairingCodeRepository) *ResolverService {
	return &ResolverService{codeRepo: codeRepo}
}

// Resolve looks up a valid pairing code. With a target code it is an exact
// point lookup; without one it picks from the newest valid codes,
// preferring any code the requester does not own (pairing against one's
// own code is meaningless). Transient store failures are retried with
// linearly increasing backoff; NotFound is terminal and never retried.
func (s *ResolverService) Resolve(ctx context.Context, targetCode string, requesterUserID string) ResolveOutcome {
	ctx, cancel := context.WithTimeout(ctx, config.ResolveTimeout)
	defer cancel()

	for attempt := 1; attempt <= config.ResolveMaxAttempts; attempt++ {
		outcome := s.attempt(ctx, targetCode, requesterUserID)

		if outcome.Status != ResolveFailed {
			return outcome
		}
		if !docstore.IsTransient(outcome.Err) {
			return outcome
		}
		if attempt == config.ResolveMaxAttempts {
			log.Error().Err(outcome.Err).Int("attempts", attempt).Msg("code resolution failed after retries")
			return outcome
		}

		delay := config.ResolveRetryBase * time.Duration(attempt)
		log.Warn().Err(outcome.Err).Int("attempt", attempt).Dur("backoff", delay).Msg("transient resolve failure, retrying")

		select {
		case <-ctx.Done():
			return ResolveOutcome{Status: ResolveTimeout}
		case <-time.After(delay):
		}
	}

	return ResolveOutcome{Status: ResolveFailed, Err: errors.New("unexpected retry loop exit")}
}

func (s *ResolverService) attempt(ctx context.Context, targetCode, requesterUserID string) ResolveOutcome {
	queryCtx, cancel := context.WithTimeout(ctx, config.ResolveQueryTimeout)
	defer cancel()

	if targetCode != "" {
		return s.resolveExact(queryCtx, targetCode)
	}
	return s.resolveLatest(queryCtx, requesterUserID)
}

func (s *ResolverService) resolveExact(ctx context.Context, targetCode string) ResolveOutcome {
	matches, err := s.codeRepo.FindValidByCode(ctx, targetCode, time.Now())
	if err != nil {
		return failedOrTimeout(err)
	}
	if len(matches) == 0 {
		return ResolveOutcome{Status: ResolveNotFound}
	}
	if len(matches) > 1 {
		// Exact codes are expected to be unique; which document wins here
		// is implementation defined.
		log.Warn().Str("code", targetCode).Int("matches", len(matches)).Msg("multiple valid documents for one code")
	}
	return ResolveOutcome{Status: ResolveResolved, Code: &matches[0]}
}

func (s *ResolverService) resolveLatest(ctx context.Context, requesterUserID string) ResolveOutcome {
	codes, err := s.codeRepo.ListValid(ctx, time.Now(), config.ResolveListLimit)
	if err != nil {
		return failedOrTimeout(err)
	}
	if len(codes) == 0 {
		return ResolveOutcome{Status: ResolveNotFound}
	}

	// Prefer the most recently created code from another user; fall back
	// to the requester's own code when nothing foreign is valid.
	var foreign, own *model.PairingCode
	for i := range codes {
		pc := &codes[i]
		if pc.OwnerUserID == requesterUserID {
			if own == nil {
				own = pc
			}
			continue
		}
		if foreign == nil || pc.CreatedAt.After(foreign.CreatedAt) {
			foreign = pc
		}
	}

	selected := foreign
	if selected == nil {
		selected = own
	}
	if selected == nil {
		return ResolveOutcome{Status: ResolveNotFound}
	}

	log.Debug().
		Str("code", selected.Code).
		Bool("foreign", selected.OwnerUserID != requesterUserID).
		Msg("code selected")
	return ResolveOutcome{Status: ResolveResolved, Code: selected}
}

func failedOrTimeout(err error) ResolveOutcome {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ResolveOutcome{Status: ResolveTimeout}
	}
	return ResolveOutcome{Status: ResolveFailed, Err: err}
}
