package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/unilocator/pairing-server-go/internal/audit"
	"github.com/unilocator/pairing-server-go/internal/model"
	"github.com/unilocator/pairing-server-go/internal/util"
)

type contextKey string

const IdentityContextKey contextKey = "identity"

// HeaderUserID and HeaderUserEmail carry the authenticated caller's claims.
// Identity issuance happens at the external identity provider; the gateway
// in front of this service verifies the token and forwards the claims.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
)

func GetIdentity(ctx context.Context) *model.Identity {
	if ident, ok := ctx.Value(IdentityContextKey).(*model.Identity); ok {
		return ident
	}
	return nil
}

type IdentityMiddleware struct{}

func NewIdentityMiddleware() *IdentityMiddleware {
	return &IdentityMiddleware{}
}

func (m *IdentityMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := util.SanitizeInput(r.Header.Get(HeaderUserID))
		email := util.SanitizeInput(r.Header.Get(HeaderUserEmail))

		if userID == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing user identity",
			})
			return
		}
		if email != "" && !util.IsValidEmail(email) {
			log.Warn().Str("userId", userID).Msg("identity middleware: malformed email claim")
			audit.LogFromRequest(r, audit.Event{Type: audit.EventAuthFailure, UserID: userID})
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Malformed identity claims",
			})
			return
		}

		ident := &model.Identity{UserID: userID, Email: email}
		ctx := context.WithValue(r.Context(), IdentityContextKey, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
