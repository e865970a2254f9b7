package repository

import (
	"context"
	"time"

	"github.com/unilocator/pairing-server-go/internal/docstore"
	"github.com/unilocator/pairing-server-go/internal/model"
)

type PairingCodeRepository interface {
	// FindValidByCode returns the active, unexpired codes with the exact
	// code value. More than one result indicates a collision the caller
	// must resolve; ordering of such a result set is implementation
	// defined.
	FindValidByCode(ctx context.Context, code string, now time.Time) ([]model.PairingCode, error)

	// ListValid returns up to limit active, unexpired codes from any
	// owner, soonest expiry first, then newest first.
	ListValid(ctx context.Context, now time.Time, limit int) ([]model.PairingCode, error)

	// FindActiveByOwner returns the owner's active codes regardless of
	// expiry.
	FindActiveByOwner(ctx context.Context, ownerUserID string) ([]model.PairingCode, error)

	// ListActive returns every active code regardless of owner or expiry.
	// Used by the expiry sweeper, which compares expiry client side.
	ListActive(ctx context.Context) ([]model.PairingCode, error)

	Create(ctx context.Context, params model.CreatePairingCodeParams) (*model.PairingCode, error)

	// Deactivate clears the active flag on a single code document.
	Deactivate(ctx context.Context, id string) error
}

type pairingCodeRepo struct {
	store docstore.Store
}

func NewPairingCodeRepository(store docstore.Store) PairingCodeRepository {
	return &pairingCodeRepo{store: store}
}

func (r *pairingCodeRepo) FindValidByCode(ctx context.Context, code string, now time.Time) ([]model.PairingCode, error) {
	docs, err := r.store.Query(ctx, CollectionPairingCodes, docstore.Query{
		Filters: []docstore.Filter{
			{Field: "code", Op: docstore.OpEqual, Value: code},
			{Field: "active", Op: docstore.OpEqual, Value: true},
			{Field: "expiresAt", Op: docstore.OpGreater, Value: now},
		},
	})
	if err != nil {
		return nil, err
	}
	return decodePairingCodes(docs), nil
}

func (r *pairingCodeRepo) ListValid(ctx context.Context, now time.Time, limit int) ([]model.PairingCode, error) {
	docs, err := r.store.Query(ctx, CollectionPairingCodes, docstore.Query{
		Filters: []docstore.Filter{
			{Field: "active", Op: docstore.OpEqual, Value: true},
			{Field: "expiresAt", Op: docstore.OpGreater, Value: now},
		},
		OrderBy: []docstore.Order{
			{Field: "expiresAt"},
			{Field: "createdAt", Desc: true},
		},
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	return decodePairingCodes(docs), nil
}

func (r *pairingCodeRepo) FindActiveByOwner(ctx context.Context, ownerUserID string) ([]model.PairingCode, error) {
	docs, err := r.store.Query(ctx, CollectionPairingCodes, docstore.Query{
		Filters: []docstore.Filter{
			{Field: "ownerUserId", Op: docstore.OpEqual, Value: ownerUserID},
			{Field: "active", Op: docstore.OpEqual, Value: true},
		},
	})
	if err != nil {
		return nil, err
	}
	return decodePairingCodes(docs), nil
}

func (r *pairingCodeRepo) ListActive(ctx context.Context) ([]model.PairingCode, error) {
	docs, err := r.store.Query(ctx, CollectionPairingCodes, docstore.Query{
		Filters: []docstore.Filter{
			{Field: "active", Op: docstore.OpEqual, Value: true},
		},
		OrderBy: []docstore.Order{{Field: "expiresAt"}},
	})
	if err != nil {
		return nil, err
	}
	return decodePairingCodes(docs), nil
}

func (r *pairingCodeRepo) Create(ctx context.Context, params model.CreatePairingCodeParams) (*model.PairingCode, error) {
	id, err := r.store.Add(ctx, CollectionPairingCodes, map[string]any{
		"ownerUserId": params.OwnerUserID,
		"ownerEmail":  params.OwnerEmail,
		"code":        params.Code,
		"qrPayload":   params.QRPayload,
		"createdAt":   docstore.ServerTimestamp,
		"expiresAt":   params.ExpiresAt,
		"active":      true,
	})
	if err != nil {
		return nil, err
	}

	doc, err := r.store.Get(ctx, CollectionPairingCodes, id)
	if err != nil {
		return nil, err
	}
	pc := decodePairingCode(*doc)
	return &pc, nil
}

func (r *pairingCodeRepo) Deactivate(ctx context.Context, id string) error {
	return r.store.Update(ctx, CollectionPairingCodes, id, map[string]any{
		"active": false,
	})
}

func decodePairingCode(doc docstore.Document) model.PairingCode {
	return model.PairingCode{
		ID:          doc.ID,
		OwnerUserID: doc.String("ownerUserId"),
		OwnerEmail:  doc.String("ownerEmail"),
		Code:        doc.String("code"),
		QRPayload:   doc.String("qrPayload"),
		CreatedAt:   doc.Time("createdAt"),
		ExpiresAt:   doc.Time("expiresAt"),
		Active:      doc.Bool("active"),
	}
}

func decodePairingCodes(docs []docstore.Document) []model.PairingCode {
	codes := make([]model.PairingCode, 0, len(docs))
	for _, doc := range docs {
		codes = append(codes, decodePairingCode(doc))
	}
	return codes
}
