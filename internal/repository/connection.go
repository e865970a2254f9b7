package repository

import (
	"context"

	"github.com/unilocator/pairing-server-go/internal/docstore"
	"github.com/unilocator/pairing-server-go/internal/model"
)

type ConnectionRepository interface {
	// FindActive returns the active connections for a (code, peer) pair.
	// At most one should exist; the duplicate check is read-then-write and
	// not atomic, so concurrent connects can in principle leave more.
	FindActive(ctx context.Context, code, peerUserID string) ([]model.Connection, error)

	Create(ctx context.Context, params model.CreateConnectionParams) (*model.Connection, error)
}

type connectionRepo struct {
	store docstore.Store
}

func NewConnectionRepository(store docstore.Store) ConnectionRepository {
	return &connectionRepo{store: store}
}

func (r *connectionRepo) FindActive(ctx context.Context, code, peerUserID string) ([]model.Connection, error) {
	docs, err := r.store.Query(ctx, CollectionConnections, docstore.Query{
		Filters: []docstore.Filter{
			{Field: "code", Op: docstore.OpEqual, Value: code},
			{Field: "peerUserId", Op: docstore.OpEqual, Value: peerUserID},
			{Field: "active", Op: docstore.OpEqual, Value: true},
		},
	})
	if err != nil {
		return nil, err
	}

	conns := make([]model.Connection, 0, len(docs))
	for _, doc := range docs {
		conns = append(conns, decodeConnection(doc))
	}
	return conns, nil
}

func (r *connectionRepo) Create(ctx context.Context, params model.CreateConnectionParams) (*model.Connection, error) {
	id, err := r.store.Add(ctx, CollectionConnections, map[string]any{
		"code":        params.Code,
		"ownerUserId": params.OwnerUserID,
		"peerUserId":  params.PeerUserID,
		"peerEmail":   params.PeerEmail,
		"method":      string(params.Method),
		"createdAt":   docstore.ServerTimestamp,
		"active":      true,
	})
	if err != nil {
		return nil, err
	}

	doc, err := r.store.Get(ctx, CollectionConnections, id)
	if err != nil {
		return nil, err
	}
	conn := decodeConnection(*doc)
	return &conn, nil
}

func decodeConnection(doc docstore.Document) model.Connection {
	return model.Connection{
		ID:          doc.ID,
		Code:        doc.String("code"),
		OwnerUserID: doc.String("ownerUserId"),
		PeerUserID:  doc.String("peerUserId"),
		PeerEmail:   doc.String("peerEmail"),
		Method:      model.ConnectMethod(doc.String("method")),
		CreatedAt:   doc.Time("createdAt"),
		Active:      doc.Bool("active"),
	}
}
