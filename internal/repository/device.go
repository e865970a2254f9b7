package repository

import (
	"context"

	"github.com/unilocator/pairing-server-go/internal/docstore"
	"github.com/unilocator/pairing-server-go/internal/model"
)

type DeviceRepository interface {
	Find(ctx context.Context, deviceID string) (*model.Device, error)

	// Upsert merge-writes the device record keyed by deviceID. Empty attr
	// fields are omitted from the write, so re-registration refreshes only
	// what the caller supplied. registeredAt is assigned once on first
	// registration and never touched again.
	Upsert(ctx context.Context, deviceID, ownerUserID string, attrs model.DeviceAttrs) error

	// TouchLastSeen refreshes only the liveness timestamp.
	TouchLastSeen(ctx context.Context, deviceID string) error

	ListActiveByOwner(ctx context.Context, ownerUserID string) ([]model.Device, error)
}

type deviceRepo struct {
	store docstore.Store
}

func NewDeviceRepository(store docstore.Store) DeviceRepository {
	return &deviceRepo{store: store}
}

func (r *deviceRepo) Find(ctx context.Context, deviceID string) (*model.Device, error) {
	doc, err := r.store.Get(ctx, CollectionDevices, deviceID)
	if doc, err = HandleNotFound(doc, err); err != nil || doc == nil {
		return nil, err
	}
	d := decodeDevice(*doc)
	return &d, nil
}

func (r *deviceRepo) Upsert(ctx context.Context, deviceID, ownerUserID string, attrs model.DeviceAttrs) error {
	existing, err := r.Find(ctx, deviceID)
	if err != nil {
		return err
	}

	fields := map[string]any{
		"ownerUserId": ownerUserID,
		"lastSeenAt":  docstore.ServerTimestamp,
		"active":      true,
	}
	if existing == nil {
		fields["registeredAt"] = docstore.ServerTimestamp
	}
	if attrs.DisplayName != "" {
		fields["displayName"] = attrs.DisplayName
	}
	if attrs.Model != "" {
		fields["model"] = attrs.Model
	}
	if attrs.OSVersion != "" {
		fields["osVersion"] = attrs.OSVersion
	}
	if attrs.AppVersion != "" {
		fields["appVersion"] = attrs.AppVersion
	}

	return r.store.Set(ctx, CollectionDevices, deviceID, fields)
}

func (r *deviceRepo) TouchLastSeen(ctx context.Context, deviceID string) error {
	return r.store.Update(ctx, CollectionDevices, deviceID, map[string]any{
		"lastSeenAt": docstore.ServerTimestamp,
	})
}

func (r *deviceRepo) ListActiveByOwner(ctx context.Context, ownerUserID string) ([]model.Device, error) {
	docs, err := r.store.Query(ctx, CollectionDevices, docstore.Query{
		Filters: []docstore.Filter{
			{Field: "ownerUserId", Op: docstore.OpEqual, Value: ownerUserID},
			{Field: "active", Op: docstore.OpEqual, Value: true},
		},
	})
	if err != nil {
		return nil, err
	}

	devices := make([]model.Device, 0, len(docs))
	for _, doc := range docs {
		devices = append(devices, decodeDevice(doc))
	}
	return devices, nil
}

func decodeDevice(doc docstore.Document) model.Device {
	return model.Device{
		ID:           doc.ID,
		OwnerUserID:  doc.String("ownerUserId"),
		DisplayName:  doc.String("displayName"),
		Model:        doc.String("model"),
		OSVersion:    doc.String("osVersion"),
		AppVersion:   doc.String("appVersion"),
		LastSeenAt:   doc.Time("lastSeenAt"),
		RegisteredAt: doc.Time("registeredAt"),
		Active:       doc.Bool("active"),
	}
}
