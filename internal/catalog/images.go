package catalog

import (
	"context"
	"errors"

	"NetShop/internal/kvstore"
)

// ImageStore keeps large image payloads (data URLs) out of the catalog document.
type ImageStore interface {
	Get(ctx context.Context, productID string) (string, bool, error)
	Put(ctx context.Context, productID, data string) error
	Delete(ctx context.Context, productID string) error
}

var errImageNotSaved = errors.New("image not saved")

// KVImages stores one image per product under the "img" scope of a kvstore.
type KVImages struct {
	store *kvstore.Store
}

func NewKVImages(store *kvstore.Store) *KVImages {
	return &KVImages{store: store.Scope("img")}
}

func (k *KVImages) Get(ctx context.Context, productID string) (string, bool, error) {
	data := kvstore.Read(ctx, k.store, productID, "")
	return data, data != "", nil
}

func (k *KVImages) Put(ctx context.Context, productID, data string) error {
	if !k.store.Write(ctx, productID, data) {
		return errImageNotSaved
	}
	return nil
}

func (k *KVImages) Delete(ctx context.Context, productID string) error {
	if !k.store.Remove(ctx, productID) {
		return errImageNotSaved
	}
	return nil
}
