package adapter

import "context"

// AssetStore writes bytes under key and returns a URL for them.
type AssetStore interface {
	Name() string
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// AssetPersister moves a generated asset somewhere durable and returns the
// reference to store on the record.
type AssetPersister interface {
	Persist(ctx context.Context, key string, asset *Asset) (string, error)
}
