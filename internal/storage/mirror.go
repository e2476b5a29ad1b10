package storage

import "context"

// Mirror keeps a remote copy of every persisted artifact
type Mirror interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	Delete(ctx context.Context, name string) error
	Name() string
}
