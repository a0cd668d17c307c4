package storage

import (
	"context"
	"io"
)

type PutResult struct {
	Key      string
	Location string
	ETag     string
}

// ObjectStore абстрагирует внешнее объектное хранилище для снимков сеток.
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, reader io.Reader) (*PutResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}
