package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned by Load when the named blob is absent.
var ErrNotExist = errors.New("storage: blob does not exist")

// Storage stores named blobs. Names may contain '/' separated segments.
type Storage interface {
	Save(ctx context.Context, name string, data io.Reader) error
	Load(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}
