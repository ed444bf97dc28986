package storage

import (
	"errors"
	"io"
)

var ErrBadKey = errors.New("invalid blob key")

// BlobStore holds question images and other binary assets.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
}
