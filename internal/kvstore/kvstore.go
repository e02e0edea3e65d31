// Package kvstore provides the local key-value stores that hold the
// persisted task list.
//
// A store maps string keys to opaque byte values. Set replaces a value
// wholesale; there are no partial or incremental writes.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store is a durable key-value store.
type Store interface {
	// Get returns the value stored under key. ok is false if the key is
	// absent; that is not an error.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases resources held by the store.
	Close() error
}

// Backend names a store implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
	BackendMySQL  Backend = "mysql"
)

// ParseBackend parses a backend name. Empty selects the file backend.
func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(s))) {
	case "", BackendFile:
		return BackendFile, nil
	case BackendMemory:
		return BackendMemory, nil
	case BackendMySQL:
		return BackendMySQL, nil
	default:
		return "", fmt.Errorf("unknown store backend %q (want file, memory or mysql)", s)
	}
}

// ErrInvalidKey is returned for keys that cannot be stored.
var ErrInvalidKey = errors.New("invalid key")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// ValidateKey rejects empty keys and keys containing path separators or
// characters that are unsafe as file names.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if len(key) > 191 {
		return fmt.Errorf("%w: %q is longer than 191 bytes", ErrInvalidKey, key)
	}
	if key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		valid := (c >= 'A' && c <= 'Z') ||
			(c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') ||
			c == '.' || c == '_' || c == '-'
		if !valid {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidKey, key, c)
		}
	}
	return nil
}
