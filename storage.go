package vitalkeep

import (
	"context"
	"errors"
)

var (
	ErrKeyNotFound = errors.New("key not found")

	// Mutation attempted before the profile finished loading.
	ErrProfileNotReady = errors.New("profile not ready")

	// Store used without being built by its constructor.
	ErrStoreNotProvided = errors.New("profile store used outside of its provider, construct it with state.NewProfileStore")
)

// Storage is an opaque key-value primitive holding serialized values.
type Storage interface {
	// Get value stored under key. Returns ErrKeyNotFound when absent.
	Get(ctx context.Context, key string) (string, error)

	Set(ctx context.Context, key string, value string) error
}
