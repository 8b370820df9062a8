package mock

import (
	"context"
)

type Storage struct {
	GetFn func(ctx context.Context, key string) (string, error)

	SetFn func(ctx context.Context, key string, value string) error
}

func (s Storage) Get(ctx context.Context, key string) (string, error) {
	return s.GetFn(ctx, key)
}

func (s Storage) Set(ctx context.Context, key string, value string) error {
	return s.SetFn(ctx, key, value)
}
