package inmem

import (
	"context"
	"sync"

	"github.com/vitalkeep/vitalkeep"
)

type Storage struct {
	values map[string]string
	mutex  sync.RWMutex
}

var _ vitalkeep.Storage = (*Storage)(nil)

func NewStorage() *Storage {
	return &Storage{
		values: map[string]string{},
	}
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", vitalkeep.ErrKeyNotFound
	}
	return v, nil
}

func (s *Storage) Set(ctx context.Context, key string, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.values[key] = value
	return nil
}
