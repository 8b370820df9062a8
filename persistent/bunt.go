package persistent

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/buntdb"
	"github.com/vitalkeep/vitalkeep"
)

// BuntStorage keeps values in a buntdb file, the default backend.
type BuntStorage struct {
	Buntdb *buntdb.DB
}

var _ vitalkeep.Storage = (*BuntStorage)(nil)

func (s *BuntStorage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return "", vitalkeep.ErrKeyNotFound
		} else {
			return "", fmt.Errorf("bunt view: %w", err)
		}
	}
	return value, nil
}

func (s *BuntStorage) Set(ctx context.Context, key string, value string) error {
	err := s.Buntdb.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, value, nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("bunt update: %w", err)
	}
	return nil
}
