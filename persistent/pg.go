package persistent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/vitalkeep/vitalkeep"
)

type KeyValue struct {
	bun.BaseModel `bun:"table:kv"`

	Key   string `bun:",pk"`
	Value string `bun:",notnull"`
}

// PgStorage keeps values in the postgres "kv" table.
type PgStorage struct {
	DB *bun.DB
}

var _ vitalkeep.Storage = (*PgStorage)(nil)

func (s *PgStorage) Get(ctx context.Context, key string) (string, error) {
	kv := new(KeyValue)
	err := s.DB.NewSelect().
		Model(kv).
		Where(`key=?`, key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", vitalkeep.ErrKeyNotFound
		} else {
			return "", fmt.Errorf("select kv: %w", err)
		}
	}
	return kv.Value, nil
}

func (s *PgStorage) Set(ctx context.Context, key string, value string) error {
	_, err := s.DB.NewInsert().
		Model(&KeyValue{Key: key, Value: value}).
		On(`CONFLICT (key) DO UPDATE SET value=EXCLUDED.value`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert kv: %w", err)
	}
	return nil
}

// CreateSchema creates missing tables used by postgres stores.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []interface{}{
		(*KeyValue)(nil),
		(*ActivityLog)(nil),
	}
	for _, model := range models {
		modelType := reflect.TypeOf(model)
		logrus.WithField("model", modelType).Debugln("Creating table.")
		_, err := db.NewCreateTable().IfNotExists().Model(model).Exec(ctx)
		if err != nil {
			return fmt.Errorf("create table %s: %w", modelType, err)
		}
	}
	return nil
}
