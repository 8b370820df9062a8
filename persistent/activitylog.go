package persistent

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/vitalkeep/vitalkeep"
)

type ActivityLog struct {
	bun.BaseModel `bun:"table:activity_log"`

	Id        int64                  `bun:",pk,autoincrement"`
	CreatedAt time.Time              `bun:",nullzero,notnull,default:current_timestamp"`
	Name      string                 `bun:",notnull"`
	Data      map[string]interface{} `bun:",notnull"`
}

func (l *ActivityLog) ToDomain() vitalkeep.ActivityLog {
	return vitalkeep.ActivityLog{
		Id:        l.Id,
		CreatedAt: l.CreatedAt,
		Name:      l.Name,
		Data:      l.Data,
	}
}

type ActivityStore struct {
	DB *bun.DB
}

var _ vitalkeep.ActivityStore = (*ActivityStore)(nil)

func (s *ActivityStore) AddLog(ctx context.Context, activity vitalkeep.Activity) error {
	data := activity.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	_, err := s.DB.NewInsert().
		Model(&ActivityLog{
			Name: activity.Name,
			Data: data,
		}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

func (s *ActivityStore) Recent(ctx context.Context, beforeId int64, limit int) ([]vitalkeep.ActivityLog, error) {
	if limit <= 0 {
		return []vitalkeep.ActivityLog{}, nil
	}
	var logs []ActivityLog
	q := s.DB.NewSelect().
		Model((*ActivityLog)(nil)).
		Order("id DESC").
		Limit(limit)
	if beforeId >= 0 {
		q = q.Where("id < ?", beforeId)
	}
	err := q.Scan(ctx, &logs)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	ml := make([]vitalkeep.ActivityLog, len(logs))
	for i, l := range logs {
		ml[i] = l.ToDomain()
	}
	return ml, nil
}
