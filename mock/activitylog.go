package mock

import (
	"context"

	"github.com/vitalkeep/vitalkeep"
)

type ActivityStore struct {
	AddLogFn func(ctx context.Context, activity vitalkeep.Activity) error

	RecentFn func(ctx context.Context, beforeId int64, limit int) ([]vitalkeep.ActivityLog, error)
}

func (s ActivityStore) AddLog(ctx context.Context, activity vitalkeep.Activity) error {
	return s.AddLogFn(ctx, activity)
}

func (s ActivityStore) Recent(ctx context.Context, beforeId int64, limit int) ([]vitalkeep.ActivityLog, error) {
	return s.RecentFn(ctx, beforeId, limit)
}
