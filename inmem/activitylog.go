package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/vitalkeep/vitalkeep"
)

type ActivityStore struct {
	lastId int64
	logs   []vitalkeep.ActivityLog
	mutex  sync.RWMutex
}

var _ vitalkeep.ActivityStore = (*ActivityStore)(nil)

func NewActivityStore() *ActivityStore {
	return &ActivityStore{
		lastId: 0,
		logs:   make([]vitalkeep.ActivityLog, 0, 10),
	}
}

func (s *ActivityStore) AddLog(ctx context.Context, activity vitalkeep.Activity) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lastId++
	s.logs = append(s.logs, vitalkeep.ActivityLog{
		Id:        s.lastId,
		CreatedAt: time.Now().UTC(),
		Name:      activity.Name,
		Data:      activity.Data,
	})
	return nil
}

func (s *ActivityStore) Recent(ctx context.Context, beforeId int64, limit int) ([]vitalkeep.ActivityLog, error) {
	if limit <= 0 {
		return []vitalkeep.ActivityLog{}, nil
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	logs := make([]vitalkeep.ActivityLog, 0, limit)
	// ids grow with insertion order, walk from the newest.
	for i := len(s.logs) - 1; i >= 0 && len(logs) < limit; i-- {
		l := s.logs[i]
		if beforeId >= 0 && l.Id >= beforeId {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}
