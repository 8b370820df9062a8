package vitalkeep

import (
	"context"
	"time"
)

type Activity struct {
	Name string
	Data map[string]interface{}
}

type ActivityLog struct {
	Id        int64
	CreatedAt time.Time
	Name      string
	Data      map[string]interface{}
}

type ActivityStore interface {
	AddLog(ctx context.Context, activity Activity) error

	// "beforeId" - get logs before log with given id. If lower than 0 then gets recent logs up to "limit".
	// Newest logs come first.
	Recent(ctx context.Context, beforeId int64, limit int) ([]ActivityLog, error)
}
