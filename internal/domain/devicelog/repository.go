package devicelog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	BatchInsert(ctx context.Context, logs []*Log) error
	ListByDevice(ctx context.Context, deviceID uuid.UUID, macID string, limit int) ([]*Log, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}
