package postgres

import (
	"context"
	"fmt"
	"time"

	domainLog "device-fleet-manager/internal/domain/devicelog"
	"device-fleet-manager/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
)

type DeviceLogRepository struct {
	db *DB
}

func NewDeviceLogRepository(db *DB) domainLog.Repository {
	return &DeviceLogRepository{db: db}
}

func (r *DeviceLogRepository) BatchInsert(ctx context.Context, logs []*domainLog.Log) error {
	if len(logs) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]models.DeviceLogModel, len(logs))
	for i, l := range logs {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		if l.CreatedAt.IsZero() {
			l.CreatedAt = now
		}
		rows[i] = models.DeviceLogModel{
			ID:        l.ID,
			DeviceID:  l.DeviceID,
			AccountID: l.AccountID,
			MacID:     l.MacID,
			LogClass:  l.LogClass,
			Level:     l.Level,
			ExtraData: l.ExtraData,
			LoggedAt:  l.LoggedAt,
			CreatedAt: l.CreatedAt,
		}
	}

	if err := r.db.DB.WithContext(ctx).CreateInBatches(rows, 100).Error; err != nil {
		return fmt.Errorf("failed to insert device logs: %w", err)
	}
	return nil
}

// ListByDevice returns the newest logs that reference the device by id or mac.
func (r *DeviceLogRepository) ListByDevice(ctx context.Context, deviceID uuid.UUID, macID string, limit int) ([]*domainLog.Log, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []models.DeviceLogModel
	err := r.db.DB.WithContext(ctx).
		Where("device_id = ? OR mac_id = ?", deviceID, macID).
		Order("logged_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list device logs: %w", err)
	}

	logs := make([]*domainLog.Log, len(rows))
	for i, m := range rows {
		logs[i] = &domainLog.Log{
			ID:        m.ID,
			DeviceID:  m.DeviceID,
			AccountID: m.AccountID,
			MacID:     m.MacID,
			LogClass:  m.LogClass,
			Level:     m.Level,
			ExtraData: m.ExtraData,
			LoggedAt:  m.LoggedAt,
			CreatedAt: m.CreatedAt,
		}
	}
	return logs, nil
}

func (r *DeviceLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.DB.WithContext(ctx).
		Where("logged_at < ?", before).
		Delete(&models.DeviceLogModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete device logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
