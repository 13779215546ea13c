package postgres

import (
	"context"
	"fmt"
	"time"

	domainEmail "device-fleet-manager/internal/domain/email"
	"device-fleet-manager/internal/infrastructure/database/postgres/models"

	"github.com/google/uuid"
)

type EmailRepository struct {
	db *DB
}

func NewEmailRepository(db *DB) domainEmail.Repository {
	return &EmailRepository{db: db}
}

func (r *EmailRepository) Create(ctx context.Context, rec *domainEmail.Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	m := &models.EmailRecordModel{
		ID:           rec.ID,
		Recipient:    rec.Recipient,
		TemplateID:   rec.TemplateID,
		TemplateData: rec.TemplateData,
		Sender:       rec.Sender,
		Delivered:    rec.Delivered,
		Error:        rec.Error,
		CreatedAt:    rec.CreatedAt,
	}
	if err := r.db.DB.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create email record: %w", err)
	}
	return nil
}

func (r *EmailRepository) MarkDelivered(ctx context.Context, recordID uuid.UUID) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.EmailRecordModel{}).
		Where("id = ?", recordID).
		Updates(map[string]interface{}{
			"delivered": true,
			"error":     nil,
		}).Error
}

func (r *EmailRepository) MarkFailed(ctx context.Context, recordID uuid.UUID, reason string) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.EmailRecordModel{}).
		Where("id = ?", recordID).
		Updates(map[string]interface{}{
			"delivered": false,
			"error":     reason,
		}).Error
}

func (r *EmailRepository) ListByRecipient(ctx context.Context, recipient string) ([]*domainEmail.Record, error) {
	var rows []models.EmailRecordModel
	err := r.db.DB.WithContext(ctx).
		Where("recipient = ?", recipient).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list email records: %w", err)
	}

	records := make([]*domainEmail.Record, len(rows))
	for i, m := range rows {
		records[i] = &domainEmail.Record{
			ID:           m.ID,
			Recipient:    m.Recipient,
			TemplateID:   m.TemplateID,
			TemplateData: m.TemplateData,
			Sender:       m.Sender,
			Delivered:    m.Delivered,
			Error:        m.Error,
			CreatedAt:    m.CreatedAt,
		}
	}
	return records, nil
}
