package email

import (
	"context"
	"fmt"
	"time"

	domainEmail "device-fleet-manager/internal/domain/email"
	"device-fleet-manager/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FromSender is a Sender with a configured envelope address.
type FromSender interface {
	Sender
	From() string
}

// Service renders templated emails, records them and hands them to a Sender.
// Every attempt leaves a Record marked delivered or failed.
type Service struct {
	repo      domainEmail.Repository
	sender    FromSender
	templates *Templates
}

func NewService(repo domainEmail.Repository, sender FromSender, templates *Templates) *Service {
	return &Service{
		repo:      repo,
		sender:    sender,
		templates: templates,
	}
}

func (s *Service) Send(ctx context.Context, templateID string, data map[string]interface{}, recipient string) error {
	record := &domainEmail.Record{
		ID:           uuid.New(),
		Recipient:    recipient,
		TemplateID:   templateID,
		TemplateData: data,
		Sender:       s.sender.From(),
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to record email: %w", err)
	}

	subject, body, err := s.templates.Render(templateID, data)
	if err == nil {
		err = s.sender.Send(ctx, recipient, subject, body)
	}

	if err != nil {
		if markErr := s.repo.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			logger.Error("Failed to mark email as failed", zap.Error(markErr))
		}
		return err
	}

	if err := s.repo.MarkDelivered(ctx, record.ID); err != nil {
		logger.Error("Failed to mark email as delivered", zap.Error(err))
	}

	logger.Info("Email sent",
		zap.String("template_id", templateID),
		zap.String("recipient", recipient),
		logger.Event("email_sent"),
	)
	return nil
}
