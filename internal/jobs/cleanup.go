package jobs

import (
	"context"
	"fmt"
	"time"

	domainAccount "device-fleet-manager/internal/domain/account"
	domainLog "device-fleet-manager/internal/domain/devicelog"
	"device-fleet-manager/internal/logger"

	"github.com/robfig/cron"
	"go.uber.org/zap"
)

const (
	DefaultSchedule   = "@every 1h"
	resetTokenMaxAge  = 24 * time.Hour
	cleanupRunTimeout = 5 * time.Minute
)

// Cleanup periodically removes stale reset tokens and expired device logs.
type Cleanup struct {
	tokens        domainAccount.ResetTokenRepository
	logs          domainLog.Repository
	retentionDays int
	now           func() time.Time

	cron *cron.Cron
}

// NewCleanup builds the job. A retentionDays of zero keeps logs forever.
func NewCleanup(tokens domainAccount.ResetTokenRepository, logs domainLog.Repository, retentionDays int) *Cleanup {
	return &Cleanup{
		tokens:        tokens,
		logs:          logs,
		retentionDays: retentionDays,
		now:           time.Now,
		cron:          cron.New(),
	}
}

// Start schedules the job on spec and returns immediately.
func (c *Cleanup) Start(spec string) error {
	if spec == "" {
		spec = DefaultSchedule
	}
	if err := c.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupRunTimeout)
		defer cancel()
		c.Run(ctx)
	}); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}

	c.cron.Start()
	logger.Info("Cleanup job scheduled",
		zap.String("schedule", spec),
		zap.Int("log_retention_days", c.retentionDays),
	)
	return nil
}

func (c *Cleanup) Stop() {
	c.cron.Stop()
	logger.Info("Cleanup job stopped")
}

// Run performs one cleanup pass.
func (c *Cleanup) Run(ctx context.Context) {
	now := c.now()

	tokens, err := c.tokens.DeleteStale(ctx, now.Add(-resetTokenMaxAge))
	if err != nil {
		logger.Error("Failed to delete stale reset tokens", zap.Error(err))
	} else {
		logger.Debug("Stale reset tokens cleaned up",
			zap.Int64("deleted", tokens),
			logger.Event("reset_tokens_cleaned"),
		)
	}

	if c.retentionDays <= 0 {
		return
	}
	cutoff := now.AddDate(0, 0, -c.retentionDays)
	logs, err := c.logs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		logger.Error("Failed to delete expired device logs", zap.Error(err))
		return
	}
	logger.Debug("Expired device logs cleaned up",
		zap.Int64("deleted", logs),
		zap.Time("cutoff", cutoff),
		logger.Event("device_logs_cleaned"),
	)
}
