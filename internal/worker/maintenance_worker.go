package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/notification"
	"github.com/spec-kit/helpdesk-service/internal/workflow"
)

// MaintenanceWorker runs the periodic sweeps: pruning aged notifications and
// auto-closing stale open tickets.
type MaintenanceWorker struct {
	cfg    config.MaintenanceConfig
	store  *notification.Store
	engine *workflow.Engine
	logger *zap.Logger
}

// NewMaintenanceWorker constructs the worker.
func NewMaintenanceWorker(cfg config.MaintenanceConfig, store *notification.Store, engine *workflow.Engine, logger *zap.Logger) *MaintenanceWorker {
	return &MaintenanceWorker{cfg: cfg, store: store, engine: engine, logger: logger}
}

// Start launches the sweep loops. They stop when ctx is cancelled.
func (w *MaintenanceWorker) Start(ctx context.Context) {
	go w.runCleanupLoop(ctx)
	if w.cfg.SystemActorID != "" {
		go w.runAutoCloseLoop(ctx)
	} else {
		w.logger.Info("auto-close sweep disabled; no system actor configured")
	}
}

func (w *MaintenanceWorker) runCleanupLoop(ctx context.Context) {
	interval := time.Duration(w.cfg.CleanupIntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			days := w.cfg.NotificationRetentionDays
			if days <= 0 {
				days = notification.DefaultRetentionDays
			}
			removed := w.store.CleanupOldNotifications(days)
			if removed > 0 {
				w.logger.Info("pruned old notifications", zap.Int("removed", removed))
			}
		}
	}
}

func (w *MaintenanceWorker) runAutoCloseLoop(ctx context.Context) {
	interval := time.Duration(w.cfg.AutoCloseIntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			days := w.cfg.StaleTicketDays
			if days <= 0 {
				days = workflow.DefaultStaleDays
			}
			result, err := w.engine.AutoCloseStaleTickets(ctx, days, w.cfg.SystemActorID, "stale ticket sweep")
			if err != nil {
				w.logger.Warn("auto-close sweep failed", zap.Error(err))
				continue
			}
			if len(result.Successful) > 0 || len(result.Failed) > 0 {
				w.logger.Info("auto-close sweep finished",
					zap.Int("closed", len(result.Successful)),
					zap.Int("failed", len(result.Failed)),
				)
			}
		}
	}
}
