package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/audiometry/internal/domain"
	"github.com/yourorg/audiometry/internal/observability/metrics"
)

// ReminderWorker periodically scans stored hearing tests for ones whose
// next test falls due within the horizon and reports the count. It never
// mutates the store.
type ReminderWorker struct {
	store    domain.Store
	logger   *slog.Logger
	interval time.Duration
	horizon  time.Duration
}

// NewReminderWorker creates a reminder worker
func NewReminderWorker(store domain.Store, logger *slog.Logger, interval, horizon time.Duration) *ReminderWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	if horizon <= 0 {
		horizon = 30 * 24 * time.Hour
	}
	return &ReminderWorker{store: store, logger: logger, interval: interval, horizon: horizon}
}

// Start begins the reminder loop and blocks until the context is canceled
func (w *ReminderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("reminder worker started",
		slog.Duration("interval", w.interval),
		slog.Duration("horizon", w.horizon),
	)

	w.checkDueTests()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopped")
			return
		case <-ticker.C:
			w.checkDueTests()
		}
	}
}

func (w *ReminderWorker) checkDueTests() {
	cutoff := time.Now().Add(w.horizon).Format("2006-01-02")

	due, err := w.store.ListTestsDueBy(cutoff)
	if err != nil {
		w.logger.Error("failed to scan for due tests", slog.String("error", err.Error()))
		return
	}

	metrics.SetTestsDueSoon(len(due))
	if len(due) == 0 {
		return
	}

	w.logger.Info("hearing tests approaching due date",
		slog.Int("count", len(due)),
		slog.String("cutoff", cutoff),
	)
	for _, t := range due {
		w.logger.Debug("test due",
			slog.String("test_id", t.ID),
			slog.String("profile_id", t.ProfileID),
			slog.String("tenant_id", t.TenantID),
			slog.String("next_test_due", t.NextTestDue),
		)
	}
}
