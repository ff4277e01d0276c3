// Package worker hands confirmed measures off to billing.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"medidor/internal/amqp"
	"medidor/internal/core"
)

// ExportStore is the persistence surface the worker needs.
type ExportStore interface {
	Get(ctx context.Context, id string) (core.Measure, error)
	PendingExport(ctx context.Context, limit int) ([]core.Measure, error)
	MarkExported(ctx context.Context, id string) error
}

// ExportWorker flags confirmed measures as exported, driven by broker
// messages with a periodic sweep as catch-up for lost deliveries.
type ExportWorker struct {
	store     ExportStore
	batchSize int
}

func NewExportWorker(store ExportStore, batchSize int) *ExportWorker {
	if batchSize < 1 {
		batchSize = 50
	}
	return &ExportWorker{store: store, batchSize: batchSize}
}

// HandleConfirmedMessage processes one measure-confirmed event. A message
// for a measure that was deleted or never confirmed is dropped, not requeued.
func (w *ExportWorker) HandleConfirmedMessage(msg *amqp.MeasureConfirmedMessage) error {
	ctx := context.Background()

	measure, err := w.store.Get(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Confirmed message for unknown measure, dropping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load measure %s: %w", msg.ID, err)
	}
	if !measure.Confirmed {
		slog.WarnContext(ctx, "Confirmed message for unconfirmed measure, dropping", "id", msg.ID)
		return nil
	}

	if err := w.store.MarkExported(ctx, msg.ID); err != nil {
		return fmt.Errorf("mark measure %s exported: %w", msg.ID, err)
	}

	slog.InfoContext(ctx, "Measure exported to billing",
		"id", msg.ID,
		"customer_code", measure.CustomerCode,
		"measure_value", measure.Value)
	return nil
}

// Sweep exports any confirmed measures whose broker message never arrived.
func (w *ExportWorker) Sweep(ctx context.Context) error {
	pending, err := w.store.PendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending export: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Sweeping unexported confirmed measures", "count", len(pending))
	for _, m := range pending {
		if err := w.store.MarkExported(ctx, m.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export measure during sweep", "id", m.ID, "error", err)
			continue
		}
		slog.InfoContext(ctx, "Measure exported to billing",
			"id", m.ID,
			"customer_code", m.CustomerCode,
			"measure_value", m.Value)
	}
	return nil
}
