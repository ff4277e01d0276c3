package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"medidor/internal/amqp"
	"medidor/internal/core"
)

type fakeExportStore struct {
	measures map[string]core.Measure
	exported map[string]bool
	markErr  error
}

func newFakeExportStore() *fakeExportStore {
	return &fakeExportStore{
		measures: make(map[string]core.Measure),
		exported: make(map[string]bool),
	}
}

func (f *fakeExportStore) Get(ctx context.Context, id string) (core.Measure, error) {
	m, ok := f.measures[id]
	if !ok {
		return core.Measure{}, core.ErrNotFound
	}
	return m, nil
}

func (f *fakeExportStore) PendingExport(ctx context.Context, limit int) ([]core.Measure, error) {
	var out []core.Measure
	for id, m := range f.measures {
		if m.Confirmed && !f.exported[id] && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeExportStore) MarkExported(ctx context.Context, id string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.exported[id] = true
	return nil
}

func confirmedMeasure(id string) core.Measure {
	return core.Measure{
		ID:           id,
		CustomerCode: "C1",
		Type:         core.Water,
		Datetime:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Value:        1234,
		Confirmed:    true,
	}
}

func TestHandleConfirmedMessage(t *testing.T) {
	store := newFakeExportStore()
	store.measures["m1"] = confirmedMeasure("m1")
	w := NewExportWorker(store, 10)

	if err := w.HandleConfirmedMessage(amqp.NewMeasureConfirmedMessage("m1", 1234)); err != nil {
		t.Fatalf("HandleConfirmedMessage: %v", err)
	}
	if !store.exported["m1"] {
		t.Fatalf("measure not marked exported")
	}
}

func TestHandleConfirmedMessageDropsUnknown(t *testing.T) {
	store := newFakeExportStore()
	w := NewExportWorker(store, 10)

	// Unknown ids are dropped, not retried forever.
	if err := w.HandleConfirmedMessage(amqp.NewMeasureConfirmedMessage("ghost", 1)); err != nil {
		t.Fatalf("expected nil for unknown measure, got %v", err)
	}
}

func TestHandleConfirmedMessageDropsUnconfirmed(t *testing.T) {
	store := newFakeExportStore()
	m := confirmedMeasure("m1")
	m.Confirmed = false
	store.measures["m1"] = m
	w := NewExportWorker(store, 10)

	if err := w.HandleConfirmedMessage(amqp.NewMeasureConfirmedMessage("m1", 1)); err != nil {
		t.Fatalf("expected nil for unconfirmed measure, got %v", err)
	}
	if store.exported["m1"] {
		t.Fatalf("unconfirmed measure must not be exported")
	}
}

func TestHandleConfirmedMessageMarkFailure(t *testing.T) {
	store := newFakeExportStore()
	store.measures["m1"] = confirmedMeasure("m1")
	store.markErr = errors.New("disk full")
	w := NewExportWorker(store, 10)

	if err := w.HandleConfirmedMessage(amqp.NewMeasureConfirmedMessage("m1", 1234)); err == nil {
		t.Fatalf("expected error so the delivery is requeued")
	}
}

func TestSweep(t *testing.T) {
	store := newFakeExportStore()
	store.measures["m1"] = confirmedMeasure("m1")
	store.measures["m2"] = confirmedMeasure("m2")
	unconfirmed := confirmedMeasure("m3")
	unconfirmed.Confirmed = false
	store.measures["m3"] = unconfirmed
	w := NewExportWorker(store, 10)

	if err := w.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if !store.exported["m1"] || !store.exported["m2"] {
		t.Fatalf("confirmed measures not swept: %+v", store.exported)
	}
	if store.exported["m3"] {
		t.Fatalf("unconfirmed measure swept")
	}

	// Second sweep finds nothing to do.
	if err := w.Sweep(context.Background()); err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
}
