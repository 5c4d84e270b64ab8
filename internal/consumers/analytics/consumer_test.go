package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/resgatesabor/resgatesabor-backend/pkg/enums"
	"github.com/resgatesabor/resgatesabor-backend/pkg/logger"
	"github.com/resgatesabor/resgatesabor-backend/pkg/outbox"
)

type fakeInserter struct {
	rows []any
	err  error
}

func (f *fakeInserter) InsertRows(ctx context.Context, table string, rows []any) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, rows...)
	return nil
}

type fakeManager struct {
	processed map[uuid.UUID]bool
	deleted   []uuid.UUID
}

func (f *fakeManager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	if f.processed == nil {
		f.processed = map[uuid.UUID]bool{}
	}
	if f.processed[eventID] {
		return true, nil
	}
	f.processed[eventID] = true
	return false, nil
}

func (f *fakeManager) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	f.deleted = append(f.deleted, eventID)
	delete(f.processed, eventID)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "analytics-test", Output: io.Discard})
}

func collectedEnvelope(t *testing.T, eventID uuid.UUID, orderID uuid.UUID) outbox.PayloadEnvelope {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"order_id":         orderID.String(),
		"establishment_id": uuid.NewString(),
		"voucher":          "#RS-3F2A",
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

func TestConsumerIngestsSupportedEvent(t *testing.T) {
	inserter := &fakeInserter{}
	manager := &fakeManager{}
	consumer, err := NewConsumer(inserter, "order_events", manager, testLogger())
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}

	eventID := uuid.New()
	orderID := uuid.New()
	envelope := collectedEnvelope(t, eventID, orderID)
	if err := consumer.Process(context.Background(), enums.EventOrderCollected, envelope); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(inserter.rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(inserter.rows))
	}
	row := inserter.rows[0].(*orderEventRow)
	if row.OrderID == nil || *row.OrderID != orderID.String() {
		t.Fatalf("order id not extracted: %+v", row)
	}
	if !row.Payload.Valid {
		t.Fatal("raw payload not carried")
	}
}

func TestConsumerSkipsDuplicateEvent(t *testing.T) {
	inserter := &fakeInserter{}
	manager := &fakeManager{}
	consumer, _ := NewConsumer(inserter, "order_events", manager, testLogger())

	eventID := uuid.New()
	envelope := collectedEnvelope(t, eventID, uuid.New())
	if err := consumer.Process(context.Background(), enums.EventOrderCollected, envelope); err != nil {
		t.Fatalf("first Process: %v", err)
	}
	if err := consumer.Process(context.Background(), enums.EventOrderCollected, envelope); err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if len(inserter.rows) != 1 {
		t.Fatalf("duplicate event inserted %d rows", len(inserter.rows))
	}
}

func TestConsumerReleasesMarkOnInsertFailure(t *testing.T) {
	inserter := &fakeInserter{err: errors.New("stream closed")}
	manager := &fakeManager{}
	consumer, _ := NewConsumer(inserter, "order_events", manager, testLogger())

	eventID := uuid.New()
	envelope := collectedEnvelope(t, eventID, uuid.New())
	if err := consumer.Process(context.Background(), enums.EventOrderCollected, envelope); err == nil {
		t.Fatal("expected insert error")
	}
	if len(manager.deleted) != 1 {
		t.Fatal("idempotency mark not released after failure")
	}

	// The retry after release should insert.
	inserter.err = nil
	if err := consumer.Process(context.Background(), enums.EventOrderCollected, envelope); err != nil {
		t.Fatalf("retry Process: %v", err)
	}
	if len(inserter.rows) != 1 {
		t.Fatalf("retry inserted %d rows", len(inserter.rows))
	}
}

func TestConsumerIgnoresUnsupportedEvent(t *testing.T) {
	inserter := &fakeInserter{}
	consumer, _ := NewConsumer(inserter, "order_events", &fakeManager{}, testLogger())

	envelope := collectedEnvelope(t, uuid.New(), uuid.New())
	if err := consumer.Process(context.Background(), enums.EventReviewSubmitted, envelope); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(inserter.rows) != 0 {
		t.Fatal("unsupported event must not be inserted")
	}
}
