package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/vsinha/craftsman/pkg/domain/entities"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func completedOrder() *entities.WorkOrder {
	return &entities.WorkOrder{
		ID:              uuid.New(),
		Code:            "WO-2026-00007",
		RecipeCode:      "baguette",
		PlanDate:        time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC),
		PlannedQuantity: decimal.NewFromInt(50),
		ActualQuantity:  decimal.NewNullDecimal(decimal.NewFromInt(45)),
		Status:          entities.WorkOrderCompleted,
		Destination:     "vitrine",
	}
}

func TestKafkaPublisher_WritesEnvelope(t *testing.T) {
	writer := &recordingWriter{}
	publisher := NewKafkaPublisher(writer, nil)
	wo := completedOrder()

	if err := publisher.Handle(context.Background(), NewProductionCompleted(wo, entities.ItemRef{SKU: "BAGUETTE"}, "joao")); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(writer.messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(writer.messages))
	}

	msg := writer.messages[0]
	if string(msg.Key) != "WO-2026-00007" {
		t.Errorf("Expected key WO-2026-00007, got %s", msg.Key)
	}
	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		t.Fatalf("Invalid payload: %v", err)
	}
	if env.Type != ProductionCompletedEvent || env.Quantity != "45" || env.Destination != "vitrine" || env.PlanDate != "2026-02-27" {
		t.Errorf("Unexpected envelope %+v", env)
	}
}

func TestKafkaPublisher_SwallowsWriteErrors(t *testing.T) {
	publisher := NewKafkaPublisher(&recordingWriter{err: errors.New("broker down")}, nil)
	if err := publisher.Handle(context.Background(), NewOrderCancelled(completedOrder(), "oven broken")); err != nil {
		t.Errorf("Expected write failure to be logged only, got %v", err)
	}
}

func TestKafkaPublisher_IgnoresForeignEvents(t *testing.T) {
	writer := &recordingWriter{}
	publisher := NewKafkaPublisher(writer, nil)
	_ = publisher.Handle(context.Background(), NewEvent("other", "x", 42))
	if len(writer.messages) != 0 {
		t.Errorf("Expected no messages, got %d", len(writer.messages))
	}
}
