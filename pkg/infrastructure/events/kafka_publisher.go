package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/vsinha/craftsman/pkg/domain/entities"
)

// MessageWriter is the part of *kafka.Writer the publisher uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter creates a writer balancing by least bytes
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// Envelope is the JSON shape of an exported event
type Envelope struct {
	Type          string    `json:"type"`
	WorkOrderID   string    `json:"work_order_id"`
	WorkOrderCode string    `json:"work_order_code"`
	RecipeCode    string    `json:"recipe_code"`
	Status        string    `json:"status"`
	PlanDate      string    `json:"plan_date,omitempty"`
	Quantity      string    `json:"quantity,omitempty"`
	Destination   string    `json:"destination,omitempty"`
	Actor         string    `json:"actor,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Materials     []string  `json:"materials,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// KafkaPublisher exports craft events to a topic, keyed by work order
// code. Write failures are logged and never reach the publisher.
type KafkaPublisher struct {
	writer MessageWriter
	logger *zap.Logger
}

var _ Listener = (*KafkaPublisher)(nil)

func NewKafkaPublisher(writer MessageWriter, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

// EnvelopeFor flattens a craft event. ok is false for foreign events.
func EnvelopeFor(event Event) (Envelope, bool) {
	env := Envelope{Type: event.Type(), OccurredAt: event.Timestamp()}
	var wo *entities.WorkOrder

	switch data := event.Data().(type) {
	case MaterialsNeeded:
		wo = data.WorkOrder
		env.Quantity = wo.PlannedQuantity.String()
		for _, r := range data.Requirements {
			env.Materials = append(env.Materials, string(r.Item.SKU)+"="+r.Quantity.String()+r.Unit)
		}
	case ProductionCompleted:
		wo = data.WorkOrder
		env.Quantity = data.ActualQuantity.String()
		env.Destination = data.Destination
		env.Actor = data.Actor
	case OrderCancelled:
		wo = data.WorkOrder
		env.Reason = data.Reason
	default:
		return Envelope{}, false
	}

	env.WorkOrderID = wo.ID.String()
	env.WorkOrderCode = wo.Code
	env.RecipeCode = wo.RecipeCode
	env.Status = wo.Status.String()
	if !wo.PlanDate.IsZero() {
		env.PlanDate = wo.PlanDate.Format("2006-01-02")
	}
	return env, true
}

func (p *KafkaPublisher) Handle(ctx context.Context, event Event) error {
	env, ok := EnvelopeFor(event)
	if !ok {
		return nil
	}
	payload, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("Failed to encode event", zap.String("type", event.Type()), zap.Error(err))
		return nil
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.WorkOrderCode),
		Value: payload,
		Time:  env.OccurredAt,
	})
	if err != nil {
		p.logger.Error("Failed to export event to Kafka",
			zap.String("type", event.Type()),
			zap.String("work_order", env.WorkOrderCode),
			zap.Error(err))
	}
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
