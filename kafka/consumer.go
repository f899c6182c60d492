package kafka

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/thisistanishq/smart-cafeteria-solution-sub001/models"
)

func InitConsumer(broker string, logger *zap.Logger) (sarama.Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true

	consumer, err := sarama.NewConsumer([]string{broker}, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Info("Kafka consumer initialized")
	return consumer, nil
}

// StartConsumer reads order lifecycle events and reconciles order rows:
// a failed payment marks the order's payment failed, a completed payment
// confirms the order. Other event types are logged for the notification
// trail only. The loop runs until ctx is cancelled.
func StartConsumer(ctx context.Context, consumer sarama.Consumer, topic string, db *sql.DB, logger *zap.Logger) error {
	partitionConsumer, err := consumer.ConsumePartition(topic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("failed to consume partition: %w", err)
	}
	defer partitionConsumer.Close()

	logger.Info("Kafka consumer started", zap.String("topic", topic))

	for {
		select {
		case message := <-partitionConsumer.Messages():
			if err := handleMessage(message, db, logger); err != nil {
				logger.Error("Failed to handle message", zap.Error(err))
			}
		case err := <-partitionConsumer.Errors():
			logger.Error("Kafka consumer error", zap.Error(err))
		case <-ctx.Done():
			logger.Info("Kafka consumer stopping", zap.String("topic", topic))
			return nil
		}
	}
}

func handleMessage(message *sarama.ConsumerMessage, db *sql.DB, logger *zap.Logger) error {
	propagator := otel.GetTextMapPropagator()
	carrier := consumerHeaderCarrier(message.Headers)
	ctx := propagator.Extract(context.Background(), carrier)

	ctx, span := otel.Tracer("cafeteria").Start(ctx, "ProcessOrderEvent")
	defer span.End()

	var event models.OrderEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	span.SetAttributes(
		attribute.String("event.type", event.EventType),
		attribute.Int("order.id", event.OrderID),
	)

	logger.Info("Received event",
		zap.String("event_type", event.EventType),
		zap.Int("order_id", event.OrderID),
		zap.String("order_number", event.OrderNumber),
	)

	switch event.EventType {
	case "payment_failed":
		_, err := db.ExecContext(ctx,
			"UPDATE orders SET payment_status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2",
			models.PaymentStatusFailed, event.OrderID,
		)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to update payment status: %w", err)
		}
	case "payment_completed":
		_, err := db.ExecContext(ctx,
			"UPDATE orders SET payment_status = $1, status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3 AND status = $4",
			models.PaymentStatusCompleted, models.OrderStatusConfirmed, event.OrderID, models.OrderStatusPending,
		)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to update payment status: %w", err)
		}
	}

	return nil
}

// consumerHeaderCarrier implements the TextMapCarrier interface over consumed
// Kafka record headers.
type consumerHeaderCarrier []*sarama.RecordHeader

func (c consumerHeaderCarrier) Get(key string) string {
	for _, h := range c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c consumerHeaderCarrier) Set(key, value string) {
	// Extraction only.
}

func (c consumerHeaderCarrier) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = string(h.Key)
	}
	return keys
}
