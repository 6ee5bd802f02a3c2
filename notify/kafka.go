package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/warp/occupancy-engine/occupancy"
)

// CheckoutEvent is the JSON value published for each notification.
type CheckoutEvent struct {
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Recipients []string  `json:"recipients,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MessageWriter is the part of kafka.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes notifications as events keyed by booking, so all
// events of one booking land on the same partition in order.
type KafkaNotifier struct {
	writer MessageWriter
	clock  func() time.Time
}

var _ occupancy.Notifier = (*KafkaNotifier)(nil)

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return NewKafkaNotifierWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	})
}

func NewKafkaNotifierWithWriter(w MessageWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: w, clock: time.Now}
}

func (k *KafkaNotifier) Notify(ctx context.Context, msg occupancy.Notification) error {
	payload, err := json.Marshal(CheckoutEvent{
		Type:       msg.Event,
		BookingID:  string(msg.BookingID),
		Subject:    msg.Subject,
		Body:       msg.Body,
		Recipients: msg.Recipients,
		OccurredAt: k.clock().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.BookingID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(msg.Event)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", msg.Event, err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
