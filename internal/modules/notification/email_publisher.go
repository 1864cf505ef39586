// README: Email events published to RabbitMQ for the transactional email worker.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

// AMQPPublisher is satisfied by *amqp.Channel.
type AMQPPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type emailMessage struct {
	RecipientID types.ID `json:"recipient_id"`
	Event
}

// EmailPublisher emits one JSON message per recipient on a topic exchange,
// routed by event kind ("email.booking.created", ...).
type EmailPublisher struct {
	ch       AMQPPublisher
	exchange string
}

func NewEmailPublisher(ch AMQPPublisher, exchange string) *EmailPublisher {
	return &EmailPublisher{ch: ch, exchange: exchange}
}

func (p *EmailPublisher) Channel() string { return "email" }

func (p *EmailPublisher) Capability(ctx context.Context, recipient types.ID) Capability {
	if p.ch == nil {
		return Capability{}
	}
	return Capability{Supported: true, Granted: recipient != ""}
}

func (p *EmailPublisher) Notify(ctx context.Context, recipient types.ID, ev Event) error {
	body, err := json.Marshal(emailMessage{RecipientID: recipient, Event: ev})
	if err != nil {
		return err
	}
	routingKey := "email." + string(ev.Kind)
	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    fmt.Sprintf("%s:%s:%s", ev.BookingID, ev.Kind, recipient),
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}
