package rabbitmq

import (
	"context"
	"fmt"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ReplyPublisher answers request/reply messages on the queue named by ReplyTo.
type ReplyPublisher struct {
	conn *amqp.Connection
}

func NewReplyPublisher(conn *amqp.Connection) *ReplyPublisher {
	return &ReplyPublisher{conn: conn}
}

// Reply publishes body to replyTo with the request's correlation id and a status header.
func (p *ReplyPublisher) Reply(ctx context.Context, replyTo, correlationID string, body []byte, status int) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := ch.PublishWithContext(
		ctx,
		"",
		replyTo,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: correlationID,
			Headers:       amqp.Table{"status": strconv.Itoa(status)},
			Body:          body,
		},
	); err != nil {
		return fmt.Errorf("publish reply failed: %w", err)
	}
	return nil
}
