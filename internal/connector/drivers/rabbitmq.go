package drivers

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

// RabbitMQ treats query as the queue name and consumes a single message
// via a non-blocking Get (no consumer tag/ack loop needed for a one-shot
// verification read).
type RabbitMQ struct{}

type rabbitMessage struct {
	Body       string `json:"body"`
	RoutingKey string `json:"routingKey"`
	Exchange   string `json:"exchange"`
}

func (RabbitMQ) Execute(ctx context.Context, config map[string]string, query string) (string, error) {
	url := config["url"]
	if url == "" {
		return "", apperrors.NewValidationError("config", "rabbitmq connector requires \"url\"", nil)
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return "", err
	}
	defer ch.Close()

	delivery, ok, err := ch.Get(query, true)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperrors.NewNotFoundError("rabbitmq message", query, nil)
	}

	out := rabbitMessage{
		Body:       string(delivery.Body),
		RoutingKey: delivery.RoutingKey,
		Exchange:   delivery.Exchange,
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
