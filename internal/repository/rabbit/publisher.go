package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"NoticeEmitter/internal/domain"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/zlog"
)

// Channel часть amqp091.Channel, нужная публикатору.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Publisher публикует итоги проходов доставки в RabbitMQ.
type Publisher struct {
	mu          sync.Mutex
	ch          Channel
	exchange    string
	routingKey  string
	contentType string
}

// NewPublisher объявляет durable topic exchange и создает новый экземпляр Publisher.
func NewPublisher(ch Channel, exchange, routingKey string) (*Publisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp091.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Publisher{
		ch:          ch,
		exchange:    exchange,
		routingKey:  routingKey,
		contentType: "application/json",
	}, nil
}

// OnNoticesEmitted публикует итоги прохода.
func (p *Publisher) OnNoticesEmitted(ctx context.Context, ev domain.EmittedNotices) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	msg := amqp091.Publishing{
		ContentType:  p.contentType,
		DeliveryMode: amqp091.Persistent,
		MessageId:    uuid.New().String(),
		Timestamp:    time.Now(),
		Body:         body,
	}

	// amqp091.Channel не допускает конкурентную публикацию
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, msg); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to publish notices emitted event")
		return err
	}
	zlog.Logger.Debug().Str("exchange", p.exchange).Str("routing_key", p.routingKey).Msg("notices emitted event published")
	return nil
}
