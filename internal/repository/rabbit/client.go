package rabbit

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/zlog"
)

// Client соединение с RabbitMQ и канал для публикации.
type Client struct {
	conn    *amqp091.Connection
	Channel *amqp091.Channel
}

// ClientConfig параметры подключения.
type ClientConfig struct {
	URL            string
	ConnectionName string
	ConnectTimeout time.Duration
	Heartbeat      time.Duration
}

// NewClient подключается к RabbitMQ и открывает канал.
func NewClient(cfg ClientConfig) (*Client, error) {
	props := amqp091.NewConnectionProperties()
	props.SetClientConnectionName(cfg.ConnectionName)

	conn, err := amqp091.DialConfig(cfg.URL, amqp091.Config{
		Heartbeat:  cfg.Heartbeat,
		Properties: props,
		Dial:       amqp091.DefaultDial(cfg.ConnectTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &Client{conn: conn, Channel: ch}, nil
}

// Ping проверяет, что соединение открыто.
func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection is closed")
	}
	return nil
}

// Close закрывает канал и соединение.
func (c *Client) Close() error {
	if c.Channel != nil {
		if err := c.Channel.Close(); err != nil {
			zlog.Logger.Warn().Err(err).Msg("failed to close rabbitmq channel")
		}
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
