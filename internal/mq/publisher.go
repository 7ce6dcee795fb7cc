package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/conveyor/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeTriggerEvent MessageType = "trigger.event"
	MessageTypeNodeStatus   MessageType = "node.status"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishTriggerEvent публикует trigger-событие в очередь движка.
// Потребитель: Engine.
func (p *Publisher) PublishTriggerEvent(ctx context.Context, event domain.TriggerEvent) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeTriggerEvent,
		Payload:   event,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeTriggers, RoutingKeyPending, msg)
}

// PublishNodeStatus публикует статусное событие узла в topic-обменник.
// Потребители: UI-подписчики. Реализует runner.StatusPublisher.
//
// Статусы не персистентны по смыслу: пропущенное обновление не ломает
// выполнение, поэтому транзитные ошибки здесь — дело вызывающего
// (runner логирует и продолжает).
func (p *Publisher) PublishNodeStatus(ctx context.Context, update domain.NodeStatusUpdate) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeNodeStatus,
		Payload:   update,
		Timestamp: update.At,
	}

	return p.Publish(ctx, ExchangeStatus, StatusRoutingKey(update.NodeType), msg)
}
