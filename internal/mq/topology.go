package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/conveyor/internal/domain"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeTriggers Exchange = "conveyor.triggers"
	ExchangeStatus   Exchange = "conveyor.status"
	ExchangeDLQ      Exchange = "conveyor.dlq"
)

// Queues — имена очередей.
const (
	QueueTriggersPending Queue = "triggers.pending"
	QueueDLQTriggers     Queue = "dlq.triggers"
)

// Routing keys.
const (
	RoutingKeyPending     RoutingKey = "pending"
	RoutingKeyDLQTriggers RoutingKey = "triggers"
)

// StatusRoutingKey возвращает routing key статусного события для типа
// узла. UI-потребители биндят свои очереди по маске "status.<TYPE>"
// (или "status.#" для всех типов).
func StatusRoutingKey(nodeType domain.NodeType) RoutingKey {
	return RoutingKey("status." + string(nodeType))
}

func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

// declareExchanges создаёт обменники.
//
// conveyor.status — topic: статусные события маршрутизируются по типу
// узла, очередей со стороны движка у обменника нет (fire-and-forget,
// потребители объявляют свои очереди сами).
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeTriggers, "direct"},
		{ExchangeStatus, "topic"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQTriggers),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// triggers.pending — с DLQ: событие, которое раз за разом
		// роняет handler, уходит в DLQ, а не крутится вечно
		{QueueTriggersPending, dlqArgs},

		// dlq.triggers — сама DLQ очередь
		{QueueDLQTriggers, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueTriggersPending, RoutingKeyPending, ExchangeTriggers},
		{QueueDLQTriggers, RoutingKeyDLQTriggers, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Conveyor RabbitMQ Topology:

    conveyor.triggers (direct)
    └── triggers.pending [routing: pending]
            Consumer: Engine
            DLQ: dlq.triggers

    conveyor.status (topic)
    └── status.<NODE_TYPE> — live node status updates
            Consumers: UI subscribers (own queues)

    conveyor.dlq (direct)
    └── dlq.triggers [routing: triggers]
            Manual processing
  `
}
