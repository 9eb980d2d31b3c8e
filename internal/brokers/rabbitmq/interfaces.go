package rabbitmq

import (
	"github.com/streadway/amqp"
)

// Channel is the part of *amqp.Channel the broker uses
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Close() error
}

var _ Channel = (*amqp.Channel)(nil)
