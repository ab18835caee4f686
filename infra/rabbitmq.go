package infra

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"
)

type RabbitMQConfig struct {
	URL string
}

type RabbitMQ struct {
	Connection *amqp.Connection
	Channel    *amqp.Channel

	publishMu sync.Mutex
}

func NewRabbitMQ(config RabbitMQConfig) (*RabbitMQ, error) {
	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	r := &RabbitMQ{Connection: conn, Channel: ch}

	// 自動宣告所有隊列
	for _, queueName := range GetAllQueueNames() {
		if _, err := r.DeclareQueue(queueName.String()); err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
		}
	}

	log.Info().Msg("RabbitMQ 連線成功 (Connected to RabbitMQ)")

	return r, nil
}

func (r *RabbitMQ) Close() error {
	if r.Channel != nil {
		r.Channel.Close()
	}
	if r.Connection != nil {
		return r.Connection.Close()
	}
	return nil
}

func (r *RabbitMQ) DeclareQueue(name string) (amqp.Queue, error) {
	return r.Channel.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

// PublishMessage 發送持久化 JSON 訊息，headers 可為 nil
func (r *RabbitMQ) PublishMessage(queueName string, body []byte, headers amqp.Table) error {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	return r.Channel.Publish(
		"",        // exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      headers,
			Body:         body,
		})
}

// Consume 以手動 ack 模式訂閱隊列
func (r *RabbitMQ) Consume(queueName, consumer string) (<-chan amqp.Delivery, error) {
	if err := r.Channel.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}
	return r.Channel.Consume(
		queueName, // queue
		consumer,  // consumer
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
}
