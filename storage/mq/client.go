package mq

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"PillSync/config"
)

var (
	conn     *amqp.Connection
	connOnce sync.Once
	connErr  error
)

// 通知扇出使用的拓扑
const (
	NotifyExchange         = "notify.topic"
	MissedReminderQueue    = "notify.missed_reminder"
	DueReminderQueue       = "notify.reminder_due"
	MissedReminderRouteKey = "notify.missed_reminder"
	DueReminderRouteKey    = "notify.reminder_due"
)

func Init() error {
	connOnce.Do(func() {
		url := config.Cfg.GetRabbitMQURL()

		conn, connErr = amqp.Dial(url)
		if connErr != nil {
			return
		}

		connErr = declareTopology()
	})

	return connErr
}

// Connection 返回共享连接，消费者基于它各自开 channel
func Connection() *amqp.Connection {
	return conn
}

func Close(ctx context.Context) error {
	if conn == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// declareTopology 声明交换机和队列，幂等
func declareTopology() error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		NotifyExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return err
	}

	queues := map[string]string{
		MissedReminderQueue: MissedReminderRouteKey,
		DueReminderQueue:    DueReminderRouteKey,
	}

	for queue, routeKey := range queues {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return err
		}

		if err := ch.QueueBind(queue, routeKey, NotifyExchange, false, nil); err != nil {
			return err
		}
	}

	return nil
}
