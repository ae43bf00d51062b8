package rabbitmq

// Exchange имя обменника, через который идут все сообщения системы.
const Exchange = "notifications"

// Имена очередей и ключи маршрутизации.
const (
	QueueOverdue          = "notification.overdue"
	QueueAllocationEvents = "allocation.events"

	KeyWarning            = "warning"
	KeyOverdue            = "overdue"
	KeyAllocationCreated  = "allocation.created"
	KeyAllocationReturned = "allocation.returned"
)

// QueueConfig описывает очередь и ключи, по которым она получает сообщения.
type QueueConfig struct {
	QueueName   string
	RoutingKeys []string
}

// GetNotificationQueues возвращает топологию очередей уведомлений и доменных событий.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueOverdue, RoutingKeys: []string{KeyWarning, KeyOverdue}},
		{QueueName: QueueAllocationEvents, RoutingKeys: []string{KeyAllocationCreated, KeyAllocationReturned}},
	}
}
