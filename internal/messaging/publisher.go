package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// TurnEventQueueName — очередь событий ходов для офлайн-потребителей
// (аналитика, прогрев аудио).
const TurnEventQueueName = "story_turn_events"

// TurnEventPayload описывает один завершенный ход истории.
type TurnEventPayload struct {
	EventType    string `json:"event_type"` // story_started | story_continued | story_completed
	StoryID      int64  `json:"story_id"`
	SegmentOrder int    `json:"segment_order"`
	ChildName    string `json:"child_name"`
	IsConclusion bool   `json:"is_conclusion"`
	OccurredAt   string `json:"occurred_at"`
}

// TurnEventPublisher публикует события ходов. Публикация best-effort:
// оркестратор логирует отказ и не прерывает ход.
type TurnEventPublisher interface {
	PublishTurnEvent(ctx context.Context, payload TurnEventPayload) error
}

type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQTurnEventPublisher создает паблишер событий ходов.
// Очередь объявляется здесь, durable, чтобы не зависеть от порядка
// запуска потребителей.
func NewRabbitMQTurnEventPublisher(conn *amqp.Connection, logger *zap.Logger) (TurnEventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("turn event publisher: не удалось открыть канал: %w", err)
	}

	_, err = ch.QueueDeclare(
		TurnEventQueueName, // name
		true,               // durable
		false,              // delete when unused
		false,              // exclusive
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("turn event publisher: не удалось объявить очередь '%s': %w", TurnEventQueueName, err)
	}

	logger.Info("Turn event queue declared", zap.String("queue", TurnEventQueueName))
	return &rabbitMQPublisher{
		channel:   ch,
		queueName: TurnEventQueueName,
		logger:    logger.Named("TurnEventPublisher"),
	}, nil
}

// PublishTurnEvent публикует событие хода.
func (p *rabbitMQPublisher) PublishTurnEvent(ctx context.Context, payload TurnEventPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации события хода для истории %d: %w", payload.StoryID, err)
	}
	return p.publishMessage(ctx, body)
}

// publishMessage публикует сообщение с retry до 3 раз.
func (p *rabbitMQPublisher) publishMessage(ctx context.Context, body []byte) error {
	if p.channel == nil {
		return errors.New("канал RabbitMQ не инициализирован")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",          // exchange (default)
			p.queueName, // routing key
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
				Timestamp:    time.Now(),
				AppId:        "storyteller-server",
			},
		)
		if err == nil {
			break
		}
		p.logger.Warn("Failed to publish message, retrying",
			zap.Int("attempt", attempt),
			zap.String("queue", p.queueName),
			zap.Error(err))
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	if err != nil {
		return fmt.Errorf("ошибка публикации в очередь %s после retries: %w", p.queueName, err)
	}
	return nil
}
