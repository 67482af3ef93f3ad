package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"moviebooking/internal/shared/config"
	"moviebooking/pkg/logger"

	"github.com/IBM/sarama"
)

// Consumer reads booking events from a broker and hands them to the notification service
type Consumer interface {
	Start(ctx context.Context, numWorkers int) error
	Stop() error
}

// NewConsumer builds the consumer matching EVENTS_BROKER. It returns nil when no broker is configured.
func NewConsumer(cfg config.EventsConfig, service Service) (Consumer, error) {
	switch cfg.Broker {
	case "", "none":
		return nil, nil
	case "kafka":
		return NewKafkaConsumer(DefaultConsumerConfig(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopic), service)
	case "amqp", "rabbitmq":
		return NewAMQPConsumer(cfg.AMQPURL, cfg.AMQPQueue, service)
	default:
		return nil, fmt.Errorf("unknown events broker %q", cfg.Broker)
	}
}

type ConsumerConfig struct {
	Brokers              []string
	GroupID              string
	Topics               []string
	SessionTimeout       time.Duration
	Heartbeat            time.Duration
	MaxProcessingTime    time.Duration
	OffsetOldest         bool
	MaxRetries           int
	RetryBackoffDuration time.Duration
}

func DefaultConsumerConfig(brokers []string, groupID, topic string) *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:              brokers,
		GroupID:              groupID,
		Topics:               []string{topic},
		SessionTimeout:       30 * time.Second,
		Heartbeat:            3 * time.Second,
		MaxProcessingTime:    time.Minute,
		OffsetOldest:         false,
		MaxRetries:           3,
		RetryBackoffDuration: time.Second,
	}
}

type KafkaConsumer struct {
	consumerGroup sarama.ConsumerGroup
	config        *ConsumerConfig
	service       Service
	logger        *logger.Logger
	wg            sync.WaitGroup
	cancel        context.CancelFunc
}

func NewKafkaConsumer(cfg *ConsumerConfig, service Service) (*KafkaConsumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = cfg.SessionTimeout
	saramaConfig.Consumer.Group.Heartbeat.Interval = cfg.Heartbeat
	saramaConfig.Consumer.MaxProcessingTime = cfg.MaxProcessingTime
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second
	if cfg.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &KafkaConsumer{
		consumerGroup: consumerGroup,
		config:        cfg,
		service:       service,
		logger:        logger.GetDefault(),
	}, nil
}

func (kc *KafkaConsumer) Start(ctx context.Context, numWorkers int) error {
	ctx, kc.cancel = context.WithCancel(ctx)

	go func() {
		for err := range kc.consumerGroup.Errors() {
			kc.logger.Error("consumer group error", "error", err)
		}
	}()

	handler := &EventHandler{
		service:    kc.service,
		maxRetries: kc.config.MaxRetries,
		backoff:    kc.config.RetryBackoffDuration,
		logger:     kc.logger,
	}

	for i := 0; i < numWorkers; i++ {
		kc.wg.Add(1)
		go func(workerID int) {
			defer kc.wg.Done()
			for {
				if err := kc.consumerGroup.Consume(ctx, kc.config.Topics, handler); err != nil {
					kc.logger.Error("error consuming booking events", "worker", workerID, "error", err)
					time.Sleep(time.Second)
				}
				if ctx.Err() != nil {
					return
				}
			}
		}(i)
	}

	kc.logger.Info("booking event consumers started", "workers", numWorkers, "topics", kc.config.Topics)
	return nil
}

func (kc *KafkaConsumer) Stop() error {
	if kc.cancel != nil {
		kc.cancel()
	}
	kc.wg.Wait()
	if err := kc.consumerGroup.Close(); err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	return nil
}

// EventHandler implements sarama.ConsumerGroupHandler for booking events
type EventHandler struct {
	service    Service
	maxRetries int
	backoff    time.Duration
	logger     *logger.Logger
}

func (h *EventHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *EventHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *EventHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.Process(session.Context(), message.Value); err != nil {
				h.logger.Error("failed to process booking event",
					"topic", message.Topic,
					"partition", message.Partition,
					"offset", message.Offset,
					"error", err,
				)
				continue
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// Process decodes one event payload and dispatches it with retries
func (h *EventHandler) Process(ctx context.Context, payload []byte) error {
	event, err := ParseBookingEvent(payload)
	if err != nil {
		return fmt.Errorf("failed to unmarshal booking event: %w", err)
	}
	return h.executeWithRetry(ctx, event)
}

func (h *EventHandler) executeWithRetry(ctx context.Context, event *BookingEvent) error {
	var err error
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if err = h.service.HandleBookingEvent(ctx, event); err == nil {
			return nil
		}
		if attempt == h.maxRetries {
			break
		}

		// Exponential backoff
		delay := h.backoff * time.Duration(1<<attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("giving up on event %s after %d retries: %w", event.ID, h.maxRetries, err)
}
