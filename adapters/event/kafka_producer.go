package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/internal/application/service"
	"github.com/khoahotran/profile-editor/internal/config"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

const (
	TopicProfileEvents = "profile.events"
)

// ProfileEventPayload is the message value written to TopicProfileEvents.
type ProfileEventPayload struct {
	EventType string `json:"event_type"`
	service.ProfileChange
}

type KafkaProducerClient struct {
	ProfileEventsWriter *kafka.Writer
	logger              logger.Logger
}

func NewKafkaProducerClient(cfg config.Config, log logger.Logger) (*KafkaProducerClient, error) {
	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}

	// writer 'profile.events'
	profileWriter := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicProfileEvents,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}

	log.Info("Initialize Kafka Producers successfully.", zap.Strings("brokers", brokers))

	return &KafkaProducerClient{
		ProfileEventsWriter: profileWriter,
		logger:              log,
	}, nil
}

// PublishProfileChange keys the message by owner so one user's changes stay ordered.
func (c *KafkaProducerClient) PublishProfileChange(ctx context.Context, change service.ProfileChange) error {
	payload := ProfileEventPayload{
		EventType:     fmt.Sprintf("%s.%s", change.Field, change.ChangeType),
		ProfileChange: change,
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal profile event: %w", err)
	}

	err = c.ProfileEventsWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(change.OwnerID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write profile event: %w", err)
	}
	return nil
}

func (c *KafkaProducerClient) Close() {
	if c.ProfileEventsWriter != nil {
		if err := c.ProfileEventsWriter.Close(); err != nil {
			c.logger.Warn("Failed to close profile events writer", zap.Error(err))
		}
	}
	c.logger.Info("Closed Kafka Producers")
}

// DecodeProfileEvent parses a message read from TopicProfileEvents.
func DecodeProfileEvent(msg kafka.Message) (ProfileEventPayload, error) {
	var payload ProfileEventPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal profile event: %w", err)
	}
	if payload.OwnerID == "" {
		payload.OwnerID = string(msg.Key)
	}
	return payload, nil
}
