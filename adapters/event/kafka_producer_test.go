package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/profile-editor/internal/application/service"
	"github.com/khoahotran/profile-editor/internal/config"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

func TestNewKafkaProducerClient_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaProducerClient(config.Config{}, logger.NewNopLogger())
	assert.Error(t, err)
}

func TestDecodeProfileEvent(t *testing.T) {
	change := service.ProfileChange{
		OwnerID:    "u1",
		Field:      "skills",
		ChangeType: service.ChangeCreated,
		ItemKey:    "Go",
		OccurredAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	value, err := json.Marshal(ProfileEventPayload{EventType: "skills.created", ProfileChange: change})
	require.NoError(t, err)

	got, err := DecodeProfileEvent(kafka.Message{Key: []byte("u1"), Value: value})

	require.NoError(t, err)
	assert.Equal(t, "skills.created", got.EventType)
	assert.Equal(t, change, got.ProfileChange)
}

func TestDecodeProfileEvent_FallsBackToKey(t *testing.T) {
	got, err := DecodeProfileEvent(kafka.Message{Key: []byte("u9"), Value: []byte(`{"field":"bio"}`)})

	require.NoError(t, err)
	assert.Equal(t, "u9", got.OwnerID)
}

func TestDecodeProfileEvent_Garbage(t *testing.T) {
	_, err := DecodeProfileEvent(kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
