package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeConfig_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("EVENT_TOPIC", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := MakeConfig()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, RetrievalEventTopic, cfg.EventTopic)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestMakeConfig_FromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("EVENT_TOPIC", "audit-events")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")

	cfg := MakeConfig()

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "audit-events", cfg.EventTopic)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
}
