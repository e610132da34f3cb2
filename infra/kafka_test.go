package infra

import (
	"context"
	"testing"
	"time"

	"bankops/testutil"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaProducer_WriteAndReadBack(t *testing.T) {
	brokers := testutil.SetupKafkaITest(t)
	topic := testutil.CreateTopic(t, brokers, "retrieval-events")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	producer := MakeKafkaProducer(Config{KafkaBrokers: brokers, EventTopic: topic})
	defer producer.Close()

	err := producer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte("meridian"),
		Value: []byte(`{"stage":"download","bankId":"meridian"}`),
	})
	require.NoError(t, err)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: testutil.TestGroupID,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "meridian", string(msg.Key))
	assert.Contains(t, string(msg.Value), `"stage":"download"`)
}
