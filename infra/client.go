package infra

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type Config struct {
	// HTTPAddr is where the progress-stream endpoint listens.
	HTTPAddr string
	// KafkaBrokers is empty when audit events are disabled; the orchestrator then
	// runs with a nil producer and skips event emission.
	KafkaBrokers []string
	EventTopic   string
}

func MakeConfig() Config {
	cfg := Config{
		HTTPAddr:   os.Getenv("HTTP_ADDR"),
		EventTopic: os.Getenv("EVENT_TOPIC"),
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.EventTopic == "" {
		cfg.EventTopic = RetrievalEventTopic
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

type Producer interface {
	io.Closer
	WriteMessages(context.Context, ...kafka.Message) error
}

func MakeKafkaProducer(config Config) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(config.KafkaBrokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}
}
