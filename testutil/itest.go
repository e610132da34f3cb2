package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	testcontainerskafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const (
	KafkaContTag = "confluentinc/confluent-local:7.4.0"
	TestGroupID  = "bankops-test-group"
)

var setupKafkaMu sync.Mutex

var kafkaCont *testcontainerskafka.KafkaContainer

// SetupKafkaITest starts (once) a kafka container shared by all integration tests
// and returns its brokers. gated behind BANKOPS_ITEST so the unit suite stays free
// of docker requirements.
func SetupKafkaITest(t *testing.T) []string {
	if os.Getenv("BANKOPS_ITEST") == "" {
		t.Skip("set BANKOPS_ITEST=1 to run infra integration tests")
	}

	// global lock for the entire initialization phase.
	// this prevents multiple containers for the same infra from being spawned.
	setupKafkaMu.Lock()
	defer setupKafkaMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if kafkaCont == nil {
		start := time.Now()
		cont, err := testcontainerskafka.Run(ctx, KafkaContTag, testcontainerskafka.WithClusterID(TestGroupID))
		if err != nil {
			t.Fatalf("failed to start kafka container: %s", err)
		}
		kafkaCont = cont
		t.Logf("finished starting kafka container in %v", time.Since(start))
	}

	brokers, err := kafkaCont.Brokers(ctx)
	if err != nil {
		t.Fatalf("failed to get kafka brokers: %s", err)
	}
	t.Logf("kafka brokers: %v", brokers)
	return brokers
}

// CreateTopic provisions a uniquely named topic for one test.
func CreateTopic(t *testing.T, brokers []string, prefix string) string {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		t.Fatalf("failed to connect to kafka: %s", err)
	}
	defer conn.Close()

	topic := fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	if err := conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}); err != nil {
		t.Fatalf("failed to create topic '%s': %s", topic, err)
	}
	return topic
}
