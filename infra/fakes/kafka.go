package fakes

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"
)

type KafkaMessage struct {
	Topic string
	Key   string
	Value []byte
}

type FakeProducer struct {
	lock     sync.Mutex
	Messages []KafkaMessage
}

func (p *FakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	for _, m := range msgs {
		p.Messages = append(p.Messages, KafkaMessage{Topic: m.Topic, Key: string(m.Key), Value: m.Value})
	}
	return nil
}

func (p *FakeProducer) Close() error { return nil }
