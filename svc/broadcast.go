package svc

import (
	"slices"
	"sync"
)

const MaxSubscribeMessages = 10

// ProgressBroadcaster fans retrieval events out to live subscribers, typically the
// progress-stream endpoint. slow subscribers drop messages rather than block the
// retrieval flow.
type ProgressBroadcaster struct {
	lock        sync.Mutex
	subscribers []subscriber
}

type subscriber struct {
	ch     chan string
	stages []string
}

func (b *ProgressBroadcaster) Broadcast(stage string, msg string) {
	b.lock.Lock()
	for _, sub := range b.subscribers {
		if len(sub.stages) > 0 && !slices.Contains(sub.stages, stage) {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			// drop if the subscriber is behind by `MaxSubscribeMessages` messages
		}
	}
	b.lock.Unlock()
}

// Subscribe registers for the given stages; an empty list means all stages.
func (b *ProgressBroadcaster) Subscribe(stages []string) chan string {
	ch := make(chan string, MaxSubscribeMessages)

	b.lock.Lock()
	b.subscribers = append(b.subscribers, subscriber{ch: ch, stages: stages})
	b.lock.Unlock()

	return ch
}

func (b *ProgressBroadcaster) Unsubscribe(removeCh chan string) {
	b.lock.Lock()
	for i, sub := range b.subscribers {
		if sub.ch == removeCh {
			// signify no more messages will be sent
			close(sub.ch)
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			break
		}
	}
	b.lock.Unlock()
}
