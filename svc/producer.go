package svc

import (
	"encoding/json"
	"log/slog"
	"time"

	"bankops/adapter"

	"github.com/segmentio/kafka-go"
)

// produceEvent emits one audit event and mirrors it to the in-process broadcaster
// for live progress streams. a nil producer disables kafka emission entirely.
func (app *App) produceEvent(ctx AppContext, a adapter.Adapter, event RetrievalEvent) {
	event.BankID = a.BankID()
	event.Timestamp = time.Now()
	if trace, ok := ctx.Value("trace").(string); ok {
		event.TraceID = trace
	}

	msgBytes, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal retrieval event", "event", event, "err", err)
		return
	}

	if app.ProgressBroadcaster != nil {
		app.Broadcast(event.Stage, string(msgBytes))
	}

	if app.Producer == nil {
		return
	}
	msg := kafka.Message{
		Topic: app.EventTopic,
		Key:   []byte(event.BankID),
		Value: msgBytes,
	}
	if err := app.Producer.WriteMessages(ctx, msg); err != nil {
		// events are an audit trail, not the source of truth. log and move on.
		slog.ErrorContext(ctx, "failed to write retrieval event to kafka", "topic", app.EventTopic, "err", err)
	}
}
