package svc

import (
	"context"

	"bankops/adapter"
	"bankops/infra"
)

type App struct {
	Registry   *adapter.Registry
	Producer   infra.Producer
	EventTopic string
	*ProgressBroadcaster
}

func MakeApp(config infra.Config, registry *adapter.Registry) *App {
	app := &App{
		Registry:            registry,
		EventTopic:          config.EventTopic,
		ProgressBroadcaster: &ProgressBroadcaster{},
	}
	if len(config.KafkaBrokers) > 0 {
		app.Producer = infra.MakeKafkaProducer(config)
	}
	return app
}

func (app *App) Close() error {
	if app.Producer == nil {
		return nil
	}
	return app.Producer.Close()
}

// AppContext threads the app through the retrieval call chain alongside the request
// context, the same value works for logging, events and cancellation.
type AppContext struct {
	context.Context
	*App
}
