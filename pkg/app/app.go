package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/run"
)

// App runs a group of services until the first one returns, then stops the rest.
type App struct {
	services []named
	runner   *run.Group
	log      *slog.Logger
}

type named struct {
	name    string
	service Service
}

func NewApp(log *slog.Logger) *App {
	return &App{
		services: make([]named, 0),
		runner:   &run.Group{},
		log:      log,
	}
}

func (a *App) WithService(name string, s Service) *App {
	a.services = append(a.services, named{name: name, service: s})
	return a
}

// Run returns the error of the service that stopped the group.
func (a *App) Run(ctx context.Context) error {
	for _, s := range a.services {
		a.runner.Add(a.actor(ctx, s))
	}

	a.log.Info("app started", "services", len(a.services))
	return a.runner.Run()
}

func (a *App) actor(ctx context.Context, s named) (func() error, func(err error)) {
	ctx, cancel := context.WithCancelCause(ctx)

	return func() error {
			err := s.service.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("service stopped", "service", s.name, "err", err)
			} else {
				a.log.Info("service stopped", "service", s.name)
			}
			return err
		}, func(err error) {
			cancel(err)
		}
}
