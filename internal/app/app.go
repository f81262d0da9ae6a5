package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	httpapp "remotion_studio/internal/app/http"
	"remotion_studio/internal/config"
	"remotion_studio/internal/repository"
	"remotion_studio/internal/services/studio"
	"remotion_studio/internal/storage/localcache"
	httprouters "remotion_studio/internal/transport/http"
)

type App struct {
	HTTPServer *httpapp.Server
	Store      *studio.Store
	cache      localcache.Cache
	log        *slog.Logger
}

// New wires the REST client, the fallback cache and the state store behind
// the UI API.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	cache, err := localcache.Open(ctx, cfg.Cache, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	repo := repository.NewRepository(log, cfg.API.BaseURL, cfg.API.Timeout)

	store := studio.New(log, studio.Deps{
		Projects: repo.Projects,
		Scenes:   repo.Scenes,
		Cache:    cache,
	}, studio.ConfigFrom(cfg))

	routers := httprouters.NewRouter(log, store)
	server := httpapp.New(log, cfg.HTTP.Host, cfg.HTTP.Port, routers)
	server.BuildRouters()

	return &App{
		HTTPServer: server,
		Store:      store,
		cache:      cache,
		log:        log,
	}, nil
}

// Stop shuts the API down, flushes pending auto-saves and closes the cache.
func (a *App) Stop(ctx context.Context) error {
	var errs []error

	if err := a.HTTPServer.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := a.Store.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.cache.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
