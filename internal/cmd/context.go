package cmd

import (
	"context"

	"github.com/jmgilman/actionbar/internal/config"
)

type contextKey string

const (
	configKey contextKey = "config"
	loaderKey contextKey = "loader"
	appKey    contextKey = "app"
)

// WithConfig adds the config to the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// ConfigFromContext retrieves the config from context.
func ConfigFromContext(ctx context.Context) *config.Config {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok {
		return nil
	}
	return cfg
}

// WithLoader adds the config loader to the context.
func WithLoader(ctx context.Context, loader *config.Loader) context.Context {
	return context.WithValue(ctx, loaderKey, loader)
}

// LoaderFromContext retrieves the config loader from context.
func LoaderFromContext(ctx context.Context) *config.Loader {
	loader, ok := ctx.Value(loaderKey).(*config.Loader)
	if !ok {
		return nil
	}
	return loader
}

// WithApp adds the application graph to the context.
func WithApp(ctx context.Context, a *App) context.Context {
	return context.WithValue(ctx, appKey, a)
}

// AppFromContext retrieves the application graph from context.
func AppFromContext(ctx context.Context) *App {
	a, ok := ctx.Value(appKey).(*App)
	if !ok {
		return nil
	}
	return a
}
