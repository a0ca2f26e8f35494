package internal

import (
	"log/slog"

	"github.com/starford/lexikon/internal/registerservice"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logger    *slog.Logger
	publisher registerservice.Publisher
	noIndex   bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the default JSON logger on stdout. The MCP command
// needs this because stdout carries the protocol.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}

// WithoutIndex skips opening the SQLite index; lookups then scan the
// registers in memory.
func WithoutIndex() Option {
	return func(a *application) {
		a.noIndex = true
	}
}

func withPublisher(p registerservice.Publisher) Option {
	return func(a *application) {
		a.publisher = p
	}
}
