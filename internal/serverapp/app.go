// Package serverapp wires configuration, the database, the directory schema,
// and the HTTP server into one lifecycle.
package serverapp

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"graphql-eager/internal/config"
	"graphql-eager/internal/logging"
	"graphql-eager/internal/observability"
)

// App owns runtime resources for the graphql-eager server lifecycle.
type App struct {
	cfg            *config.Config
	logger         *logging.Logger
	loggerProvider *observability.LoggerProvider

	databaseName string
	dsnPresent   bool

	handler    http.Handler
	serverAddr string
	srv        *http.Server
	cleanup    cleanupStack

	stateMu      sync.Mutex
	initialized  bool
	started      bool
	serverErrors chan error

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates an App lifecycle wrapper.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &App{
		cfg:          cfg,
		logger:       logger,
		databaseName: cfg.Database.DatabaseName(),
		dsnPresent:   strings.TrimSpace(cfg.Database.ConnectionString) != "",
	}, nil
}

// AttachLoggerProvider registers an optional logger provider for shutdown cleanup.
func (a *App) AttachLoggerProvider(provider *observability.LoggerProvider) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.loggerProvider = provider
}

// Handler returns the root HTTP handler once Init has completed.
func (a *App) Handler() http.Handler {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.handler
}
