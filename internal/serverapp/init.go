package serverapp

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"graphql-eager/internal/dbexec"
	"graphql-eager/internal/directory"
	"graphql-eager/internal/observability"
	"graphql-eager/internal/sqlload"
)

// telemetry holds what initTelemetry hands to the later phases.
type telemetry struct {
	metrics        *observability.GraphQLMetrics
	metricsEnabled bool
}

// Init opens the database, prepares the directory tables and builds the
// HTTP server. Calling it again after success is a no-op. On failure every
// resource acquired so far is released.
func (a *App) Init(ctx context.Context) error {
	a.stateMu.Lock()
	done := a.initialized
	a.stateMu.Unlock()
	if done {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var cleanup cleanupStack
	ok := false
	defer func() {
		if !ok {
			_ = cleanup.run(context.Background(), a.logger)
		}
	}()

	tel, err := a.initTelemetry(ctx, &cleanup)
	if err != nil {
		return err
	}
	db, executor, err := a.openDatabase(ctx, &cleanup)
	if err != nil {
		return err
	}
	handler, err := a.buildHTTPHandler(ctx, tel, db, executor)
	if err != nil {
		return err
	}

	serverAddr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	srv := buildServer(a.cfg, handler, serverAddr)
	cleanup.push("HTTP server", srv.Shutdown)

	a.stateMu.Lock()
	a.handler = handler
	a.serverAddr = serverAddr
	a.srv = srv
	a.cleanup = cleanup
	a.initialized = true
	a.stateMu.Unlock()

	ok = true
	return nil
}

func (a *App) initTelemetry(ctx context.Context, cleanup *cleanupStack) (telemetry, error) {
	if a.loggerProvider != nil {
		cleanup.push("logger provider", func(ctx context.Context) error {
			return a.loggerProvider.Shutdown(ctx, a.logger.Logger)
		})
	}

	meterProvider, metrics, err := initMetrics(a.cfg, a.logger)
	if err != nil {
		return telemetry{}, fmt.Errorf("failed to initialize OpenTelemetry metrics: %w", err)
	}
	if meterProvider != nil {
		cleanup.push("meter provider", func(ctx context.Context) error {
			return meterProvider.Shutdown(ctx, a.logger.Logger)
		})
	}

	tracerProvider, err := initTracing(ctx, a.cfg, a.logger)
	if err != nil {
		return telemetry{}, fmt.Errorf("failed to initialize OpenTelemetry tracing: %w", err)
	}
	if tracerProvider != nil {
		cleanup.push("tracer provider", func(ctx context.Context) error {
			return tracerProvider.Shutdown(ctx, a.logger.Logger)
		})
	}

	return telemetry{metrics: metrics, metricsEnabled: meterProvider != nil}, nil
}

func (a *App) openDatabase(ctx context.Context, cleanup *cleanupStack) (*sql.DB, *dbexec.StandardExecutor, error) {
	a.logger.Info("connecting to database",
		slog.String("host", a.cfg.Database.Host),
		slog.Int("port", a.cfg.Database.Port),
		slog.String("database", a.databaseName),
		slog.Bool("dsn_present", a.dsnPresent),
	)

	db, statsReg, err := connectDB(a.cfg, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	cleanup.push("database", func(context.Context) error {
		if statsReg != nil {
			if err := statsReg.Unregister(); err != nil {
				a.logger.Warn("failed to unregister DB stats metrics", slog.String("error", err.Error()))
			}
		}
		return db.Close()
	})

	if err := configureDatabase(ctx, a.cfg, a.logger, db, a.databaseName); err != nil {
		return nil, nil, fmt.Errorf("failed to verify database connection: %w", err)
	}
	return db, dbexec.NewStandardExecutor(db), nil
}

// buildHTTPHandler prepares the directory tables, builds the schema over the
// eager registry and returns the instrumented router.
func (a *App) buildHTTPHandler(ctx context.Context, tel telemetry, db *sql.DB, executor *dbexec.StandardExecutor) (http.Handler, error) {
	tables := directory.NewTables(a.databaseName)
	if err := prepareDirectory(ctx, a.cfg, a.logger, executor, tables); err != nil {
		return nil, fmt.Errorf("failed to prepare directory tables: %w", err)
	}

	registry := directory.NewRegistry(sqlload.Source{
		Executor:    executor,
		MaxInClause: a.cfg.Eager.MaxInClause,
	}, tables)
	schema, err := directory.NewSchema(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to build GraphQL schema: %w", err)
	}

	graphqlHandler := buildGraphQLHandler(a.cfg, a.logger, schema, tel.metrics, executor)
	mux := buildRouter(a.cfg, a.logger, db, graphqlHandler, tel.metricsEnabled)
	return wrapHTTPHandler(a.cfg, a.logger, mux), nil
}
