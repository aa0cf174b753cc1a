package serverapp

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"graphql-eager/internal/config"
	"graphql-eager/internal/dbexec"
	"graphql-eager/internal/directory"
	"graphql-eager/internal/sqlload"

	"github.com/DATA-DOG/go-sqlmock"
	_ "modernc.org/sqlite"
)

func sqliteConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			GraphQLMaxDepth:    4,
			HealthCheckTimeout: time.Second,
		},
		Eager: config.EagerConfig{
			MaxConcurrency: 1,
			MaxInClause:    2,
		},
		Directory: config.DirectoryConfig{
			Migrate:    true,
			SeedSample: true,
		},
	}
}

// newSQLiteRouter builds the full /graphql stack over an in-memory SQLite
// directory seeded with the sample dataset.
func newSQLiteRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	executor := dbexec.NewStandardExecutor(db)
	tables := directory.NewTables("")
	if err := prepareDirectory(ctx, cfg, testLogger(), executor, tables); err != nil {
		t.Fatalf("prepare directory: %v", err)
	}

	registry := directory.NewRegistry(sqlload.Source{Executor: executor, MaxInClause: cfg.Eager.MaxInClause}, tables)
	schema, err := directory.NewSchema(registry)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}

	graphqlHandler := buildGraphQLHandler(cfg, testLogger(), schema, nil, executor)
	return buildRouter(cfg, testLogger(), db, graphqlHandler, false)
}

func postQuery(t *testing.T, h http.Handler, query string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]any{"query": query})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGraphQLHandler_LoadsNestedRelations(t *testing.T) {
	router := newSQLiteRouter(t, sqliteConfig())

	rec := postQuery(t, router, `{ countries { name users(onlyAdmins: true) { name } } }`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Data struct {
			Countries []struct {
				Name  string `json:"name"`
				Users []struct {
					Name string `json:"name"`
				} `json:"users"`
			} `json:"countries"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", payload.Errors)
	}

	got := map[string][]string{}
	for _, country := range payload.Data.Countries {
		names := []string{}
		for _, u := range country.Users {
			names = append(names, u.Name)
		}
		got[country.Name] = names
	}
	want := map[string][]string{
		"Atlantis": {"Ada"},
		"Borduria": {"Dev"},
		"Cascadia": {},
	}
	for country, names := range want {
		if strings.Join(got[country], ",") != strings.Join(names, ",") {
			t.Fatalf("country %s: expected users %v, got %v", country, names, got[country])
		}
	}
}

func TestGraphQLHandler_RejectsDeepQueries(t *testing.T) {
	cfg := sqliteConfig()
	cfg.Server.GraphQLMaxDepth = 2
	router := newSQLiteRouter(t, cfg)

	rec := postQuery(t, router, `{ users { manager { manager { name } } } }`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "exceeds the maximum of 2") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRouter_RootRedirectsAndMetricsDisabled(t *testing.T) {
	router := newSQLiteRouter(t, sqliteConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/graphql" {
		t.Fatalf("expected redirect to /graphql, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected /metrics to be absent, got %d", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantBody   string
	}{
		{name: "healthy", wantStatus: http.StatusOK, wantBody: `"status":"healthy"`},
		{name: "unhealthy", pingErr: errors.New("connection refused"), wantStatus: http.StatusServiceUnavailable, wantBody: `"status":"unhealthy"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
			if err != nil {
				t.Fatalf("sqlmock: %v", err)
			}
			defer db.Close()

			expect := mock.ExpectPing()
			if tt.pingErr != nil {
				expect.WillReturnError(tt.pingErr)
			}

			rec := httptest.NewRecorder()
			healthHandler(db, time.Second)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Fatalf("expected body to contain %s, got %s", tt.wantBody, rec.Body.String())
			}
			if strings.Contains(rec.Body.String(), "connection refused") {
				t.Fatalf("driver error leaked into body: %s", rec.Body.String())
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestObservabilityConfig(t *testing.T) {
	cfg := &config.Config{
		Observability: config.ObservabilityConfig{
			ServiceName:      "graphql-eager",
			ServiceVersion:   "1.2.3",
			Environment:      "test",
			TraceSampleRatio: 0.25,
		},
	}
	otlp := config.OTLPConfig{
		Endpoint:         "collector:4318",
		Protocol:         "http/protobuf",
		Insecure:         true,
		Headers:          map[string]string{"x-team": "eager"},
		Timeout:          5 * time.Second,
		Compression:      "gzip",
		RetryEnabled:     true,
		RetryMaxAttempts: 3,
	}

	got := observabilityConfig(cfg, otlp)
	if got.ServiceName != "graphql-eager" || got.ServiceVersion != "1.2.3" || got.Environment != "test" {
		t.Fatalf("unexpected service fields: %+v", got)
	}
	if got.TraceSampleRatio != 0.25 {
		t.Fatalf("expected sample ratio 0.25, got %v", got.TraceSampleRatio)
	}
	exp := got.Exporter
	if exp.Endpoint != otlp.Endpoint || exp.Protocol != otlp.Protocol || !exp.Insecure {
		t.Fatalf("unexpected exporter endpoint fields: %+v", exp)
	}
	if exp.Headers["x-team"] != "eager" || exp.Timeout != 5*time.Second || exp.Compression != "gzip" {
		t.Fatalf("unexpected exporter transport fields: %+v", exp)
	}
	if !exp.RetryEnabled || exp.RetryMaxAttempts != 3 {
		t.Fatalf("unexpected retry fields: %+v", exp)
	}
}

func TestWaitForDatabase_ZeroTimeoutPingsOnce(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("down"))

	cfg := &config.Config{}
	if err := waitForDatabase(context.Background(), cfg, testLogger(), db); err == nil {
		t.Fatalf("expected ping error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWaitForDatabase_RetriesUntilReady(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("starting"))
	mock.ExpectPing()

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			ConnectionTimeout:       time.Second,
			ConnectionRetryInterval: time.Millisecond,
		},
	}
	if err := waitForDatabase(context.Background(), cfg, testLogger(), db); err != nil {
		t.Fatalf("expected database to become ready: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
