package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"chromamind-service/internal/app"
	"chromamind-service/internal/domain"
	"chromamind-service/internal/gateway"
	"chromamind-service/internal/infra/memory"
	"chromamind-service/internal/infra/postgres"
	pgmigrations "chromamind-service/internal/infra/postgres/migrations"
	infraredis "chromamind-service/internal/infra/redis"
	transporthttp "chromamind-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// The full offline-first round trip: an agent with a Redis ledger records a
// submission while the Postgres-backed central service is unreachable, then a
// retry sweep drains the ledger once the central service is back.
func TestOfflineSubmissionSyncsEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateAndSeedCatalog(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	// Central service: Postgres store, catalog cached in Redis.
	store := postgres.NewSubmissionRepository(pool)
	catalogRepo := infraredis.NewCatalogRepository(
		redisClient, postgres.NewCatalogLoader(pool, "default"), "default", 5*time.Minute)
	service := app.NewSubmissionService(store, catalogRepo)
	handler := transporthttp.NewAPIHandler(service, memory.DefaultColorProfiles(), 200)
	centralMux := http.NewServeMux()
	handler.Register(centralMux)

	down := &atomic.Bool{}
	central := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			panic(http.ErrAbortHandler)
		}
		centralMux.ServeHTTP(w, r)
	}))
	defer central.Close()

	// Edge agent: Redis ledger, HTTP gateway to the central service.
	ledger := infraredis.NewLedger(redisClient, "chromamind:ledger")
	reconciler := app.NewReconciler(ledger, gateway.New(central.URL, time.Second), time.Hour, 200)

	catalog := memory.DefaultCatalog()
	answers := app.NormalizeAnswers([]string{
		"Take charge and assign tasks",
		"Sketching ideas for a side project",
	})
	breakdown, assigned := app.Score(answers, catalog)
	if assigned != "red" {
		t.Fatalf("expected red locally, got %s", assigned)
	}

	down.Store(true)
	reconciler.RecordNew(ctx, domain.Submission{
		SessionID:      "edge-1",
		Name:           "Alice",
		Age:            30,
		Timestamp:      time.Now().UTC(),
		RawAnswers:     answers,
		ScoreBreakdown: breakdown,
		AssignedColor:  assigned,
	})

	history := reconciler.MergedView(ctx)
	if history.ServerCount != 0 || history.LocalCount != 1 {
		t.Fatalf("expected 0 server / 1 local while offline, got %d/%d", history.ServerCount, history.LocalCount)
	}
	if len(history.Items) != 1 || history.Items[0].SessionID != "edge-1" {
		t.Fatalf("expected ledger entry in merged view, got %+v", history.Items)
	}

	down.Store(false)
	reconciler.RetrySweep(ctx)

	history = reconciler.MergedView(ctx)
	if history.ServerCount != 1 || history.LocalCount != 0 {
		t.Fatalf("expected 1 server / 0 local after sweep, got %d/%d", history.ServerCount, history.LocalCount)
	}
	if history.Items[0].SessionID != "edge-1" || history.Items[0].AssignedColor != "red" {
		t.Fatalf("expected central rescoring to agree, got %+v", history.Items[0])
	}

	// The central copy must be durable in Postgres.
	stored, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("list postgres: %v", err)
	}
	if len(stored) != 1 || stored[0].SessionID != "edge-1" || stored[0].ScoreBreakdown["red"] != 2 {
		t.Fatalf("unexpected postgres rows: %+v", stored)
	}
}

func migrateAndSeedCatalog(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(memory.DefaultCatalog())
	if err != nil {
		t.Fatalf("marshal catalog: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO catalogs (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, "default", string(data)); err != nil {
		t.Fatalf("insert catalog: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "chroma", "POSTGRES_PASSWORD": "chromapass", "POSTGRES_DB": "chromadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://chroma:chromapass@%s:%s/chromadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
