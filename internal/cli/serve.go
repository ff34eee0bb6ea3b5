package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chromamind-service/internal/app"
	"chromamind-service/internal/config"
	"chromamind-service/internal/domain"
	"chromamind-service/internal/infra/memory"
	pginfra "chromamind-service/internal/infra/postgres"
	redisinfra "chromamind-service/internal/infra/redis"
	transport "chromamind-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewServeCmd builds the CLI subcommand to start the central service.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the central submission service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath, *port)
		},
	}
}

func runServe(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	redisClient := newRedisClient(cfg)
	catalogTTL := config.Duration(cfg.Catalog.TTL, 10*time.Minute)

	var loader memory.CatalogLoader = memory.NewStaticCatalogLoader(memory.DefaultCatalog())
	if pool != nil {
		loader = &fallbackCatalogLoader{primary: pginfra.NewCatalogLoader(pool, cfg.Catalog.ID)}
	}

	var catalogRepo app.CatalogRepository
	if redisClient != nil {
		catalogRepo = redisinfra.NewCatalogRepository(redisClient, loader, cfg.Catalog.ID, catalogTTL)
	} else {
		catalogRepo = memory.NewCatalogRepository(loader, catalogTTL)
	}

	var store app.SubmissionRepository
	if pool != nil {
		store = pginfra.NewSubmissionRepository(pool)
	} else {
		log.Printf("no postgres url configured, using in-memory submission store")
		store = memory.NewSubmissionRepository()
	}

	service := app.NewSubmissionService(store, catalogRepo)
	handler := transport.NewAPIHandler(service, memory.DefaultColorProfiles(), cfg.Server.PageLimit)

	mux := http.NewServeMux()
	handler.Register(mux)

	return runHTTP(ctx, finalPort(portFlag, cfg), "central service", mux)
}

// fallbackCatalogLoader serves the embedded catalog when the database has no
// catalog row yet, so a fresh deployment scores out of the box.
type fallbackCatalogLoader struct {
	primary memory.CatalogLoader
}

func (l *fallbackCatalogLoader) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	catalog, err := l.primary.LoadCatalog(ctx)
	if errors.Is(err, domain.ErrCatalogNotFound) {
		return memory.DefaultCatalog(), nil
	}
	return catalog, err
}

func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func finalPort(portFlag string, cfg config.Config) string {
	if portFlag != "" {
		return portFlag
	}
	if cfg.Server.Port != "" {
		return cfg.Server.Port
	}
	return "8080"
}

// runHTTP serves mux on the port until SIGINT/SIGTERM or context cancel, then
// shuts down gracefully.
func runHTTP(ctx context.Context, port, name string, mux *http.ServeMux) error {
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting %s on :%s", name, port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
