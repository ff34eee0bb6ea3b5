package cli

import (
	"context"
	"log"
	"net/http"
	"time"

	"chromamind-service/internal/app"
	"chromamind-service/internal/config"
	"chromamind-service/internal/gateway"
	"chromamind-service/internal/infra/memory"
	redisinfra "chromamind-service/internal/infra/redis"
	transport "chromamind-service/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewAgentCmd builds the CLI subcommand to start the offline-first edge
// agent: the same API surface as the central service, backed by a local
// ledger and background reconciliation.
func NewAgentCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "agent",
		Short: "Start the offline-first edge agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), *configPath, *port)
		},
	}
}

func runAgent(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	remoteURL := cfg.Agent.RemoteURL
	if remoteURL == "" {
		remoteURL = "http://localhost:8080"
	}
	timeout := config.Duration(cfg.Agent.Timeout, 5*time.Second)
	interval := config.Duration(cfg.Agent.SyncInterval, 30*time.Second)
	pageLimit := cfg.Server.PageLimit
	if pageLimit <= 0 {
		pageLimit = 200
	}

	var ledger app.Ledger
	if client := newRedisClient(cfg); client != nil {
		ledger = redisinfra.NewLedger(client, cfg.Agent.LedgerPrefix)
	} else {
		log.Printf("no redis addr configured, ledger will not survive restarts")
		ledger = memory.NewLedger()
	}

	gw := gateway.New(remoteURL, timeout)
	reconciler := app.NewReconciler(ledger, gw, interval, pageLimit)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go reconciler.Run(runCtx)
	reconciler.Kick() // drain anything left over from a previous run

	catalogTTL := config.Duration(cfg.Catalog.TTL, 10*time.Minute)
	catalogRepo := memory.NewCatalogRepository(
		memory.NewStaticCatalogLoader(memory.DefaultCatalog()), catalogTTL)

	agentHandler := transport.NewAgentHandler(reconciler, catalogRepo)
	updatesHandler := transport.NewUpdatesHandler(reconciler)

	mux := http.NewServeMux()
	agentHandler.Register(mux)
	mux.HandleFunc("GET /ws/updates", updatesHandler.ServeWS)

	return runHTTP(runCtx, finalPort(portFlag, cfg), "edge agent", mux)
}
