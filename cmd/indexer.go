package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"dareme-cli/indexer"
	dareme_protocol "dareme-cli/solana"
	"dareme-cli/storage"
)

var indexerFlags struct {
	listen   string
	token    string
	apiToken string
	db       string
	poll     bool
}

var indexerCmd = &cobra.Command{
	Use:   "indexer",
	Short: "Run the off-chain dare indexer",
}

var indexerServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the webhook receiver and the dare API",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		return serveIndexer(cmd.Context(), indexerSettings(), logger)
	},
}

// indexerSettings applies the serve flags on top of cfg.
func indexerSettings() Config {
	c := cfg
	if indexerFlags.listen != "" {
		c.ListenAddr = indexerFlags.listen
	}
	if indexerFlags.token != "" {
		c.WebhookToken = indexerFlags.token
	}
	if indexerFlags.apiToken != "" {
		c.APIToken = indexerFlags.apiToken
	}
	if indexerFlags.db != "" {
		c.IndexerDB = indexerFlags.db
	}
	return c
}

func serveIndexer(ctx context.Context, c Config, logger *slog.Logger) error {
	if c.WebhookToken == "" {
		logger.Warn("no webhook token configured, every webhook delivery will be rejected", "env", envWebhookToken)
	}
	if c.APIToken == "" {
		logger.Warn("no api token configured, dare registration and notification writes will be rejected", "env", envAPIToken)
	}

	store, err := storage.OpenProjectionStore(c.IndexerDB)
	if err != nil {
		return fmt.Errorf("failed to open indexer database: %w", err)
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := indexer.NewMetrics(registry)

	reconciler := indexer.NewReconciler(store,
		indexer.WithLogger(logger),
		indexer.WithMetrics(metrics),
		indexer.WithProgramID(dareme_protocol.ProgramID),
	)
	server := indexer.NewServer(indexer.Config{
		Reconciler: reconciler,
		Store:      store,
		AuthToken:  c.WebhookToken,
		APIToken:   c.APIToken,
		Registry:   registry,
		Metrics:    metrics,
		Logger:     logger,
	})

	if indexerFlags.poll {
		client, err := newReadOnlyClient()
		if err != nil {
			return err
		}
		poller := indexer.NewPoller(client, reconciler, c.PollInterval, logger)
		go func() {
			if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("poller stopped", "err", err)
			}
		}()
		logger.Info("polling program history", "rpc", c.RpcEndpoint, "interval", c.PollInterval)
	}

	logger.Info("indexer starting", "db", c.IndexerDB, "program", dareme_protocol.ProgramID)
	return server.Serve(ctx, c.ListenAddr)
}

func init() {
	f := indexerServeCmd.Flags()
	f.StringVar(&indexerFlags.listen, "listen", "", "listen address (overrides "+envListenAddr+")")
	f.StringVar(&indexerFlags.token, "token", "", "Helius webhook auth token (overrides "+envWebhookToken+")")
	f.StringVar(&indexerFlags.apiToken, "api-token", "", "bearer token for the write API (overrides "+envAPIToken+")")
	f.StringVar(&indexerFlags.db, "db", "", "projection database path (overrides "+envIndexerDB+")")
	f.BoolVar(&indexerFlags.poll, "poll", false, "also poll RPC history for program events")

	indexerCmd.AddCommand(indexerServeCmd)
	rootCmd.AddCommand(indexerCmd)
}
