// Command ocean is the single daemon binary, per spec.md §6 "CLI": open the
// persistent store, run migrations, start the indexer's tip-following loop,
// and serve health/ready/metrics over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/defich/ocean/internal/api"
	"github.com/defich/ocean/internal/cache"
	"github.com/defich/ocean/internal/config"
	"github.com/defich/ocean/internal/evmrpc"
	"github.com/defich/ocean/internal/indexer"
	"github.com/defich/ocean/internal/kv"
	"github.com/defich/ocean/internal/log"
	"github.com/defich/ocean/internal/migration"
	"github.com/defich/ocean/internal/query"
	"github.com/defich/ocean/internal/rpc"
	"github.com/defich/ocean/internal/schema"
	"github.com/defich/ocean/internal/trie"
)

var cfg config.Config
var pollInterval time.Duration

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ocean",
	Short: "Ocean - chain-indexing and query service",
	Long: `Ocean transforms a UTXO-plus-account blockchain node's linear block
stream into richly indexed secondary stores (blocks, transactions,
script-activity, masternodes, oracles, pool-swaps, vaults) plus a
block-trace/state-query interface for an embedded EVM.`,
	RunE: runDaemon,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&cfg.DataDir, "datadir", "", "data directory for the persistent store (required)")
	flags.StringVar(&cfg.RPCAddress, "rpcaddress", "", "upstream node JSON-RPC address (required)")
	flags.StringVar(&cfg.RPCUser, "user", "", "upstream node RPC username")
	flags.StringVar(&cfg.RPCPass, "pass", "", "upstream node RPC password")
	flags.StringVar(&cfg.BindAddress, "bind-address", "127.0.0.1:8080", "address to serve health/ready/metrics on")
	flags.StringVar(&cfg.EVMRPCAddress, "evmrpc-address", "127.0.0.1:8081", "address to serve the EVM-facing state-query gRPC interface on")
	flags.StringVar((*string)(&cfg.Network), "network", string(config.NetworkMainnet), "network: mainnet|testnet|regtest|devnet|changi")
	flags.DurationVar(&cfg.BenchFrequency, "bench-frequency", time.Minute, "benchmark interval (accepted and stored in the config; the daemon logs no throughput benchmarks)")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.BoolVar(&cfg.LogJSON, "log-json", false, "output logs in JSON format")
	flags.DurationVar(&pollInterval, "poll-interval", 2*time.Second, "how often to poll the upstream tip when caught up")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON})
	logger := log.WithComponent("main")

	if err := cfg.Validate(); err != nil {
		return err
	}
	preset, err := config.PresetFor(cfg.Network)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create datadir: %w", err)
	}

	buckets := append(append([]string{migration.MetadataBucket}, schema.Buckets()...), trie.Buckets()...)
	store, err := kv.Open(filepath.Join(cfg.DataDir, "ocean.db"), kv.DefaultOptions(), buckets)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	if err := migration.Run(store, migration.Steps); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	columns := schema.New(store)
	cacheMgr := cache.NewManager()
	trieKV := trie.NewKV(store)
	ix := indexer.New(columns, cacheMgr, trieKV, preset)

	upstream := rpc.New(cfg.RPCAddress, cfg.RPCUser, cfg.RPCPass, 30*time.Second)
	_ = query.New(columns, cacheMgr, ix, upstream)

	healthServer := api.NewHealthServer(ix)
	go func() {
		if err := healthServer.Start(cfg.BindAddress); err != nil {
			logger.Error().Err(err).Msg("health server stopped")
		}
	}()

	evmServer := evmrpc.NewServer(columns, trieKV)
	go func() {
		if err := evmServer.Start(cfg.EVMRPCAddress); err != nil {
			logger.Error().Err(err).Msg("evmrpc server stopped")
		}
	}()
	defer evmServer.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("network", string(cfg.Network)).Str("datadir", cfg.DataDir).Msg("ocean starting")
	src := newUpstreamSource(upstream)
	if err := ix.Run(ctx, src, pollInterval); err != nil && ctx.Err() == nil {
		return fmt.Errorf("indexer run loop: %w", err)
	}
	logger.Info().Msg("ocean stopped")
	return nil
}
