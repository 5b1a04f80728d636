package cmd

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	dareme_protocol "dareme-cli/solana"
)

const (
	devnetRpcEndpoint   = "https://api.devnet.solana.com"
	heliusRpcTemplate   = "https://devnet.helius-rpc.com/?api-key=%s"
	defaultIndexerDB    = "dareme-index.db"
	defaultListenAddr   = ":8080"
	defaultPollInterval = 15 * time.Second
	envRpcURL           = "DAREME_RPC_URL"
	envHeliusKey        = "HELIUS_API_KEY"
	envProgramID        = "DAREME_PROGRAM_ID"
	envWalletDir        = "DAREME_WALLET_DIR"
	envProfile          = "DAREME_PROFILE"
	envIndexerDB        = "INDEXER_DB_PATH"
	envListenAddr       = "INDEXER_LISTEN_ADDR"
	envWebhookToken     = "WEBHOOK_AUTH_TOKEN"
	envAPIToken         = "INDEXER_API_TOKEN"
	envPollInterval     = "INDEXER_POLL_INTERVAL"
)

// Config is the resolved runtime configuration. Flags win over environment,
// environment wins over defaults.
type Config struct {
	RpcEndpoint  string
	ProgramID    string
	WalletDir    string
	Profile      string
	IndexerDB    string
	ListenAddr   string
	WebhookToken string
	APIToken     string
	PollInterval time.Duration
}

// flag values bound by rootCmd; empty means "not set".
var flagValues struct {
	rpc       string
	programID string
	walletDir string
	profile   string
}

var cfg Config

// loadConfig reads .env (if present) and the environment, then applies flags.
func loadConfig(getenv func(string) string) (Config, error) {
	c := Config{
		RpcEndpoint:  devnetRpcEndpoint,
		IndexerDB:    defaultIndexerDB,
		ListenAddr:   defaultListenAddr,
		PollInterval: defaultPollInterval,
	}

	if key := getenv(envHeliusKey); key != "" {
		c.RpcEndpoint = fmt.Sprintf(heliusRpcTemplate, key)
	}
	if v := getenv(envRpcURL); v != "" {
		c.RpcEndpoint = v
	}
	c.ProgramID = getenv(envProgramID)
	c.WalletDir = getenv(envWalletDir)
	c.Profile = getenv(envProfile)
	if v := getenv(envIndexerDB); v != "" {
		c.IndexerDB = v
	}
	if v := getenv(envListenAddr); v != "" {
		c.ListenAddr = v
	}
	c.WebhookToken = getenv(envWebhookToken)
	c.APIToken = getenv(envAPIToken)
	if v := getenv(envPollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c, fmt.Errorf("invalid %s %q: %w", envPollInterval, v, err)
		}
		c.PollInterval = d
	}

	if flagValues.rpc != "" {
		c.RpcEndpoint = flagValues.rpc
	}
	if flagValues.programID != "" {
		c.ProgramID = flagValues.programID
	}
	if flagValues.walletDir != "" {
		c.WalletDir = flagValues.walletDir
	}
	if flagValues.profile != "" {
		c.Profile = flagValues.profile
	}
	return c, nil
}

// initConfig is the root PersistentPreRunE. It also points the protocol
// package at a custom program id when one is configured.
func initConfig() error {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, using environment and defaults.")
	}
	c, err := loadConfig(os.Getenv)
	if err != nil {
		return err
	}
	if c.ProgramID != "" {
		if err := dareme_protocol.SetProgramIDFromBase58(c.ProgramID); err != nil {
			return fmt.Errorf("invalid program id: %w", err)
		}
	}
	cfg = c
	return nil
}
