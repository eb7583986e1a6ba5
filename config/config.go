package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds every environment-driven setting in one place so services
// receive explicit values instead of reading os.Getenv themselves.
type Config struct {
	Port        string `env:"PORT" envDefault:"5300"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Gateway / service auth
	ServiceToken   string `env:"QUIZ_SERVICE_TOKEN,required"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`

	// External identity provider
	AuthServiceURL string `env:"AUTH_SERVICE_URL,required"`

	// On-chain staking ledger
	LedgerRPCURL         string  `env:"LEDGER_RPC_URL,required"`
	LedgerContractAddr   string  `env:"LEDGER_CONTRACT_ADDRESS,required"`
	LedgerChainID        int64   `env:"LEDGER_CHAIN_ID" envDefault:"42220"`
	PlayerStakeAmount    float64 `env:"PLAYER_STAKE_AMOUNT" envDefault:"1"`
	PricePerQuestion     float64 `env:"COMPANY_PRICE_PER_QUESTION" envDefault:"0.001"`
	StakePollIntervalSec int     `env:"STAKE_POLL_INTERVAL_SEC" envDefault:"30"`

	// AI question generation
	GeneratorAPIURL string `env:"GENERATOR_API_URL,required"`
	GeneratorAPIKey string `env:"GENERATOR_API_KEY,required"`
	SearchAPIURL    string `env:"SEARCH_API_URL"`
	SearchAPIKey    string `env:"SEARCH_API_KEY"`

	// R2 / object storage for question-set snapshots
	CloudflareAccountID string `env:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID       string `env:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret   string `env:"R2_ACCESS_KEY_SECRET"`
	R2BucketName        string `env:"R2_BUCKET_NAME"`
	CDNBaseURL          string `env:"CDN_BASE_URL"`
}

// Load parses the process environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
