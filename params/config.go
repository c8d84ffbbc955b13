package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Desk struct {
	Symbol string // instrument passed to createOrder
	// AmountDecimals and PriceDecimals fix the uint32 wire scaling.
	// Amount 0.5 with 4 decimals goes on chain as 5000; price 42000 with
	// 2 decimals as 4200000. Inputs finer than the scale are rejected.
	AmountDecimals int32
	PriceDecimals  int32
	FeeBps         int64 // display-only desk fee
}

type Chain struct {
	RPCURL          string
	ChainID         int64
	ContractAddress string
	PollInterval    time.Duration // receipt polling
	GasLimit        uint64        // 0 = estimate
}

type Wallet struct {
	PrivateKeyHex      string
	KeystorePath       string
	KeystorePassphrase string
	AutoConnect        bool
}

type API struct {
	Addr           string
	AllowedOrigins []string
}

type Storage struct {
	DataDir   string
	AuditFile string // settled submissions, one line each
}

type Config struct {
	Desk    Desk
	Chain   Chain
	Wallet  Wallet
	API     API
	Storage Storage
	LogFile string
}

func Default() Config {
	return Config{
		Desk: Desk{
			Symbol:         "BTC",
			AmountDecimals: 4,
			PriceDecimals:  2,
			FeeBps:         10, // 0.1%
		},
		Chain: Chain{
			RPCURL:          "http://127.0.0.1:8545",
			ChainID:         11155111, // sepolia
			ContractAddress: "0x0000000000000000000000000000000000000000",
			PollInterval:    2 * time.Second,
		},
		Wallet: Wallet{
			AutoConnect: false,
		},
		API: API{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Storage: Storage{
			DataDir:   "data/journal",
			AuditFile: "data/submissions.log",
		},
		LogFile: "data/desk.log",
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.Desk.Symbol = getEnv("DESK_SYMBOL", cfg.Desk.Symbol)
	if v := os.Getenv("DESK_AMOUNT_DECIMALS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Desk.AmountDecimals = int32(n)
		}
	}
	if v := os.Getenv("DESK_PRICE_DECIMALS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Desk.PriceDecimals = int32(n)
		}
	}
	if v := os.Getenv("DESK_FEE_BPS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Desk.FeeBps = n
		}
	}

	cfg.Chain.RPCURL = getEnv("CHAIN_RPC_URL", cfg.Chain.RPCURL)
	cfg.Chain.ContractAddress = getEnv("CHAIN_CONTRACT_ADDRESS", cfg.Chain.ContractAddress)
	if v := os.Getenv("CHAIN_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Chain.ChainID = n
		}
	}
	if v := os.Getenv("CHAIN_POLL_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Chain.PollInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("CHAIN_GAS_LIMIT"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Chain.GasLimit = n
		}
	}

	cfg.Wallet.PrivateKeyHex = strings.TrimPrefix(os.Getenv("WALLET_PRIVATE_KEY"), "0x")
	cfg.Wallet.KeystorePath = os.Getenv("WALLET_KEYSTORE_PATH")
	cfg.Wallet.KeystorePassphrase = os.Getenv("WALLET_KEYSTORE_PASSPHRASE")
	if v := os.Getenv("WALLET_AUTO_CONNECT"); v != "" {
		cfg.Wallet.AutoConnect = v == "true"
	}

	cfg.API.Addr = getEnv("API_ADDR", cfg.API.Addr)
	// Origins from comma-separated list
	if v := os.Getenv("API_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.API.AllowedOrigins = origins
	}

	cfg.Storage.DataDir = getEnv("JOURNAL_DIR", cfg.Storage.DataDir)
	cfg.Storage.AuditFile = getEnv("AUDIT_LOG_FILE", cfg.Storage.AuditFile)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
