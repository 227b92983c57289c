package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	MaxTxPerChain       int
	TokenTxLimit        int
	TokenDiscoveryLimit int
	HoldingsLimit       int
	ChainWorkers        int

	EtherscanAPIKey string
	EtherscanAPIURL string
	EthRPCURL       string
	BSCRPCURL       string
	HeliusAPIKey    string
	HeliusBaseURL   string
	HeliusRPCURL    string
	FourByteURL     string
	PriceURL        string

	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string

	EnabledChains []string
	ProtocolsFile string
	OutDir        string
	HTTPAddr      string

	HTTPTimeout  time.Duration
	HTTPRetries  int
	ExplorerRPS  float64
	SignatureRPS float64

	RedisAddr         string
	SignatureCacheTTL time.Duration

	KafkaBrokers     []string
	KafkaTopicPrefix string

	StoreDriver string
	StoreDSN    string

	OtelEndpoint string

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
}

type EnvSource interface {
	Lookup(key string) (string, bool)
}

type EnvMap map[string]string

func (e EnvMap) Lookup(key string) (string, bool) {
	value, ok := e[key]
	return value, ok
}

func FromEnviron() EnvSource {
	env := make(EnvMap)
	for _, entry := range os.Environ() {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		env[parts[0]] = parts[1]
	}
	return env
}

func Load(source EnvSource) (Config, error) {
	if source == nil {
		return Config{}, errors.New("env source is required")
	}

	var cfg Config
	var err error
	if cfg.MaxTxPerChain, err = parseIntEnv(source, "MAX_TX_PER_CHAIN", 50); err != nil {
		return Config{}, err
	}
	if cfg.TokenTxLimit, err = parseIntEnv(source, "TOKEN_TX_LIMIT", 100); err != nil {
		return Config{}, err
	}
	if cfg.TokenDiscoveryLimit, err = parseIntEnv(source, "TOKEN_DISCOVERY_LIMIT", 50); err != nil {
		return Config{}, err
	}
	if cfg.HoldingsLimit, err = parseIntEnv(source, "HOLDINGS_LIMIT", 10); err != nil {
		return Config{}, err
	}
	if cfg.ChainWorkers, err = parseIntEnv(source, "CHAIN_WORKERS", 1); err != nil {
		return Config{}, err
	}
	if cfg.HTTPRetries, err = parseIntEnv(source, "HTTP_RETRIES", 3); err != nil {
		return Config{}, err
	}
	if cfg.LogMaxSizeMB, err = parseIntEnv(source, "LOG_MAX_SIZE_MB", 100); err != nil {
		return Config{}, err
	}
	if cfg.LogMaxBackups, err = parseIntEnv(source, "LOG_MAX_BACKUPS", 5); err != nil {
		return Config{}, err
	}
	if cfg.HTTPTimeout, err = parseDurationEnv(source, "HTTP_TIMEOUT", 25*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SignatureCacheTTL, err = parseDurationEnv(source, "SIGNATURE_CACHE_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ExplorerRPS, err = parseFloatEnv(source, "EXPLORER_RPS", 4); err != nil {
		return Config{}, err
	}
	if cfg.SignatureRPS, err = parseFloatEnv(source, "SIGNATURE_RPS", 2); err != nil {
		return Config{}, err
	}

	cfg.EtherscanAPIKey = lookupString(source, "ETHERSCAN_API_KEY", "")
	cfg.EtherscanAPIURL = lookupString(source, "ETHERSCAN_API_URL", "https://api.etherscan.io/v2/api")
	cfg.EthRPCURL = lookupString(source, "INFURA_URL", "")
	if cfg.EthRPCURL == "" {
		if projectID := lookupString(source, "INFURA_PROJECT_ID", ""); projectID != "" {
			cfg.EthRPCURL = "https://mainnet.infura.io/v3/" + projectID
		}
	}
	cfg.BSCRPCURL = lookupString(source, "BSC_RPC_URL", "")
	cfg.HeliusAPIKey = lookupString(source, "HELIUS_API_KEY", "")
	cfg.HeliusBaseURL = lookupString(source, "HELIUS_BASE_URL", "https://api.helius.xyz")
	cfg.HeliusRPCURL = lookupString(source, "HELIUS_RPC_URL", "")
	cfg.FourByteURL = lookupString(source, "FOURBYTE_API_URL", "https://www.4byte.directory/api/v1/signatures/")
	cfg.PriceURL = lookupString(source, "DEFILLAMA_PRICE_URL", "https://coins.llama.fi/prices/current/")

	cfg.LLMAPIKey = lookupString(source, "DEEPSEEK_API_KEY", "")
	cfg.LLMBaseURL = lookupString(source, "OPENAI_BASE_URL", "https://api.deepseek.com")
	cfg.LLMModel = lookupString(source, "LLM_MODEL", "deepseek-chat")

	cfg.EnabledChains = parseOptionalList(source, "ENABLED_CHAINS")
	cfg.ProtocolsFile = lookupString(source, "PROTOCOLS_FILE", "")
	cfg.OutDir = lookupString(source, "OUT_DIR", "out")
	cfg.HTTPAddr = lookupString(source, "HTTP_ADDR", ":8080")

	cfg.RedisAddr = lookupString(source, "REDIS_ADDR", "")
	cfg.KafkaBrokers = parseOptionalList(source, "KAFKA_BROKERS")
	cfg.KafkaTopicPrefix = lookupString(source, "KAFKA_TOPIC_PREFIX", "walletscope-chains")

	cfg.StoreDriver = strings.ToLower(lookupString(source, "STORE_DRIVER", ""))
	cfg.StoreDSN = lookupString(source, "STORE_DSN", "")
	switch cfg.StoreDriver {
	case "":
	case "sqlite":
		if cfg.StoreDSN == "" {
			cfg.StoreDSN = "walletscope.db"
		}
	case "mysql":
		if cfg.StoreDSN == "" {
			cfg.StoreDSN = "root:@tcp(127.0.0.1:3306)/walletscope?parseTime=true"
		}
	default:
		return Config{}, fmt.Errorf("invalid STORE_DRIVER %q", cfg.StoreDriver)
	}

	cfg.OtelEndpoint = lookupString(source, "OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg.LogLevel = lookupString(source, "LOG_LEVEL", "info")
	cfg.LogFile = lookupString(source, "LOG_FILE", "")

	if cfg.MaxTxPerChain <= 0 {
		return Config{}, errors.New("MAX_TX_PER_CHAIN must be positive")
	}
	if cfg.ChainWorkers <= 0 {
		cfg.ChainWorkers = 1
	}
	return cfg, nil
}

// ChainEnabled reports whether the chain has the credentials it needs and,
// when ENABLED_CHAINS is set, is listed there.
func (c Config) ChainEnabled(chainID string) bool {
	if len(c.EnabledChains) > 0 && !containsFold(c.EnabledChains, chainID) {
		return false
	}
	switch chainID {
	case "eth":
		return c.EtherscanAPIKey != "" && c.EthRPCURL != ""
	case "bsc":
		return c.EtherscanAPIKey != "" && c.BSCRPCURL != ""
	case "sol":
		return c.HeliusAPIKey != ""
	default:
		return false
	}
}

// RPCURL returns the EVM JSON-RPC endpoint for the chain.
func (c Config) RPCURL(chainID string) string {
	switch chainID {
	case "eth":
		return c.EthRPCURL
	case "bsc":
		return c.BSCRPCURL
	default:
		return ""
	}
}

func lookupString(source EnvSource, key, defaultValue string) string {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	return strings.TrimSpace(raw)
}

func parseIntEnv(source EnvSource, key string, defaultValue int) (int, error) {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 31)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return int(value), nil
}

func parseFloatEnv(source EnvSource, key string, defaultValue float64) (float64, error) {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return value, nil
}

func parseDurationEnv(source EnvSource, key string, defaultValue time.Duration) (time.Duration, error) {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func parseOptionalList(source EnvSource, key string) []string {
	raw, ok := source.Lookup(key)
	if !ok {
		return nil
	}
	var values []string
	for _, item := range strings.Split(raw, ",") {
		value := strings.TrimSpace(item)
		if value == "" {
			continue
		}
		values = append(values, value)
	}
	return values
}

func containsFold(values []string, target string) bool {
	for _, value := range values {
		if strings.EqualFold(value, target) {
			return true
		}
	}
	return false
}
