package config

import (
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default source ranges for the payment provider's success callbacks.
// Overridden with PAYMENT_NETWORKS (space-separated CIDRs).
var defaultPaymentNetworks = []string{
	"185.71.76.0/27",
	"185.71.77.0/27",
	"77.75.153.0/25",
	"77.75.156.11/32",
	"77.75.156.35/32",
	"77.75.154.128/25",
	"2a02:5180::/32",
}

type Config struct {
	Addr      string
	Mode      string // dev | prod
	DBPath    string
	JWTSecret string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	OpenAITimeout time.Duration
	// FakeGeneration swaps the real generation client for the canned one at
	// composition time. Never toggled at runtime.
	FakeGeneration bool

	ShopID          string
	ShopSecret      string
	PaymentBaseURL  string
	PaymentTimeout  time.Duration
	PaymentNetworks []netip.Prefix
}

// Load reads .env (if present) and the environment. Missing optional values
// fall back to defaults; required secrets are left empty for the caller to
// reject where they are actually needed.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:           getEnv("ADDR", ":8080"),
		Mode:           getEnv("MODE", "dev"),
		DBPath:         getEnv("DB_PATH", "promptforge.db"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4"),
		OpenAITimeout:  getEnvSeconds("OPENAI_TIMEOUT_SECONDS", 90),
		FakeGeneration: getEnvBool("FAKE_GENERATION", false),
		ShopID:         os.Getenv("SHOP_ID"),
		ShopSecret:     os.Getenv("SHOP_KEY"),
		PaymentBaseURL: getEnv("PAYMENT_BASE_URL", "https://api.yookassa.ru"),
		PaymentTimeout: getEnvSeconds("PAYMENT_TIMEOUT_SECONDS", 30),
	}

	raw := strings.Fields(getEnv("PAYMENT_NETWORKS", strings.Join(defaultPaymentNetworks, " ")))
	for _, c := range raw {
		p, err := netip.ParsePrefix(c)
		if err != nil {
			return nil, err
		}
		cfg.PaymentNetworks = append(cfg.PaymentNetworks, p)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes"
}

func getEnvSeconds(key string, def int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(def) * time.Second
}
