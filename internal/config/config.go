package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"crosslister/internal/domain"
)

type Config struct {
	ActiveAccount int
	Environment   string // SANDBOX or PRODUCTION
	Accounts      map[int]domain.Account

	EbayAppID       string
	EbayCertID      string
	EbayRedirectURI string

	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string

	StoreMode     string
	DatabaseURL   string
	StateDir      string
	TokenCryptKey string

	TelegramBotToken string
	TelegramChatID   string

	WatchFolder     string
	ProcessedFolder string
	FailedFolder    string
	OrdersFolder    string

	PriceMarkupPct  float64
	FixedMarkup     float64
	CharmStrategy   string
	Tier1MaxPrice   float64
	Tier1Multiplier float64
	Tier2MaxPrice   float64
	Tier2Multiplier float64
	Tier3MaxPrice   float64
	Tier3Multiplier float64
	Tier4Multiplier float64

	Parallel         bool
	MaxWorkers       int
	ProcessingDelay  time.Duration
	MaxItemsPerBatch int
	DefaultQuantity  int

	SelectorStrategy   string // semantic or llm
	MinSimilarity      float64
	CandidateLevel2    int
	CandidateLevel3    int
	CandidateLevel4    int
	PriorityCategories string

	CategoryCacheTTL time.Duration
	TokenRefreshSkew time.Duration

	MaxRetries int
	RetryBase  time.Duration
	RetryMax   time.Duration

	MerchantLocationKey string
	MerchantPostalCode  string
	MerchantCountry     string

	AuthListenAddr string
}

func Load() Config {
	cfg := Config{
		ActiveAccount: getInt("ACTIVE_ACCOUNT", 1),
		Environment:   getEnv("EBAY_ENVIRONMENT", "SANDBOX"),

		EbayAppID:       getEnv("EBAY_APP_ID", ""),
		EbayCertID:      getEnv("EBAY_CERT_ID", ""),
		EbayRedirectURI: getEnv("EBAY_REDIRECT_URI", "http://localhost:8181/auth/callback"),

		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-3-haiku-20240307"),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),

		StoreMode:     getEnv("STORE_MODE", "file"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		StateDir:      getEnv("STATE_DIR", "."),
		TokenCryptKey: getEnv("TOKEN_ENCRYPTION_KEY", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		WatchFolder:     getEnv("WATCH_FOLDER", "./watch"),
		ProcessedFolder: getEnv("PROCESSED_FOLDER", "./processed"),
		FailedFolder:    getEnv("FAILED_FOLDER", "./failed"),
		OrdersFolder:    getEnv("ORDERS_FOLDER", "./ebay_orders"),

		PriceMarkupPct:  getFloat("PRICE_MARKUP_PERCENTAGE", 20.0),
		FixedMarkup:     getFloat("FIXED_MARKUP_AMOUNT", 5.00),
		CharmStrategy:   getEnv("CHARM_PRICING_STRATEGY", ""),
		Tier1MaxPrice:   getFloat("TIER_1_MAX_PRICE", 15.0),
		Tier1Multiplier: getFloat("TIER_1_MULTIPLIER", 2.0),
		Tier2MaxPrice:   getFloat("TIER_2_MAX_PRICE", 30.0),
		Tier2Multiplier: getFloat("TIER_2_MULTIPLIER", 1.8),
		Tier3MaxPrice:   getFloat("TIER_3_MAX_PRICE", 50.0),
		Tier3Multiplier: getFloat("TIER_3_MULTIPLIER", 1.6),
		Tier4Multiplier: getFloat("TIER_4_MULTIPLIER", 1.5),

		Parallel:         getBool("PARALLEL_PROCESSING", true),
		MaxWorkers:       getInt("MAX_WORKERS", 3),
		ProcessingDelay:  getDuration("PROCESSING_DELAY", 2*time.Second),
		MaxItemsPerBatch: getInt("MAX_ITEMS_PER_BATCH", 25),
		DefaultQuantity:  getInt("DEFAULT_INVENTORY_QUANTITY", 10),

		SelectorStrategy:   getEnv("SELECTOR_STRATEGY", "semantic"),
		MinSimilarity:      getFloat("MIN_SIMILARITY", 0.5),
		CandidateLevel2:    getInt("CANDIDATE_LEVEL2", 50),
		CandidateLevel3:    getInt("CANDIDATE_LEVEL3", 70),
		CandidateLevel4:    getInt("CANDIDATE_LEVEL4", 30),
		PriorityCategories: getEnv("PRIORITY_CATEGORIES_FILE", ""),

		CategoryCacheTTL: getDuration("CATEGORY_CACHE_TTL", 90*24*time.Hour),
		TokenRefreshSkew: getDuration("TOKEN_REFRESH_SKEW", 5*time.Minute),

		MaxRetries: getInt("MAX_RETRIES", 3),
		RetryBase:  getDuration("RETRY_BASE", 500*time.Millisecond),
		RetryMax:   getDuration("RETRY_MAX", 5*time.Second),

		MerchantLocationKey: getEnv("MERCHANT_LOCATION_KEY", "us_warehouse"),
		MerchantPostalCode:  getEnv("MERCHANT_POSTAL_CODE", "10001"),
		MerchantCountry:     getEnv("MERCHANT_COUNTRY", "US"),

		AuthListenAddr: getEnv("AUTH_LISTEN_ADDR", ":8181"),
	}

	cfg.Accounts = map[int]domain.Account{
		1: loadAccount(1, "primary"),
		2: loadAccount(2, "secondary"),
	}
	return cfg
}

func loadAccount(n int, defaultName string) domain.Account {
	suffix := fmt.Sprintf("_ACCOUNT%d", n)
	return domain.Account{
		ID:                  n,
		Name:                getEnv("STORE_NAME"+suffix, defaultName),
		PaymentPolicyID:     getEnv("PAYMENT_POLICY_ID"+suffix, ""),
		ReturnPolicyID:      getEnv("RETURN_POLICY_ID"+suffix, ""),
		FulfillmentPolicyID: getEnv("FULFILLMENT_POLICY_ID"+suffix, ""),
	}
}

// Account resolves a selector to its policy bundle. Unknown selectors are
// an error rather than a silent fallback to account 1.
func (c Config) Account(n int) (domain.Account, error) {
	acct, ok := c.Accounts[n]
	if !ok {
		return domain.Account{}, fmt.Errorf("unknown account %d", n)
	}
	return acct, nil
}

// APIBaseURL returns the Sell/Commerce API host for the environment.
func (c Config) APIBaseURL() string {
	if c.Environment == "PRODUCTION" {
		return "https://api.ebay.com"
	}
	return "https://api.sandbox.ebay.com"
}

// TokenURL returns the OAuth token-exchange endpoint for the environment.
func (c Config) TokenURL() string {
	return c.APIBaseURL() + "/identity/v1/oauth2/token"
}

// ConsentURL returns the user-consent authorization endpoint.
func (c Config) ConsentURL() string {
	if c.Environment == "PRODUCTION" {
		return "https://auth.ebay.com/oauth2/authorize"
	}
	return "https://auth.sandbox.ebay.com/oauth2/authorize"
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
