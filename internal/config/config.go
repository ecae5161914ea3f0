package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr      string
	PostgresDSN   string
	LogLevel      string
	LogFormat     string
	PublicBaseURL string

	AuthMode    string
	AdminAPIKey string
	// TrustedProxies lists the proxy addresses or CIDRs whose forwarded
	// headers are believed. Empty means the peer address is the client.
	TrustedProxies []string

	ActionTokenSecret string
	LinkTokenSecret   string

	RateLimitSignupRequests      int
	RateLimitSignupWindowSeconds int
	RateLimitRetentionHours      int
	RateLimitFailClosed          bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	XOEmbedURL                string
	MoltbookAPIURL            string
	MoltbookAPIKey            string
	SocialVerifyBudgetSeconds int

	EmailAPIURL string
	EmailAPIKey string
	EmailFrom   string

	AutoPublishBatchSize int

	TemporalAddress   string
	TemporalNamespace string
	TemporalTaskQueue string
	HealthAddr        string
	APIBaseURL        string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:                     addr,
		PostgresDSN:                  os.Getenv("POSTGRES_DSN"),
		LogLevel:                     envDefault("LOG_LEVEL", "info"),
		LogFormat:                    envDefault("LOG_FORMAT", "json"),
		PublicBaseURL:                envDefault("PUBLIC_BASE_URL", "http://localhost:8080"),
		AuthMode:                     envDefault("AUTH_MODE", "header"),
		AdminAPIKey:                  os.Getenv("ADMIN_API_KEY"),
		TrustedProxies:               envList("TRUSTED_PROXIES"),
		ActionTokenSecret:            os.Getenv("ACTION_TOKEN_SECRET"),
		LinkTokenSecret:              os.Getenv("LINK_TOKEN_SECRET"),
		RateLimitSignupRequests:      envIntDefault("RATE_LIMIT_SIGNUP_REQUESTS", 5),
		RateLimitSignupWindowSeconds: envIntDefault("RATE_LIMIT_SIGNUP_WINDOW_SECONDS", 3600),
		RateLimitRetentionHours:      envIntDefault("RATE_LIMIT_RETENTION_HOURS", 24),
		RateLimitFailClosed:          envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RedisAddr:                    os.Getenv("REDIS_ADDR"),
		RedisPassword:                os.Getenv("REDIS_PASSWORD"),
		RedisDB:                      envIntDefault("REDIS_DB", 0),
		XOEmbedURL:                   envDefault("X_OEMBED_URL", "https://publish.twitter.com/oembed"),
		MoltbookAPIURL:               envDefault("MOLTBOOK_API_URL", "https://www.moltbook.com/api/v1"),
		MoltbookAPIKey:               os.Getenv("MOLTBOOK_API_KEY"),
		SocialVerifyBudgetSeconds:    envIntDefault("SOCIAL_VERIFY_BUDGET_SECONDS", 50),
		EmailAPIURL:                  os.Getenv("EMAIL_API_URL"),
		EmailAPIKey:                  os.Getenv("EMAIL_API_KEY"),
		EmailFrom:                    envDefault("EMAIL_FROM", "moltoverflow <noreply@moltoverflow.local>"),
		AutoPublishBatchSize:         envIntDefault("AUTO_PUBLISH_BATCH_SIZE", 100),
		TemporalAddress:              envDefault("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalNamespace:            envDefault("TEMPORAL_NAMESPACE", "default"),
		TemporalTaskQueue:            envDefault("TEMPORAL_TASK_QUEUE", "molt-sweeps"),
		HealthAddr:                   envDefault("HEALTH_ADDR", ":8090"),
		APIBaseURL:                   envDefault("MOLT_API_URL", "http://localhost:8080"),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

func (c Config) SignupWindow() time.Duration {
	if c.RateLimitSignupWindowSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(c.RateLimitSignupWindowSeconds) * time.Second
}

func (c Config) RateLimitRetention() time.Duration {
	if c.RateLimitRetentionHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.RateLimitRetentionHours) * time.Hour
}

// SocialVerifyBudget is the platform's 60s action limit minus a safety margin.
func (c Config) SocialVerifyBudget() time.Duration {
	if c.SocialVerifyBudgetSeconds <= 0 {
		return 50 * time.Second
	}
	return time.Duration(c.SocialVerifyBudgetSeconds) * time.Second
}
