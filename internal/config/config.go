package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定。環境変数から読み込む。
type Config struct {
	// データベース
	DatabaseURL string

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// セッション
	SessionSecret string
	SessionMaxAge time.Duration
	CookieSecure  bool
	CookieDomain  string

	// サーバー
	BaseURL           string
	ServerPort        int
	MetricsPort       int
	CORSAllowedOrigin string

	// 自治体・ジオコーディング
	Municipality   string
	GeocodeRegion  string
	FallbackLat    float64
	FallbackLng    float64
	GeocodeTimeout time.Duration

	// 公報検証ワーカー
	ScanInterval    time.Duration
	BulletinFeedURL string

	// レート制限（分あたりリクエスト数）
	RateLimitGeneral int
	RateLimitReport  int

	// 開発用ログインバイパス。本番では必ず無効にすること。
	DevLogin bool
}

// Load は環境変数から設定を読み込む。必須変数が欠けている場合はエラーを返す。
func Load() (*Config, error) {
	var missing []string

	requireEnv := func(key string) string {
		value := os.Getenv(key)
		if value == "" {
			missing = append(missing, key)
		}
		return value
	}

	cfg := &Config{
		DatabaseURL:        requireEnv("DATABASE_URL"),
		GoogleClientID:     requireEnv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: requireEnv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  requireEnv("GOOGLE_REDIRECT_URL"),
		SessionSecret:      requireEnv("SESSION_SECRET"),
		BaseURL:            requireEnv("BASE_URL"),

		SessionMaxAge:     getEnvDuration("SESSION_MAX_AGE", 24*time.Hour),
		CookieDomain:      getEnvString("COOKIE_DOMAIN", ""),
		ServerPort:        getEnvInt("SERVER_PORT", 8080),
		MetricsPort:       getEnvInt("METRICS_PORT", 9091),
		CORSAllowedOrigin: getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),

		Municipality:   getEnvString("MUNICIPALITY", "Ubá"),
		GeocodeRegion:  getEnvString("GEOCODE_REGION", "Ubá, Minas Gerais"),
		FallbackLat:    getEnvFloat("FALLBACK_LAT", -21.1215),
		FallbackLng:    getEnvFloat("FALLBACK_LNG", -42.9427),
		GeocodeTimeout: getEnvDuration("GEOCODE_TIMEOUT", 10*time.Second),

		ScanInterval:    getEnvDuration("SCAN_INTERVAL", 30*time.Minute),
		BulletinFeedURL: getEnvString("BULLETIN_FEED_URL", ""),

		RateLimitGeneral: getEnvInt("RATE_LIMIT_GENERAL", 120),
		RateLimitReport:  getEnvInt("RATE_LIMIT_REPORT", 10),

		DevLogin: getEnvBool("DEV_LOGIN", false),
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration は秒数（整数）またはGo形式のduration文字列（"30m"等）を受け付ける。
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	return defaultValue
}
