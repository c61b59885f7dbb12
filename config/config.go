package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Session   SessionConfig
	CORS      CORSConfig
	S3        S3Config
	SMTP      SMTPConfig
	Google    GoogleConfig
	Checkout  CheckoutConfig
	Coupon    CouponConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
	LogLevel    string
	FrontendURL string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// SessionConfig controls the signed cookie that keys anonymous carts.
type SessionConfig struct {
	CookieName string
	Secret     string
	TTL        time.Duration
	Secure     bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CDN prefix images are served from
}

type SMTPConfig struct {
	Host     string
	Port     string
	Email    string
	Password string
	FromName string
}

type GoogleConfig struct {
	ClientID     string
	TokenInfoURL string
}

// CheckoutConfig decides who supplies shipping and tax.
// Mode "client" trusts validated request values, "server" computes them.
type CheckoutConfig struct {
	PricingMode  string
	BaseShipping float64
	PerKgFee     float64
	FreeOver     float64
	TaxRate      float64
}

type CouponConfig struct {
	DefaultValidity time.Duration
	SweepSchedule   string
}

type RateLimitConfig struct {
	AuthPerMinute int
	AuthBurst     int
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	environment := getEnv("ENVIRONMENT", "development")
	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: environment,
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "madness"),
			Password: getEnv("DB_PASSWORD", "madness"),
			DBName:   getEnv("DB_NAME", "madness"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h"), 168*time.Hour),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "sessionId"),
			Secret:     getEnv("SESSION_SECRET", "your-session-secret"),
			TTL:        parseDuration(getEnv("SESSION_TTL", "168h"), 168*time.Hour),
			Secure:     environment == "production",
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-southeast-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", "madness-uploads"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("CDN_BASE_URL", ""),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Email:    getEnv("SMTP_EMAIL", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			FromName: getEnv("MAIL_FROM_NAME", "MADNESS"),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			TokenInfoURL: getEnv("GOOGLE_TOKENINFO_URL", "https://oauth2.googleapis.com/tokeninfo"),
		},
		Checkout: CheckoutConfig{
			PricingMode:  getEnv("CHECKOUT_PRICING_MODE", "client"),
			BaseShipping: parseFloat(getEnv("SHIPPING_BASE_FEE", "0"), 0),
			PerKgFee:     parseFloat(getEnv("SHIPPING_PER_KG_FEE", "0"), 0),
			FreeOver:     parseFloat(getEnv("SHIPPING_FREE_OVER", "0"), 0),
			TaxRate:      parseFloat(getEnv("TAX_RATE", "0"), 0),
		},
		Coupon: CouponConfig{
			DefaultValidity: parseDuration(getEnv("COUPON_DEFAULT_VALIDITY", "720h"), 720*time.Hour),
			SweepSchedule:   getEnv("COUPON_SWEEP_SCHEDULE", "@hourly"),
		},
		RateLimit: RateLimitConfig{
			AuthPerMinute: parseInt(getEnv("AUTH_RATE_LIMIT_PER_MINUTE", "30"), 30),
			AuthBurst:     parseInt(getEnv("AUTH_RATE_LIMIT_BURST", "10"), 10),
		},
	}

	if config.Checkout.PricingMode != "client" && config.Checkout.PricingMode != "server" {
		return nil, fmt.Errorf("invalid CHECKOUT_PRICING_MODE %q", config.Checkout.PricingMode)
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return v
}

func parseFloat(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Printf("Invalid number %s, using default %v", s, fallback)
		return fallback
	}
	return v
}

func parseSlice(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
