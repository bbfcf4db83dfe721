// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

var contractTypeCodePattern = regexp.MustCompile(`^[A-Z0-9_]{2,20}$`)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	AWS         AWSConfig
	Procurement ProcurementConfig
	I18n        I18nConfig
	RateLimit   RateLimitConfig
	Frontend    FrontendConfig
}

type FrontendConfig struct {
	BaseURL string
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey string
	Issuer    string
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	CloudFrontURL   string
	LocalStorageDir string
}

// Enabled reports whether documents go to S3 rather than local disk.
func (a AWSConfig) Enabled() bool {
	return a.AccessKeyID != "" && a.SecretAccessKey != "" && a.S3Bucket != ""
}

type ProcurementConfig struct {
	// DefaultContractType is used when no amount range matches. Empty means
	// the gap is reported to the caller.
	DefaultContractType     string
	AutoStartFirstPhase     bool
	DefaultObjectCategories []string
	MaxDocumentSize         int64 // bytes
	SeedFile                string
	CurrencyScale           int
	// NotificationScanMinutes is the period of the due-date scan; 0 disables it.
	NotificationScanMinutes int
}

type I18nConfig struct {
	DefaultLocale string
}

type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "procurement"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "info"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", defaultJWTSecret),
			Issuer:    getEnv("JWT_ISSUER", "municipal-idp"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "procurement-documents"),
			CloudFrontURL:   getEnv("AWS_CLOUDFRONT_URL", ""),
			LocalStorageDir: getEnv("LOCAL_STORAGE_DIR", "./storage/documents"),
		},
		Procurement: ProcurementConfig{
			DefaultContractType:     getEnv("DEFAULT_CONTRACT_TYPE", ""),
			AutoStartFirstPhase:     getEnvAsBool("AUTO_START_FIRST_PHASE", false),
			DefaultObjectCategories: getEnvAsSlice("DEFAULT_OBJECT_CATEGORIES", []string{"goods", "services", "works", "consulting"}),
			MaxDocumentSize:         int64(getEnvAsInt("MAX_DOCUMENT_SIZE_MB", 25)) * 1024 * 1024,
			SeedFile:                getEnv("CATALOG_SEED_FILE", ""),
			CurrencyScale:           getEnvAsInt("CURRENCY_SCALE", 2),
			NotificationScanMinutes: getEnvAsInt("NOTIFICATION_SCAN_MINUTES", 60),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "es"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Frontend: FrontendConfig{
			BaseURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == defaultJWTSecret && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if code := c.Procurement.DefaultContractType; code != "" && !contractTypeCodePattern.MatchString(code) {
		return fmt.Errorf("DEFAULT_CONTRACT_TYPE %q is not a valid contract type code", code)
	}

	if c.Procurement.CurrencyScale < 0 || c.Procurement.CurrencyScale > 4 {
		return fmt.Errorf("CURRENCY_SCALE must be between 0 and 4")
	}

	if c.Procurement.MaxDocumentSize <= 0 {
		return fmt.Errorf("MAX_DOCUMENT_SIZE_MB must be positive")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
