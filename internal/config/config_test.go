package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.Procurement.AutoStartFirstPhase)
	assert.Equal(t, int64(25*1024*1024), cfg.Procurement.MaxDocumentSize)
	assert.Equal(t, []string{"goods", "services", "works", "consulting"}, cfg.Procurement.DefaultObjectCategories)
	assert.False(t, cfg.AWS.Enabled())
}

func TestLoad_ProcurementOverrides(t *testing.T) {
	t.Setenv("DEFAULT_CONTRACT_TYPE", "REGIMEN_ESPECIAL")
	t.Setenv("AUTO_START_FIRST_PHASE", "TRUE")
	t.Setenv("DEFAULT_OBJECT_CATEGORIES", "goods, works")
	t.Setenv("MAX_DOCUMENT_SIZE_MB", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "REGIMEN_ESPECIAL", cfg.Procurement.DefaultContractType)
	assert.True(t, cfg.Procurement.AutoStartFirstPhase)
	assert.Equal(t, []string{"goods", "works"}, cfg.Procurement.DefaultObjectCategories)
	assert.Equal(t, int64(5*1024*1024), cfg.Procurement.MaxDocumentSize)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Environment: "production",
			Database:    DatabaseConfig{Password: "secret"},
			JWT:         JWTConfig{SecretKey: "rotated"},
			Procurement: ProcurementConfig{MaxDocumentSize: 1024, CurrencyScale: 2},
		}
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.JWT.SecretKey = defaultJWTSecret
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Database.Password = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Procurement.DefaultContractType = "menor cuantia"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Procurement.CurrencyScale = 9
	assert.Error(t, cfg.Validate())
}

func TestAWSEnabled(t *testing.T) {
	aws := AWSConfig{AccessKeyID: "id", SecretAccessKey: "secret", S3Bucket: "bucket"}
	assert.True(t, aws.Enabled())

	aws.S3Bucket = ""
	assert.False(t, aws.Enabled())
}
