package config

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDerivesPathsFromDirs(t *testing.T) {
	t.Setenv("INPUT_DIR", "/data/in")
	t.Setenv("OUTPUT_DIR", "/data/out")
	t.Setenv("IMAGE_PROVIDER", "Local")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/data/in", "descriptions.docx"), cfg.DescriptionsFile)
	assert.Equal(t, filepath.Join("/data/in", "tags.xlsx"), cfg.TagsFile)
	assert.Equal(t, filepath.Join("/data/out", "extracted-data.json"), cfg.CatalogJSON)
	assert.Equal(t, filepath.Join("/data/out", "shopify-products.csv"), cfg.ProductsCSV)
	assert.Equal(t, "local", cfg.ImageProvider)
}

func TestLoadTypedValues(t *testing.T) {
	t.Setenv("DRIVE_RATE_LIMIT_RPS", "12")
	t.Setenv("PUSH_ENABLED", "off")
	t.Setenv("PUSH_ARGS", "  altera   --yes ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.DriveRateLimitRPS)
	assert.False(t, cfg.PushEnabled)
	assert.Equal(t, []string{"altera", "--yes"}, cfg.PushArgs)
}

func TestLoadFallsBackOnGarbage(t *testing.T) {
	t.Setenv("DRIVE_RATE_LIMIT_RPS", "fast")
	t.Setenv("PUSH_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.DriveRateLimitRPS)
	assert.True(t, cfg.PushEnabled)
}

func TestRequire(t *testing.T) {
	var cfg Config
	assert.Error(t, cfg.Require("SHOPIFY_STORE", "  "))
	assert.NoError(t, cfg.Require("SHOPIFY_STORE", "demo"))
}

func TestNewLogger(t *testing.T) {
	logger := Config{LogLevel: "debug", LogFormat: "json"}.NewLogger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = Config{LogLevel: "nonsense"}.NewLogger()
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}
