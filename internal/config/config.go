package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	InputDir  string
	OutputDir string
	DBPath    string

	DescriptionsFile string
	TagsFile         string
	TemplateFile     string
	CatalogJSON      string
	ProductsCSV      string
	ProductsXLSX     string

	ImageProvider string
	ImageDir      string
	ImageBaseURL  string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	GoogleRefreshToken string
	DriveRateLimitRPS  int
	DriveTimeoutMs     int

	ShopifyStore  string
	ShopifyAPIKey string
	PushEnabled   bool
	PushCommand   string
	PushArgs      []string

	ServerAddr     string
	ServerUploadMB int

	LogLevel  string
	LogFormat string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	inputDir := getEnv("INPUT_DIR", filepath.Join(cwd, "input"))
	outputDir := getEnv("OUTPUT_DIR", filepath.Join(cwd, "output"))

	cfg := Config{
		InputDir:  inputDir,
		OutputDir: outputDir,
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "runs.db")),

		DescriptionsFile: getEnv("DESCRIPTIONS_FILE", filepath.Join(inputDir, "descriptions.docx")),
		TagsFile:         getEnv("TAGS_FILE", filepath.Join(inputDir, "tags.xlsx")),
		TemplateFile:     getEnv("TEMPLATE_FILE", filepath.Join(inputDir, "template.xlsx")),
		CatalogJSON:      getEnv("CATALOG_JSON", filepath.Join(outputDir, "extracted-data.json")),
		ProductsCSV:      getEnv("PRODUCTS_CSV", filepath.Join(outputDir, "shopify-products.csv")),
		ProductsXLSX:     getEnv("PRODUCTS_XLSX", ""),

		ImageProvider: strings.ToLower(getEnv("IMAGE_PROVIDER", "drive")),
		ImageDir:      getEnv("IMAGE_DIR", filepath.Join(inputDir, "images")),
		ImageBaseURL:  getEnv("IMAGE_BASE_URL", ""),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GoogleRefreshToken: getEnv("GOOGLE_REFRESH_TOKEN", ""),
		DriveRateLimitRPS:  getEnvInt("DRIVE_RATE_LIMIT_RPS", 5),
		DriveTimeoutMs:     getEnvInt("DRIVE_TIMEOUT_MS", 30000),

		ShopifyStore:  getEnv("SHOPIFY_STORE", ""),
		ShopifyAPIKey: getEnv("SHOPIFY_API_KEY", ""),
		PushEnabled:   getEnvBool("PUSH_ENABLED", true),
		PushCommand:   getEnv("PUSH_COMMAND", "npx"),
		PushArgs:      getEnvList("PUSH_ARGS", []string{"altera"}),

		ServerAddr:     getEnv("SERVER_ADDR", ":3000"),
		ServerUploadMB: getEnvInt("SERVER_UPLOAD_MB", 32),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

// getEnvList splits a whitespace-separated value. An explicitly empty variable yields
// an empty list.
func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return strings.Fields(value)
}
