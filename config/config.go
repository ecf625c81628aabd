package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	AppName     = "item-publisher"
	EnvFileName = "config.env"
)

// Environment keys.
const (
	KeyOutputDir          = "OUTPUT_DIR"
	KeyBackgroundImage    = "BACKGROUND_IMAGE_PATH"
	KeySaveHueInName      = "SAVE_HUE_IN_NAME"
	KeyCatalogURL         = "CATALOG_API_URL"
	KeyUploadEnabled      = "UPLOAD_TO_API"
	KeyDefaultPrice       = "DEFAULT_PRICE"
	KeyCatalogToken       = "CATALOG_API_TOKEN"
	KeyCatalogTimeout     = "CATALOG_TIMEOUT"
	KeyDescriptionFilters = "DESCRIPTION_FILTERS"
	KeyEntityLabel        = "ENTITY_LABEL"
	KeyInventoryPath      = "INVENTORY_PATH"
	KeySpriteDir          = "SPRITE_DIR"
	KeyPropertyWait       = "PROPERTY_WAIT"
	KeyLogLevel           = "LOG_LEVEL"
	KeyLogFile            = "LOG_FILE"
)

// Config is built once at startup and never modified afterwards.
type Config struct {
	OutputDir           string `validate:"required"`
	BackgroundImagePath string `validate:"required"`
	HueInName           bool
	CatalogURL          string `validate:"required_if=UploadEnabled true,omitempty,url"`
	UploadEnabled       bool
	DefaultPrice        string `validate:"required"`
	CatalogToken        string
	CatalogTimeout      time.Duration `validate:"gt=0"`
	DescriptionFilters  []string
	EntityLabel         string        `validate:"required"`
	InventoryPath       string        `validate:"required"`
	SpriteDir           string        `validate:"required"`
	PropertyWait        time.Duration `validate:"gt=0"`
	LogLevel            string        `validate:"oneof=debug info warn error"`
	LogFile             string
}

// Option adjusts a Config before it is validated.
type Option func(*Config)

// Dir returns the per-user config directory of the app.
func Dir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configBase, AppName), nil
}

// FilePath returns the path of the env file written by the setup wizard.
func FilePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from ./.env and from the config
// file in the user's config directory. Variables already set win. Errors are
// ignored since the files may not exist.
func LoadEnvFile() {
	_ = godotenv.Load(".env")
	if path, err := FilePath(); err == nil {
		_ = godotenv.Load(path)
	}
}

// RequiredKeys lists keys that have no usable default.
var RequiredKeys = []string{KeyBackgroundImage, KeyInventoryPath, KeySpriteDir}

// CheckRequired returns the names of required variables that are unset.
func CheckRequired() []string {
	var missing []string
	for _, k := range RequiredKeys {
		if os.Getenv(k) == "" {
			missing = append(missing, k)
		}
	}
	if UploadEnabled() && os.Getenv(KeyCatalogURL) == "" {
		missing = append(missing, KeyCatalogURL)
	}
	return missing
}

// UploadEnabled reports the UPLOAD_TO_API setting. It defaults to true.
func UploadEnabled() bool {
	return envBool(KeyUploadEnabled, true)
}

// Load reads the configuration from the environment, applies opts and
// validates the result.
func Load(opts ...Option) (*Config, error) {
	var errs []error

	timeout, err := envDuration(KeyCatalogTimeout, 30*time.Second)
	errs = append(errs, err)
	wait, err := envDuration(KeyPropertyWait, time.Second)
	errs = append(errs, err)

	cfg := &Config{
		OutputDir:           envString(KeyOutputDir, "items"),
		BackgroundImagePath: os.Getenv(KeyBackgroundImage),
		HueInName:           envBool(KeySaveHueInName, false),
		CatalogURL:          os.Getenv(KeyCatalogURL),
		UploadEnabled:       UploadEnabled(),
		DefaultPrice:        envString(KeyDefaultPrice, "10.00"),
		CatalogToken:        os.Getenv(KeyCatalogToken),
		CatalogTimeout:      timeout,
		DescriptionFilters:  envList(KeyDescriptionFilters),
		EntityLabel:         envString(KeyEntityLabel, "UO"),
		InventoryPath:       os.Getenv(KeyInventoryPath),
		SpriteDir:           os.Getenv(KeySpriteDir),
		PropertyWait:        wait,
		LogLevel:            strings.ToLower(envString(KeyLogLevel, "info")),
		LogFile:             envString(KeyLogFile, AppName+".log"),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	price, err := NormalizePrice(cfg.DefaultPrice)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.DefaultPrice = price
	}

	if err := validator.New().Struct(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NormalizePrice parses a decimal price and formats it with two decimals.
func NormalizePrice(s string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%s: %q is not a decimal number", KeyDefaultPrice, s)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("%s: %q must not be negative", KeyDefaultPrice, s)
	}
	return d.StringFixed(2), nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envList(key string) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
