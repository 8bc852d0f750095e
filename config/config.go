package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"alertTradeBot/internal/adapters/logger" // Import the logger package for LogLevel
	"alertTradeBot/internal/domain"
	"alertTradeBot/internal/parser"
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Trading Parameters
	Leverage            int
	PositionSizePercent float64 // percent of balance committed per position
	MarginMode          domain.MarginMode
	BlockedSymbols      []string
	MaxDailyTrades      int
	MaxOpenPositions    int
	DryRun              bool // simulate fills instead of placing venue orders

	// Admission filters
	SpreadFilterEnabled bool
	MinSpreadPercent    float64
	TradingHoursEnabled bool
	TradingStartHour    int // inclusive
	TradingEndHour      int // exclusive, may be below start (wraps midnight)
	Timezone            string
	Location            *time.Location

	// Alert parsing
	DirectionMapping string // v1 (legacy, inverted) or v2

	// Reconciliation
	ReconcileInterval time.Duration

	// Telegram
	TelegramBotToken     string
	TelegramAlertChatID  int64 // chat the alerts arrive on (0 = accept any)
	TelegramNotifyChatID int64
	NotificationsEnabled bool

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	if cfg.APIKey == "" {
		errs = append(errs, "BINANCE_API_KEY must be set")
	}
	if cfg.SecretKey == "" {
		errs = append(errs, "BINANCE_API_SECRET must be set")
	}

	// Trading Parameters
	cfg.Leverage, err = getEnvAsIntRequired("LEVERAGE", 4)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LEVERAGE: %v", err))
	} else if cfg.Leverage <= 0 {
		errs = append(errs, "LEVERAGE must be positive")
	}

	cfg.PositionSizePercent, err = getEnvAsFloatRequired("POSITION_SIZE_PERCENT", 5.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid POSITION_SIZE_PERCENT: %v", err))
	} else if cfg.PositionSizePercent <= 0 || cfg.PositionSizePercent > 100 {
		errs = append(errs, "POSITION_SIZE_PERCENT must be between 0 and 100")
	}

	marginModeStr := strings.ToUpper(getEnv("MARGIN_MODE", "cross"))
	switch marginModeStr {
	case "CROSS", "CROSSED":
		cfg.MarginMode = domain.MarginCross
	case "ISOLATED":
		cfg.MarginMode = domain.MarginIsolated
	default:
		errs = append(errs, fmt.Sprintf("invalid MARGIN_MODE %q (want cross or isolated)", marginModeStr))
	}

	cfg.BlockedSymbols = getEnvAsList("BLOCKED_SYMBOLS")

	cfg.MaxDailyTrades, err = getEnvAsIntRequired("MAX_DAILY_TRADES", 10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_DAILY_TRADES: %v", err))
	} else if cfg.MaxDailyTrades <= 0 {
		errs = append(errs, "MAX_DAILY_TRADES must be positive")
	}

	cfg.MaxOpenPositions, err = getEnvAsIntRequired("MAX_OPEN_POSITIONS", 3)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_OPEN_POSITIONS: %v", err))
	} else if cfg.MaxOpenPositions <= 0 {
		errs = append(errs, "MAX_OPEN_POSITIONS must be positive")
	}

	cfg.DryRun = getEnvAsBool("DRY_RUN", true) // Default to dry-run for safety

	// Admission filters
	cfg.SpreadFilterEnabled = getEnvAsBool("SPREAD_FILTER_ENABLED", false)
	cfg.MinSpreadPercent, err = getEnvAsFloatRequired("MIN_SPREAD_PERCENT", 0.5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_SPREAD_PERCENT: %v", err))
	} else if cfg.MinSpreadPercent < 0 {
		errs = append(errs, "MIN_SPREAD_PERCENT cannot be negative")
	}

	cfg.TradingHoursEnabled = getEnvAsBool("TRADING_HOURS_ENABLED", false)
	cfg.TradingStartHour = getEnvAsInt("TRADING_START_HOUR", 0)
	cfg.TradingEndHour = getEnvAsInt("TRADING_END_HOUR", 24)
	if cfg.TradingStartHour < 0 || cfg.TradingStartHour > 23 {
		errs = append(errs, "TRADING_START_HOUR must be between 0 and 23")
	}
	if cfg.TradingEndHour < 0 || cfg.TradingEndHour > 24 {
		errs = append(errs, "TRADING_END_HOUR must be between 0 and 24")
	}

	cfg.Timezone = getEnv("TRADING_TIMEZONE", "UTC")
	cfg.Location, err = time.LoadLocation(cfg.Timezone)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TRADING_TIMEZONE %q: %v", cfg.Timezone, err))
		cfg.Location = time.UTC
	}

	// Alert parsing
	cfg.DirectionMapping = getEnv("DIRECTION_MAPPING", "v2")
	if _, err := parser.MappingForVersion(cfg.DirectionMapping); err != nil {
		errs = append(errs, fmt.Sprintf("invalid DIRECTION_MAPPING: %v", err))
	}

	// Reconciliation
	reconcileSeconds := getEnvAsInt("RECONCILE_INTERVAL_SECONDS", 30)
	if reconcileSeconds <= 0 {
		errs = append(errs, "RECONCILE_INTERVAL_SECONDS must be positive")
	}
	cfg.ReconcileInterval = time.Duration(reconcileSeconds) * time.Second

	// Telegram
	cfg.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	if cfg.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN must be set")
	}
	cfg.TelegramAlertChatID, err = getEnvAsInt64("TELEGRAM_ALERT_CHAT_ID", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TELEGRAM_ALERT_CHAT_ID: %v", err))
	}
	cfg.TelegramNotifyChatID, err = getEnvAsInt64("TELEGRAM_NOTIFY_CHAT_ID", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TELEGRAM_NOTIFY_CHAT_ID: %v", err))
	}
	cfg.NotificationsEnabled = getEnvAsBool("NOTIFICATIONS_ENABLED", true)
	if cfg.NotificationsEnabled && cfg.TelegramNotifyChatID == 0 {
		errs = append(errs, "TELEGRAM_NOTIFY_CHAT_ID must be set when notifications are enabled")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// For non-required fields, default is acceptable.
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsInt64(key string, defaultValue int64) (int64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.ToUpper(strings.TrimSpace(part)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
