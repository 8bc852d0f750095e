package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"alertTradeBot/config"
	"alertTradeBot/internal/admission"
	"alertTradeBot/internal/adapters/binanceclient"
	"alertTradeBot/internal/adapters/logger"
	"alertTradeBot/internal/adapters/telegram"
	"alertTradeBot/internal/app"
	"alertTradeBot/internal/ledger"
	"alertTradeBot/internal/parser"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Exchange Client (Binance Adapter)
	venue, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(context.Background(), "Binance client initialized")

	// 4. Initialize Telegram (alert source + notifier share one bot)
	bot, err := telegram.NewBot(cfg.TelegramBotToken)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Telegram bot")
		log.Fatalf("FATAL: Failed to initialize Telegram bot: %v", err)
	}
	alertSource, err := telegram.NewSource(context.Background(), telegram.SourceConfig{
		Bot:    bot,
		ChatID: cfg.TelegramAlertChatID,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to start Telegram alert source")
		log.Fatalf("FATAL: Failed to start Telegram alert source: %v", err)
	}
	defer func() {
		if err := alertSource.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing Telegram alert source")
		}
	}()
	notifier, err := telegram.NewNotifier(telegram.NotifierConfig{
		Bot:     bot,
		ChatID:  cfg.TelegramNotifyChatID,
		Logger:  appLogger,
		Enabled: cfg.NotificationsEnabled,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Telegram notifier")
		log.Fatalf("FATAL: Failed to initialize Telegram notifier: %v", err)
	}
	appLogger.Info(context.Background(), "Telegram adapters initialized")

	// 5. Initialize Parser, Ledger and Admission Pipeline
	mapping, err := parser.MappingForVersion(cfg.DirectionMapping)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Invalid direction mapping")
		log.Fatalf("FATAL: Invalid direction mapping: %v", err)
	}
	sigParser := parser.New(parser.Config{
		Mapping:  mapping,
		Location: cfg.Location,
	})
	book := ledger.New(appLogger)
	pipeline := admission.New(admission.Config{
		SpreadFilterEnabled: cfg.SpreadFilterEnabled,
		MinSpreadPercent:    cfg.MinSpreadPercent,
		BlockedSymbols:      cfg.BlockedSymbols,
		TradingHoursEnabled: cfg.TradingHoursEnabled,
		StartHour:           cfg.TradingStartHour,
		EndHour:             cfg.TradingEndHour,
		Location:            cfg.Location,
		MaxOpenPositions:    cfg.MaxOpenPositions,
		MaxDailyTrades:      cfg.MaxDailyTrades,
	}, book, venue, appLogger)
	appLogger.Info(context.Background(), "Signal pipeline initialized", map[string]interface{}{
		"directionMapping": cfg.DirectionMapping,
		"dryRun":           cfg.DryRun,
	})

	// 6. Initialize Application Service
	service, err := app.New(cfg, appLogger, venue, notifier, alertSource, sigParser, book, pipeline)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trading service")
		log.Fatalf("FATAL: Failed to initialize trading service: %v", err)
	}
	appLogger.Info(context.Background(), "Trading service initialized")

	// 7. Start the Service
	if err := service.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Trading service exited with error")
		log.Fatalf("FATAL: Trading service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
