package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/skalibog/rsibot/internal/config"
	"github.com/skalibog/rsibot/internal/exchange"
	"github.com/skalibog/rsibot/internal/pause"
	"github.com/skalibog/rsibot/internal/storage"
	"github.com/skalibog/rsibot/internal/supervisor"
	"github.com/skalibog/rsibot/internal/trader"
	"github.com/skalibog/rsibot/internal/ui"
	"github.com/skalibog/rsibot/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	flag.Parse()

	// Загружаем конфигурацию
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации %s: %v\n", *configPath, err)
		return 1
	}

	if err := logger.Init(logger.Options{
		Level:    cfg.Logging.Level,
		File:     cfg.Logging.File,
		JSONFile: cfg.Logging.JSONFile,
		Truncate: cfg.Logging.Truncate,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка инициализации логгера: %v\n", err)
		return 1
	}
	defer logger.Sync()

	for _, warning := range cfg.Warnings() {
		logger.Warn("Несогласованная конфигурация", zap.String("warning", warning))
	}

	// Отмена по сигналу, цикл завершается между проходами
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Инициализируем хранилище
	journal, err := storage.New(cfg.Storage, cfg.Trading.QuoteAsset)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища", zap.Error(err))
		return 1
	}
	defer journal.Close()

	// Инициализируем клиент биржи
	client, err := exchange.NewBinanceClient(cfg.Binance)
	if err != nil {
		logger.Error("Ошибка инициализации клиента биржи", zap.Error(err))
		return 1
	}

	notifier := ui.NewConsoleNotifier(os.Stdout, cfg.Trading.Sound, cfg.Logging.File)
	engine := trader.NewTrader(cfg, client, pause.NewStore(), notifier, journal)
	policy := supervisor.NewRetryPolicy(cfg.Retry.MaxAttempts, cfg.Backoff())

	logger.Info("Бот запущен",
		zap.String("quote", cfg.Trading.QuoteAsset),
		zap.String("interval", cfg.Trading.Interval),
		zap.Bool("testnet", cfg.Binance.Testnet))

	if err := supervisor.New(engine, notifier, policy, cfg.PollInterval()).Run(ctx); err != nil {
		logger.Error("Бот остановлен", zap.Error(err))
		return 1
	}

	fmt.Println("\nЗавершение работы...")
	logger.Info("Бот остановлен по сигналу")
	return 0
}
