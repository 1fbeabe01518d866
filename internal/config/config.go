package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/skalibog/rsibot/pkg/logger"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Значения-заглушки из шаблона конфигурации
const (
	TemplateAPIKey    = "BINANCE_API_KEY"
	TemplateAPISecret = "BINANCE_API_SECRET"
)

// ErrTemplate конфигурация не заполнена после копирования шаблона
var ErrTemplate = errors.New("конфигурация содержит значения из шаблона")

// Config представляет полную конфигурацию приложения
type Config struct {
	Binance BinanceConfig `yaml:"binance"`
	Trading TradingConfig `yaml:"trading"`
	Buy     BuyConfig     `yaml:"buy"`
	Sell    SellConfig    `yaml:"sell"`
	Pause   PauseConfig   `yaml:"pause"`
	Retry   RetryConfig   `yaml:"retry"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// BinanceConfig содержит настройки подключения к Binance
type BinanceConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Testnet   bool   `yaml:"testnet"`
}

// TradingConfig общие настройки торговли
type TradingConfig struct {
	QuoteAsset          string   `yaml:"quote_asset"`
	Interval            string   `yaml:"interval"`
	RSIPeriod           int      `yaml:"rsi_period"`
	CandleLimit         int      `yaml:"candle_limit"`
	PollIntervalSeconds int      `yaml:"poll_interval_seconds"`
	OrderTimeoutSeconds int      `yaml:"order_timeout_seconds"`
	DustValue           float64  `yaml:"dust_value"`
	Symbols             []string `yaml:"symbols"`
	Blacklist           []string `yaml:"blacklist"`
	Sound               bool     `yaml:"sound"`
}

// BuyConfig пороги покупки
type BuyConfig struct {
	TradeAmount   float64 `yaml:"trade_amount"`
	RSIThreshold  float64 `yaml:"rsi_threshold"`
	MinVolume24h  float64 `yaml:"min_volume_24h"`
	MinUnitPrice  float64 `yaml:"min_unit_price"`
	MaxOpenTrades int     `yaml:"max_open_trades"`
}

// SellConfig пороги продажи
type SellConfig struct {
	LossMarginThreshold      float64 `yaml:"loss_margin_threshold"`
	RSIThreshold             float64 `yaml:"rsi_threshold"`
	MinProfitMarginThreshold float64 `yaml:"min_profit_margin_threshold"`
	ProfitMarginThreshold    float64 `yaml:"profit_margin_threshold"`
}

// PauseConfig настройки пауз. Значение 0 отключает категорию.
type PauseConfig struct {
	Buy     BuyPauseConfig     `yaml:"buy"`
	Sell    SellPauseConfig    `yaml:"sell"`
	Balance BalancePauseConfig `yaml:"balance"`
}

// BuyPauseConfig пауза покупок при перегретом рынке
type BuyPauseConfig struct {
	RSIThreshold float64 `yaml:"rsi_threshold"`
	Minutes      float64 `yaml:"minutes"`
}

// SellPauseConfig пауза продаж при низкой марже
type SellPauseConfig struct {
	ProfitMarginThreshold float64 `yaml:"profit_margin_threshold"`
	Minutes               float64 `yaml:"minutes"`
}

// BalancePauseConfig пауза покупок при нехватке средств
type BalancePauseConfig struct {
	Minutes float64 `yaml:"minutes"`
}

// RetryConfig политика повтора цикла
type RetryConfig struct {
	MaxAttempts    int `yaml:"max_attempts"`
	BackoffSeconds int `yaml:"backoff_seconds"`
}

// StorageConfig настройки хранения метрик
type StorageConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
}

// LoggingConfig настройки логирования
type LoggingConfig struct {
	Level    string `yaml:"level"`
	File     string `yaml:"file"`
	JSONFile string `yaml:"json_file"`
	Truncate bool   `yaml:"truncate"`
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	return &Config{
		Trading: TradingConfig{
			QuoteAsset:          "BTC",
			Interval:            "5m",
			RSIPeriod:           14,
			CandleLimit:         100,
			PollIntervalSeconds: 10,
			OrderTimeoutSeconds: 30,
			DustValue:           0.0001,
		},
		Buy: BuyConfig{
			TradeAmount:   0.001,
			RSIThreshold:  20,
			MinVolume24h:  25,
			MinUnitPrice:  0.00001,
			MaxOpenTrades: 3,
		},
		Sell: SellConfig{
			LossMarginThreshold:      -2.5,
			RSIThreshold:             50,
			MinProfitMarginThreshold: 0.5,
			ProfitMarginThreshold:    2.5,
		},
		Retry: RetryConfig{
			BackoffSeconds: 10,
		},
		Logging: LoggingConfig{
			Level:    "info",
			File:     "app.log",
			JSONFile: "app.json.log",
		},
	}
}

// Load загружает конфигурацию из файла
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, err
	}

	logger.Debug("Загружена конфигурация", zap.String("path", path), zap.String("quote", config.Trading.QuoteAsset))
	return config, nil
}

// Parse разбирает YAML поверх значений по умолчанию и проверяет результат
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate проверяет обязательные значения
func (c *Config) Validate() error {
	var err error

	if c.Binance.APIKey == "" || c.Binance.APISecret == "" {
		err = multierr.Append(err, errors.New("binance: не заданы api_key и api_secret"))
	}
	if c.Binance.APIKey == TemplateAPIKey || c.Binance.APISecret == TemplateAPISecret {
		err = multierr.Append(err, fmt.Errorf("binance: %w", ErrTemplate))
	}
	if c.Trading.QuoteAsset == "" {
		err = multierr.Append(err, errors.New("trading.quote_asset: не задан"))
	}
	if c.Trading.Interval == "" {
		err = multierr.Append(err, errors.New("trading.interval: не задан"))
	}
	if c.Trading.RSIPeriod < 2 {
		err = multierr.Append(err, fmt.Errorf("trading.rsi_period: %d меньше 2", c.Trading.RSIPeriod))
	}
	if c.Trading.CandleLimit <= c.Trading.RSIPeriod {
		err = multierr.Append(err, fmt.Errorf("trading.candle_limit: %d должен быть больше rsi_period", c.Trading.CandleLimit))
	}
	if c.Trading.PollIntervalSeconds <= 0 {
		err = multierr.Append(err, errors.New("trading.poll_interval_seconds: должен быть положительным"))
	}
	if c.Trading.OrderTimeoutSeconds <= 0 {
		err = multierr.Append(err, errors.New("trading.order_timeout_seconds: должен быть положительным"))
	}
	if c.Buy.TradeAmount <= 0 {
		err = multierr.Append(err, errors.New("buy.trade_amount: должен быть положительным"))
	}
	if c.Buy.MaxOpenTrades <= 0 {
		err = multierr.Append(err, errors.New("buy.max_open_trades: должен быть положительным"))
	}
	if c.Pause.Buy.Minutes < 0 || c.Pause.Sell.Minutes < 0 || c.Pause.Balance.Minutes < 0 {
		err = multierr.Append(err, errors.New("pause: длительность не может быть отрицательной"))
	}
	if c.Retry.MaxAttempts < 0 {
		err = multierr.Append(err, errors.New("retry.max_attempts: не может быть отрицательным"))
	}
	if c.Retry.BackoffSeconds <= 0 {
		err = multierr.Append(err, errors.New("retry.backoff_seconds: должен быть положительным"))
	}
	if c.Storage.Enabled && (c.Storage.URL == "" || c.Storage.Bucket == "") {
		err = multierr.Append(err, errors.New("storage: для включенного хранилища нужны url и bucket"))
	}

	return err
}

// Warnings возвращает несогласованные пороги. Поведение они не меняют.
func (c *Config) Warnings() []string {
	var warnings []string

	if c.Pause.Buy.RSIThreshold != 0 && c.Pause.Buy.RSIThreshold <= c.Buy.RSIThreshold {
		warnings = append(warnings, fmt.Sprintf(
			"pause.buy.rsi_threshold (%.2f) не больше buy.rsi_threshold (%.2f)",
			c.Pause.Buy.RSIThreshold, c.Buy.RSIThreshold))
	}
	if c.Pause.Buy.Minutes > 0 && c.Pause.Buy.RSIThreshold == 0 {
		warnings = append(warnings, "pause.buy.minutes задан, но pause.buy.rsi_threshold равен 0: пауза покупок не включится")
	}
	if c.Pause.Sell.Minutes > 0 && c.Pause.Sell.ProfitMarginThreshold <= 0 {
		warnings = append(warnings, "pause.sell.minutes задан, но pause.sell.profit_margin_threshold не положителен: пауза продаж не включится")
	}
	if c.Sell.LossMarginThreshold >= 0 {
		warnings = append(warnings, fmt.Sprintf(
			"sell.loss_margin_threshold (%.2f) должен быть отрицательным", c.Sell.LossMarginThreshold))
	}
	if c.Sell.ProfitMarginThreshold < c.Sell.MinProfitMarginThreshold {
		warnings = append(warnings, fmt.Sprintf(
			"sell.profit_margin_threshold (%.2f) меньше sell.min_profit_margin_threshold (%.2f)",
			c.Sell.ProfitMarginThreshold, c.Sell.MinProfitMarginThreshold))
	}

	return warnings
}

// PollInterval интервал между циклами
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Trading.PollIntervalSeconds) * time.Second
}

// OrderTimeout время ожидания исполнения ордера
func (c *Config) OrderTimeout() time.Duration {
	return time.Duration(c.Trading.OrderTimeoutSeconds) * time.Second
}

// Backoff пауза перед повтором цикла после ошибки
func (c *Config) Backoff() time.Duration {
	return time.Duration(c.Retry.BackoffSeconds) * time.Second
}

// Minutes переводит минуты конфигурации в длительность
func Minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
