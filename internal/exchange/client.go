package exchange

import (
	"context"

	"github.com/skalibog/rsibot/pkg/models"
)

// Client интерфейс биржи, которым пользуется движок.
// Все вызовы синхронные и могут вернуть сетевую, TLS ошибку,
// ошибку разбора ответа или отказ биржи.
type Client interface {
	// Рынки и данные
	ListMarkets(ctx context.Context) ([]models.MarketPair, error)
	GetTicker(ctx context.Context, pair models.MarketPair) (*models.Ticker, error)
	GetCandles(ctx context.Context, pair models.MarketPair, interval string, limit int) ([]*models.Candle, error)

	// Ордера
	PlaceBuy(ctx context.Context, pair models.MarketPair, quoteAmount float64) (*models.Order, error)
	PlaceSell(ctx context.Context, pair models.MarketPair, quantity float64) (*models.Order, error)
	GetOrder(ctx context.Context, pair models.MarketPair, orderID string) (*models.Order, error)

	// Баланс
	GetBalance(ctx context.Context, asset string) (float64, error)
	GetBalances(ctx context.Context) (map[string]float64, error)
}
