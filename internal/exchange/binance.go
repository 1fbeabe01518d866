package exchange

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skalibog/rsibot/internal/config"
	"github.com/skalibog/rsibot/pkg/logger"
	"github.com/skalibog/rsibot/pkg/models"
	"go.uber.org/zap"
)

// ErrQuantityTooSmall количество после округления до шага лота равно нулю
var ErrQuantityTooSmall = errors.New("количество меньше шага лота")

// quotePrecision точность суммы в валюте рынка по умолчанию
const quotePrecision = 8

// BinanceClient клиент спотового рынка Binance
type BinanceClient struct {
	client    *binance.Client
	stepSizes map[string]decimal.Decimal // symbol -> шаг лота
	precision map[string]int32           // symbol -> точность валюты рынка
}

// NewBinanceClient создает новый клиент Binance
func NewBinanceClient(cfg config.BinanceConfig) (*BinanceClient, error) {
	if cfg.Testnet {
		binance.UseTestnet = true
	}
	spotClient := binance.NewClient(cfg.APIKey, cfg.APISecret)

	return newBinanceClient(spotClient), nil
}

func newBinanceClient(client *binance.Client) *BinanceClient {
	return &BinanceClient{
		client:    client,
		stepSizes: make(map[string]decimal.Decimal),
		precision: make(map[string]int32),
	}
}

// ListMarkets возвращает торгуемые пары и запоминает шаги лотов
func (c *BinanceClient) ListMarkets(ctx context.Context) ([]models.MarketPair, error) {
	info, err := c.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка рынков: %w", err)
	}

	pairs := make([]models.MarketPair, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if string(s.Status) != "TRADING" {
			continue
		}

		if lot := s.LotSizeFilter(); lot != nil {
			step, err := decimal.NewFromString(lot.StepSize)
			if err != nil {
				return nil, fmt.Errorf("%w: stepSize %s: %v", ErrInvalidValue, s.Symbol, err)
			}
			c.stepSizes[s.Symbol] = step
		}
		if s.QuoteAssetPrecision > 0 {
			c.precision[s.Symbol] = int32(s.QuoteAssetPrecision)
		}

		pairs = append(pairs, models.MarketPair{
			Symbol: s.Symbol,
			Base:   s.BaseAsset,
			Quote:  s.QuoteAsset,
		})
	}

	return pairs, nil
}

// GetTicker получает текущие цены и объем пары одним запросом статистики 24ч
func (c *BinanceClient) GetTicker(ctx context.Context, pair models.MarketPair) (*models.Ticker, error) {
	stats, err := c.priceChangeStats(ctx, pair)
	if err != nil {
		return nil, err
	}

	bid, err := parseFloat("bidPrice", stats.BidPrice)
	if err != nil {
		return nil, err
	}
	ask, err := parseFloat("askPrice", stats.AskPrice)
	if err != nil {
		return nil, err
	}
	last, err := parseFloat("lastPrice", stats.LastPrice)
	if err != nil {
		return nil, err
	}
	volume, err := parseFloat("quoteVolume", stats.QuoteVolume)
	if err != nil {
		return nil, err
	}

	return &models.Ticker{Bid: bid, Ask: ask, Last: last, Volume24h: volume}, nil
}

func (c *BinanceClient) priceChangeStats(ctx context.Context, pair models.MarketPair) (*binance.PriceChangeStats, error) {
	stats, err := c.client.NewListPriceChangeStatsService().Symbol(pair.Symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики %s: %w", pair.Symbol, err)
	}
	if len(stats) == 0 || stats[0] == nil {
		return nil, fmt.Errorf("%w: статистика 24ч для %s", ErrMissingKey, pair.Symbol)
	}
	return stats[0], nil
}

// GetCandles получает исторические свечи, старые идут первыми
func (c *BinanceClient) GetCandles(ctx context.Context, pair models.MarketPair, interval string, limit int) ([]*models.Candle, error) {
	klines, err := c.client.NewKlinesService().
		Symbol(pair.Symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения свечей: %w", err)
	}

	candles := make([]*models.Candle, 0, len(klines))
	for _, k := range klines {
		open, err := parseFloat("open", k.Open)
		if err != nil {
			return nil, err
		}
		high, err := parseFloat("high", k.High)
		if err != nil {
			return nil, err
		}
		low, err := parseFloat("low", k.Low)
		if err != nil {
			return nil, err
		}
		closePrice, err := parseFloat("close", k.Close)
		if err != nil {
			return nil, err
		}
		volume, err := parseFloat("volume", k.Volume)
		if err != nil {
			return nil, err
		}

		candles = append(candles, &models.Candle{
			Symbol:    pair.Symbol,
			Interval:  interval,
			OpenTime:  time.UnixMilli(k.OpenTime),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
			CloseTime: time.UnixMilli(k.CloseTime),
		})
	}

	return candles, nil
}

// PlaceBuy размещает рыночную покупку на сумму в валюте рынка
func (c *BinanceClient) PlaceBuy(ctx context.Context, pair models.MarketPair, quoteAmount float64) (*models.Order, error) {
	precision, ok := c.precision[pair.Symbol]
	if !ok {
		precision = quotePrecision
	}
	amount := decimal.NewFromFloat(quoteAmount).Truncate(precision)

	res, err := c.client.NewCreateOrderService().
		Symbol(pair.Symbol).
		Side(binance.SideTypeBuy).
		Type(binance.OrderTypeMarket).
		QuoteOrderQty(amount.String()).
		NewClientOrderID(uuid.NewString()).
		NewOrderRespType(binance.NewOrderRespTypeFULL).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка покупки %s: %w", pair.Symbol, err)
	}

	logger.Debug("Ордер на покупку размещен",
		zap.String("symbol", pair.Symbol),
		zap.Int64("order_id", res.OrderID),
		zap.String("status", string(res.Status)))

	return newOrder(pair, models.SideBuy, res.OrderID, res.ClientOrderID, string(res.Status),
		res.ExecutedQuantity, res.CummulativeQuoteQuantity, res.TransactTime)
}

// PlaceSell размещает рыночную продажу, количество округляется вниз до шага лота
func (c *BinanceClient) PlaceSell(ctx context.Context, pair models.MarketPair, quantity float64) (*models.Order, error) {
	qty := decimal.NewFromFloat(quantity)
	if step, ok := c.stepSizes[pair.Symbol]; ok && step.IsPositive() {
		qty = qty.Div(step).Floor().Mul(step)
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%w: %s %v", ErrQuantityTooSmall, pair.Symbol, quantity)
	}

	res, err := c.client.NewCreateOrderService().
		Symbol(pair.Symbol).
		Side(binance.SideTypeSell).
		Type(binance.OrderTypeMarket).
		Quantity(qty.String()).
		NewClientOrderID(uuid.NewString()).
		NewOrderRespType(binance.NewOrderRespTypeFULL).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка продажи %s: %w", pair.Symbol, err)
	}

	logger.Debug("Ордер на продажу размещен",
		zap.String("symbol", pair.Symbol),
		zap.Int64("order_id", res.OrderID),
		zap.String("status", string(res.Status)))

	return newOrder(pair, models.SideSell, res.OrderID, res.ClientOrderID, string(res.Status),
		res.ExecutedQuantity, res.CummulativeQuoteQuantity, res.TransactTime)
}

// GetOrder получает состояние ордера
func (c *BinanceClient) GetOrder(ctx context.Context, pair models.MarketPair, orderID string) (*models.Order, error) {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: orderId %q", ErrInvalidValue, orderID)
	}

	o, err := c.client.NewGetOrderService().Symbol(pair.Symbol).OrderID(id).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ордера %s: %w", orderID, err)
	}

	side := models.SideBuy
	if o.Side == binance.SideTypeSell {
		side = models.SideSell
	}
	return newOrder(pair, side, o.OrderID, o.ClientOrderID, string(o.Status),
		o.ExecutedQuantity, o.CummulativeQuoteQuantity, o.Time)
}

// GetBalances возвращает свободные остатки по всем активам
func (c *BinanceClient) GetBalances(ctx context.Context) (map[string]float64, error) {
	account, err := c.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения баланса: %w", err)
	}

	balances := make(map[string]float64, len(account.Balances))
	for _, b := range account.Balances {
		free, err := parseFloat("free", b.Free)
		if err != nil {
			return nil, err
		}
		balances[b.Asset] = free
	}
	return balances, nil
}

// GetBalance возвращает свободный остаток актива, отсутствующий актив равен нулю
func (c *BinanceClient) GetBalance(ctx context.Context, asset string) (float64, error) {
	balances, err := c.GetBalances(ctx)
	if err != nil {
		return 0, err
	}
	return balances[asset], nil
}

func newOrder(pair models.MarketPair, side models.OrderSide, id int64, clientID, status, executed, quote string, ts int64) (*models.Order, error) {
	executedQty, err := decimal.NewFromString(executed)
	if err != nil {
		return nil, fmt.Errorf("%w: executedQty %q", ErrInvalidValue, executed)
	}
	quoteQty, err := decimal.NewFromString(quote)
	if err != nil {
		return nil, fmt.Errorf("%w: cummulativeQuoteQty %q", ErrInvalidValue, quote)
	}

	order := &models.Order{
		ID:               strconv.FormatInt(id, 10),
		ClientOrderID:    clientID,
		Pair:             pair,
		Side:             side,
		Status:           models.OrderStatus(status),
		ExecutedQuantity: executedQty.InexactFloat64(),
		QuoteQuantity:    quoteQty.InexactFloat64(),
		CreatedAt:        time.UnixMilli(ts),
	}
	if executedQty.IsPositive() {
		order.AveragePrice = quoteQty.Div(executedQty).InexactFloat64()
	}
	return order, nil
}

func parseFloat(field, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %v", ErrInvalidValue, field, value, err)
	}
	return f, nil
}
