package trader

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/skalibog/rsibot/internal/analysis/technical"
	"github.com/skalibog/rsibot/internal/config"
	"github.com/skalibog/rsibot/internal/exchange"
	"github.com/skalibog/rsibot/internal/pause"
	"github.com/skalibog/rsibot/internal/storage"
	"github.com/skalibog/rsibot/pkg/logger"
	"github.com/skalibog/rsibot/pkg/models"
	"go.uber.org/zap"
)

// orderPollInterval интервал опроса статуса ордера
const orderPollInterval = time.Second

// Notifier получает события движка
type Notifier interface {
	Notify(event models.Event)
}

type indicatorSource interface {
	Calculate(ctx context.Context, pair models.MarketPair) (*models.Indicators, error)
}

// Trader движок торговых решений и пауз
type Trader struct {
	config    *config.Config
	client    exchange.Client
	analyzer  indicatorSource
	pauses    *pause.Store
	positions *Positions
	notifier  Notifier
	journal   storage.Storage

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewTrader создает движок. Хранилище пауз передается снаружи, чтобы тесты управляли временем.
func NewTrader(cfg *config.Config, client exchange.Client, pauses *pause.Store, notifier Notifier, journal storage.Storage) *Trader {
	if journal == nil {
		journal = storage.NopStorage{}
	}
	return &Trader{
		config:    cfg,
		client:    client,
		analyzer:  technical.NewAnalyzer(cfg.Trading, client),
		pauses:    pauses,
		positions: NewPositions(),
		notifier:  notifier,
		journal:   journal,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// Positions возвращает открытые позиции по символу
func (t *Trader) Positions() []*models.OpenPosition {
	return t.positions.Sorted()
}

// Initialise выводит заголовок и подхватывает позиции из баланса счета
func (t *Trader) Initialise(ctx context.Context) error {
	pairs, err := t.trackedMarkets(ctx)
	if err != nil {
		return err
	}

	t.notify(ctx, models.HeaderEvent{Markets: len(pairs), Quote: t.config.Trading.QuoteAsset})

	balances, err := t.client.GetBalances(ctx)
	if err != nil {
		return fmt.Errorf("ошибка получения балансов: %w", err)
	}

	for _, pair := range pairs {
		amount := balances[pair.Base]
		if amount <= 0 || t.positions.Has(pair.Symbol) {
			continue
		}

		ticker, err := t.client.GetTicker(ctx, pair)
		if err != nil {
			return fmt.Errorf("ошибка получения цены %s: %w", pair.Symbol, err)
		}
		if amount*ticker.Last < t.config.Trading.DustValue {
			continue
		}

		t.positions.Add(&models.OpenPosition{
			Pair:             pair,
			Quantity:         amount,
			AcquisitionPrice: ticker.Last,
			AcquiredAt:       t.now(),
		})
		logger.Info("Найдена открытая позиция",
			zap.String("pair", pair.String()),
			zap.Float64("quantity", amount),
			zap.Float64("price", ticker.Last))
	}

	return nil
}

// RunCycle выполняет один цикл: паузы, покупки, продажи
func (t *Trader) RunCycle(ctx context.Context) error {
	t.AnalysePauses(ctx)

	if err := t.AnalyseBuys(ctx); err != nil {
		return err
	}
	return t.AnalyseSells(ctx)
}

// AnalysePauses снимает истекшие паузы
func (t *Trader) AnalysePauses(ctx context.Context) {
	for _, key := range t.pauses.Expired() {
		t.pauses.Resume(key)
		t.notify(ctx, models.ResumeEvent{
			Kind:  key.Kind,
			Scope: key.Scope,
			Quote: t.config.Trading.QuoteAsset,
		})
	}
}

// AnalyseBuys проверяет отслеживаемые рынки на условия покупки
func (t *Trader) AnalyseBuys(ctx context.Context) error {
	if t.pauses.IsPaused(models.GlobalPause(models.PauseBalance)) ||
		t.pauses.IsPaused(models.GlobalPause(models.PauseBuy)) {
		return nil
	}

	pairs, err := t.trackedMarkets(ctx)
	if err != nil {
		if exchange.IsRejected(err) {
			t.notify(ctx, models.ErrorEvent{Kind: models.ErrorMarket, Message: exchange.RejectMessage(err)})
			return nil
		}
		return err
	}

	buy := t.config.Buy
	for _, pair := range pairs {
		if t.positions.Has(pair.Symbol) || t.pauses.IsPaused(models.PairPause(pair, models.PauseBuy)) {
			continue
		}
		if t.positions.Len() >= buy.MaxOpenTrades {
			logger.Debug("Достигнут лимит открытых сделок", zap.Int("max_open_trades", buy.MaxOpenTrades))
			return nil
		}

		ind, err := t.indicators(ctx, pair)
		if err != nil {
			return err
		}
		if ind == nil {
			continue
		}

		if ind.Volume24h < buy.MinVolume24h || ind.Price < buy.MinUnitPrice {
			continue
		}

		if ind.RSI <= buy.RSIThreshold {
			stop, err := t.buy(ctx, ind)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
			continue
		}

		t.notify(ctx, models.NoBuyEvent{Pair: pair, Price: ind.Price, RSI: ind.RSI, Volume24h: ind.Volume24h})

		p := t.config.Pause.Buy
		if p.RSIThreshold != 0 && ind.RSI > p.RSIThreshold && p.Minutes != 0 {
			duration := config.Minutes(p.Minutes)
			if t.pauses.Pause(models.GlobalPause(models.PauseBuy), duration) {
				t.notify(ctx, models.PauseEvent{
					Kind:      models.PauseBuy,
					Pair:      pair,
					RSI:       ind.RSI,
					Volume24h: ind.Volume24h,
					Duration:  duration,
				})
				return nil
			}
		}
	}

	return nil
}

// buy размещает покупку. true означает, что проход покупок нужно завершить.
func (t *Trader) buy(ctx context.Context, ind *models.Indicators) (bool, error) {
	order, err := t.client.PlaceBuy(ctx, ind.Pair, t.config.Buy.TradeAmount)
	if err != nil {
		switch {
		case exchange.IsInsufficientBalance(err):
			duration := config.Minutes(t.config.Pause.Balance.Minutes)
			t.pauses.Pause(models.GlobalPause(models.PauseBalance), duration)
			t.notify(ctx, models.ErrorEvent{
				Kind:    models.ErrorBalance,
				Pair:    ind.Pair,
				Message: exchange.RejectMessage(err),
				RetryIn: duration,
			})
			return true, nil
		case exchange.IsRejected(err):
			t.notify(ctx, models.ErrorEvent{Kind: models.ErrorBuy, Pair: ind.Pair, Message: exchange.RejectMessage(err)})
			return false, nil
		}
		return false, err
	}

	order, err = t.awaitFill(ctx, order)
	if err != nil {
		return false, err
	}
	if !order.Filled() {
		t.notifyOrderTimeout(ctx, order)
	}
	// Рыночный ордер может завершиться со статусом EXPIRED после частичного
	// исполнения. Купленные монеты все равно становятся позицией.
	if order.ExecutedQuantity <= 0 {
		return false, nil
	}

	price := order.AveragePrice
	if price <= 0 {
		price = ind.Price
	}
	t.positions.Add(&models.OpenPosition{
		Pair:             ind.Pair,
		Quantity:         order.ExecutedQuantity,
		AcquisitionPrice: price,
		AcquiredAt:       t.now(),
		OrderID:          order.ID,
	})
	t.notify(ctx, models.BuyEvent{
		Pair:      ind.Pair,
		Price:     price,
		RSI:       ind.RSI,
		Volume24h: ind.Volume24h,
		Quantity:  order.ExecutedQuantity,
	})
	return false, nil
}

// AnalyseSells проверяет открытые позиции на условия продажи
func (t *Trader) AnalyseSells(ctx context.Context) error {
	for _, pos := range t.positions.Sorted() {
		if t.pauses.IsPaused(models.PairPause(pos.Pair, models.PauseSell)) {
			continue
		}

		balance, err := t.client.GetBalance(ctx, pos.Pair.Base)
		if err != nil {
			return fmt.Errorf("ошибка получения баланса %s: %w", pos.Pair.Base, err)
		}
		if balance <= 0 {
			logger.Warn("Позиция закрыта вне бота",
				zap.String("pair", pos.Pair.String()),
				zap.Float64("quantity", pos.Quantity))
			t.positions.Remove(pos.Pair.Symbol)
			continue
		}
		pos.Quantity = math.Min(pos.Quantity, balance)

		ind, err := t.indicators(ctx, pos.Pair)
		if err != nil {
			return err
		}
		if ind == nil {
			continue
		}

		margin := pos.ProfitMargin(ind.Price)
		if reason, ok := t.sellReason(ind.RSI, margin); ok {
			if err := t.sell(ctx, pos, ind, margin, reason); err != nil {
				return err
			}
			continue
		}

		p := t.config.Pause.Sell
		if margin >= 0 && margin < t.config.Sell.MinProfitMarginThreshold &&
			margin < p.ProfitMarginThreshold && p.Minutes != 0 {
			duration := config.Minutes(p.Minutes)
			if t.pauses.Pause(models.PairPause(pos.Pair, models.PauseSell), duration) {
				t.notify(ctx, models.PauseEvent{
					Kind:     models.PauseSell,
					Pair:     pos.Pair,
					RSI:      ind.RSI,
					Margin:   margin,
					Duration: duration,
				})
				continue
			}
		}

		t.notify(ctx, models.NoSellEvent{Pair: pos.Pair, Price: ind.Price, RSI: ind.RSI, Margin: margin})
	}

	return nil
}

// sellReason проверяет правила продажи по приоритету: убыток, потолок прибыли, RSI
func (t *Trader) sellReason(rsi, margin float64) (models.SellReason, bool) {
	sell := t.config.Sell
	switch {
	case margin <= sell.LossMarginThreshold:
		return models.SellLossCut, true
	case margin >= sell.ProfitMarginThreshold:
		return models.SellProfitCeiling, true
	case rsi >= sell.RSIThreshold && margin >= sell.MinProfitMarginThreshold:
		return models.SellRSIProfit, true
	}
	return 0, false
}

func (t *Trader) sell(ctx context.Context, pos *models.OpenPosition, ind *models.Indicators, margin float64, reason models.SellReason) error {
	order, err := t.client.PlaceSell(ctx, pos.Pair, pos.Quantity)
	if err != nil {
		if errors.Is(err, exchange.ErrQuantityTooSmall) {
			logger.Warn("Остаток меньше шага лота, позиция снята",
				zap.String("pair", pos.Pair.String()),
				zap.Float64("quantity", pos.Quantity))
			t.positions.Remove(pos.Pair.Symbol)
			return nil
		}
		if exchange.IsRejected(err) {
			t.notify(ctx, models.ErrorEvent{Kind: models.ErrorSell, Pair: pos.Pair, Message: exchange.RejectMessage(err)})
			return nil
		}
		return err
	}

	order, err = t.awaitFill(ctx, order)
	if err != nil {
		return err
	}
	if !order.Filled() {
		t.notifyOrderTimeout(ctx, order)
		// Непроданный остаток сверяется с балансом в следующем цикле
		if order.Done() && order.ExecutedQuantity > 0 {
			pos.Quantity = math.Max(0, pos.Quantity-order.ExecutedQuantity)
		}
		return nil
	}

	price := order.AveragePrice
	if price <= 0 {
		price = ind.Price
	}
	t.positions.Remove(pos.Pair.Symbol)
	t.notify(ctx, models.SellEvent{
		Pair:   pos.Pair,
		Price:  price,
		RSI:    ind.RSI,
		Margin: margin,
		Reason: reason,
	})
	return nil
}

// awaitFill опрашивает ордер, пока он не завершится или не истечет время ожидания
func (t *Trader) awaitFill(ctx context.Context, order *models.Order) (*models.Order, error) {
	deadline := t.now().Add(t.config.OrderTimeout())
	for !order.Done() {
		if !t.now().Before(deadline) {
			return order, nil
		}
		if err := t.sleep(ctx, orderPollInterval); err != nil {
			return nil, err
		}

		next, err := t.client.GetOrder(ctx, order.Pair, order.ID)
		if err != nil {
			return nil, fmt.Errorf("ошибка проверки ордера %s: %w", order.ID, err)
		}
		order = next
	}
	return order, nil
}

func (t *Trader) notifyOrderTimeout(ctx context.Context, order *models.Order) {
	t.notify(ctx, models.ErrorEvent{
		Kind:    models.ErrorOrder,
		Pair:    order.Pair,
		Message: string(order.Status),
		OrderID: order.ID,
		Timeout: t.config.OrderTimeout(),
	})
}

// indicators рассчитывает индикаторы пары. nil без ошибки означает пропуск пары в этом цикле.
func (t *Trader) indicators(ctx context.Context, pair models.MarketPair) (*models.Indicators, error) {
	ind, err := t.analyzer.Calculate(ctx, pair)
	switch {
	case err == nil:
	case errors.Is(err, technical.ErrDataUnavailable):
		logger.Debug("Пропуск пары: нет данных", zap.String("pair", pair.String()), zap.Error(err))
		return nil, nil
	case exchange.IsRejected(err):
		t.notify(ctx, models.ErrorEvent{Kind: models.ErrorCoinMarket, Pair: pair, Message: exchange.RejectMessage(err)})
		return nil, nil
	default:
		return nil, err
	}

	if err := t.journal.SaveIndicators(ctx, ind); err != nil {
		logger.Warn("Ошибка записи индикаторов", zap.Error(err))
	}
	return ind, nil
}

// trackedMarkets возвращает рынки валюты котировки с учетом белого и черного списков
func (t *Trader) trackedMarkets(ctx context.Context) ([]models.MarketPair, error) {
	pairs, err := t.client.ListMarkets(ctx)
	if err != nil {
		return nil, err
	}

	whitelist := toSet(t.config.Trading.Symbols)
	blacklist := toSet(t.config.Trading.Blacklist)

	tracked := make([]models.MarketPair, 0, len(pairs))
	for _, pair := range pairs {
		if pair.Quote != t.config.Trading.QuoteAsset {
			continue
		}
		if len(whitelist) > 0 && !whitelist[pair.Symbol] {
			continue
		}
		if blacklist[pair.Symbol] {
			continue
		}
		tracked = append(tracked, pair)
	}
	return tracked, nil
}

func (t *Trader) notify(ctx context.Context, event models.Event) {
	t.notifier.Notify(event)
	if err := t.journal.SaveEvent(ctx, event); err != nil {
		logger.Warn("Ошибка записи события", zap.Error(err))
	}
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
