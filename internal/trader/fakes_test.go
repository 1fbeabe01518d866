package trader

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/skalibog/rsibot/internal/config"
	"github.com/skalibog/rsibot/internal/pause"
	"github.com/skalibog/rsibot/pkg/models"
)

var (
	ltc  = models.MarketPair{Symbol: "LTCBTC", Base: "LTC", Quote: "BTC"}
	eth  = models.MarketPair{Symbol: "ETHBTC", Base: "ETH", Quote: "BTC"}
	doge = models.MarketPair{Symbol: "DOGEBTC", Base: "DOGE", Quote: "BTC"}
	xrp  = models.MarketPair{Symbol: "XRPBTC", Base: "XRP", Quote: "BTC"}
	bnb  = models.MarketPair{Symbol: "BNBUSDT", Base: "BNB", Quote: "USDT"}
)

var errInsufficientBalance = &common.APIError{Code: -2010, Message: "Account has insufficient balance for requested action."}

// fakeExchange биржа в памяти. Покупки и продажи исполняются сразу, если не задано иное.
type fakeExchange struct {
	markets    []models.MarketPair
	marketsErr error
	prices     map[string]float64
	balances   map[string]float64
	buyErr     map[string]error
	sellErr    map[string]error
	status     models.OrderStatus // статус новых ордеров и ответов GetOrder
	fill       float64            // доля исполнения ордеров с незавершенным статусом
	nextID     int

	buys     []string
	sells    []string
	sellQty  []float64
	getOrder int
}

func newFakeExchange(markets ...models.MarketPair) *fakeExchange {
	return &fakeExchange{
		markets:  markets,
		prices:   make(map[string]float64),
		balances: make(map[string]float64),
		buyErr:   make(map[string]error),
		sellErr:  make(map[string]error),
		status:   models.OrderFilled,
	}
}

func (f *fakeExchange) ListMarkets(context.Context) ([]models.MarketPair, error) {
	return f.markets, f.marketsErr
}

func (f *fakeExchange) GetTicker(_ context.Context, pair models.MarketPair) (*models.Ticker, error) {
	p := f.prices[pair.Symbol]
	return &models.Ticker{Bid: p, Ask: p, Last: p}, nil
}

func (f *fakeExchange) GetCandles(context.Context, models.MarketPair, string, int) ([]*models.Candle, error) {
	return nil, nil
}

func (f *fakeExchange) PlaceBuy(_ context.Context, pair models.MarketPair, quoteAmount float64) (*models.Order, error) {
	if err := f.buyErr[pair.Symbol]; err != nil {
		return nil, fmt.Errorf("ошибка покупки %s: %w", pair.Symbol, err)
	}
	f.buys = append(f.buys, pair.Symbol)
	price := f.prices[pair.Symbol]
	o := f.order(pair, models.SideBuy, quoteAmount/price, quoteAmount)
	f.balances[pair.Base] += o.ExecutedQuantity
	return o, nil
}

func (f *fakeExchange) PlaceSell(_ context.Context, pair models.MarketPair, quantity float64) (*models.Order, error) {
	if err := f.sellErr[pair.Symbol]; err != nil {
		return nil, fmt.Errorf("ошибка продажи %s: %w", pair.Symbol, err)
	}
	f.sells = append(f.sells, pair.Symbol)
	f.sellQty = append(f.sellQty, quantity)
	o := f.order(pair, models.SideSell, quantity, quantity*f.prices[pair.Symbol])
	f.balances[pair.Base] -= o.ExecutedQuantity
	return o, nil
}

func (f *fakeExchange) GetOrder(_ context.Context, pair models.MarketPair, orderID string) (*models.Order, error) {
	f.getOrder++
	return &models.Order{ID: orderID, Pair: pair, Status: f.status}, nil
}

func (f *fakeExchange) GetBalance(_ context.Context, asset string) (float64, error) {
	return f.balances[asset], nil
}

func (f *fakeExchange) GetBalances(context.Context) (map[string]float64, error) {
	out := make(map[string]float64, len(f.balances))
	for k, v := range f.balances {
		out[k] = v
	}
	return out, nil
}

func (f *fakeExchange) order(pair models.MarketPair, side models.OrderSide, qty, quote float64) *models.Order {
	f.nextID++
	o := &models.Order{
		ID:     strconv.Itoa(f.nextID),
		Pair:   pair,
		Side:   side,
		Status: f.status,
	}
	ratio := f.fill
	if f.status == models.OrderFilled {
		ratio = 1
	}
	if ratio > 0 {
		o.ExecutedQuantity = qty * ratio
		o.QuoteQuantity = quote * ratio
		o.AveragePrice = quote / qty
	}
	return o
}

// fakeIndicators индикаторы, заданные тестом по символу
type fakeIndicators struct {
	values map[string]models.Indicators
	errs   map[string]error
	calls  []string
}

func (f *fakeIndicators) set(pair models.MarketPair, price, rsi, volume float64) {
	f.values[pair.Symbol] = models.Indicators{Pair: pair, Price: price, RSI: rsi, Volume24h: volume}
}

func (f *fakeIndicators) Calculate(_ context.Context, pair models.MarketPair) (*models.Indicators, error) {
	f.calls = append(f.calls, pair.Symbol)
	if err := f.errs[pair.Symbol]; err != nil {
		return nil, err
	}
	ind, ok := f.values[pair.Symbol]
	if !ok {
		return nil, fmt.Errorf("нет индикаторов для %s", pair.Symbol)
	}
	return &ind, nil
}

// recorder сохраняет события в порядке поступления
type recorder struct {
	events []models.Event
}

func (r *recorder) Notify(event models.Event) {
	r.events = append(r.events, event)
}

func (r *recorder) errors() []models.ErrorEvent {
	var out []models.ErrorEvent
	for _, e := range r.events {
		if ev, ok := e.(models.ErrorEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.events = nil
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type harness struct {
	trader   *Trader
	exchange *fakeExchange
	ind      *fakeIndicators
	events   *recorder
	clock    *clock
	pauses   *pause.Store
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Binance.APIKey = "key"
	cfg.Binance.APISecret = "secret"
	return cfg
}

func newHarness(cfg *config.Config, markets ...models.MarketPair) *harness {
	c := &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	ex := newFakeExchange(markets...)
	store := pause.NewStore(pause.WithClock(c.Now))
	events := &recorder{}
	ind := &fakeIndicators{values: make(map[string]models.Indicators), errs: make(map[string]error)}

	tr := NewTrader(cfg, ex, store, events, nil)
	tr.analyzer = ind
	tr.now = c.Now
	tr.sleep = func(_ context.Context, d time.Duration) error {
		c.Advance(d)
		return nil
	}

	return &harness{trader: tr, exchange: ex, ind: ind, events: events, clock: c, pauses: store}
}

// hold открывает позицию напрямую и кладет монеты на баланс
func (h *harness) hold(pair models.MarketPair, qty, price float64) {
	h.trader.positions.Add(&models.OpenPosition{Pair: pair, Quantity: qty, AcquisitionPrice: price})
	h.exchange.balances[pair.Base] += qty
}
