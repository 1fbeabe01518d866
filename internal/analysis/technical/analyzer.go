package technical

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/skalibog/rsibot/internal/config"
	"github.com/skalibog/rsibot/pkg/models"
)

// ErrDataUnavailable данных недостаточно или они некорректны для расчета индикаторов
var ErrDataUnavailable = errors.New("данные для расчета индикаторов недоступны")

// MarketData источник рыночных данных для анализатора
type MarketData interface {
	GetCandles(ctx context.Context, pair models.MarketPair, interval string, limit int) ([]*models.Candle, error)
	GetTicker(ctx context.Context, pair models.MarketPair) (*models.Ticker, error)
}

// Analyzer рассчитывает индикаторы пары за один цикл
type Analyzer struct {
	config config.TradingConfig
	data   MarketData
	now    func() time.Time
}

// NewAnalyzer создает новый анализатор технических индикаторов
func NewAnalyzer(cfg config.TradingConfig, data MarketData) *Analyzer {
	return &Analyzer{
		config: cfg,
		data:   data,
		now:    time.Now,
	}
}

// Calculate получает свечи, цену и объем и возвращает свежий снимок индикаторов
func (a *Analyzer) Calculate(ctx context.Context, pair models.MarketPair) (*models.Indicators, error) {
	candles, err := a.data.GetCandles(ctx, pair, a.config.Interval, a.config.CandleLimit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения свечей %s: %w", pair.Symbol, err)
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	rsi, err := RSI(closes, a.config.RSIPeriod)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pair.Symbol, err)
	}

	ticker, err := a.data.GetTicker(ctx, pair)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения цены %s: %w", pair.Symbol, err)
	}

	return &models.Indicators{
		Pair:      pair,
		Price:     ticker.Last,
		RSI:       rsi,
		Volume24h: ticker.Volume24h,
		Timestamp: a.now(),
	}, nil
}

// RSI рассчитывает индекс относительной силы по Уайлдеру для последней свечи.
// Для периода N нужно минимум N+1 цен закрытия.
func RSI(closes []float64, period int) (float64, error) {
	if period < 2 {
		return 0, fmt.Errorf("%w: период RSI %d", ErrDataUnavailable, period)
	}
	if len(closes) < period+1 {
		return 0, fmt.Errorf("%w: %d свечей при периоде %d", ErrDataUnavailable, len(closes), period)
	}

	falling := false
	for i, c := range closes {
		if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
			return 0, fmt.Errorf("%w: некорректная цена закрытия %v", ErrDataUnavailable, c)
		}
		if i > 0 && c < closes[i-1] {
			falling = true
		}
	}

	// Без падений средний убыток равен нулю
	if !falling {
		return 100, nil
	}

	values := talib.Rsi(closes, period)
	last := values[len(values)-1]
	if math.IsNaN(last) {
		return 0, fmt.Errorf("%w: RSI не определен", ErrDataUnavailable)
	}

	return math.Max(0, math.Min(100, last)), nil
}
