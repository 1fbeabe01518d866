package models

import (
	"time"
)

// MarketPair представляет торговую пару биржи
type MarketPair struct {
	Symbol string // Символ биржи, например LTCBTC
	Base   string // Торгуемая монета (LTC)
	Quote  string // Валюта рынка (BTC), в ней считаются объем и размер сделки
}

// String возвращает пару в виде BASE/QUOTE
func (p MarketPair) String() string {
	return p.Base + "/" + p.Quote
}

// Candle представляет свечу
type Candle struct {
	Symbol    string
	Interval  string
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// Ticker представляет текущие цены пары и объем за 24 часа в валюте рынка
type Ticker struct {
	Bid       float64
	Ask       float64
	Last      float64
	Volume24h float64
}

// Indicators снимок индикаторов пары за один цикл
type Indicators struct {
	Pair      MarketPair
	Price     float64
	RSI       float64
	Volume24h float64 // В валюте рынка
	Timestamp time.Time
}

// OpenPosition открытая позиция, полученная покупкой
type OpenPosition struct {
	Pair             MarketPair
	Quantity         float64
	AcquisitionPrice float64
	AcquiredAt       time.Time
	OrderID          string
}

// ProfitMargin возвращает маржу в процентах относительно цены покупки
func (p *OpenPosition) ProfitMargin(price float64) float64 {
	if p.AcquisitionPrice <= 0 {
		return 0
	}
	return (price - p.AcquisitionPrice) / p.AcquisitionPrice * 100
}

// OrderSide направление ордера
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderStatus статус ордера на бирже
type OrderStatus string

const (
	OrderNew             OrderStatus = "NEW"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "FILLED"
	OrderCanceled        OrderStatus = "CANCELED"
	OrderRejected        OrderStatus = "REJECTED"
	OrderExpired         OrderStatus = "EXPIRED"
)

// Order представляет ордер, размещенный ботом
type Order struct {
	ID               string
	ClientOrderID    string
	Pair             MarketPair
	Side             OrderSide
	Status           OrderStatus
	ExecutedQuantity float64
	QuoteQuantity    float64
	AveragePrice     float64
	CreatedAt        time.Time
}

// Filled сообщает, исполнен ли ордер полностью
func (o *Order) Filled() bool {
	return o.Status == OrderFilled
}

// Done сообщает, что ордер больше не изменится
func (o *Order) Done() bool {
	switch o.Status {
	case OrderFilled, OrderCanceled, OrderRejected, OrderExpired:
		return true
	}
	return false
}
