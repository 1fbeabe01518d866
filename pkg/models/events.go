package models

import "time"

// Event событие движка для слоя уведомлений.
// Набор вариантов закрыт: реализовать Event можно только в этом пакете.
type Event interface {
	event()
}

// SellReason причина продажи
type SellReason int

const (
	SellLossCut       SellReason = iota // Маржа ниже порога убытка
	SellProfitCeiling                   // Маржа выше потолка прибыли
	SellRSIProfit                       // RSI выше порога при минимальной прибыли
)

func (r SellReason) String() string {
	switch r {
	case SellLossCut:
		return "lossCut"
	case SellProfitCeiling:
		return "profitCeiling"
	case SellRSIProfit:
		return "rsiProfit"
	}
	return "unknown"
}

// HeaderEvent выводится при старте: число отслеживаемых рынков
type HeaderEvent struct {
	Markets int
	Quote   string
}

// BuyEvent успешная покупка
type BuyEvent struct {
	Pair      MarketPair
	Price     float64
	RSI       float64
	Volume24h float64
	Quantity  float64
}

// SellEvent успешная продажа
type SellEvent struct {
	Pair   MarketPair
	Price  float64
	RSI    float64
	Margin float64
	Reason SellReason
}

// NoBuyEvent пара проверена, покупки нет
type NoBuyEvent struct {
	Pair      MarketPair
	Price     float64
	RSI       float64
	Volume24h float64
}

// NoSellEvent позиция проверена, продажи нет
type NoSellEvent struct {
	Pair   MarketPair
	Price  float64
	RSI    float64
	Margin float64
}

// PauseEvent включение паузы.
// Для buy заполнены RSI и Volume24h, для sell Margin и RSI.
type PauseEvent struct {
	Kind      PauseKind
	Pair      MarketPair
	RSI       float64
	Volume24h float64
	Margin    float64
	Duration  time.Duration
}

// ResumeEvent окончание паузы. Scope равен ALL или символу пары.
type ResumeEvent struct {
	Kind  PauseKind
	Scope string
	Quote string
}

// ErrorEvent ошибка с деталями для сообщения
type ErrorEvent struct {
	Kind    ErrorKind
	Pair    MarketPair
	Message string        // Сообщение биржи или текст ошибки
	OrderID string        // Только для ErrorOrder
	Timeout time.Duration // Только для ErrorOrder
	RetryIn time.Duration
	Fatal   bool
}

func (HeaderEvent) event() {}
func (BuyEvent) event()    {}
func (SellEvent) event()   {}
func (NoBuyEvent) event()  {}
func (NoSellEvent) event() {}
func (PauseEvent) event()  {}
func (ResumeEvent) event() {}
func (ErrorEvent) event()  {}
