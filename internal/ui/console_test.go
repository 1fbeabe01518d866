package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/skalibog/rsibot/pkg/models"
	"github.com/stretchr/testify/assert"
)

var ltc = models.MarketPair{Symbol: "LTCBTC", Base: "LTC", Quote: "BTC"}

func TestConsoleNotifier_Buy(t *testing.T) {
	var out bytes.Buffer
	n := NewConsoleNotifier(&out, true, "app.log")

	n.Notify(models.BuyEvent{Pair: ltc, Price: 0.0002, RSI: 14.2, Volume24h: 30.7, Quantity: 5})

	text := out.String()
	assert.Contains(t, text, "Покупка LTC/BTC")
	assert.Contains(t, text, "RSI:  15")
	assert.Contains(t, text, "Объем 24ч:    30 BTC")
	assert.Contains(t, text, "Цена: 0.00020000")
	assert.Contains(t, text, "https://www.binance.com/en/trade/LTC_BTC")
	assert.True(t, strings.HasSuffix(text, "\a"))
}

func TestConsoleNotifier_SellWithoutSound(t *testing.T) {
	var out bytes.Buffer
	n := NewConsoleNotifier(&out, false, "app.log")

	n.Notify(models.SellEvent{Pair: ltc, Price: 0.000194, RSI: 80, Margin: -3, Reason: models.SellLossCut})

	text := out.String()
	assert.Contains(t, text, "Продажа LTC/BTC")
	assert.Contains(t, text, "Маржа:  -3.00%")
	assert.Contains(t, text, "Причина: lossCut")
	assert.NotContains(t, text, "\a")
}

func TestConsoleNotifier_NoSellDeduplicates(t *testing.T) {
	var out bytes.Buffer
	n := NewConsoleNotifier(&out, false, "app.log")
	ev := models.NoSellEvent{Pair: ltc, Price: 0.000202, RSI: 40, Margin: 1}

	n.Notify(ev)
	n.Notify(ev)
	assert.Equal(t, 1, strings.Count(out.String(), "Нет продажи"))

	ev.Margin = 1.5
	n.Notify(ev)
	n.Notify(ev)
	assert.Equal(t, 2, strings.Count(out.String(), "Нет продажи"))
}

func TestConsoleNotifier_Pauses(t *testing.T) {
	var out bytes.Buffer
	n := NewConsoleNotifier(&out, false, "app.log")

	n.Notify(models.PauseEvent{Kind: models.PauseBuy, Pair: ltc, RSI: 85.7, Volume24h: 31, Duration: 30 * time.Minute})
	n.Notify(models.PauseEvent{Kind: models.PauseSell, Pair: ltc, RSI: 70, Margin: 0.2, Duration: 15 * time.Minute})
	n.Notify(models.ResumeEvent{Kind: models.PauseBuy, Scope: models.ScopeAll, Quote: "BTC"})
	n.Notify(models.ResumeEvent{Kind: models.PauseSell, Scope: "LTCBTC", Quote: "BTC"})

	text := out.String()
	assert.Contains(t, text, "Пауза покупок после LTC/BTC: RSI 85, объем 24ч 31 BTC, на 30 мин.")
	assert.Contains(t, text, "Пауза продаж LTC/BTC: маржа 0.20%, RSI 70, на 15 мин.")
	assert.Contains(t, text, "Возобновлено отслеживание всех рынков BTC (buy).")
	assert.Contains(t, text, "Возобновлены продажи LTCBTC.")
}

func TestConsoleNotifier_Errors(t *testing.T) {
	tests := []struct {
		name  string
		event models.ErrorEvent
		want  []string
	}{
		{
			name:  "buy rejection",
			event: models.ErrorEvent{Kind: models.ErrorBuy, Pair: ltc, Message: "Filter failure: NOTIONAL"},
			want:  []string{"Не удалось купить на рынке LTC/BTC. Сообщение Binance: Filter failure: NOTIONAL"},
		},
		{
			name:  "order timeout",
			event: models.ErrorEvent{Kind: models.ErrorOrder, Pair: ltc, OrderID: "42", Timeout: 30 * time.Second},
			want:  []string{"Ордер 42 не исполнен за 30 с на рынке LTC/BTC", "trade/LTC_BTC"},
		},
		{
			name:  "order expired",
			event: models.ErrorEvent{Kind: models.ErrorOrder, Pair: ltc, OrderID: "43", Message: "EXPIRED", Timeout: 30 * time.Second},
			want:  []string{"Ордер 43 не исполнен полностью, статус EXPIRED, на рынке LTC/BTC"},
		},
		{
			name:  "balance",
			event: models.ErrorEvent{Kind: models.ErrorBalance, Pair: ltc, RetryIn: time.Hour},
			want:  []string{"Недостаточно средств", "приостановлены на 60 мин."},
		},
		{
			name:  "retryable",
			event: models.ErrorEvent{Kind: models.ErrorConnection, RetryIn: 10 * time.Second},
			want:  []string{"Нет соединения с биржей. Повтор через 10 с."},
		},
		{
			name:  "fatal",
			event: models.ErrorEvent{Kind: models.ErrorKey, Fatal: true},
			want:  []string{"Завершение работы."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			n := NewConsoleNotifier(&out, false, "app.log")

			n.Notify(tt.event)

			text := out.String()
			for _, want := range tt.want {
				assert.Contains(t, text, want)
			}
			assert.Contains(t, text, "Подробности в журнале app.log.")
		})
	}
}

func TestConsoleNotifier_Header(t *testing.T) {
	var out bytes.Buffer
	n := NewConsoleNotifier(&out, false, "")

	n.Notify(models.HeaderEvent{Markets: 312, Quote: "BTC"})

	assert.Contains(t, out.String(), "Отслеживается рынков BTC: 312")
}
