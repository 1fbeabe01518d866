package ui

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/skalibog/rsibot/pkg/logger"
	"github.com/skalibog/rsibot/pkg/models"
	"go.uber.org/zap"
)

// Цвета сообщений
var (
	buyColor     = lipgloss.Color("#0077cc")
	profitColor  = lipgloss.Color("#33cc33")
	lossColor    = lipgloss.Color("#cc3300")
	pauseColor   = lipgloss.Color("#cccc00")
	neutralColor = lipgloss.Color("#ffffff")
	noSellColor  = lipgloss.Color("#cc66cc")
)

const tradeURL = "https://www.binance.com/en/trade/%s_%s"

// ConsoleNotifier выводит события движка в консоль и дублирует их в журнал
type ConsoleNotifier struct {
	out     io.Writer
	sound   bool
	logFile string

	header  lipgloss.Style
	buy     lipgloss.Style
	profit  lipgloss.Style
	loss    lipgloss.Style
	pause   lipgloss.Style
	neutral lipgloss.Style
	noSell  lipgloss.Style
	errorSt lipgloss.Style

	lastNoSell string
}

// NewConsoleNotifier создает уведомитель. sound включает звонок терминала на сделках.
func NewConsoleNotifier(w io.Writer, sound bool, logFile string) *ConsoleNotifier {
	r := lipgloss.NewRenderer(w)

	return &ConsoleNotifier{
		out:     w,
		sound:   sound,
		logFile: logFile,
		header:  r.NewStyle().Bold(true).Underline(true),
		buy:     r.NewStyle().Bold(true).Foreground(buyColor),
		profit:  r.NewStyle().Bold(true).Foreground(profitColor),
		loss:    r.NewStyle().Bold(true).Foreground(lossColor),
		pause:   r.NewStyle().Foreground(pauseColor),
		neutral: r.NewStyle().Foreground(neutralColor),
		noSell:  r.NewStyle().Foreground(noSellColor),
		errorSt: r.NewStyle().Foreground(lossColor),
	}
}

// Notify выводит событие
func (n *ConsoleNotifier) Notify(event models.Event) {
	switch e := event.(type) {
	case models.HeaderEvent:
		n.print(n.header, fmt.Sprintf("\nОтслеживается рынков %s: %d\n", e.Quote, e.Markets))
		logger.Info("Старт отслеживания", zap.Int("markets", e.Markets), zap.String("quote", e.Quote))

	case models.BuyEvent:
		n.print(n.buy, fmt.Sprintf("Покупка %-10s ->  RSI: %3.0f  Объем 24ч: %5.0f %s  Цена: %.8f  URL: %s",
			e.Pair.String(), math.Ceil(e.RSI), math.Floor(e.Volume24h), e.Pair.Quote, e.Price, url(e.Pair)))
		n.bell()
		logger.Info("Покупка",
			zap.String("pair", e.Pair.String()),
			zap.Float64("price", e.Price),
			zap.Float64("quantity", e.Quantity),
			zap.Float64("rsi", e.RSI),
			zap.Float64("volume_24h", e.Volume24h))

	case models.SellEvent:
		style := n.profit
		if e.Margin <= 0 {
			style = n.loss
		}
		n.print(style, fmt.Sprintf("Продажа %-10s ->  RSI: %3.0f  Маржа: %6.2f%%  Цена: %.8f  Причина: %s  URL: %s",
			e.Pair.String(), math.Floor(e.RSI), e.Margin, e.Price, e.Reason, url(e.Pair)))
		n.bell()
		logger.Info("Продажа",
			zap.String("pair", e.Pair.String()),
			zap.Float64("price", e.Price),
			zap.Float64("rsi", e.RSI),
			zap.Float64("margin", e.Margin),
			zap.Stringer("reason", e.Reason))

	case models.NoBuyEvent:
		n.print(n.neutral, fmt.Sprintf("Нет покупки %-10s ->  RSI: %3.0f  Объем 24ч: %5.0f %s  Цена: %.8f  URL: %s",
			e.Pair.String(), math.Ceil(e.RSI), math.Floor(e.Volume24h), e.Pair.Quote, e.Price, url(e.Pair)))
		logger.Debug("Нет покупки",
			zap.String("pair", e.Pair.String()),
			zap.Float64("rsi", e.RSI),
			zap.Float64("volume_24h", e.Volume24h))

	case models.NoSellEvent:
		msg := fmt.Sprintf("Нет продажи %-10s ->  RSI: %3.0f  Маржа: %6.2f%%  Цена: %.8f  URL: %s",
			e.Pair.String(), math.Floor(e.RSI), e.Margin, e.Price, url(e.Pair))
		if msg == n.lastNoSell {
			return
		}
		n.lastNoSell = msg
		style := n.noSell
		if e.Margin <= 0 {
			style = n.loss
		}
		n.print(style, msg)
		logger.Debug("Нет продажи",
			zap.String("pair", e.Pair.String()),
			zap.Float64("rsi", e.RSI),
			zap.Float64("margin", e.Margin))

	case models.PauseEvent:
		minutes := math.Round(e.Duration.Minutes())
		var msg string
		if e.Kind == models.PauseSell {
			msg = fmt.Sprintf("Пауза продаж %s: маржа %.2f%%, RSI %.0f, на %.0f мин.",
				e.Pair.String(), e.Margin, math.Floor(e.RSI), minutes)
		} else {
			msg = fmt.Sprintf("Пауза покупок после %s: RSI %.0f, объем 24ч %.0f %s, на %.0f мин.",
				e.Pair.String(), math.Floor(e.RSI), math.Floor(e.Volume24h), e.Pair.Quote, minutes)
		}
		n.print(n.pause, msg)
		logger.Info("Пауза",
			zap.Stringer("kind", e.Kind),
			zap.String("pair", e.Pair.String()),
			zap.Duration("duration", e.Duration))

	case models.ResumeEvent:
		msg := fmt.Sprintf("Возобновлено отслеживание всех рынков %s (%s).", e.Quote, e.Kind)
		if e.Scope != models.ScopeAll {
			msg = fmt.Sprintf("Возобновлены продажи %s.", e.Scope)
		}
		n.print(n.pause, msg)
		logger.Info("Пауза снята", zap.Stringer("kind", e.Kind), zap.String("scope", e.Scope))

	case models.ErrorEvent:
		n.print(n.errorSt, n.errorMessage(e))
		logger.Error("Ошибка",
			zap.Stringer("kind", e.Kind),
			zap.String("pair", e.Pair.Symbol),
			zap.String("message", e.Message),
			zap.Bool("fatal", e.Fatal))
	}
}

func (n *ConsoleNotifier) errorMessage(e models.ErrorEvent) string {
	var b strings.Builder

	switch e.Kind {
	case models.ErrorMarket:
		b.WriteString("Не удалось получить список рынков Binance.")
	case models.ErrorCoinMarket:
		fmt.Fprintf(&b, "Не удалось получить данные рынка %s.", e.Pair.String())
	case models.ErrorBuy:
		fmt.Fprintf(&b, "Не удалось купить на рынке %s. Сообщение Binance: %s", e.Pair.String(), e.Message)
	case models.ErrorSell:
		fmt.Fprintf(&b, "Не удалось продать на рынке %s. Сообщение Binance: %s", e.Pair.String(), e.Message)
	case models.ErrorOrder:
		order := models.Order{Status: models.OrderStatus(e.Message)}
		if order.Done() {
			fmt.Fprintf(&b, "Ордер %s не исполнен полностью, статус %s, на рынке %s. URL: %s",
				e.OrderID, e.Message, e.Pair.String(), url(e.Pair))
		} else {
			fmt.Fprintf(&b, "Ордер %s не исполнен за %.0f с на рынке %s. URL: %s",
				e.OrderID, e.Timeout.Seconds(), e.Pair.String(), url(e.Pair))
		}
	case models.ErrorBalance:
		fmt.Fprintf(&b, "Недостаточно средств для покупки на рынке %s.", e.Pair.String())
		if e.RetryIn > 0 {
			fmt.Fprintf(&b, " Покупки приостановлены на %.0f мин.", math.Round(e.RetryIn.Minutes()))
		}
	case models.ErrorTLS:
		b.WriteString("Ошибка TLS.")
	case models.ErrorConnection:
		b.WriteString("Нет соединения с биржей.")
	case models.ErrorDecode:
		b.WriteString("Не удалось разобрать ответ JSON.")
	case models.ErrorType:
		b.WriteString("Неверный тип данных в ответе.")
	case models.ErrorKey:
		b.WriteString("В ответе отсутствует ожидаемое значение.")
	case models.ErrorValue:
		b.WriteString("Некорректное значение в ответе.")
	default:
		b.WriteString("Неизвестная ошибка.")
	}

	switch {
	case e.Fatal:
		b.WriteString(" Завершение работы.")
	case e.Kind.Retryable():
		fmt.Fprintf(&b, " Повтор через %.0f с.", e.RetryIn.Seconds())
	}

	if n.logFile != "" {
		fmt.Fprintf(&b, "\nПодробности в журнале %s.", n.logFile)
	}
	return b.String()
}

func (n *ConsoleNotifier) print(style lipgloss.Style, msg string) {
	fmt.Fprintln(n.out, style.Render(msg))
}

func (n *ConsoleNotifier) bell() {
	if n.sound {
		fmt.Fprint(n.out, "\a")
	}
}

func url(pair models.MarketPair) string {
	return fmt.Sprintf(tradeURL, pair.Base, pair.Quote)
}
