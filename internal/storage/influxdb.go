package storage

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/skalibog/rsibot/internal/config"
	"github.com/skalibog/rsibot/pkg/models"
)

// Измерения журнала
const (
	measurementIndicators = "indicators"
	measurementTrades     = "trades"
	measurementPauses     = "pauses"
)

var timeNow = time.Now

// Storage журнал метрик для дашбордов. Данные только пишутся, назад не читаются.
type Storage interface {
	SaveIndicators(ctx context.Context, ind *models.Indicators) error
	SaveEvent(ctx context.Context, event models.Event) error
	Close()
}

// InfluxDBStorage реализует интерфейс Storage с использованием InfluxDB
type InfluxDBStorage struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	quote    string
}

// New возвращает журнал по конфигурации: InfluxDB или заглушку
func New(cfg config.StorageConfig, quote string) (Storage, error) {
	if !cfg.Enabled {
		return NopStorage{}, nil
	}
	return NewInfluxDBStorage(cfg, quote)
}

// NewInfluxDBStorage создает новое хранилище InfluxDB
func NewInfluxDBStorage(cfg config.StorageConfig, quote string) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Проверка соединения
	health, err := client.Health(context.Background())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	return &InfluxDBStorage{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Organization, cfg.Bucket),
		quote:    quote,
	}, nil
}

// Close закрывает соединение с базой данных
func (s *InfluxDBStorage) Close() {
	s.client.Close()
}

// SaveIndicators сохраняет снимок индикаторов пары
func (s *InfluxDBStorage) SaveIndicators(ctx context.Context, ind *models.Indicators) error {
	point := influxdb2.NewPoint(
		measurementIndicators,
		s.tags(ind.Pair),
		map[string]interface{}{
			"price":      ind.Price,
			"rsi":        ind.RSI,
			"volume_24h": ind.Volume24h,
		},
		ind.Timestamp,
	)

	if err := s.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("ошибка записи индикаторов %s: %w", ind.Pair.Symbol, err)
	}
	return nil
}

// SaveEvent сохраняет решения движка: сделки, включение и снятие пауз.
// Остальные события не журналируются.
func (s *InfluxDBStorage) SaveEvent(ctx context.Context, event models.Event) error {
	point := s.eventPoint(event)
	if point == nil {
		return nil
	}

	if err := s.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("ошибка записи события: %w", err)
	}
	return nil
}

func (s *InfluxDBStorage) eventPoint(event models.Event) *write.Point {
	switch e := event.(type) {
	case models.BuyEvent:
		tags := s.tags(e.Pair)
		tags["side"] = string(models.SideBuy)
		return influxdb2.NewPoint(measurementTrades, tags, map[string]interface{}{
			"price":      e.Price,
			"rsi":        e.RSI,
			"volume_24h": e.Volume24h,
			"quantity":   e.Quantity,
		}, timeNow())
	case models.SellEvent:
		tags := s.tags(e.Pair)
		tags["side"] = string(models.SideSell)
		tags["reason"] = e.Reason.String()
		return influxdb2.NewPoint(measurementTrades, tags, map[string]interface{}{
			"price":  e.Price,
			"rsi":    e.RSI,
			"margin": e.Margin,
		}, timeNow())
	case models.PauseEvent:
		tags := s.tags(e.Pair)
		tags["kind"] = e.Kind.String()
		tags["state"] = "armed"
		// Паузы покупок действуют на все рынки
		if e.Kind != models.PauseSell {
			tags["scope"] = models.ScopeAll
		}
		return influxdb2.NewPoint(measurementPauses, tags, map[string]interface{}{
			"minutes": e.Duration.Minutes(),
			"rsi":     e.RSI,
			"margin":  e.Margin,
		}, timeNow())
	case models.ResumeEvent:
		return influxdb2.NewPoint(measurementPauses, map[string]string{
			"scope": e.Scope,
			"quote": s.quote,
			"kind":  e.Kind.String(),
			"state": "resumed",
		}, map[string]interface{}{
			"minutes": 0.0,
		}, timeNow())
	}
	return nil
}

func (s *InfluxDBStorage) tags(pair models.MarketPair) map[string]string {
	scope := pair.Symbol
	if scope == "" {
		scope = models.ScopeAll
	}
	quote := pair.Quote
	if quote == "" {
		quote = s.quote
	}
	return map[string]string{
		"scope": scope,
		"quote": quote,
	}
}

// NopStorage журнал-заглушка для выключенного хранилища
type NopStorage struct{}

func (NopStorage) SaveIndicators(context.Context, *models.Indicators) error { return nil }
func (NopStorage) SaveEvent(context.Context, models.Event) error             { return nil }
func (NopStorage) Close()                                                    {}
