package storage

import (
	"context"
	"time"

	"github.com/assist-by/helios/internal/domain"
)

// Trade는 원장에 기록되는 단일 거래입니다.
// 매수 체결 시 OPEN 상태로 삽입되고, 매도 체결 시 CLOSED로 전환됩니다
type Trade struct {
	ID           uint               `gorm:"primaryKey"`
	Symbol       string             `gorm:"index;not null"`
	Side         domain.OrderSide   `gorm:"not null"`
	Quantity     float64            `gorm:"not null"`
	EntryPrice   float64            `gorm:"not null"`
	ExitPrice    float64            // 청산 가격 (CLOSED일 때만 유효)
	PnL          float64            // 실현 손익 (CLOSED일 때만 유효)
	Status       domain.TradeStatus `gorm:"index;not null"`
	StrategyName string             // 거래를 발생시킨 전략 이름
	OrderID      int64              // 거래소 주문 ID
	OpenedAt     time.Time          `gorm:"not null"`
	ClosedAt     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Kline은 저장소에 보관되는 캔들 데이터입니다
type Kline struct {
	ID        uint      `gorm:"primaryKey"`
	Symbol    string    `gorm:"uniqueIndex:idx_klines_symbol_interval_open;not null"`
	Interval  string    `gorm:"uniqueIndex:idx_klines_symbol_interval_open;not null"`
	OpenTime  time.Time `gorm:"uniqueIndex:idx_klines_symbol_interval_open;not null"`
	CloseTime time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CreatedAt time.Time
}

// WatchSymbol은 엔진이 모니터링하는 심볼 목록의 항목입니다.
// 재시작 후에도 핫플러그로 추가된 심볼이 유지되도록 저장합니다
type WatchSymbol struct {
	ID        uint   `gorm:"primaryKey"`
	Symbol    string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}

// TradeStore는 거래 원장에 대한 접근을 정의합니다
type TradeStore interface {
	InsertTrade(ctx context.Context, trade *Trade) error
	CloseTrade(ctx context.Context, id uint, exitPrice, pnl float64, closedAt time.Time) error
	GetOpenTrades(ctx context.Context) ([]Trade, error)
	GetOpenTradeBySymbol(ctx context.Context, symbol string) (*Trade, error)
	GetRecentTrades(ctx context.Context, limit int) ([]Trade, error)
}

// KlineStore는 캔들 데이터에 대한 접근을 정의합니다
type KlineStore interface {
	SaveCandles(ctx context.Context, candles domain.CandleList) error
	GetCandles(ctx context.Context, symbol string, interval domain.TimeInterval, limit int) (domain.CandleList, error)
}

// SymbolStore는 모니터링 심볼 목록에 대한 접근을 정의합니다
type SymbolStore interface {
	SaveSymbols(ctx context.Context, symbols []string) error
	GetSymbols(ctx context.Context) ([]string, error)
}

// Store는 전체 저장소 인터페이스입니다
type Store interface {
	TradeStore
	KlineStore
	SymbolStore

	Close() error
}
