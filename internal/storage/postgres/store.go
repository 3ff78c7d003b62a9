package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/assist-by/helios/internal/domain"
	"github.com/assist-by/helios/internal/storage"
)

const (
	defaultHost    = "localhost"
	defaultPort    = 5432
	defaultSSLMode = "disable"
)

// Option은 PostgreSQL 연결 옵션을 정의합니다
type Option struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Config   *gorm.Config
}

// Store는 PostgreSQL 기반 저장소 구현입니다.
// 쓰기 작업은 뮤텍스로 직렬화하여 여러 심볼 태스크가 동시에 기록해도 안전합니다
type Store struct {
	db *gorm.DB
	mu sync.Mutex
}

// New는 PostgreSQL 저장소를 생성하고 스키마를 마이그레이션합니다
func New(opt Option) (*Store, error) {
	config := opt.Config
	if config == nil {
		config = &gorm.Config{}
	}

	db, err := gorm.Open(postgres.Open(opt.dsn()), config)
	if err != nil {
		return nil, fmt.Errorf("데이터베이스 연결 실패: %w", err)
	}

	if err := db.AutoMigrate(&storage.Trade{}, &storage.Kline{}, &storage.WatchSymbol{}); err != nil {
		return nil, fmt.Errorf("스키마 마이그레이션 실패: %w", err)
	}

	return &Store{db: db}, nil
}

func (opt Option) dsn() string {
	host := opt.Host
	if host == "" {
		host = defaultHost
	}

	port := opt.Port
	if port == 0 {
		port = defaultPort
	}

	sslMode := opt.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}

	if opt.User != "" {
		if opt.Password != "" {
			u.User = url.UserPassword(opt.User, opt.Password)
		} else {
			u.User = url.User(opt.User)
		}
	}

	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	u.RawQuery = query.Encode()

	return u.String()
}

// InsertTrade는 새 거래를 원장에 기록합니다
func (s *Store) InsertTrade(ctx context.Context, trade *storage.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.WithContext(ctx).Create(trade).Error; err != nil {
		return fmt.Errorf("거래 기록 실패: %w", err)
	}
	return nil
}

// CloseTrade는 OPEN 상태의 거래를 청산 처리합니다
func (s *Store) CloseTrade(ctx context.Context, id uint, exitPrice, pnl float64, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.db.WithContext(ctx).Model(&storage.Trade{}).
		Where("id = ? AND status = ?", id, domain.TradeOpen).
		Updates(map[string]interface{}{
			"status":     domain.TradeClosed,
			"exit_price": exitPrice,
			"pn_l":       pnl,
			"closed_at":  closedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("거래 청산 기록 실패: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("청산할 OPEN 거래를 찾을 수 없음: id=%d", id)
	}
	return nil
}

// GetOpenTrades는 OPEN 상태의 모든 거래를 반환합니다
func (s *Store) GetOpenTrades(ctx context.Context) ([]storage.Trade, error) {
	var trades []storage.Trade
	err := s.db.WithContext(ctx).
		Where("status = ?", domain.TradeOpen).
		Order("opened_at ASC").
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("열린 거래 조회 실패: %w", err)
	}
	return trades, nil
}

// GetOpenTradeBySymbol은 특정 심볼의 OPEN 거래를 반환합니다.
// 없으면 nil을 반환하며 에러가 아닙니다
func (s *Store) GetOpenTradeBySymbol(ctx context.Context, symbol string) (*storage.Trade, error) {
	var trade storage.Trade
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND status = ?", symbol, domain.TradeOpen).
		Order("opened_at ASC").
		First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("열린 거래 조회 실패 (%s): %w", symbol, err)
	}
	return &trade, nil
}

// GetRecentTrades는 최근 거래 목록을 반환합니다
func (s *Store) GetRecentTrades(ctx context.Context, limit int) ([]storage.Trade, error) {
	var trades []storage.Trade
	err := s.db.WithContext(ctx).
		Order("opened_at DESC").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("거래 내역 조회 실패: %w", err)
	}
	return trades, nil
}

// SaveCandles는 캔들 데이터를 저장합니다. 이미 존재하는 캔들은 건너뜁니다
func (s *Store) SaveCandles(ctx context.Context, candles domain.CandleList) error {
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]storage.Kline, len(candles))
	for i, c := range candles {
		rows[i] = storage.Kline{
			Symbol:    c.Symbol,
			Interval:  string(c.Interval),
			OpenTime:  c.OpenTime,
			CloseTime: c.CloseTime,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		}
	}

	// 동일한 (symbol, interval, open_time) 캔들은 중복 삽입하지 않음
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("캔들 저장 실패: %w", err)
	}
	return nil
}

// GetCandles는 저장된 캔들을 시간 오름차순으로 반환합니다
func (s *Store) GetCandles(ctx context.Context, symbol string, interval domain.TimeInterval, limit int) (domain.CandleList, error) {
	var rows []storage.Kline
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND interval = ?", symbol, string(interval)).
		Order("open_time DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("캔들 조회 실패 (%s): %w", symbol, err)
	}

	// DESC로 조회했으므로 뒤집어서 오름차순으로 반환
	candles := make(domain.CandleList, len(rows))
	for i, row := range rows {
		candles[len(rows)-1-i] = domain.Candle{
			OpenTime:  row.OpenTime,
			CloseTime: row.CloseTime,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
			Symbol:    row.Symbol,
			Interval:  domain.TimeInterval(row.Interval),
		}
	}
	return candles, nil
}

// SaveSymbols는 모니터링 심볼 목록을 통째로 교체합니다
func (s *Store) SaveSymbols(ctx context.Context, symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&storage.WatchSymbol{}).Error; err != nil {
			return fmt.Errorf("심볼 목록 초기화 실패: %w", err)
		}
		for _, symbol := range symbols {
			if err := tx.Create(&storage.WatchSymbol{Symbol: symbol}).Error; err != nil {
				return fmt.Errorf("심볼 저장 실패 (%s): %w", symbol, err)
			}
		}
		return nil
	})
}

// GetSymbols는 저장된 모니터링 심볼 목록을 반환합니다
func (s *Store) GetSymbols(ctx context.Context) ([]string, error) {
	var rows []storage.WatchSymbol
	err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("심볼 목록 조회 실패: %w", err)
	}

	symbols := make([]string, len(rows))
	for i, row := range rows {
		symbols[i] = row.Symbol
	}
	return symbols, nil
}

// Close는 데이터베이스 연결을 닫습니다
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
