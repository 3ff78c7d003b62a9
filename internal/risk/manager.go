package risk

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/assist-by/helios/internal/domain"
	"github.com/assist-by/helios/internal/storage"
)

// highRiskThreshold는 한도 대비 이 비율에 도달하면 위험 수준을 high로 올립니다
const highRiskThreshold = 0.8

// Status는 현재 계정의 리스크 상태 스냅샷입니다
type Status struct {
	DailyPnL         float64          `json:"daily_pnl"`
	DailyLossPercent float64          `json:"daily_loss_percent"`
	CurrentDrawdown  float64          `json:"current_drawdown"`
	RiskLevel        domain.RiskLevel `json:"risk_level"`
	CanTrade         bool             `json:"can_trade"`
}

// Config는 리스크 관리자의 한도 설정입니다
type Config struct {
	MaxActiveTrades     int     // 동시 보유 가능한 심볼 수
	MaxPositionPercent  float64 // 가용 잔고 대비 단일 포지션 비율 (%)
	MaxDailyLossPercent float64 // 일일 손실 한도 (%)
	MaxDrawdownPercent  float64 // 최대 낙폭 한도 (%)
}

// Manager는 주문 실행 전 리스크 검사와 포지션 사이징을 담당합니다.
// 여러 심볼 태스크가 동시에 접근하므로 내부 상태는 뮤텍스로 보호합니다
type Manager struct {
	cfg    Config
	trades storage.TradeStore

	mu                sync.RWMutex
	dailyPnL          float64
	dailyStartBalance float64
	peakBalance       float64
	currentDrawdown   float64 // 백분율
	balance           float64
	availableBalance  float64
}

// NewManager는 새로운 리스크 관리자를 생성합니다
func NewManager(cfg Config, trades storage.TradeStore) *Manager {
	return &Manager{
		cfg:    cfg,
		trades: trades,
	}
}

// Initialize는 시작 잔고를 기준점으로 설정합니다
func (m *Manager) Initialize(initialBalance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dailyStartBalance = initialBalance
	m.peakBalance = initialBalance
	m.balance = initialBalance
	m.availableBalance = initialBalance

	log.Printf("리스크 관리자 초기화: 시작 잔고 %.2f", initialBalance)
}

// UpdateBalance는 잔고 스냅샷을 반영하고 최고점과 낙폭을 갱신합니다
func (m *Manager) UpdateBalance(total, available float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balance = total
	m.availableBalance = available

	if total > m.peakBalance {
		m.peakBalance = total
	}
	if m.peakBalance > 0 {
		m.currentDrawdown = (m.peakBalance - total) / m.peakBalance * 100
	}
}

// RecordTradePnL은 청산된 거래의 실현 손익을 일일 누계에 더합니다
func (m *Manager) RecordTradePnL(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyPnL += pnl
}

// CheckPreTrade는 주문 전 리스크 검사를 수행합니다.
// 통과하면 (true, "OK")를, 거부하면 (false, 사유)를 반환합니다.
// 검사 순서: 일일 손실 한도, 최대 낙폭, 동시 보유 한도
func (m *Manager) CheckPreTrade(ctx context.Context, symbol string, side domain.OrderSide, quantity, price float64) (bool, string) {
	m.mu.RLock()
	dailyPnL := m.dailyPnL
	startBalance := m.dailyStartBalance
	drawdown := m.currentDrawdown
	m.mu.RUnlock()

	if dailyPnL < 0 && startBalance > 0 {
		dailyLoss := math.Abs(dailyPnL) / startBalance * 100
		if dailyLoss >= m.cfg.MaxDailyLossPercent {
			return false, fmt.Sprintf("일일 손실 한도 초과: %.2f%%", dailyLoss)
		}
	}

	if drawdown >= m.cfg.MaxDrawdownPercent {
		return false, fmt.Sprintf("최대 낙폭 초과: %.2f%%", drawdown)
	}

	// 동시 보유 한도는 새 심볼 진입에만 적용
	if side == domain.SideBuy {
		ok, reason := m.checkConcurrencyLimit(ctx, symbol)
		if !ok {
			return false, reason
		}
	}

	return true, "OK"
}

// checkConcurrencyLimit은 새 심볼의 매수가 동시 보유 한도를 넘는지 확인합니다.
// 이미 보유 중인 심볼의 추가 매수는 한도와 무관하게 허용됩니다
func (m *Manager) checkConcurrencyLimit(ctx context.Context, symbol string) (bool, string) {
	openTrades, err := m.trades.GetOpenTrades(ctx)
	if err != nil {
		// 원장 조회가 불가능하면 보수적으로 거부
		return false, fmt.Sprintf("열린 거래 조회 실패: %v", err)
	}

	openSymbols := make(map[string]bool)
	for _, t := range openTrades {
		openSymbols[t.Symbol] = true
	}

	if openSymbols[symbol] {
		return true, "OK"
	}

	if len(openSymbols) >= m.cfg.MaxActiveTrades {
		return false, fmt.Sprintf("동시 보유 한도 초과: %d/%d", len(openSymbols), m.cfg.MaxActiveTrades)
	}

	return true, "OK"
}

// CalculatePositionSize는 가용 잔고와 포지션 비율로 주문 수량을 계산합니다.
// 수량은 소수점 6자리로 반올림됩니다
func (m *Manager) CalculatePositionSize(price float64) float64 {
	if price <= 0 {
		return 0
	}

	m.mu.RLock()
	available := m.availableBalance
	if available == 0 {
		available = m.balance
	}
	m.mu.RUnlock()

	size := available * (m.cfg.MaxPositionPercent / 100) / price
	return math.Round(size*1e6) / 1e6
}

// GetPosition은 원장의 OPEN 거래에서 현재 포지션을 조회합니다.
// 포지션이 없으면 nil을 반환합니다
func (m *Manager) GetPosition(ctx context.Context, symbol string) (*domain.Position, error) {
	trade, err := m.trades.GetOpenTradeBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, nil
	}

	return &domain.Position{
		Symbol:     trade.Symbol,
		Quantity:   trade.Quantity,
		EntryPrice: trade.EntryPrice,
		OpenedAt:   trade.OpenedAt,
	}, nil
}

// GetStatus는 현재 리스크 상태를 반환합니다.
// 한도의 80%에 도달하면 위험 수준이 high로 올라가고 거래가 중단됩니다
func (m *Manager) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dailyLoss := 0.0
	if m.dailyStartBalance > 0 {
		dailyLoss = math.Abs(m.dailyPnL) / m.dailyStartBalance * 100
	}

	riskLevel := domain.RiskLow
	canTrade := true
	if dailyLoss >= m.cfg.MaxDailyLossPercent*highRiskThreshold ||
		m.currentDrawdown >= m.cfg.MaxDrawdownPercent*highRiskThreshold {
		riskLevel = domain.RiskHigh
		canTrade = false
	}

	return Status{
		DailyPnL:         m.dailyPnL,
		DailyLossPercent: dailyLoss,
		CurrentDrawdown:  m.currentDrawdown,
		RiskLevel:        riskLevel,
		CanTrade:         canTrade,
	}
}

// Balance는 마지막으로 반영된 총 잔고를 반환합니다
func (m *Manager) Balance() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balance
}
