package strategy

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/assist-by/helios/internal/domain"
)

// Manager는 등록된 전략들의 파이프라인을 관리합니다.
// 활성화된 전략을 순서대로 실행하며, 한 전략의 실패가 다른 전략의
// 실행을 막지 않도록 격리합니다
type Manager struct {
	mu         sync.RWMutex
	registry   *Registry
	strategies map[string]Strategy
	order      []string // 등록 순서 유지
}

// NewManager는 새로운 전략 매니저를 생성합니다
func NewManager(registry *Registry) *Manager {
	return &Manager{
		registry:   registry,
		strategies: make(map[string]Strategy),
	}
}

// AddStrategy는 레지스트리에서 전략을 생성해 파이프라인에 추가합니다
func (m *Manager) AddStrategy(ctx context.Context, name string, config map[string]interface{}) error {
	s, err := m.registry.Create(name, config)
	if err != nil {
		return err
	}

	if err := s.Initialize(ctx); err != nil {
		return fmt.Errorf("전략 초기화 실패 (%s): %w", name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.strategies[name]; !exists {
		m.order = append(m.order, name)
	}
	m.strategies[name] = s

	log.Printf("전략 등록 완료: %s", name)
	return nil
}

// GetStrategy는 이름으로 전략을 조회합니다
func (m *Manager) GetStrategy(name string) (Strategy, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.strategies[name]
	return s, ok
}

// EnableStrategy는 전략을 활성화합니다
func (m *Manager) EnableStrategy(name string) bool {
	s, ok := m.GetStrategy(name)
	if !ok {
		return false
	}
	s.Enable()
	return true
}

// DisableStrategy는 전략을 비활성화합니다
func (m *Manager) DisableStrategy(name string) bool {
	s, ok := m.GetStrategy(name)
	if !ok {
		return false
	}
	s.Disable()
	return true
}

// enabledStrategies는 활성화된 전략을 등록 순서대로 반환합니다
func (m *Manager) enabledStrategies() []Strategy {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var enabled []Strategy
	for _, name := range m.order {
		s := m.strategies[name]
		if s.IsEnabled() {
			enabled = append(enabled, s)
		}
	}
	return enabled
}

// GenerateSignals는 활성화된 모든 전략을 실행하여 유효한 신호 목록을 반환합니다.
// 전략 하나가 에러를 반환하거나 패닉해도 나머지 전략은 계속 실행됩니다
func (m *Manager) GenerateSignals(ctx context.Context, candles domain.CandleList, position *domain.Position) []*domain.Signal {
	var signals []*domain.Signal

	for _, s := range m.enabledStrategies() {
		signal, err := m.runStrategy(ctx, s, candles, position)
		if err != nil {
			log.Printf("전략 실행 에러 (%s): %v", s.GetName(), err)
			continue
		}
		if signal.IsValid() {
			signals = append(signals, signal)
			s.UpdateStats(signal, nil)
		}
	}

	return signals
}

// runStrategy는 단일 전략을 패닉 격리와 함께 실행합니다
func (m *Manager) runStrategy(ctx context.Context, s Strategy, candles domain.CandleList, position *domain.Position) (signal *domain.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			signal = nil
			err = fmt.Errorf("전략 패닉: %v", r)
		}
	}()

	return s.GenerateSignal(ctx, candles, position)
}

// RecordTradeResult는 청산된 거래의 손익을 해당 전략의 통계에 반영합니다
func (m *Manager) RecordTradeResult(strategyName string, pnl float64) {
	s, ok := m.GetStrategy(strategyName)
	if !ok {
		return
	}
	s.UpdateStats(nil, &pnl)
}

// GetAllStats는 등록된 모든 전략의 통계를 반환합니다
func (m *Manager) GetAllStats() []Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make([]Stats, 0, len(m.order))
	for _, name := range m.order {
		stats = append(stats, m.strategies[name].GetStats())
	}
	return stats
}

// ListNames는 등록된 전략 이름을 등록 순서대로 반환합니다
func (m *Manager) ListNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.order))
	copy(names, m.order)
	return names
}
