package strategy

import (
	"context"
	"fmt"
	"sync"

	"github.com/assist-by/helios/internal/domain"
)

// Strategy는 트레이딩 전략의 인터페이스를 정의합니다
type Strategy interface {
	// Initialize는 전략을 초기화합니다
	Initialize(ctx context.Context) error

	// GenerateSignal은 캔들 데이터와 현재 포지션을 분석하여 매매 신호를 생성합니다.
	// 신호가 없으면 nil을 반환합니다
	GenerateSignal(ctx context.Context, candles domain.CandleList, position *domain.Position) (*domain.Signal, error)

	// GetName은 전략의 이름을 반환합니다
	GetName() string

	// GetDescription은 전략의 설명을 반환합니다
	GetDescription() string

	// GetConfig는 전략의 현재 설정을 반환합니다
	GetConfig() map[string]interface{}

	// UpdateConfig는 전략 설정을 업데이트합니다
	UpdateConfig(config map[string]interface{}) error

	// 활성화 상태 관리
	Enable()
	Disable()
	IsEnabled() bool

	// 통계 관리
	GetStats() Stats
	UpdateStats(signal *domain.Signal, pnl *float64)
}

// Stats는 전략의 누적 실적 통계입니다
type Stats struct {
	Name        string  `json:"name"`
	Enabled     bool    `json:"enabled"`
	SignalCount int     `json:"signal_count"`
	WinCount    int     `json:"win_count"`
	LossCount   int     `json:"loss_count"`
	WinRate     float64 `json:"win_rate"`
}

// BaseStrategy는 모든 전략 구현체에서 공통적으로 사용할 수 있는 기본 구현을 제공합니다
type BaseStrategy struct {
	Name        string
	Description string
	Config      map[string]interface{}

	mu          sync.RWMutex
	enabled     bool
	signalCount int
	winCount    int
	lossCount   int
}

// NewBaseStrategy는 활성화 상태로 초기화된 기본 전략을 생성합니다
func NewBaseStrategy(name, description string, config map[string]interface{}) BaseStrategy {
	if config == nil {
		config = make(map[string]interface{})
	}
	return BaseStrategy{
		Name:        name,
		Description: description,
		Config:      config,
		enabled:     true,
	}
}

// GetName은 전략의 이름을 반환합니다
func (b *BaseStrategy) GetName() string {
	return b.Name
}

// GetDescription은 전략의 설명을 반환합니다
func (b *BaseStrategy) GetDescription() string {
	return b.Description
}

// GetConfig는 전략의 현재 설정을 반환합니다
func (b *BaseStrategy) GetConfig() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	// 설정의 복사본 반환
	configCopy := make(map[string]interface{})
	for k, v := range b.Config {
		configCopy[k] = v
	}
	return configCopy
}

// UpdateConfig는 전략 설정을 업데이트합니다
func (b *BaseStrategy) UpdateConfig(config map[string]interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// 설정 업데이트
	for k, v := range config {
		b.Config[k] = v
	}
	return nil
}

// Enable은 전략을 활성화합니다
func (b *BaseStrategy) Enable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = true
}

// Disable은 전략을 비활성화합니다
func (b *BaseStrategy) Disable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = false
}

// IsEnabled는 전략이 활성화되어 있는지 반환합니다
func (b *BaseStrategy) IsEnabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled
}

// GetStats는 전략의 누적 통계를 반환합니다
func (b *BaseStrategy) GetStats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := b.winCount + b.lossCount
	winRate := 0.0
	if total > 0 {
		winRate = float64(b.winCount) / float64(total) * 100
	}
	return Stats{
		Name:        b.Name,
		Enabled:     b.enabled,
		SignalCount: b.signalCount,
		WinCount:    b.winCount,
		LossCount:   b.lossCount,
		WinRate:     winRate,
	}
}

// UpdateStats는 신호 발생과 실현 손익을 통계에 반영합니다
func (b *BaseStrategy) UpdateStats(signal *domain.Signal, pnl *float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if signal != nil {
		b.signalCount++
	}
	if pnl != nil {
		if *pnl >= 0 {
			b.winCount++
		} else {
			b.lossCount++
		}
	}
}

// Factory는 전략 인스턴스를 생성하는 함수 타입입니다
type Factory func(config map[string]interface{}) (Strategy, error)

// Registry는 사용 가능한 모든 전략을 등록하고 관리합니다
type Registry struct {
	strategies map[string]Factory
}

// NewRegistry는 새로운 전략 레지스트리를 생성합니다
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Factory),
	}
}

// Register는 새로운 전략 팩토리를 레지스트리에 등록합니다
func (r *Registry) Register(name string, factory Factory) {
	r.strategies[name] = factory
}

// Create는 주어진 이름과 설정으로 전략 인스턴스를 생성합니다
func (r *Registry) Create(name string, config map[string]interface{}) (Strategy, error) {
	factory, exists := r.strategies[name]
	if !exists {
		return nil, fmt.Errorf("존재하지 않는 전략: %s", name)
	}
	return factory(config)
}

// ListStrategies는 사용 가능한 모든 전략 이름을 반환합니다
func (r *Registry) ListStrategies() []string {
	var names []string
	for name := range r.strategies {
		names = append(names, name)
	}
	return names
}
