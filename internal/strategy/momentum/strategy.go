package momentum

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/assist-by/helios/internal/domain"
	"github.com/assist-by/helios/internal/indicator"
	"github.com/assist-by/helios/internal/strategy"
)

// Name은 레지스트리에 등록되는 전략 이름입니다
const Name = "macd_momentum"

// Strategy는 MACD 모멘텀 추종 전략을 구현합니다.
// MACD 히스토그램이 양수이고 종가가 추세 EMA 위에 있으면 진입하며,
// 손절/익절 기준 도달 또는 모멘텀 소멸(히스토그램 음전환) 시 청산합니다
type Strategy struct {
	strategy.BaseStrategy

	macdIndicator  *indicator.MACD // 모멘텀 판단
	trendIndicator *indicator.EMA  // 추세 필터

	fastPeriod      int
	slowPeriod      int
	signalPeriod    int
	trendPeriod     int     // 추세 EMA 기간
	stopLossPercent float64 // 손절 기준 (%)
	takeProfitRatio float64 // 익절 배수 (손절 기준 대비)
}

// params는 설정 맵에서 읽어들인 전략 파라미터입니다
type params struct {
	fastPeriod      int
	slowPeriod      int
	signalPeriod    int
	trendPeriod     int
	stopLossPercent float64
	takeProfitRatio float64
}

// parseParams는 설정 맵을 파라미터로 변환합니다.
// JSON으로 들어온 숫자(float64)와 코드에서 넘긴 int를 모두 허용합니다
func parseParams(config map[string]interface{}) (params, error) {
	p := params{
		fastPeriod:      12,
		slowPeriod:      26,
		signalPeriod:    9,
		trendPeriod:     20,
		stopLossPercent: 2.0,
		takeProfitRatio: 2.0,
	}

	if config != nil {
		if v, ok := intValue(config["fastPeriod"]); ok {
			p.fastPeriod = v
		}
		if v, ok := intValue(config["slowPeriod"]); ok {
			p.slowPeriod = v
		}
		if v, ok := intValue(config["signalPeriod"]); ok {
			p.signalPeriod = v
		}
		if v, ok := intValue(config["trendPeriod"]); ok {
			p.trendPeriod = v
		}
		if v, ok := floatValue(config["stopLossPercent"]); ok {
			p.stopLossPercent = v
		}
		if v, ok := floatValue(config["takeProfitRatio"]); ok {
			p.takeProfitRatio = v
		}
	}

	if p.fastPeriod <= 0 || p.slowPeriod <= 0 || p.signalPeriod <= 0 || p.trendPeriod <= 0 {
		return params{}, fmt.Errorf("지표 기간은 0보다 커야 합니다")
	}
	if p.fastPeriod >= p.slowPeriod {
		return params{}, fmt.Errorf("fastPeriod는 slowPeriod보다 짧아야 합니다: %d >= %d", p.fastPeriod, p.slowPeriod)
	}

	return p, nil
}

func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

func floatValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// New는 새로운 MACD 모멘텀 전략 인스턴스를 생성합니다
func New(config map[string]interface{}) (strategy.Strategy, error) {
	p, err := parseParams(config)
	if err != nil {
		return nil, err
	}

	s := &Strategy{
		BaseStrategy: strategy.NewBaseStrategy(
			Name,
			"MACD 히스토그램과 추세 EMA로 상승 모멘텀을 추종하는 전략",
			config,
		),
	}
	s.applyParams(p)

	return s, nil
}

// Register는 전략을 레지스트리에 등록합니다
func Register(registry *strategy.Registry) {
	registry.Register(Name, New)
}

// applyParams는 파라미터를 전략 필드에 반영합니다
func (s *Strategy) applyParams(p params) {
	s.fastPeriod = p.fastPeriod
	s.slowPeriod = p.slowPeriod
	s.signalPeriod = p.signalPeriod
	s.trendPeriod = p.trendPeriod
	s.stopLossPercent = p.stopLossPercent
	s.takeProfitRatio = p.takeProfitRatio
	s.macdIndicator = indicator.NewMACD(p.fastPeriod, p.slowPeriod, p.signalPeriod)
	s.trendIndicator = indicator.NewEMA(p.trendPeriod)
}

// UpdateConfig는 설정을 저장하고 전략 파라미터에 즉시 반영합니다.
// 파라미터가 유효하지 않으면 설정을 변경하지 않고 에러를 반환합니다
func (s *Strategy) UpdateConfig(config map[string]interface{}) error {
	merged := s.GetConfig()
	for k, v := range config {
		merged[k] = v
	}

	p, err := parseParams(merged)
	if err != nil {
		return err
	}

	if err := s.BaseStrategy.UpdateConfig(config); err != nil {
		return err
	}
	s.applyParams(p)
	return nil
}

// Initialize는 전략을 초기화합니다
func (s *Strategy) Initialize(ctx context.Context) error {
	log.Printf("전략 초기화: %s", s.GetName())
	return nil
}

// minCandles는 판단에 필요한 최소 캔들 수입니다
func (s *Strategy) minCandles() int {
	warmup := s.slowPeriod + s.signalPeriod
	if s.trendPeriod > warmup {
		warmup = s.trendPeriod
	}
	return warmup + 5
}

// GenerateSignal은 캔들 데이터와 현재 포지션을 분석하여 매매 신호를 생성합니다
func (s *Strategy) GenerateSignal(ctx context.Context, candles domain.CandleList, position *domain.Position) (*domain.Signal, error) {
	if len(candles) < s.minCandles() {
		return nil, nil
	}

	current, _ := candles.GetLastCandle()
	currentPrice := current.Close

	if position.HasPosition() {
		return s.exitSignal(currentPrice, current, candles, position)
	}

	return s.entrySignal(currentPrice, current, candles)
}

// exitSignal은 손절/익절 기준 도달 또는 모멘텀 소멸 시 전량 매도 신호를 생성합니다
func (s *Strategy) exitSignal(currentPrice float64, current domain.Candle, candles domain.CandleList, position *domain.Position) (*domain.Signal, error) {
	if position.EntryPrice <= 0 {
		return nil, nil
	}

	sell := &domain.Signal{
		StrategyName: s.GetName(),
		Type:         domain.Sell,
		Symbol:       current.Symbol,
		Price:        currentPrice,
		Quantity:     position.Quantity,
		Timestamp:    time.Now(),
		Confidence:   1.0,
	}

	pnlPercent := (currentPrice - position.EntryPrice) / position.EntryPrice * 100
	if pnlPercent <= -s.stopLossPercent || pnlPercent >= s.stopLossPercent*s.takeProfitRatio {
		return sell, nil
	}

	// 기준 미달이어도 모멘텀이 음전환하면 청산
	histogram, ok, err := s.histogram(candles)
	if err != nil {
		return nil, err
	}
	if ok && histogram < 0 {
		return sell, nil
	}

	return nil, nil
}

// entrySignal은 신규 진입 조건을 판단합니다
func (s *Strategy) entrySignal(currentPrice float64, current domain.Candle, candles domain.CandleList) (*domain.Signal, error) {
	histogram, ok, err := s.histogram(candles)
	if err != nil {
		return nil, err
	}
	if !ok || histogram <= 0 {
		return nil, nil
	}

	trendEMA, ok, err := s.trendValue(candles)
	if err != nil {
		return nil, err
	}
	if !ok || currentPrice <= trendEMA {
		return nil, nil
	}

	return &domain.Signal{
		StrategyName: s.GetName(),
		Type:         domain.Buy,
		Symbol:       current.Symbol,
		Price:        currentPrice,
		Timestamp:    time.Now(),
		Confidence:   0.7,
		StopLoss:     currentPrice * (1 - s.stopLossPercent/100),
		TakeProfit:   currentPrice * (1 + s.stopLossPercent*s.takeProfitRatio/100),
		Metadata: map[string]interface{}{
			"reason": "MACD 상승 모멘텀 + 추세 EMA 상회",
		},
	}, nil
}

// histogram은 마지막 캔들 기준 MACD 히스토그램 값을 반환합니다.
// 워밍업 구간이면 ok가 false입니다
func (s *Strategy) histogram(candles domain.CandleList) (float64, bool, error) {
	prices := indicator.ConvertCandlesToPriceData(candles)

	results, err := s.macdIndicator.Calculate(prices)
	if err != nil {
		return 0, false, fmt.Errorf("MACD 계산 실패: %w", err)
	}

	last, ok := results[len(results)-1].(indicator.MACDResult)
	if !ok || math.IsNaN(last.Histogram) {
		return 0, false, nil
	}
	return last.Histogram, true, nil
}

// trendValue는 마지막 캔들 기준 추세 EMA 값을 반환합니다
func (s *Strategy) trendValue(candles domain.CandleList) (float64, bool, error) {
	prices := indicator.ConvertCandlesToPriceData(candles)

	results, err := s.trendIndicator.Calculate(prices)
	if err != nil {
		return 0, false, fmt.Errorf("추세 EMA 계산 실패: %w", err)
	}

	last, ok := results[len(results)-1].(indicator.EMAResult)
	if !ok || math.IsNaN(last.Value) {
		return 0, false, nil
	}
	return last.Value, true, nil
}
