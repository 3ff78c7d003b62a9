package convergence

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
const Name = "convergence_breakout"

const rsiUpperLimit = 70.0

// Strategy는 수렴 돌파 전략을 구현합니다.
// 가격 변동성이 수축한 뒤 직전 고점을 거래량과 함께 상향 돌파하면 진입하고,
// 진입가 대비 손절/익절 기준에 도달하면 청산합니다
type Strategy struct {
	strategy.BaseStrategy

	rsiIndicator *indicator.RSI // 과열 필터용 RSI
	volumeSMA    *indicator.SMA // 거래량 급증 판단 기준선

	lookback         int     // 수렴/돌파 관찰 구간 (캔들 수)
	stopLossPercent  float64 // 손절 기준 (%)
	takeProfitRatio  float64 // 익절 배수 (손절 기준 대비)
	volumeMultiplier float64 // 돌파 확인 거래량 배수
}

// params는 설정 맵에서 읽어들인 전략 파라미터입니다
type params struct {
	lookback         int
	stopLossPercent  float64
	takeProfitRatio  float64
	volumeMultiplier float64
}

// parseParams는 설정 맵을 파라미터로 변환합니다.
// JSON으로 들어온 숫자(float64)와 코드에서 넘긴 int를 모두 허용합니다
func parseParams(config map[string]interface{}) (params, error) {
	p := params{
		lookback:         20,
		stopLossPercent:  2.0,
		takeProfitRatio:  2.0,
		volumeMultiplier: 1.5,
	}

	if config != nil {
		if v, ok := intValue(config["lookback"]); ok {
			p.lookback = v
		}
		if v, ok := floatValue(config["stopLossPercent"]); ok {
			p.stopLossPercent = v
		}
		if v, ok := floatValue(config["takeProfitRatio"]); ok {
			p.takeProfitRatio = v
		}
		if v, ok := floatValue(config["volumeMultiplier"]); ok {
			p.volumeMultiplier = v
		}
	}

	if p.lookback <= 1 {
		return params{}, fmt.Errorf("lookback은 1보다 커야 합니다: %d", p.lookback)
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

// New는 새로운 수렴 돌파 전략 인스턴스를 생성합니다
func New(config map[string]interface{}) (strategy.Strategy, error) {
	p, err := parseParams(config)
	if err != nil {
		return nil, err
	}

	s := &Strategy{
		BaseStrategy: strategy.NewBaseStrategy(
			Name,
			"변동성 수렴 후 거래량 동반 상향 돌파를 노리는 추세 전략",
			config,
		),
		rsiIndicator: indicator.NewRSI(14),
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
	s.lookback = p.lookback
	s.stopLossPercent = p.stopLossPercent
	s.takeProfitRatio = p.takeProfitRatio
	s.volumeMultiplier = p.volumeMultiplier
	s.volumeSMA = indicator.NewVolumeSMA(p.lookback)
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

// GenerateSignal은 캔들 데이터와 현재 포지션을 분석하여 매매 신호를 생성합니다
func (s *Strategy) GenerateSignal(ctx context.Context, candles domain.CandleList, position *domain.Position) (*domain.Signal, error) {
	// 판단에 필요한 최소 데이터 확인
	if len(candles) < s.lookback+10 {
		return nil, nil
	}

	current, _ := candles.GetLastCandle()
	currentPrice := current.Close

	if position.HasPosition() {
		return s.exitSignal(currentPrice, current, position), nil
	}

	return s.entrySignal(currentPrice, current, candles)
}

// exitSignal은 보유 포지션에 대한 손절/익절 신호를 판단합니다
func (s *Strategy) exitSignal(currentPrice float64, current domain.Candle, position *domain.Position) *domain.Signal {
	if position.EntryPrice <= 0 {
		return nil
	}

	pnlPercent := (currentPrice - position.EntryPrice) / position.EntryPrice * 100

	// 손절 또는 익절 기준 도달 시 전량 매도
	if pnlPercent <= -s.stopLossPercent || pnlPercent >= s.stopLossPercent*s.takeProfitRatio {
		return &domain.Signal{
			StrategyName: s.GetName(),
			Type:         domain.Sell,
			Symbol:       current.Symbol,
			Price:        currentPrice,
			Quantity:     position.Quantity,
			Timestamp:    time.Now(),
			Confidence:   1.0,
		}
	}

	return nil
}

// entrySignal은 신규 진입 조건을 판단합니다
func (s *Strategy) entrySignal(currentPrice float64, current domain.Candle, candles domain.CandleList) (*domain.Signal, error) {
	isConverging := s.detectConvergence(candles)
	isBreakoutUp := s.detectBreakoutUp(candles)
	volumeConfirmed := s.confirmVolume(candles)

	rsiOK, err := s.checkRSI(candles)
	if err != nil {
		return nil, err
	}

	if !(isConverging && isBreakoutUp && volumeConfirmed && rsiOK) {
		return nil, nil
	}

	return &domain.Signal{
		StrategyName: s.GetName(),
		Type:         domain.Buy,
		Symbol:       current.Symbol,
		Price:        currentPrice,
		Timestamp:    time.Now(),
		Confidence:   0.8,
		StopLoss:     currentPrice * (1 - s.stopLossPercent/100),
		TakeProfit:   currentPrice * (1 + s.stopLossPercent*s.takeProfitRatio/100),
		Metadata: map[string]interface{}{
			"reason": "수렴 돌파 + 거래량 급증",
		},
	}, nil
}

// detectConvergence는 최근 구간의 수익률 변동성이 직전 구간보다
// 줄어들었는지로 수렴 여부를 판단합니다
func (s *Strategy) detectConvergence(candles domain.CandleList) bool {
	if len(candles) < s.lookback*2 {
		return false
	}

	n := len(candles)
	recentStd := returnStdDev(candles[n-s.lookback : n])
	prevStd := returnStdDev(candles[n-s.lookback*2 : n-s.lookback])

	return recentStd < prevStd
}

// detectBreakoutUp은 현재 종가가 직전 구간의 최고가를 넘어섰고
// 양봉인지 확인합니다
func (s *Strategy) detectBreakoutUp(candles domain.CandleList) bool {
	if len(candles) < s.lookback+1 {
		return false
	}

	n := len(candles)
	current := candles[n-1]

	prevHigh := math.Inf(-1)
	for _, c := range candles[n-s.lookback-1 : n-1] {
		if c.High > prevHigh {
			prevHigh = c.High
		}
	}

	return current.Close > prevHigh && current.Close > current.Open
}

// confirmVolume은 현재 거래량이 직전 구간 거래량 이동평균의 배수를 넘는지 확인합니다
func (s *Strategy) confirmVolume(candles domain.CandleList) bool {
	n := len(candles)
	current := candles[n-1]

	// 현재 캔들을 제외한 시계열의 마지막 이동평균이 직전 구간 평균
	prices := indicator.ConvertCandlesToPriceData(candles[:n-1])
	results, err := s.volumeSMA.Calculate(prices)
	if err != nil {
		return false
	}

	last, ok := results[len(results)-1].(indicator.SMAResult)
	if !ok || math.IsNaN(last.Value) {
		return false
	}

	return current.Volume > last.Value*s.volumeMultiplier
}

// checkRSI는 과열 구간 진입을 걸러냅니다
func (s *Strategy) checkRSI(candles domain.CandleList) (bool, error) {
	prices := indicator.ConvertCandlesToPriceData(candles)

	results, err := s.rsiIndicator.Calculate(prices)
	if err != nil {
		return false, fmt.Errorf("RSI 계산 실패: %w", err)
	}

	last, ok := results[len(results)-1].(indicator.RSIResult)
	if !ok || math.IsNaN(last.Value) {
		return false, nil
	}

	return last.Value < rsiUpperLimit, nil
}

// returnStdDev는 종가 수익률의 표준편차를 계산합니다
func returnStdDev(candles domain.CandleList) float64 {
	if len(candles) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		if candles[i-1].Close == 0 {
			continue
		}
		returns = append(returns, (candles[i].Close-candles[i-1].Close)/candles[i-1].Close)
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance)
}
