package convergence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/helios/internal/domain"
	"github.com/assist-by/helios/internal/strategy"
)

func newTestStrategy(t *testing.T) strategy.Strategy {
	t.Helper()
	s, err := New(map[string]interface{}{
		"lookback":         5,
		"stopLossPercent":  2.0,
		"takeProfitRatio":  2.0,
		"volumeMultiplier": 1.5,
	})
	require.NoError(t, err)
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

// buildCandles는 종가와 거래량 배열로 캔들 시퀀스를 생성합니다.
// 시가는 직전 종가, 고가는 시가/종가 중 큰 값에 0.2를 더한 값입니다
func buildCandles(closes, volumes []float64) domain.CandleList {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make(domain.CandleList, len(closes))
	for i := range closes {
		open := closes[i]
		if i > 0 {
			open = closes[i-1]
		}
		high := open
		if closes[i] > high {
			high = closes[i]
		}
		low := open
		if closes[i] < low {
			low = closes[i]
		}
		candles[i] = domain.Candle{
			Symbol:    "BTCUSDT",
			Interval:  domain.Interval1h,
			OpenTime:  base.Add(time.Duration(i) * time.Hour),
			CloseTime: base.Add(time.Duration(i+1) * time.Hour),
			Open:      open,
			High:      high + 0.2,
			Low:       low - 0.2,
			Close:     closes[i],
			Volume:    volumes[i],
		}
	}
	return candles
}

// entryScenario는 네 가지 진입 조건을 모두 만족하는 캔들 시퀀스입니다.
// 앞부분은 변동성이 크고, 직전 구간은 수렴하며, 마지막 캔들이
// 거래량 급증과 함께 직전 고점을 상향 돌파합니다
func entryScenario() domain.CandleList {
	closes := []float64{
		100, 110, 95, 108, 94, 106, 96, 104, 97, 103, // 변동성 큰 구간
		98, 102, 99, 101, 100, // 직전 구간
		100.2, 100.1, 100.3, 100.2, // 수렴 구간
		103, // 돌파 캔들
	}
	volumes := make([]float64, len(closes))
	for i := range volumes {
		volumes[i] = 100
	}
	volumes[len(volumes)-1] = 300
	return buildCandles(closes, volumes)
}

// 모든 진입 조건이 충족되면 매수 신호가 생성되어야 함
func TestEntrySignal(t *testing.T) {
	s := newTestStrategy(t)
	candles := entryScenario()

	signal, err := s.GenerateSignal(context.Background(), candles, nil)
	require.NoError(t, err)
	require.NotNil(t, signal, "진입 조건이 모두 충족되면 신호가 나와야 함")

	assert.Equal(t, domain.Buy, signal.Type)
	assert.Equal(t, "BTCUSDT", signal.Symbol)
	assert.Equal(t, 103.0, signal.Price)
	assert.InDelta(t, 103*0.98, signal.StopLoss, 1e-9, "손절가는 진입가의 2% 아래여야 함")
	assert.InDelta(t, 103*1.04, signal.TakeProfit, 1e-9, "목표가는 진입가의 4% 위여야 함")
	assert.InDelta(t, 0.8, signal.Confidence, 1e-9)
}

// 거래량이 부족하면 진입 신호가 나오지 않아야 함
func TestEntryRequiresVolume(t *testing.T) {
	s := newTestStrategy(t)
	candles := entryScenario()

	// 돌파 캔들의 거래량을 평균 수준으로 낮춤
	candles[len(candles)-1].Volume = 100

	signal, err := s.GenerateSignal(context.Background(), candles, nil)
	require.NoError(t, err)
	assert.Nil(t, signal)
}

// 돌파 없이는 진입 신호가 나오지 않아야 함
func TestEntryRequiresBreakout(t *testing.T) {
	s := newTestStrategy(t)
	candles := entryScenario()

	// 종가를 직전 고점 아래로 낮춤
	last := &candles[len(candles)-1]
	last.Close = 100.3
	last.High = 100.5

	signal, err := s.GenerateSignal(context.Background(), candles, nil)
	require.NoError(t, err)
	assert.Nil(t, signal)
}

// 음봉 돌파는 진입 신호가 아니어야 함
func TestEntryRequiresBullishCandle(t *testing.T) {
	s := newTestStrategy(t)
	candles := entryScenario()

	// 종가는 고점 위지만 시가보다 낮은 음봉으로 변경
	last := &candles[len(candles)-1]
	last.Open = 105
	last.High = 105.2

	signal, err := s.GenerateSignal(context.Background(), candles, nil)
	require.NoError(t, err)
	assert.Nil(t, signal)
}

// 변동성이 수렴하지 않으면 진입 신호가 나오지 않아야 함
func TestEntryRequiresConvergence(t *testing.T) {
	s := newTestStrategy(t)

	// 최근 구간이 직전 구간보다 변동성이 큼
	closes := []float64{
		100, 110, 95, 108, 94, 106, 96, 104, 97, 103,
		100, 100.1, 100, 100.1, 100, // 직전 구간이 조용함
		96, 105, 95, 104, // 최근 구간이 요동침
		110,
	}
	volumes := make([]float64, len(closes))
	for i := range volumes {
		volumes[i] = 100
	}
	volumes[len(volumes)-1] = 300

	signal, err := s.GenerateSignal(context.Background(), buildCandles(closes, volumes), nil)
	require.NoError(t, err)
	assert.Nil(t, signal)
}

// 데이터가 부족하면 조용히 신호 없음으로 처리되어야 함
func TestInsufficientData(t *testing.T) {
	s := newTestStrategy(t)
	candles := entryScenario()

	signal, err := s.GenerateSignal(context.Background(), candles[:10], nil)
	require.NoError(t, err)
	assert.Nil(t, signal)
}

// 손절 기준에 도달하면 전량 매도 신호가 나와야 함
func TestExitStopLoss(t *testing.T) {
	s := newTestStrategy(t)
	candles := entryScenario()
	candles[len(candles)-1].Close = 97.9 // 진입가 100 대비 -2.1%

	position := &domain.Position{
		Symbol:     "BTCUSDT",
		Quantity:   0.5,
		EntryPrice: 100,
		OpenedAt:   time.Now(),
	}

	signal, err := s.GenerateSignal(context.Background(), candles, position)
	require.NoError(t, err)
	require.NotNil(t, signal)

	assert.Equal(t, domain.Sell, signal.Type)
	assert.Equal(t, 0.5, signal.Quantity, "손절은 전량 매도여야 함")
	assert.InDelta(t, 1.0, signal.Confidence, 1e-9)
}

// 익절 기준에 도달하면 전량 매도 신호가 나와야 함
func TestExitTakeProfit(t *testing.T) {
	s := newTestStrategy(t)
	candles := entryScenario()
	candles[len(candles)-1].Close = 104.1 // 진입가 100 대비 +4.1%

	position := &domain.Position{
		Symbol:     "BTCUSDT",
		Quantity:   0.5,
		EntryPrice: 100,
		OpenedAt:   time.Now(),
	}

	signal, err := s.GenerateSignal(context.Background(), candles, position)
	require.NoError(t, err)
	require.NotNil(t, signal)
	assert.Equal(t, domain.Sell, signal.Type)
}

// 손절/익절 기준 사이에서는 포지션을 유지해야 함
func TestExitHoldsInBetween(t *testing.T) {
	s := newTestStrategy(t)
	candles := entryScenario()
	candles[len(candles)-1].Close = 101 // +1%: 기준 미달

	position := &domain.Position{
		Symbol:     "BTCUSDT",
		Quantity:   0.5,
		EntryPrice: 100,
		OpenedAt:   time.Now(),
	}

	signal, err := s.GenerateSignal(context.Background(), candles, position)
	require.NoError(t, err)
	assert.Nil(t, signal, "기준 미달 시 청산하면 안 됨")
}

// lookback이 1 이하이면 생성이 실패해야 함
func TestNewRejectsInvalidLookback(t *testing.T) {
	_, err := New(map[string]interface{}{"lookback": 1})
	assert.Error(t, err)
}

// 설정 갱신이 전략 동작에 즉시 반영되어야 함
func TestUpdateConfigAppliesParams(t *testing.T) {
	s := newTestStrategy(t)
	candles := entryScenario()
	candles[len(candles)-1].Close = 101 // 진입가 100 대비 +1%: 기본 기준 미달

	position := &domain.Position{
		Symbol:     "BTCUSDT",
		Quantity:   0.5,
		EntryPrice: 100,
		OpenedAt:   time.Now(),
	}

	signal, err := s.GenerateSignal(context.Background(), candles, position)
	require.NoError(t, err)
	require.Nil(t, signal)

	// JSON 숫자(float64)로 들어온 갱신도 반영되어야 함
	require.NoError(t, s.UpdateConfig(map[string]interface{}{
		"stopLossPercent": 0.5,
		"takeProfitRatio": 1.0,
	}))

	signal, err = s.GenerateSignal(context.Background(), candles, position)
	require.NoError(t, err)
	require.NotNil(t, signal, "익절 기준 갱신이 반영되어야 함")
	assert.Equal(t, domain.Sell, signal.Type)
}

// 유효하지 않은 설정 갱신은 거부되고 기존 설정이 유지되어야 함
func TestUpdateConfigRejectsInvalid(t *testing.T) {
	s := newTestStrategy(t)

	err := s.UpdateConfig(map[string]interface{}{"lookback": float64(1)})
	require.Error(t, err)
	assert.Equal(t, 5, s.GetConfig()["lookback"], "거부된 갱신은 설정에 남으면 안 됨")
}
