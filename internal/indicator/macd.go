package indicator

import (
	"fmt"
	"math"
	"time"
)

// MACDResult는 MACD 지표 계산 결과입니다
type MACDResult struct {
	MACD      float64 // MACD 라인 (단기 EMA - 장기 EMA)
	Signal    float64 // 시그널 라인 (MACD의 EMA)
	Histogram float64 // MACD - Signal
	Timestamp time.Time
}

// GetTimestamp는 결과의 타임스탬프를 반환합니다 (Result 인터페이스 구현)
func (r MACDResult) GetTimestamp() time.Time {
	return r.Timestamp
}

// MACD는 이동평균 수렴확산 지표를 구현합니다
type MACD struct {
	BaseIndicator
	FastPeriod   int // 단기 EMA 기간
	SlowPeriod   int // 장기 EMA 기간
	SignalPeriod int // 시그널 EMA 기간
}

// NewMACD는 새로운 MACD 지표 인스턴스를 생성합니다
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		BaseIndicator: BaseIndicator{
			Name: fmt.Sprintf("MACD(%d,%d,%d)", fastPeriod, slowPeriod, signalPeriod),
			Config: map[string]interface{}{
				"FastPeriod":   fastPeriod,
				"SlowPeriod":   slowPeriod,
				"SignalPeriod": signalPeriod,
			},
		},
		FastPeriod:   fastPeriod,
		SlowPeriod:   slowPeriod,
		SignalPeriod: signalPeriod,
	}
}

// Calculate는 주어진 가격 데이터에 대해 MACD를 계산합니다
func (m *MACD) Calculate(prices []PriceData) ([]Result, error) {
	if m.SlowPeriod <= 0 || m.SignalPeriod <= 0 {
		return nil, &ValidationError{Field: "period", Err: fmt.Errorf("period must be > 0")}
	}
	if m.FastPeriod >= m.SlowPeriod {
		return nil, &ValidationError{Field: "period", Err: fmt.Errorf("단기 기간은 장기 기간보다 짧아야 합니다")}
	}
	if err := checkSeries(m.FastPeriod, m.SlowPeriod+m.SignalPeriod, prices); err != nil {
		return nil, err
	}

	fastAlpha := 2.0 / float64(m.FastPeriod+1)
	slowAlpha := 2.0 / float64(m.SlowPeriod+1)
	signalAlpha := 2.0 / float64(m.SignalPeriod+1)

	fastEMA := prices[0].Close
	slowEMA := prices[0].Close
	signal := 0.0

	results := make([]Result, len(prices))
	warmup := m.SlowPeriod + m.SignalPeriod

	for i := range prices {
		if i > 0 {
			fastEMA = fastAlpha*prices[i].Close + (1-fastAlpha)*fastEMA
			slowEMA = slowAlpha*prices[i].Close + (1-slowAlpha)*slowEMA
		}

		macd := fastEMA - slowEMA
		if i == 0 {
			signal = macd
		} else {
			signal = signalAlpha*macd + (1-signalAlpha)*signal
		}

		if i < warmup {
			results[i] = MACDResult{
				MACD:      math.NaN(),
				Signal:    math.NaN(),
				Histogram: math.NaN(),
				Timestamp: prices[i].Time,
			}
			continue
		}

		results[i] = MACDResult{
			MACD:      macd,
			Signal:    signal,
			Histogram: macd - signal,
			Timestamp: prices[i].Time,
		}
	}

	return results, nil
}
