package indicator

import (
	"fmt"
	"math"
	"time"
)

// EMAResult는 EMA 지표 계산 결과입니다
type EMAResult struct {
	Value     float64
	Timestamp time.Time
}

// GetTimestamp는 결과의 타임스탬프를 반환합니다 (Result 인터페이스 구현)
func (r EMAResult) GetTimestamp() time.Time {
	return r.Timestamp
}

// EMA는 지수이동평균 지표를 구현합니다
type EMA struct {
	BaseIndicator
	Period int // EMA 기간
}

// NewEMA는 새로운 EMA 지표 인스턴스를 생성합니다
func NewEMA(period int) *EMA {
	return &EMA{
		BaseIndicator: BaseIndicator{
			Name: fmt.Sprintf("EMA(%d)", period),
			Config: map[string]interface{}{
				"Period": period,
			},
		},
		Period: period,
	}
}

// Calculate는 주어진 가격 데이터에 대해 EMA를 계산합니다.
// 첫 종가를 시작값으로 평활하며, 기간을 채우기 전 구간의 값은 NaN입니다
func (e *EMA) Calculate(prices []PriceData) ([]Result, error) {
	if err := checkSeries(e.Period, e.Period, prices); err != nil {
		return nil, err
	}

	p := e.Period
	alpha := 2.0 / float64(p+1)
	results := make([]Result, len(prices))

	ema := prices[0].Close
	for i, price := range prices {
		if i > 0 {
			ema = alpha*price.Close + (1-alpha)*ema
		}

		if i < p {
			results[i] = EMAResult{Value: math.NaN(), Timestamp: price.Time}
			continue
		}
		results[i] = EMAResult{Value: ema, Timestamp: price.Time}
	}

	return results, nil
}
