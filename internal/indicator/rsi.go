package indicator

import (
	"fmt"
	"math"
	"time"
)

// RSIResult는 RSI 지표 계산 결과입니다
type RSIResult struct {
	Value     float64
	Timestamp time.Time
}

// GetTimestamp는 결과의 타임스탬프를 반환합니다 (Result 인터페이스 구현)
func (r RSIResult) GetTimestamp() time.Time {
	return r.Timestamp
}

// RSI는 상대강도지수 지표를 구현합니다
type RSI struct {
	BaseIndicator
	Period int // RSI 기간
}

// NewRSI는 새로운 RSI 지표 인스턴스를 생성합니다
func NewRSI(period int) *RSI {
	return &RSI{
		BaseIndicator: BaseIndicator{
			Name: fmt.Sprintf("RSI(%d)", period),
			Config: map[string]interface{}{
				"Period": period,
			},
		},
		Period: period,
	}
}

// Calculate는 주어진 가격 데이터에 대해 RSI를 계산합니다.
// 와일더 방식의 지수 평활을 사용합니다
func (r *RSI) Calculate(prices []PriceData) ([]Result, error) {
	// 변화량 기반이라 기간보다 한 개 더 필요함
	if err := checkSeries(r.Period, r.Period+1, prices); err != nil {
		return nil, err
	}

	p := r.Period
	results := make([]Result, len(prices))

	// 기간 구간은 NaN
	for i := 0; i <= p && i < len(prices); i++ {
		results[i] = RSIResult{Value: math.NaN(), Timestamp: prices[i].Time}
	}

	// 초기 평균 상승/하락폭
	var avgGain, avgLoss float64
	for i := 1; i <= p; i++ {
		change := prices[i].Close - prices[i-1].Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(p)
	avgLoss /= float64(p)

	setResult := func(i int) {
		if avgLoss == 0 {
			results[i] = RSIResult{Value: 100, Timestamp: prices[i].Time}
			return
		}
		rs := avgGain / avgLoss
		results[i] = RSIResult{Value: 100 - 100/(1+rs), Timestamp: prices[i].Time}
	}

	if p < len(prices) {
		setResult(p)
	}

	// 와일더 평활
	for i := p + 1; i < len(prices); i++ {
		change := prices[i].Close - prices[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(p-1) + gain) / float64(p)
		avgLoss = (avgLoss*float64(p-1) + loss) / float64(p)
		setResult(i)
	}

	return results, nil
}
