package indicator

import (
	"fmt"
	"math"
	"time"
)

// SMAResult는 SMA 지표 계산 결과입니다
type SMAResult struct {
	Value     float64
	Timestamp time.Time
}

// GetTimestamp는 결과의 타임스탬프를 반환합니다 (Result 인터페이스 구현)
func (r SMAResult) GetTimestamp() time.Time {
	return r.Timestamp
}

// SMA는 단순이동평균 지표를 구현합니다.
// 기본은 종가 기준이며, 거래량 등 다른 필드를 평균 낼 수도 있습니다
type SMA struct {
	BaseIndicator
	Period int        // SMA 기간
	Field  PriceField // 평균 대상 필드
}

// NewSMA는 종가 기준 SMA 지표 인스턴스를 생성합니다
func NewSMA(period int) *SMA {
	return newSMA(period, FieldClose, fmt.Sprintf("SMA(%d)", period))
}

// NewVolumeSMA는 거래량 이동평균 지표 인스턴스를 생성합니다.
// 돌파 시 거래량 급증 여부를 판단하는 기준선으로 사용됩니다
func NewVolumeSMA(period int) *SMA {
	return newSMA(period, FieldVolume, fmt.Sprintf("VolumeSMA(%d)", period))
}

func newSMA(period int, field PriceField, name string) *SMA {
	return &SMA{
		BaseIndicator: BaseIndicator{
			Name: name,
			Config: map[string]interface{}{
				"Period": period,
			},
		},
		Period: period,
		Field:  field,
	}
}

// Calculate는 주어진 가격 데이터에 대해 SMA를 계산합니다.
// 기간을 채우기 전 구간의 값은 NaN입니다
func (s *SMA) Calculate(prices []PriceData) ([]Result, error) {
	if err := checkSeries(s.Period, s.Period, prices); err != nil {
		return nil, err
	}

	p := s.Period
	results := make([]Result, len(prices))

	// 슬라이딩 윈도우 합으로 계산
	var sum float64
	for i, price := range prices {
		sum += s.Field.value(price)
		if i >= p {
			sum -= s.Field.value(prices[i-p])
		}

		if i < p-1 {
			results[i] = SMAResult{Value: math.NaN(), Timestamp: price.Time}
			continue
		}
		results[i] = SMAResult{Value: sum / float64(p), Timestamp: price.Time}
	}

	return results, nil
}
