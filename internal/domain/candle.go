package domain

import "time"

// Candle은 캔들 데이터를 표현합니다
type Candle struct {
	OpenTime  time.Time    // 캔들 시작 시간
	CloseTime time.Time    // 캔들 종료 시간
	Open      float64      // 시가
	High      float64      // 고가
	Low       float64      // 저가
	Close     float64      // 종가
	Volume    float64      // 거래량
	Symbol    string       // 심볼 (예: BTCUSDT)
	Interval  TimeInterval // 시간 간격 (예: 15m, 1h)
}

// CandleList는 캔들 데이터 목록입니다
type CandleList []Candle

// GetLastCandle은 가장 최근 캔들을 반환합니다
func (cl CandleList) GetLastCandle() (Candle, bool) {
	if len(cl) == 0 {
		return Candle{}, false
	}
	return cl[len(cl)-1], true
}

// GetPriceAtIndex는 특정 인덱스의 가격을 반환합니다
func (cl CandleList) GetPriceAtIndex(index int) (float64, bool) {
	if index < 0 || index >= len(cl) {
		return 0, false
	}
	return cl[index].Close, true
}

// GetSubList는 지정된 범위의 부분 리스트를 반환합니다
func (cl CandleList) GetSubList(start, end int) (CandleList, bool) {
	if start < 0 || end > len(cl) || start >= end {
		return nil, false
	}
	return cl[start:end], true
}

// TimeIntervalToDuration은 시간 간격을 time.Duration으로 변환합니다
func TimeIntervalToDuration(interval TimeInterval) time.Duration {
	switch interval {
	case Interval1m:
		return 1 * time.Minute
	case Interval3m:
		return 3 * time.Minute
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval30m:
		return 30 * time.Minute
	case Interval1h:
		return 1 * time.Hour
	case Interval2h:
		return 2 * time.Hour
	case Interval4h:
		return 4 * time.Hour
	case Interval6h:
		return 6 * time.Hour
	case Interval8h:
		return 8 * time.Hour
	case Interval12h:
		return 12 * time.Hour
	case Interval1d:
		return 24 * time.Hour
	default:
		return 1 * time.Hour
	}
}

// DurationToTimeInterval은 time.Duration을 시간 간격으로 변환합니다
func DurationToTimeInterval(d time.Duration) TimeInterval {
	switch d {
	case 1 * time.Minute:
		return Interval1m
	case 3 * time.Minute:
		return Interval3m
	case 5 * time.Minute:
		return Interval5m
	case 15 * time.Minute:
		return Interval15m
	case 30 * time.Minute:
		return Interval30m
	case 1 * time.Hour:
		return Interval1h
	case 2 * time.Hour:
		return Interval2h
	case 4 * time.Hour:
		return Interval4h
	case 6 * time.Hour:
		return Interval6h
	case 8 * time.Hour:
		return Interval8h
	case 12 * time.Hour:
		return Interval12h
	case 24 * time.Hour:
		return Interval1d
	default:
		return Interval1h
	}
}
