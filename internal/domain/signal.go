package domain

import "time"

// Signal은 전략이 생성한 매매 제안을 담습니다.
// 한 번의 폴링 사이클에서 생성되어 즉시 주문 실행기로 전달되며, 따로 저장되지 않습니다
type Signal struct {
	StrategyName string                 // 시그널을 생성한 전략 이름
	Type         SignalType             // 시그널 유형 (BUY, SELL)
	Symbol       string                 // 심볼 (예: BTCUSDT)
	Price        float64                // 시그널 발생 시점 가격
	Quantity     float64                // 수량 (0이면 리스크 관리자가 계산)
	Timestamp    time.Time              // 시그널 생성 시간
	Confidence   float64                // 신뢰도 (0.0 ~ 1.0)
	StopLoss     float64                // 손절가 (0이면 미설정)
	TakeProfit   float64                // 익절가 (0이면 미설정)
	Metadata     map[string]interface{} // 전략별 부가 정보
}

// IsValid는 시그널이 유효한지 확인합니다
func (s *Signal) IsValid() bool {
	return s != nil && s.Type != NoSignal && s.Symbol != "" && s.Price > 0
}

// IsBuy는 시그널이 매수 시그널인지 확인합니다
func (s *Signal) IsBuy() bool {
	return s.Type == Buy
}

// IsSell은 시그널이 매도 시그널인지 확인합니다
func (s *Signal) IsSell() bool {
	return s.Type == Sell
}
