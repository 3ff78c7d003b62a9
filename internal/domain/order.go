package domain

import "time"

// OrderRequest는 주문 요청 정보를 표현합니다
type OrderRequest struct {
	Symbol   string    // 심볼 (예: BTCUSDT)
	Side     OrderSide // 매수/매도
	Quantity float64   // 수량
}

// OrderResponse는 거래소의 주문 응답을 표현합니다
type OrderResponse struct {
	OrderID          int64     // 주문 ID
	Symbol           string    // 심볼
	Status           string    // 거래소 측 주문 상태
	AvgPrice         float64   // 평균 체결 가격
	OrigQuantity     float64   // 원래 주문 수량
	ExecutedQuantity float64   // 체결된 수량
	Side             OrderSide // 매수/매도
	CreateTime       time.Time // 주문 생성 시간
}

// Order는 주문 실행기가 추적하는 일시적인 주문 상태입니다.
// 주문 전송과 재시도 동안에만 존재하며 원장에는 기록되지 않습니다
type Order struct {
	OrderID        string      // 거래소 주문 ID
	Symbol         string      // 심볼
	Side           OrderSide   // 매수/매도
	Quantity       float64     // 요청 수량
	Status         OrderStatus // PENDING, FILLED, FAILED
	FilledQuantity float64     // 체결 수량
	AvgPrice       float64     // 평균 체결 가격
	ErrorMessage   string      // 실패 시 에러 메시지
}

// Balance는 계정 잔고 스냅샷을 표현합니다
type Balance struct {
	Asset     string  // 자산 심볼 (예: USDT)
	Total     float64 // 총 잔고
	Available float64 // 사용 가능한 잔고
}
