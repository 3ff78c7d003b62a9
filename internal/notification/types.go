package notification

import "github.com/assist-by/helios/internal/domain"

const (
	ColorSuccess = 0x00FF00 // 녹색
	ColorError   = 0xFF0000 // 빨간색
	ColorInfo    = 0x0000FF // 파란색
	ColorWarning = 0xFFA500 // 주황색
)

// Notifier는 알림 전송 인터페이스를 정의합니다
type Notifier interface {
	// SendSignal은 트레이딩 시그널 알림을 전송합니다
	SendSignal(signal *domain.Signal) error

	// SendError는 에러 알림을 전송합니다
	SendError(err error) error

	// SendInfo는 일반 정보 알림을 전송합니다
	SendInfo(message string) error

	// SendTradeInfo는 거래 실행 정보를 전송합니다
	SendTradeInfo(info TradeInfo) error
}

// TradeInfo는 거래 실행 정보를 정의합니다
type TradeInfo struct {
	Symbol   string           // 심볼 (예: BTCUSDT)
	Side     domain.OrderSide // 매수/매도
	Quantity float64          // 체결 수량
	Price    float64          // 체결 가격
	PnL      float64          // 실현 손익 (청산일 때만 유효)
	Balance  float64          // 현재 잔고
}

// GetColorForSide는 주문 방향에 따른 색상을 반환합니다
func GetColorForSide(side domain.OrderSide) int {
	switch side {
	case domain.SideBuy:
		return ColorSuccess
	case domain.SideSell:
		return ColorError
	default:
		return ColorInfo
	}
}
