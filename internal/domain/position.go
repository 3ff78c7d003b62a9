package domain

import "time"

// Position은 특정 심볼에 대해 현재 보유 중인 포지션 스냅샷입니다.
// 원장의 OPEN 거래에서 파생되며 전략과 리스크 검사에 전달됩니다
type Position struct {
	Symbol     string    // 심볼
	Quantity   float64   // 보유 수량
	EntryPrice float64   // 진입 가격
	OpenedAt   time.Time // 진입 시간
}

// HasPosition은 유효한 보유 포지션인지 확인합니다
func (p *Position) HasPosition() bool {
	return p != nil && p.Quantity > 0
}
