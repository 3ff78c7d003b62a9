package event

import "time"

// Type은 이벤트 유형을 정의합니다
type Type string

const (
	SystemStart     Type = "SYSTEM_START"
	SystemStop      Type = "SYSTEM_STOP"
	KlineUpdate     Type = "KLINE_UPDATE"
	SignalGenerated Type = "SIGNAL_GENERATED"
	OrderFilled     Type = "ORDER_FILLED"
	PositionOpened  Type = "POSITION_OPENED"
	PositionClosed  Type = "POSITION_CLOSED"
	AddSymbol       Type = "ADD_SYMBOL"
	RemoveSymbol    Type = "REMOVE_SYMBOL"
)

// Event는 버스를 통해 전달되는 단일 이벤트입니다.
// 이벤트는 휘발성이며 구독자당 최대 한 번만 소비됩니다
type Event struct {
	Type      Type                   // 이벤트 유형
	Data      map[string]interface{} // 페이로드
	Timestamp time.Time              // 발행 시간
	Source    string                 // 발행자 (예: "api", "engine")
}

// New는 현재 시간으로 새 이벤트를 생성합니다
func New(eventType Type, data map[string]interface{}) Event {
	return Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// Symbol은 페이로드에서 심볼 문자열을 꺼냅니다
func (e Event) Symbol() (string, bool) {
	v, ok := e.Data["symbol"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
