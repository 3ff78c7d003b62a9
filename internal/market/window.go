package market

import (
	"sync"
	"time"

	"github.com/assist-by/helios/internal/domain"
)

// Window는 단일 심볼의 최근 캔들을 고정 크기로 유지하는 슬라이딩 윈도우입니다.
// 심볼 태스크가 쓰고 API 핸들러가 읽을 수 있으므로 뮤텍스로 보호합니다
type Window struct {
	mu       sync.RWMutex
	symbol   string
	interval domain.TimeInterval
	maxSize  int
	candles  domain.CandleList
}

// NewWindow는 새로운 캔들 윈도우를 생성합니다
func NewWindow(symbol string, interval domain.TimeInterval, maxSize int) *Window {
	return &Window{
		symbol:   symbol,
		interval: interval,
		maxSize:  maxSize,
		candles:  make(domain.CandleList, 0, maxSize),
	}
}

// Symbol은 윈도우의 심볼을 반환합니다
func (w *Window) Symbol() string {
	return w.symbol
}

// Interval은 윈도우의 시간 간격을 반환합니다
func (w *Window) Interval() domain.TimeInterval {
	return w.interval
}

// Append는 캔들을 윈도우에 반영합니다.
// 마지막 캔들보다 새로운 시작 시간이면 추가하고 true를 반환합니다.
// 같은 시작 시간이면 기존 캔들을 갱신하고, 과거 캔들은 무시하며 false를 반환합니다
func (w *Window) Append(c domain.Candle) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(w.candles)
	if n > 0 {
		last := w.candles[n-1]
		if c.OpenTime.Equal(last.OpenTime) {
			// 진행 중 캔들의 갱신
			w.candles[n-1] = c
			return false
		}
		if c.OpenTime.Before(last.OpenTime) {
			return false
		}
	}

	w.candles = append(w.candles, c)
	if len(w.candles) > w.maxSize {
		w.candles = w.candles[len(w.candles)-w.maxSize:]
	}
	return true
}

// Seed는 과거 캔들로 윈도우를 초기화합니다. 시간 오름차순 입력을 가정합니다
func (w *Window) Seed(candles domain.CandleList) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := 0
	if len(candles) > w.maxSize {
		start = len(candles) - w.maxSize
	}
	w.candles = append(w.candles[:0], candles[start:]...)
}

// Snapshot은 윈도우 내용의 복사본을 반환합니다
func (w *Window) Snapshot() domain.CandleList {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make(domain.CandleList, len(w.candles))
	copy(out, w.candles)
	return out
}

// LastOpenTime은 마지막 캔들의 시작 시간을 반환합니다
func (w *Window) LastOpenTime() (time.Time, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if len(w.candles) == 0 {
		return time.Time{}, false
	}
	return w.candles[len(w.candles)-1].OpenTime, true
}

// Len은 보유 중인 캔들 수를 반환합니다
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.candles)
}
