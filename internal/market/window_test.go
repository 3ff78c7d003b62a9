package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/assist-by/helios/internal/domain"
)

func candleAt(openTime time.Time, close float64) domain.Candle {
	return domain.Candle{
		Symbol:    "BTCUSDT",
		Interval:  domain.Interval1h,
		OpenTime:  openTime,
		CloseTime: openTime.Add(time.Hour),
		Open:      close,
		High:      close,
		Low:       close,
		Close:     close,
		Volume:    100,
	}
}

func candleSeries(n int, start time.Time) domain.CandleList {
	out := make(domain.CandleList, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, candleAt(start.Add(time.Duration(i)*time.Hour), float64(100+i)))
	}
	return out
}

// 새 캔들 추가, 진행 중 캔들 갱신, 과거 캔들 무시를 구분해야 함
func TestWindowAppend(t *testing.T) {
	w := NewWindow("BTCUSDT", domain.Interval1h, 100)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// 첫 캔들은 항상 새 캔들
	assert.True(t, w.Append(candleAt(base, 100)))
	assert.Equal(t, 1, w.Len())

	// 같은 시작 시간은 갱신이며 새 캔들이 아님
	assert.False(t, w.Append(candleAt(base, 105)))
	assert.Equal(t, 1, w.Len())
	assert.Equal(t, 105.0, w.Snapshot()[0].Close, "진행 중 캔들은 최신 값으로 갱신되어야 함")

	// 더 새로운 시작 시간은 추가
	assert.True(t, w.Append(candleAt(base.Add(time.Hour), 110)))
	assert.Equal(t, 2, w.Len())

	// 과거 캔들은 무시
	assert.False(t, w.Append(candleAt(base.Add(-time.Hour), 90)))
	assert.Equal(t, 2, w.Len())
}

// 최대 크기를 넘으면 가장 오래된 캔들부터 버려야 함
func TestWindowTrimsToMaxSize(t *testing.T) {
	w := NewWindow("BTCUSDT", domain.Interval1h, 3)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		w.Append(candleAt(base.Add(time.Duration(i)*time.Hour), float64(100+i)))
	}

	snapshot := w.Snapshot()
	assert.Len(t, snapshot, 3)
	assert.Equal(t, 102.0, snapshot[0].Close)
	assert.Equal(t, 104.0, snapshot[2].Close)
}

// Seed는 최근 maxSize개만 유지해야 함
func TestWindowSeed(t *testing.T) {
	w := NewWindow("BTCUSDT", domain.Interval1h, 3)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	w.Seed(candleSeries(10, base))

	snapshot := w.Snapshot()
	assert.Len(t, snapshot, 3)
	assert.Equal(t, 107.0, snapshot[0].Close)
	assert.Equal(t, 109.0, snapshot[2].Close)

	last, ok := w.LastOpenTime()
	assert.True(t, ok)
	assert.Equal(t, base.Add(9*time.Hour), last)
}

// Snapshot은 내부 상태와 독립적인 복사본이어야 함
func TestWindowSnapshotIsolation(t *testing.T) {
	w := NewWindow("BTCUSDT", domain.Interval1h, 100)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	w.Append(candleAt(base, 100))

	snapshot := w.Snapshot()
	snapshot[0].Close = 999

	assert.Equal(t, 100.0, w.Snapshot()[0].Close, "스냅샷 수정이 윈도우에 영향을 주면 안 됨")
}

// 빈 윈도우의 LastOpenTime은 false를 반환해야 함
func TestWindowEmpty(t *testing.T) {
	w := NewWindow("BTCUSDT", domain.Interval1h, 100)

	_, ok := w.LastOpenTime()
	assert.False(t, ok)
	assert.Zero(t, w.Len())
	assert.Empty(t, w.Snapshot())
}
