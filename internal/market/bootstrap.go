package market

import (
	"context"
	"fmt"
	"log"

	"github.com/assist-by/helios/internal/domain"
	"github.com/assist-by/helios/internal/exchange"
	"github.com/assist-by/helios/internal/storage"
)

// Bootstrap은 거래소에서 과거 캔들을 내려받아 윈도우를 초기화하고,
// 받아온 캔들을 저장소에 보관합니다
func Bootstrap(ctx context.Context, ex exchange.Exchange, klines storage.KlineStore, symbol string, interval domain.TimeInterval, limit int) (*Window, error) {
	candles, err := ex.GetKlines(ctx, symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("과거 캔들 조회 실패 (%s): %w", symbol, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("과거 캔들이 비어있음 (%s)", symbol)
	}

	if err := klines.SaveCandles(ctx, candles); err != nil {
		// 저장 실패는 모니터링을 막지 않음
		log.Printf("캔들 저장 실패 (%s): %v", symbol, err)
	}

	w := NewWindow(symbol, interval, limit)
	w.Seed(candles)

	log.Printf("캔들 윈도우 초기화 완료: %s (%d개)", symbol, w.Len())
	return w, nil
}
