package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/assist-by/helios/internal/domain"
)

// Exchange는 거래소와의 상호작용을 위한 인터페이스입니다.
type Exchange interface {
	// 시장 데이터 조회
	GetServerTime(ctx context.Context) (time.Time, error)
	GetKlines(ctx context.Context, symbol string, interval domain.TimeInterval, limit int) (domain.CandleList, error)

	// 계정 데이터 조회
	GetBalances(ctx context.Context) (map[string]domain.Balance, error)

	// 거래 기능
	PlaceOrder(ctx context.Context, order domain.OrderRequest) (*domain.OrderResponse, error)

	// 시간 동기화
	SyncTime(ctx context.Context) error
}

// APIError는 거래소가 요청을 명시적으로 거부했을 때의 에러입니다.
// 전송 실패와 달리 같은 요청을 반복해도 결과가 달라지지 않습니다
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsRetryable은 에러가 재시도 가능한지 판단합니다.
// 거래소의 명시적 거부(잔고 부족, 잘못된 파라미터 등)는 재시도하지 않고,
// 전송 계층 실패(타임아웃, 연결 끊김 등)만 재시도 대상으로 봅니다
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		// -1003: 요청 한도 초과, -1007: 거래소 측 타임아웃
		return apiErr.Code == -1003 || apiErr.Code == -1007
	}

	// API 거부가 아닌 에러는 전송 실패로 간주
	return true
}
