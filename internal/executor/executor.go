package executor

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/assist-by/helios/internal/domain"
	"github.com/assist-by/helios/internal/event"
	"github.com/assist-by/helios/internal/exchange"
	"github.com/assist-by/helios/internal/risk"
	"github.com/assist-by/helios/internal/storage"
)

// Executor는 전략 신호를 실제 주문으로 변환합니다.
// 모든 주문은 리스크 검사를 통과해야 하며, 체결된 주문만 원장에 기록됩니다
type Executor struct {
	ex      exchange.Exchange
	riskMgr *risk.Manager
	trades  storage.TradeStore
	bus     *event.Bus

	maxRetries int
	baseDelay  time.Duration
}

// Option은 실행기 생성 옵션을 정의합니다
type Option func(*Executor)

// WithRetryConfig는 주문 재시도 횟수와 기본 대기 시간을 설정합니다
func WithRetryConfig(maxRetries int, baseDelay time.Duration) Option {
	return func(e *Executor) {
		e.maxRetries = maxRetries
		e.baseDelay = baseDelay
	}
}

// New는 새로운 주문 실행기를 생성합니다
func New(ex exchange.Exchange, riskMgr *risk.Manager, trades storage.TradeStore, bus *event.Bus, opts ...Option) *Executor {
	e := &Executor{
		ex:         ex,
		riskMgr:    riskMgr,
		trades:     trades,
		bus:        bus,
		maxRetries: 3,
		baseDelay:  time.Second,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ExecuteSignal은 신호를 처리하여 체결된 거래를 반환합니다.
// 신호가 거부되거나 주문이 실패하면 nil을 반환하며 에러가 아닙니다
func (e *Executor) ExecuteSignal(ctx context.Context, signal *domain.Signal) (*storage.Trade, error) {
	if !signal.IsValid() {
		return nil, nil
	}

	log.Printf("신호 처리 시작: %s | 심볼: %s | 가격: %.2f", signal.Type, signal.Symbol, signal.Price)

	switch signal.Type {
	case domain.Buy:
		return e.executeBuy(ctx, signal)
	case domain.Sell:
		return e.executeSell(ctx, signal)
	default:
		return nil, nil
	}
}

// executeBuy는 매수 신호를 처리합니다
func (e *Executor) executeBuy(ctx context.Context, signal *domain.Signal) (*storage.Trade, error) {
	// 신호가 수량을 지정했으면 그대로 사용, 아니면 리스크 관리자가 계산
	quantity := signal.Quantity
	if quantity <= 0 {
		quantity = e.riskMgr.CalculatePositionSize(signal.Price)
	}
	if quantity <= 0 {
		log.Printf("매수 불가 (%s): 주문 수량이 0", signal.Symbol)
		return nil, nil
	}

	allowed, reason := e.riskMgr.CheckPreTrade(ctx, signal.Symbol, domain.SideBuy, quantity, signal.Price)
	if !allowed {
		log.Printf("매수 거부 (%s): %s", signal.Symbol, reason)
		return nil, nil
	}

	order := e.placeOrder(ctx, signal.Symbol, domain.SideBuy, quantity)
	if order.Status != domain.OrderFilled {
		log.Printf("매수 주문 실패 (%s): %s", signal.Symbol, order.ErrorMessage)
		return nil, nil
	}

	trade := &storage.Trade{
		Symbol:       signal.Symbol,
		Side:         domain.SideBuy,
		Quantity:     order.FilledQuantity,
		EntryPrice:   order.AvgPrice,
		Status:       domain.TradeOpen,
		StrategyName: signal.StrategyName,
		OpenedAt:     time.Now(),
	}
	if err := e.trades.InsertTrade(ctx, trade); err != nil {
		return nil, fmt.Errorf("거래 기록 실패 (%s): %w", signal.Symbol, err)
	}

	log.Printf("매수 체결: %s | %.6f @ %.2f", signal.Symbol, order.FilledQuantity, order.AvgPrice)

	e.bus.Publish(event.New(event.PositionOpened, map[string]interface{}{
		"symbol":   signal.Symbol,
		"quantity": order.FilledQuantity,
		"price":    order.AvgPrice,
		"strategy": signal.StrategyName,
	}))

	return trade, nil
}

// executeSell은 매도 신호를 처리합니다
func (e *Executor) executeSell(ctx context.Context, signal *domain.Signal) (*storage.Trade, error) {
	openTrade, err := e.trades.GetOpenTradeBySymbol(ctx, signal.Symbol)
	if err != nil {
		return nil, err
	}
	if openTrade == nil {
		log.Printf("매도 불가 (%s): 보유 포지션 없음", signal.Symbol)
		return nil, nil
	}

	quantity := signal.Quantity
	if quantity <= 0 {
		quantity = openTrade.Quantity
	}
	if quantity <= 0 {
		return nil, nil
	}

	order := e.placeOrder(ctx, signal.Symbol, domain.SideSell, quantity)
	if order.Status != domain.OrderFilled {
		log.Printf("매도 주문 실패 (%s): %s", signal.Symbol, order.ErrorMessage)
		return nil, nil
	}

	// 실현 손익은 체결 가격과 진입 가격의 차이에 청산 수량을 곱한 값
	closedQty := math.Min(quantity, openTrade.Quantity)
	pnl := (order.AvgPrice - openTrade.EntryPrice) * closedQty
	closedAt := time.Now()

	if err := e.trades.CloseTrade(ctx, openTrade.ID, order.AvgPrice, pnl, closedAt); err != nil {
		return nil, fmt.Errorf("거래 청산 기록 실패 (%s): %w", signal.Symbol, err)
	}

	e.riskMgr.RecordTradePnL(pnl)

	log.Printf("매도 체결: %s | 손익: %.2f", signal.Symbol, pnl)

	e.bus.Publish(event.New(event.PositionClosed, map[string]interface{}{
		"symbol":   signal.Symbol,
		"quantity": closedQty,
		"price":    order.AvgPrice,
		"pnl":      pnl,
		"strategy": openTrade.StrategyName,
	}))

	return &storage.Trade{
		ID:           openTrade.ID,
		Symbol:       signal.Symbol,
		Side:         domain.SideSell,
		Quantity:     closedQty,
		EntryPrice:   openTrade.EntryPrice,
		ExitPrice:    order.AvgPrice,
		PnL:          pnl,
		Status:       domain.TradeClosed,
		StrategyName: openTrade.StrategyName,
		OpenedAt:     openTrade.OpenedAt,
		ClosedAt:     &closedAt,
	}, nil
}

// placeOrder는 시장가 주문을 제한된 횟수만큼 재시도하며 전송합니다.
// 대기 시간은 시도마다 선형으로 늘어납니다. 거래소가 명시적으로 거부한
// 주문은 재시도하지 않습니다
func (e *Executor) placeOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64) domain.Order {
	order := domain.Order{
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Status:   domain.OrderPending,
	}

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		resp, err := e.ex.PlaceOrder(ctx, domain.OrderRequest{
			Symbol:   symbol,
			Side:     side,
			Quantity: quantity,
		})
		if err == nil {
			order.OrderID = fmt.Sprintf("%d", resp.OrderID)
			order.Status = domain.OrderFilled
			order.FilledQuantity = resp.ExecutedQuantity
			if order.FilledQuantity == 0 {
				order.FilledQuantity = quantity
			}
			order.AvgPrice = resp.AvgPrice
			log.Printf("주문 성공: %s | OrderID: %s", symbol, order.OrderID)
			return order
		}

		order.ErrorMessage = err.Error()
		log.Printf("주문 실패 (시도 %d/%d): %v", attempt+1, e.maxRetries, err)

		if !exchange.IsRetryable(err) {
			break
		}

		if attempt < e.maxRetries-1 {
			if !sleepContext(ctx, e.baseDelay*time.Duration(attempt+1)) {
				break
			}
		}
	}

	order.Status = domain.OrderFailed
	return order
}

// sleepContext는 컨텍스트 취소를 존중하는 대기입니다
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
