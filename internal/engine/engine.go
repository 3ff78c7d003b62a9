package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/assist-by/helios/internal/config"
	"github.com/assist-by/helios/internal/domain"
	"github.com/assist-by/helios/internal/event"
	"github.com/assist-by/helios/internal/exchange"
	"github.com/assist-by/helios/internal/executor"
	"github.com/assist-by/helios/internal/market"
	"github.com/assist-by/helios/internal/risk"
	"github.com/assist-by/helios/internal/storage"
	"github.com/assist-by/helios/internal/strategy"
)

const (
	// errorCooldown은 심볼 태스크에서 에러 발생 후 재시도까지의 대기 시간입니다
	errorCooldown = 10 * time.Second

	// statusReportInterval은 상태 보고 주기입니다
	statusReportInterval = 1 * time.Hour

	// heartbeatInterval은 하트비트 로그 주기입니다
	heartbeatInterval = 1 * time.Hour

	quoteAsset = "USDT"
)

// symbolTask는 모니터링 중인 심볼 하나의 실행 상태입니다
type symbolTask struct {
	symbol string
	cancel context.CancelFunc
	window *market.Window
}

// Engine은 심볼별 폴링 태스크를 관리하는 트레이딩 엔진입니다.
// 이벤트 버스를 통해 실행 중에 심볼을 추가/제거할 수 있습니다
type Engine struct {
	cfg        *config.Config
	ex         exchange.Exchange
	store      storage.Store
	bus        *event.Bus
	riskMgr    *risk.Manager
	strategies *strategy.Manager
	exec       *executor.Executor

	mu    sync.Mutex
	tasks map[string]*symbolTask

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// New는 새로운 트레이딩 엔진을 생성합니다
func New(cfg *config.Config, ex exchange.Exchange, store storage.Store, bus *event.Bus,
	riskMgr *risk.Manager, strategies *strategy.Manager, exec *executor.Executor) *Engine {
	return &Engine{
		cfg:        cfg,
		ex:         ex,
		store:      store,
		bus:        bus,
		riskMgr:    riskMgr,
		strategies: strategies,
		exec:       exec,
		tasks:      make(map[string]*symbolTask),
	}
}

// Start는 엔진을 초기화하고 백그라운드 태스크를 시작합니다.
// 거래소나 저장소에 접근할 수 없으면 에러를 반환하며, 이 경우 프로세스를
// 중단해야 합니다
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	// 1. 거래소 시간 동기화
	if err := e.ex.SyncTime(e.ctx); err != nil {
		return fmt.Errorf("거래소 시간 동기화 실패: %w", err)
	}

	// 2. 초기 잔고 조회 및 리스크 관리자 초기화
	total, available, err := e.fetchBalance(e.ctx)
	if err != nil {
		return fmt.Errorf("초기 잔고 조회 실패: %w", err)
	}
	e.riskMgr.Initialize(total)
	e.riskMgr.UpdateBalance(total, available)

	// 3. 모니터링 심볼 목록 복원 (없으면 설정값 사용)
	symbols, err := e.store.GetSymbols(e.ctx)
	if err != nil {
		return fmt.Errorf("심볼 목록 복원 실패: %w", err)
	}
	if len(symbols) == 0 {
		symbols = e.cfg.App.Symbols
		if err := e.store.SaveSymbols(e.ctx, symbols); err != nil {
			return fmt.Errorf("심볼 목록 저장 실패: %w", err)
		}
	}

	// 4. 핫플러그 및 청산 이벤트 구독
	e.bus.Subscribe(event.AddSymbol, e.handleAddSymbol)
	e.bus.Subscribe(event.RemoveSymbol, e.handleRemoveSymbol)
	e.bus.Subscribe(event.PositionClosed, e.handlePositionClosed)

	// 5. 이벤트 버스 디스패치 루프 시작
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.bus.Run(e.ctx)
	}()

	// 6. 심볼별 태스크 시작
	interval := domain.DurationToTimeInterval(e.cfg.App.FetchInterval)
	for _, symbol := range symbols {
		if err := e.spawnSymbol(e.ctx, symbol, interval); err != nil {
			return err
		}
	}

	// 7. 상태 보고 및 하트비트 태스크 시작
	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.statusReportLoop(e.ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.heartbeatLoop(e.ctx)
	}()

	e.bus.Publish(event.New(event.SystemStart, map[string]interface{}{
		"balance": total,
		"symbols": symbols,
	}))

	log.Printf("트레이딩 엔진 시작 완료: 심볼 %v, 간격 %s", symbols, interval)
	return nil
}

// Stop은 모든 태스크를 취소하고 종료를 기다린 뒤 외부 연결을 해제합니다
func (e *Engine) Stop() {
	log.Println("트레이딩 엔진 중지 중...")

	e.bus.Publish(event.New(event.SystemStop, nil))

	if e.cancel != nil {
		e.cancel()
	}
	e.bus.Stop()
	e.wg.Wait()

	if err := e.store.Close(); err != nil {
		log.Printf("저장소 종료 실패: %v", err)
	}

	log.Println("트레이딩 엔진 중지 완료")
}

// ActiveSymbols는 현재 모니터링 중인 심볼 목록을 반환합니다
func (e *Engine) ActiveSymbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	symbols := make([]string, 0, len(e.tasks))
	for symbol := range e.tasks {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// Window는 심볼의 캔들 윈도우를 반환합니다
func (e *Engine) Window(symbol string) (*market.Window, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, ok := e.tasks[symbol]
	if !ok {
		return nil, false
	}
	return task.window, true
}

// spawnSymbol은 심볼의 과거 데이터를 동기적으로 적재한 뒤 폴링 태스크를 시작합니다
func (e *Engine) spawnSymbol(ctx context.Context, symbol string, interval domain.TimeInterval) error {
	window, err := market.Bootstrap(ctx, e.ex, e.store, symbol, interval, e.cfg.App.CandleLimit)
	if err != nil {
		return fmt.Errorf("심볼 초기화 실패 (%s): %w", symbol, err)
	}

	taskCtx, taskCancel := context.WithCancel(ctx)
	task := &symbolTask{
		symbol: symbol,
		cancel: taskCancel,
		window: window,
	}

	e.mu.Lock()
	e.tasks[symbol] = task
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runSymbol(taskCtx, task, interval)
	}()

	return nil
}

// runSymbol은 단일 심볼의 폴링 루프입니다.
// 취소는 대기 중에만 확인하므로 진행 중인 네트워크 호출이 중간에 끊기지 않습니다
func (e *Engine) runSymbol(ctx context.Context, task *symbolTask, interval domain.TimeInterval) {
	d := domain.TimeIntervalToDuration(interval)
	stagger := e.staggerOffset(task.symbol)

	log.Printf("심볼 태스크 시작: %s (오프셋 %s)", task.symbol, stagger)

	for {
		// 다음 간격 경계 + 심볼별 오프셋까지 대기
		next := time.Now().Truncate(d).Add(d).Add(stagger)
		if !sleepUntil(ctx, next) {
			log.Printf("심볼 태스크 종료: %s", task.symbol)
			return
		}

		if err := e.pollSymbol(ctx, task, interval); err != nil {
			log.Printf("심볼 처리 에러 (%s): %v", task.symbol, err)
			// 일시적 장애 후 재시도 전 대기
			if !sleepUntil(ctx, time.Now().Add(errorCooldown)) {
				return
			}
		}
	}
}

// pollSymbol은 한 번의 폴링 사이클을 수행합니다
func (e *Engine) pollSymbol(ctx context.Context, task *symbolTask, interval domain.TimeInterval) error {
	candles, err := e.ex.GetKlines(ctx, task.symbol, interval, 2)
	if err != nil {
		return fmt.Errorf("캔들 조회 실패: %w", err)
	}
	if len(candles) == 0 {
		// 새 캔들이 없는 것은 에러가 아님
		return nil
	}

	latest, _ := candles.GetLastCandle()
	isNew := task.window.Append(latest)
	if !isNew {
		// 마지막으로 본 캔들과 동일하면 조용히 다음 주기를 기다림
		return nil
	}

	log.Printf("캔들 업데이트: %s | %s | 종가: %.2f", task.symbol, latest.OpenTime.Format(time.RFC3339), latest.Close)

	if err := e.store.SaveCandles(ctx, domain.CandleList{latest}); err != nil {
		log.Printf("캔들 저장 실패 (%s): %v", task.symbol, err)
	}

	e.bus.Publish(event.New(event.KlineUpdate, map[string]interface{}{
		"symbol": task.symbol,
		"close":  latest.Close,
	}))

	e.processCandle(ctx, task)
	return nil
}

// processCandle은 새 캔들에 대해 전략 파이프라인과 주문 실행을 수행합니다
func (e *Engine) processCandle(ctx context.Context, task *symbolTask) {
	window := task.window.Snapshot()
	if len(window) == 0 {
		return
	}

	position, err := e.riskMgr.GetPosition(ctx, task.symbol)
	if err != nil {
		log.Printf("포지션 조회 실패 (%s): %v", task.symbol, err)
		return
	}

	signals := e.strategies.GenerateSignals(ctx, window, position)
	for _, signal := range signals {
		e.bus.Publish(event.New(event.SignalGenerated, map[string]interface{}{
			"symbol":   signal.Symbol,
			"type":     signal.Type.String(),
			"price":    signal.Price,
			"strategy": signal.StrategyName,
		}))

		if _, err := e.exec.ExecuteSignal(ctx, signal); err != nil {
			log.Printf("신호 실행 에러 (%s): %v", signal.Symbol, err)
		}
	}

	if err := e.refreshBalance(ctx); err != nil {
		log.Printf("잔고 갱신 실패: %v", err)
	}
}

// refreshBalance는 거래소 잔고 스냅샷을 리스크 관리자에 반영합니다
func (e *Engine) refreshBalance(ctx context.Context) error {
	total, available, err := e.fetchBalance(ctx)
	if err != nil {
		return err
	}
	e.riskMgr.UpdateBalance(total, available)
	return nil
}

// fetchBalance는 기준 자산(USDT)의 총/가용 잔고를 조회합니다
func (e *Engine) fetchBalance(ctx context.Context) (total, available float64, err error) {
	balances, err := e.ex.GetBalances(ctx)
	if err != nil {
		return 0, 0, err
	}

	b, ok := balances[quoteAsset]
	if !ok {
		return 0, 0, nil
	}
	return b.Total, b.Available, nil
}

// handleAddSymbol은 ADD_SYMBOL 이벤트를 처리합니다.
// 이미 활성화된 심볼이면 아무 일도 하지 않습니다
func (e *Engine) handleAddSymbol(ev event.Event) error {
	symbol, ok := ev.Symbol()
	if !ok || symbol == "" {
		return fmt.Errorf("ADD_SYMBOL 이벤트에 심볼이 없음")
	}

	e.mu.Lock()
	_, exists := e.tasks[symbol]
	e.mu.Unlock()
	if exists {
		log.Printf("심볼 추가 무시 (%s): 이미 모니터링 중", symbol)
		return nil
	}

	interval := domain.DurationToTimeInterval(e.cfg.App.FetchInterval)
	if err := e.spawnSymbol(e.ctx, symbol, interval); err != nil {
		return err
	}

	e.persistSymbols()
	log.Printf("심볼 추가 완료: %s", symbol)
	return nil
}

// handleRemoveSymbol은 REMOVE_SYMBOL 이벤트를 처리합니다.
// 모니터링 중이 아닌 심볼이면 아무 일도 하지 않습니다
func (e *Engine) handleRemoveSymbol(ev event.Event) error {
	symbol, ok := ev.Symbol()
	if !ok || symbol == "" {
		return fmt.Errorf("REMOVE_SYMBOL 이벤트에 심볼이 없음")
	}

	e.mu.Lock()
	task, exists := e.tasks[symbol]
	if exists {
		delete(e.tasks, symbol)
	}
	e.mu.Unlock()

	if !exists {
		log.Printf("심볼 제거 무시 (%s): 모니터링 중이 아님", symbol)
		return nil
	}

	// 태스크는 다음 대기 지점에서 취소를 확인하고 종료함
	task.cancel()

	e.persistSymbols()
	log.Printf("심볼 제거 완료: %s", symbol)
	return nil
}

// handlePositionClosed는 청산된 거래의 손익을 전략 통계에 반영합니다
func (e *Engine) handlePositionClosed(ev event.Event) error {
	name, _ := ev.Data["strategy"].(string)
	pnl, ok := ev.Data["pnl"].(float64)
	if name == "" || !ok {
		return nil
	}

	e.strategies.RecordTradeResult(name, pnl)
	return nil
}

// persistSymbols는 현재 활성 심볼 목록을 저장소에 반영합니다.
// 재시작 후에도 핫플러그 결과가 유지되도록 합니다
func (e *Engine) persistSymbols() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.store.SaveSymbols(ctx, e.ActiveSymbols()); err != nil {
		log.Printf("심볼 목록 저장 실패: %v", err)
	}
}

// statusReportLoop는 주기적으로 계정 상태를 로그로 남깁니다
func (e *Engine) statusReportLoop(ctx context.Context) {
	ticker := time.NewTicker(statusReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := e.riskMgr.GetStatus()
			openTrades, err := e.store.GetOpenTrades(ctx)
			if err != nil {
				log.Printf("상태 보고: 열린 거래 조회 실패: %v", err)
				continue
			}
			log.Printf("계정 잔고: %.2f %s | 열린 포지션: %d | 위험 수준: %s",
				e.riskMgr.Balance(), quoteAsset, len(openTrades), status.RiskLevel)
		}
	}
}

// heartbeatLoop는 시스템 생존 신호만 남기는 태스크입니다
func (e *Engine) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Println("엔진 하트비트: 시스템 정상 동작 중")
		}
	}
}

// staggerOffset은 심볼별로 결정적인 폴링 오프셋을 계산합니다.
// 여러 심볼의 요청이 간격 경계에 몰리지 않도록 분산시킵니다
func (e *Engine) staggerOffset(symbol string) time.Duration {
	window := e.cfg.App.StaggerWindow
	if window <= 0 {
		return 0
	}

	h := fnv.New32a()
	h.Write([]byte(symbol))
	return time.Duration(h.Sum32()) % window
}

// sleepUntil은 지정 시각까지 대기합니다. 컨텍스트가 취소되면 false를 반환합니다
func sleepUntil(ctx context.Context, t time.Time) bool {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
