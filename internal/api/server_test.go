package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/helios/internal/backtest"
	"github.com/assist-by/helios/internal/config"
	"github.com/assist-by/helios/internal/domain"
	"github.com/assist-by/helios/internal/engine"
	"github.com/assist-by/helios/internal/event"
	"github.com/assist-by/helios/internal/executor"
	"github.com/assist-by/helios/internal/risk"
	"github.com/assist-by/helios/internal/storage"
	"github.com/assist-by/helios/internal/strategy"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore는 API 조회에 필요한 최소한의 저장소입니다
type fakeStore struct {
	mu      sync.Mutex
	trades  []storage.Trade
	candles domain.CandleList
}

func (f *fakeStore) InsertTrade(ctx context.Context, trade *storage.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	trade.ID = uint(len(f.trades) + 1)
	f.trades = append(f.trades, *trade)
	return nil
}

func (f *fakeStore) CloseTrade(ctx context.Context, id uint, exitPrice, pnl float64, closedAt time.Time) error {
	return nil
}

func (f *fakeStore) GetOpenTrades(ctx context.Context) ([]storage.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var open []storage.Trade
	for _, t := range f.trades {
		if t.Status == domain.TradeOpen {
			open = append(open, t)
		}
	}
	return open, nil
}

func (f *fakeStore) GetOpenTradeBySymbol(ctx context.Context, symbol string) (*storage.Trade, error) {
	return nil, nil
}

func (f *fakeStore) GetRecentTrades(ctx context.Context, limit int) ([]storage.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]storage.Trade(nil), f.trades...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) SaveCandles(ctx context.Context, candles domain.CandleList) error { return nil }

func (f *fakeStore) GetCandles(ctx context.Context, symbol string, interval domain.TimeInterval, limit int) (domain.CandleList, error) {
	return f.candles, nil
}

func (f *fakeStore) SaveSymbols(ctx context.Context, symbols []string) error { return nil }
func (f *fakeStore) GetSymbols(ctx context.Context) ([]string, error)        { return nil, nil }
func (f *fakeStore) Close() error                                            { return nil }

// stubStrategy는 신호를 생성하지 않는 전략입니다
type stubStrategy struct {
	strategy.BaseStrategy
}

func (s *stubStrategy) Initialize(ctx context.Context) error { return nil }

func (s *stubStrategy) GenerateSignal(ctx context.Context, candles domain.CandleList, position *domain.Position) (*domain.Signal, error) {
	return nil, nil
}

type testServer struct {
	server *Server
	router *gin.Engine
	bus    *event.Bus
	store  *fakeStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.FetchInterval = time.Hour
	cfg.App.CandleLimit = 10

	store := &fakeStore{}
	bus := event.NewBus()
	riskMgr := risk.NewManager(risk.Config{
		MaxActiveTrades:     3,
		MaxPositionPercent:  10,
		MaxDailyLossPercent: 5.0,
		MaxDrawdownPercent:  15.0,
	}, store)
	riskMgr.Initialize(10000)

	registry := strategy.NewRegistry()
	registry.Register("stub", func(config map[string]interface{}) (strategy.Strategy, error) {
		return &stubStrategy{BaseStrategy: strategy.NewBaseStrategy("stub", "", config)}, nil
	})
	strategies := strategy.NewManager(registry)
	require.NoError(t, strategies.AddStrategy(context.Background(), "stub", nil))

	exec := executor.New(nil, riskMgr, store, bus)
	eng := engine.New(cfg, nil, store, bus, riskMgr, strategies, exec)

	server := NewServer(eng, bus, riskMgr, store, strategies)
	return &testServer{
		server: server,
		router: server.router(),
		bus:    bus,
		store:  store,
	}
}

func (ts *testServer) request(method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func TestGetStatus(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["running"])
	assert.Equal(t, string(domain.RiskLow), resp["risk_level"])
}

func TestGetRiskStatus(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(http.MethodGet, "/api/risk/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var status risk.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.CanTrade)
}

// 심볼 추가/제거는 202를 반환하고 이벤트를 발행해야 함
func TestSymbolCommandsPublishEvents(t *testing.T) {
	ts := newTestServer(t)

	var mu sync.Mutex
	var received []event.Event
	ts.bus.Subscribe(event.AddSymbol, func(e event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e)
		return nil
	})
	ts.bus.Subscribe(event.RemoveSymbol, func(e event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ts.bus.Run(ctx)

	w := ts.request(http.MethodPost, "/api/symbols/ETHUSDT", "")
	assert.Equal(t, http.StatusAccepted, w.Code, "핫플러그 명령은 비동기 접수여야 함")

	w = ts.request(http.MethodDelete, "/api/symbols/BTCUSDT", "")
	assert.Equal(t, http.StatusAccepted, w.Code)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	symbol, _ := received[0].Symbol()
	assert.Equal(t, "ETHUSDT", symbol)
	assert.Equal(t, "api", received[0].Source)
}

func TestGetPositionsAndTrades(t *testing.T) {
	ts := newTestServer(t)

	open := &storage.Trade{Symbol: "BTCUSDT", Side: domain.SideBuy, Quantity: 0.5,
		EntryPrice: 30000, Status: domain.TradeOpen, OpenedAt: time.Now()}
	require.NoError(t, ts.store.InsertTrade(context.Background(), open))

	w := ts.request(http.MethodGet, "/api/positions", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Positions []storage.Trade `json:"positions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Positions, 1)
	assert.Equal(t, "BTCUSDT", resp.Positions[0].Symbol)

	w = ts.request(http.MethodGet, "/api/trades?limit=10", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

// 비활성 심볼의 캔들은 저장소에서 조회해야 함
func TestGetKlinesFromStore(t *testing.T) {
	ts := newTestServer(t)
	ts.store.candles = domain.CandleList{
		{Symbol: "BTCUSDT", OpenTime: time.Now(), Close: 30000},
	}

	w := ts.request(http.MethodGet, "/api/klines?symbol=BTCUSDT&interval=1h&limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Klines domain.CandleList `json:"klines"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Klines, 1)
}

func TestStrategyEndpoints(t *testing.T) {
	ts := newTestServer(t)

	// 목록 조회
	w := ts.request(http.MethodGet, "/api/strategies", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Strategies []strategy.Stats `json:"strategies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Strategies, 1)
	assert.Equal(t, "stub", resp.Strategies[0].Name)
	assert.True(t, resp.Strategies[0].Enabled)

	// 비활성화 후 활성화
	w = ts.request(http.MethodPost, "/api/strategies/stub/disable", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.request(http.MethodPost, "/api/strategies/stub/enable", "")
	assert.Equal(t, http.StatusOK, w.Code)

	// 존재하지 않는 전략은 404
	w = ts.request(http.MethodPost, "/api/strategies/ghost/enable", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// 백테스트 엔드포인트는 저장소 캔들로 시뮬레이션을 수행해야 함
func TestRunBacktestEndpoint(t *testing.T) {
	ts := newTestServer(t)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make(domain.CandleList, 5)
	for i := range candles {
		candles[i] = domain.Candle{
			Symbol:   "BTCUSDT",
			Interval: domain.Interval1h,
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Open:     100,
			High:     101,
			Low:      99,
			Close:    100,
			Volume:   100,
		}
	}
	ts.store.candles = candles

	w := ts.request(http.MethodPost, "/api/backtest/run", `{"strategy":"stub","symbol":"BTCUSDT"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result backtest.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 0, result.TotalTrades, "신호 없는 전략은 거래가 없어야 함")
	assert.Len(t, result.EquityCurve, len(candles)+1)
	assert.InDelta(t, 0.0, result.TotalReturn, 1e-9)
}

func TestRunBacktestUnknownStrategy(t *testing.T) {
	ts := newTestServer(t)
	ts.store.candles = domain.CandleList{{Symbol: "BTCUSDT", Close: 100}}

	w := ts.request(http.MethodPost, "/api/backtest/run", `{"strategy":"ghost","symbol":"BTCUSDT"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunBacktestValidation(t *testing.T) {
	ts := newTestServer(t)

	// 심볼 누락은 400
	w := ts.request(http.MethodPost, "/api/backtest/run", `{"strategy":"stub"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 잘못된 JSON은 400
	w = ts.request(http.MethodPost, "/api/backtest/run", `{invalid`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 캔들 데이터가 없으면 404
	w = ts.request(http.MethodPost, "/api/backtest/run", `{"strategy":"stub","symbol":"BTCUSDT"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateStrategyParams(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(http.MethodPut, "/api/strategies/stub/params", `{"lookback": 30}`)
	require.Equal(t, http.StatusOK, w.Code)

	// 잘못된 JSON은 400
	w = ts.request(http.MethodPut, "/api/strategies/stub/params", `{invalid`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 존재하지 않는 전략은 404
	w = ts.request(http.MethodPut, "/api/strategies/ghost/params", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
