package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/assist-by/helios/internal/backtest"
	"github.com/assist-by/helios/internal/domain"
	"github.com/assist-by/helios/internal/engine"
	"github.com/assist-by/helios/internal/event"
	"github.com/assist-by/helios/internal/risk"
	"github.com/assist-by/helios/internal/storage"
	"github.com/assist-by/helios/internal/strategy"
)

// Server는 엔진을 제어하고 조회하는 HTTP 서버입니다.
// 상태를 직접 변경하지 않고 이벤트 버스에 명령을 발행하는 얇은 계층입니다
type Server struct {
	engine     *engine.Engine
	bus        *event.Bus
	riskMgr    *risk.Manager
	store      storage.Store
	strategies *strategy.Manager

	httpServer *http.Server
}

// NewServer는 새로운 API 서버를 생성합니다
func NewServer(eng *engine.Engine, bus *event.Bus, riskMgr *risk.Manager,
	store storage.Store, strategies *strategy.Manager) *Server {
	return &Server{
		engine:     eng,
		bus:        bus,
		riskMgr:    riskMgr,
		store:      store,
		strategies: strategies,
	}
}

// router는 API 라우트를 구성합니다
func (s *Server) router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	{
		api.GET("/status", s.getStatus)

		api.GET("/symbols", s.getSymbols)
		api.POST("/symbols/:symbol", s.addSymbol)
		api.DELETE("/symbols/:symbol", s.removeSymbol)

		api.GET("/positions", s.getPositions)
		api.GET("/trades", s.getTrades)
		api.GET("/risk/status", s.getRiskStatus)
		api.GET("/klines", s.getKlines)

		api.GET("/strategies", s.getStrategies)
		api.POST("/strategies/:name/enable", s.enableStrategy)
		api.POST("/strategies/:name/disable", s.disableStrategy)
		api.PUT("/strategies/:name/params", s.updateStrategyParams)

		api.POST("/backtest/run", s.runBacktest)
	}

	return router
}

// Run은 HTTP 서버를 시작합니다. 서버가 종료될 때까지 블로킹합니다
func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router(),
	}

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown은 HTTP 서버를 정상 종료합니다
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) getStatus(c *gin.Context) {
	status := s.riskMgr.GetStatus()
	c.JSON(http.StatusOK, gin.H{
		"running":    true,
		"symbols":    s.engine.ActiveSymbols(),
		"balance":    s.riskMgr.Balance(),
		"risk_level": status.RiskLevel,
	})
}

func (s *Server) getSymbols(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"symbols": s.engine.ActiveSymbols()})
}

// addSymbol은 심볼 추가 명령을 이벤트로 발행합니다.
// 실제 반영은 엔진이 이벤트를 소비하는 시점에 이루어집니다
func (s *Server) addSymbol(c *gin.Context) {
	symbol := c.Param("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "심볼이 필요합니다"})
		return
	}

	ev := event.New(event.AddSymbol, map[string]interface{}{"symbol": symbol})
	ev.Source = "api"
	s.bus.Publish(ev)

	c.JSON(http.StatusAccepted, gin.H{"message": "심볼 추가 요청 접수", "symbol": symbol})
}

func (s *Server) removeSymbol(c *gin.Context) {
	symbol := c.Param("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "심볼이 필요합니다"})
		return
	}

	ev := event.New(event.RemoveSymbol, map[string]interface{}{"symbol": symbol})
	ev.Source = "api"
	s.bus.Publish(ev)

	c.JSON(http.StatusAccepted, gin.H{"message": "심볼 제거 요청 접수", "symbol": symbol})
}

func (s *Server) getPositions(c *gin.Context) {
	trades, err := s.store.GetOpenTrades(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": trades})
}

func (s *Server) getTrades(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	trades, err := s.store.GetRecentTrades(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) getRiskStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.riskMgr.GetStatus())
}

func (s *Server) getKlines(c *gin.Context) {
	symbol := c.DefaultQuery("symbol", "BTCUSDT")
	interval := domain.TimeInterval(c.DefaultQuery("interval", "1h"))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "500"))
	if err != nil || limit <= 0 {
		limit = 500
	}

	// 활성 심볼이면 메모리 윈도우에서, 아니면 저장소에서 조회
	if window, ok := s.engine.Window(symbol); ok {
		candles := window.Snapshot()
		if len(candles) > limit {
			candles = candles[len(candles)-limit:]
		}
		c.JSON(http.StatusOK, gin.H{"klines": candles})
		return
	}

	candles, err := s.store.GetCandles(c.Request.Context(), symbol, interval, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"klines": candles})
}

func (s *Server) getStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"strategies": s.strategies.GetAllStats()})
}

func (s *Server) enableStrategy(c *gin.Context) {
	name := c.Param("name")
	if !s.strategies.EnableStrategy(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "존재하지 않는 전략: " + name})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "전략 활성화", "name": name})
}

func (s *Server) disableStrategy(c *gin.Context) {
	name := c.Param("name")
	if !s.strategies.DisableStrategy(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "존재하지 않는 전략: " + name})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "전략 비활성화", "name": name})
}

// backtestRequest는 백테스트 실행 요청입니다
type backtestRequest struct {
	Strategy       string  `json:"strategy"`
	Symbol         string  `json:"symbol"`
	Interval       string  `json:"interval"`
	Limit          int     `json:"limit"`
	InitialCapital float64 `json:"initial_capital"`
	Commission     float64 `json:"commission"`
}

// runBacktest는 저장소의 과거 캔들로 전략을 시뮬레이션하고 결과를 반환합니다
func (s *Server) runBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "잘못된 요청: " + err.Error()})
		return
	}
	if req.Symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "심볼이 필요합니다"})
		return
	}
	if req.Interval == "" {
		req.Interval = "1h"
	}
	if req.Limit <= 0 {
		req.Limit = 500
	}
	if req.InitialCapital <= 0 {
		req.InitialCapital = 10000
	}
	if req.Commission <= 0 {
		req.Commission = 0.001
	}

	strat, ok := s.strategies.GetStrategy(req.Strategy)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "존재하지 않는 전략: " + req.Strategy})
		return
	}

	candles, err := s.store.GetCandles(c.Request.Context(), req.Symbol, domain.TimeInterval(req.Interval), req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(candles) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "백테스트할 캔들 데이터가 없습니다: " + req.Symbol})
		return
	}

	result, err := backtest.NewEngine(req.InitialCapital, req.Commission).Run(c.Request.Context(), strat, candles)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) updateStrategyParams(c *gin.Context) {
	name := c.Param("name")

	strat, ok := s.strategies.GetStrategy(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "존재하지 않는 전략: " + name})
		return
	}

	var params map[string]interface{}
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "잘못된 파라미터: " + err.Error()})
		return
	}

	if err := strat.UpdateConfig(params); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "파라미터 갱신", "name": name, "params": strat.GetConfig()})
}
