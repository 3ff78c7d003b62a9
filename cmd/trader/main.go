package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	osSignal "os/signal"
	"syscall"
	"time"

	"github.com/assist-by/helios/internal/api"
	"github.com/assist-by/helios/internal/backtest"
	"github.com/assist-by/helios/internal/config"
	"github.com/assist-by/helios/internal/domain"
	"github.com/assist-by/helios/internal/engine"
	"github.com/assist-by/helios/internal/event"
	"github.com/assist-by/helios/internal/exchange/binance"
	"github.com/assist-by/helios/internal/executor"
	"github.com/assist-by/helios/internal/notification"
	"github.com/assist-by/helios/internal/notification/discord"
	"github.com/assist-by/helios/internal/risk"
	"github.com/assist-by/helios/internal/storage/postgres"
	"github.com/assist-by/helios/internal/strategy"
	"github.com/assist-by/helios/internal/strategy/convergence"
	"github.com/assist-by/helios/internal/strategy/momentum"
)

func main() {
	// 명령줄 플래그 정의
	backtestFlag := flag.Bool("backtest", false, "백테스트 모드로 실행")
	flag.Parse()

	// 컨텍스트 생성
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 로그 설정
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("트레이딩 봇 시작...")

	// 설정 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("설정 로드 실패: %v", err)
	}

	// API 키 선택
	apiKey := cfg.Binance.APIKey
	secretKey := cfg.Binance.SecretKey
	if cfg.Binance.UseTestnet {
		apiKey = cfg.Binance.TestAPIKey
		secretKey = cfg.Binance.TestSecretKey
	}

	// Discord 클라이언트 생성
	discordClient := discord.NewClient(
		cfg.Discord.InfoWebhook,
		cfg.Discord.ErrorWebhook,
		cfg.Discord.TradeWebhook,
		discord.WithTimeout(10*time.Second),
	)

	// 바이낸스 클라이언트 생성
	binanceClient := binance.NewClient(
		apiKey,
		secretKey,
		binance.WithTimeout(10*time.Second),
		binance.WithTestnet(cfg.Binance.UseTestnet),
	)

	// 전략 레지스트리 및 매니저 생성
	registry := strategy.NewRegistry()
	convergence.Register(registry)
	momentum.Register(registry)

	strategyManager := strategy.NewManager(registry)
	if err := strategyManager.AddStrategy(ctx, convergence.Name, map[string]interface{}{
		"lookback":         20,
		"stopLossPercent":  2.0,
		"takeProfitRatio":  2.0,
		"volumeMultiplier": 1.5,
	}); err != nil {
		log.Fatalf("전략 등록 실패: %v", err)
	}
	if err := strategyManager.AddStrategy(ctx, momentum.Name, map[string]interface{}{
		"fastPeriod":      12,
		"slowPeriod":      26,
		"signalPeriod":    9,
		"trendPeriod":     20,
		"stopLossPercent": 2.0,
		"takeProfitRatio": 2.0,
	}); err != nil {
		log.Fatalf("전략 등록 실패: %v", err)
	}

	// 백테스트 모드 처리
	if *backtestFlag {
		runBacktest(ctx, cfg, binanceClient, strategyManager)
		return
	}

	// 저장소 연결
	store, err := postgres.New(postgres.Option{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatalf("저장소 연결 실패: %v", err)
	}

	// 이벤트 버스 생성
	bus := event.NewBus()

	// 리스크 관리자 생성
	riskManager := risk.NewManager(risk.Config{
		MaxActiveTrades:     cfg.Trading.MaxActiveTrades,
		MaxPositionPercent:  cfg.Trading.MaxPositionPercent,
		MaxDailyLossPercent: cfg.Trading.MaxDailyLossPercent,
		MaxDrawdownPercent:  cfg.Trading.MaxDrawdownPercent,
	}, store)

	// 주문 실행기 생성
	orderExecutor := executor.New(
		binanceClient,
		riskManager,
		store,
		bus,
		executor.WithRetryConfig(cfg.Retry.MaxRetries, cfg.Retry.BaseDelay),
	)

	// 엔진 생성
	eng := engine.New(cfg, binanceClient, store, bus, riskManager, strategyManager, orderExecutor)

	// 알림 핸들러 구독
	subscribeNotifications(bus, discordClient)

	// 엔진 시작
	if err := eng.Start(ctx); err != nil {
		log.Printf("엔진 시작 실패: %v", err)
		if err := discordClient.SendError(err); err != nil {
			log.Printf("에러 알림 전송 실패: %v", err)
		}
		os.Exit(1)
	}

	// API 서버 시작
	server := api.NewServer(eng, bus, riskManager, store, strategyManager)
	go func() {
		if err := server.Run(cfg.API.ListenAddr); err != nil {
			log.Printf("API 서버 에러: %v", err)
		}
	}()

	if err := discordClient.SendInfo("🚀 트레이딩 봇이 시작되었습니다."); err != nil {
		log.Printf("시작 알림 전송 실패: %v", err)
	}

	// 종료 시그널 대기
	sigChan := make(chan os.Signal, 1)
	osSignal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Printf("시스템 종료 신호 수신: %v", sig)

	// API 서버 정상 종료
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("API 서버 종료 실패: %v", err)
	}

	// 엔진 중지
	eng.Stop()

	if err := discordClient.SendInfo("👋 트레이딩 봇이 정상적으로 종료되었습니다."); err != nil {
		log.Printf("종료 알림 전송 실패: %v", err)
	}

	log.Println("프로그램을 종료합니다.")
}

// subscribeNotifications는 주요 이벤트를 Discord 알림으로 연결합니다
func subscribeNotifications(bus *event.Bus, discordClient *discord.Client) {
	bus.Subscribe(event.SignalGenerated, func(e event.Event) error {
		symbol, _ := e.Symbol()
		signalType, _ := e.Data["type"].(string)
		price, _ := e.Data["price"].(float64)
		return discordClient.SendInfo(fmt.Sprintf("📊 시그널 발생: %s %s @ $%.2f", signalType, symbol, price))
	})

	bus.Subscribe(event.PositionOpened, func(e event.Event) error {
		symbol, _ := e.Symbol()
		quantity, _ := e.Data["quantity"].(float64)
		price, _ := e.Data["price"].(float64)
		return discordClient.SendTradeInfo(notificationTrade(symbol, domain.SideBuy, quantity, price, 0))
	})

	bus.Subscribe(event.PositionClosed, func(e event.Event) error {
		symbol, _ := e.Symbol()
		quantity, _ := e.Data["quantity"].(float64)
		price, _ := e.Data["price"].(float64)
		pnl, _ := e.Data["pnl"].(float64)
		return discordClient.SendTradeInfo(notificationTrade(symbol, domain.SideSell, quantity, price, pnl))
	})
}

// notificationTrade는 이벤트 페이로드를 거래 알림 정보로 변환합니다
func notificationTrade(symbol string, side domain.OrderSide, quantity, price, pnl float64) notification.TradeInfo {
	return notification.TradeInfo{
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Price:    price,
		PnL:      pnl,
	}
}

// runBacktest는 과거 데이터로 전략을 시뮬레이션하고 결과를 출력합니다
func runBacktest(ctx context.Context, cfg *config.Config, binanceClient *binance.Client, strategyManager *strategy.Manager) {
	symbol := cfg.Backtest.Symbol
	interval := domain.TimeInterval(cfg.Backtest.Interval)

	log.Printf("백테스트 모드: %s / %s (%s 간격, 캔들 %d개)",
		cfg.Backtest.Strategy, symbol, interval, cfg.Backtest.CandleLimit)

	candles, err := binanceClient.GetKlines(ctx, symbol, interval, cfg.Backtest.CandleLimit)
	if err != nil {
		log.Fatalf("캔들 데이터 로드 실패: %v", err)
	}
	log.Printf("캔들 %d개 로드 완료", len(candles))

	strat, ok := strategyManager.GetStrategy(cfg.Backtest.Strategy)
	if !ok {
		log.Fatalf("백테스트 전략을 찾을 수 없음: %s", cfg.Backtest.Strategy)
	}

	backtester := backtest.NewEngine(cfg.Backtest.InitialCapital, cfg.Backtest.Commission)
	result, err := backtester.Run(ctx, strat, candles)
	if err != nil {
		log.Fatalf("백테스트 실행 실패: %v", err)
	}

	log.Printf("===== 백테스트 결과: %s =====", symbol)
	log.Printf("총 수익률:     %.2f%%", result.TotalReturn)
	log.Printf("연환산 수익률: %.2f%%", result.AnnualReturn)
	log.Printf("최대 낙폭:     %.2f%%", result.MaxDrawdown)
	log.Printf("샤프 비율:     %.2f", result.SharpeRatio)
	log.Printf("승률:          %.2f%% (%d승 %d패)", result.WinRate, result.WinningTrades, result.LosingTrades)
	log.Printf("손익비:        %.2f", result.ProfitFactor)
	log.Printf("총 거래 수:    %d", result.TotalTrades)
}
