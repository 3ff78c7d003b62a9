package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// 바이낸스 API 설정
	Binance struct {
		APIKey        string `envconfig:"BINANCE_API_KEY" required:"true"`
		SecretKey     string `envconfig:"BINANCE_SECRET_KEY" required:"true"`
		TestAPIKey    string `envconfig:"BINANCE_TEST_API_KEY"`
		TestSecretKey string `envconfig:"BINANCE_TEST_SECRET_KEY"`
		UseTestnet    bool   `envconfig:"USE_TESTNET" default:"true"`
	}

	// 데이터베이스 설정
	Database struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"helios"`
		Password string `envconfig:"DB_PASSWORD"`
		Name     string `envconfig:"DB_NAME" default:"helios"`
		SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	}

	// 디스코드 웹훅 설정 (비어있으면 알림 비활성화)
	Discord struct {
		InfoWebhook  string `envconfig:"DISCORD_INFO_WEBHOOK"`
		ErrorWebhook string `envconfig:"DISCORD_ERROR_WEBHOOK"`
		TradeWebhook string `envconfig:"DISCORD_TRADE_WEBHOOK"`
	}

	// 애플리케이션 설정
	App struct {
		Symbols       []string      `envconfig:"SYMBOLS" default:"BTCUSDT,ETHUSDT,SOLUSDT"`
		FetchInterval time.Duration `envconfig:"FETCH_INTERVAL" default:"1h"`
		CandleLimit   int           `envconfig:"CANDLE_LIMIT" default:"500"`
		StaggerWindow time.Duration `envconfig:"STAGGER_WINDOW" default:"10s"`
	}

	// 거래 설정
	Trading struct {
		MaxActiveTrades     int     `envconfig:"MAX_ACTIVE_TRADES" default:"3"`
		MaxPositionPercent  float64 `envconfig:"MAX_POSITION_PERCENT" default:"10"`
		MaxDailyLossPercent float64 `envconfig:"MAX_DAILY_LOSS_PERCENT" default:"5.0"`
		MaxDrawdownPercent  float64 `envconfig:"MAX_DRAWDOWN_PERCENT" default:"15.0"`
	}

	// 주문 재시도 설정
	Retry struct {
		MaxRetries int           `envconfig:"ORDER_MAX_RETRIES" default:"3"`
		BaseDelay  time.Duration `envconfig:"ORDER_RETRY_BASE_DELAY" default:"1s"`
	}

	// API 서버 설정
	API struct {
		ListenAddr string `envconfig:"API_LISTEN_ADDR" default:":8080"`
	}

	// 백테스트 설정
	Backtest struct {
		Strategy       string  `envconfig:"BACKTEST_STRATEGY" default:"convergence_breakout"`
		Symbol         string  `envconfig:"BACKTEST_SYMBOL" default:"BTCUSDT"`
		Interval       string  `envconfig:"BACKTEST_INTERVAL" default:"1h"`
		CandleLimit    int     `envconfig:"BACKTEST_CANDLE_LIMIT" default:"500"`
		InitialCapital float64 `envconfig:"BACKTEST_INITIAL_CAPITAL" default:"10000"`
		Commission     float64 `envconfig:"BACKTEST_COMMISSION" default:"0.001"`
	}
}

// ValidateConfig는 설정이 유효한지 확인합니다.
func ValidateConfig(cfg *Config) error {
	if cfg.App.FetchInterval < 1*time.Minute {
		return fmt.Errorf("FETCH_INTERVAL은 1분 이상이어야 합니다")
	}

	if len(cfg.App.Symbols) == 0 {
		return fmt.Errorf("SYMBOLS에 최소 한 개의 심볼이 필요합니다")
	}

	if cfg.Trading.MaxActiveTrades < 1 {
		return fmt.Errorf("MAX_ACTIVE_TRADES는 1 이상이어야 합니다")
	}

	if cfg.Trading.MaxPositionPercent <= 0 || cfg.Trading.MaxPositionPercent > 100 {
		return fmt.Errorf("MAX_POSITION_PERCENT는 0 초과 100 이하이어야 합니다")
	}

	if cfg.Trading.MaxDailyLossPercent <= 0 {
		return fmt.Errorf("MAX_DAILY_LOSS_PERCENT는 0보다 커야 합니다")
	}

	if cfg.Trading.MaxDrawdownPercent <= 0 {
		return fmt.Errorf("MAX_DRAWDOWN_PERCENT는 0보다 커야 합니다")
	}

	if cfg.Retry.MaxRetries < 1 {
		return fmt.Errorf("ORDER_MAX_RETRIES는 1 이상이어야 합니다")
	}

	return nil
}

// LoadConfig는 환경변수에서 설정을 로드합니다.
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (없으면 환경변수만 사용)
	_ = godotenv.Load()

	var cfg Config
	// 환경변수를 구조체로 파싱
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("환경변수 처리 실패: %w", err)
	}

	// 설정값 검증
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("설정값 검증 실패: %w", err)
	}

	return &cfg, nil
}
