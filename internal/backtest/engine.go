package backtest

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/assist-by/helios/internal/domain"
	"github.com/assist-by/helios/internal/strategy"
)

const (
	// investRatio는 매수 시 자본 대비 투입 비율입니다
	investRatio = 0.95

	// riskFreeRateAnnual은 샤프 비율 계산에 쓰는 연간 무위험 수익률입니다
	riskFreeRateAnnual = 0.02

	// minStdDev는 샤프 비율 계산이 유의미한 최소 변동성입니다
	minStdDev = 1e-6
)

// TradeRecord는 백테스트 중 발생한 단일 체결입니다
type TradeRecord struct {
	Type     domain.OrderSide `json:"type"`
	Price    float64          `json:"price"`
	Quantity float64          `json:"quantity"`
	Time     time.Time        `json:"time"`
	PnL      float64          `json:"pnl,omitempty"`
}

// Result는 백테스트 실행 결과입니다
type Result struct {
	TotalReturn   float64       `json:"total_return"`   // 총 수익률 (%)
	AnnualReturn  float64       `json:"annual_return"`  // 연환산 수익률 (%)
	MaxDrawdown   float64       `json:"max_drawdown"`   // 최대 낙폭 (%)
	SharpeRatio   float64       `json:"sharpe_ratio"`   // 샤프 비율
	WinRate       float64       `json:"win_rate"`       // 승률 (%)
	ProfitFactor  float64       `json:"profit_factor"`  // 손익비
	TotalTrades   int           `json:"total_trades"`   // 청산 거래 수
	WinningTrades int           `json:"winning_trades"` // 수익 거래 수
	LosingTrades  int           `json:"losing_trades"`  // 손실 거래 수
	Trades        []TradeRecord `json:"trades"`
	EquityCurve   []float64     `json:"equity_curve"`
}

// Engine은 과거 캔들에 대해 전략을 시뮬레이션하는 단일 스레드 백테스터입니다
type Engine struct {
	initialCapital float64
	commissionRate float64
}

// NewEngine은 새로운 백테스트 엔진을 생성합니다
func NewEngine(initialCapital, commissionRate float64) *Engine {
	return &Engine{
		initialCapital: initialCapital,
		commissionRate: commissionRate,
	}
}

// Run은 캔들 시퀀스를 순회하며 전략을 실행하고 성과 지표를 계산합니다
func (e *Engine) Run(ctx context.Context, strat strategy.Strategy, candles domain.CandleList) (*Result, error) {
	log.Printf("백테스트 시작: %s (캔들 %d개)", strat.GetName(), len(candles))

	capital := e.initialCapital
	var position *domain.Position
	var cost float64

	trades := make([]TradeRecord, 0)
	equityCurve := make([]float64, 0, len(candles)+1)
	equityCurve = append(equityCurve, capital)

	for i := range candles {
		current := candles[i]
		currentPrice := current.Close

		signal, err := strat.GenerateSignal(ctx, candles[:i+1], position)
		if err != nil {
			return nil, err
		}

		if signal.IsValid() {
			switch {
			case signal.IsBuy() && position == nil:
				quantity := capital * investRatio / currentPrice
				entryCost := quantity * currentPrice * (1 + e.commissionRate)
				if entryCost <= capital {
					position = &domain.Position{
						Symbol:     current.Symbol,
						Quantity:   quantity,
						EntryPrice: currentPrice,
						OpenedAt:   current.OpenTime,
					}
					cost = entryCost
					capital -= entryCost
					trades = append(trades, TradeRecord{
						Type:     domain.SideBuy,
						Price:    currentPrice,
						Quantity: quantity,
						Time:     current.OpenTime,
					})
				}

			case signal.IsSell() && position != nil:
				revenue := position.Quantity * currentPrice * (1 - e.commissionRate)
				pnl := revenue - cost
				capital += revenue
				trades = append(trades, TradeRecord{
					Type:     domain.SideSell,
					Price:    currentPrice,
					Quantity: position.Quantity,
					Time:     current.OpenTime,
					PnL:      pnl,
				})
				position = nil
				cost = 0
			}
		}

		equity := capital
		if position != nil {
			equity += position.Quantity * currentPrice
		}
		equityCurve = append(equityCurve, equity)
	}

	return e.calculateMetrics(candles, trades, equityCurve), nil
}

// calculateMetrics는 체결 내역과 자본 곡선에서 성과 지표를 계산합니다
func (e *Engine) calculateMetrics(candles domain.CandleList, trades []TradeRecord, equityCurve []float64) *Result {
	totalReturn := (equityCurve[len(equityCurve)-1] - e.initialCapital) / e.initialCapital * 100

	// 연환산 수익률은 실제 경과 시간 기준
	var days float64
	if len(candles) > 1 {
		days = candles[len(candles)-1].OpenTime.Sub(candles[0].OpenTime).Hours() / 24
	}
	annualReturn := 0.0
	if days > 0 {
		annualReturn = (math.Pow(1+totalReturn/100, 365/days) - 1) * 100
	}

	maxDrawdown := maxDrawdownPercent(equityCurve)
	sharpe := sharpeRatio(equityCurve)

	var winning, losing int
	var totalProfit, totalLoss float64
	for _, t := range trades {
		if t.Type != domain.SideSell {
			continue
		}
		if t.PnL > 0 {
			winning++
			totalProfit += t.PnL
		} else {
			losing++
			totalLoss += math.Abs(t.PnL)
		}
	}
	total := winning + losing

	winRate := 0.0
	if total > 0 {
		winRate = float64(winning) / float64(total) * 100
	}

	// 손익비: 손실이 없고 수익만 있으면 무한대, 둘 다 없으면 0
	profitFactor := 0.0
	switch {
	case totalLoss > 0:
		profitFactor = totalProfit / totalLoss
	case totalProfit > 0:
		profitFactor = math.Inf(1)
	}

	return &Result{
		TotalReturn:   totalReturn,
		AnnualReturn:  annualReturn,
		MaxDrawdown:   maxDrawdown,
		SharpeRatio:   sharpe,
		WinRate:       winRate,
		ProfitFactor:  profitFactor,
		TotalTrades:   total,
		WinningTrades: winning,
		LosingTrades:  losing,
		Trades:        trades,
		EquityCurve:   equityCurve,
	}
}

// maxDrawdownPercent는 자본 곡선의 최대 낙폭을 백분율로 계산합니다.
// 낙폭은 음수로 표현됩니다
func maxDrawdownPercent(equityCurve []float64) float64 {
	peak := math.Inf(-1)
	minDrawdown := 0.0

	for _, equity := range equityCurve {
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			drawdown := (equity - peak) / peak
			if drawdown < minDrawdown {
				minDrawdown = drawdown
			}
		}
	}

	return minDrawdown * 100
}

// sharpeRatio는 일일 무위험 수익률을 차감한 초과 수익률의 샤프 비율을
// 연환산하여 계산합니다. 변동성이 사실상 0이면 0을 반환합니다
func sharpeRatio(equityCurve []float64) float64 {
	if len(equityCurve) < 3 {
		return 0
	}

	dailyRiskFree := riskFreeRateAnnual / 365

	excess := make([]float64, 0, len(equityCurve)-1)
	for i := 1; i < len(equityCurve); i++ {
		if equityCurve[i-1] == 0 {
			continue
		}
		r := (equityCurve[i] - equityCurve[i-1]) / equityCurve[i-1]
		excess = append(excess, r-dailyRiskFree)
	}
	if len(excess) < 2 {
		return 0
	}

	var mean float64
	for _, r := range excess {
		mean += r
	}
	mean /= float64(len(excess))

	var variance float64
	for _, r := range excess {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(excess) - 1)
	stdDev := math.Sqrt(variance)

	if stdDev <= minStdDev {
		return 0
	}

	return math.Sqrt(365) * mean / stdDev
}
