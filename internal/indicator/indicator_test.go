package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/assist-by/helios/internal/domain"
)

// makePrices는 종가 배열을 PriceData 시퀀스로 변환합니다
func makePrices(closes []float64) []PriceData {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]PriceData, len(closes))
	for i, c := range closes {
		prices[i] = PriceData{
			Time:   base.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 100,
		}
	}
	return prices
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMACalculate(t *testing.T) {
	sma := NewSMA(3)
	results, err := sma.Calculate(makePrices([]float64{1, 2, 3, 4, 5}))
	if err != nil {
		t.Fatalf("SMA 계산 실패: %v", err)
	}

	expected := []float64{math.NaN(), math.NaN(), 2, 3, 4}
	for i, want := range expected {
		got := results[i].(SMAResult).Value
		if math.IsNaN(want) {
			if !math.IsNaN(got) {
				t.Errorf("인덱스 %d: NaN을 기대했으나 %f를 받음", i, got)
			}
			continue
		}
		if !almostEqual(got, want) {
			t.Errorf("인덱스 %d: 기대값 %f, 실제값 %f", i, want, got)
		}
	}
}

func TestVolumeSMACalculate(t *testing.T) {
	prices := makePrices([]float64{1, 2, 3, 4})
	for i, v := range []float64{10, 20, 30, 40} {
		prices[i].Volume = v
	}

	sma := NewVolumeSMA(3)
	results, err := sma.Calculate(prices)
	if err != nil {
		t.Fatalf("거래량 SMA 계산 실패: %v", err)
	}

	// 종가가 아니라 거래량을 평균 내야 함
	expected := []float64{math.NaN(), math.NaN(), 20, 30}
	for i, want := range expected {
		got := results[i].(SMAResult).Value
		if math.IsNaN(want) {
			if !math.IsNaN(got) {
				t.Errorf("인덱스 %d: NaN을 기대했으나 %f를 받음", i, got)
			}
			continue
		}
		if !almostEqual(got, want) {
			t.Errorf("인덱스 %d: 기대값 %f, 실제값 %f", i, want, got)
		}
	}
}

func TestEMACalculate(t *testing.T) {
	ema := NewEMA(3)
	results, err := ema.Calculate(makePrices([]float64{1, 2, 3, 4, 5}))
	if err != nil {
		t.Fatalf("EMA 계산 실패: %v", err)
	}

	// alpha = 0.5: 1, 1.5, 2.25, 3.125, 4.0625 (기간 이전은 NaN)
	for i := 0; i < 3; i++ {
		if !math.IsNaN(results[i].(EMAResult).Value) {
			t.Errorf("인덱스 %d: 워밍업 구간은 NaN이어야 함", i)
		}
	}
	if got := results[3].(EMAResult).Value; !almostEqual(got, 3.125) {
		t.Errorf("인덱스 3: 기대값 3.125, 실제값 %f", got)
	}
	if got := results[4].(EMAResult).Value; !almostEqual(got, 4.0625) {
		t.Errorf("인덱스 4: 기대값 4.0625, 실제값 %f", got)
	}
}

func TestRSIWarmupAndBalance(t *testing.T) {
	// 상승폭과 하락폭이 정확히 같으면 RSI는 50
	closes := make([]float64, 15)
	closes[0] = 100
	for i := 1; i < 15; i++ {
		if i%2 == 1 {
			closes[i] = closes[i-1] + 1
		} else {
			closes[i] = closes[i-1] - 1
		}
	}

	rsi := NewRSI(14)
	results, err := rsi.Calculate(makePrices(closes))
	if err != nil {
		t.Fatalf("RSI 계산 실패: %v", err)
	}

	for i := 0; i < 14; i++ {
		if !math.IsNaN(results[i].(RSIResult).Value) {
			t.Errorf("인덱스 %d: 워밍업 구간은 NaN이어야 함", i)
		}
	}
	if got := results[14].(RSIResult).Value; !almostEqual(got, 50) {
		t.Errorf("상승/하락 균형 시 RSI는 50이어야 함: %f", got)
	}
}

func TestRSIAllGains(t *testing.T) {
	// 하락이 전혀 없으면 RSI는 100
	closes := make([]float64, 16)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	rsi := NewRSI(14)
	results, err := rsi.Calculate(makePrices(closes))
	if err != nil {
		t.Fatalf("RSI 계산 실패: %v", err)
	}

	if got := results[15].(RSIResult).Value; !almostEqual(got, 100) {
		t.Errorf("하락 없는 구간의 RSI는 100이어야 함: %f", got)
	}
}

func TestRSIInsufficientData(t *testing.T) {
	rsi := NewRSI(14)
	_, err := rsi.Calculate(makePrices([]float64{1, 2, 3}))
	if err == nil {
		t.Fatal("데이터 부족 시 에러를 기대함")
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("ValidationError를 기대했으나 %T를 받음", err)
	}
	if vErr.Field != "prices" {
		t.Errorf("에러 필드가 잘못됨: %s", vErr.Field)
	}
}

func TestMACDWarmup(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}

	macd := NewMACD(12, 26, 9)
	results, err := macd.Calculate(makePrices(closes))
	if err != nil {
		t.Fatalf("MACD 계산 실패: %v", err)
	}

	warmup := 26 + 9
	for i := 0; i < warmup; i++ {
		r := results[i].(MACDResult)
		if !math.IsNaN(r.MACD) || !math.IsNaN(r.Signal) {
			t.Errorf("인덱스 %d: 워밍업 구간은 NaN이어야 함", i)
		}
	}

	r := results[warmup].(MACDResult)
	if math.IsNaN(r.MACD) || math.IsNaN(r.Signal) {
		t.Errorf("워밍업 이후에는 유효한 값이 나와야 함: %+v", r)
	}
	if !almostEqual(r.Histogram, r.MACD-r.Signal) {
		t.Errorf("히스토그램은 MACD-Signal이어야 함: %f != %f-%f", r.Histogram, r.MACD, r.Signal)
	}
}

func TestMACDInvalidPeriods(t *testing.T) {
	macd := NewMACD(26, 12, 9)
	_, err := macd.Calculate(makePrices(make([]float64, 50)))
	if err == nil {
		t.Fatal("단기 기간이 장기 기간보다 길면 에러를 기대함")
	}
}

func TestValidateEmptyInput(t *testing.T) {
	indicators := []Indicator{NewSMA(3), NewEMA(3), NewRSI(14), NewMACD(12, 26, 9)}
	for _, ind := range indicators {
		if _, err := ind.Calculate(nil); err == nil {
			t.Errorf("%s: 빈 입력에 에러를 기대함", ind.GetName())
		}
	}
}

func TestConvertCandlesToPriceData(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make(domain.CandleList, 3)
	for i := range candles {
		candles[i] = domain.Candle{
			Symbol:   "BTCUSDT",
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Open:     100,
			High:     101,
			Low:      99,
			Close:    100 + float64(i),
			Volume:   50,
		}
	}

	prices := ConvertCandlesToPriceData(candles)
	if len(prices) != 3 {
		t.Fatalf("길이가 다름: %d", len(prices))
	}
	for i := range candles {
		if prices[i].Close != candles[i].Close || !prices[i].Time.Equal(candles[i].OpenTime) {
			t.Errorf("인덱스 %d: 변환 결과가 원본과 다름", i)
		}
	}
}
