package event

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// 버스가 발행 순서 그대로 핸들러를 호출하는지 확인
func TestBusDispatchOrder(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	var received []int

	bus.Subscribe(KlineUpdate, func(e Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e.Data["seq"].(int))
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Run(ctx)

	const n = 100
	for i := 0; i < n; i++ {
		bus.Publish(New(KlineUpdate, map[string]interface{}{"seq": i}))
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == n
	})

	mu.Lock()
	defer mu.Unlock()
	for i, seq := range received {
		if seq != i {
			t.Fatalf("이벤트 순서가 어긋남: 위치 %d에서 %d를 받음", i, seq)
		}
	}
}

// 여러 고루틴이 동시에 발행해도 모든 이벤트가 빠짐없이 전달되는지 확인
func TestBusConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	received := make(map[string]bool)

	bus.Subscribe(AddSymbol, func(e Event) error {
		mu.Lock()
		defer mu.Unlock()
		symbol, _ := e.Symbol()
		received[symbol] = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Run(ctx)

	const producers = 10
	const perProducer = 20

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				bus.Publish(New(AddSymbol, map[string]interface{}{
					"symbol": fmt.Sprintf("SYM-%d-%d", p, i),
				}))
			}
		}(p)
	}
	wg.Wait()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == producers*perProducer
	})
}

// 에러를 반환하거나 패닉하는 핸들러가 다른 핸들러를 막지 않는지 확인
func TestBusHandlerIsolation(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	var calls []string

	bus.Subscribe(OrderFilled, func(e Event) error {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, "first")
		return fmt.Errorf("의도된 에러")
	})
	bus.Subscribe(OrderFilled, func(e Event) error {
		panic("의도된 패닉")
	})
	bus.Subscribe(OrderFilled, func(e Event) error {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, "third")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Run(ctx)

	bus.Publish(New(OrderFilled, nil))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if calls[0] != "first" || calls[1] != "third" {
		t.Fatalf("핸들러 호출 순서가 잘못됨: %v", calls)
	}
}

// Stop 호출 후 디스패치 루프가 종료되는지 확인
func TestBusStop(t *testing.T) {
	bus := NewBus()

	go bus.Run(context.Background())
	bus.Stop()

	select {
	case <-bus.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Stop 이후에도 디스패치 루프가 종료되지 않음")
	}

	// 중복 Stop은 패닉하지 않아야 함
	bus.Stop()
}

// 구독자가 없는 이벤트는 조용히 버려지는지 확인
func TestBusNoSubscribers(t *testing.T) {
	bus := NewBus()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Run(ctx)

	bus.Publish(New(SystemStart, nil))
	time.Sleep(50 * time.Millisecond)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("조건이 제한 시간 안에 충족되지 않음")
}
