package event

import (
	"context"
	"log"
	"sync"
)

// defaultQueueSize는 발행 큐의 버퍼 크기입니다
const defaultQueueSize = 1024

// Handler는 이벤트를 처리하는 콜백 함수 타입입니다
type Handler func(Event) error

// Bus는 순서가 보장되는 비동기 발행/구독 디스패처입니다.
// 단일 디스패치 루프가 발행 순서 그대로 큐를 소비하며, 이벤트마다 해당 유형의
// 구독자를 순차적으로 호출합니다. 구독자가 엔진의 공유 상태(활성 심볼 맵 등)를
// 변경하기 때문에 핸들러를 병렬로 실행하지 않습니다
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type][]Handler
	queue       chan Event
	stopCh      chan struct{}
	stopOnce    sync.Once
	doneCh      chan struct{}
}

// BusOption은 버스 생성 옵션을 정의합니다
type BusOption func(*Bus)

// WithQueueSize는 발행 큐의 버퍼 크기를 설정합니다
func WithQueueSize(size int) BusOption {
	return func(b *Bus) {
		b.queue = make(chan Event, size)
	}
}

// NewBus는 새로운 이벤트 버스를 생성합니다
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		subscribers: make(map[Type][]Handler),
		queue:       make(chan Event, defaultQueueSize),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Subscribe는 특정 이벤트 유형에 대한 핸들러를 등록합니다.
// 같은 유형에 여러 핸들러를 등록할 수 있으며 등록 순서대로 호출됩니다
func (b *Bus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish는 이벤트를 큐에 넣습니다. 호출자를 블로킹하지 않으며,
// 큐가 가득 찬 경우 이벤트를 버리고 경고를 남깁니다
func (b *Bus) Publish(e Event) {
	select {
	case b.queue <- e:
	default:
		log.Printf("이벤트 큐가 가득 참: %s 이벤트 유실", e.Type)
	}
}

// Run은 디스패치 루프를 실행합니다. Stop이 호출되거나 컨텍스트가
// 취소될 때까지 블로킹합니다
func (b *Bus) Run(ctx context.Context) {
	defer close(b.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stopCh:
			return
		case e := <-b.queue:
			b.dispatch(e)
		}
	}
}

// dispatch는 이벤트를 해당 유형의 모든 구독자에게 순차 전달합니다.
// 핸들러의 에러나 패닉은 로깅 후 건너뛰며 루프나 다른 핸들러를 중단시키지 않습니다
func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	handlers := b.subscribers[e.Type]
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.invoke(e, handler)
	}
}

// invoke는 단일 핸들러를 패닉 격리와 함께 호출합니다
func (b *Bus) invoke(e Event, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("이벤트 핸들러 패닉 (%s): %v", e.Type, r)
		}
	}()

	if err := handler(e); err != nil {
		log.Printf("이벤트 핸들러 에러 (%s): %v", e.Type, err)
	}
}

// Stop은 디스패치 루프의 종료를 요청합니다
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
}

// Done은 디스패치 루프가 종료되면 닫히는 채널을 반환합니다
func (b *Bus) Done() <-chan struct{} {
	return b.doneCh
}
