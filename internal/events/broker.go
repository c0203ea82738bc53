package events

import (
	"sync"

	"github.com/google/uuid"

	"github.com/UkralStul/mountainmerge-comments/internal/domain"
)

// Broker хранит каналы подписчиков на изменения комментариев.
type Broker struct {
	mu sync.RWMutex
	//          map[targetID] map[subscriberID] channel
	subs   map[string]map[string]chan domain.CommentEvent
	buffer int
}

// NewBroker - конструктор брокера. buffer задаёт размер очереди
// каждого подписчика.
func NewBroker(buffer int) *Broker {
	if buffer < 1 {
		buffer = 1
	}
	return &Broker{
		subs:   make(map[string]map[string]chan domain.CommentEvent),
		buffer: buffer,
	}
}

// Subscribe регистрирует подписчика на события объекта targetID.
// Вызов cancel отписывает и закрывает канал; повторный вызов безопасен.
func (b *Broker) Subscribe(targetID string) (<-chan domain.CommentEvent, func()) {
	ch := make(chan domain.CommentEvent, b.buffer)
	subID := uuid.NewString()

	b.mu.Lock()
	if b.subs[targetID] == nil {
		b.subs[targetID] = make(map[string]chan domain.CommentEvent)
	}
	b.subs[targetID][subID] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if targetSubs, ok := b.subs[targetID]; ok {
				delete(targetSubs, subID)
				if len(targetSubs) == 0 {
					delete(b.subs, targetID)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish рассылает событие подписчикам объекта. Не блокируется:
// если подписчик не успевает читать, событие для него пропускается.
// Любое событие означает лишь "перезагрузи список".
func (b *Broker) Publish(event domain.CommentEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[event.TargetID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers возвращает число подписчиков объекта.
func (b *Broker) Subscribers(targetID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[targetID])
}
