package utils

import (
	"github.com/sasha-s/go-deadlock"
)

// SUBSCRIBER_BUFFER is how many events a subscriber may fall behind before
// new events are dropped for it.
const SUBSCRIBER_BUFFER = 256

// Topic fans values out to subscribers. Publish never blocks: a subscriber
// that is not keeping up misses events.
type Topic[T any] struct {
	subscribers map[chan T]struct{}
	dropped     uint64
	mutex       deadlock.Mutex
}

func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{
		subscribers: make(map[chan T]struct{}),
	}
}

func (t *Topic[T]) Publish(value T) {
	t.mutex.Lock()
	for subscriber := range t.subscribers {
		select {
		case subscriber <- value:
		default:
			t.dropped++
		}
	}
	t.mutex.Unlock()
}

// Dropped returns how many deliveries were skipped because a subscriber was
// full.
func (t *Topic[T]) Dropped() uint64 {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.dropped
}

type Subscriber[T any] struct {
	channel chan T
	topic   *Topic[T]
}

func (t *Topic[T]) Subscribe() *Subscriber[T] {
	channel := make(chan T, SUBSCRIBER_BUFFER)
	t.mutex.Lock()
	t.subscribers[channel] = struct{}{}
	t.mutex.Unlock()

	return &Subscriber[T]{channel, t}
}

func (t *Subscriber[T]) Recv() <-chan T {
	return t.channel
}

func (t *Subscriber[T]) Done() {
	topic := t.topic
	topic.mutex.Lock()
	delete(topic.subscribers, t.channel)
	topic.mutex.Unlock()
}
