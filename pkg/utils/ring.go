package utils

// Ring is a bounded FIFO queue. It never grows; callers decide whether a
// full ring drops the new value (Push) or the oldest one (Force).
type Ring[T any] struct {
	items []T
	head  int
	count int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{
		items: make([]T, capacity),
	}
}

func (r *Ring[T]) Len() int {
	return r.count
}

func (r *Ring[T]) Cap() int {
	return len(r.items)
}

func (r *Ring[T]) Full() bool {
	return r.count == len(r.items)
}

// Push appends value to the back of the ring. It reports false, and leaves
// the ring untouched, when the ring is full.
func (r *Ring[T]) Push(value T) bool {
	if r.Full() {
		return false
	}
	r.items[(r.head+r.count)%len(r.items)] = value
	r.count++
	return true
}

// Force appends value, evicting the oldest entry if the ring is full.
func (r *Ring[T]) Force(value T) {
	if r.Full() {
		r.Pop()
	}
	r.Push(value)
}

func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	value := r.items[r.head]
	r.items[r.head] = zero
	r.head = (r.head + 1) % len(r.items)
	r.count--
	return value, true
}

func (r *Ring[T]) Peek() (T, bool) {
	return r.At(0)
}

// At returns the i-th entry counted from the front.
func (r *Ring[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= r.count {
		return zero, false
	}
	return r.items[(r.head+i)%len(r.items)], true
}

// Set replaces the i-th entry counted from the front.
func (r *Ring[T]) Set(i int, value T) bool {
	if i < 0 || i >= r.count {
		return false
	}
	r.items[(r.head+i)%len(r.items)] = value
	return true
}

// Skip drops up to n entries from the front and returns how many were
// dropped.
func (r *Ring[T]) Skip(n int) int {
	dropped := 0
	for dropped < n {
		if _, ok := r.Pop(); !ok {
			break
		}
		dropped++
	}
	return dropped
}

// Drain removes and returns every entry in order.
func (r *Ring[T]) Drain() []T {
	values := make([]T, 0, r.count)
	for {
		value, ok := r.Pop()
		if !ok {
			break
		}
		values = append(values, value)
	}
	return values
}

func (r *Ring[T]) Clear() {
	r.Skip(r.count)
	r.head = 0
}
