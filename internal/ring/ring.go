package ring

// Ring is a bounded FIFO backed by a fixed circular buffer.
// Push and Pop report full and empty explicitly instead of wrapping.
type Ring[T any] struct {
	buf  []T
	head int
	size int
}

// New creates a ring holding at most capacity elements.
// A capacity below 1 is treated as 1.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v at the tail. It returns false if the ring is full.
func (r *Ring[T]) Push(v T) bool {
	if r.size == len(r.buf) {
		return false
	}
	r.buf[(r.head+r.size)%len(r.buf)] = v
	r.size++
	return true
}

// Pop removes and returns the head element. It returns false if the ring is empty.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	v := r.buf[r.head]
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	r.size--
	return v, true
}

// Len returns the number of queued elements.
func (r *Ring[T]) Len() int { return r.size }

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Full reports whether a Push would fail.
func (r *Ring[T]) Full() bool { return r.size == len(r.buf) }

// Empty reports whether a Pop would fail.
func (r *Ring[T]) Empty() bool { return r.size == 0 }

// Each calls fn for every queued element in FIFO order, head first.
// fn must not push or pop.
func (r *Ring[T]) Each(fn func(v T)) {
	for i := 0; i < r.size; i++ {
		fn(r.buf[(r.head+i)%len(r.buf)])
	}
}

// Items returns a copy of the queued elements in FIFO order.
func (r *Ring[T]) Items() []T {
	out := make([]T, 0, r.size)
	r.Each(func(v T) { out = append(out, v) })
	return out
}
