package diagnostics

// ring is a fixed-capacity buffer that drops its oldest element once full. It is not safe for concurrent use; the
// Store serializes access to it.
type ring[T any] struct {
	buf  []T
	head int
	size int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{buf: make([]T, max(capacity, 1))}
}

// push appends v and reports whether an element had to be evicted to make room.
func (r *ring[T]) push(v T) (evicted bool) {
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = v
		r.size++
		return false
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	return true
}

// items returns the elements oldest first.
func (r *ring[T]) items() []T {
	out := make([]T, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}

func (r *ring[T]) len() int {
	return r.size
}

func (r *ring[T]) capacity() int {
	return len(r.buf)
}

func (r *ring[T]) clear() {
	clear(r.buf)
	r.head = 0
	r.size = 0
}
