// Package ringbuf is a fixed size ring whose index 0 is always the newest element.
package ringbuf

// Ring fields are exported so a ring survives a JSON round trip in state snapshots.
type Ring[T any] struct {
	Data []T
	Head int
	// Filled counts pushed elements, capped at the ring size.
	Filled int
}

func New[T any](size int) *Ring[T] {
	if size < 1 {
		size = 1
	}
	return &Ring[T]{
		Data: make([]T, size),
	}
}

// PushFront stores v as the newest element, overwriting the oldest one once the ring is full.
func (r *Ring[T]) PushFront(v T) *Ring[T] {
	r.Head--
	if r.Head < 0 {
		r.Head = len(r.Data) - 1
	}
	r.Data[r.Head] = v
	if r.Filled < len(r.Data) {
		r.Filled++
	}
	return r
}

func (r *Ring[T]) WalkFirstN(count int, fn func(T)) {
	for i := 0; i < count; i++ {
		fn(r.GetN(i))
	}
}

// GetN returns the element i steps from the newest. Negative i counts back from the oldest slot.
func (r *Ring[T]) GetN(i int) T {
	return r.Data[r.index(i)]
}

func (r *Ring[T]) SetN(i int, val T) {
	r.Data[r.index(i)] = val
}

// Newest returns up to n pushed elements, newest first.
func (r *Ring[T]) Newest(n int) []T {
	n = min(n, r.Filled)
	out := make([]T, 0, n)
	r.WalkFirstN(n, func(v T) {
		out = append(out, v)
	})
	return out
}

// Map copies the ring into a ring of another element type, keeping positions.
func Map[T, U any](r *Ring[T], fn func(T) U) *Ring[U] {
	out := &Ring[U]{
		Data:   make([]U, len(r.Data)),
		Head:   r.Head,
		Filled: r.Filled,
	}
	for i, v := range r.Data {
		out.Data[i] = fn(v)
	}
	return out
}

func (r *Ring[T]) Len() int {
	return len(r.Data)
}

func (r *Ring[T]) index(i int) int {
	size := len(r.Data)
	return ((r.Head+i)%size + size) % size
}
