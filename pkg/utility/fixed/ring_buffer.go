package fixed

import "fmt"

// RingBuffer keeps the last capacity points of a series, used for rolling windows.
type RingBuffer struct {
	buffer   []Point
	capacity int
	size     int
	tail     int
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		panic("capacity must be positive")
	}
	return &RingBuffer{
		buffer:   make([]Point, capacity),
		capacity: capacity,
	}
}

func (r *RingBuffer) Size() int {
	return r.size
}

func (r *RingBuffer) IsFull() bool {
	return r.size == r.capacity
}

func (r *RingBuffer) Add(p Point) {
	r.buffer[r.tail] = p
	r.tail = (r.tail + 1) % r.capacity

	if r.size < r.capacity {
		r.size++
	}
}

// Get returns the point idx steps back from the latest one.
func (r *RingBuffer) Get(idx int) Point {
	if idx < 0 || idx >= r.size {
		panic(fmt.Sprintf("index %d out of range [0, %d)", idx, r.size))
	}
	return r.buffer[(r.tail-1-idx+r.capacity)%r.capacity]
}

func (r *RingBuffer) Latest() Point {
	if r.size == 0 {
		panic("buffer is empty")
	}
	return r.Get(0)
}

func (r *RingBuffer) ForEachFifo(f func(Point)) {
	for i := r.size - 1; i >= 0; i-- {
		f(r.Get(i))
	}
}

func (r *RingBuffer) Mean() Point {
	if r.size == 0 {
		return Zero
	}

	sum := Zero
	r.ForEachFifo(func(p Point) {
		sum = sum.Add(p)
	})
	return sum.DivInt(r.size)
}

func (r *RingBuffer) SampleStdDev() Point {
	if r.size <= 1 {
		return Zero
	}

	mean := r.Mean()
	sumSquaredDiff := Zero

	r.ForEachFifo(func(p Point) {
		diff := p.Sub(mean)
		sumSquaredDiff = sumSquaredDiff.Add(diff.Mul(diff))
	})

	return sumSquaredDiff.DivInt(r.size - 1).Sqrt()
}
