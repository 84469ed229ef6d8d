package util

func mod(a int, b int) int {
	return ((a % b) + b) % b
}

// fixed-size ring-buffer queue
type Queue[T any] struct {
	data	[]T
	head	int // next slot to write to
	cnt 	int
}

func CreateQueue[T any](size int) Queue[T] {
	return Queue[T] {
		head: 	0,
		cnt: 	0,
		data: 	make([]T, size),
	}
}

func (q *Queue[T]) Cnt() int {
	return q.cnt
}

func (q *Queue[T]) Full() bool {
	return q.cnt == len(q.data)
}

// will panic if out of space.
func (q *Queue[T]) Push(val T) {
	if q.cnt == len(q.data) { panic("queue overflow") }
	q.data[q.head] = val
	q.head = mod((q.head + 1), len(q.data))
	q.cnt++
}

// Oldest element first.
func (q *Queue[T]) Pop() T {
	if q.cnt == 0 { panic("queue underflow") }
	i := mod((q.head - q.cnt), len(q.data))
	q.cnt--
	return q.data[i]
}

// Removes and returns the element i places from the oldest.
func (q *Queue[T]) Take(i int) T {
	if i < 0 || i >= q.cnt { panic("queue index out of range") }
	start := q.head - q.cnt
	at := mod(start + i, len(q.data))
	val := q.data[at]
	// close the gap by shifting the older elements up by one
	for j := i; j > 0; j-- {
		q.data[mod(start + j, len(q.data))] = q.data[mod(start + j - 1, len(q.data))]
	}
	q.cnt--
	return val
}
