package logo

// preloadQueue is an insertion-ordered set of keys awaiting a background lookup.
type preloadQueue struct {
	order []Key
	index map[Key]struct{}
}

func (q *preloadQueue) push(k Key) bool {
	if q.index == nil {
		q.index = make(map[Key]struct{})
	}
	if _, ok := q.index[k]; ok {
		return false
	}
	q.index[k] = struct{}{}
	q.order = append(q.order, k)
	return true
}

func (q *preloadQueue) remove(k Key) {
	if _, ok := q.index[k]; !ok {
		return
	}
	delete(q.index, k)
	for i, o := range q.order {
		if o == k {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// peek returns up to n queued keys without removing them.
func (q *preloadQueue) peek(n int) []Key {
	if n > len(q.order) {
		n = len(q.order)
	}
	out := make([]Key, n)
	copy(out, q.order[:n])
	return out
}

func (q *preloadQueue) len() int {
	return len(q.order)
}

func (q *preloadQueue) reset() {
	q.order = nil
	q.index = nil
}
