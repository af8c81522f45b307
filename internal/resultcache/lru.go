package resultcache

// lruList is a doubly linked list of cache entries ordered from most
// to least recently used. It is not safe for concurrent use; the cache
// holds its lock around every call.
type lruList struct {
	head *entry
	tail *entry
}

func (l *lruList) pushFront(e *entry) {
	e.prev = nil
	e.next = l.head

	if l.head != nil {
		l.head.prev = e
	}
	l.head = e

	if l.tail == nil {
		l.tail = e
	}
}

func (l *lruList) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}

	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}

	e.prev = nil
	e.next = nil
}

func (l *lruList) moveToFront(e *entry) {
	if l.head == e {
		return
	}

	l.remove(e)
	l.pushFront(e)
}

// back returns the least recently used entry, or nil when empty.
func (l *lruList) back() *entry {
	return l.tail
}
