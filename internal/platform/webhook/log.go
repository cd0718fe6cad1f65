package webhook

import "sync"

// DeliveryLog stores delivery attempts.
type DeliveryLog interface {
	Record(attempt *DeliveryAttempt)
	List(userID string, limit, offset int) ([]*DeliveryAttempt, int)
}

// MemoryLog keeps the most recent attempts in a fixed-size ring, newest
// first on read.
type MemoryLog struct {
	mu       sync.RWMutex
	capacity int
	items    []*DeliveryAttempt
	next     int
	full     bool
}

// NewMemoryLog creates a log holding at most capacity attempts.
func NewMemoryLog(capacity int) *MemoryLog {
	if capacity <= 0 {
		capacity = 500
	}
	return &MemoryLog{capacity: capacity, items: make([]*DeliveryAttempt, capacity)}
}

func (l *MemoryLog) Record(a *DeliveryAttempt) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items[l.next] = a
	l.next = (l.next + 1) % l.capacity
	if l.next == 0 {
		l.full = true
	}
}

// List returns attempts for userID, newest first.
func (l *MemoryLog) List(userID string, limit, offset int) ([]*DeliveryAttempt, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := l.next
	if l.full {
		n = l.capacity
	}

	var filtered []*DeliveryAttempt
	for i := 1; i <= n; i++ {
		a := l.items[(l.next-i+l.capacity)%l.capacity]
		if a != nil && a.UserID == userID {
			filtered = append(filtered, a)
		}
	}

	total := len(filtered)
	if offset >= total {
		return []*DeliveryAttempt{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total
}
