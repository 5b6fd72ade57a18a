// Package events carries store change notifications from the write paths to
// whoever keeps derived data: the aggregator cache, the AMQP relay.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

type Table string

const (
	TableAccounts     Table = "accounts"
	TableCategories   Table = "categories"
	TableTransactions Table = "transactions"
	// TableAll marks writes spanning every table (import, reset).
	TableAll Table = "*"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpImport Op = "import"
	OpClear  Op = "clear"
)

// Change describes one committed unit of work. Version increases by one for
// every published change, so a subscriber that missed events can tell it is
// behind by comparing versions.
type Change struct {
	Table   Table     `json:"table"`
	Op      Op        `json:"op"`
	Version int64     `json:"version"`
	At      time.Time `json:"at"`
}

const defaultBuffer = 16

// Bus fans changes out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan Change
	nextID  int
	buffer  int
	version atomic.Int64
	now     func() time.Time
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Bus{subs: map[int]chan Change{}, buffer: buffer, now: time.Now}
}

// Publish stamps and delivers a change and returns it.
func (b *Bus) Publish(table Table, op Op) Change {
	c := Change{Table: table, Op: op, Version: b.version.Add(1), At: b.now()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- c:
		default:
		}
	}
	return c
}

// Version is the version of the last published change, 0 before any.
func (b *Bus) Version() int64 {
	return b.version.Load()
}

// Subscribe registers a new subscriber. The returned function unsubscribes
// and closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, b.buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}
