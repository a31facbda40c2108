// Package events carries calendar invalidation notices from the mutation
// services to whoever renders a trainer's calendar.
package events

import (
	"sync"
	"time"
)

type Kind string

const (
	AvailabilityChanged     Kind = "availability_changed"
	AppointmentStatusChange Kind = "appointment_status_changed"
)

type Event struct {
	Kind          Kind      `json:"kind"`
	TrainerID     int       `json:"trainer_id"`
	Weekdays      []string  `json:"weekdays,omitempty"`
	AppointmentID int       `json:"appointment_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	At            time.Time `json:"at"`
}

// Notifier is the narrow publishing side handed to services.
type Notifier interface {
	Notify(Event)
}

// Bus is a synchronous fan-out. Subscribers must not block.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *Bus) Notify(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}

func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(Event) {}
