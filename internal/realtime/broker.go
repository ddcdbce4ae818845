// Package realtime fans out record-change events to in-process subscribers.
// Repositories publish after every successful mutation; patient, driver, and
// hospital views subscribe to the slices they care about. Delivery is
// push-based and eventually consistent: a subscriber can briefly observe a
// stale status while an event is in flight.
package realtime

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"swasthsuraksha/internal/models"
)

type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Event is one record change. Exactly one of Request/Ambulance is set.
type Event struct {
	Change    ChangeType               `json:"change"`
	Request   *models.EmergencyRequest `json:"request,omitempty"`
	Ambulance *models.Ambulance        `json:"ambulance,omitempty"`
}

// Subscription is a cancellable event stream. After Unsubscribe returns, no
// further events are delivered; the channel is closed so receivers can range
// over it.
type Subscription struct {
	id     uint64
	ch     chan Event
	broker *Broker
	once   sync.Once
}

func (s *Subscription) C() <-chan Event {
	return s.ch
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.remove(s.id)
	})
}

type subscriber struct {
	ch     chan Event
	filter func(Event) bool
}

// Broker routes events to matching subscribers. Slow subscribers never block a
// publisher: when a buffer is full the oldest event is dropped, since every
// event carries a full snapshot and only the latest state matters.
type Broker struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscriber
	buffer int
}

func NewBroker() *Broker {
	return &Broker{
		subs:   make(map[uint64]*subscriber),
		buffer: 16,
	}
}

func (b *Broker) subscribe(filter func(Event) bool) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscriber{
		ch:     make(chan Event, b.buffer),
		filter: filter,
	}
	b.subs[b.nextID] = sub

	return &Subscription{
		id:     b.nextID,
		ch:     sub.ch,
		broker: b,
	}
}

func (b *Broker) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

func (b *Broker) publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if !sub.filter(event) {
			continue
		}
		for {
			select {
			case sub.ch <- event:
			default:
				// Buffer full: drop the oldest and retry.
				select {
				case <-sub.ch:
				default:
				}
				continue
			}
			break
		}
	}
}

func (b *Broker) PublishRequest(change ChangeType, request *models.EmergencyRequest) {
	b.publish(Event{Change: change, Request: request})
}

func (b *Broker) PublishAmbulance(change ChangeType, ambulance *models.Ambulance) {
	b.publish(Event{Change: change, Ambulance: ambulance})
}

// SubscribeRequest delivers every change to a single request.
func (b *Broker) SubscribeRequest(id primitive.ObjectID) *Subscription {
	return b.subscribe(func(e Event) bool {
		return e.Request != nil && e.Request.ID == id
	})
}

// SubscribePending delivers changes to any request that is pending, or that
// just left the pending state. Consumers re-read the pending set on each event.
func (b *Broker) SubscribePending() *Subscription {
	return b.subscribe(func(e Event) bool {
		return e.Request != nil
	})
}

// SubscribeAmbulanceRequests delivers changes to requests bound to the given
// ambulance.
func (b *Broker) SubscribeAmbulanceRequests(ambulanceID primitive.ObjectID) *Subscription {
	return b.subscribe(func(e Event) bool {
		return e.Request != nil &&
			e.Request.AssignedAmbulanceID != nil &&
			*e.Request.AssignedAmbulanceID == ambulanceID
	})
}

// SubscribeAmbulance delivers every change to a single ambulance record.
func (b *Broker) SubscribeAmbulance(id primitive.ObjectID) *Subscription {
	return b.subscribe(func(e Event) bool {
		return e.Ambulance != nil && e.Ambulance.ID == id
	})
}

// SubscribeAmbulances delivers every ambulance change; the hospital dashboard
// uses this to keep its fleet view current.
func (b *Broker) SubscribeAmbulances() *Subscription {
	return b.subscribe(func(e Event) bool {
		return e.Ambulance != nil
	})
}
