// Package events implements the notification publisher (C7): a
// non-blocking fan-out of vnode mapping changes to subscribers, published
// only after a write commits and its lock is released. A notification that
// finds a subscriber's buffer full is dropped for that subscriber and is
// not redelivered.
package events

import (
	"sync"
	"time"

	"github.com/cuemby/fragmentmgr/pkg/metrics"
	"github.com/cuemby/fragmentmgr/pkg/types"
)

// Operation describes what happened to a fragment's vnode mapping.
type Operation string

const (
	OperationAdd    Operation = "add"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// VNodeMappingNotification announces a fragment's vnode mapping changed.
type VNodeMappingNotification struct {
	Operation       Operation
	FragmentID      types.FragmentID
	OriginalIndices []uint32
	Data            []types.ParallelUnitID
	Timestamp       time.Time
}

// Subscriber is a channel that receives notifications.
type Subscriber chan *VNodeMappingNotification

// Broker distributes vnode mapping notifications to subscribers. Delivery
// is non-blocking per subscriber: a slow subscriber drops notifications
// rather than stalling the publisher, and a dropped notification is not
// sent again, so each subscriber receives a notification at most once.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *VNodeMappingNotification
	stopCh      chan struct{}
}

// NewBroker creates a new notification broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *VNodeMappingNotification, 256),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns its channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 64)
	b.subscribers[sub] = true
	metrics.NotificationSubscribersActive.Set(float64(len(b.subscribers)))
	return sub
}

// Unsubscribe removes a subscription.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
	metrics.NotificationSubscribersActive.Set(float64(len(b.subscribers)))
}

// Publish queues n for distribution to all current subscribers. Must never
// be called while holding the fragment store's lock.
func (b *Broker) Publish(n *VNodeMappingNotification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	metrics.NotificationsPublishedTotal.WithLabelValues(string(n.Operation)).Inc()

	select {
	case b.eventCh <- n:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case n := <-b.eventCh:
			b.broadcast(n)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(n *VNodeMappingNotification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- n:
		default:
			// Subscriber buffer full, drop. The notification is not
			// queued for redelivery to this subscriber.
			metrics.NotificationsDroppedTotal.Inc()
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
