// Package notifier delivers the follow notification side effect. The graph
// service enqueues events into a buffered channel and a single worker
// drains it, so publish latency or broker failures never sit on the
// mutation's critical path. Failures are logged and dropped, never retried
// and never surfaced to the follower.
package notifier

import (
	"context"
	"log"
	"sync"
	"time"

	"followgraph-service/events"
	"github.com/redis/go-redis/v9"
)

const (
	unreadCountPrefix = "notif:unread:"
	unreadCountTTL    = 24 * time.Hour
	deliveryTimeout   = 5 * time.Second
)

// Publisher is the broker-side surface the notifier needs. Satisfied by
// the NATS client.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

type Notifier struct {
	publisher Publisher
	redis     *redis.Client
	queue     chan events.UserFollowedEvent
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// New creates a notifier with the given queue capacity. Either publisher
// or redis may be nil; that leg of delivery is then skipped.
func New(publisher Publisher, redisClient *redis.Client, queueSize int) *Notifier {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Notifier{
		publisher: publisher,
		redis:     redisClient,
		queue:     make(chan events.UserFollowedEvent, queueSize),
	}
}

// Start launches the drain worker. Call Stop to flush and shut it down.
func (n *Notifier) Start() {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for event := range n.queue {
			n.deliver(event)
		}
	}()
}

// NotifyFollowed enqueues a followed event without blocking. When the
// queue is full the event is dropped with a log line; losing a
// notification is preferable to stalling a follow.
func (n *Notifier) NotifyFollowed(event events.UserFollowedEvent) {
	select {
	case n.queue <- event:
	default:
		log.Printf("notification queue full, dropping follow event %s -> %s",
			event.FollowerID, event.FollowingID)
	}
}

// Stop closes the queue and waits for queued events to drain.
func (n *Notifier) Stop() {
	n.stopOnce.Do(func() {
		close(n.queue)
	})
	n.wg.Wait()
}

func (n *Notifier) deliver(event events.UserFollowedEvent) {
	if n.publisher != nil {
		if err := n.publisher.Publish(events.SubjectUserFollowed, event); err != nil {
			log.Printf("failed to publish follow event %s -> %s: %v",
				event.FollowerID, event.FollowingID, err)
		}
	}

	if n.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		key := unreadCountPrefix + event.FollowingID.String()
		if err := n.redis.Incr(ctx, key).Err(); err != nil {
			log.Printf("failed to bump unread count for %s: %v", event.FollowingID, err)
			return
		}
		if err := n.redis.Expire(ctx, key, unreadCountTTL).Err(); err != nil {
			log.Printf("failed to refresh unread count TTL for %s: %v", event.FollowingID, err)
		}
	}
}
