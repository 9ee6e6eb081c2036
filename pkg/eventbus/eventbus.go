// Package eventbus is the single-writer, multi-reader event stream that
// carries order-book activity out of the matching engine: snapshots on
// attach, then every new order, cancel, and execution as it commits.
// In-process critical paths (persistence, session reply) register as
// synchronous handlers and are guaranteed delivery; everything else is a
// best-effort subscriber that is dropped if it falls behind.
package eventbus

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/exchangesim/fixexchange/pkg/logging"
	"github.com/exchangesim/fixexchange/pkg/orderbook"
)

// Type names the four envelope kinds the bus carries.
type Type string

const (
	TypeSnapshot    Type = "snapshot"
	TypeNewOrder    Type = "new_order"
	TypeCancelOrder Type = "cancel_order"
	TypeExecution   Type = "execution"
)

// Event is the wire-level envelope: {type, data, timestamp}.
type Event struct {
	Type      Type `json:"type"`
	Data      any  `json:"data"`
	Timestamp int64 `json:"timestamp"`
}

// Handler is a synchronous, MUST-deliver subscriber — persistence and a
// session relaying its own execution reports register one of these. It
// runs on the publishing goroutine, so it must not block.
type Handler func(Event)

// SymbolSnapshot is one symbol's resting book, grouped the way the
// attach-time Snapshot event reports it.
type SymbolSnapshot struct {
	Symbol string                 `json:"symbol"`
	Bids   []orderbook.PriceLevel `json:"bids"`
	Asks   []orderbook.PriceLevel `json:"asks"`
}

// SnapshotPayload is the Data carried by a TypeSnapshot event: every
// tradable symbol's grouped depth plus recent executions across all of
// them.
type SnapshotPayload struct {
	Symbols          []SymbolSnapshot       `json:"symbols"`
	RecentExecutions []*orderbook.Execution `json:"recent_executions"`
}

// SnapshotFunc builds the payload a new subscriber receives at attach
// time. Set via SetSnapshotProvider; left nil, Subscribe sends no
// snapshot.
type SnapshotFunc func() SnapshotPayload

// namedHandler pairs a Handler with the id OffEvent removes it by.
type namedHandler struct {
	id int64
	h  Handler
}

// Bus fans events out to synchronous handlers and to best-effort channel
// subscribers, optionally mirroring every event to Redis for external
// consumers. The zero value is not usable; construct with New.
type Bus struct {
	mu          sync.RWMutex
	handlers    []namedHandler
	subscribers map[int64]chan Event
	nextSubID   int64
	nextHandlerID int64

	redisClient  *redis.Client
	redisChannel string
	logger       *logging.Logger

	snapshotFn SnapshotFunc
}

// New constructs a Bus. redisClient and logger may be nil — with no Redis
// client, external fan-out is simply skipped.
func New(redisClient *redis.Client, redisChannel string, logger *logging.Logger) *Bus {
	return &Bus{
		subscribers:  make(map[int64]chan Event),
		redisClient:  redisClient,
		redisChannel: redisChannel,
		logger:       logger,
	}
}

// OnEvent registers a synchronous handler. Handlers run in registration
// order, on the caller's goroutine, before any best-effort subscriber
// sees the event. The returned id can be passed to OffEvent to remove a
// handler whose owner (e.g. a Session) has gone away.
func (b *Bus) OnEvent(h Handler) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := atomic.AddInt64(&b.nextHandlerID, 1)
	b.handlers = append(b.handlers, namedHandler{id: id, h: h})
	return id
}

// OffEvent removes a handler previously registered with OnEvent. A
// Session calls this on teardown so a long-lived Bus does not accumulate
// a handler per connection it has ever served.
func (b *Bus) OffEvent(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, nh := range b.handlers {
		if nh.id == id {
			b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
			return
		}
	}
}

// SetSnapshotProvider installs the callback Subscribe uses to build each
// new subscriber's attach-time Snapshot event. Safe to call concurrently
// with Subscribe.
func (b *Bus) SetSnapshotProvider(fn SnapshotFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshotFn = fn
}

// Subscribe registers a best-effort external subscriber with the given
// channel buffer depth. If a snapshot provider is set, the subscriber's
// first event is a TypeSnapshot built from it, sent before Subscribe
// returns. Callers must range over the returned channel until
// Unsubscribe; Publish never blocks waiting on it.
func (b *Bus) Subscribe(buffer int) (id int64, ch <-chan Event) {
	b.mu.Lock()
	id = atomic.AddInt64(&b.nextSubID, 1)
	c := make(chan Event, buffer)
	b.subscribers[id] = c
	snapshotFn := b.snapshotFn
	b.mu.Unlock()

	if snapshotFn != nil {
		snapshot := Event{Type: TypeSnapshot, Data: snapshotFn(), Timestamp: time.Now().UnixNano()}
		select {
		case c <- snapshot:
		default:
			if b.logger != nil {
				b.logger.Warn(context.Background(), "eventbus: snapshot dropped, subscriber buffer full")
			}
		}
	}
	return id, c
}

// Unsubscribe removes and closes a subscriber's channel.
func (b *Bus) Unsubscribe(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(c)
	}
}

// Publish delivers ev to every synchronous handler (in order, blocking),
// then attempts a non-blocking send to every channel subscriber, dropping
// any that is not ready to receive. Publish is itself expected to be
// called in commit order by a single writer per symbol — the bus does
// not reorder or buffer across callers.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	handlers := b.handlers
	subs := make(map[int64]chan Event, len(b.subscribers))
	for id, c := range b.subscribers {
		subs[id] = c
	}
	b.mu.RUnlock()

	for _, nh := range handlers {
		nh.h(ev)
	}

	for _, c := range subs {
		select {
		case c <- ev:
		default:
			if b.logger != nil {
				b.logger.Warn(context.Background(), "eventbus: subscriber fell behind, dropping event")
			}
		}
	}

	if b.redisClient != nil {
		go b.publishRedis(ev)
	}
}

// publishRedis mirrors ev to the configured Redis channel. It never
// blocks Publish and its failure is observability-only: a slow or down
// Redis instance must not affect in-process delivery.
func (b *Bus) publishRedis(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		if b.logger != nil {
			b.logger.Error(context.Background(), "eventbus: marshal event for redis failed")
		}
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := b.redisClient.Publish(ctx, b.redisChannel, payload).Err(); err != nil {
		if b.logger != nil {
			b.logger.Error(context.Background(), "eventbus: redis publish failed")
		}
	}
}
