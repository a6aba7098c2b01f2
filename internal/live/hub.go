package live

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// DefaultBufferSize is the per-subscription change buffer. When it is full
// further changes are dropped and the subscription is marked for resync;
// the next snapshot is a full reload either way.
const DefaultBufferSize = 64

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("live hub closed")

// Relay forwards locally published changes to other instances.
type Relay interface {
	Forward(ctx context.Context, changes []Change) error
}

// Hub fans changes out to subscriptions.
type Hub struct {
	loader     Loader
	logger     *zap.Logger
	metrics    *observability.Metrics
	bufferSize int

	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	relay  Relay
	closed bool
}

// Option configures a Hub.
type Option func(*Hub)

// WithBufferSize overrides DefaultBufferSize.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithMetrics records subscription gauges and overflows.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// NewHub builds a hub that evaluates queries with loader.
func NewHub(loader Loader, logger *zap.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		loader:     loader,
		logger:     logger,
		bufferSize: DefaultBufferSize,
		subs:       make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetRelay installs the cross-instance relay used by Publish.
func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.relay = r
}

// Subscribe registers a live query. Registration happens before the first
// snapshot is loaded, so no change committed after Subscribe returns can be
// missed.
func (h *Hub) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &Subscription{
		hub:     h,
		query:   q,
		changes: make(chan Change, h.bufferSize),
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	h.metrics.SubscriptionOpened()
	return sub, nil
}

// Publish delivers changes to local subscriptions and forwards them through
// the relay, if any. Relay failures are logged; local delivery already
// happened.
func (h *Hub) Publish(ctx context.Context, changes ...Change) {
	if len(changes) == 0 {
		return
	}
	h.Deliver(changes...)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay == nil {
		return
	}
	if err := relay.Forward(ctx, changes); err != nil {
		h.logger.Warn("relay changes failed", zap.Int("changes", len(changes)), zap.Error(err))
	}
}

// Deliver fans changes out to local subscriptions only. Sends never block.
func (h *Hub) Deliver(changes ...Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if sub.cancelled() {
			continue
		}
		for _, c := range changes {
			if !sub.query.Matches(c) {
				continue
			}
			select {
			case sub.changes <- c:
			default:
				if !sub.resync.Swap(true) {
					h.metrics.SubscriptionOverflow()
				}
			}
		}
	}
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close cancels every subscription and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*Subscription, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	_, ok := h.subs[sub]
	delete(h.subs, sub)
	h.mu.Unlock()
	if ok {
		h.metrics.SubscriptionClosed()
	}
}
