package live

import (
	"context"
	"errors"
	"iter"
	"sync"
	"sync/atomic"
)

// ErrCancelled is returned by Next once the subscription was cancelled.
var ErrCancelled = errors.New("subscription cancelled")

// Subscription is a live query. Next and Snapshots must be driven by one
// goroutine; Cancel may be called from any goroutine.
type Subscription struct {
	hub     *Hub
	query   Query
	changes chan Change
	resync  atomic.Bool
	done    chan struct{}
	once    sync.Once

	// owned by the consuming goroutine
	started bool
	stale   bool
	seq     uint64
}

// Query returns the query the subscription was opened with.
func (s *Subscription) Query() Query {
	return s.query
}

// Next returns the initial snapshot on the first call and afterwards blocks
// until a relevant change arrives, then returns a fresh snapshot. Changes
// that queued up meanwhile are folded into one snapshot. After Cancel, Next
// returns ErrCancelled and never another snapshot.
func (s *Subscription) Next(ctx context.Context) (Snapshot, error) {
	if s.cancelled() {
		return Snapshot{}, ErrCancelled
	}
	if !s.started || s.stale {
		s.started = true
		return s.load(ctx, nil, s.resync.Swap(false))
	}

	var pending []Change
	select {
	case <-s.done:
		return Snapshot{}, ErrCancelled
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case c := <-s.changes:
		pending = append(pending, c)
	}
drain:
	for {
		select {
		case c := <-s.changes:
			pending = append(pending, c)
		default:
			break drain
		}
	}
	return s.load(ctx, pending, s.resync.Swap(false))
}

func (s *Subscription) load(ctx context.Context, pending []Change, resync bool) (Snapshot, error) {
	snap, err := s.hub.loader.Load(ctx, s.query)
	if err != nil {
		s.stale = true
		return Snapshot{}, err
	}
	if s.cancelled() {
		return Snapshot{}, ErrCancelled
	}
	s.stale = false
	s.seq++
	snap.Seq = s.seq
	snap.Changes = pending
	snap.Resync = resync
	return snap, nil
}

// Snapshots returns the subscription as an iterator. The sequence ends when
// the subscription is cancelled or the consumer stops ranging; stopping
// early cancels the subscription. Load and context errors are yielded once
// and end the sequence.
func (s *Subscription) Snapshots(ctx context.Context) iter.Seq2[Snapshot, error] {
	return func(yield func(Snapshot, error) bool) {
		for {
			snap, err := s.Next(ctx)
			if errors.Is(err, ErrCancelled) {
				return
			}
			if err != nil {
				yield(Snapshot{}, err)
				return
			}
			if !yield(snap, nil) {
				s.Cancel()
				return
			}
		}
	}
}

// Cancel stops delivery permanently. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
		s.hub.remove(s)
	})
}

// Done is closed once the subscription is cancelled.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) cancelled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
