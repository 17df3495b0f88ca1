package comm

import (
	"context"
	"slices"
	"sync"

	"github.com/pkg/errors"
)

type mailbox struct {
	mu      sync.Mutex
	pending []Message
	// arrived is closed and replaced whenever a message is queued.
	arrived chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{arrived: make(chan struct{})}
}

func (m *mailbox) put(msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, msg)
	close(m.arrived)
	m.arrived = make(chan struct{})
}

func matches(msg Message, source int, tag Tag) bool {
	return (source == AnySource || msg.Source == source) &&
		(tag == AnyTag || msg.Tag == tag)
}

func (m *mailbox) take(ctx context.Context, source int, tag Tag) (Message, error) {
	for {
		m.mu.Lock()
		for i, msg := range m.pending {
			if matches(msg, source, tag) {
				m.pending = slices.Delete(m.pending, i, i+1)
				m.mu.Unlock()
				return msg, nil
			}
		}
		arrived := m.arrived
		m.mu.Unlock()

		select {
		case <-arrived:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
}

// A World connects a fixed number of ranks within one process.
type World struct {
	boxes   []*mailbox
	metrics *Metrics
}

// An Option configures a World.
type Option func(*World)

// WithMetrics makes the world count every message it delivers.
func WithMetrics(m *Metrics) Option {
	return func(w *World) {
		w.metrics = m
	}
}

// NewWorld returns a world of size ranks.
func NewWorld(size int, opts ...Option) *World {
	if size < 1 {
		panic("a world needs at least one rank")
	}
	w := &World{boxes: make([]*mailbox, size)}
	for i := range w.boxes {
		w.boxes[i] = newMailbox()
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Size returns the number of ranks in the world.
func (w *World) Size() int {
	return len(w.boxes)
}

// Comm returns the endpoint of rank.
func (w *World) Comm(rank int) Comm {
	if rank < 0 || rank >= len(w.boxes) {
		panic(errors.Wrapf(ErrInvalidRank, "rank %d in a world of %d", rank, len(w.boxes)))
	}
	return endpoint{world: w, rank: rank}
}

type endpoint struct {
	world *World
	rank  int
}

func (e endpoint) Rank() int {
	return e.rank
}

func (e endpoint) Size() int {
	return len(e.world.boxes)
}

func (e endpoint) Send(ctx context.Context, dest int, tag Tag, data []int64) error {
	if dest < 0 || dest >= len(e.world.boxes) {
		return errors.Wrapf(ErrInvalidRank, "rank %d: send %v to rank %d", e.rank, tag, dest)
	}
	if tag == AnyTag {
		return errors.Wrapf(ErrProtocol, "rank %d: send without a tag", e.rank)
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "rank %d: send %v to rank %d", e.rank, tag, dest)
	}
	e.world.boxes[dest].put(Message{Source: e.rank, Tag: tag, Data: slices.Clone(data)})
	e.world.metrics.observe(tag, len(data))
	return nil
}

func (e endpoint) Recv(ctx context.Context, source int, tag Tag) (Message, error) {
	if source != AnySource && (source < 0 || source >= len(e.world.boxes)) {
		return Message{}, errors.Wrapf(ErrInvalidRank, "rank %d: receive %v from rank %d", e.rank, tag, source)
	}
	msg, err := e.world.boxes[e.rank].take(ctx, source, tag)
	if err != nil {
		return msg, errors.Wrapf(err, "rank %d: receive %v from rank %d", e.rank, tag, source)
	}
	return msg, nil
}
