// Package membus is an in-process stand-in for the DDS fabric: it
// carries encoded participant announcements between graph caches in
// the same process. Tests and the simulator use it to wire several
// caches into a mesh without any real transport.
package membus

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sambigeara/ddsgraph/pkg/msg"
)

const defaultQueueSize = 256

var (
	ErrBusClosed = errors.New("bus closed")
	ErrQueueFull = errors.New("subscriber queue full")
)

// Bus fans every published announcement out to all subscribers,
// passing each through the codec so the wire path is exercised.
type Bus struct {
	codec  msg.Codec
	subs   []*Subscription
	mu     sync.RWMutex
	closed atomic.Bool
}

type Subscription struct {
	ch   chan msg.ParticipantEntitiesInfo
	name string
}

func New(codec msg.Codec) *Bus {
	return &Bus{codec: codec}
}

// Subscribe registers a named subscriber. The name only shows up in
// errors.
func (b *Bus) Subscribe(name string) (*Subscription, error) {
	if b.closed.Load() {
		return nil, ErrBusClosed
	}

	sub := &Subscription{
		name: name,
		ch:   make(chan msg.ParticipantEntitiesInfo, defaultQueueSize),
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return sub, nil
}

// Publish encodes the announcement, then delivers a decoded copy to
// every subscriber. Delivery to a subscriber with a full queue fails
// the publish; announcements carry full state, so a slow subscriber
// must not silently miss one.
func (b *Bus) Publish(info msg.ParticipantEntitiesInfo) error {
	if b.closed.Load() {
		return ErrBusClosed
	}

	data, err := b.codec.Encode(info)
	if err != nil {
		return fmt.Errorf("encode announcement: %w", err)
	}

	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, sub := range subs {
		decoded, err := b.codec.Decode(data)
		if err != nil {
			return fmt.Errorf("decode announcement: %w", err)
		}
		select {
		case sub.ch <- decoded:
		default:
			return fmt.Errorf("%w: %s", ErrQueueFull, sub.name)
		}
	}
	return nil
}

// Close tears the bus down and closes every subscriber channel.
func (b *Bus) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}

	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		close(sub.ch)
	}
}

// C yields decoded announcements in publish order. The channel closes
// when the bus closes.
func (s *Subscription) C() <-chan msg.ParticipantEntitiesInfo {
	return s.ch
}
