package server

import (
	"sync"

	"vox/log"
	"vox/protocol"
)

// registry fans events out to subscriber outbound queues. Sends never
// block: a subscriber whose queue is full or gone is dropped on the
// broadcast that notices, so a stalled overlay cannot stall the
// recording loop.
type registry struct {
	mu   sync.Mutex
	subs []subscriber
}

type subscriber struct {
	id  string
	out chan<- []byte
}

func (r *registry) Add(id string, out chan<- []byte) {
	r.mu.Lock()
	r.subs = append(r.subs, subscriber{id: id, out: out})
	r.mu.Unlock()
}

func (r *registry) Remove(id string) {
	r.mu.Lock()
	kept := r.subs[:0]
	for _, sub := range r.subs {
		if sub.id != id {
			kept = append(kept, sub)
		}
	}
	r.subs = kept
	r.mu.Unlock()
}

func (r *registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Broadcast encodes ev once and queues it for every subscriber.
func (r *registry) Broadcast(ev protocol.Event) {
	payload, err := protocol.Encode(ev)
	if err != nil {
		log.Errorf("encode event: %v", err)
		return
	}

	r.mu.Lock()
	kept := r.subs[:0]
	for _, sub := range r.subs {
		select {
		case sub.out <- payload:
			kept = append(kept, sub)
		default:
		}
	}
	dropped := len(r.subs) - len(kept)
	r.subs = kept
	count := len(kept)
	r.mu.Unlock()

	if dropped > 0 {
		log.Warnf("dropped %d stalled subscriber(s)", dropped)
		log.Subscribers(count)
	}
}
