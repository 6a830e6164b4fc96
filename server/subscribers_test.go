package server

import (
	"testing"

	"vox/protocol"
)

func TestRegistryBroadcastReachesEveryQueue(t *testing.T) {
	r := &registry{}
	queues := map[string]chan []byte{
		"a": make(chan []byte, 4),
		"b": make(chan []byte, 4),
	}
	for id, ch := range queues {
		r.Add(id, ch)
	}

	r.Broadcast(protocol.NewStateEvent(protocol.StateRecording, true, 10))

	for id, ch := range queues {
		select {
		case payload := <-ch:
			msg, err := protocol.DecodeServer(payload)
			if err != nil {
				t.Fatalf("%s: decode: %v", id, err)
			}
			ev, ok := msg.(protocol.StateEvent)
			if !ok {
				t.Fatalf("%s: got %T, want StateEvent", id, msg)
			}
			if ev.State != protocol.StateRecording || !ev.IdleHot || ev.TS != 10 {
				t.Errorf("%s: event = %+v", id, ev)
			}
		default:
			t.Fatalf("%s: no payload queued", id)
		}
	}
	if got := r.Count(); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
}

func TestRegistryDropsStalledSubscriber(t *testing.T) {
	r := &registry{}
	stalled := make(chan []byte, 1)
	healthy := make(chan []byte, 4)
	r.Add("stalled", stalled)
	r.Add("healthy", healthy)

	// The first broadcast fills the depth-1 queue; the second finds it
	// still full and drops that subscriber.
	r.Broadcast(protocol.NewLevelEvent(0.1, 1))
	r.Broadcast(protocol.NewLevelEvent(0.2, 2))

	if got := r.Count(); got != 1 {
		t.Fatalf("Count after drop = %d, want 1", got)
	}
	if got := len(healthy); got != 2 {
		t.Errorf("healthy queue holds %d event(s), want 2", got)
	}

	r.Broadcast(protocol.NewLevelEvent(0.3, 3))
	if got := len(stalled); got != 1 {
		t.Errorf("dropped subscriber received %d event(s), want only the pre-drop one", got)
	}
}

func TestRegistryRemove(t *testing.T) {
	r := &registry{}
	ch := make(chan []byte, 1)
	r.Add("watch", ch)
	r.Remove("watch")

	if got := r.Count(); got != 0 {
		t.Fatalf("Count after Remove = %d, want 0", got)
	}
	r.Broadcast(protocol.NewLevelEvent(0.5, 1))
	if got := len(ch); got != 0 {
		t.Errorf("removed subscriber still received %d event(s)", got)
	}
}
