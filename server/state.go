package server

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"vox/protocol"
)

// ErrBusy rejects a transcribe request while a cycle is already running.
var ErrBusy = errors.New("a recording is already in progress")

// session is the single owner of the mutable service state: the
// lifecycle state, the latest input level, the activity clocks, and the
// active cycle's stop flag. Connection handlers, the heartbeat, and the
// idle monitor all go through these methods; none of them holds the
// lock across anything slower than a field access.
type session struct {
	mu           sync.Mutex
	state        protocol.State
	level        float64
	start        time.Time
	lastActivity time.Time
	stop         *atomic.Bool // nil outside a cycle

	now func() time.Time
}

func newSession() *session {
	s := &session{state: protocol.StateIdle, now: time.Now}
	s.start = s.now()
	s.lastActivity = s.start
	return s
}

// BeginCycle admits one transcribe request. Idle and Error both accept;
// Recording and Transcribing reject, keeping a single cycle in flight.
func (s *session) BeginCycle(stop *atomic.Bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == protocol.StateRecording || s.state == protocol.StateTranscribing {
		return ErrBusy
	}
	s.state = protocol.StateRecording
	s.level = 0
	s.stop = stop
	s.lastActivity = s.now()
	return nil
}

// EndCycle records the cycle outcome. An Error outcome sticks until the
// next BeginCycle so clients can surface the failure.
func (s *session) EndCycle(st protocol.State) {
	s.mu.Lock()
	s.state = st
	s.level = 0
	s.stop = nil
	s.lastActivity = s.now()
	s.mu.Unlock()
}

// SetState moves through the mid-cycle states. Leaving Recording drops
// the level so heartbeats do not repeat a stale value.
func (s *session) SetState(st protocol.State) {
	s.mu.Lock()
	s.state = st
	if st != protocol.StateRecording {
		s.level = 0
	}
	s.mu.Unlock()
}

func (s *session) SetLevel(v float64) {
	s.mu.Lock()
	if s.state == protocol.StateRecording {
		s.level = v
	}
	s.mu.Unlock()
}

// RequestStop trips the active cycle's stop flag. It reports whether a
// cycle was there to stop.
func (s *session) RequestStop() bool {
	s.mu.Lock()
	stop := s.stop
	s.mu.Unlock()
	if stop == nil {
		return false
	}
	stop.Store(true)
	return true
}

// Snapshot returns the state and level for one broadcast.
func (s *session) Snapshot() (protocol.State, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.level
}

func (s *session) State() protocol.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Touch refreshes the last-activity clock.
func (s *session) Touch() {
	s.mu.Lock()
	s.lastActivity = s.now()
	s.mu.Unlock()
}

// ElapsedMS is the event timestamp: milliseconds since server start.
func (s *session) ElapsedMS() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(s.now().Sub(s.start).Milliseconds())
}

func (s *session) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.start)
}

func (s *session) SinceActivity() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.lastActivity)
}
