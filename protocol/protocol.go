// Package protocol defines the NDJSON wire messages exchanged over the
// service socket: requests tagged by "type", responses echoing the request
// id, and broadcast events tagged by "event" and versioned via "ver".
package protocol

import "github.com/google/uuid"

// State is the session lifecycle state as it appears on the wire.
type State string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateError        State = "error"
)

func (s State) Valid() bool {
	switch s {
	case StateIdle, StateRecording, StateTranscribing, StateError:
		return true
	}
	return false
}

// Display returns the human-readable form used by front ends.
func (s State) Display() string {
	switch s {
	case StateIdle:
		return "Ready"
	case StateRecording:
		return "Recording"
	case StateTranscribing:
		return "Transcribing"
	case StateError:
		return "Error"
	}
	return string(s)
}

// Request tags.
const (
	TypeTranscribe = "transcribe"
	TypeStatus     = "status"
	TypeSubscribe  = "subscribe"
	TypeStop       = "stop"
)

// Response tags.
const (
	TypeResult     = "result"
	TypeError      = "error"
	TypeSubscribed = "subscribed"
	// status responses reuse TypeStatus
)

// Event tags.
const (
	EventState    = "state"
	EventLevel    = "level"
	EventSpectrum = "spectrum"
	EventStatus   = "status"
)

// Version stamped on outgoing events. Decoders treat a missing ver as 1.
const EventVersion = 1

// Defaults applied to transcribe requests with absent parameters.
const (
	DefaultMaxDuration     = 30
	DefaultSilenceDuration = 2
	DefaultSampleRate      = 16000
)

// Request is a client-to-server message. The transcribe parameters are
// meaningful only when Type is TypeTranscribe.
type Request struct {
	Type            string    `json:"type"`
	ID              uuid.UUID `json:"id"`
	MaxDuration     int       `json:"max_duration,omitempty"`
	SilenceDuration int       `json:"silence_duration,omitempty"`
	SampleRate      int       `json:"sample_rate,omitempty"`
}

func NewTranscribe(maxDuration, silenceDuration, sampleRate int) Request {
	return Request{
		Type:            TypeTranscribe,
		ID:              uuid.New(),
		MaxDuration:     maxDuration,
		SilenceDuration: silenceDuration,
		SampleRate:      sampleRate,
	}
}

func NewStatus() Request {
	return Request{Type: TypeStatus, ID: uuid.New()}
}

func NewSubscribe() Request {
	return Request{Type: TypeSubscribe, ID: uuid.New()}
}

func NewStop() Request {
	return Request{Type: TypeStop, ID: uuid.New()}
}

// Response is implemented by the server-to-client reply messages.
type Response interface {
	response()
}

// Event is implemented by the broadcast messages sent to subscribers.
type Event interface {
	event()
}

// Result reports a completed transcription cycle. Duration is recording
// seconds; Model is the catalog id of the model that produced the text.
type Result struct {
	Type     string    `json:"type"`
	ID       uuid.UUID `json:"id"`
	Text     string    `json:"text"`
	Duration float64   `json:"duration"`
	Model    string    `json:"model"`
}

func NewResult(id uuid.UUID, text string, duration float64, model string) Result {
	return Result{Type: TypeResult, ID: id, Text: text, Duration: duration, Model: model}
}

type Error struct {
	Type  string    `json:"type"`
	ID    uuid.UUID `json:"id"`
	Error string    `json:"error"`
}

func NewError(id uuid.UUID, msg string) Error {
	return Error{Type: TypeError, ID: id, Error: msg}
}

type Status struct {
	Type                   string    `json:"type"`
	ID                     uuid.UUID `json:"id"`
	ServiceRunning         bool      `json:"service_running"`
	ModelLoaded            bool      `json:"model_loaded"`
	ModelPath              string    `json:"model_path"`
	AudioDevice            string    `json:"audio_device"`
	UptimeSeconds          uint64    `json:"uptime_seconds"`
	LastActivitySecondsAgo uint64    `json:"last_activity_seconds_ago"`
}

type Subscribed struct {
	Type string    `json:"type"`
	ID   uuid.UUID `json:"id"`
}

func NewSubscribed(id uuid.UUID) Subscribed {
	return Subscribed{Type: TypeSubscribed, ID: id}
}

func (Result) response()     {}
func (Error) response()      {}
func (Status) response()     {}
func (Subscribed) response() {}

// StateEvent announces a session state change. TS is milliseconds since
// server start (monotonic), so subscribers can order events without
// trusting wall clocks.
type StateEvent struct {
	Event   string `json:"event"`
	State   State  `json:"state"`
	IdleHot bool   `json:"idle_hot"`
	TS      uint64 `json:"ts"`
	Ver     int    `json:"ver"`
}

func NewStateEvent(state State, idleHot bool, ts uint64) StateEvent {
	return StateEvent{Event: EventState, State: state, IdleHot: idleHot, TS: ts, Ver: EventVersion}
}

// LevelEvent carries the current input level in [0,1].
type LevelEvent struct {
	Event string  `json:"event"`
	V     float64 `json:"v"`
	TS    uint64  `json:"ts"`
	Ver   int     `json:"ver"`
}

func NewLevelEvent(v float64, ts uint64) LevelEvent {
	return LevelEvent{Event: EventLevel, V: v, TS: ts, Ver: EventVersion}
}

// SpectrumEvent carries one frame of normalized band magnitudes.
type SpectrumEvent struct {
	Event string    `json:"event"`
	Bands []float32 `json:"bands"`
	TS    uint64    `json:"ts"`
	Ver   int       `json:"ver"`
}

func NewSpectrumEvent(bands []float32, ts uint64) SpectrumEvent {
	return SpectrumEvent{Event: EventSpectrum, Bands: bands, TS: ts, Ver: EventVersion}
}

// StatusEvent is the combined heartbeat event: state plus the latest level.
type StatusEvent struct {
	Event   string  `json:"event"`
	State   State   `json:"state"`
	Level   float64 `json:"level"`
	IdleHot bool    `json:"idle_hot"`
	TS      uint64  `json:"ts"`
	Ver     int     `json:"ver"`
}

func NewStatusEvent(state State, level float64, idleHot bool, ts uint64) StatusEvent {
	return StatusEvent{Event: EventStatus, State: state, Level: level, IdleHot: idleHot, TS: ts, Ver: EventVersion}
}

func (StateEvent) event()    {}
func (LevelEvent) event()    {}
func (SpectrumEvent) event() {}
func (StatusEvent) event()   {}
