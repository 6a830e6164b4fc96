package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType marks a line whose type or event tag is not part of the
// protocol. Callers that skip unknown messages should match with errors.Is.
var ErrUnknownType = errors.New("unknown message type")

// Encode marshals a request, response, or event as one NDJSON line,
// trailing newline included.
func Encode(m any) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return append(b, '\n'), nil
}

// DecodeRequest parses one line into a Request, applying the transcribe
// parameter defaults for fields the client omitted.
func DecodeRequest(line []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(bytes.TrimSpace(line), &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	switch req.Type {
	case TypeTranscribe:
		if req.MaxDuration == 0 {
			req.MaxDuration = DefaultMaxDuration
		}
		if req.SilenceDuration == 0 {
			req.SilenceDuration = DefaultSilenceDuration
		}
		if req.SampleRate == 0 {
			req.SampleRate = DefaultSampleRate
		}
	case TypeStatus, TypeSubscribe, TypeStop:
	default:
		return Request{}, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
	}
	return req, nil
}

// DecodeServer parses one server-to-client line into its concrete message
// type: one of Result, Error, Status, Subscribed, StateEvent, LevelEvent,
// SpectrumEvent, or StatusEvent. Callers dispatch with a type switch.
func DecodeServer(line []byte) (any, error) {
	line = bytes.TrimSpace(line)

	var probe struct {
		Type  string `json:"type"`
		Event string `json:"event"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	if probe.Event != "" {
		return decodeEvent(probe.Event, line)
	}

	switch probe.Type {
	case TypeResult:
		var m Result
		if err := unmarshal(line, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeError:
		var m Error
		if err := unmarshal(line, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeStatus:
		var m Status
		if err := unmarshal(line, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeSubscribed:
		var m Subscribed
		if err := unmarshal(line, &m); err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, probe.Type)
}

func decodeEvent(tag string, line []byte) (any, error) {
	switch tag {
	case EventState:
		var m StateEvent
		if err := unmarshal(line, &m); err != nil {
			return nil, err
		}
		if m.Ver == 0 {
			m.Ver = EventVersion
		}
		return m, nil
	case EventLevel:
		var m LevelEvent
		if err := unmarshal(line, &m); err != nil {
			return nil, err
		}
		if m.Ver == 0 {
			m.Ver = EventVersion
		}
		return m, nil
	case EventSpectrum:
		var m SpectrumEvent
		if err := unmarshal(line, &m); err != nil {
			return nil, err
		}
		if m.Ver == 0 {
			m.Ver = EventVersion
		}
		return m, nil
	case EventStatus:
		var m StatusEvent
		if err := unmarshal(line, &m); err != nil {
			return nil, err
		}
		if m.Ver == 0 {
			m.Ver = EventVersion
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: event %q", ErrUnknownType, tag)
}

func unmarshal(line []byte, v any) error {
	if err := json.Unmarshal(line, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}
