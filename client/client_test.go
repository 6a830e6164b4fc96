package client

import (
	"bufio"
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vox/protocol"
)

// startFakeService listens on a temp socket and hands each connection
// to handle.
func startFakeService(t *testing.T, handle func(net.Conn)) (string, net.Listener) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vox.sock")
	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go handle(conn)
		}
	}()
	return path, l
}

func writeMessage(t *testing.T, conn net.Conn, m any) {
	t.Helper()
	payload, err := protocol.Encode(m)
	if err != nil {
		t.Errorf("encode: %v", err)
		return
	}
	conn.Write(payload)
}

func TestDialMissingSocket(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "vox.sock"))
	_, err := c.Request(protocol.NewStatus())
	if err == nil {
		t.Fatal("expected error for missing socket")
	}
	if !strings.Contains(err.Error(), "socket not found") {
		t.Errorf("error %q should mention the missing socket", err)
	}
}

func TestDialRefusedMapsToNotRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vox.sock")
	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	// Keep the socket file around after close so the dial is refused
	// rather than failing on a missing path.
	l.(*net.UnixListener).SetUnlinkOnClose(false)
	l.Close()

	_, err = New(path).Request(protocol.NewStatus())
	if err == nil {
		t.Fatal("expected error for dead socket")
	}
	if !strings.Contains(err.Error(), "not running") {
		t.Errorf("error %q should say the service is not running", err)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	path, _ := startFakeService(t, func(conn net.Conn) {
		defer conn.Close()
		line, err := bufio.NewReader(conn).ReadBytes('\n')
		if err != nil {
			t.Errorf("service read: %v", err)
			return
		}
		req, err := protocol.DecodeRequest(line)
		if err != nil {
			t.Errorf("service decode: %v", err)
			return
		}
		writeMessage(t, conn, protocol.Status{
			Type:           protocol.TypeStatus,
			ID:             req.ID,
			ServiceRunning: true,
			ModelLoaded:    true,
			ModelPath:      "/models/whisper-base.bin",
			UptimeSeconds:  42,
		})
	})

	req := protocol.NewStatus()
	resp, err := New(path).Request(req)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	status, ok := resp.(protocol.Status)
	if !ok {
		t.Fatalf("response type = %T, want Status", resp)
	}
	if status.ID != req.ID {
		t.Errorf("response id = %s, want %s", status.ID, req.ID)
	}
	if !status.ServiceRunning || status.ModelPath != "/models/whisper-base.bin" {
		t.Errorf("status = %+v", status)
	}
}

func TestRequestNoResponse(t *testing.T) {
	path, _ := startFakeService(t, func(conn net.Conn) {
		conn.Close()
	})

	_, err := New(path).Request(protocol.NewStatus())
	if err == nil || !strings.Contains(err.Error(), "no response") {
		t.Errorf("err = %v, want no-response error", err)
	}
}

func TestRequestRejectsEventReply(t *testing.T) {
	path, _ := startFakeService(t, func(conn net.Conn) {
		defer conn.Close()
		bufio.NewReader(conn).ReadBytes('\n')
		writeMessage(t, conn, protocol.NewLevelEvent(0.5, 10))
	})

	_, err := New(path).Request(protocol.NewStatus())
	if err == nil || !strings.Contains(err.Error(), "unexpected message") {
		t.Errorf("err = %v, want unexpected-message error", err)
	}
}

func TestSubscribeStreamsEvents(t *testing.T) {
	path, _ := startFakeService(t, func(conn net.Conn) {
		defer conn.Close()
		line, err := bufio.NewReader(conn).ReadBytes('\n')
		if err != nil {
			t.Errorf("service read: %v", err)
			return
		}
		req, err := protocol.DecodeRequest(line)
		if err != nil || req.Type != protocol.TypeSubscribe {
			t.Errorf("service got %v (err %v), want subscribe", req, err)
			return
		}
		writeMessage(t, conn, protocol.NewSubscribed(req.ID))
		writeMessage(t, conn, protocol.NewStateEvent(protocol.StateRecording, false, 100))
		writeMessage(t, conn, protocol.NewLevelEvent(0.25, 150))
	})

	var events []protocol.Event
	err := New(path).Subscribe(context.Background(), func(ev protocol.Event) {
		events = append(events, ev)
	})
	if err == nil || !strings.Contains(err.Error(), "subscription closed") {
		t.Fatalf("Subscribe err = %v, want closed-by-server", err)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (ack must not be delivered)", len(events))
	}
	state, ok := events[0].(protocol.StateEvent)
	if !ok || state.State != protocol.StateRecording {
		t.Errorf("first event = %#v, want recording state", events[0])
	}
	level, ok := events[1].(protocol.LevelEvent)
	if !ok || level.V != 0.25 {
		t.Errorf("second event = %#v, want level 0.25", events[1])
	}
}

func TestSubscribeStopsOnContextCancel(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	path, _ := startFakeService(t, func(conn net.Conn) {
		bufio.NewReader(conn).ReadBytes('\n')
		<-block
		conn.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := New(path).Subscribe(ctx, func(protocol.Event) {})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Subscribe err = %v, want context.Canceled", err)
	}
}

func TestRunning(t *testing.T) {
	path, l := startFakeService(t, func(conn net.Conn) { conn.Close() })
	c := New(path)
	if !c.Running() {
		t.Error("Running() = false with live listener")
	}
	l.Close()
	if c.Running() {
		t.Error("Running() = true after listener closed")
	}
}
