package server

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"sync"
	"sync/atomic"

	"vox/log"
	"vox/protocol"
)

// outboundDepth is the per-connection write queue. Spectrum events
// during recording are the densest traffic; a subscriber that falls this
// far behind is dropped by the registry instead of slowing everyone.
const outboundDepth = 64

// maxRequestLine bounds a single request line.
const maxRequestLine = 64 * 1024

// handle runs one connection: a reader that decodes and dispatches
// requests, and a writer that serializes responses and broadcast events
// onto the socket.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	s.session.Touch()

	out := make(chan []byte, outboundDepth)
	done := make(chan struct{})

	var writers sync.WaitGroup
	writers.Add(1)
	go func() {
		defer writers.Done()
		for {
			select {
			case payload := <-out:
				if _, err := conn.Write(payload); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	var subID string
	defer func() {
		if subID != "" {
			s.subs.Remove(subID)
			log.Subscribers(s.subs.Count())
		}
		close(done)
		conn.Close()
		writers.Wait()
	}()

	// send queues a message for the writer. It gives up when the
	// connection is shutting down, so cycle goroutines never leak on a
	// vanished client.
	send := func(m any) {
		payload, err := protocol.Encode(m)
		if err != nil {
			log.Errorf("encode response: %v", err)
			return
		}
		select {
		case out <- payload:
		case <-done:
		}
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxRequestLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		req, err := protocol.DecodeRequest(line)
		if err != nil {
			// Protocol errors end this connection only.
			log.Warnf("bad request: %v", err)
			return
		}

		switch req.Type {
		case protocol.TypeStatus:
			send(s.statusResponse(req.ID))

		case protocol.TypeSubscribe:
			if subID == "" {
				subID = req.ID.String()
				s.subs.Add(subID, out)
				log.Subscribers(s.subs.Count())
			}
			s.broadcastStatus()
			send(protocol.NewSubscribed(req.ID))

		case protocol.TypeStop:
			if s.session.RequestStop() {
				send(s.statusResponse(req.ID))
			} else {
				send(protocol.NewError(req.ID, "no recording in progress"))
			}

		case protocol.TypeTranscribe:
			stop := new(atomic.Bool)
			if err := s.session.BeginCycle(stop); err != nil {
				send(protocol.NewError(req.ID, err.Error()))
				continue
			}
			// The cycle runs in its own goroutine so this reader keeps
			// serving stop and status requests meanwhile.
			go func(req protocol.Request) {
				send(s.runCycle(ctx, req, stop))
			}(req)
		}
	}
}
