// Package client implements the CLI side of the service socket: one
// short-lived connection per request, plus a streaming subscription for
// the watch mode.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"syscall"
	"time"

	"vox/protocol"
)

// requestTimeout bounds a request round trip. Transcription of a long
// recording can take a while, so this is generous.
const requestTimeout = 120 * time.Second

// maxEventLine caps a single subscription line. Spectrum frames are the
// largest events and stay well under this.
const maxEventLine = 1024 * 1024

// Client talks to a running service over its Unix socket.
type Client struct {
	socketPath string
}

func New(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

func (c *Client) dial() (net.Conn, error) {
	conn, err := net.Dial("unix", c.socketPath)
	if err == nil {
		return conn, nil
	}
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return nil, errors.New("service is not running, start it with 'vox -serve'")
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("service socket not found at %s, start it with 'vox -serve'", c.socketPath)
	}
	return nil, fmt.Errorf("connect to service at %s: %w", c.socketPath, err)
}

// Running reports whether something accepts connections on the socket.
func (c *Client) Running() bool {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Request sends one request and waits for the matching response.
func (c *Client) Request(req protocol.Request) (protocol.Response, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	payload, err := protocol.Encode(req)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(requestTimeout))
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, fmt.Errorf("request timed out after %s", requestTimeout)
		}
		return nil, errors.New("no response from server")
	}

	msg, err := protocol.DecodeServer(line)
	if err != nil {
		return nil, err
	}
	resp, ok := msg.(protocol.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected message %T from server", msg)
	}
	return resp, nil
}

// Subscribe registers for events and hands each one to fn until ctx is
// canceled or the service closes the connection.
func (c *Client) Subscribe(ctx context.Context, fn func(protocol.Event)) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	// Closing the connection is the only way to unblock the read loop.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	payload, err := protocol.Encode(protocol.NewSubscribe())
	if err != nil {
		return err
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)
	for scanner.Scan() {
		msg, err := protocol.DecodeServer(scanner.Bytes())
		if err != nil {
			// Tolerate unknown message kinds from a newer service.
			if errors.Is(err, protocol.ErrUnknownType) {
				continue
			}
			return err
		}
		if ev, ok := msg.(protocol.Event); ok {
			fn(ev)
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("subscription closed: %w", err)
	}
	return errors.New("subscription closed by server")
}
