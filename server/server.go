// Package server implements the dictation service behind the Unix
// socket: connection handling, the session state machine, subscriber
// fan-out, and the recording and transcription cycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"vox/audio"
	"vox/config"
	"vox/engine"
	"vox/log"
	"vox/model"
	"vox/protocol"
)

const (
	heartbeatInterval = 2 * time.Second
	idlePollInterval  = 60 * time.Second
)

// Options wires the server to its collaborators. Tests substitute fake
// audio contexts and engine factories here.
type Options struct {
	Config        config.Config
	Audio         audio.Context
	Store         *model.Manager
	Engines       *engine.Cache
	RecordingsDir string
}

type Server struct {
	cfg     config.Config
	audio   audio.Context
	store   *model.Manager
	engines *engine.Cache
	recDir  string

	socketPath string
	listener   net.Listener

	session *session
	subs    *registry

	heartbeatEvery time.Duration
	idlePollEvery  time.Duration

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
	connWG sync.WaitGroup
}

func New(opts Options) (*Server, error) {
	socketPath, err := config.ExpandSocketPath(opts.Config.Service.SocketPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.RecordingsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create recordings dir: %w", err)
	}
	return &Server{
		cfg:            opts.Config,
		audio:          opts.Audio,
		store:          opts.Store,
		engines:        opts.Engines,
		recDir:         opts.RecordingsDir,
		socketPath:     socketPath,
		session:        newSession(),
		subs:           &registry{},
		heartbeatEvery: heartbeatInterval,
		idlePollEvery:  idlePollInterval,
		conns:          make(map[net.Conn]struct{}),
	}, nil
}

// SocketPath reports the expanded socket location.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Run serves until ctx is canceled, then closes every connection and
// removes the socket file.
func (s *Server) Run(ctx context.Context) error {
	if err := s.listen(); err != nil {
		return err
	}
	log.ServerStart(s.socketPath, s.cfg.Service.Model, s.cfg.Service.IdleTimeout)

	s.preload(ctx)

	bg, cancel := context.WithCancel(ctx)
	var tasks sync.WaitGroup
	tasks.Add(2)
	go func() {
		defer tasks.Done()
		s.heartbeat(bg)
	}()
	go func() {
		defer tasks.Done()
		s.idleMonitor(bg)
	}()
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	err := s.acceptLoop(ctx)

	cancel()
	tasks.Wait()
	s.session.RequestStop()
	s.closeConns()
	s.connWG.Wait()
	s.listener.Close()
	os.Remove(s.socketPath)
	log.ServerStop(s.session.Uptime().Seconds())
	return err
}

// listen binds the socket. A live socket at the path means another
// instance owns it; a dead file is removed first. The socket ends up
// owner-only.
func (s *Server) listen() error {
	if conn, err := net.Dial("unix", s.socketPath); err == nil {
		conn.Close()
		return fmt.Errorf("service already running at %s, stop it before starting another", s.socketPath)
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	l, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("bind socket %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		l.Close()
		return fmt.Errorf("set socket permissions: %w", err)
	}
	s.listener = l
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Errorf("accept: %v", err)
			continue
		}
		s.track(conn)
		s.connWG.Add(1)
		go func() {
			defer s.connWG.Done()
			defer s.untrack(conn)
			s.handle(ctx, conn)
		}()
	}
}

// preload warms the configured model so the first request does not pay
// the load time. A missing model is fine; the cycle loads lazily once
// it exists.
func (s *Server) preload(ctx context.Context) {
	if _, err := s.engines.EnsureLoaded(ctx, s.cfg.Service.Model); err != nil {
		log.Warnf("preload %s: %v", s.cfg.Service.Model, err)
	}
}

func (s *Server) heartbeat(ctx context.Context) {
	t := time.NewTicker(s.heartbeatEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.broadcastStatus()
		}
	}
}

func (s *Server) idleMonitor(ctx context.Context) {
	t := time.NewTicker(s.idlePollEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.maybeUnload()
		}
	}
}

func (s *Server) maybeUnload() {
	timeout := time.Duration(s.cfg.Service.IdleTimeout) * time.Second
	if timeout == 0 {
		return
	}
	if idle, ok := s.engines.IdleFor(); ok && idle > timeout {
		s.engines.Unload()
	}
}

func (s *Server) broadcastStatus() {
	st, level := s.session.Snapshot()
	s.subs.Broadcast(protocol.NewStatusEvent(st, level, s.idleHot(), s.session.ElapsedMS()))
}

func (s *Server) idleHot() bool {
	_, _, ok := s.engines.Current()
	return ok
}

func (s *Server) statusResponse(id uuid.UUID) protocol.Status {
	_, path, loaded := s.engines.Current()
	if path == "" {
		path = "unknown"
	}
	device := s.cfg.Audio.Device
	if device == "" {
		device = "default"
	}
	return protocol.Status{
		Type:                   protocol.TypeStatus,
		ID:                     id,
		ServiceRunning:         true,
		ModelLoaded:            loaded,
		ModelPath:              path,
		AudioDevice:            device,
		UptimeSeconds:          uint64(s.session.Uptime().Seconds()),
		LastActivitySecondsAgo: uint64(s.session.SinceActivity().Seconds()),
	}
}

func (s *Server) track(conn net.Conn) {
	s.connMu.Lock()
	s.conns[conn] = struct{}{}
	s.connMu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.connMu.Lock()
	delete(s.conns, conn)
	s.connMu.Unlock()
}

func (s *Server) closeConns() {
	s.connMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connMu.Unlock()
}
