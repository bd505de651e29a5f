// Package server owns the TCP lifecycle: one goroutine per accepted
// connection, shared state reached only through the injected services,
// graceful drain on shutdown.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"chatd/protocol"
	"chatd/runtime"
	"chatd/services"

	"github.com/google/uuid"
)

type Config struct {
	Addr          string
	ReadTimeout   time.Duration // also the idle mailbox poll interval
	WriteTimeout  time.Duration
	ShutdownGrace time.Duration
}

type Server struct {
	log      *slog.Logger
	cfg      Config
	auth     services.IAuthService
	chat     services.IChatService
	registry *runtime.SessionRegistry

	listener net.Listener

	mu       sync.Mutex
	handlers map[uuid.UUID]*handler
	wg       sync.WaitGroup

	// Closed-handler notifications; the reconciler worker listens here.
	exited chan struct{}
}

func New(
	log *slog.Logger,
	cfg Config,
	auth services.IAuthService,
	chat services.IChatService,
	registry *runtime.SessionRegistry,
) *Server {
	return &Server{
		log:      log,
		cfg:      cfg,
		auth:     auth,
		chat:     chat,
		registry: registry,
		handlers: make(map[uuid.UUID]*handler),
		exited:   make(chan struct{}, 1),
	}
}

// HandlerExited is the reconciliation trigger: one tick per terminated
// connection handler, coalesced.
func (s *Server) HandlerExited() <-chan struct{} {
	return s.exited
}

// Listen binds the configured address. A bind failure is fatal to the
// whole process; the caller turns it into a non-zero exit.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = listener
	s.log.Info("Chat server listening", "addr", listener.Addr().String())
	return nil
}

// Addr returns the bound address. Only valid after Listen.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve accepts until ctx is canceled, then drains: no new connections,
// a terminal notice to every live client, and a bounded wait for the
// handlers to finish. Per-connection failures never stop the loop.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
				break
			}
			s.log.Error("Failed to accept connection", "err", err)
			continue
		}
		s.startHandler(ctx, conn)
	}

	s.shutdownHandlers()
	return nil
}

func (s *Server) startHandler(ctx context.Context, conn net.Conn) {
	h := newHandler(s.log, conn, s.auth, s.chat, s.cfg.ReadTimeout, s.cfg.WriteTimeout)

	s.mu.Lock()
	s.handlers[h.id] = h
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		h.run(ctx)

		s.mu.Lock()
		delete(s.handlers, h.id)
		s.mu.Unlock()

		select {
		case s.exited <- struct{}{}:
		default:
		}
	}()
}

// shutdownHandlers delivers the terminal notice, closes every live
// connection, and waits up to the grace period for handlers to exit.
// In-flight commands either complete or are cut off at a frame boundary;
// shared state is only ever mutated in single atomic steps.
func (s *Server) shutdownHandlers() {
	s.mu.Lock()
	live := make([]*handler, 0, len(s.handlers))
	for _, h := range s.handlers {
		live = append(live, h)
	}
	s.mu.Unlock()

	if len(live) > 0 {
		s.log.Info("Notifying connected clients", "count", len(live))
	}
	for _, h := range live {
		h.writeFrame(protocol.Response(protocol.StatusShutdown))
		_ = h.conn.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("All connection handlers finished")
	case <-time.After(s.cfg.ShutdownGrace):
		s.log.Warn("Shutdown grace period elapsed, abandoning stragglers")
	}
}
