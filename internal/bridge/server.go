package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"padbridge/internal/command"
)

// ErrBind is returned when the listener cannot bind its address.
// It is fatal, unlike per-connection errors which are only logged.
var ErrBind = errors.New("failed to bind listener")

const acceptRetryDelay = 50 * time.Millisecond

// server struct and methods
type TCPServer struct {
	Addr        string
	Manager     *ConnectionManager
	interpreter *command.Interpreter
	opts        ConnOptions
	logger      *slog.Logger

	mu       sync.Mutex
	listener net.Listener

	// cancelled on Stop so an in-flight strategem does not hold up shutdown
	ctx    context.Context
	cancel context.CancelFunc

	quitChan chan struct{} // closed on Stop
	stopOnce sync.Once
	wg       sync.WaitGroup // one per connection handler
}

// constructor for Server
func NewServer(addr string, interpreter *command.Interpreter, opts ConnOptions, logger *slog.Logger) *TCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TCPServer{
		Addr:        addr,
		Manager:     NewConnectionManager(logger),
		interpreter: interpreter,
		opts:        opts,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		quitChan:    make(chan struct{}),
	}
}

// Listen binds the server address. Failures wrap ErrBind.
func (s *TCPServer) Listen() error {
	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("%w on %s: %v", ErrBind, s.Addr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.quitChan:
		listener.Close()
		return fmt.Errorf("%w on %s: server stopped", ErrBind, s.Addr)
	default:
	}
	s.listener = listener
	s.logger.Info("bridge_listening",
		"addr", listener.Addr().String(),
	)
	return nil
}

// Serve accepts connections until Stop is called. Each connection runs in its
// own goroutine; the loop never waits for a handler.
func (s *TCPServer) Serve() error {
	s.mu.Lock()
	listener := s.listener
	if listener == nil {
		s.mu.Unlock()
		return errors.New("serve called before listen")
	}
	select {
	case <-s.quitChan:
		s.mu.Unlock()
		return nil
	default:
	}
	// the accept loop counts too, so handler Adds never race Stop's Wait.
	// Stop closes quitChan under s.mu, so this Add is either seen by Wait or skipped.
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.quitChan:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("accept_failed",
				"error", err.Error(),
			)
			time.Sleep(acceptRetryDelay)
			continue
		}

		s.wg.Add(1)
		go func(conn net.Conn) {
			defer s.wg.Done()
			s.handleConnection(conn)
		}(conn)
	}
}

// Start binds and serves. It only returns on bind failure or after Stop.
func (s *TCPServer) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// handle connections/lifecycle of single client connection
func (s *TCPServer) handleConnection(conn net.Conn) {
	client := NewClientConnection(conn, s.Manager, s.interpreter, s.opts)
	if !s.Manager.AddConnection(client) {
		conn.Close()
		return
	}
	defer s.Manager.RemoveConnection(client)
	client.Listen(s.ctx)
}

// ListenAddr returns the bound address, nil before Listen
func (s *TCPServer) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ConnectionCount returns the number of live client connections
func (s *TCPServer) ConnectionCount() int {
	return s.Manager.Count()
}

// ModifierDown reports the shared Left Ctrl state
func (s *TCPServer) ModifierDown() bool {
	return s.interpreter.Keyboard().ModifierDown()
}

// Stop closes the listener and every connection, waits for handlers to exit,
// then releases every key still held, modifier included.
// There is no drain and nothing is sent to clients.
func (s *TCPServer) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		close(s.quitChan)
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()
		s.cancel()

		s.Manager.CloseAllConnections()
		s.wg.Wait()
		s.interpreter.Keyboard().ReleaseAll()
		s.logger.Info("bridge_stopped")
	})
}
