package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
)

// httpServer is the listener lifecycle shared by the healthz and metrics servers
type httpServer struct {
	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	ready    chan struct{}
	once     sync.Once
}

// Addr returns the bound address once the server is listening
func (s *httpServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Ready is closed once the server is listening
func (s *httpServer) Ready() <-chan struct{} {
	return s.readyChan()
}

func (s *httpServer) readyChan() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready == nil {
		s.ready = make(chan struct{})
	}
	return s.ready
}

// Shutdown gracefully stops the server; it is a no-op before Start
func (s *httpServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// serve binds addr and blocks until the server is shut down.
// It returns http.ErrServerClosed after a clean shutdown.
func (s *httpServer) serve(ctx context.Context, addr string, handler http.Handler) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler: handler,
		Addr:    ln.Addr().String(),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	ready := s.readyChan()
	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()
	s.once.Do(func() { close(ready) })

	err = srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return http.ErrServerClosed
	}
	return err
}
