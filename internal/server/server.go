package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nabbar/webserv/internal/config"
	"github.com/nabbar/webserv/internal/handler"
	"github.com/nabbar/webserv/internal/logging"
	"github.com/nabbar/webserv/internal/reactor"
	"github.com/nabbar/webserv/internal/router"
)

const pollTimeout = 200 * time.Millisecond

// Server owns the reactor and every listening socket derived from a
// materialized configuration. Run blocks until the supplied context is
// cancelled, draining the reactor loop before closing every listener.
type Server struct {
	react     *reactor.Reactor
	listeners []*listener
	log       logging.Logger
}

// New builds listening sockets for every distinct listen address in
// servers and wires them into a fresh reactor, a shared router and a
// shared request handler.
func New(servers []*config.ServerConfig, log logging.Logger) (*Server, error) {
	react, err := reactor.New()
	if err != nil {
		return nil, err
	}

	rtr := router.New(servers)
	hnd := handler.New(log)

	seen := map[string]bool{}
	var listeners []*listener
	for _, sc := range servers {
		if seen[sc.Listen] {
			continue
		}
		seen[sc.Listen] = true

		l, err := newListener(sc.Listen, react, rtr, hnd, log)
		if err != nil {
			for _, existing := range listeners {
				existing.close()
			}
			react.Close()
			return nil, err
		}
		listeners = append(listeners, l)
	}

	return &Server{react: react, listeners: listeners, log: log}, nil
}

// Run drives the reactor loop until ctx is cancelled, then tears down
// every listener and the reactor's epoll fd.
func (s *Server) Run(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.react.Run(pollTimeout) }()

	select {
	case <-ctx.Done():
		s.log.Info("shutdown requested, draining reactor")
		s.react.Stop()
		<-done
	case err := <-done:
		return err
	}

	for _, l := range s.listeners {
		l.close()
	}
	return s.react.Close()
}

// WaitForShutdownSignal returns a context cancelled on SIGINT or SIGTERM,
// with SIGPIPE ignored for the lifetime of the process — the graceful
// shutdown contract the CLI entry point installs.
func WaitForShutdownSignal(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)

	signal.Ignore(syscall.SIGPIPE)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sig:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sig)
	}()

	return ctx
}
