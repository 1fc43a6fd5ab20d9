// Package server wires together configuration, router and reactor into a
// running event loop: one non-blocking listening socket per ServerConfig
// group sharing a listen address, each accepted client handed to
// internal/conn, all driven by a single internal/reactor instance.
package server

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"syscall"

	"github.com/nabbar/webserv/internal/conn"
	"github.com/nabbar/webserv/internal/handler"
	"github.com/nabbar/webserv/internal/logging"
	"github.com/nabbar/webserv/internal/reactor"
	"github.com/nabbar/webserv/internal/router"
)

// listener owns one non-blocking bound+listening socket and accepts new
// connections off it as readiness events arrive.
type listener struct {
	fd         int
	listenAddr string

	reactor *reactor.Reactor
	rtr     *router.Router
	hnd     *handler.Handler
	log     logging.Logger

	conns map[int]*conn.Connection
}

func newListener(addr string, r *reactor.Reactor, rtr *router.Router, hnd *handler.Handler, log logging.Logger) (*listener, error) {
	host, port, err := splitHostPort(addr)
	if err != nil {
		return nil, err
	}

	fd, err := syscall.Socket(syscall.AF_INET, syscall.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)

	sa := &syscall.SockaddrInet4{Port: port, Addr: host}
	if err := syscall.Bind(fd, sa); err != nil {
		syscall.Close(fd)
		return nil, err
	}
	if err := syscall.Listen(fd, 1024); err != nil {
		syscall.Close(fd)
		return nil, err
	}
	syscall.SetNonblock(fd, true)

	l := &listener{
		fd:         fd,
		listenAddr: addr,
		reactor:    r,
		rtr:        rtr,
		hnd:        hnd,
		log:        log,
		conns:      map[int]*conn.Connection{},
	}
	if err := r.Register(fd, reactor.Readable, l); err != nil {
		syscall.Close(fd)
		return nil, err
	}
	return l, nil
}

// OnReadable implements reactor.Handler: accept as many pending
// connections as are ready, non-blockingly.
func (l *listener) OnReadable(fd int) {
	for {
		clientFd, _, err := syscall.Accept(fd)
		if err != nil {
			return
		}
		syscall.SetNonblock(clientFd, true)

		c, err := conn.New(clientFd, l.listenAddr, l.reactor, l.rtr, l.hnd, l.log, func(closed *conn.Connection) {
			delete(l.conns, clientFd)
		})
		if err != nil {
			syscall.Close(clientFd)
			continue
		}
		l.conns[clientFd] = c
	}
}

// OnWritable is unused; listening sockets are never registered writable.
func (l *listener) OnWritable(fd int) {}

// OnError deregisters and closes the listening socket on a reactor-level
// error; a fresh process restart is required to recover.
func (l *listener) OnError(fd int) {
	l.reactor.Deregister(fd)
	syscall.Close(fd)
}

func (l *listener) close() {
	l.reactor.Deregister(l.fd)
	syscall.Close(l.fd)
}

// splitHostPort parses a "host:port" listen address into a 4-byte IPv4
// address (0.0.0.0 for an empty or wildcard host) and a port number.
func splitHostPort(addr string) (ip4 [4]byte, port int, err error) {
	idx := strings.LastIndexByte(addr, ':')
	if idx < 0 {
		return ip4, 0, fmt.Errorf("invalid listen address %q", addr)
	}
	host, portStr := addr[:idx], addr[idx+1:]

	port, err = strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return ip4, 0, fmt.Errorf("invalid port in listen address %q", addr)
	}

	if host == "" || host == "*" {
		return [4]byte{0, 0, 0, 0}, port, nil
	}
	parsed := net.ParseIP(host)
	if parsed == nil {
		return ip4, 0, fmt.Errorf("invalid host in listen address %q", addr)
	}
	v4 := parsed.To4()
	if v4 == nil {
		return ip4, 0, fmt.Errorf("only IPv4 listen addresses are supported, got %q", addr)
	}
	copy(ip4[:], v4)
	return ip4, port, nil
}
