// Package reactor is a minimal epoll-based event loop: fds register with
// an interest mask and a Handler, the loop blocks in epoll_wait, and each
// ready fd's owning Handler is dispatched to. The server is deliberately
// single-threaded and cooperative — one fd, one owner, no goroutine per
// connection — so this package talks to epoll directly through
// golang.org/x/sys/unix rather than leaning on net/http's per-connection
// goroutine model.
package reactor

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Handler is implemented by anything that owns one or more fds registered
// with the reactor: Connection and CgiCoordinator both satisfy it. A
// Handler may own more than one fd (the CGI coordinator owns both pipe
// ends in addition to its connection's client fd, which the connection
// itself owns).
type Handler interface {
	OnReadable(fd int)
	OnWritable(fd int)
	OnError(fd int)
}

// Interest is the epoll interest mask requested for a registered fd.
type Interest uint32

const (
	Readable Interest = unix.EPOLLIN
	Writable Interest = unix.EPOLLOUT
)

type registration struct {
	handler  Handler
	interest Interest
}

// Reactor owns the epoll fd and the fd → handler registry. All mutation
// happens from the event loop goroutine; Register/Modify/Deregister may
// be called reentrantly from inside a Handler callback.
type Reactor struct {
	epfd int

	mu       sync.Mutex
	registry map[int]registration

	stop chan struct{}
}

// New creates the epoll instance.
func New() (*Reactor, error) {
	fd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &Reactor{
		epfd:     fd,
		registry: map[int]registration{},
		stop:     make(chan struct{}),
	}, nil
}

// Register adds fd to the epoll set with the given interest and owner.
func (r *Reactor) Register(fd int, interest Interest, h Handler) error {
	r.mu.Lock()
	r.registry[fd] = registration{handler: h, interest: interest}
	r.mu.Unlock()

	ev := &unix.EpollEvent{Events: uint32(interest), Fd: int32(fd)}
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, ev)
}

// Modify changes the interest mask for an already-registered fd.
func (r *Reactor) Modify(fd int, interest Interest) error {
	r.mu.Lock()
	reg, ok := r.registry[fd]
	if ok {
		reg.interest = interest
		r.registry[fd] = reg
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}

	ev := &unix.EpollEvent{Events: uint32(interest), Fd: int32(fd)}
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, ev)
}

// Deregister removes fd from the epoll set. Must be called before the fd
// is closed, to avoid a closed-fd event delivery.
func (r *Reactor) Deregister(fd int) error {
	r.mu.Lock()
	delete(r.registry, fd)
	r.mu.Unlock()
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (r *Reactor) lookup(fd int) (Handler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.registry[fd]
	if !ok {
		return nil, false
	}
	return reg.handler, true
}

// Stop breaks the Run loop after the current wait returns.
func (r *Reactor) Stop() {
	close(r.stop)
}

// Run blocks, dispatching ready fds to their owning Handler until Stop is
// called. timeout bounds each epoll_wait call so Stop is noticed promptly
// even with no fd activity.
func (r *Reactor) Run(timeout time.Duration) error {
	events := make([]unix.EpollEvent, 64)
	ms := int(timeout / time.Millisecond)

	for {
		select {
		case <-r.stop:
			return nil
		default:
		}

		n, err := unix.EpollWait(r.epfd, events, ms)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}

		for i := 0; i < n; i++ {
			ev := events[i]
			fd := int(ev.Fd)
			h, ok := r.lookup(fd)
			if !ok {
				continue
			}

			switch {
			case ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0:
				h.OnError(fd)
			case ev.Events&unix.EPOLLIN != 0:
				h.OnReadable(fd)
			case ev.Events&unix.EPOLLOUT != 0:
				h.OnWritable(fd)
			}
		}
	}
}

// Close releases the epoll fd. Call after Run has returned.
func (r *Reactor) Close() error {
	return unix.Close(r.epfd)
}
