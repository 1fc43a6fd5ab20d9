// Package conn implements the per-client connection state machine:
// READING, PROCESSING, SENDING, SEND_COMPLETE, PARSE_ERROR, ERROR, CLOSED,
// exactly as the server's reactor-driven request lifecycle describes. One
// Connection owns exactly one client fd and, for the lifetime of a CGI
// request, one cgi.Coordinator.
package conn

import (
	"syscall"

	"github.com/nabbar/webserv/internal/cgi"
	liberr "github.com/nabbar/webserv/internal/errors"
	"github.com/nabbar/webserv/internal/handler"
	"github.com/nabbar/webserv/internal/httpparser"
	"github.com/nabbar/webserv/internal/httpresponse"
	"github.com/nabbar/webserv/internal/logging"
	"github.com/nabbar/webserv/internal/reactor"
	"github.com/nabbar/webserv/internal/router"
	"github.com/nabbar/webserv/internal/size"
)

// State is the connection's lifecycle position.
type State int

const (
	Reading State = iota
	Processing
	Sending
	SendComplete
	ParseError
	Errored
	Closed
)

const (
	readChunkSize  = 16 * 1024
	bodyBufferCap  = 64 * 1024
	defaultMaxBody = 1 * size.SizeMega
	serverSoftware = "WebServ/1.0"
)

// Connection owns one client socket fd plus the request/response pair and
// optional CGI coordinator driving it.
type Connection struct {
	fd         int
	listenAddr string

	reactor *reactor.Reactor
	rtr     *router.Router
	hnd     *handler.Handler
	log     logging.Logger

	req  *httpparser.Request
	resp *httpresponse.Response
	cgi  *cgi.Coordinator

	keepAlive bool
	state     State

	onClosed func(*Connection)
}

// New wraps an accepted client fd as a Connection registered for read
// readiness on r.
func New(fd int, listenAddr string, r *reactor.Reactor, rtr *router.Router, hnd *handler.Handler, log logging.Logger, onClosed func(*Connection)) (*Connection, error) {
	c := &Connection{
		fd:         fd,
		listenAddr: listenAddr,
		reactor:    r,
		rtr:        rtr,
		hnd:        hnd,
		log:        log,
		req:        httpparser.New(bodyBufferCap, defaultMaxBody),
		resp:       httpresponse.New(),
		state:      Reading,
		onClosed:   onClosed,
	}
	// Resolved once the request's Host header and path are known (right
	// before the body phase begins), so client_max_body_size is enforced
	// per matched server/location instead of the process-wide default.
	c.req.ResolveMaxBody = func(host, path string) size.Size {
		if v, ok := rtr.ClientMaxBodySize(listenAddr, host, path); ok {
			return v
		}
		return defaultMaxBody
	}
	if err := r.Register(fd, reactor.Readable, c); err != nil {
		return nil, err
	}
	return c, nil
}

// OnReadable implements reactor.Handler: recv into the read buffer, feed
// the parser, and transition on completion or error.
func (c *Connection) OnReadable(fd int) {
	if c.state != Reading {
		return
	}

	buf := make([]byte, readChunkSize)
	n, err := syscall.Read(fd, buf)
	if n == 0 && err == nil {
		c.close()
		return
	}
	if err != nil {
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			return
		}
		c.state = Errored
		c.close()
		return
	}

	if perr := c.req.AddChunk(buf[:n]); perr != nil {
		if c.req.Phase() == httpparser.PhaseError {
			c.state = ParseError
			c.beginParseErrorResponse(c.req.ErrCode)
			return
		}
		// ErrWouldOverflow or similar recoverable condition: stay in
		// Reading and let a later readiness event retry once the
		// consumer (not modeled synchronously here) has drained Body.
	}

	if c.req.Phase() == httpparser.PhaseComplete {
		c.state = Processing
		c.process()
	}
}

// OnWritable implements reactor.Handler: drain the response via
// read_next_chunk + send, looping on partial sends.
func (c *Connection) OnWritable(fd int) {
	if c.state != Sending {
		return
	}

	buf := make([]byte, readChunkSize)
	n, rerr := c.resp.ReadNextChunk(buf)
	if n == 0 {
		if c.resp.IsComplete() {
			c.state = SendComplete
			c.finishSend()
		} else if rerr != nil {
			c.state = Errored
			c.close()
		}
		return
	}

	if _, err := syscall.Write(fd, buf[:n]); err != nil {
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			return
		}
		c.state = Errored
		c.close()
		return
	}
}

// OnError implements reactor.Handler: a reactor-reported error on our fd
// is fatal to the connection.
func (c *Connection) OnError(fd int) {
	c.state = Errored
	c.close()
}

func (c *Connection) beginParseErrorResponse(code liberr.Code) {
	c.keepAlive = false
	c.addStandardHeaders()
	handler.WriteRawError(c.resp, code)
	c.switchToSending()
}

// addStandardHeaders adds the headers every response carries regardless
// of how it's produced: Server identifies this process to the client,
// Connection tells it whether the socket will be kept open or closed
// once this response finishes. Must be called before EndHeaders.
func (c *Connection) addStandardHeaders() {
	c.resp.AddHeader("Server", serverSoftware)
	if c.keepAlive {
		c.resp.AddHeader("Connection", "keep-alive")
	} else {
		c.resp.AddHeader("Connection", "close")
	}
}

// process asks the router for a match and either hands the request to
// the in-process handler or spins up a CgiCoordinator.
func (c *Connection) process() {
	c.keepAlive = handler.KeepAlive(c.req)
	c.addStandardHeaders()

	m := c.rtr.Match(c.listenAddr, c.req.Headers["host"], c.req.Path, c.req.Method)
	if m.IsCGI {
		c.startCGI(m)
		return
	}

	if _, err := c.hnd.Handle(m, c.req, c.resp); err != nil {
		c.log.WithFields(logging.Fields{"path": c.req.Path}).Error("handler error: " + err.Error())
	}
	c.switchToSending()
}

func (c *Connection) startCGI(m *router.RouteMatch) {
	env := cgiEnv(c.req, m)
	coordinator := cgi.New(c.reactor)
	c.cgi = coordinator

	err := coordinator.Start(m.Location.CgiPass, m.ResolvedPath, env, c.req.Body, c.resp, func(waitErr error) {
		c.switchToSending()
	})
	if err != nil {
		c.resp.StartLine(500)
		c.resp.FeedRaw([]byte("<html><body><h1>500 Internal Server Error</h1></body></html>\n"))
		c.resp.EndHeaders()
		c.switchToSending()
	}
}

func cgiEnv(req *httpparser.Request, m *router.RouteMatch) []string {
	return cgi.BuildEnv(req, m, serverSoftware)
}

func (c *Connection) switchToSending() {
	c.state = Sending
	c.reactor.Modify(c.fd, reactor.Writable)
}

func (c *Connection) finishSend() {
	if c.keepAlive {
		c.req.Reset()
		c.resp.Reset()
		c.cgi = nil
		c.state = Reading
		c.reactor.Modify(c.fd, reactor.Readable)
		return
	}
	c.close()
}

func (c *Connection) close() {
	if c.state == Closed {
		return
	}
	c.reactor.Deregister(c.fd)
	syscall.Close(c.fd)
	c.state = Closed
	if c.onClosed != nil {
		c.onClosed(c)
	}
}

// State reports the connection's current lifecycle position, for tests
// and diagnostics.
func (c *Connection) State() State { return c.state }
