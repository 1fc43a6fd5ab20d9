// Package httpparser implements the incremental HTTP/1.1 request parser:
// request-line, then headers, then a Content-Length or chunked body. It is
// fed with AddChunk as bytes arrive off a non-blocking socket and never
// blocks waiting for more; a partial line or body simply leaves the
// parser in its current phase until the next call supplies the rest.
package httpparser

import (
	liberr "github.com/nabbar/webserv/internal/errors"
	"github.com/nabbar/webserv/internal/ringbuffer"
	"github.com/nabbar/webserv/internal/size"
)

// Phase is the parser's current position in the request grammar.
type Phase int

const (
	PhaseStartLine Phase = iota
	PhaseHeaders
	PhaseBody
	PhaseComplete
	PhaseError
)

const maxHeaderLine = 8 * 1024

// Request is one keep-alive request's parser state. Reset() returns it to
// PhaseStartLine without reallocating the body ring buffer.
type Request struct {
	Method  string
	Path    string
	Query   string
	Version string
	Headers map[string]string
	Body    *ringbuffer.RingBuffer

	ErrCode liberr.Code

	// ResolveMaxBody, if set, is called once Host and Path are both known
	// (right before the Content-Length/body check) to pick the configured
	// client_max_body_size for this specific request instead of the
	// constructor's default. Connection wires this to the router's
	// matched server/location.
	ResolveMaxBody func(host, path string) size.Size

	phase   Phase
	scan    []byte
	maxBody size.Size

	chunked           bool
	haveContentLength bool
	contentLength     int64
	bodyRemaining     int64

	chunk chunkState
}

// New allocates a Request with a body ring buffer of the given capacity
// and a maximum body size that governs Content-Length rejection.
func New(bodyBufCap int, maxBody size.Size) *Request {
	return &Request{
		Body:    ringbuffer.New(bodyBufCap),
		maxBody: maxBody,
		phase:   PhaseStartLine,
		Headers: map[string]string{},
	}
}

// Phase returns the parser's current phase.
func (r *Request) Phase() Phase { return r.phase }

// Reset returns the parser to PhaseStartLine, keeping the body ring
// buffer's allocation but clearing any bytes left in it.
func (r *Request) Reset() {
	r.Method, r.Path, r.Query, r.Version = "", "", "", ""
	r.Headers = map[string]string{}
	r.Body.Clear()
	r.ErrCode = 0
	r.phase = PhaseStartLine
	r.scan = nil
	r.chunked = false
	r.haveContentLength = false
	r.contentLength = 0
	r.bodyRemaining = 0
	r.chunk = chunkState{}
}

func (r *Request) fail(code liberr.Code) error {
	r.phase = PhaseError
	r.ErrCode = code
	return liberr.New(code, "malformed request")
}
