// Package httpresponse assembles an HTTP/1.1 response — status line,
// headers, body — and streams it out in caller-sized chunks so the
// connection state machine can write it to a non-blocking socket without
// ever holding the whole response in one contiguous buffer.
package httpresponse

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nabbar/webserv/internal/mime"
)

// State is the builder's internal progress: BUILDING while headers can
// still be added, HEADERS_SENT once EndHeaders has been called, BODY while
// draining the body, DONE once both the header bytes and the body have
// been fully read out.
type State int

const (
	Building State = iota
	HeadersSent
	Body
	Done
)

type header struct {
	key, val string
}

// Response is one response's builder state, reused across keep-alive
// cycles via Reset.
type Response struct {
	code   int
	hdrs   []header
	hdrSet map[string]bool

	headerBytes []byte
	headerPos   int

	bodyMem      []byte
	bodyMemPos   int
	bodyFile     *os.File
	bodyFileLeft int64

	streaming    bool
	streamClosed bool

	state State
}

// New allocates an empty Response in the Building state.
func New() *Response {
	return &Response{hdrSet: map[string]bool{}}
}

// StartLine sets the status code for the response.
func (r *Response) StartLine(code int) {
	r.code = code
}

// AddHeader appends a header; must be called before EndHeaders.
func (r *Response) AddHeader(k, v string) {
	lk := strings.ToLower(k)
	r.hdrs = append(r.hdrs, header{key: k, val: v})
	r.hdrSet[lk] = true
}

func (r *Response) hasHeader(lowerKey string) bool {
	return r.hdrSet[lowerKey]
}

// SetBody sets an in-memory string body.
func (r *Response) SetBody(s string) {
	r.bodyMem = []byte(s)
}

// AttachFile opens path and uses it as the body source, stat'ing its size
// so EndHeaders can fill in Content-Length and Content-Type without the
// caller needing to know either.
func (r *Response) AttachFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	r.bodyFile = f
	r.bodyFileLeft = st.Size()
	if !r.hasHeader("content-type") {
		r.AddHeader("Content-Type", mime.TypeByPath(path))
	}
	return nil
}

// FeedRaw appends raw bytes to the in-memory body, for callers (e.g. the
// directory-listing and error-page builders) that assemble body bytes
// incrementally instead of in one SetBody call.
func (r *Response) FeedRaw(b []byte) {
	r.bodyMem = append(r.bodyMem, b...)
}

// StreamBody switches the response into chunked-streaming mode, for a
// body whose total length isn't known up front (the CGI coordinator's
// output). It sets Transfer-Encoding: chunked, which makes EndHeaders
// skip the Content-Length computation.
func (r *Response) StreamBody() {
	r.streaming = true
	if !r.hasHeader("transfer-encoding") {
		r.AddHeader("Transfer-Encoding", "chunked")
	}
}

// FeedChunk chunk-encodes b and appends it to the body stream. Safe to
// call both before and after EndHeaders, since header bytes and body
// bytes are tracked independently.
func (r *Response) FeedChunk(b []byte) {
	if len(b) == 0 {
		return
	}
	r.bodyMem = append(r.bodyMem, []byte(strconv.FormatInt(int64(len(b)), 16))...)
	r.bodyMem = append(r.bodyMem, '\r', '\n')
	r.bodyMem = append(r.bodyMem, b...)
	r.bodyMem = append(r.bodyMem, '\r', '\n')
}

// CloseStream appends the terminating zero-size chunk and marks the
// stream finished; ReadNextChunk only reaches Done once this has been
// called and every byte has been drained.
func (r *Response) CloseStream() {
	r.bodyMem = append(r.bodyMem, '0', '\r', '\n', '\r', '\n')
	r.streamClosed = true
}

// EndHeaders finalizes the header block: it fills in Content-Length
// (from the attached file's size, or the in-memory body's length) unless
// Transfer-Encoding has already been set, and Content-Type as
// "text/html; charset=utf-8" when a body is present and neither the caller
// nor AttachFile (which takes the type from the MIME table) set one. After
// this, AddHeader must not be called again.
func (r *Response) EndHeaders() {
	if !r.hasHeader("content-length") && !r.hasHeader("transfer-encoding") {
		var n int64
		if r.bodyFile != nil {
			n = r.bodyFileLeft
		} else {
			n = int64(len(r.bodyMem))
		}
		r.AddHeader("Content-Length", strconv.FormatInt(n, 10))
	}
	if !r.hasHeader("content-type") && (len(r.bodyMem) > 0 || r.bodyFile != nil) {
		r.AddHeader("Content-Type", "text/html; charset=utf-8")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "HTTP/1.1 %d %s\r\n", r.code, Reason(r.code))
	for _, h := range r.hdrs {
		fmt.Fprintf(&sb, "%s: %s\r\n", h.key, h.val)
	}
	sb.WriteString("\r\n")

	r.headerBytes = []byte(sb.String())
	r.state = HeadersSent
}

// ReadNextChunk drains the header bytes first, then the body (from memory
// or by reading the attached file), writing at most len(out) bytes into
// out and returning how many were written. A call that finishes the
// header bytes goes on to fill the rest of out with body bytes already
// available. A short read from the
// underlying file is returned as-is, not retried internally, since the
// caller already owns a retry loop around the non-blocking socket write.
func (r *Response) ReadNextChunk(out []byte) (int, error) {
	if r.headerPos < len(r.headerBytes) {
		n := copy(out, r.headerBytes[r.headerPos:])
		r.headerPos += n
		if r.headerPos < len(r.headerBytes) {
			return n, nil
		}
		r.state = Body
		if n == len(out) {
			return n, nil
		}
		// Room is left after the header terminator: fill it with body
		// bytes. A body read error surfaces on the next call.
		m, _ := r.ReadNextChunk(out[n:])
		return n + m, nil
	}

	if r.bodyFile != nil {
		if r.bodyFileLeft == 0 {
			r.state = Done
			return 0, nil
		}
		limit := len(out)
		if int64(limit) > r.bodyFileLeft {
			limit = int(r.bodyFileLeft)
		}
		n, err := r.bodyFile.Read(out[:limit])
		r.bodyFileLeft -= int64(n)
		if r.bodyFileLeft == 0 {
			r.state = Done
			r.bodyFile.Close()
		}
		if err != nil && n == 0 {
			return n, err
		}
		return n, nil
	}

	if r.bodyMemPos < len(r.bodyMem) {
		n := copy(out, r.bodyMem[r.bodyMemPos:])
		r.bodyMemPos += n
		if r.bodyMemPos == len(r.bodyMem) && (!r.streaming || r.streamClosed) {
			r.state = Done
		}
		return n, nil
	}

	if r.streaming && !r.streamClosed {
		// more chunks may still arrive; stay in Body rather than Done.
		return 0, nil
	}

	r.state = Done
	return 0, nil
}

// IsComplete reports whether every header and body byte has been read out.
func (r *Response) IsComplete() bool {
	return r.state == Done
}

// Code returns the status code set via StartLine.
func (r *Response) Code() int { return r.code }

// Reset returns the Response to Building for reuse on the next keep-alive
// cycle, closing any attached file that wasn't fully drained.
func (r *Response) Reset() {
	if r.bodyFile != nil {
		r.bodyFile.Close()
	}
	r.code = 0
	r.hdrs = nil
	r.hdrSet = map[string]bool{}
	r.headerBytes = nil
	r.headerPos = 0
	r.bodyMem = nil
	r.bodyMemPos = 0
	r.bodyFile = nil
	r.bodyFileLeft = 0
	r.streaming = false
	r.streamClosed = false
	r.state = Building
}
