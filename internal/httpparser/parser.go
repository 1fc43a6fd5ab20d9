package httpparser

import (
	"bytes"
	"strconv"
	"strings"

	liberr "github.com/nabbar/webserv/internal/errors"
	"github.com/nabbar/webserv/internal/ringbuffer"
	"github.com/nabbar/webserv/internal/size"
)

// AddChunk feeds newly-arrived bytes to the parser. It never blocks: a
// partial start-line, partial header, or partial body simply leaves the
// parser in its current phase and returns nil, waiting for the next call.
// The one recoverable error is ringbuffer.ErrWouldOverflow, returned when
// the body ring buffer is full; the caller must drain Body and call
// AddChunk(nil) to resume — phase stays PhaseBody, nothing is discarded.
func (r *Request) AddChunk(data []byte) error {
	if len(data) > 0 {
		r.scan = append(r.scan, data...)
	}

	for {
		switch r.phase {
		case PhaseStartLine:
			line, ok, err := r.takeLine()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if err := r.parseStartLine(line); err != nil {
				return err
			}
			r.phase = PhaseHeaders

		case PhaseHeaders:
			line, ok, err := r.takeLine()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if len(line) == 0 {
				if err := r.finishHeaders(); err != nil {
					return err
				}
				continue
			}
			if err := r.parseHeaderLine(line); err != nil {
				return err
			}

		case PhaseBody:
			progressed, err := r.consumeBody()
			if err != nil {
				return err
			}
			if !progressed {
				return nil
			}

		default: // PhaseComplete, PhaseError
			return nil
		}
	}
}

// takeLine extracts the next CRLF- or LF-terminated line from the scan
// buffer (trailing CR stripped), or (nil, false, nil) if no full line has
// arrived yet. A line exceeding 8 KiB without a terminator is a 431.
func (r *Request) takeLine() ([]byte, bool, error) {
	idx := bytes.IndexByte(r.scan, '\n')
	if idx < 0 {
		if len(r.scan) > maxHeaderLine {
			return nil, false, r.fail(liberr.HeaderSize)
		}
		return nil, false, nil
	}

	line := r.scan[:idx]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	if len(line) > maxHeaderLine {
		return nil, false, r.fail(liberr.HeaderSize)
	}

	r.scan = r.scan[idx+1:]
	return line, true, nil
}

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func (r *Request) parseStartLine(line []byte) error {
	fields := bytes.Fields(line)
	if len(fields) != 3 {
		return r.fail(liberr.BadRequest)
	}

	method, uri, version := fields[0], fields[1], fields[2]

	for _, b := range method {
		if !isAlpha(b) {
			return r.fail(liberr.BadRequest)
		}
	}
	if len(uri) == 0 || uri[0] != '/' {
		return r.fail(liberr.BadRequest)
	}
	vstr := string(version)
	if vstr != "HTTP/1.0" && vstr != "HTTP/1.1" {
		return r.fail(liberr.BadRequest)
	}

	r.Method = string(method)
	r.Version = vstr

	full := string(uri)
	if q := strings.IndexByte(full, '?'); q >= 0 {
		r.Path = full[:q]
		r.Query = full[q+1:]
	} else {
		r.Path = full
	}

	return nil
}

func (r *Request) parseHeaderLine(line []byte) error {
	idx := bytes.IndexByte(line, ':')
	if idx < 0 {
		return r.fail(liberr.BadRequest)
	}

	key := strings.ToLower(strings.TrimSpace(string(line[:idx])))
	value := strings.TrimLeft(string(line[idx+1:]), " \t")

	if key == "host" {
		if _, dup := r.Headers["host"]; dup {
			return r.fail(liberr.BadRequest)
		}
	}

	r.Headers[key] = value
	return nil
}

func (r *Request) finishHeaders() error {
	if r.ResolveMaxBody != nil {
		r.maxBody = r.ResolveMaxBody(r.Headers["host"], r.Path)
	}

	if r.Version == "HTTP/1.1" {
		if _, ok := r.Headers["host"]; !ok {
			return r.fail(liberr.BadRequest)
		}
	}

	if te, ok := r.Headers["transfer-encoding"]; ok && strings.EqualFold(strings.TrimSpace(te), "chunked") {
		r.chunked = true
		r.phase = PhaseBody
		return nil
	}

	if cl, ok := r.Headers["content-length"]; ok {
		n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if err != nil || n < 0 {
			return r.fail(liberr.BadRequest)
		}
		if size.Size(n) > r.maxBody {
			return r.fail(liberr.BodyTooBig)
		}
		r.haveContentLength = true
		r.contentLength = n
		r.bodyRemaining = n
		if n == 0 {
			r.phase = PhaseComplete
		} else {
			r.phase = PhaseBody
		}
		return nil
	}

	r.phase = PhaseComplete
	return nil
}

func (r *Request) consumeBody() (bool, error) {
	if r.chunked {
		return r.consumeChunked()
	}
	return r.consumeContentLength()
}

func (r *Request) consumeContentLength() (bool, error) {
	if r.bodyRemaining == 0 {
		r.phase = PhaseComplete
		return true, nil
	}
	if len(r.scan) == 0 {
		return false, nil
	}

	free := r.Body.Free()
	if free == 0 {
		return false, ringbuffer.ErrWouldOverflow
	}

	take := len(r.scan)
	if int64(take) > r.bodyRemaining {
		take = int(r.bodyRemaining)
	}
	if take > free {
		take = free
	}

	n, err := r.Body.Write(r.scan[:take])
	if err != nil {
		return false, err
	}

	r.scan = r.scan[n:]
	r.bodyRemaining -= int64(n)
	if r.bodyRemaining == 0 {
		r.phase = PhaseComplete
	}
	return true, nil
}
