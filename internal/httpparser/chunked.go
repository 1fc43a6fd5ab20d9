package httpparser

import (
	"bytes"
	"strconv"
	"strings"

	liberr "github.com/nabbar/webserv/internal/errors"
	"github.com/nabbar/webserv/internal/ringbuffer"
)

// chunkPhase is the sub-state machine for Transfer-Encoding: chunked,
// decoding <hex-size>CRLF<bytes>CRLF repeatedly until a zero-size chunk,
// then ignoring any trailing headers up to the final empty line.
type chunkPhase int

const (
	chunkReadSize chunkPhase = iota
	chunkReadData
	chunkReadDataCRLF
	chunkReadTrailer
)

type chunkState struct {
	phase     chunkPhase
	remaining int64
}

func (r *Request) consumeChunked() (bool, error) {
	switch r.chunk.phase {
	case chunkReadSize:
		line, ok, err := r.takeLine()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}

		sizeField := line
		if idx := bytes.IndexByte(line, ';'); idx >= 0 {
			sizeField = line[:idx]
		}
		n, err := strconv.ParseInt(strings.TrimSpace(string(sizeField)), 16, 64)
		if err != nil || n < 0 {
			return false, r.fail(liberr.BadRequest)
		}

		if n == 0 {
			r.chunk.phase = chunkReadTrailer
		} else {
			r.chunk.remaining = n
			r.chunk.phase = chunkReadData
		}
		return true, nil

	case chunkReadData:
		if r.chunk.remaining == 0 {
			r.chunk.phase = chunkReadDataCRLF
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
		if int64(take) > r.chunk.remaining {
			take = int(r.chunk.remaining)
		}
		if take > free {
			take = free
		}

		n, err := r.Body.Write(r.scan[:take])
		if err != nil {
			return false, err
		}
		r.scan = r.scan[n:]
		r.chunk.remaining -= int64(n)
		return true, nil

	case chunkReadDataCRLF:
		if len(r.scan) < 2 {
			return false, nil
		}
		if r.scan[0] != '\r' || r.scan[1] != '\n' {
			return false, r.fail(liberr.BadRequest)
		}
		r.scan = r.scan[2:]
		r.chunk.phase = chunkReadSize
		return true, nil

	case chunkReadTrailer:
		line, ok, err := r.takeLine()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		if len(line) == 0 {
			r.phase = PhaseComplete
		}
		return true, nil

	default:
		return false, nil
	}
}
