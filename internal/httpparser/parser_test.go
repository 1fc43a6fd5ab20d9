package httpparser

import (
	"testing"

	"github.com/nabbar/webserv/internal/ringbuffer"
	"github.com/nabbar/webserv/internal/size"
)

func mustComplete(t *testing.T, r *Request) {
	t.Helper()
	if r.Phase() != PhaseComplete {
		t.Fatalf("expected PhaseComplete, got %v (err code %v)", r.Phase(), r.ErrCode)
	}
}

func TestSimpleGetNoBody(t *testing.T) {
	r := New(4096, size.SizeMega)
	err := r.AddChunk([]byte("GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustComplete(t, r)
	if r.Method != "GET" || r.Path != "/index.html" || r.Version != "HTTP/1.1" {
		t.Fatalf("bad parse: %+v", r)
	}
}

func TestQuerySplit(t *testing.T) {
	r := New(4096, size.SizeMega)
	err := r.AddChunk([]byte("GET /a?x=1&y=2 HTTP/1.1\r\nHost: h\r\n\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Path != "/a" || r.Query != "x=1&y=2" {
		t.Fatalf("bad split: path=%q query=%q", r.Path, r.Query)
	}
}

func TestSplitAcrossArbitraryBoundaries(t *testing.T) {
	full := "POST /up HTTP/1.1\r\nHost: h\r\nContent-Length: 5\r\n\r\nhello"
	r := New(4096, size.SizeMega)
	for i := 0; i < len(full); i++ {
		if err := r.AddChunk([]byte{full[i]}); err != nil {
			t.Fatalf("byte %d: unexpected error: %v", i, err)
		}
	}
	mustComplete(t, r)
	out := make([]byte, 5)
	r.Body.Read(out)
	if string(out) != "hello" {
		t.Fatalf("got body %q", out)
	}
}

func TestContentLengthZero(t *testing.T) {
	r := New(4096, size.SizeMega)
	err := r.AddChunk([]byte("POST /x HTTP/1.1\r\nHost: h\r\nContent-Length: 0\r\n\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustComplete(t, r)
	if r.Body.Size() != 0 {
		t.Fatalf("expected empty body, got size %d", r.Body.Size())
	}
}

func TestChunkedOnlyTerminatingZeroChunk(t *testing.T) {
	r := New(4096, size.SizeMega)
	err := r.AddChunk([]byte("POST /x HTTP/1.1\r\nHost: h\r\nTransfer-Encoding: chunked\r\n\r\n0\r\n\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustComplete(t, r)
	if r.Body.Size() != 0 {
		t.Fatalf("expected empty body, got size %d", r.Body.Size())
	}
}

func TestChunkedMultipleChunks(t *testing.T) {
	r := New(4096, size.SizeMega)
	raw := "POST /x HTTP/1.1\r\nHost: h\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n"
	if err := r.AddChunk([]byte(raw)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustComplete(t, r)
	out := make([]byte, r.Body.Size())
	r.Body.Read(out)
	if string(out) != "Wikipedia" {
		t.Fatalf("got %q", out)
	}
}

func TestChunkedHeadersSplitAcrossReads(t *testing.T) {
	r := New(4096, size.SizeMega)
	part1 := "POST /x HTTP/1.1\r\nHost: h\r\nTransfer-En"
	part2 := "coding: chunked\r\n\r\n3\r\nabc\r\n0\r\n\r\n"
	if err := r.AddChunk([]byte(part1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Phase() == PhaseComplete || r.Phase() == PhaseError {
		t.Fatalf("should not be complete yet, got %v", r.Phase())
	}
	if err := r.AddChunk([]byte(part2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustComplete(t, r)
}

func TestMissingHostOnHTTP11Fails(t *testing.T) {
	r := New(4096, size.SizeMega)
	err := r.AddChunk([]byte("GET / HTTP/1.1\r\n\r\n"))
	if err == nil {
		t.Fatal("expected a 400 for missing Host")
	}
	if r.Phase() != PhaseError {
		t.Fatalf("expected PhaseError, got %v", r.Phase())
	}
}

func TestDuplicateHostFails(t *testing.T) {
	r := New(4096, size.SizeMega)
	err := r.AddChunk([]byte("GET / HTTP/1.1\r\nHost: a\r\nHost: b\r\n\r\n"))
	if err == nil {
		t.Fatal("expected a 400 for duplicate Host")
	}
}

func TestContentLengthExceedsMaxBody(t *testing.T) {
	r := New(4096, 1024)
	err := r.AddChunk([]byte("POST /x HTTP/1.1\r\nHost: h\r\nContent-Length: 999999999\r\n\r\n"))
	if err == nil {
		t.Fatal("expected a 413 for oversized content-length")
	}
	if r.ErrCode != 413 {
		t.Fatalf("expected code 413, got %v", r.ErrCode)
	}
}

func TestHeaderLineOverflowFails(t *testing.T) {
	big := make([]byte, 9000)
	for i := range big {
		big[i] = 'a'
	}
	r := New(4096, size.SizeMega)
	err := r.AddChunk([]byte("GET / HTTP/1.1\r\nHost: h\r\nX-Big: "))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = r.AddChunk(big)
	if err == nil {
		t.Fatal("expected a 431 for an oversized header line")
	}
	if r.ErrCode != 431 {
		t.Fatalf("expected code 431, got %v", r.ErrCode)
	}
}

func TestBodyBackpressureReportsOverflowThenResumes(t *testing.T) {
	r := New(4, size.SizeMega) // tiny body buffer forces backpressure
	err := r.AddChunk([]byte("POST /x HTTP/1.1\r\nHost: h\r\nContent-Length: 8\r\n\r\nABCDEFGH"))
	if err != ringbuffer.ErrWouldOverflow {
		t.Fatalf("expected ErrWouldOverflow, got %v", err)
	}
	if r.Phase() != PhaseBody {
		t.Fatalf("expected to remain in PhaseBody, got %v", r.Phase())
	}

	// drain what arrived so far, then resume
	out := make([]byte, r.Body.Size())
	r.Body.Read(out)
	if err := r.AddChunk(nil); err != nil {
		t.Fatalf("unexpected error resuming: %v", err)
	}
	mustComplete(t, r)
}

func TestResetReturnsToStartLinePreservingBuffer(t *testing.T) {
	r := New(4096, size.SizeMega)
	raw := []byte("POST /x HTTP/1.1\r\nHost: h\r\nContent-Length: 3\r\n\r\nabc")
	if err := r.AddChunk(raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustComplete(t, r)
	bodyBefore := make([]byte, 3)
	r.Body.Peek(bodyBefore)

	r.Reset()
	if r.Phase() != PhaseStartLine {
		t.Fatalf("expected PhaseStartLine after reset, got %v", r.Phase())
	}

	if err := r.AddChunk(raw); err != nil {
		t.Fatalf("unexpected error after reset: %v", err)
	}
	mustComplete(t, r)
	bodyAfter := make([]byte, 3)
	r.Body.Peek(bodyAfter)
	if string(bodyBefore) != string(bodyAfter) {
		t.Fatalf("reset is not idempotent: %q vs %q", bodyBefore, bodyAfter)
	}
}
