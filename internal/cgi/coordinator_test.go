package cgi

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nabbar/webserv/internal/httpresponse"
	"github.com/nabbar/webserv/internal/reactor"
	"github.com/nabbar/webserv/internal/ringbuffer"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "script.sh")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCoordinator(t *testing.T, script string, reqBody string) (*httpresponse.Response, error) {
	t.Helper()
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	defer r.Close()

	go r.Run(10 * time.Millisecond)
	defer r.Stop()

	rb := ringbuffer.New(4096)
	if reqBody != "" {
		rb.Write([]byte(reqBody))
	}

	resp := httpresponse.New()
	done := make(chan error, 1)
	c := New(r)
	if err := c.Start("/bin/sh", script, os.Environ(), rb, resp, func(e error) { done <- e }); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for CGI completion")
	}
	return resp, nil
}

func TestCGIStatusHeaderOverridesDefault(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\nprintf 'Status: 201 Created\\r\\nContent-Type: text/plain\\r\\n\\r\\nok'\n")
	resp, _ := runCoordinator(t, script, "")
	if resp.Code() != 201 {
		t.Fatalf("expected 201, got %d", resp.Code())
	}
}

func TestCGIWithoutStatusDefaultsTo200(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\nprintf 'Content-Type: text/plain\\r\\n\\r\\nhello'\n")
	resp, _ := runCoordinator(t, script, "")
	if resp.Code() != 200 {
		t.Fatalf("expected 200, got %d", resp.Code())
	}
	buf := make([]byte, 4096)
	var out []byte
	for !resp.IsComplete() {
		n, _ := resp.ReadNextChunk(buf)
		if n == 0 {
			break
		}
		out = append(out, buf[:n]...)
	}
	if !strings.Contains(string(out), "hello") {
		t.Fatalf("missing body in %q", out)
	}
}

func TestCGIMissingHeadersSynthesizes502(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\nexit 1\n")
	resp, _ := runCoordinator(t, script, "")
	if resp.Code() != 502 {
		t.Fatalf("expected 502, got %d", resp.Code())
	}
}
