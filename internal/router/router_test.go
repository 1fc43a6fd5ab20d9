package router

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nabbar/webserv/internal/config"
	"github.com/nabbar/webserv/internal/size"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLongestPrefixWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "api/widgets/list.html", "ok")

	short := &config.LocationConfig{Route: "/api", Root: dir, Methods: map[string]bool{"GET": true}}
	long := &config.LocationConfig{Route: "/api/widgets", Root: dir, Methods: map[string]bool{"GET": true}}
	sc := &config.ServerConfig{Listen: "127.0.0.1:80", Locations: []*config.LocationConfig{long, short}}

	r := New([]*config.ServerConfig{sc})
	m := r.Match("127.0.0.1:80", "x", "/api/widgets/list.html", "GET")
	if m.Location != long {
		t.Fatalf("expected longest-prefix location to win")
	}
}

func TestDefaultServerFallback(t *testing.T) {
	sc := &config.ServerConfig{Listen: "127.0.0.1:80", ServerNames: []string{"known.test"}}
	r := New([]*config.ServerConfig{sc})
	m := r.Match("127.0.0.1:80", "unknown.test", "/", "GET")
	if m.Server != sc {
		t.Fatalf("expected fallback to default (first) server")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", "hi")
	loc := &config.LocationConfig{Route: "/", Root: dir, Methods: map[string]bool{"GET": true}}
	sc := &config.ServerConfig{Listen: "a:1", Locations: []*config.LocationConfig{loc}}
	r := New([]*config.ServerConfig{sc})
	m := r.Match("a:1", "h", "/index.html", "POST")
	if m.MethodAllowed {
		t.Fatalf("expected method not allowed")
	}
}

func TestPathEscapeRejected(t *testing.T) {
	dir := t.TempDir()
	loc := &config.LocationConfig{Route: "/", Root: dir, Methods: map[string]bool{"GET": true}}
	sc := &config.ServerConfig{Listen: "a:1", Locations: []*config.LocationConfig{loc}}
	r := New([]*config.ServerConfig{sc})
	m := r.Match("a:1", "h", "/../../etc/passwd", "GET")
	if !m.Escaped || m.Exists {
		t.Fatalf("expected escape rejection, got %+v", m)
	}
}

func TestRedirectTakesPriorityOverCGIAndFiles(t *testing.T) {
	loc := &config.LocationConfig{
		Route:    "/r",
		Redirect: &config.Redirect{Code: 301, URL: "/new"},
		Methods:  map[string]bool{"GET": true},
	}
	sc := &config.ServerConfig{Listen: "a:1", Locations: []*config.LocationConfig{loc}}
	r := New([]*config.ServerConfig{sc})
	m := r.Match("a:1", "h", "/r", "GET")
	if !m.IsRedirect {
		t.Fatalf("expected redirect match")
	}
}

func TestCGIMatchForRegularFileUnderCgiPass(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "hello.py", "#!/usr/bin/env python3\n")
	loc := &config.LocationConfig{
		Route:             "/cgi",
		Root:              dir,
		CgiPass:           "/usr/bin/python3",
		Methods:           map[string]bool{"GET": true},
		ClientMaxBodySize: size.SizeMega,
	}
	sc := &config.ServerConfig{Listen: "a:1", Locations: []*config.LocationConfig{loc}}
	r := New([]*config.ServerConfig{sc})
	m := r.Match("a:1", "h", "/cgi/hello.py", "GET")
	if !m.IsCGI {
		t.Fatalf("expected CGI match, got %+v", m)
	}
}

func TestDirectoryAndFileDetection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "x")
	os.MkdirAll(filepath.Join(dir, "sub"), 0o755)

	loc := &config.LocationConfig{Route: "/", Root: dir, Methods: map[string]bool{"GET": true}}
	sc := &config.ServerConfig{Listen: "a:1", Locations: []*config.LocationConfig{loc}}
	r := New([]*config.ServerConfig{sc})

	mFile := r.Match("a:1", "h", "/a.txt", "GET")
	if !mFile.IsFile {
		t.Fatalf("expected file match")
	}
	mDir := r.Match("a:1", "h", "/sub", "GET")
	if !mDir.IsDirectory {
		t.Fatalf("expected directory match")
	}
	mMissing := r.Match("a:1", "h", "/missing", "GET")
	if mMissing.Exists {
		t.Fatalf("expected not-found for missing path")
	}
}

func TestNoLocationMatch(t *testing.T) {
	sc := &config.ServerConfig{Listen: "a:1"}
	r := New([]*config.ServerConfig{sc})
	m := r.Match("a:1", "h", "/anything", "GET")
	if m.Exists {
		t.Fatalf("expected no match when server has no locations")
	}
}
