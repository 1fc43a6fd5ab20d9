// Package router resolves an incoming request's host, path and method into
// a concrete ServerConfig + LocationConfig pair and decides what kind of
// response the handler must produce, per the longest-prefix matching and
// decision order described for the request router.
package router

import (
	"os"
	"path"
	"strings"

	"github.com/nabbar/webserv/internal/config"
	"github.com/nabbar/webserv/internal/size"
)

// RouteMatch is the router's complete answer for one request: which
// server and location matched, the resolved filesystem path, and the
// booleans the handler needs to pick a response strategy without
// re-deriving any of them itself.
type RouteMatch struct {
	Server   *config.ServerConfig
	Location *config.LocationConfig

	ResolvedPath string

	Exists        bool
	IsDirectory   bool
	IsFile        bool
	IsRedirect    bool
	IsCGI         bool
	MethodAllowed bool
	Escaped       bool
}

// Router holds every configured server, grouped by listen address so a
// connection's match only ever considers servers bound to the socket it
// arrived on.
type Router struct {
	byListen map[string][]*config.ServerConfig
}

// New groups servers by listen address for fast per-connection lookup.
func New(servers []*config.ServerConfig) *Router {
	r := &Router{byListen: map[string][]*config.ServerConfig{}}
	for _, s := range servers {
		r.byListen[s.Listen] = append(r.byListen[s.Listen], s)
	}
	return r
}

// Match resolves (listenAddr, host, path, method) to a RouteMatch. listenAddr
// identifies which listening socket the connection arrived on, so that
// distinct "server {}" blocks bound to different addresses never cross-match
// by server_name alone.
func (r *Router) Match(listenAddr, host, reqPath, method string) *RouteMatch {
	servers := r.byListen[listenAddr]
	sc := pickServer(servers, host)
	if sc == nil {
		return &RouteMatch{Exists: false}
	}

	lc := pickLocation(sc.Locations, reqPath)
	m := &RouteMatch{Server: sc, Location: lc}
	if lc == nil {
		m.Exists = false
		return m
	}

	m.MethodAllowed = lc.Methods[method]

	resolved, escaped := resolvePath(lc.Root, lc.Route, reqPath)
	m.ResolvedPath = resolved
	m.Escaped = escaped
	if escaped {
		m.Exists = false
		return m
	}

	if lc.Redirect != nil {
		m.IsRedirect = true
		m.Exists = true
		return m
	}

	st, err := os.Stat(resolved)
	if err != nil {
		m.Exists = false
		return m
	}
	m.Exists = true

	if lc.IsDynamic() && !st.IsDir() {
		m.IsCGI = true
		return m
	}

	if st.IsDir() {
		m.IsDirectory = true
	} else {
		m.IsFile = true
	}
	return m
}

// ClientMaxBodySize resolves the client_max_body_size that applies to
// (listenAddr, host, reqPath) without touching the filesystem, so a
// connection can enforce it as soon as the request's Host header and
// path are known — before the parser has read a single body byte. The
// bool return reports whether any server matched this listen address at
// all; the caller falls back to its own default when it's false.
func (r *Router) ClientMaxBodySize(listenAddr, host, reqPath string) (size.Size, bool) {
	sc := pickServer(r.byListen[listenAddr], host)
	if sc == nil {
		return 0, false
	}
	if lc := pickLocation(sc.Locations, reqPath); lc != nil {
		return lc.ClientMaxBodySize, true
	}
	return sc.ClientMaxBodySize, true
}

// pickServer finds the server whose server_name list contains host
// (case-insensitive), falling back to the first server on this listen
// address when none declares host — the "default server" rule.
func pickServer(servers []*config.ServerConfig, host string) *config.ServerConfig {
	if len(servers) == 0 {
		return nil
	}
	h := strings.ToLower(stripPort(host))
	for _, s := range servers {
		for _, n := range s.ServerNames {
			if strings.ToLower(n) == h {
				return s
			}
		}
	}
	return servers[0]
}

func stripPort(host string) string {
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		return host[:i]
	}
	return host
}

// pickLocation picks the location whose Route is the longest prefix of
// reqPath. Locations are already sorted by descending route length at
// materialization time, so the first matching entry is the longest.
func pickLocation(locs []*config.LocationConfig, reqPath string) *config.LocationConfig {
	for _, l := range locs {
		if strings.HasPrefix(reqPath, l.Route) {
			return l
		}
	}
	return nil
}

// resolvePath joins root with the portion of reqPath beyond the matched
// location's route prefix, then rejects any result that normalizes
// outside of root.
func resolvePath(root, route, reqPath string) (resolved string, escaped bool) {
	remainder := strings.TrimPrefix(reqPath, route)
	cleanRoot := path.Clean(root)
	joined := path.Join(cleanRoot, remainder)
	if cleanRoot == "." {
		// An empty or "." root is the working directory; a cleaned
		// relative result only leaves it by starting with "..".
		if joined == ".." || strings.HasPrefix(joined, "../") {
			return "", true
		}
		return joined, false
	}
	if joined != cleanRoot && !strings.HasPrefix(joined, cleanRoot+"/") {
		return "", true
	}
	return joined, false
}
