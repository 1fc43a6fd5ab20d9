package config

import (
	"strconv"
	"strings"

	liberr "github.com/nabbar/webserv/internal/errors"
	"github.com/nabbar/webserv/internal/size"
)

// Redirect is a location's terminal `return <code> <url>` directive.
type Redirect struct {
	Code int
	URL  string
}

// LocationConfig is one route-prefix-scoped block inside a server. Root,
// ClientMaxBodySize and Index inherit from the owning ServerConfig when
// the block does not override them.
type LocationConfig struct {
	Route             string
	Root              string
	Methods           map[string]bool
	Autoindex         bool
	ClientMaxBodySize size.Size
	Redirect          *Redirect
	UploadStore       string
	CgiPass           string
	Index             []string
}

// IsDynamic reports whether this location is CGI-backed, in which case
// static serving is skipped entirely (spec.md §3 invariant).
func (l *LocationConfig) IsDynamic() bool {
	return l.CgiPass != ""
}

// ServerConfig is immutable after load and shared by every connection
// accepted on its listening socket.
type ServerConfig struct {
	Listen            string
	Host              string
	Port              int
	ServerNames       []string
	Root              string
	Index             []string
	ClientMaxBodySize size.Size
	ErrorPages        map[int]string
	Locations         []*LocationConfig
}

const defaultClientMaxBody = 1 * size.SizeMega

var defaultMethods = map[string]bool{"GET": true, "POST": true, "DELETE": true}

// Materialize projects a parsed+validated directive tree into typed
// server records. Location fields inherit from their server when not
// overridden (root, client_max_body_size, index_files), and locations are
// sorted by descending route length so the router's longest-prefix match
// (spec.md §4.6) is a simple ordered linear scan.
func Materialize(tree []*Directive) ([]*ServerConfig, error) {
	var servers []*ServerConfig

	for _, d := range tree {
		if d.Name != "server" {
			return nil, liberr.NewConfigError(liberr.ConfigValid, d.Line, d.Col, "only \"server\" directives are legal at top level")
		}
		sc, err := materializeServer(d)
		if err != nil {
			return nil, err
		}
		servers = append(servers, sc)
	}

	return servers, nil
}

func materializeServer(d *Directive) (*ServerConfig, error) {
	sc := &ServerConfig{
		Index:             []string{"index.html"},
		ClientMaxBodySize: defaultClientMaxBody,
		ErrorPages:        map[int]string{},
	}

	var locDirectives []*Directive

	for _, c := range d.Children {
		switch c.Name {
		case "listen":
			sc.Listen = c.Args[0]
			host, portStr, err := splitHostPort(c.Args[0])
			if err != nil {
				return nil, liberr.NewConfigError(liberr.ConfigValid, c.Line, c.Col, err.Error())
			}
			sc.Host = host
			sc.Port = mustAtoi(portStr)
		case "server_name":
			sc.ServerNames = append(sc.ServerNames, c.Args...)
		case "root":
			sc.Root = c.Args[0]
		case "index":
			sc.Index = append([]string(nil), c.Args...)
		case "client_max_body_size":
			sz, err := size.Parse(c.Args[0])
			if err != nil {
				return nil, liberr.NewConfigError(liberr.ConfigValid, c.Line, c.Col, err.Error())
			}
			sc.ClientMaxBodySize = sz
		case "error_page":
			code := mustAtoi(c.Args[0])
			sc.ErrorPages[code] = c.Args[1]
		case "location":
			locDirectives = append(locDirectives, c)
		}
	}

	if sc.Listen == "" {
		return nil, liberr.NewConfigError(liberr.ConfigValid, d.Line, d.Col, "server block is missing a \"listen\" directive")
	}

	for _, c := range locDirectives {
		lc, err := materializeLocation(c, sc)
		if err != nil {
			return nil, err
		}
		sc.Locations = append(sc.Locations, lc)
	}

	sortLocationsByPrefixLength(sc.Locations)

	return sc, nil
}

func materializeLocation(d *Directive, sc *ServerConfig) (*LocationConfig, error) {
	lc := &LocationConfig{
		Route:             d.Args[0],
		Root:              sc.Root,
		Index:             sc.Index,
		ClientMaxBodySize: sc.ClientMaxBodySize,
	}

	if lc.Route == "" || lc.Route[0] != '/' {
		return nil, liberr.NewConfigError(liberr.ConfigValid, d.Line, d.Col, "location route must begin with \"/\"")
	}

	for _, c := range d.Children {
		switch c.Name {
		case "root":
			lc.Root = c.Args[0]
		case "index":
			lc.Index = append([]string(nil), c.Args...)
		case "methods":
			lc.Methods = map[string]bool{}
			for _, m := range c.Args {
				lc.Methods[strings.ToUpper(m)] = true
			}
		case "autoindex":
			lc.Autoindex = c.Args[0] == "on"
		case "client_max_body_size":
			sz, err := size.Parse(c.Args[0])
			if err != nil {
				return nil, liberr.NewConfigError(liberr.ConfigValid, c.Line, c.Col, err.Error())
			}
			lc.ClientMaxBodySize = sz
		case "upload_store":
			lc.UploadStore = c.Args[0]
		case "cgi_pass":
			lc.CgiPass = c.Args[0]
		case "return":
			lc.Redirect = &Redirect{Code: mustAtoi(c.Args[0]), URL: c.Args[1]}
		}
	}

	if lc.Methods == nil {
		lc.Methods = defaultMethods
	}

	return lc, nil
}

func sortLocationsByPrefixLength(locs []*LocationConfig) {
	// Stable insertion sort: descending route length, ties keep
	// declaration order (spec.md §4.6 tie-break).
	for i := 1; i < len(locs); i++ {
		j := i
		for j > 0 && len(locs[j].Route) > len(locs[j-1].Route) {
			locs[j], locs[j-1] = locs[j-1], locs[j]
			j--
		}
	}
}

func splitHostPort(s string) (host, port string, err error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return "", "", strconv.ErrSyntax
	}
	return s[:idx], s[idx+1:], nil
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
