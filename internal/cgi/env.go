// Package cgi implements classic CGI/1.1 subprocess coordination: fork
// plus exec of the configured interpreter, pipe plumbing registered with
// the reactor, environment variable assembly, and a CGI-mode output
// parser that turns the child's headers-then-body reply into response
// bytes.
package cgi

import (
	"fmt"
	"strings"

	"github.com/nabbar/webserv/internal/httpparser"
	"github.com/nabbar/webserv/internal/router"
)

// BuildEnv assembles the CGI/1.1 environment for one invocation: the
// fixed gateway variables, CONTENT_LENGTH/CONTENT_TYPE when present, and
// one HTTP_<NAME> per remaining request header.
func BuildEnv(req *httpparser.Request, m *router.RouteMatch, serverSoftware string) []string {
	env := []string{
		"GATEWAY_INTERFACE=CGI/1.1",
		"SERVER_PROTOCOL=" + req.Version,
		"REQUEST_METHOD=" + req.Method,
		"SCRIPT_NAME=" + m.Location.Route,
		"SCRIPT_FILENAME=" + m.ResolvedPath,
		"QUERY_STRING=" + req.Query,
		"SERVER_NAME=" + m.Server.Host,
		"SERVER_PORT=" + fmt.Sprintf("%d", m.Server.Port),
		"SERVER_SOFTWARE=" + serverSoftware,
	}

	if cl, ok := req.Headers["content-length"]; ok {
		env = append(env, "CONTENT_LENGTH="+cl)
	}
	if ct, ok := req.Headers["content-type"]; ok {
		env = append(env, "CONTENT_TYPE="+ct)
	}

	for k, v := range req.Headers {
		if k == "content-length" || k == "content-type" {
			continue
		}
		name := "HTTP_" + strings.ToUpper(strings.ReplaceAll(k, "-", "_"))
		env = append(env, name+"="+v)
	}

	return env
}
