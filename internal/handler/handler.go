// Package handler orchestrates GET/POST/DELETE semantics once the router
// has produced a match: directory listings, static file responses,
// uploads, redirects and error pages. CGI matches are handed off to the
// caller (the connection state machine owns the CgiCoordinator) rather
// than handled here.
package handler

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	liberr "github.com/nabbar/webserv/internal/errors"
	"github.com/nabbar/webserv/internal/httpparser"
	"github.com/nabbar/webserv/internal/httpresponse"
	"github.com/nabbar/webserv/internal/logging"
	"github.com/nabbar/webserv/internal/router"
)

// Handler turns a completed request plus its RouteMatch into a populated
// Response. It holds no per-connection state; one Handler is shared by
// every connection.
type Handler struct {
	log logging.Logger
}

// New builds a Handler that logs through log.
func New(log logging.Logger) *Handler {
	return &Handler{log: log}
}

// KeepAlive computes the connection-persistence decision from the
// request's version and Connection header: HTTP/1.1 keeps the connection
// alive unless the client asked for close; HTTP/1.0 closes unless the
// client explicitly asked to keep it alive.
func KeepAlive(req *httpparser.Request) bool {
	conn := strings.ToLower(strings.TrimSpace(req.Headers["connection"]))
	if req.Version == "HTTP/1.1" {
		return conn != "close"
	}
	return conn == "keep-alive"
}

// Handle populates resp for a completed, routed request. It returns
// (handledHere, error): handledHere is false only when m.IsCGI, meaning
// the connection state machine must hand the request to a CgiCoordinator
// instead.
func (h *Handler) Handle(m *router.RouteMatch, req *httpparser.Request, resp *httpresponse.Response) (handled bool, err error) {
	if m.IsCGI {
		return false, nil
	}

	if m.Escaped {
		h.writeError(m, resp, 403)
		return true, nil
	}
	if !m.Exists {
		h.writeError(m, resp, 404)
		return true, nil
	}
	if m.IsRedirect {
		resp.StartLine(m.Location.Redirect.Code)
		resp.AddHeader("Location", m.Location.Redirect.URL)
		resp.EndHeaders()
		return true, nil
	}
	if !m.MethodAllowed {
		h.writeError(m, resp, 405)
		return true, nil
	}

	switch req.Method {
	case "GET":
		h.handleGet(m, resp)
	case "POST":
		h.handlePost(m, req, resp)
	case "DELETE":
		h.handleDelete(m, resp)
	default:
		h.writeError(m, resp, 501)
	}
	return true, nil
}

func (h *Handler) handleGet(m *router.RouteMatch, resp *httpresponse.Response) {
	if m.IsFile {
		if err := resp.AttachFile(m.ResolvedPath); err != nil {
			h.writeError(m, resp, 404)
			return
		}
		resp.StartLine(200)
		resp.EndHeaders()
		return
	}

	if m.IsDirectory {
		for _, idx := range m.Location.Index {
			candidate := filepath.Join(m.ResolvedPath, idx)
			if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
				if err := resp.AttachFile(candidate); err == nil {
					resp.StartLine(200)
					resp.EndHeaders()
					return
				}
			}
		}
		if m.Location.Autoindex {
			h.writeAutoindex(m, resp)
			return
		}
		h.writeError(m, resp, 403)
		return
	}

	h.writeError(m, resp, 404)
}

// writeAutoindex builds a minimal HTML directory listing, entries sorted
// lexicographically with a trailing "/" on sub-directories.
func (h *Handler) writeAutoindex(m *router.RouteMatch, resp *httpresponse.Response) {
	entries, err := os.ReadDir(m.ResolvedPath)
	if err != nil {
		h.writeError(m, resp, 403)
		return
	}

	names := make([]string, 0, len(entries))
	isDir := map[string]bool{}
	for _, e := range entries {
		n := e.Name()
		names = append(names, n)
		isDir[n] = e.IsDir()
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("<html><head><title>Index</title></head><body><ul>\n")
	for _, n := range names {
		label := n
		if isDir[n] {
			label += "/"
		}
		fmt.Fprintf(&sb, "<li><a href=\"%s\">%s</a></li>\n", label, label)
	}
	sb.WriteString("</ul></body></html>\n")

	resp.StartLine(200)
	resp.FeedRaw([]byte(sb.String()))
	resp.EndHeaders()
}

func (h *Handler) handlePost(m *router.RouteMatch, req *httpparser.Request, resp *httpresponse.Response) {
	if m.Location.UploadStore == "" {
		h.writeError(m, resp, 405)
		return
	}

	name := path.Base(req.Path)
	if name == "" || name == "." || name == "/" || strings.HasSuffix(req.Path, "/") {
		h.writeError(m, resp, 405)
		return
	}

	body := make([]byte, req.Body.Size())
	req.Body.Peek(body)

	dest := filepath.Join(m.Location.UploadStore, name)
	tmp := dest + ".uploading"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		h.log.WithFields(logging.Fields{"path": dest}).Error("upload write failed: " + err.Error())
		h.writeError(m, resp, 500)
		return
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		h.writeError(m, resp, 500)
		return
	}

	resp.StartLine(201)
	resp.AddHeader("Location", req.Path)
	resp.EndHeaders()
}

func (h *Handler) handleDelete(m *router.RouteMatch, resp *httpresponse.Response) {
	if m.IsDirectory {
		h.writeError(m, resp, 403)
		return
	}
	if !m.IsFile {
		h.writeError(m, resp, 404)
		return
	}
	if err := os.Remove(m.ResolvedPath); err != nil {
		h.writeError(m, resp, 500)
		return
	}
	resp.StartLine(204)
	resp.EndHeaders()
}

// writeError attaches the server's configured error page for code, or a
// minimal built-in HTML body when none is configured.
func (h *Handler) writeError(m *router.RouteMatch, resp *httpresponse.Response, code int) {
	if m.Server != nil {
		if p, ok := m.Server.ErrorPages[code]; ok {
			if err := resp.AttachFile(p); err == nil {
				resp.StartLine(code)
				resp.EndHeaders()
				return
			}
		}
	}

	resp.StartLine(code)
	body := fmt.Sprintf("<html><body><h1>%d %s</h1></body></html>\n", code, httpresponse.Reason(code))
	resp.FeedRaw([]byte(body))
	resp.EndHeaders()
}

// errCodeToStatus maps an internal liberr.Code to the HTTP status it
// represents, for callers translating a parser/router error into a
// response without a RouteMatch on hand (e.g. PARSE_ERROR).
func errCodeToStatus(c liberr.Code) int {
	switch c {
	case liberr.BadRequest:
		return 400
	case liberr.Forbidden:
		return 403
	case liberr.NotFound:
		return 404
	case liberr.MethodNA:
		return 405
	case liberr.BodyTooBig:
		return 413
	case liberr.HeaderSize:
		return 431
	case liberr.NotImpl:
		return 501
	case liberr.BadGateway:
		return 502
	default:
		return 500
	}
}

// WriteRawError builds a bare status response with no RouteMatch context,
// used for parse errors the router never got a chance to see.
func WriteRawError(resp *httpresponse.Response, code liberr.Code) {
	status := errCodeToStatus(code)
	resp.StartLine(status)
	body := fmt.Sprintf("<html><body><h1>%d %s</h1></body></html>\n", status, httpresponse.Reason(status))
	resp.FeedRaw([]byte(body))
	resp.EndHeaders()
}
