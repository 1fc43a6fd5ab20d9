// Package mime is the out-of-scope "MIME-type table" collaborator spec.md
// names as an external interface the core consumes; a minimal built-in
// table is provided here so the response builder has something concrete
// to call, the way the teacher's components always carry a usable default
// rather than leaving a bare interface unimplemented.
package mime

import "strings"

var byExt = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".txt":  "text/plain; charset=utf-8",
	".xml":  "application/xml; charset=utf-8",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".wasm": "application/wasm",
}

const defaultType = "application/octet-stream"

// TypeByPath returns a Content-Type for path based on its extension, or
// the generic octet-stream type when the extension is unknown.
func TypeByPath(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return defaultType
	}
	if t, ok := byExt[strings.ToLower(path[i:])]; ok {
		return t
	}
	return defaultType
}
