package httpresponse

var reason = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	301: "Moved Permanently",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	413: "Payload Too Large",
	431: "Request Header Fields Too Large",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
}

// Reason returns the standard reason phrase for code, or "Unknown" for a
// code this table doesn't carry.
func Reason(code int) string {
	if r, ok := reason[code]; ok {
		return r
	}
	return "Unknown"
}
