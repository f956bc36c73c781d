package request

import (
	"strconv"
	"strings"

	"github.com/hearth-http/hearth/errors"
	"github.com/hearth-http/hearth/httpmethod"
	"github.com/hearth-http/hearth/internal/strutil"
	"github.com/hearth-http/hearth/status"
)

// Reset clears r so it can be reused for the next request on a keep-alive
// connection, without reallocating its maps.
func (r *Request) Reset() {
	r.Method = httpmethod.Unknown
	r.Major, r.Minor = 0, 0
	r.Path, r.PathLower, r.Extension, r.Fragment = "", "", "", ""
	r.Query = r.Query.Reset()
	r.Cookies = r.Cookies.Reset()
	r.Headers = r.Headers.Reset()
	r.Host, r.HostWithoutPort = "", ""
	r.Connection, r.Referer, r.AcceptEncoding = "", "", ""
	r.ContentLength = -1
	r.IsWebsocket = false
}

// Parse fills r from raw, a buffer spanning the method up to and including
// the terminating CRLF CRLF. On any validation failure it returns a
// *errors.Protocol and leaves r in an unspecified, never-escaping state.
func Parse(r *Request, raw []byte) error {
	if err := validateBytes(raw); err != nil {
		return err
	}

	text := string(raw)
	text = strings.TrimRight(text, "\r\n")

	lines := splitLines(text)
	if len(lines) == 0 {
		return errors.NewProtocol(status.BadRequest, "empty request")
	}

	if err := parseRequestLine(r, lines[0]); err != nil {
		return err
	}

	for _, line := range lines[1:] {
		if err := parseHeaderLine(r, line); err != nil {
			return err
		}
	}

	if idx := strings.IndexByte(r.Host, ':'); idx >= 0 {
		r.HostWithoutPort = r.Host[:idx]
	} else {
		r.HostWithoutPort = r.Host
	}

	r.IsWebsocket = isWebsocketUpgrade(r)

	return nil
}

func validateBytes(raw []byte) error {
	for _, b := range raw {
		if !strutil.IsASCIIPrintable(b) {
			return errors.NewProtocol(status.BadRequest, "invalid byte in request")
		}
	}

	return nil
}

func splitLines(text string) []string {
	rawLines := strings.Split(text, "\r\n")
	lines := make([]string, 0, len(rawLines))

	for _, line := range rawLines {
		if len(line) == 0 {
			continue
		}

		lines = append(lines, line)
	}

	return lines
}

func parseRequestLine(r *Request, line string) error {
	tokens := strings.Split(line, " ")
	if len(tokens) != 3 {
		return errors.NewProtocol(status.BadRequest, "malformed request line")
	}

	method := httpmethod.Parse(tokens[0])
	if !method.Valid() {
		return errors.NewProtocol(status.NotImplemented, "unsupported method")
	}

	r.Method = method

	if err := parseTarget(r, tokens[1]); err != nil {
		return err
	}

	return parseVersion(r, tokens[2])
}

func parseTarget(r *Request, target string) error {
	path := target

	if idx := strings.IndexByte(path, '#'); idx >= 0 {
		r.Fragment = path[idx+1:]
		path = path[:idx]
	}

	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		parseQuery(r, path[idx+1:])
		path = path[:idx]
	}

	r.Path = strutil.TrimSlashes(path)
	r.PathLower = strutil.LowerASCIIString(r.Path)
	r.Extension = extensionOf(r.Path)

	return nil
}

func extensionOf(path string) string {
	segment := path
	if idx := strings.LastIndexByte(segment, '/'); idx >= 0 {
		segment = segment[idx+1:]
	}

	idx := strings.LastIndexByte(segment, '.')
	if idx < 0 {
		return ""
	}

	return strutil.LowerASCIIString(segment[idx+1:])
}

func parseQuery(r *Request, raw string) {
	if raw == "" {
		return
	}

	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}

		if idx := strings.IndexByte(pair, '='); idx >= 0 {
			r.Query.Set(pair[:idx], pair[idx+1:])
		} else {
			r.Query.Set(pair, "")
		}
	}
}

func parseVersion(r *Request, token string) error {
	const prefix = "HTTP/"

	if !strings.HasPrefix(token, prefix) {
		return errors.NewProtocol(status.BadRequest, "malformed protocol token")
	}

	version := token[len(prefix):]
	dot := strings.IndexByte(version, '.')
	if dot < 0 {
		return errors.NewProtocol(status.BadRequest, "malformed protocol version")
	}

	major, err := strconv.Atoi(version[:dot])
	if err != nil {
		return errors.NewProtocol(status.BadRequest, "malformed protocol major version")
	}

	minor, err := strconv.Atoi(version[dot+1:])
	if err != nil {
		return errors.NewProtocol(status.BadRequest, "malformed protocol minor version")
	}

	if major != 1 {
		return errors.NewProtocol(status.HTTPVersionNotSupported, "unsupported HTTP major version")
	}

	r.Major, r.Minor = major, minor

	return nil
}

func parseHeaderLine(r *Request, line string) error {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return errors.NewProtocol(status.BadRequest, "malformed header field")
	}

	key := strutil.LowerASCIIString(strings.TrimSpace(line[:idx]))
	value := strings.TrimSpace(line[idx+1:])

	switch key {
	case "cookie":
		parseCookies(r, value)
	case "host":
		r.Host = value
	case "accept-encoding":
		r.AcceptEncoding = strutil.LowerASCIIString(value)
	case "content-length":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			r.ContentLength = 0
		} else {
			r.ContentLength = n
		}
	case "connection":
		r.Connection = strutil.LowerASCIIString(value)
	case "referer":
		r.Referer = value
	default:
		r.Headers.Set(key, value)
	}

	return nil
}

func parseCookies(r *Request, value string) {
	for _, pair := range strings.Split(value, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		if idx := strings.IndexByte(pair, '='); idx >= 0 {
			r.Cookies.Set(strings.TrimSpace(pair[:idx]), strings.TrimSpace(pair[idx+1:]))
		} else {
			r.Cookies.Set(pair, "")
		}
	}
}

func isWebsocketUpgrade(r *Request) bool {
	if !strings.Contains(r.Connection, "upgrade") {
		return false
	}

	upgrade := strutil.LowerASCIIString(r.Headers.Value("upgrade"))
	if upgrade != "websocket" {
		return false
	}

	version, err := strconv.Atoi(r.Headers.Value("sec-websocket-version"))
	if err != nil {
		return false
	}

	return version >= 13
}
