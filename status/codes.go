// Package status holds HTTP status codes and reason phrases as their own
// type, separate from net/http, so callers never collide importing both.
package status

// Code is an HTTP status code.
type Code uint16

// The subset of registered codes this server actually produces or
// understands on the wire.
const (
	Continue           Code = 100
	SwitchingProtocols Code = 101

	OK             Code = 200
	Created        Code = 201
	NoContent      Code = 204
	PartialContent Code = 206

	MultipleChoices   Code = 300
	MovedPermanently  Code = 301
	Found             Code = 302
	NotModified       Code = 304
	TemporaryRedirect Code = 307
	PermanentRedirect Code = 308

	BadRequest                  Code = 400
	Unauthorized                Code = 401
	Forbidden                   Code = 403
	NotFound                    Code = 404
	MethodNotAllowed            Code = 405
	RequestTimeout              Code = 408
	LengthRequired              Code = 411
	RequestEntityTooLarge       Code = 413
	URITooLong                  Code = 414
	UnsupportedMediaType        Code = 415
	UpgradeRequired             Code = 426
	RequestHeaderFieldsTooLarge Code = 431

	InternalServerError     Code = 500
	NotImplemented          Code = 501
	BadGateway              Code = 502
	ServiceUnavailable      Code = 503
	HTTPVersionNotSupported Code = 505
)

var reason = map[Code]string{
	Continue:           "Continue",
	SwitchingProtocols: "Switching Protocols",

	OK:             "OK",
	Created:        "Created",
	NoContent:      "No Content",
	PartialContent: "Partial Content",

	MultipleChoices:   "Multiple Choices",
	MovedPermanently:  "Moved Permanently",
	Found:             "Found",
	NotModified:       "Not Modified",
	TemporaryRedirect: "Temporary Redirect",
	PermanentRedirect: "Permanent Redirect",

	BadRequest:                  "Bad Request",
	Unauthorized:                "Unauthorized",
	Forbidden:                   "Forbidden",
	NotFound:                    "Not Found",
	MethodNotAllowed:            "Method Not Allowed",
	RequestTimeout:              "Request Timeout",
	LengthRequired:              "Length Required",
	RequestEntityTooLarge:       "Request Entity Too Large",
	URITooLong:                  "URI Too Long",
	UnsupportedMediaType:        "Unsupported Media Type",
	UpgradeRequired:             "Upgrade Required",
	RequestHeaderFieldsTooLarge: "Request Header Fields Too Large",

	InternalServerError:     "Internal Server Error",
	NotImplemented:          "Not Implemented",
	BadGateway:              "Bad Gateway",
	ServiceUnavailable:      "Service Unavailable",
	HTTPVersionNotSupported: "HTTP Version Not Supported",
}

// Text returns the reason phrase for code, or "Unknown" if unrecognized.
func Text(code Code) string {
	if phrase, ok := reason[code]; ok {
		return phrase
	}

	return "Unknown"
}
