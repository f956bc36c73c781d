package staticfile

// mimeTable is the minimum table required by spec.md §6. Unknown
// extensions simply get no Content-Type.
var mimeTable = map[string]string{
	"htm":   "text/html",
	"html":  "text/html",
	"jpg":   "image/jpeg",
	"jpeg":  "image/jpeg",
	"png":   "image/png",
	"gif":   "image/gif",
	"css":   "text/css",
	"js":    "application/javascript",
	"svg":   "image/svg+xml",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"mp3":   "audio/mpeg",
	"ogg":   "audio/ogg",
}

// contentTypeFor returns the MIME type for extension, or "" when unknown.
func contentTypeFor(extension string) string {
	return mimeTable[extension]
}
