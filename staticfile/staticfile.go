// Package staticfile implements the static-file handler: path resolution,
// cache coherence with the filesystem, gzip/brotli compression variants,
// and single-pass "#include" template expansion.
package staticfile

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hearth-http/hearth/coding"
	"github.com/hearth-http/hearth/conncontext"
	"github.com/hearth-http/hearth/errors"
	"github.com/hearth-http/hearth/httpmethod"
	"github.com/hearth-http/hearth/log"
	"github.com/hearth-http/hearth/status"
)

// Server serves files rooted at Root, with cache coherence and on-the-fly
// gzip compression. The zero value is not usable; construct with New.
type Server struct {
	root string
	log  *log.Sink

	mu    sync.Mutex
	cache map[string]*entry

	templateExt     extensionSet
	compressibleExt extensionSet
	startDelim      string
	endDelim        string
	defaultFileName string
	defaultFileExt  string
}

// New returns a Server rooted at an absolute path derived from root, with
// the spec's defaults: template-enabled {html, htm}, compressible
// {html, htm, css, js, svg, json, txt, xml}, delimiters "${{"/"}}",
// default file "index", default extension "html".
func New(root string, logger *log.Sink) (*Server, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	return &Server{
		root:            abs,
		log:             logger,
		cache:           make(map[string]*entry),
		templateExt:     parseExtensionSet(defaultTemplateExtensions),
		compressibleExt: parseExtensionSet(defaultCompressibleExtensions),
		startDelim:      "${{",
		endDelim:        "}}",
		defaultFileName: "index",
		defaultFileExt:  "html",
	}, nil
}

// SetTemplateExtensions rebuilds the template-enabled extension set and
// invalidates the entire cache.
func (s *Server) SetTemplateExtensions(csv string) {
	s.mu.Lock()
	s.templateExt = parseExtensionSet(csv)
	s.cache = make(map[string]*entry)
	s.mu.Unlock()
}

// SetCompressibleExtensions rebuilds the compressible extension set and
// invalidates the entire cache.
func (s *Server) SetCompressibleExtensions(csv string) {
	s.mu.Lock()
	s.compressibleExt = parseExtensionSet(csv)
	s.cache = make(map[string]*entry)
	s.mu.Unlock()
}

// SetTemplateDelimiters reassigns the include-directive delimiters and
// invalidates the entire cache.
func (s *Server) SetTemplateDelimiters(start, end string) {
	s.mu.Lock()
	s.startDelim, s.endDelim = start, end
	s.cache = make(map[string]*entry)
	s.mu.Unlock()
}

// SetDefaultFile reassigns the directory-resolution defaults and
// invalidates the entire cache.
func (s *Server) SetDefaultFile(name, extension string) {
	s.mu.Lock()
	s.defaultFileName, s.defaultFileExt = name, extension
	s.cache = make(map[string]*entry)
	s.mu.Unlock()
}

// Handle is the handler-shaped entry point installed by the launcher.
func (s *Server) Handle(ctx *conncontext.Context) error {
	req := ctx.Request

	if err := ctx.Response.WithHeader("Cross-Origin-Opener-Policy", "same-origin"); err != nil {
		return err
	}

	if err := ctx.Response.WithHeader("Cross-Origin-Embedder-Policy", "require-corp"); err != nil {
		return err
	}

	if req.Method != httpmethod.GET {
		return ctx.SendTextStatus("Invalid HTTP request: Only GET method is allowed for serving", status.MethodNotAllowed)
	}

	if !pathSafe(req.Path) {
		return ctx.SendTextStatus("Invalid Request: File name is invalid", status.BadRequest)
	}

	if err := s.updateCache(req.Path); err != nil {
		return err
	}

	acceptGzip, acceptBrotli := parseAcceptEncoding(req.AcceptEncoding)

	s.mu.Lock()
	canonical, found := s.cache[req.Path]
	var brotli, gzipEntry *entry
	if found {
		brotli = s.cache[req.Path+".br"]
		gzipEntry = s.cache[req.Path+".gz"]
	}
	s.mu.Unlock()

	if !found {
		return ctx.SendTextStatus("Not Found", status.NotFound)
	}

	canonical.hit()

	if ct := contentTypeFor(canonical.extension); ct != "" {
		if err := ctx.Response.WithContentType(ct); err != nil {
			return err
		}
	}

	switch {
	case acceptBrotli && brotli != nil:
		if err := ctx.Response.WithContentEncoding("br"); err != nil {
			return err
		}

		return ctx.SendResponse(brotli.uncompressed)
	case acceptGzip && gzipEntry != nil:
		if err := ctx.Response.WithContentEncoding("gzip"); err != nil {
			return err
		}

		return ctx.SendResponse(gzipEntry.uncompressed)
	default:
		return ctx.SendResponse(canonical.uncompressed)
	}
}

// pathSafe rejects the constructs spec.md §4.7 names outright: "..", "//",
// backslash, a leading '.', or "/." anywhere in the path.
func pathSafe(path string) bool {
	if strings.Contains(path, "..") {
		return false
	}

	if strings.Contains(path, "//") {
		return false
	}

	if strings.Contains(path, "\\") {
		return false
	}

	if strings.HasPrefix(path, ".") {
		return false
	}

	if strings.Contains(path, "/.") {
		return false
	}

	return true
}

func parseAcceptEncoding(header string) (gzip, brotli bool) {
	for _, token := range strings.Split(header, ",") {
		token = strings.TrimSpace(token)
		if idx := strings.IndexByte(token, ';'); idx >= 0 {
			token = token[:idx]
		}

		switch token {
		case "gzip":
			gzip = true
		case "br":
			brotli = true
		}
	}

	return gzip, brotli
}

// updateCache is the cache-coherence protocol of spec.md §4.7.
func (s *Server) updateCache(httpPath string) error {
	s.mu.Lock()
	existing, found := s.cache[httpPath]
	s.mu.Unlock()

	if found {
		info, err := os.Stat(existing.canonicalPath)
		if err == nil && info.ModTime().Equal(existing.modTime) {
			return nil
		}

		s.evict(httpPath)
	}

	diskPath, ok := s.resolve(httpPath)
	if !ok {
		return nil
	}

	return s.load(httpPath, diskPath)
}

func (s *Server) evict(httpPath string) {
	s.mu.Lock()
	delete(s.cache, httpPath)
	delete(s.cache, httpPath+".gz")
	delete(s.cache, httpPath+".br")
	s.mu.Unlock()
}

// resolve tries the three candidate disk paths of spec.md §4.7 in order.
func (s *Server) resolve(httpPath string) (string, bool) {
	s.mu.Lock()
	defaultName, defaultExt := s.defaultFileName, s.defaultFileExt
	s.mu.Unlock()

	direct := filepath.Join(s.root, httpPath)
	if fileExists(direct) {
		return direct, true
	}

	directoryStyle := filepath.Join(s.root, httpPath, defaultName)
	if fileExists(directoryStyle) {
		return directoryStyle, true
	}

	withExtension := filepath.Join(s.root, httpPath+"."+defaultExt)
	if fileExists(withExtension) {
		return withExtension, true
	}

	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// load reads diskPath, its .gz/.br siblings if present, runs template
// expansion when applicable, and inserts the resulting entries under the
// cache lock. File I/O happens outside the lock, per spec.md §5: two
// concurrent first loads of the same path may duplicate work, last write
// wins.
func (s *Server) load(httpPath, diskPath string) error {
	info, err := os.Stat(diskPath)
	if err != nil {
		return nil
	}

	data, err := os.ReadFile(diskPath)
	if err != nil {
		return errors.NewServer(err, 1)
	}

	extension := extensionOf(httpPath)

	s.mu.Lock()
	templateEnabled := s.templateExt.has(extension)
	compressible := s.compressibleExt.has(extension)
	s.mu.Unlock()

	if templateEnabled {
		expanded, err := s.expand(data)
		if err != nil {
			return err
		}

		data = expanded
	}

	loadedPrecompressed := false

	if brotli, ok := readSibling(diskPath + ".br"); ok {
		s.store(newEntry(diskPath+".br", httpPath+".br", extension, info.ModTime(), brotli))
		loadedPrecompressed = true
	}

	if gzipSibling, ok := readSibling(diskPath + ".gz"); ok {
		s.store(newEntry(diskPath+".gz", httpPath+".gz", extension, info.ModTime(), gzipSibling))
		loadedPrecompressed = true
	}

	s.store(newEntry(diskPath, httpPath, extension, info.ModTime(), data))

	if compressible && !loadedPrecompressed {
		coder := coding.NewGZIP()

		compressed, err := coder.Compress(data)
		if err == nil && len(compressed) < len(data) {
			s.store(newEntry(diskPath+".gz", httpPath+".gz", extension, info.ModTime(), append([]byte(nil), compressed...)))
		}
	}

	return nil
}

func readSibling(path string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	return data, true
}

func (s *Server) store(e *entry) {
	s.mu.Lock()
	s.cache[e.httpPath] = e
	s.mu.Unlock()
}

func extensionOf(httpPath string) string {
	segment := httpPath
	if idx := strings.LastIndexByte(segment, '/'); idx >= 0 {
		segment = segment[idx+1:]
	}

	idx := strings.LastIndexByte(segment, '.')
	if idx < 0 {
		return ""
	}

	return strings.ToLower(segment[idx+1:])
}

// Listing is one row of the admin/api/files endpoint.
type Listing struct {
	Path string `json:"path"`
	Hits int64  `json:"hits"`
	Size int    `json:"size"`
}

// Listing snapshots the current cache contents for the admin endpoint.
func (s *Server) Listing() []Listing {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Listing, 0, len(s.cache))
	for path, e := range s.cache {
		out = append(out, Listing{Path: path, Hits: e.Hits(), Size: len(e.uncompressed)})
	}

	return out
}
