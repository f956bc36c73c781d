// Package redirector maps lowercase source paths to destinations, with an
// optional HTTP→HTTPS upgrade that takes priority over any mapping.
package redirector

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hearth-http/hearth/conncontext"
	"github.com/hearth-http/hearth/internal/strutil"
	"github.com/hearth-http/hearth/log"
	"github.com/hearth-http/hearth/status"
)

// Redirector is guarded by a single mutex; reads are the common case,
// writes (Add/Load) rare.
type Redirector struct {
	mu              sync.Mutex
	routes          map[string]string
	upgradeInsecure bool
}

// New returns an empty Redirector.
func New() *Redirector {
	return &Redirector{routes: make(map[string]string)}
}

// SetUpgradeInsecure toggles the HTTP→HTTPS upgrade rule.
func (r *Redirector) SetUpgradeInsecure(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upgradeInsecure = on
}

// Add inserts source → destination. Source must not begin or end with
// '/'; destination must begin with '/'.
func (r *Redirector) Add(source, destination string) error {
	if strings.HasPrefix(source, "/") || strings.HasSuffix(source, "/") {
		return fmt.Errorf("redirector: source path %q must not begin or end with '/'", source)
	}

	if !strings.HasPrefix(destination, "/") {
		return fmt.Errorf("redirector: destination %q must begin with '/'", destination)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[strutil.LowerASCIIString(source)] = destination

	return nil
}

// Load replaces the route table by reading "source dest" lines from r,
// one per line, whitespace-separated. Malformed lines are logged and
// skipped rather than aborting the whole load.
func (r *Redirector) Load(src io.Reader, logger *log.Sink) error {
	fresh := make(map[string]string)
	scanner := bufio.NewScanner(src)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			logger.Debug(fmt.Sprintf("redirects: skipping malformed line %q", line))
			continue
		}

		source, destination := fields[0], fields[1]

		if strings.HasPrefix(source, "/") || strings.HasSuffix(source, "/") {
			logger.Debug(fmt.Sprintf("redirects: skipping invalid source %q", source))
			continue
		}

		if !strings.HasPrefix(destination, "/") {
			logger.Debug(fmt.Sprintf("redirects: skipping invalid destination %q", destination))
			continue
		}

		fresh[strutil.LowerASCIIString(source)] = destination
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.routes = fresh
	r.mu.Unlock()

	return nil
}

// Resolve reports the redirect destination for req, if any, and whether
// the upgrade-insecure rule fired (which always wins over a mapping).
func (r *Redirector) Resolve(pathLower, hostWithoutPort, path string, localPort uint16) (location string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.upgradeInsecure && localPort == 80 {
		return fmt.Sprintf("https://%s/%s", hostWithoutPort, path), true
	}

	if dest, found := r.routes[pathLower]; found {
		return dest, true
	}

	return "", false
}

// TryHandle implements the redirector as a conditional handler: it reports
// whether it handled the request (having already written the response),
// so the launcher can fall through to the next handler when it didn't.
func (r *Redirector) TryHandle(ctx *conncontext.Context, localPort uint16) (bool, error) {
	location, ok := r.Resolve(ctx.Request.PathLower, ctx.Request.HostWithoutPort, ctx.Request.Path, localPort)
	if !ok {
		return false, nil
	}

	if err := ctx.Response.WithHeader("Location", location); err != nil {
		return true, err
	}

	return true, ctx.SendTextStatus("", status.MovedPermanently)
}
