package staticfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hearth-http/hearth/errors"
	"github.com/hearth-http/hearth/log"
)

// expand performs a single-pass, non-recursive template expansion: every
// occurrence of "startDelim ... endDelim" must contain exactly the
// directive "#include PATH", whose target is spliced in raw.
func (s *Server) expand(payload []byte) ([]byte, error) {
	var out bytes.Buffer

	rest := payload
	start := []byte(s.startDelim)
	end := []byte(s.endDelim)

	for {
		idx := bytes.Index(rest, start)
		if idx < 0 {
			out.Write(rest)
			break
		}

		out.Write(rest[:idx])
		rest = rest[idx+len(start):]

		endIdx := bytes.Index(rest, end)
		if endIdx < 0 {
			s.logger().Error(fmt.Sprintf("unterminated template start delimiter in %s", s.root), 0)
			out.Write(start)
			out.Write(rest)
			break
		}

		directive := strings.TrimSpace(string(rest[:endIdx]))
		rest = rest[endIdx+len(end):]

		included, err := s.resolveInclude(directive)
		if err != nil {
			return nil, err
		}

		out.Write(included)
	}

	return out.Bytes(), nil
}

func (s *Server) resolveInclude(directive string) ([]byte, error) {
	tokens := strings.Fields(directive)
	if len(tokens) != 2 || tokens[0] != "#include" {
		return nil, errors.NewServer(fmt.Errorf("unrecognized template directive: %q", directive), 1)
	}

	path := filepath.Join(s.root, tokens[1])

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewServer(fmt.Errorf("template include not found: %q", tokens[1]), 1)
	}

	return data, nil
}

func (s *Server) logger() *log.Sink {
	if s.log != nil {
		return s.log
	}

	return log.Default
}
