package staticfile

import (
	"strings"

	"github.com/hearth-http/hearth/internal/strutil"
)

// extensionSet is derived from a ';'-separated string, lowercased, and
// rebuilt every time the source string is reassigned.
type extensionSet map[string]struct{}

func parseExtensionSet(csv string) extensionSet {
	set := make(extensionSet)

	for _, token := range strings.Split(csv, ";") {
		token = strutil.LowerASCIIString(strings.TrimSpace(token))
		if token == "" {
			continue
		}

		set[token] = struct{}{}
	}

	return set
}

func (s extensionSet) has(extension string) bool {
	_, ok := s[extension]
	return ok
}

const (
	defaultTemplateExtensions     = "html;htm"
	defaultCompressibleExtensions = "html;htm;css;js;svg;json;txt;xml"
)
