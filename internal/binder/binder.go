// internal/binder/binder.go
//
// Action parameter binding.
//
// Context
// -------
// An action declares the names of the parameters it wants filled from the
// request.  Bind turns that list into positional string arguments:
//
//   1. body value, when present and non-empty,
//   2. otherwise the query value, when present and non-empty,
//   3. otherwise "".
//
// Names may be declared directly or as signature text, e.g.
// `"(id, page /* 1-based */)"`.  ParseSignature strips comments before it
// reads the names, so a name that only appears inside a comment is never
// bound.  Parsed signatures are memoised in an LRU.
//
// Notes
// -----
// • Binding never fails; missing values degrade to "".
// • Oxford commas, two spaces after periods.
package binder

import (
	"regexp"
	"strings"

	"github.com/yanizio/conductor/internal/cache"
	"github.com/yanizio/conductor/internal/core"
)

var (
	commentRe = regexp.MustCompile(`(?m)(//.*$)|(/\*[\s\S]*?\*/)|(\s)`)
	paramsRe  = regexp.MustCompile(`^(?:func\s*[^(]*)?\(([^)]*)\)`)

	sigCache = cache.New(512)
)

// Bind returns one value per declared name, in declaration order.
// Zero names yield nil without touching rc.
func Bind(params []string, rc *core.Context) []string {
	if len(params) == 0 {
		return nil
	}
	out := make([]string, 0, len(params))
	for _, name := range params {
		out = append(out, rc.Param(name))
	}
	return out
}

// Params is ParseSignature with memoisation.  Callers must not modify the
// returned slice.
func Params(sig string) []string {
	if v, ok := sigCache.Get(sig); ok {
		return v.([]string)
	}
	names := ParseSignature(sig)
	sigCache.Add(sig, names)
	return names
}

// ParseSignature extracts parameter names from `func name(a, b)` or
// `(a, b)`.  Text without a parameter list yields nil.
func ParseSignature(sig string) []string {
	clean := commentRe.ReplaceAllString(sig, "")
	m := paramsRe.FindStringSubmatch(clean)
	if m == nil {
		return nil
	}
	var names []string
	for _, item := range strings.Split(m[1], ",") {
		if item != "" {
			names = append(names, item)
		}
	}
	return names
}
