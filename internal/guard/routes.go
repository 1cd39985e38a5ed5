package guard

import (
	"sort"
	"strings"
	"sync"
)

// Routes is the registry of known route patterns and their page-level
// overrides. A pattern is either an exact path ("/dashboard") or a
// prefix wildcard ("/admin/*"). The most specific match wins: exact
// before wildcard, longer wildcard before shorter.
type Routes struct {
	mu        sync.RWMutex
	exact     map[string]Override
	wildcards map[string]Override // key is the prefix without the "*"
}

// NewRoutes creates an empty registry.
func NewRoutes() *Routes {
	return &Routes{
		exact:     make(map[string]Override),
		wildcards: make(map[string]Override),
	}
}

// Register adds a known route with no override.
func (r *Routes) Register(pattern string) {
	r.SetOverride(pattern, OverrideNone)
}

// SetOverride adds a route with a page-level override. Registering the
// same pattern twice replaces the earlier override.
func (r *Routes) SetOverride(pattern string, ov Override) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		r.wildcards[prefix] = ov
		return
	}
	r.exact[normalize(pattern)] = ov
}

// SetAuth records the boolean page annotation form: true forces
// authentication, false exempts the page.
func (r *Routes) SetAuth(pattern string, auth bool) {
	if auth {
		r.SetOverride(pattern, OverrideRequired)
	} else {
		r.SetOverride(pattern, OverridePublic)
	}
}

// Resolve looks up a navigation target. exists reports whether any
// registered pattern matches; ov is the matched pattern's override.
func (r *Routes) Resolve(path string) (exists bool, ov Override) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path = normalize(path)

	if ov, ok := r.exact[path]; ok {
		return true, ov
	}

	// Longest wildcard prefix wins.
	prefixes := make([]string, 0, len(r.wildcards))
	for p := range r.wildcards {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })

	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) || path+"/" == prefix {
			return true, r.wildcards[prefix]
		}
	}

	return false, OverrideNone
}

func normalize(path string) string {
	if path == "" {
		return "/"
	}
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
