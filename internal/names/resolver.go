package names

import (
	"strings"
	"sync/atomic"
)

const (
	LangZH = "zh"
	LangEN = "en"
)

var DefaultSuffixes = []string{"_quick", "_pt", "_screen", "_minimap", "_unit", "_autocast"}

// Resolver is safe for concurrent use. Swap replaces the table atomically so
// a reload never blocks the frame path.
type Resolver struct {
	table    atomic.Pointer[Table]
	lang     string
	suffixes []string
}

func NewResolver(t Table, lang string, suffixes []string) *Resolver {
	if lang != LangEN {
		lang = LangZH
	}
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}
	r := &Resolver{lang: lang, suffixes: suffixes}
	r.Swap(t)
	return r
}

func (r *Resolver) Swap(t Table) {
	if t == nil {
		t = Table{}
	}
	r.table.Store(&t)
}

func (r *Resolver) Len() int {
	return len(*r.table.Load())
}

// Resolve never fails: an unknown identifier comes back with its suffixes
// stripped and underscores turned into spaces.
func (r *Resolver) Resolve(id string) string {
	if r == nil {
		return Clean(id, DefaultSuffixes)
	}
	t := *r.table.Load()
	if e, ok := t[id]; ok {
		if s := e.Text(r.lang); s != "" {
			return s
		}
	}

	stripped := Strip(id, r.suffixes)
	spaced := strings.ReplaceAll(stripped, "_", " ")
	for _, key := range []string{stripped, spaced} {
		if e, ok := t[key]; ok {
			if s := e.Text(r.lang); s != "" {
				return s
			}
		}
	}
	return spaced
}

// Strip removes trailing suffixes until none matches.
func Strip(id string, suffixes []string) string {
	for {
		trimmed := false
		for _, s := range suffixes {
			if s != "" && strings.HasSuffix(id, s) && len(id) > len(s) {
				id = strings.TrimSuffix(id, s)
				trimmed = true
			}
		}
		if !trimmed {
			return id
		}
	}
}

func Clean(id string, suffixes []string) string {
	return strings.ReplaceAll(Strip(id, suffixes), "_", " ")
}
