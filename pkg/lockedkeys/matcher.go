package lockedkeys

import (
	"github.com/devtron-labs/dtconfig/pkg/document"
	"github.com/devtron-labs/dtconfig/pkg/jsonpath"
)

// Matcher decides whether a change at a given location touches a locked key.
type Matcher struct {
	allowed bool
	paths   []jsonpath.Path
}

// NewMatcher compiles the paths of cfg.
func NewMatcher(cfg Config) (*Matcher, error) {
	m := &Matcher{allowed: cfg.Allowed}
	for _, expr := range cfg.Paths {
		p, err := jsonpath.Parse(expr)
		if err != nil {
			return nil, err
		}
		m.paths = append(m.paths, p)
	}
	return m, nil
}

// Locks is a Matcher bound to concrete documents.
type Locks struct {
	allowed  bool
	pointers [][]string
}

// Bind evaluates the matcher's paths against every given document. Binding
// against both the unedited and the edited document catches keys that were
// added as well as keys that were removed.
func (m *Matcher) Bind(docs ...*document.Node) *Locks {
	l := &Locks{allowed: m.allowed}
	seen := map[string]struct{}{}
	for _, doc := range docs {
		for _, p := range m.paths {
			for _, match := range p.Find(doc) {
				if _, ok := seen[match.Pointer]; ok {
					continue
				}
				seen[match.Pointer] = struct{}{}
				l.pointers = append(l.pointers, match.Tokens)
			}
		}
	}
	return l
}

// IsLocked reports whether a change at pointer is forbidden.
//
// With a deny-list, a change is locked when it is at, above or below a
// locked location. With an allow-list, a change is locked unless it is at or
// below an allowed location.
func (l *Locks) IsLocked(pointer string) bool {
	tokens, err := document.ParsePointer(pointer)
	if err != nil {
		return true
	}
	if l.allowed {
		for _, p := range l.pointers {
			if document.HasPointerPrefix(tokens, p) {
				return false
			}
		}
		return true
	}
	for _, p := range l.pointers {
		if document.HasPointerPrefix(tokens, p) || document.HasPointerPrefix(p, tokens) {
			return true
		}
	}
	return false
}
