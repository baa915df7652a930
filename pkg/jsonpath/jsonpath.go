// Package jsonpath evaluates the small JSONPath dialect used to name locked
// configuration keys against ordered documents.
//
// Supported forms:
//
//	$.a.b          child members
//	a.b            the leading "$" is optional
//	$['a.b']["c"]  quoted members, for keys holding dots or brackets
//	a[0] a[-1]     sequence indices, negative values count from the end
//	a.* a[*]       every member of a mapping or item of a sequence
//	$..name        recursive descent
package jsonpath

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/devtron-labs/dtconfig/pkg/document"
)

type segmentKind int

const (
	segmentKey segmentKind = iota
	segmentIndex
	segmentWildcard
	segmentDescent
)

type segment struct {
	kind  segmentKind
	key   string
	index int
}

// Path is a parsed JSONPath expression.
type Path struct {
	expr     string
	segments []segment
}

// Match is a single concrete location selected by a Path.
type Match struct {
	// Pointer is the RFC 6901 pointer of the match.
	Pointer string
	// Tokens are the unescaped reference tokens of Pointer.
	Tokens []string
	Node   *document.Node
}

// Parse parses expr.
func Parse(expr string) (Path, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return Path{}, fmt.Errorf("empty path")
	}
	s = strings.TrimPrefix(s, "$")
	if s != "" && s[0] != '.' && s[0] != '[' {
		s = "." + s
	}
	p := Path{expr: expr}
	for i := 0; i < len(s); {
		switch s[i] {
		case '.':
			if strings.HasPrefix(s[i:], "..") {
				p.segments = append(p.segments, segment{kind: segmentDescent})
				i += 2
				if i < len(s) && s[i] == '[' {
					continue
				}
			} else {
				i++
			}
			name, n := readName(s[i:])
			if n == 0 {
				return Path{}, fmt.Errorf("invalid path %q: empty member name at offset %d", expr, i)
			}
			p.segments = append(p.segments, nameSegment(name))
			i += n
		case '[':
			seg, n, err := readBracket(s[i:])
			if err != nil {
				return Path{}, fmt.Errorf("invalid path %q: %w", expr, err)
			}
			p.segments = append(p.segments, seg)
			i += n
		default:
			return Path{}, fmt.Errorf("invalid path %q: unexpected %q at offset %d", expr, s[i], i)
		}
	}
	if l := len(p.segments); l > 0 && p.segments[l-1].kind == segmentDescent {
		return Path{}, fmt.Errorf("invalid path %q: recursive descent needs a selector", expr)
	}
	return p, nil
}

// MustParse is like Parse but panics on error.
func MustParse(expr string) Path {
	p, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the expression the path was parsed from.
func (p Path) String() string {
	return p.expr
}

// Find returns every location in root selected by the path, in document
// order and without duplicates.
func (p Path) Find(root *document.Node) []Match {
	if root == nil {
		return nil
	}
	current := []Match{{Pointer: "", Node: root}}
	for _, seg := range p.segments {
		var next []Match
		for _, m := range current {
			next = append(next, step(m, seg)...)
		}
		current = dedupe(next)
		if len(current) == 0 {
			return nil
		}
	}
	for i := range current {
		current[i].Tokens, _ = document.ParsePointer(current[i].Pointer)
	}
	return current
}

func step(m Match, seg segment) []Match {
	n := m.Node
	for n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	switch seg.kind {
	case segmentKey:
		if n.Kind != yaml.MappingNode {
			return nil
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == seg.key {
				return []Match{{
					Pointer: document.AppendPointer(m.Pointer, seg.key),
					Node:    n.Content[i+1],
				}}
			}
		}
	case segmentIndex:
		if n.Kind != yaml.SequenceNode {
			return nil
		}
		idx := seg.index
		if idx < 0 {
			idx += len(n.Content)
		}
		if idx < 0 || idx >= len(n.Content) {
			return nil
		}
		return []Match{{
			Pointer: document.AppendPointer(m.Pointer, strconv.Itoa(idx)),
			Node:    n.Content[idx],
		}}
	case segmentWildcard:
		return children(m)
	case segmentDescent:
		return descendants(m)
	}
	return nil
}

func children(m Match) []Match {
	n := m.Node
	var out []Match
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			out = append(out, Match{
				Pointer: document.AppendPointer(m.Pointer, n.Content[i].Value),
				Node:    n.Content[i+1],
			})
		}
	case yaml.SequenceNode:
		for i, item := range n.Content {
			out = append(out, Match{
				Pointer: document.AppendPointer(m.Pointer, strconv.Itoa(i)),
				Node:    item,
			})
		}
	}
	return out
}

// descendants returns m followed by every node below it in pre-order.
func descendants(m Match) []Match {
	out := []Match{m}
	for _, c := range children(m) {
		out = append(out, descendants(c)...)
	}
	return out
}

func dedupe(matches []Match) []Match {
	seen := make(map[string]struct{}, len(matches))
	out := matches[:0]
	for _, m := range matches {
		if _, ok := seen[m.Pointer]; ok {
			continue
		}
		seen[m.Pointer] = struct{}{}
		out = append(out, m)
	}
	return out
}

func nameSegment(name string) segment {
	if name == "*" {
		return segment{kind: segmentWildcard}
	}
	return segment{kind: segmentKey, key: name}
}

func readName(s string) (string, int) {
	i := strings.IndexAny(s, ".[")
	if i < 0 {
		return s, len(s)
	}
	return s[:i], i
}

func readBracket(s string) (segment, int, error) {
	if len(s) < 2 {
		return segment{}, 0, fmt.Errorf("unterminated bracket")
	}
	if q := s[1]; q == '\'' || q == '"' {
		var sb strings.Builder
		for i := 2; i < len(s); i++ {
			switch s[i] {
			case '\\':
				if i+1 < len(s) {
					i++
					sb.WriteByte(s[i])
				}
			case q:
				if i+1 >= len(s) || s[i+1] != ']' {
					return segment{}, 0, fmt.Errorf("expected ] after quoted member")
				}
				return segment{kind: segmentKey, key: sb.String()}, i + 2, nil
			default:
				sb.WriteByte(s[i])
			}
		}
		return segment{}, 0, fmt.Errorf("unterminated quoted member")
	}
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return segment{}, 0, fmt.Errorf("unterminated bracket")
	}
	inner := strings.TrimSpace(s[1:end])
	if inner == "*" {
		return segment{kind: segmentWildcard}, end + 1, nil
	}
	idx, err := strconv.Atoi(inner)
	if err != nil {
		return segment{}, 0, fmt.Errorf("invalid index %q", inner)
	}
	return segment{kind: segmentIndex, index: idx}, end + 1, nil
}
