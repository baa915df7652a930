package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"gopkg.in/yaml.v3"
)

// Node is a single node of an ordered structured document. Mapping nodes keep
// their keys in the order they were written, which is what allows a document
// to survive a GUI round trip without its keys being shuffled.
type Node = yaml.Node

const (
	tagMap  = "!!map"
	tagSeq  = "!!seq"
	tagNull = "!!null"
	tagStr  = "!!str"
)

// ErrNotMapping is returned when an operation requires a mapping node but was
// handed something else.
var ErrNotMapping = errors.New("document root is not a mapping")

// NewMapping returns an empty mapping node.
func NewMapping() *Node {
	return &Node{Kind: yaml.MappingNode, Tag: tagMap}
}

// NewSequence returns an empty sequence node.
func NewSequence() *Node {
	return &Node{Kind: yaml.SequenceNode, Tag: tagSeq}
}

// NewNull returns a null scalar.
func NewNull() *Node {
	return &Node{Kind: yaml.ScalarNode, Tag: tagNull, Value: "null"}
}

// NewString returns a string scalar.
func NewString(s string) *Node {
	return &Node{Kind: yaml.ScalarNode, Tag: tagStr, Value: s}
}

// IsMapping reports whether n is a mapping node.
func IsMapping(n *Node) bool {
	return n != nil && resolve(n).Kind == yaml.MappingNode
}

// IsSequence reports whether n is a sequence node.
func IsSequence(n *Node) bool {
	return n != nil && resolve(n).Kind == yaml.SequenceNode
}

// IsEmpty reports whether n is nil, null, or a container without children.
func IsEmpty(n *Node) bool {
	if n == nil {
		return true
	}
	n = resolve(n)
	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		return len(n.Content) == 0
	case yaml.ScalarNode:
		return n.Tag == tagNull
	}
	return n.Kind == 0
}

// Parse parses YAML text and returns the root value of the first document in
// it. Empty input, input made only of comments, and an explicit null all
// produce an empty mapping. Aliases are expanded, so the returned tree never
// shares nodes between two paths.
func Parse(text string) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("error parsing YAML: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return NewMapping(), nil
	}
	root := expand(doc.Content[0])
	if root.Kind == yaml.ScalarNode && root.Tag == tagNull {
		return NewMapping(), nil
	}
	return root, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) *Node {
	n, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return n
}

// Stringify renders n as YAML with a two space indent. Key order is preserved
// and plain (non-complex) keys are always used. A nil node renders as an
// empty string.
func Stringify(n *Node) (string, error) {
	if n == nil {
		return "", nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return "", fmt.Errorf("error encoding YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("error encoding YAML: %w", err)
	}
	return buf.String(), nil
}

// MustStringify is like Stringify but panics on error.
func MustStringify(n *Node) string {
	s, err := Stringify(n)
	if err != nil {
		panic(err)
	}
	return s
}

// FromJSON parses a single JSON value into a node. Object key order is kept.
// Unlike Parse, a JSON null is returned as a null scalar.
func FromJSON(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing JSON: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return NewNull(), nil
	}
	root := expand(doc.Content[0])
	clearStyle(root)
	return root, nil
}

// ToJSON renders n as compact JSON, keeping mapping keys in document order.
func ToJSON(n *Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToValue decodes n into plain Go values (maps, slices and scalars).
func ToValue(n *Node) (any, error) {
	if n == nil {
		return nil, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("error decoding document: %w", err)
	}
	return v, nil
}

// Clone returns a deep copy of n.
func Clone(n *Node) *Node {
	if n == nil {
		return nil
	}
	n = resolve(n)
	c := *n
	c.Anchor = ""
	c.Alias = nil
	if len(n.Content) > 0 {
		c.Content = make([]*Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = Clone(child)
		}
	}
	return &c
}

// Equal reports whether a and b hold the same data. Mapping key order is not
// significant; sequence order is.
func Equal(a, b *Node) bool {
	aj, aerr := ToJSON(a)
	bj, berr := ToJSON(b)
	if aerr == nil && berr == nil {
		return jsonpatch.Equal(aj, bj)
	}
	return nodesEqual(a, b)
}

// nodesEqual walks a and b together. Scalars with no JSON rendering, such as
// .inf and .nan, are equal when their tag and value are.
func nodesEqual(a, b *Node) bool {
	a, b = unwrap(a), unwrap(b)
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case yaml.MappingNode:
		if len(a.Content) != len(b.Content) {
			return false
		}
		for i := 0; i+1 < len(a.Content); i += 2 {
			v, ok := Lookup(b, a.Content[i].Value)
			if !ok || !nodesEqual(a.Content[i+1], v) {
				return false
			}
		}
		return true
	case yaml.SequenceNode:
		if len(a.Content) != len(b.Content) {
			return false
		}
		for i := range a.Content {
			if !nodesEqual(a.Content[i], b.Content[i]) {
				return false
			}
		}
		return true
	case yaml.ScalarNode:
		aj, aerr := ToJSON(a)
		bj, berr := ToJSON(b)
		if aerr == nil && berr == nil {
			return jsonpatch.Equal(aj, bj)
		}
		return a.ShortTag() == b.ShortTag() && a.Value == b.Value
	}
	return true
}

func unwrap(n *Node) *Node {
	n = resolve(n)
	for n != nil && n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil
		}
		n = resolve(n.Content[0])
	}
	return n
}

// Keys returns the keys of a mapping node in document order.
func Keys(n *Node) []string {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
	}
	return keys
}

// Lookup returns the value stored under key in a mapping node.
func Lookup(n *Node, key string) (*Node, bool) {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, false
	}
	if i := keyIndex(n, key); i >= 0 {
		return n.Content[i+1], true
	}
	return nil, false
}

func keyIndex(m *Node, key string) int {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return i
		}
	}
	return -1
}

func resolve(n *Node) *Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func expand(n *Node) *Node {
	c := Clone(n)
	c.Anchor = ""
	return c
}

func clearStyle(n *Node) {
	n.Style = 0
	for _, child := range n.Content {
		clearStyle(child)
	}
}

func writeJSON(buf *bytes.Buffer, n *Node) error {
	n = resolve(n)
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeJSON(buf, n.Content[0])
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err = writeJSON(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return fmt.Errorf("error decoding scalar %q: %w", n.Value, err)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("error encoding scalar %q as JSON: %w", n.Value, err)
		}
		buf.Write(b)
	default:
		buf.WriteString("null")
	}
	return nil
}
