package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"gopkg.in/yaml.v3"
)

// OpKind is the kind of an RFC 6902 operation. Only the kinds this package
// emits are supported.
type OpKind string

const (
	OpAdd     OpKind = "add"
	OpRemove  OpKind = "remove"
	OpReplace OpKind = "replace"
)

// Operation is a single RFC 6902 operation whose value is an ordered node.
type Operation struct {
	Op    OpKind
	Path  string
	Value *Node
}

// Patch is an ordered list of operations.
type Patch []Operation

// ApplyOptions tunes how a Patch is applied.
type ApplyOptions struct {
	// EnsurePathExistsOnAdd makes add operations create any missing parent
	// containers along their path. A missing parent becomes a sequence when
	// the token addressing into it is numeric and a mapping otherwise. An
	// index past the end of a sequence appends.
	EnsurePathExistsOnAdd bool
}

// MarshalJSON encodes the operation in RFC 6902 wire format.
func (o Operation) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"op":`)
	kind, err := json.Marshal(string(o.Op))
	if err != nil {
		return nil, err
	}
	buf.Write(kind)
	buf.WriteString(`,"path":`)
	path, err := json.Marshal(o.Path)
	if err != nil {
		return nil, err
	}
	buf.Write(path)
	if o.Op != OpRemove {
		buf.WriteString(`,"value":`)
		if err = writeJSON(&buf, o.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a single operation from RFC 6902 wire format.
func (o *Operation) UnmarshalJSON(data []byte) error {
	p, err := DecodePatch(append(append([]byte{'['}, data...), ']'))
	if err != nil {
		return err
	}
	*o = p[0]
	return nil
}

// DecodePatch decodes an RFC 6902 patch document. Values keep the key order
// they had on the wire.
func DecodePatch(data []byte) (Patch, error) {
	raw, err := jsonpatch.DecodePatch(data)
	if err != nil {
		return nil, fmt.Errorf("error decoding patch: %w", err)
	}
	patch := make(Patch, 0, len(raw))
	for i, rawOp := range raw {
		path, err := rawOp.Path()
		if err != nil {
			return nil, fmt.Errorf("error decoding path of operation %d: %w", i, err)
		}
		op := Operation{Op: OpKind(rawOp.Kind()), Path: path}
		switch op.Op {
		case OpAdd, OpReplace:
			value, ok := rawOp["value"]
			if !ok {
				return nil, fmt.Errorf("operation %d (%s %s) has no value", i, op.Op, op.Path)
			}
			// An explicit null decodes as a nil message.
			if value == nil {
				op.Value = NewNull()
				break
			}
			if op.Value, err = FromJSON(*value); err != nil {
				return nil, fmt.Errorf("error decoding value of operation %d: %w", i, err)
			}
		case OpRemove:
		default:
			return nil, fmt.Errorf("unsupported operation %q", op.Op)
		}
		patch = append(patch, op)
	}
	return patch, nil
}

// Clone returns a deep copy of the patch.
func (p Patch) Clone() Patch {
	if p == nil {
		return nil
	}
	c := make(Patch, len(p))
	for i, op := range p {
		c[i] = Operation{Op: op.Op, Path: op.Path, Value: Clone(op.Value)}
	}
	return c
}

// Apply applies patch to a copy of n and returns the copy. n itself is never
// modified.
func Apply(n *Node, patch Patch, opts ApplyOptions) (*Node, error) {
	doc := Clone(n)
	if doc == nil {
		doc = NewMapping()
	}
	for i, op := range patch {
		var err error
		if doc, err = applyOperation(doc, op, opts); err != nil {
			return nil, fmt.Errorf(
				"error applying operation %d (%s %s): %w", i, op.Op, op.Path, err,
			)
		}
	}
	return doc, nil
}

func applyOperation(doc *Node, op Operation, opts ApplyOptions) (*Node, error) {
	tokens, err := ParsePointer(op.Path)
	if err != nil {
		return nil, err
	}
	if op.Op != OpRemove && op.Value == nil {
		return nil, errors.New("operation has no value")
	}
	if len(tokens) == 0 {
		switch op.Op {
		case OpAdd, OpReplace:
			return Clone(op.Value), nil
		case OpRemove:
			return nil, errors.New("cannot remove the document root")
		}
		return nil, fmt.Errorf("unsupported operation %q", op.Op)
	}

	create := op.Op == OpAdd && opts.EnsurePathExistsOnAdd
	parent, err := resolveParent(doc, tokens, create)
	if err != nil {
		return nil, err
	}
	last := tokens[len(tokens)-1]

	switch parent.Kind {
	case yaml.MappingNode:
		return doc, applyToMapping(parent, last, op)
	case yaml.SequenceNode:
		return doc, applyToSequence(parent, last, op, create)
	}
	return nil, fmt.Errorf("cannot address %q inside a scalar", last)
}

func applyToMapping(m *Node, key string, op Operation) error {
	i := keyIndex(m, key)
	switch op.Op {
	case OpAdd:
		if i >= 0 {
			m.Content[i+1] = Clone(op.Value)
			return nil
		}
		m.Content = append(m.Content, NewString(key), Clone(op.Value))
	case OpReplace:
		if i < 0 {
			return fmt.Errorf("key %q does not exist", key)
		}
		m.Content[i+1] = Clone(op.Value)
	case OpRemove:
		if i < 0 {
			return fmt.Errorf("key %q does not exist", key)
		}
		m.Content = append(m.Content[:i], m.Content[i+2:]...)
	default:
		return fmt.Errorf("unsupported operation %q", op.Op)
	}
	return nil
}

func applyToSequence(s *Node, token string, op Operation, lenient bool) error {
	if token == "-" {
		if op.Op != OpAdd {
			return fmt.Errorf("index - is only valid for add")
		}
		s.Content = append(s.Content, Clone(op.Value))
		return nil
	}
	idx, err := strconv.Atoi(token)
	if err != nil || idx < 0 {
		return fmt.Errorf("invalid sequence index %q", token)
	}
	switch op.Op {
	case OpAdd:
		if idx > len(s.Content) {
			if !lenient {
				return fmt.Errorf("index %d out of range", idx)
			}
			idx = len(s.Content)
		}
		s.Content = append(s.Content, nil)
		copy(s.Content[idx+1:], s.Content[idx:])
		s.Content[idx] = Clone(op.Value)
	case OpReplace:
		if idx >= len(s.Content) {
			return fmt.Errorf("index %d out of range", idx)
		}
		s.Content[idx] = Clone(op.Value)
	case OpRemove:
		if idx >= len(s.Content) {
			return fmt.Errorf("index %d out of range", idx)
		}
		s.Content = append(s.Content[:idx], s.Content[idx+1:]...)
	default:
		return fmt.Errorf("unsupported operation %q", op.Op)
	}
	return nil
}

// resolveParent walks all but the last token and returns the container the
// last token addresses into. When create is set, missing or scalar
// intermediate values are replaced by containers.
func resolveParent(doc *Node, tokens []string, create bool) (*Node, error) {
	cur := doc
	for i, token := range tokens[:len(tokens)-1] {
		next := tokens[i+1]
		switch cur.Kind {
		case yaml.MappingNode:
			j := keyIndex(cur, token)
			if j < 0 {
				if !create {
					return nil, fmt.Errorf("key %q does not exist", token)
				}
				cur.Content = append(cur.Content, NewString(token), containerFor(next))
				j = len(cur.Content) - 2
			}
			child := resolve(cur.Content[j+1])
			if child.Kind == yaml.ScalarNode && create {
				child = containerFor(next)
			}
			cur.Content[j+1] = child
			cur = child
		case yaml.SequenceNode:
			idx, err := strconv.Atoi(token)
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("invalid sequence index %q", token)
			}
			if idx >= len(cur.Content) {
				if !create {
					return nil, fmt.Errorf("index %d out of range", idx)
				}
				cur.Content = append(cur.Content, containerFor(next))
				idx = len(cur.Content) - 1
			}
			child := resolve(cur.Content[idx])
			if child.Kind == yaml.ScalarNode && create {
				child = containerFor(next)
			}
			cur.Content[idx] = child
			cur = child
		default:
			return nil, fmt.Errorf("cannot address %q inside a scalar", token)
		}
	}
	return cur, nil
}

func containerFor(token string) *Node {
	if isIndexToken(token) {
		return NewSequence()
	}
	return NewMapping()
}
