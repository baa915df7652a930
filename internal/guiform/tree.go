// Package guiform models the field selection of the GUI form used to edit
// overrides merged onto their base with the patch strategy. Every field the
// chart schema describes is a node of a tree. A field is selected when the
// override defines it, and unselected fields are hidden from the form.
package guiform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/devtron-labs/dtconfig/pkg/document"
)

var (
	// ErrRootNotObject is returned when the root of a schema does not
	// describe an object.
	ErrRootNotObject = errors.New("root schema must be of type object")
	// ErrNotLeaf is returned when a node that has children is toggled.
	ErrNotLeaf = errors.New("only leaf nodes can be toggled")
	// ErrPathNotFound is returned for paths no node of the tree has.
	ErrPathNotFound = errors.New("no node found for path")
)

// SelectionStatus summarizes the leaves below a node.
type SelectionStatus string

const (
	AllSelected  SelectionStatus = "all-selected"
	NoneSelected SelectionStatus = "none-selected"
	SomeSelected SelectionStatus = "some-selected"
)

// ItemsToken stands for every element of an array in node paths.
const ItemsToken = "*"

const hiddenWidget = "hidden"

// Node is a field of the form.
type Node struct {
	Key   string
	Title string
	// Path is the JSON pointer of the field. Fields of array elements use
	// ItemsToken in place of an index.
	Path string
	Type string
	// IsChecked is only meaningful for leaves.
	IsChecked bool
	// SelectionStatus is only meaningful for nodes with children.
	SelectionStatus SelectionStatus
	Children        []*Node

	tokens []string
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Tree is the field selection of one form.
type Tree struct {
	root   *Node
	byPath map[string]*Node
}

// NewTree builds the tree of schema. Leaves start checked when doc defines
// them, possibly as null.
func NewTree(schema []byte, doc *document.Node) (*Tree, error) {
	if !gjson.ValidBytes(schema) {
		return nil, errors.New("schema is not valid JSON")
	}
	rootSchema := gjson.ParseBytes(schema)
	if schemaType(rootSchema) != "object" {
		return nil, ErrRootNotObject
	}
	if doc == nil {
		doc = document.NewMapping()
	}
	values, err := document.ToJSON(doc)
	if err != nil {
		return nil, fmt.Errorf("error encoding values: %w", err)
	}
	t := &Tree{byPath: map[string]*Node{}}
	t.root = &Node{Type: "object"}
	t.root.Children = t.children(rootSchema, nil, values)
	computeStatus(t.root)
	return t, nil
}

func (t *Tree) children(schema gjson.Result, parent []string, values []byte) []*Node {
	var nodes []*Node
	schema.Get("properties").ForEach(func(key, prop gjson.Result) bool {
		tokens := append(append([]string(nil), parent...), key.String())
		n := &Node{
			Key:    key.String(),
			Title:  prop.Get("title").String(),
			Path:   document.FormatPointer(tokens),
			Type:   schemaType(prop),
			tokens: tokens,
		}
		if n.Title == "" {
			n.Title = n.Key
		}
		switch {
		case n.Type == "object":
			n.Children = t.children(prop, tokens, values)
		case n.Type == "array" && schemaType(prop.Get("items")) == "object":
			n.Children = t.children(prop.Get("items"), append(tokens, ItemsToken), values)
		}
		if n.IsLeaf() {
			n.IsChecked = isDefined(values, tokens)
		}
		t.byPath[n.Path] = n
		nodes = append(nodes, n)
		return true
	})
	return nodes
}

// schemaType returns the type a schema describes. Of a list of types the
// first one other than null wins, and a schema with properties but no type
// is an object.
func schemaType(schema gjson.Result) string {
	typ := schema.Get("type")
	if typ.IsArray() {
		for _, t := range typ.Array() {
			if t.String() != "null" {
				return t.String()
			}
		}
		return "null"
	}
	if typ.Exists() {
		return typ.String()
	}
	if schema.Get("properties").IsObject() {
		return "object"
	}
	return ""
}

// isDefined reports whether values defines the field at tokens. Below an
// array, any element defining it is enough.
func isDefined(values []byte, tokens []string) bool {
	depth := 0
	for _, token := range tokens {
		if token == ItemsToken {
			depth++
		}
	}
	return anyExists(gjson.GetBytes(values, queryPath(tokens)), depth)
}

func anyExists(r gjson.Result, depth int) bool {
	if depth == 0 {
		return r.Exists()
	}
	if !r.IsArray() {
		return false
	}
	for _, element := range r.Array() {
		if anyExists(element, depth-1) {
			return true
		}
	}
	return false
}

// Root returns the root of the tree. Its children are the top level fields.
func (t *Tree) Root() *Node {
	return t.root
}

// Node returns the node with the given path.
func (t *Tree) Node(path string) (*Node, bool) {
	n, ok := t.byPath[path]
	return n, ok
}

// UpdateNodeForPath toggles the leaf with the given path.
func (t *Tree) UpdateNodeForPath(path string) error {
	n, ok := t.byPath[path]
	if !ok {
		return fmt.Errorf("%w: %q", ErrPathNotFound, path)
	}
	if !n.IsLeaf() {
		return fmt.Errorf("%w: %q", ErrNotLeaf, path)
	}
	n.IsChecked = !n.IsChecked
	computeStatus(t.root)
	return nil
}

// computeStatus recomputes the selection status of n and its descendants
// bottom-up.
func computeStatus(n *Node) SelectionStatus {
	if n.IsLeaf() {
		if n.IsChecked {
			return AllSelected
		}
		return NoneSelected
	}
	all, none := true, true
	for _, c := range n.Children {
		switch computeStatus(c) {
		case AllSelected:
			none = false
		case NoneSelected:
			all = false
		default:
			all, none = false, false
		}
	}
	switch {
	case all:
		n.SelectionStatus = AllSelected
	case none:
		n.SelectionStatus = NoneSelected
	default:
		n.SelectionStatus = SomeSelected
	}
	return n.SelectionStatus
}

// UncheckedPaths lists, in form order, the paths of unchecked leaves and of
// nodes with nothing selected below them. Descendants of a listed node are
// not listed.
func (t *Tree) UncheckedPaths() []string {
	var paths []string
	var walk func(*Node)
	walk = func(n *Node) {
		if n.IsLeaf() {
			if !n.IsChecked {
				paths = append(paths, n.Path)
			}
			return
		}
		if n.SelectionStatus == NoneSelected {
			paths = append(paths, n.Path)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, c := range t.root.Children {
		walk(c)
	}
	return paths
}

// HiddenUISchema returns uiSchema with every unchecked path hidden. An empty
// uiSchema starts from an empty object. The document itself is never
// touched: hidden fields keep whatever value they have.
func (t *Tree) HiddenUISchema(uiSchema []byte) ([]byte, error) {
	out := uiSchema
	if len(strings.TrimSpace(string(out))) == 0 {
		out = []byte("{}")
	}
	if !gjson.ValidBytes(out) {
		return nil, errors.New("UI schema is not valid JSON")
	}
	for _, path := range t.UncheckedPaths() {
		n := t.byPath[path]
		var err error
		if out, err = sjson.SetBytes(out, uiSchemaPath(n.tokens), hiddenWidget); err != nil {
			return nil, fmt.Errorf("error hiding %q: %w", path, err)
		}
	}
	return out, nil
}

// queryPath turns tokens into a gjson path. ItemsToken becomes a query over
// every array element.
func queryPath(tokens []string) string {
	parts := make([]string, len(tokens))
	for i, token := range tokens {
		if token == ItemsToken {
			parts[i] = "#"
			continue
		}
		parts[i] = escape(token)
	}
	return strings.Join(parts, ".")
}

// uiSchemaPath turns tokens into the sjson path of the widget of a field.
// Array element fields live under the items key of the array.
func uiSchemaPath(tokens []string) string {
	parts := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		if token == ItemsToken {
			parts = append(parts, "items")
			continue
		}
		parts = append(parts, objectKey(token))
	}
	return strings.Join(append(parts, "ui:widget"), ".")
}

// objectKey escapes token so that sjson always treats it as an object key,
// numeric tokens included.
func objectKey(token string) string {
	if token != "" && strings.Trim(token, "0123456789") == "" {
		return ":" + token
	}
	return escape(token)
}

func escape(token string) string {
	var b strings.Builder
	for i, r := range token {
		if strings.ContainsRune(`.*?|#@!=<>%\`, r) || (i == 0 && r == ':') {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
