// Package lockedkeys hides locked configuration keys from an editable
// document and puts them back afterwards.
package lockedkeys

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/devtron-labs/dtconfig/pkg/document"
	"github.com/devtron-labs/dtconfig/pkg/jsonpath"
)

// Config is the locked-keys configuration of an application.
type Config struct {
	// Paths are JSONPath expressions naming the locked keys.
	Paths []string `json:"config"`
	// Allowed inverts the meaning of Paths: when set, Paths lists the only
	// keys that may be changed and everything else is locked.
	Allowed bool `json:"allowed"`
}

// DefaultConfig returns the configuration used when none could be loaded:
// nothing is locked.
func DefaultConfig() Config {
	return Config{Paths: []string{}}
}

// IsEmpty reports whether the configuration names no paths.
func (c Config) IsEmpty() bool {
	return len(c.Paths) == 0
}

// Result is the outcome of a redaction.
type Result struct {
	// Document is the redacted document.
	Document *document.Node
	// Text is Document rendered as YAML.
	Text string
	// AddOperations restore every removed value when applied in order to
	// Document.
	AddOperations document.Patch
}

// Codec removes locked values from documents and restores them.
type Codec interface {
	// Redact parses text, removes every value selected by paths and returns
	// the remaining document along with the operations that undo the
	// removal.
	Redact(text string, paths []string) (Result, error)
	// Restore applies previously recorded add operations to doc. doc is not
	// modified.
	Restore(doc *document.Node, ops document.Patch) (*document.Node, error)
}

type codec struct{}

// NewCodec returns a Codec backed by the JSONPath evaluator.
func NewCodec() Codec {
	return &codec{}
}

// Redact implements Codec.
func (c *codec) Redact(text string, paths []string) (Result, error) {
	doc, err := document.Parse(text)
	if err != nil {
		return Result{}, err
	}
	if len(paths) == 0 {
		return Result{Document: doc, Text: text}, nil
	}

	matches, err := findAll(doc, paths)
	if err != nil {
		return Result{}, err
	}
	if len(matches) == 0 {
		return Result{Document: doc, Text: text}, nil
	}

	adds := make(document.Patch, 0, len(matches))
	removes := make(document.Patch, 0, len(matches))
	for _, m := range matches {
		adds = append(adds, document.Operation{
			Op:    document.OpAdd,
			Path:  m.Pointer,
			Value: document.Clone(m.Node),
		})
	}
	// Removing in reverse document order keeps sequence indices of the
	// remaining matches valid.
	for i := len(matches) - 1; i >= 0; i-- {
		removes = append(removes, document.Operation{
			Op:   document.OpRemove,
			Path: matches[i].Pointer,
		})
	}

	redacted, err := document.Apply(doc, removes, document.ApplyOptions{})
	if err != nil {
		return Result{}, fmt.Errorf("error removing locked keys: %w", err)
	}
	out, err := document.Stringify(redacted)
	if err != nil {
		return Result{}, err
	}
	return Result{Document: redacted, Text: out, AddOperations: adds}, nil
}

// Restore implements Codec.
func (c *codec) Restore(doc *document.Node, ops document.Patch) (*document.Node, error) {
	restored, err := document.Apply(
		doc,
		ops,
		document.ApplyOptions{EnsurePathExistsOnAdd: true},
	)
	if err != nil {
		return nil, fmt.Errorf("error restoring locked keys: %w", err)
	}
	return restored, nil
}

// NoopCodec is used when the locked-keys capability is not available. It
// never removes anything.
type NoopCodec struct{}

// Redact implements Codec.
func (NoopCodec) Redact(text string, _ []string) (Result, error) {
	doc, err := document.Parse(text)
	if err != nil {
		return Result{}, err
	}
	return Result{Document: doc, Text: text}, nil
}

// Restore implements Codec.
func (NoopCodec) Restore(doc *document.Node, _ document.Patch) (*document.Node, error) {
	return document.Clone(doc), nil
}

// findAll evaluates every path against doc and returns the selected
// locations in document order. A location below another selected location is
// dropped since removing the ancestor already removes it.
func findAll(doc *document.Node, paths []string) ([]jsonpath.Match, error) {
	order := preOrder(doc)
	seen := map[string]struct{}{}
	var matches []jsonpath.Match
	for _, expr := range paths {
		p, err := jsonpath.Parse(expr)
		if err != nil {
			return nil, err
		}
		for _, m := range p.Find(doc) {
			if m.Pointer == "" {
				// The document root itself cannot be locked away.
				continue
			}
			if _, ok := seen[m.Pointer]; ok {
				continue
			}
			seen[m.Pointer] = struct{}{}
			matches = append(matches, m)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return order[matches[i].Node] < order[matches[j].Node]
	})

	kept := matches[:0]
	for _, m := range matches {
		covered := false
		for _, k := range kept {
			if document.HasPointerPrefix(m.Tokens, k.Tokens) {
				covered = true
				break
			}
		}
		if !covered {
			kept = append(kept, m)
		}
	}
	return kept, nil
}

func preOrder(root *document.Node) map[*document.Node]int {
	order := map[*document.Node]int{}
	var walk func(*document.Node)
	walk = func(n *document.Node) {
		order[n] = len(order)
		switch n.Kind {
		case yaml.MappingNode:
			for i := 1; i < len(n.Content); i += 2 {
				walk(n.Content[i])
			}
		case yaml.SequenceNode:
			for _, c := range n.Content {
				walk(c)
			}
		}
	}
	walk(root)
	return order
}
