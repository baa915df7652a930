// Package docdiff compares ordered documents and merges edits back onto an
// unedited document without disturbing its key order.
package docdiff

import (
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/devtron-labs/dtconfig/pkg/document"
	"github.com/devtron-labs/dtconfig/pkg/lockedkeys"
)

// Diff returns the operations that turn unedited into edited.
//
// Mappings are compared by key, so key order alone never yields an
// operation. Sequences are compared by position. Within a container,
// removals come first in reverse key order, followed by additions in the
// order they appear in edited, so that the patch can be applied as is.
func Diff(unedited, edited *document.Node) document.Patch {
	var ops document.Patch
	if unedited == nil {
		unedited = document.NewMapping()
	}
	if edited == nil {
		edited = document.NewMapping()
	}
	generate(unedited, edited, "", &ops)
	return ops
}

func generate(old, cur *document.Node, path string, ops *document.Patch) {
	old, cur = deref(old), deref(cur)
	if old == cur {
		return
	}
	if !sameContainerKind(old, cur) {
		if !scalarsEqual(old, cur) {
			*ops = append(*ops, document.Operation{
				Op:    document.OpReplace,
				Path:  path,
				Value: document.Clone(cur),
			})
		}
		return
	}

	oldKeys := keysOf(old)
	newKeys := keysOf(cur)
	deleted := false
	for i := len(oldKeys) - 1; i >= 0; i-- {
		key := oldKeys[i]
		childPath := document.AppendPointer(path, key)
		oldVal := childOf(old, key)
		newVal, ok := lookupChild(cur, key)
		if !ok {
			*ops = append(*ops, document.Operation{Op: document.OpRemove, Path: childPath})
			deleted = true
			continue
		}
		if isContainer(oldVal) && isContainer(newVal) && sameContainerKind(oldVal, newVal) {
			generate(oldVal, newVal, childPath, ops)
			continue
		}
		if !scalarsEqual(oldVal, newVal) {
			*ops = append(*ops, document.Operation{
				Op:    document.OpReplace,
				Path:  childPath,
				Value: document.Clone(newVal),
			})
		}
	}

	if !deleted && len(newKeys) == len(oldKeys) {
		return
	}
	for _, key := range newKeys {
		if _, ok := lookupChild(old, key); ok {
			continue
		}
		newVal, _ := lookupChild(cur, key)
		*ops = append(*ops, document.Operation{
			Op:    document.OpAdd,
			Path:  document.AppendPointer(path, key),
			Value: document.Clone(newVal),
		})
	}
}

// ApplyDiffOntoBase applies Diff(unedited, edited) to unedited. The result
// holds the values of edited laid out in the key order of unedited, with
// new keys appended where edited placed them last.
func ApplyDiffOntoBase(unedited, edited *document.Node) (*document.Node, error) {
	if unedited == nil {
		unedited = document.NewMapping()
	}
	merged, err := document.Apply(unedited, Diff(unedited, edited), document.ApplyOptions{})
	if err != nil {
		return nil, fmt.Errorf("error applying diff onto unedited document: %w", err)
	}
	return merged, nil
}

// ApplyDiffOntoBaseText is ApplyDiffOntoBase over YAML text. Callers are
// expected to have checked that edited parses; a parse error is returned
// unchanged otherwise.
func ApplyDiffOntoBaseText(unedited, edited string) (string, error) {
	u, err := document.Parse(unedited)
	if err != nil {
		return "", err
	}
	e, err := document.Parse(edited)
	if err != nil {
		return "", err
	}
	merged, err := ApplyDiffOntoBase(u, e)
	if err != nil {
		return "", err
	}
	return document.Stringify(merged)
}

// Split is the partition of a diff by lock eligibility.
type Split struct {
	// Eligible are the operations that touch no locked key.
	Eligible document.Patch
	// Ineligible are the operations that touch a locked key.
	Ineligible document.Patch
	// EligibleChanges is the unedited document with only the eligible
	// operations applied. It is what may be saved without approval.
	EligibleChanges *document.Node
	// IneligibleChanges holds only the locked locations that changed, set to
	// their edited value, or to null where the edit removed them.
	IneligibleChanges *document.Node
}

// HasIneligibleChanges reports whether any change touches a locked key.
func (s Split) HasIneligibleChanges() bool {
	return len(s.Ineligible) > 0
}

// SplitByLockEligibility partitions Diff(unedited, edited) according to cfg.
// Every operation of the diff lands in exactly one of the two halves.
func SplitByLockEligibility(
	unedited *document.Node,
	edited *document.Node,
	cfg lockedkeys.Config,
) (Split, error) {
	if unedited == nil {
		unedited = document.NewMapping()
	}
	if edited == nil {
		edited = document.NewMapping()
	}
	matcher, err := lockedkeys.NewMatcher(cfg)
	if err != nil {
		return Split{}, err
	}
	locks := matcher.Bind(unedited, edited)

	var split Split
	for _, op := range Diff(unedited, edited) {
		if locks.IsLocked(op.Path) {
			split.Ineligible = append(split.Ineligible, op)
		} else {
			split.Eligible = append(split.Eligible, op)
		}
	}

	// Skipping some sequence operations can leave later indices past the
	// end, hence the lenient application.
	lenient := document.ApplyOptions{EnsurePathExistsOnAdd: true}
	if split.EligibleChanges, err = document.Apply(
		unedited, asAdds(split.Eligible, false), lenient,
	); err != nil {
		return Split{}, fmt.Errorf("error applying eligible changes: %w", err)
	}
	if split.IneligibleChanges, err = document.Apply(
		document.NewMapping(), asAdds(split.Ineligible, true), lenient,
	); err != nil {
		return Split{}, fmt.Errorf("error collecting ineligible changes: %w", err)
	}
	return split, nil
}

// asAdds rewrites operations for lenient application. Replacements become
// adds, which behave the same on existing locations and create missing
// ones. When sparse is set, removals become adds of null so that they show
// up in a document holding only the changes.
func asAdds(ops document.Patch, sparse bool) document.Patch {
	out := make(document.Patch, 0, len(ops))
	for _, op := range ops {
		switch {
		case op.Op == document.OpReplace && op.Path != "":
			out = append(out, document.Operation{Op: document.OpAdd, Path: op.Path, Value: op.Value})
		case op.Op == document.OpRemove && sparse:
			out = append(out, document.Operation{Op: document.OpAdd, Path: op.Path, Value: document.NewNull()})
		default:
			out = append(out, op)
		}
	}
	return out
}

func deref(n *document.Node) *document.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isContainer(n *document.Node) bool {
	n = deref(n)
	return n != nil && (n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode)
}

func sameContainerKind(a, b *document.Node) bool {
	return isContainer(a) && isContainer(b) && deref(a).Kind == deref(b).Kind
}

func keysOf(n *document.Node) []string {
	if n.Kind == yaml.MappingNode {
		return document.Keys(n)
	}
	keys := make([]string, len(n.Content))
	for i := range n.Content {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}

func lookupChild(n *document.Node, key string) (*document.Node, bool) {
	if n.Kind == yaml.MappingNode {
		return document.Lookup(n, key)
	}
	idx, err := strconv.Atoi(key)
	if err != nil || idx < 0 || idx >= len(n.Content) {
		return nil, false
	}
	return n.Content[idx], true
}

func childOf(n *document.Node, key string) *document.Node {
	v, _ := lookupChild(n, key)
	return v
}

// scalarsEqual compares two values by their JSON rendering, so that 1 and
// "1" differ while differently formatted spellings of the same number do not.
// Values with no JSON rendering fall back to document.Equal.
func scalarsEqual(a, b *document.Node) bool {
	if isContainer(a) != isContainer(b) {
		return false
	}
	aj, aerr := document.ToJSON(a)
	bj, berr := document.ToJSON(b)
	if aerr != nil || berr != nil {
		return document.Equal(a, b)
	}
	return bytes.Equal(aj, bj)
}
