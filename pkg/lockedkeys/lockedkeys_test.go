package lockedkeys

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devtron-labs/dtconfig/pkg/document"
)

const sampleTemplate = `replicaCount: 2
image:
  repository: nginx
  tag: "1.25"
env:
  - name: A
    value: "1"
  - name: B
    value: "2"
  - name: C
    value: "3"
resources:
  limits:
    cpu: 100m
    memory: 128Mi
`

func TestRedact(t *testing.T) {
	testCases := []struct {
		name       string
		paths      []string
		assertions func(*testing.T, Result, error)
	}{
		{
			name:  "no paths",
			paths: nil,
			assertions: func(t *testing.T, res Result, err error) {
				require.NoError(t, err)
				require.Empty(t, res.AddOperations)
				require.Equal(t, sampleTemplate, res.Text)
			},
		},
		{
			name:  "no matches",
			paths: []string{"$.nothing.here"},
			assertions: func(t *testing.T, res Result, err error) {
				require.NoError(t, err)
				require.Empty(t, res.AddOperations)
				require.True(t, document.Equal(document.MustParse(sampleTemplate), res.Document))
			},
		},
		{
			name:  "scalar and subtree",
			paths: []string{"$.resources.limits", "image.tag"},
			assertions: func(t *testing.T, res Result, err error) {
				require.NoError(t, err)
				require.Len(t, res.AddOperations, 2)
				// Ordered by position in the document, not by configuration order.
				require.Equal(t, "/image/tag", res.AddOperations[0].Path)
				require.Equal(t, "/resources/limits", res.AddOperations[1].Path)
				_, ok := document.Get(res.Document, "/image/tag")
				require.False(t, ok)
				_, ok = document.Get(res.Document, "/resources/limits")
				require.False(t, ok)
				_, ok = document.Get(res.Document, "/image/repository")
				require.True(t, ok)
			},
		},
		{
			name:  "descendant of a locked subtree is not recorded twice",
			paths: []string{"$.resources.limits.cpu", "$.resources"},
			assertions: func(t *testing.T, res Result, err error) {
				require.NoError(t, err)
				require.Len(t, res.AddOperations, 1)
				require.Equal(t, "/resources", res.AddOperations[0].Path)
			},
		},
		{
			name:  "several items of one sequence",
			paths: []string{"env[0]", "env[2]"},
			assertions: func(t *testing.T, res Result, err error) {
				require.NoError(t, err)
				require.Equal(t, "/env/0", res.AddOperations[0].Path)
				require.Equal(t, "/env/2", res.AddOperations[1].Path)
				remaining, ok := document.Get(res.Document, "/env")
				require.True(t, ok)
				require.Len(t, remaining.Content, 1)
				name, _ := document.Get(remaining, "/0/name")
				require.Equal(t, "B", name.Value)
			},
		},
		{
			name:  "invalid path",
			paths: []string{"a[x]"},
			assertions: func(t *testing.T, _ Result, err error) {
				require.Error(t, err)
			},
		},
	}
	c := NewCodec()
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			res, err := c.Redact(sampleTemplate, testCase.paths)
			testCase.assertions(t, res, err)
		})
	}
}

func TestRedactMalformedYAML(t *testing.T) {
	_, err := NewCodec().Redact("a: [1", []string{"a"})
	require.Error(t, err)
}

func TestRedactRestoreRoundTrip(t *testing.T) {
	documents := []string{
		sampleTemplate,
		"a: 1\nb:\n  c: 2\n  d: 3\n",
		"list:\n  - x: 1\n    y: 2\n  - x: 3\n    y: 4\n",
		"{}\n",
	}
	pathSets := [][]string{
		{"b.c"},
		{"$..x"},
		{"list[*].y", "list[0]"},
		{"env[*].value", "image", "$.replicaCount"},
		{"$['a']", "missing.path"},
	}
	c := NewCodec()
	for _, doc := range documents {
		for _, paths := range pathSets {
			redacted, err := c.Redact(doc, paths)
			require.NoError(t, err)
			restored, err := c.Restore(redacted.Document, redacted.AddOperations)
			require.NoError(t, err)
			require.True(
				t,
				document.Equal(document.MustParse(doc), restored),
				"round trip of %v over %q produced %q",
				paths, doc, document.MustStringify(restored),
			)
		}
	}
}

func TestRestoreCreatesMissingParents(t *testing.T) {
	c := NewCodec()
	redacted, err := c.Redact("a: 1\nb:\n  c: 2\n  d: 3\n", []string{"b.c"})
	require.NoError(t, err)

	// The user removed the whole of b while the locked key was hidden.
	edited := document.MustParse("a: 1\n")
	restored, err := c.Restore(edited, redacted.AddOperations)
	require.NoError(t, err)
	require.True(t, document.Equal(document.MustParse("a: 1\nb:\n  c: 2\n"), restored))
	// The input is left untouched.
	require.True(t, document.Equal(document.MustParse("a: 1\n"), edited))
}

func TestAddOperationsWireFormat(t *testing.T) {
	redacted, err := NewCodec().Redact("a:\n  z: 1\n  b: [x]\n", []string{"a"})
	require.NoError(t, err)

	data, err := json.Marshal(redacted.AddOperations)
	require.NoError(t, err)
	require.JSONEq(t, `[{"op":"add","path":"/a","value":{"z":1,"b":["x"]}}]`, string(data))

	decoded, err := document.DecodePatch(data)
	require.NoError(t, err)
	restored, err := NewCodec().Restore(redacted.Document, decoded)
	require.NoError(t, err)
	// Values decoded from the wire are rendered in block style.
	require.Equal(t, "a:\n  z: 1\n  b:\n    - x\n", document.MustStringify(restored))
}

func TestNoopCodec(t *testing.T) {
	res, err := NoopCodec{}.Redact(sampleTemplate, []string{"image"})
	require.NoError(t, err)
	require.Empty(t, res.AddOperations)
	require.Equal(t, sampleTemplate, res.Text)

	doc := document.MustParse(sampleTemplate)
	restored, err := NoopCodec{}.Restore(doc, nil)
	require.NoError(t, err)
	require.True(t, document.Equal(doc, restored))
}
