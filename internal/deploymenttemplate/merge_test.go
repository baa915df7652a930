package deploymenttemplate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devtron-labs/dtconfig/pkg/document"
)

func TestMergeWithBase(t *testing.T) {
	base := document.MustParse("a: 1\nb:\n  c: 2\n  d: 3\nlist: [1, 2]\n")
	testCases := []struct {
		name       string
		base       *document.Node
		patch      *document.Node
		assertions func(*testing.T, *document.Node, error)
	}{
		{
			name:  "patch is merged onto base",
			base:  base,
			patch: document.MustParse("z: true\nb:\n  d: null\n  e: 4\nlist: [3]\n"),
			assertions: func(t *testing.T, merged *document.Node, err error) {
				require.NoError(t, err)
				require.True(t, document.Equal(
					document.MustParse("a: 1\nb:\n  c: 2\n  e: 4\nlist: [3]\nz: true\n"),
					merged,
				))
				require.Equal(t, []string{"a", "b", "list", "z"}, document.Keys(merged))
			},
		},
		{
			name: "no patch",
			base: base,
			assertions: func(t *testing.T, merged *document.Node, err error) {
				require.NoError(t, err)
				require.True(t, document.Equal(base, merged))
				require.NotSame(t, base, merged)
			},
		},
		{
			name:  "no base",
			patch: document.MustParse("a: 1\n"),
			assertions: func(t *testing.T, merged *document.Node, err error) {
				require.NoError(t, err)
				require.Equal(t, "a: 1\n", document.MustStringify(merged))
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			merged, err := MergeWithBase(testCase.base, testCase.patch)
			testCase.assertions(t, merged, err)
		})
	}
	// The base document is never modified.
	require.True(t, document.Equal(document.MustParse("a: 1\nb:\n  c: 2\n  d: 3\nlist: [1, 2]\n"), base))
}
