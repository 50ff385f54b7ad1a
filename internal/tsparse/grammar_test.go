package tsparse

import (
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The checker dispatches on these node kinds. A grammar upgrade that renames
// them silently degrades types to any, so they are pinned here for both
// grammars.

const grammarSource = `type S = string
type N = number
type B = boolean
type Sy = symbol
type O = object
type V = void
type U = unknown
type Nv = never
type A = any
type BI = bigint
type Named = [a: string, b?: number]
type Plain = [string?, ...number[]]
`

// aliasValues maps each alias name to its value node.
func aliasValues(t *testing.T, f *File) map[string]*sitter.Node {
	t.Helper()
	out := make(map[string]*sitter.Node)
	for _, st := range NamedChildren(f.Root()) {
		if st.Type() != "type_alias_declaration" {
			continue
		}
		value := Field(st, "value")
		require.NotNil(t, value, f.Text(st))
		out[f.Text(Field(st, "name"))] = value
	}
	return out
}

func TestGrammar_NodeKinds(t *testing.T) {
	t.Parallel()
	for _, file := range []string{"a.ts", "a.tsx"} {
		file := file
		t.Run(file, func(t *testing.T) {
			t.Parallel()
			f := parseTestSource(t, file, grammarSource)
			require.False(t, f.Root().HasError())
			values := aliasValues(t, f)

			for _, name := range []string{"S", "N", "B", "Sy", "O", "V", "U", "Nv", "A"} {
				assert.Equal(t, "predefined_type", values[name].Type(), name)
			}
			// No bigint keyword: it parses as a plain type reference.
			assert.Equal(t, "type_identifier", values["BI"].Type())

			named := values["Named"]
			require.Equal(t, "tuple_type", named.Type())
			elems := NamedChildren(named)
			require.Len(t, elems, 2)
			assert.Equal(t, "required_parameter", elems[0].Type())
			assert.Equal(t, "optional_parameter", elems[1].Type())
			for _, el := range elems {
				require.NotNil(t, Field(el, "name"))
				assert.Equal(t, "identifier", Field(el, "name").Type())
				require.NotNil(t, Field(el, "type"))
				assert.Equal(t, "type_annotation", Field(el, "type").Type())
			}
			assert.Equal(t, "a", f.Text(Field(elems[0], "name")))
			assert.Equal(t, "number", f.Text(firstNamedChild(Field(elems[1], "type"))))

			plain := NamedChildren(values["Plain"])
			require.Len(t, plain, 2)
			assert.Equal(t, "optional_type", plain[0].Type())
			assert.Equal(t, "rest_type", plain[1].Type())
		})
	}
}

func firstNamedChild(n *sitter.Node) *sitter.Node {
	kids := NamedChildren(n)
	if len(kids) == 0 {
		return nil
	}
	return kids[0]
}
