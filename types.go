package tsexpand

import (
	"github.com/d-kimuson/ts-type-expand/internal/checker"
	"github.com/d-kimuson/ts-type-expand/internal/render"
	"github.com/d-kimuson/ts-type-expand/internal/store"
	"github.com/d-kimuson/ts-type-expand/internal/typeobject"
)

// Public aliases for internal types used in the Engine API. These are Go
// type aliases (=), so no conversion is needed.

type Program = checker.Program

type TypeObject = typeobject.TypeObject
type Property = typeobject.Property
type Declaration = typeobject.Declaration
type Envelope = typeobject.Envelope

type TreeNode = render.Node
type TreeOptions = render.TreeOptions

type IndexedFile = store.File
type IndexedDeclaration = store.Declaration
type DeclarationQuery = store.DeclarationQuery
type DeclarationDiff = store.Diff

// TypeAtPosition is the result of ClassifyAtPosition. DeclaredName is empty
// when the node at the position names no symbol.
type TypeAtPosition struct {
	DeclaredName string
	Type         TypeObject
}
