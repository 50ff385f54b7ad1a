package checker

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
)

// SymbolFlags describe what a symbol declares.
type SymbolFlags uint32

const (
	SymbolTypeAlias SymbolFlags = 1 << iota
	SymbolInterface
	SymbolClass
	SymbolEnum
	SymbolEnumMember
	SymbolFunction
	SymbolVariable
	SymbolProperty
	SymbolMethod
	SymbolParameter
	SymbolTypeParameter
	SymbolAlias
	SymbolNamespace
	SymbolOptional
	SymbolReadonly

	SymbolType  = SymbolTypeAlias | SymbolInterface | SymbolClass | SymbolEnum | SymbolTypeParameter
	SymbolValue = SymbolClass | SymbolEnum | SymbolEnumMember | SymbolFunction | SymbolVariable |
		SymbolProperty | SymbolMethod | SymbolParameter | SymbolNamespace
)

// Decl is one declaration site of a symbol.
type Decl struct {
	File *tsparse.File
	Node *sitter.Node
}

// Symbol is a named entity: a declaration, member, parameter or import.
type Symbol struct {
	id    int
	name  string
	flags SymbolFlags
	decls []Decl

	parent  *Symbol
	exports []*Symbol

	valueType     *Type
	valueThunk    func() *Type
	resolvingType bool

	declaredType      *Type
	resolvingDeclared bool

	// import and re-export bindings
	module     string
	importName string
	from       *tsparse.File
	target     *Symbol
	resolved   bool

	mappedTemplate *Type
	annotation     *TypeNode
	rest           bool
}

// Name returns the unescaped symbol name.
func (s *Symbol) Name() string { return s.name }

// Flags returns the symbol's flags.
func (s *Symbol) Flags() SymbolFlags { return s.flags }

// Has reports whether any of the given flags are set.
func (s *Symbol) Has(f SymbolFlags) bool { return s.flags&f != 0 }

// Declarations returns the declaration sites in source order.
func (s *Symbol) Declarations() []Decl { return s.decls }

// Parent returns the enclosing symbol of an enum member.
func (s *Symbol) Parent() *Symbol { return s.parent }

// Exports returns enum members or namespace exports in declaration order.
func (s *Symbol) Exports() []*Symbol { return s.exports }

// ValueDeclaration returns the first declaration, if any.
func (s *Symbol) ValueDeclaration() (Decl, bool) {
	if len(s.decls) == 0 {
		return Decl{}, false
	}
	return s.decls[0], true
}

// MappedTemplate returns the instantiated template type when the property
// was produced by a mapped type, or nil.
func (s *Symbol) MappedTemplate() *Type { return s.mappedTemplate }

// IsRest reports whether a parameter symbol is a rest parameter.
func (s *Symbol) IsRest() bool { return s.rest }

// TypeAnnotation returns the explicit type annotation of a property or
// parameter declaration, or nil.
func (s *Symbol) TypeAnnotation() *TypeNode { return s.annotation }

func (s *Symbol) addDecl(f *tsparse.File, n *sitter.Node) {
	s.decls = append(s.decls, Decl{File: f, Node: n})
}

func (s *Symbol) export(name string) *Symbol {
	for _, e := range s.exports {
		if e.name == name {
			return e
		}
	}
	return nil
}
