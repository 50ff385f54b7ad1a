package checker

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
)

var typeSyntaxKinds = map[string]bool{
	"predefined_type": true, "literal_type": true, "type_identifier": true,
	"nested_type_identifier": true, "generic_type": true, "object_type": true,
	"array_type": true, "tuple_type": true, "union_type": true,
	"intersection_type": true, "function_type": true, "constructor_type": true,
	"parenthesized_type": true, "readonly_type": true, "type_query": true,
	"index_type_query": true, "lookup_type": true, "conditional_type": true,
	"template_literal_type": true, "infer_type": true, "this_type": true,
	"optional_type": true, "rest_type": true,
}

// literalPieces may sit below a type node, e.g. the string inside a
// literal_type or the identifier inside a type query.
var literalPieces = map[string]bool{
	"string": true, "string_fragment": true, "escape_sequence": true,
	"number": true, "true": true, "false": true, "null": true,
	"undefined": true, "unary_expression": true, "identifier": true,
}

var expressionKinds = map[string]bool{
	"identifier": true, "this": true, "number": true, "string": true,
	"template_string": true, "true": true, "false": true, "null": true,
	"undefined": true, "regex": true, "object": true, "array": true,
	"arrow_function": true, "function_expression": true, "function": true,
	"call_expression": true, "new_expression": true, "member_expression": true,
	"subscript_expression": true, "await_expression": true, "as_expression": true,
	"satisfies_expression": true, "non_null_expression": true,
	"parenthesized_expression": true, "unary_expression": true,
	"update_expression": true, "binary_expression": true,
	"ternary_expression": true, "assignment_expression": true,
	"sequence_expression": true, "class": true, "shorthand_property_identifier": true,
}

var declarationKinds = map[string]bool{
	"type_alias_declaration": true, "interface_declaration": true,
	"enum_declaration": true, "class_declaration": true,
	"abstract_class_declaration": true, "function_declaration": true,
	"function_signature": true, "generator_function_declaration": true,
	"variable_declarator": true, "property_signature": true,
	"method_signature": true, "public_field_definition": true,
	"method_definition": true, "enum_assignment": true, "type_parameter": true,
	"pair": true, "required_parameter": true, "optional_parameter": true,
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil && tsparse.KeyOf(a) == tsparse.KeyOf(b)
}

// declarationOfName returns the declaration that n names, if n is a
// declaration name.
func declarationOfName(n *sitter.Node) *sitter.Node {
	p := n.Parent()
	if p == nil {
		return nil
	}
	if p.Type() == "enum_body" {
		return n
	}
	if !declarationKinds[p.Type()] {
		return nil
	}
	switch p.Type() {
	case "pair":
		if sameNode(tsparse.Field(p, "key"), n) {
			return p
		}
		return nil
	case "required_parameter", "optional_parameter":
		if sameNode(tsparse.Field(p, "pattern"), n) {
			return p
		}
		return nil
	}
	if sameNode(tsparse.Field(p, "name"), n) {
		return p
	}
	return nil
}

// TypeAtLocation returns the type of the syntax at n: a declaration name,
// type syntax or an expression. Anonymous tokens stand for their parent.
func (c *Checker) TypeAtLocation(f *tsparse.File, n *sitter.Node) *Type {
	if n == nil {
		return c.errorType
	}
	c.scope(f)
	if !n.IsNamed() && n.Parent() != nil {
		n = n.Parent()
	}
	if d := declarationOfName(n); d != nil {
		return c.typeOfDeclaration(f, d)
	}
	if declarationKinds[n.Type()] && n.Type() != "pair" {
		return c.typeOfDeclaration(f, n)
	}
	if tn := typeSyntaxAt(n); tn != nil {
		return c.typeFromNode(f, tn, c.envAt(f, tn))
	}
	if ex := expressionAt(n); ex != nil {
		return c.expressionType(f, ex)
	}
	return c.errorType
}

func typeSyntaxAt(n *sitter.Node) *sitter.Node {
	cur := n
	for i := 0; cur != nil && i < 3; i++ {
		if typeSyntaxKinds[cur.Type()] {
			for p := cur.Parent(); p != nil && (p.Type() == "generic_type" || p.Type() == "nested_type_identifier"); p = cur.Parent() {
				if p.Type() == "generic_type" && !sameNode(tsparse.Field(p, "name"), cur) {
					break
				}
				cur = p
			}
			return cur
		}
		if !literalPieces[cur.Type()] {
			return nil
		}
		cur = cur.Parent()
	}
	return nil
}

func expressionAt(n *sitter.Node) *sitter.Node {
	switch n.Type() {
	case "string_fragment", "escape_sequence", "template_substitution":
		n = n.Parent()
	case "property_identifier", "private_property_identifier":
		p := n.Parent()
		if p != nil && p.Type() == "member_expression" && sameNode(tsparse.Field(p, "property"), n) {
			return p
		}
		return nil
	}
	if n != nil && expressionKinds[n.Type()] {
		return n
	}
	return nil
}

func (c *Checker) typeOfDeclaration(f *tsparse.File, d *sitter.Node) *Type {
	sym, isType := c.declarationSymbol(f, d)
	if sym == nil {
		return c.errorType
	}
	if isType {
		return c.DeclaredTypeOfSymbol(sym)
	}
	return c.TypeOfSymbol(sym)
}

// declarationSymbol returns the symbol d declares and whether its type is
// the declared type rather than the value type.
func (c *Checker) declarationSymbol(f *tsparse.File, d *sitter.Node) (*Symbol, bool) {
	key := declKey{f, tsparse.KeyOf(d)}
	switch d.Type() {
	case "type_alias_declaration", "interface_declaration", "enum_declaration",
		"class_declaration", "abstract_class_declaration":
		sym := c.declSymbols[key]
		if sym == nil {
			flag := map[string]SymbolFlags{
				"type_alias_declaration": SymbolTypeAlias, "interface_declaration": SymbolInterface,
				"enum_declaration": SymbolEnum, "class_declaration": SymbolClass,
				"abstract_class_declaration": SymbolClass,
			}[d.Type()]
			sym = c.localSymbol(f, d, declName(f, d), flag)
		}
		return sym, true
	case "function_declaration", "function_signature", "generator_function_declaration":
		sym := c.declSymbols[key]
		if sym == nil {
			sym = c.localSymbol(f, d, declName(f, d), SymbolFunction)
		}
		return sym, false
	case "variable_declarator":
		sym := c.declSymbols[key]
		if sym == nil {
			sym = c.localSymbol(f, d, f.Text(tsparse.Field(d, "name")), SymbolVariable)
		}
		return sym, false
	case "type_parameter":
		return c.typeParameter(f, d).symbol, true
	case "enum_assignment", "property_identifier", "string":
		enum := d.Parent()
		if enum != nil {
			enum = enum.Parent()
		}
		if enum == nil || enum.Type() != "enum_declaration" {
			return nil, false
		}
		es, _ := c.declarationSymbol(f, enum)
		if es == nil {
			return nil, false
		}
		c.enumMembers(es)
		return c.declSymbols[key], true
	case "required_parameter", "optional_parameter":
		fn := d.Parent()
		if fn != nil {
			fn = fn.Parent()
		}
		if fn == nil {
			return nil, false
		}
		sig := c.signatureOfNode(f, fn, c.envAt(f, fn))
		for _, p := range sig.params {
			if sameNode(p.decls[0].Node, d) {
				return p, false
			}
		}
		return nil, false
	case "property_signature", "method_signature":
		body := d.Parent()
		if body == nil {
			return nil, false
		}
		var owner *Type
		if decl := body.Parent(); decl != nil && decl.Type() == "interface_declaration" {
			is, _ := c.declarationSymbol(f, decl)
			owner = c.DeclaredTypeOfSymbol(is)
		} else {
			owner = c.typeFromNode(f, body, c.envAt(f, body))
		}
		return c.PropertyOfType(owner, c.propertyName(f, tsparse.Field(d, "name"))), false
	case "public_field_definition", "method_definition":
		body := d.Parent()
		if body == nil {
			return nil, false
		}
		name := c.propertyName(f, tsparse.Field(d, "name"))
		if body.Type() == "object" {
			return c.PropertyOfType(c.expressionType(f, body), name), false
		}
		class := body.Parent()
		if class == nil || !isClassNode(class) {
			return nil, false
		}
		var cs *Symbol
		if class.Type() == "class" {
			cs = c.localSymbol(f, class, "(anonymous class)", SymbolClass)
		} else {
			cs, _ = c.declarationSymbol(f, class)
		}
		owner := c.DeclaredTypeOfSymbol(cs)
		if tsparse.HasToken(d, "static") {
			owner = c.TypeOfSymbol(cs)
		}
		return c.PropertyOfType(owner, name), false
	case "pair":
		obj := d.Parent()
		if obj == nil {
			return nil, false
		}
		return c.PropertyOfType(c.expressionType(f, obj), c.propertyName(f, tsparse.Field(d, "key"))), false
	}
	return nil, false
}

// SymbolAtLocation returns the symbol named at n, or nil.
func (c *Checker) SymbolAtLocation(f *tsparse.File, n *sitter.Node) *Symbol {
	if n == nil {
		return nil
	}
	c.scope(f)
	if !n.IsNamed() && n.Parent() != nil {
		n = n.Parent()
	}
	if d := declarationOfName(n); d != nil {
		sym, _ := c.declarationSymbol(f, d)
		return sym
	}
	switch n.Type() {
	case "type_identifier":
		if t, ok := c.envAt(f, n).lookup(f.Text(n)); ok {
			return t.symbol
		}
		return c.resolveTypeName(f, n, f.Text(n))
	case "identifier", "shorthand_property_identifier":
		if p := n.Parent(); p != nil && p.Type() == "nested_type_identifier" {
			return c.scope(f).types[f.Text(n)]
		}
		return c.resolveValueName(f, n, f.Text(n))
	case "property_identifier":
		p := n.Parent()
		if p != nil && p.Type() == "member_expression" {
			obj := c.expressionType(f, tsparse.Field(p, "object"))
			return c.PropertyOfType(c.removeNullish(obj, FlagNullish), f.Text(n))
		}
	}
	return nil
}

// DeclarationType returns the type a top-level declaration contributes:
// the declared type for type declarations, the value type otherwise.
func (c *Checker) DeclarationType(sym *Symbol) *Type {
	if sym == nil {
		return c.errorType
	}
	if sym.Has(SymbolAlias) {
		target := c.resolveAlias(sym, true)
		if target == nil {
			target = c.resolveAlias(sym, false)
		}
		return c.DeclarationType(target)
	}
	if sym.Has(SymbolType) {
		return c.DeclaredTypeOfSymbol(sym)
	}
	return c.TypeOfSymbol(sym)
}

// ExportedSymbol returns the symbol f exports under name, following
// `export *` re-exports.
func (c *Checker) ExportedSymbol(f *tsparse.File, name string) *Symbol {
	if sym := c.moduleExport(f, name, true, make(map[*tsparse.File]bool)); sym != nil {
		return sym
	}
	return c.moduleExport(f, name, false, make(map[*tsparse.File]bool))
}

// AliasDeclarationTypeNode returns the value syntax of the alias t was
// declared through, or nil.
func (c *Checker) AliasDeclarationTypeNode(t *Type) *TypeNode {
	if t == nil || t.aliasSymbol == nil || len(t.aliasSymbol.decls) == 0 {
		return nil
	}
	d := t.aliasSymbol.decls[0]
	value := tsparse.Field(d.Node, "value")
	if value == nil {
		return nil
	}
	return c.typeNode(d.File, value, c.envAt(d.File, value))
}

// HasUnresolvedAliasArguments reports whether t is a generic alias
// reference over uninstantiated type parameters.
func (t *Type) HasUnresolvedAliasArguments() bool {
	for _, a := range t.aliasTypeArguments {
		if containsTypeParameter(a) {
			return true
		}
	}
	return false
}
