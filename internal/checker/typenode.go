package checker

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
)

func (c *Checker) typeNode(f *tsparse.File, n *sitter.Node, e *env) *TypeNode {
	return &TypeNode{file: f, node: n, env: e}
}

// TypeFromTypeNode resolves type syntax in the scope it was captured in.
func (c *Checker) TypeFromTypeNode(n *TypeNode) *Type {
	if n == nil || n.node == nil {
		return c.errorType
	}
	e := n.env
	if e == nil {
		e = c.envAt(n.file, n.node)
	}
	return c.typeFromNode(n.file, n.node, e)
}

func (c *Checker) typeFromNode(f *tsparse.File, n *sitter.Node, e *env) *Type {
	if n == nil {
		return c.errorType
	}
	key := nodeTypeKey{file: f, key: tsparse.KeyOf(n), env: e.id}
	if t, ok := c.nodeTypes[key]; ok {
		return t
	}
	t := c.resolveTypeNode(f, n, e)
	if t == nil {
		t = c.errorType
	}
	c.nodeTypes[key] = t
	return t
}

func firstNamed(n *sitter.Node) *sitter.Node {
	kids := tsparse.NamedChildren(n)
	if len(kids) == 0 {
		return nil
	}
	return kids[0]
}

func (c *Checker) resolveTypeNode(f *tsparse.File, n *sitter.Node, e *env) *Type {
	switch n.Type() {
	case "type_annotation", "opting_type_annotation", "omitting_type_annotation", "adding_type_annotation",
		"parenthesized_type", "optional_type", "default_type", "constraint", "template_type", "rest_type":
		return c.typeFromNode(f, firstNamed(n), e)
	case "type_predicate_annotation", "type_predicate":
		return c.booleanType
	case "asserts_annotation", "asserts":
		return c.voidType
	case "predefined_type":
		return c.predefinedType(f.Text(n))
	case "literal_type":
		return c.literalType(f, firstNamed(n))
	case "string", "number", "true", "false", "null", "undefined", "unary_expression":
		return c.literalType(f, n)
	case "type_identifier", "identifier", "nested_type_identifier":
		return c.typeReference(f, n, nil, e, n)
	case "generic_type":
		name := tsparse.Field(n, "name")
		if name == nil {
			name = firstNamed(n)
		}
		args := tsparse.Field(n, "type_arguments")
		if args == nil {
			args = tsparse.ChildOfType(n, "type_arguments")
		}
		return c.typeReference(f, name, tsparse.NamedChildren(args), e, n)
	case "object_type":
		return c.objectTypeLiteral(f, n, e)
	case "array_type":
		elem := firstNamed(n)
		return c.arrayType(func() *Type { return c.typeFromNode(f, elem, e) }, c.typeNode(f, n, e), false)
	case "readonly_type":
		return c.readonlyType(c.typeFromNode(f, firstNamed(n), e))
	case "tuple_type":
		return c.tupleType(f, n, e)
	case "union_type":
		var parts []*Type
		for _, m := range flattenSyntax(n, "union_type") {
			parts = append(parts, c.typeFromNode(f, m, e))
		}
		return c.union(parts, c.typeNode(f, n, e))
	case "intersection_type":
		var parts []*Type
		for _, m := range flattenSyntax(n, "intersection_type") {
			parts = append(parts, c.typeFromNode(f, m, e))
		}
		return c.intersection(parts, c.typeNode(f, n, e))
	case "function_type":
		sig := c.signatureOfNode(f, n, e)
		t := c.newObject(ObjectAnonymous, nil, func() *members {
			m := newMembers()
			m.calls = []*Signature{sig}
			return m
		})
		t.origin = c.typeNode(f, n, e)
		return t
	case "constructor_type":
		sig := c.signatureOfNode(f, n, e)
		t := c.newObject(ObjectAnonymous, nil, func() *members {
			m := newMembers()
			m.constructs = []*Signature{sig}
			return m
		})
		t.origin = c.typeNode(f, n, e)
		return t
	case "type_query":
		return c.expressionType(f, firstNamed(n))
	case "index_type_query":
		return c.keyOf(c.typeFromNode(f, firstNamed(n), e), c.typeNode(f, n, e))
	case "lookup_type":
		kids := tsparse.NamedChildren(n)
		if len(kids) < 2 {
			return c.errorType
		}
		obj := c.typeFromNode(f, kids[0], e)
		idx := c.typeFromNode(f, kids[1], e)
		return c.indexedAccess(obj, idx, c.typeNode(f, n, e))
	case "conditional_type":
		return c.conditionalType(f, n, e)
	case "infer_type":
		name := tsparse.ChildOfType(n, "type_identifier")
		if name != nil {
			if t, ok := e.lookup(f.Text(name)); ok {
				return t
			}
		}
		return c.unknownType
	case "template_literal_type":
		return c.templateLiteralType(f, n, e)
	case "required_parameter", "optional_parameter":
		return c.typeFromNode(f, tupleElementType(n), e)
	}
	return c.anyType
}

// flattenSyntax collects the operands of left-nested binary type syntax,
// e.g. `A | B | C` parsed as union_type(union_type(A, B), C).
func flattenSyntax(n *sitter.Node, kind string) []*sitter.Node {
	var out []*sitter.Node
	for _, child := range tsparse.NamedChildren(n) {
		if child.Type() == kind {
			out = append(out, flattenSyntax(child, kind)...)
			continue
		}
		out = append(out, child)
	}
	return out
}

func (c *Checker) predefinedType(name string) *Type {
	switch strings.Join(strings.Fields(name), " ") {
	case "any":
		return c.anyType
	case "unknown":
		return c.unknownType
	case "string":
		return c.stringType
	case "number":
		return c.numberType
	case "boolean":
		return c.booleanType
	case "bigint":
		return c.bigintType
	case "symbol":
		return c.symbolType
	case "unique symbol":
		return c.uniqueSymbolType
	case "void":
		return c.voidType
	case "undefined":
		return c.undefinedType
	case "null":
		return c.nullType
	case "never":
		return c.neverType
	case "object":
		return c.objectType
	}
	return c.errorType
}

func (c *Checker) literalType(f *tsparse.File, n *sitter.Node) *Type {
	if n == nil {
		return c.errorType
	}
	text := f.Text(n)
	switch n.Type() {
	case "string":
		return c.stringLiteral(tsparse.Unquote(text))
	case "number":
		if strings.HasSuffix(text, "n") {
			return c.bigintLiteral(BigInt(strings.TrimSuffix(text, "n")))
		}
		if v, ok := tsparse.ParseNumber(text); ok {
			return c.numberLiteral(v)
		}
	case "true":
		return c.trueType
	case "false":
		return c.falseType
	case "null":
		return c.nullType
	case "undefined":
		return c.undefinedType
	case "unary_expression":
		arg := tsparse.Field(n, "argument")
		if arg == nil {
			arg = firstNamed(n)
		}
		if arg != nil && arg.Type() == "number" && strings.HasPrefix(strings.TrimSpace(text), "-") {
			inner := c.literalType(f, arg)
			switch v := inner.value.(type) {
			case float64:
				return c.numberLiteral(-v)
			case BigInt:
				return c.bigintLiteral("-" + v)
			}
		}
		return c.numberType
	}
	return c.errorType
}

func (c *Checker) typeReference(f *tsparse.File, nameNode *sitter.Node, argNodes []*sitter.Node, e *env, ref *sitter.Node) *Type {
	if nameNode == nil {
		return c.errorType
	}
	origin := c.typeNode(f, ref, e)
	args := make([]*Type, len(argNodes))
	for i, a := range argNodes {
		args[i] = c.typeFromNode(f, a, e)
	}
	if nameNode.Type() == "nested_type_identifier" {
		sym := c.qualifiedTypeSymbol(f, nameNode)
		if sym == nil {
			return c.errorType
		}
		return c.referenceTo(sym, args, origin)
	}
	name := f.Text(nameNode)
	if len(args) == 0 {
		if t, ok := e.lookup(name); ok {
			return t
		}
	}
	sym := c.resolveTypeName(f, nameNode, name)
	if sym == nil {
		// The grammar has no bigint keyword; it arrives as a type_identifier.
		if name == "bigint" && len(args) == 0 {
			return c.bigintType
		}
		return c.errorType
	}
	return c.referenceTo(sym, args, origin)
}

func (c *Checker) referenceTo(sym *Symbol, args []*Type, origin *TypeNode) *Type {
	switch {
	case sym.Has(SymbolTypeParameter):
		return sym.declaredType
	case sym == c.globalTypeSymbol("Array") || sym == c.globalTypeSymbol("ReadonlyArray"):
		elem := c.anyType
		if len(args) > 0 {
			elem = args[0]
		}
		t := c.arrayType(func() *Type { return elem }, origin, sym.name == "ReadonlyArray")
		t.typeArguments = []*Type{elem}
		return t
	case sym.Has(SymbolTypeAlias):
		return c.instantiateAlias(sym, args)
	case sym.Has(SymbolInterface | SymbolClass):
		if len(c.typeParametersOf(sym)) == 0 {
			return c.DeclaredTypeOfSymbol(sym)
		}
		return c.instantiateInterface(sym, args)
	case sym.Has(SymbolEnum | SymbolEnumMember):
		return c.DeclaredTypeOfSymbol(sym)
	}
	return c.errorType
}

// resolveTypeName looks a type name up through enclosing blocks, the file
// scope and the declaration library.
func (c *Checker) resolveTypeName(f *tsparse.File, n *sitter.Node, name string) *Symbol {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if cur.Type() == "statement_block" {
			if sym := c.localDeclaration(f, cur, name, true); sym != nil {
				return sym
			}
		}
	}
	if sym, ok := c.scope(f).types[name]; ok {
		if sym.Has(SymbolAlias) {
			return c.resolveAlias(sym, true)
		}
		return sym
	}
	if lib := c.program.lib; lib != nil && lib != f {
		return c.scope(lib).types[name]
	}
	return nil
}

// qualifiedTypeSymbol resolves `ns.Name` against a namespace import or an
// enum member.
func (c *Checker) qualifiedTypeSymbol(f *tsparse.File, n *sitter.Node) *Symbol {
	module := tsparse.Field(n, "module")
	name := tsparse.Field(n, "name")
	if module == nil || name == nil {
		return nil
	}
	member := f.Text(name)
	if module.Type() != "identifier" {
		return nil
	}
	base := c.scope(f).types[f.Text(module)]
	if base == nil {
		base = c.resolveValueName(f, module, f.Text(module))
	}
	if base == nil {
		return nil
	}
	if base.Has(SymbolAlias) && base.importName == "*" {
		target := c.namespaceFile(base)
		if target == nil {
			return nil
		}
		sym := c.moduleExport(target, member, true, make(map[*tsparse.File]bool))
		if sym != nil && sym.Has(SymbolAlias) {
			sym = c.resolveAlias(sym, true)
		}
		return sym
	}
	if base.Has(SymbolAlias) {
		base = c.resolveAlias(base, true)
	}
	if base != nil && base.Has(SymbolEnum) {
		return c.enumMember(base, member)
	}
	return nil
}

func (c *Checker) namespaceFile(sym *Symbol) *tsparse.File {
	target, status := c.program.ResolveModule(sym.from, sym.module)
	if status != ModuleResolved {
		return nil
	}
	return target
}

func (c *Checker) readonlyType(inner *Type) *Type {
	switch inner.kind {
	case ObjectArray:
		t := c.arrayType(inner.elem, inner.origin, true)
		if len(inner.typeArguments) > 0 {
			t.typeArguments = inner.typeArguments
		}
		return t
	case ObjectTuple:
		t := c.newObject(ObjectTuple, nil, inner.resolveMembers)
		t.tuple = inner.tuple
		t.origin = inner.origin
		t.readonly = true
		return t
	}
	return inner
}

func (c *Checker) tupleType(f *tsparse.File, n *sitter.Node, e *env) *Type {
	t := c.newObject(ObjectTuple, nil, nil)
	t.origin = c.typeNode(f, n, e)
	for _, el := range tsparse.NamedChildren(n) {
		var te tupleElement
		switch el.Type() {
		case "required_parameter", "optional_parameter":
			nameNode := tupleElementName(el)
			if nameNode != nil && nameNode.Type() == "rest_pattern" {
				te.rest = true
				nameNode = firstNamed(nameNode)
			}
			if nameNode != nil {
				te.name = f.Text(nameNode)
			}
			te.optional = el.Type() == "optional_parameter"
			te.typ = c.typeFromNode(f, tupleElementType(el), e)
		case "optional_type":
			te.optional = true
			te.typ = c.typeFromNode(f, firstNamed(el), e)
		case "rest_type":
			te.rest = true
			te.typ = c.typeFromNode(f, firstNamed(el), e)
		default:
			te.typ = c.typeFromNode(f, el, e)
		}
		t.tuple = append(t.tuple, te)
	}
	t.resolveMembers = func() *members {
		m := newMembers()
		for i, el := range t.tuple {
			if el.rest {
				break
			}
			typ := el.typ
			flags := SymbolProperty
			if el.optional {
				typ = c.addUndefined(typ)
				flags |= SymbolOptional
			}
			m.add(c.syntheticProperty(formatNumber(float64(i)), flags, typ))
		}
		m.add(c.syntheticProperty("length", SymbolProperty|SymbolReadonly, c.numberType))
		return m
	}
	return t
}

// Named tuple members parse as required_parameter and optional_parameter
// with a name and a type_annotation.
func tupleElementName(el *sitter.Node) *sitter.Node {
	if n := tsparse.Field(el, "name"); n != nil {
		return n
	}
	if n := tsparse.Field(el, "pattern"); n != nil {
		return n
	}
	return tsparse.ChildOfType(el, "identifier", "rest_pattern")
}

func tupleElementType(el *sitter.Node) *sitter.Node {
	if t := tsparse.Field(el, "type"); t != nil {
		return t
	}
	return tsparse.ChildOfType(el, "type_annotation")
}

func (c *Checker) syntheticProperty(name string, flags SymbolFlags, t *Type) *Symbol {
	p := c.newSymbol(name, flags)
	p.valueType = t
	return p
}

func (c *Checker) objectTypeLiteral(f *tsparse.File, n *sitter.Node, e *env) *Type {
	kids := tsparse.NamedChildren(n)
	if len(kids) == 1 && kids[0].Type() == "index_signature" {
		if clause := tsparse.ChildOfType(kids[0], "mapped_type_clause"); clause != nil {
			return c.mappedType(f, n, kids[0], clause, e)
		}
	}
	t := c.newObject(ObjectAnonymous, nil, nil)
	t.origin = c.typeNode(f, n, e)
	t.resolveMembers = func() *members {
		m := newMembers()
		c.addObjectTypeMembers(f, n, e, m)
		return m
	}
	return t
}

// mappedType expands `{ [P in K]: X }` over the keys in K. Each produced
// property records its instantiated template.
func (c *Checker) mappedType(f *tsparse.File, n, sig, clause *sitter.Node, e *env) *Type {
	t := c.newObject(ObjectMapped, nil, nil)
	t.origin = c.typeNode(f, n, e)

	paramName := f.Text(tsparse.Field(clause, "name"))
	constraintNode := tsparse.Field(clause, "type")
	aliasNode := tsparse.Field(clause, "alias")
	annotation := tsparse.Field(sig, "type")
	if annotation == nil {
		annotation = tsparse.ChildOfType(sig, "type_annotation", "opting_type_annotation",
			"omitting_type_annotation", "adding_type_annotation")
	}
	valueNode := firstNamed(annotation)

	optMod := 0
	if annotation != nil {
		switch annotation.Type() {
		case "opting_type_annotation", "adding_type_annotation":
			optMod = 1
		case "omitting_type_annotation":
			optMod = -1
		}
	}
	readonly := tsparse.HasToken(sig, "readonly") && !tsparse.HasToken(sig, "-")

	keys := c.typeFromNode(f, constraintNode, e)
	if containsTypeParameter(keys) {
		return c.deferred(c.typeNode(f, n, e))
	}
	var modifiers *Type
	if constraintNode != nil && constraintNode.Type() == "index_type_query" {
		modifiers = c.typeFromNode(f, firstNamed(constraintNode), e)
	} else if valueNode != nil && valueNode.Type() == "lookup_type" {
		if parts := tsparse.NamedChildren(valueNode); len(parts) == 2 && f.Text(parts[1]) == paramName {
			modifiers = c.typeFromNode(f, parts[0], e)
		}
	}

	t.resolveMembers = func() *members {
		m := newMembers()
		for _, k := range unionMembers(keys) {
			ke := c.with(e, paramName, k)
			name, ok := literalKeyName(k)
			if !ok {
				switch {
				case k.flags&FlagString != 0:
					m.stringIndex = c.typeFromNode(f, valueNode, ke)
				case k.flags&FlagNumber != 0:
					m.numberIndex = c.typeFromNode(f, valueNode, ke)
				}
				continue
			}
			if aliasNode != nil {
				renamed := c.typeFromNode(f, aliasNode, ke)
				if name, ok = literalKeyName(renamed); !ok {
					continue
				}
			}
			template := c.typeFromNode(f, valueNode, ke)
			flags := SymbolProperty
			optional := optMod > 0
			propReadonly := readonly
			if modifiers != nil {
				if src := c.PropertyOfType(modifiers, name); src != nil {
					if optMod == 0 && src.Has(SymbolOptional) {
						optional = true
					}
					if src.Has(SymbolReadonly) && !tsparse.HasToken(sig, "-") {
						propReadonly = true
					}
				}
			}
			if optMod < 0 {
				template = c.removeNullish(template, FlagUndefined)
			}
			if optional {
				flags |= SymbolOptional
				template = c.addUndefined(template)
			}
			if propReadonly {
				flags |= SymbolReadonly
			}
			p := c.newSymbol(name, flags)
			p.addDecl(f, sig)
			p.valueType = template
			p.mappedTemplate = template
			m.add(p)
		}
		return m
	}
	return t
}

func unionMembers(t *Type) []*Type {
	if t.flags&FlagUnion != 0 {
		return t.types
	}
	if t.flags&FlagNever != 0 {
		return nil
	}
	return []*Type{t}
}

func literalKeyName(t *Type) (string, bool) {
	switch v := t.value.(type) {
	case string:
		return v, t.flags&(FlagStringLiteral) != 0
	case float64:
		return formatNumber(v), t.flags&FlagNumberLiteral != 0
	}
	return "", false
}

func (c *Checker) deferred(origin *TypeNode) *Type {
	t := c.newType(FlagDeferred)
	t.origin = origin
	return t
}

// containsTypeParameter reports whether t still depends on an unbound type
// parameter at its top level.
func containsTypeParameter(t *Type) bool {
	if t.flags&(FlagTypeParameter|FlagDeferred) != 0 {
		return true
	}
	if t.flags&(FlagUnion|FlagIntersection) != 0 {
		for _, m := range t.types {
			if containsTypeParameter(m) {
				return true
			}
		}
	}
	return false
}

func (c *Checker) templateLiteralType(f *tsparse.File, n *sitter.Node, e *env) *Type {
	const maxCombinations = 100
	results := []string{""}
	appendText := func(text string) {
		for i := range results {
			results[i] += text
		}
	}
	src := f.Source
	cursor := n.StartByte() + 1
	for _, part := range tsparse.NamedChildren(n) {
		if part.Type() != "template_type" {
			continue
		}
		appendText(string(src[cursor:part.StartByte()]))
		cursor = part.EndByte()
		t := c.typeFromNode(f, firstNamed(part), e)
		var texts []string
		for _, m := range unionMembers(t) {
			s, ok := literalText(m)
			if !ok {
				return c.stringType
			}
			texts = append(texts, s)
		}
		if len(results)*len(texts) > maxCombinations {
			return c.stringType
		}
		next := make([]string, 0, len(results)*len(texts))
		for _, r := range results {
			for _, s := range texts {
				next = append(next, r+s)
			}
		}
		results = next
	}
	if end := n.EndByte() - 1; end > cursor {
		appendText(string(src[cursor:end]))
	}
	parts := make([]*Type, len(results))
	for i, r := range results {
		parts[i] = c.stringLiteral(r)
	}
	return c.union(parts, nil)
}

func literalText(t *Type) (string, bool) {
	switch v := t.value.(type) {
	case string:
		return v, true
	case float64:
		return formatNumber(v), true
	case bool:
		if v {
			return "true", true
		}
		return "false", true
	case BigInt:
		return string(v), true
	}
	switch {
	case t.flags&FlagNull != 0:
		return "null", true
	case t.flags&FlagUndefined != 0:
		return "undefined", true
	}
	return "", false
}
