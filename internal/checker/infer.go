package checker

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
)

// resolveValueName looks a value name up through enclosing function
// parameters, blocks and the file scope.
func (c *Checker) resolveValueName(f *tsparse.File, n *sitter.Node, name string) *Symbol {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		switch {
		case cur.Type() == "statement_block":
			if sym := c.localDeclaration(f, cur, name, false); sym != nil {
				return sym
			}
		case isFunctionLike(cur):
			sig := c.signatureOfNode(f, cur, c.envAt(f, cur))
			for _, p := range sig.params {
				if p.name == name {
					return p
				}
			}
		case cur.Type() == "for_in_statement" || cur.Type() == "for_statement":
			if sym := c.localDeclaration(f, cur, name, false); sym != nil {
				return sym
			}
		}
	}
	if sym, ok := c.scope(f).values[name]; ok {
		return sym
	}
	return nil
}

// localDeclaration finds a declaration of name directly inside block.
func (c *Checker) localDeclaration(f *tsparse.File, block *sitter.Node, name string, wantType bool) *Symbol {
	for _, st := range tsparse.NamedChildren(block) {
		if st.Type() == "export_statement" {
			if d := tsparse.Field(st, "declaration"); d != nil {
				st = d
			}
		}
		switch st.Type() {
		case "type_alias_declaration":
			if wantType && declName(f, st) == name {
				return c.localSymbol(f, st, name, SymbolTypeAlias)
			}
		case "interface_declaration":
			if wantType && declName(f, st) == name {
				return c.localSymbol(f, st, name, SymbolInterface)
			}
		case "enum_declaration":
			if declName(f, st) == name {
				return c.localSymbol(f, st, name, SymbolEnum)
			}
		case "class_declaration", "abstract_class_declaration":
			if declName(f, st) == name {
				return c.localSymbol(f, st, name, SymbolClass)
			}
		case "function_declaration", "generator_function_declaration":
			if !wantType && declName(f, st) == name {
				return c.localSymbol(f, st, name, SymbolFunction)
			}
		case "lexical_declaration", "variable_declaration":
			if wantType {
				continue
			}
			for _, d := range tsparse.Children(st) {
				if d.Type() == "variable_declarator" && f.Text(tsparse.Field(d, "name")) == name {
					return c.localSymbol(f, d, name, SymbolVariable)
				}
			}
		}
	}
	return nil
}

func (c *Checker) localSymbol(f *tsparse.File, n *sitter.Node, name string, flag SymbolFlags) *Symbol {
	key := declKey{f, tsparse.KeyOf(n)}
	if sym, ok := c.declSymbols[key]; ok {
		return sym
	}
	sym := c.newSymbol(name, flag)
	sym.addDecl(f, n)
	c.declSymbols[key] = sym
	return sym
}

// expressionType returns the type of an expression with literal types
// preserved. Mutable locations widen the result themselves.
func (c *Checker) expressionType(f *tsparse.File, n *sitter.Node) *Type {
	if n == nil {
		return c.errorType
	}
	key := declKey{f, tsparse.KeyOf(n)}
	if t, ok := c.exprTypes[key]; ok {
		return t
	}
	t := c.computeExpressionType(f, n)
	if t == nil {
		t = c.errorType
	}
	c.exprTypes[key] = t
	return t
}

func (c *Checker) computeExpressionType(f *tsparse.File, n *sitter.Node) *Type {
	text := f.Text(n)
	switch n.Type() {
	case "string", "number", "true", "false", "null":
		return c.literalType(f, n)
	case "undefined":
		return c.undefinedType
	case "template_string":
		if tsparse.ChildOfType(n, "template_substitution") != nil {
			return c.stringType
		}
		return c.stringLiteral(tsparse.Unquote(text))
	case "regex":
		if sym := c.globalTypeSymbol("RegExp"); sym != nil {
			return c.DeclaredTypeOfSymbol(sym)
		}
		return c.anyType
	case "identifier", "shorthand_property_identifier":
		switch text {
		case "undefined":
			return c.undefinedType
		case "NaN", "Infinity":
			return c.numberType
		}
		sym := c.resolveValueName(f, n, text)
		if sym == nil {
			return c.errorType
		}
		return c.TypeOfSymbol(sym)
	case "object":
		return c.objectLiteralType(f, n, false)
	case "array":
		return c.arrayLiteralType(f, n)
	case "arrow_function", "function_expression", "function", "generator_function":
		sig := c.signatureOfNode(f, n, c.envAt(f, n))
		return c.newObject(ObjectFunction, nil, func() *members {
			m := newMembers()
			m.calls = []*Signature{sig}
			return m
		})
	case "call_expression":
		return c.callExpressionType(f, n)
	case "new_expression":
		return c.newExpressionType(f, n)
	case "member_expression":
		return c.memberExpressionType(f, n)
	case "subscript_expression":
		obj := c.expressionType(f, tsparse.Field(n, "object"))
		idx := c.expressionType(f, tsparse.Field(n, "index"))
		t := c.indexedAccess(c.removeNullish(obj, FlagNullish), idx, nil)
		if t.IsError() && obj.kind == ObjectArray {
			t = c.elementType(obj)
		}
		return t
	case "await_expression":
		return c.awaited(c.expressionType(f, firstNamed(n)))
	case "as_expression":
		kids := tsparse.NamedChildren(n)
		if len(kids) == 0 {
			return c.errorType
		}
		if len(kids) == 1 || f.Text(kids[1]) == "const" {
			return c.constExpressionType(f, kids[0])
		}
		return c.typeFromNode(f, kids[1], c.envAt(f, kids[1]))
	case "satisfies_expression", "parenthesized_expression":
		return c.expressionType(f, firstNamed(n))
	case "non_null_expression":
		return c.removeNullish(c.expressionType(f, firstNamed(n)), FlagNullish)
	case "unary_expression":
		return c.unaryExpressionType(f, n)
	case "update_expression":
		return c.numberType
	case "binary_expression":
		return c.binaryExpressionType(f, n)
	case "ternary_expression":
		return c.union([]*Type{
			c.expressionType(f, tsparse.Field(n, "consequence")),
			c.expressionType(f, tsparse.Field(n, "alternative")),
		}, nil)
	case "assignment_expression", "augmented_assignment_expression":
		return c.expressionType(f, tsparse.Field(n, "right"))
	case "sequence_expression":
		kids := tsparse.NamedChildren(n)
		if len(kids) == 0 {
			return c.errorType
		}
		return c.expressionType(f, kids[len(kids)-1])
	case "class":
		sym := c.localSymbol(f, n, "(anonymous class)", SymbolClass)
		return c.TypeOfSymbol(sym)
	}
	return c.anyType
}

func (c *Checker) objectLiteralType(f *tsparse.File, n *sitter.Node, constant bool) *Type {
	t := c.newObject(ObjectAnonymous, nil, nil)
	t.resolveMembers = func() *members {
		m := newMembers()
		for _, member := range tsparse.NamedChildren(n) {
			switch member.Type() {
			case "pair":
				key := tsparse.Field(member, "key")
				if key == nil || (key.Type() == "computed_property_name" && !isStringKey(key)) {
					continue
				}
				value := tsparse.Field(member, "value")
				p := c.newSymbol(c.propertyName(f, key), SymbolProperty)
				p.addDecl(f, member)
				p.valueThunk = c.literalMemberType(f, value, constant)
				if constant {
					p.flags |= SymbolReadonly
				}
				m.set(p)
			case "shorthand_property_identifier":
				p := c.newSymbol(f.Text(member), SymbolProperty)
				p.addDecl(f, member)
				p.valueThunk = c.literalMemberType(f, member, constant)
				m.set(p)
			case "method_definition":
				name := c.propertyName(f, tsparse.Field(member, "name"))
				sig := c.signatureOfNode(f, member, c.envAt(f, member))
				p := c.newSymbol(name, SymbolMethod)
				p.addDecl(f, member)
				p.valueThunk = c.methodType(&[]*Signature{sig}, false)
				m.set(p)
			case "spread_element":
				spread := c.expressionType(f, firstNamed(member))
				for _, p := range c.PropertiesOfType(spread) {
					m.set(p)
				}
			}
		}
		return m
	}
	return t
}

func isStringKey(computed *sitter.Node) bool {
	inner := firstNamed(computed)
	return inner != nil && inner.Type() == "string"
}

func (c *Checker) literalMemberType(f *tsparse.File, value *sitter.Node, constant bool) func() *Type {
	return func() *Type {
		if constant {
			return c.constExpressionType(f, value)
		}
		return c.widen(c.expressionType(f, value))
	}
}

func (c *Checker) arrayLiteralType(f *tsparse.File, n *sitter.Node) *Type {
	var parts []*Type
	for _, el := range tsparse.NamedChildren(n) {
		if el.Type() == "spread_element" {
			st := c.expressionType(f, firstNamed(el))
			switch st.kind {
			case ObjectArray:
				parts = append(parts, c.elementType(st))
			case ObjectTuple:
				for _, te := range st.tuple {
					parts = append(parts, te.typ)
				}
			default:
				parts = append(parts, c.anyType)
			}
			continue
		}
		parts = append(parts, c.widen(c.expressionType(f, el)))
	}
	if len(parts) == 0 {
		return c.arrayOf(c.anyType)
	}
	return c.arrayOf(c.union(parts, nil))
}

// constExpressionType types an expression under `as const`: literals stay,
// objects become readonly and arrays readonly tuples.
func (c *Checker) constExpressionType(f *tsparse.File, n *sitter.Node) *Type {
	switch n.Type() {
	case "object":
		return c.objectLiteralType(f, n, true)
	case "array":
		t := c.newObject(ObjectTuple, nil, nil)
		t.readonly = true
		for _, el := range tsparse.NamedChildren(n) {
			t.tuple = append(t.tuple, tupleElement{typ: c.constExpressionType(f, el)})
		}
		t.resolveMembers = func() *members {
			m := newMembers()
			for i, el := range t.tuple {
				m.add(c.syntheticProperty(formatNumber(float64(i)), SymbolProperty|SymbolReadonly, el.typ))
			}
			m.add(c.syntheticProperty("length", SymbolProperty|SymbolReadonly, c.numberLiteral(float64(len(t.tuple)))))
			return m
		}
		return t
	case "parenthesized_expression":
		return c.constExpressionType(f, firstNamed(n))
	}
	return c.expressionType(f, n)
}

func (c *Checker) callExpressionType(f *tsparse.File, n *sitter.Node) *Type {
	callee := tsparse.Field(n, "function")
	if callee == nil || callee.Type() == "import" {
		return c.anyType
	}
	ct := c.expressionType(f, callee)
	sigs := c.CallSignatures(c.removeNullish(ct, FlagNullish))
	if len(sigs) == 0 {
		return c.anyType
	}
	args := argumentNodes(tsparse.Field(n, "arguments"))
	sig := pickOverload(sigs, len(args))
	if len(sig.typeParams) > 0 {
		sig = c.instantiateSignature(sig, c.inferCallTypeArguments(f, sig, args, tsparse.Field(n, "type_arguments")))
	}
	t := c.ReturnTypeOfSignature(sig)
	if tsparse.ChildOfType(n, "optional_chain") != nil || tsparse.HasToken(n, "?.") {
		t = c.addUndefined(t)
	}
	return t
}

func argumentNodes(args *sitter.Node) []*sitter.Node {
	return tsparse.NamedChildren(args)
}

func pickOverload(sigs []*Signature, argc int) *Signature {
	for _, s := range sigs {
		required := 0
		rest := false
		for _, p := range s.params {
			if p.rest {
				rest = true
				continue
			}
			if !p.Has(SymbolOptional) {
				required++
			}
		}
		if argc >= required && (rest || argc <= len(s.params)) {
			return s
		}
	}
	return sigs[0]
}

func (c *Checker) newExpressionType(f *tsparse.File, n *sitter.Node) *Type {
	ctorNode := tsparse.Field(n, "constructor")
	if ctorNode == nil {
		return c.anyType
	}
	args := argumentNodes(tsparse.Field(n, "arguments"))
	explicit := tsparse.Field(n, "type_arguments")
	if ctorNode.Type() == "identifier" {
		name := f.Text(ctorNode)
		sym := c.resolveValueName(f, ctorNode, name)
		if sym != nil && sym.Has(SymbolAlias) {
			sym = c.resolveAlias(sym, false)
		}
		if sym != nil && sym.Has(SymbolClass) {
			if len(c.typeParametersOf(sym)) == 0 {
				return c.DeclaredTypeOfSymbol(sym)
			}
			sigs := c.ConstructSignatures(c.TypeOfSymbol(sym))
			if len(sigs) == 0 {
				return c.instantiateInterface(sym, nil)
			}
			return c.instantiateInterface(sym, c.inferCallTypeArguments(f, sigs[0], args, explicit))
		}
		if sym == nil {
			if gs := c.globalTypeSymbol(name); gs != nil {
				var targs []*Type
				if explicit != nil {
					e := c.envAt(f, explicit)
					for _, a := range tsparse.NamedChildren(explicit) {
						targs = append(targs, c.typeFromNode(f, a, e))
					}
				}
				return c.referenceTo(gs, targs, nil)
			}
		}
	}
	ct := c.expressionType(f, ctorNode)
	if sigs := c.ConstructSignatures(ct); len(sigs) > 0 {
		return c.ReturnTypeOfSignature(sigs[0])
	}
	return c.anyType
}

func (c *Checker) memberExpressionType(f *tsparse.File, n *sitter.Node) *Type {
	obj := tsparse.Field(n, "object")
	prop := tsparse.Field(n, "property")
	if obj == nil || prop == nil {
		return c.errorType
	}
	name := f.Text(prop)
	if obj.Type() == "identifier" {
		if sym := c.resolveValueName(f, obj, f.Text(obj)); sym != nil {
			if sym.Has(SymbolAlias) && sym.importName == "*" {
				if target := c.namespaceFile(sym); target != nil {
					if exp := c.moduleExport(target, name, false, make(map[*tsparse.File]bool)); exp != nil {
						return c.TypeOfSymbol(exp)
					}
				}
				return c.errorType
			}
			target := sym
			if target.Has(SymbolAlias) {
				target = c.resolveAlias(target, false)
			}
			if target != nil && target.Has(SymbolEnum) {
				if member := c.enumMember(target, name); member != nil {
					return c.DeclaredTypeOfSymbol(member)
				}
			}
		}
	}
	t := c.propertyAccessType(c.expressionType(f, obj), name)
	if tsparse.ChildOfType(n, "optional_chain") != nil || tsparse.HasToken(n, "?.") {
		t = c.addUndefined(t)
	}
	return t
}

func (c *Checker) propertyAccessType(t *Type, name string) *Type {
	t = c.removeNullish(t, FlagNullish)
	switch {
	case t.flags&(FlagAny|FlagError) != 0:
		return c.anyType
	case t.flags&(FlagString|FlagStringLiteral) != 0:
		if name == "length" {
			return c.numberType
		}
		return c.anyType
	}
	if p := c.PropertyOfType(t, name); p != nil {
		return c.TypeOfSymbol(p)
	}
	if t.flags&(FlagObject|FlagIntersection) != 0 {
		if idx := c.resolvedMembers(t).stringIndex; idx != nil {
			return idx
		}
	}
	return c.errorType
}

func (c *Checker) unaryExpressionType(f *tsparse.File, n *sitter.Node) *Type {
	arg := tsparse.Field(n, "argument")
	op := strings.TrimSpace(f.Text(tsparse.Field(n, "operator")))
	if op == "" && arg != nil {
		op = strings.TrimSpace(string(f.Source[n.StartByte():arg.StartByte()]))
	}
	switch op {
	case "-", "+", "~":
		at := c.expressionType(f, arg)
		if op == "-" && arg != nil && arg.Type() == "number" {
			return c.literalType(f, n)
		}
		if at.flags&(FlagBigInt|FlagBigIntLiteral) != 0 {
			return c.bigintType
		}
		return c.numberType
	case "!", "delete":
		return c.booleanType
	case "typeof":
		return c.stringType
	case "void":
		return c.undefinedType
	}
	return c.anyType
}

func (c *Checker) binaryExpressionType(f *tsparse.File, n *sitter.Node) *Type {
	left := c.expressionType(f, tsparse.Field(n, "left"))
	right := c.expressionType(f, tsparse.Field(n, "right"))
	op := strings.TrimSpace(f.Text(tsparse.Field(n, "operator")))
	bigint := left.flags&(FlagBigInt|FlagBigIntLiteral) != 0 && right.flags&(FlagBigInt|FlagBigIntLiteral) != 0
	switch op {
	case "+":
		switch {
		case left.flags&(FlagString|FlagStringLiteral) != 0 || right.flags&(FlagString|FlagStringLiteral) != 0:
			return c.stringType
		case bigint:
			return c.bigintType
		case left.flags&(FlagAny|FlagError) != 0 || right.flags&(FlagAny|FlagError) != 0:
			return c.anyType
		}
		return c.numberType
	case "-", "*", "/", "%", "**", "&", "|", "^", "<<", ">>", ">>>":
		if bigint {
			return c.bigintType
		}
		return c.numberType
	case "==", "===", "!=", "!==", "<", ">", "<=", ">=", "instanceof", "in":
		return c.booleanType
	case "&&":
		return right
	case "||", "??":
		return c.union([]*Type{c.removeNullish(left, FlagNullish), right}, nil)
	}
	return c.anyType
}

// variableType types a variable declarator from its annotation or
// initializer. Only const declarations keep literal types.
func (c *Checker) variableType(sym *Symbol) *Type {
	d, ok := sym.ValueDeclaration()
	if !ok {
		return c.errorType
	}
	if d.Node.Type() == "export_statement" {
		return c.expressionType(d.File, tsparse.Field(d.Node, "value"))
	}
	if ann := tsparse.Field(d.Node, "type"); ann != nil {
		return c.typeFromNode(d.File, ann, c.envAt(d.File, ann))
	}
	value := tsparse.Field(d.Node, "value")
	if value == nil {
		return c.anyType
	}
	t := c.expressionType(d.File, value)
	if !isConstDeclarator(d.File, d.Node) {
		t = c.widen(t)
	}
	return t
}

func isConstDeclarator(f *tsparse.File, n *sitter.Node) bool {
	p := n.Parent()
	if p == nil || p.Type() != "lexical_declaration" {
		return false
	}
	if kind := tsparse.Field(p, "kind"); kind != nil {
		return f.Text(kind) == "const"
	}
	return tsparse.HasToken(p, "const")
}

func (c *Checker) functionType(sym *Symbol) *Type {
	t := c.newObject(ObjectFunction, sym, nil)
	t.resolveMembers = func() *members {
		m := newMembers()
		var impl, overloads []*Signature
		for _, d := range sym.decls {
			if !isFunctionLike(d.Node) && d.Node.Type() != "function_signature" {
				continue
			}
			sig := c.signatureOfNode(d.File, d.Node, c.envAt(d.File, d.Node))
			if tsparse.Field(d.Node, "body") == nil {
				overloads = append(overloads, sig)
			} else {
				impl = append(impl, sig)
			}
		}
		if len(overloads) > 0 {
			m.calls = overloads
		} else {
			m.calls = impl
		}
		return m
	}
	return t
}
