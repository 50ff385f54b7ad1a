package checker

import (
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
)

func isFunctionLike(n *sitter.Node) bool {
	switch n.Type() {
	case "arrow_function", "function_expression", "function", "function_declaration",
		"generator_function", "generator_function_declaration", "method_definition":
		return true
	}
	return false
}

// signatureOfNode returns the signature declared by a function-like node,
// resolving its syntax in outer plus the node's own type parameters.
func (c *Checker) signatureOfNode(f *tsparse.File, n *sitter.Node, outer *env) *Signature {
	key := sigKey{decl: declKey{f, tsparse.KeyOf(n)}, env: outer.id}
	if sig, ok := c.signatures[key]; ok {
		return sig
	}
	e := outer
	var tparams []*Type
	if nodes := c.typeParameterNodes(n); len(nodes) > 0 {
		e = c.newEnv(f, outer)
		for _, tp := range nodes {
			t := c.typeParameter(f, tp)
			tparams = append(tparams, t)
			e.params[t.name] = t
		}
	}
	sig := c.buildSignature(f, n, e)
	sig.typeParams = tparams
	c.signatures[key] = sig
	return sig
}

func (c *Checker) buildSignature(f *tsparse.File, n *sitter.Node, e *env) *Signature {
	sig := &Signature{file: f, node: n, env: e}
	if params := tsparse.Field(n, "parameters"); params != nil {
		for i, p := range tsparse.NamedChildren(params) {
			if sym := c.parameterSymbol(f, p, i, e); sym != nil {
				sig.params = append(sig.params, sym)
			}
		}
	} else if p := tsparse.Field(n, "parameter"); p != nil {
		if sym := c.parameterSymbol(f, p, 0, e); sym != nil {
			sig.params = append(sig.params, sym)
		}
	}
	ret := tsparse.Field(n, "return_type")
	async := tsparse.HasToken(n, "async")
	sig.ret = func() *Type {
		if ret != nil {
			return c.typeFromNode(f, ret, e)
		}
		t := c.inferReturnType(f, n)
		if async {
			t = c.promiseOf(c.awaited(t))
		}
		return t
	}
	return sig
}

func (c *Checker) parameterSymbol(f *tsparse.File, p *sitter.Node, index int, e *env) *Symbol {
	key := declKey{f, tsparse.KeyOf(p)}
	if p.Type() == "identifier" {
		sym := c.newSymbol(f.Text(p), SymbolParameter)
		sym.addDecl(f, p)
		sym.valueThunk = func() *Type {
			if t, ok := c.contextual[key]; ok {
				return t
			}
			return c.anyType
		}
		c.declSymbols[key] = sym
		return sym
	}
	if p.Type() != "required_parameter" && p.Type() != "optional_parameter" {
		return nil
	}
	pattern := tsparse.Field(p, "pattern")
	if pattern == nil {
		pattern = firstNamed(p)
	}
	if pattern == nil || pattern.Type() == "this" {
		return nil
	}
	rest := false
	name := "__" + strconv.Itoa(index)
	switch pattern.Type() {
	case "rest_pattern":
		rest = true
		if inner := firstNamed(pattern); inner != nil && inner.Type() == "identifier" {
			name = f.Text(inner)
		}
	case "identifier":
		name = f.Text(pattern)
	}
	optional := p.Type() == "optional_parameter"
	ann := tsparse.Field(p, "type")
	value := tsparse.Field(p, "value")
	flags := SymbolParameter
	if optional || value != nil {
		flags |= SymbolOptional
	}
	sym := c.newProperty(name, flags, f, p, e, ann)
	sym.rest = rest
	sym.valueThunk = func() *Type {
		var t *Type
		switch {
		case ann != nil:
			t = c.typeFromNode(f, ann, e)
		case value != nil:
			t = c.widen(c.expressionType(f, value))
		case rest:
			t = c.arrayOf(c.anyType)
		default:
			if ct, ok := c.contextual[key]; ok {
				return ct
			}
			t = c.anyType
		}
		if optional {
			t = c.addUndefined(t)
		}
		return t
	}
	c.declSymbols[key] = sym
	return sym
}

// instantiateSignature rebuilds a generic signature with its own type
// parameters bound to args.
func (c *Checker) instantiateSignature(sig *Signature, args []*Type) *Signature {
	if sig.node == nil || len(sig.typeParams) == 0 {
		return sig
	}
	e := c.newEnv(sig.file, sig.env.parent)
	for i, tp := range sig.typeParams {
		arg := c.unknownType
		if i < len(args) {
			arg = args[i]
		}
		e.params[tp.name] = arg
	}
	return c.buildSignature(sig.file, sig.node, e)
}

func (c *Checker) inferReturnType(f *tsparse.File, fn *sitter.Node) *Type {
	body := tsparse.Field(fn, "body")
	if body == nil {
		return c.anyType
	}
	if body.Type() != "statement_block" {
		return c.widen(c.expressionType(f, body))
	}
	var results []*Type
	valued := false
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for _, child := range tsparse.NamedChildren(n) {
			if isFunctionLike(child) || isClassNode(child) {
				continue
			}
			if child.Type() == "return_statement" {
				if expr := firstNamed(child); expr != nil {
					valued = true
					results = append(results, c.widen(c.expressionType(f, expr)))
				} else {
					results = append(results, c.undefinedType)
				}
				continue
			}
			walk(child)
		}
	}
	walk(body)
	if !valued {
		return c.voidType
	}
	return c.union(results, nil)
}

// awaited unwraps Promise and PromiseLike references.
func (c *Checker) awaited(t *Type) *Type {
	for i := 0; i < maxInstantiationDepth; i++ {
		if t.flags&FlagUnion != 0 && t.symbol == nil {
			parts := make([]*Type, len(t.types))
			for j, m := range t.types {
				parts[j] = c.awaited(m)
			}
			return c.union(parts, nil)
		}
		if t.symbol == nil || len(t.typeArguments) == 0 ||
			(t.symbol.name != "Promise" && t.symbol.name != "PromiseLike") {
			return t
		}
		t = t.typeArguments[0]
	}
	return t
}

// inferCallTypeArguments infers the type arguments of a generic call from
// explicit type arguments or the argument expressions.
func (c *Checker) inferCallTypeArguments(f *tsparse.File, sig *Signature, args []*sitter.Node, explicit *sitter.Node) []*Type {
	out := make([]*Type, len(sig.typeParams))
	if explicit != nil {
		e := c.envAt(f, explicit)
		nodes := tsparse.NamedChildren(explicit)
		for i := range out {
			if i < len(nodes) {
				out[i] = c.typeFromNode(f, nodes[i], e)
			} else {
				out[i] = c.unknownType
			}
		}
		return out
	}
	names := make(map[string]bool, len(sig.typeParams))
	for _, tp := range sig.typeParams {
		names[tp.name] = true
	}
	binds := make(map[string]*Type)
	for i, p := range sig.params {
		if i >= len(args) || p.annotation == nil {
			continue
		}
		ann := p.annotation
		if p.rest {
			elem := ann.node
			if elem.Type() == "array_type" {
				elem = firstNamed(elem)
			}
			for _, a := range args[i:] {
				c.inferFromNode(ann.file, elem, names, c.expressionType(f, a), binds)
			}
			break
		}
		c.bindContextualParameters(f, args[i], ann)
		c.inferFromNode(ann.file, ann.node, names, c.expressionType(f, args[i]), binds)
	}
	for i, tp := range sig.typeParams {
		if b, ok := binds[tp.name]; ok {
			out[i] = b
		} else {
			out[i] = c.unknownType
		}
	}
	return out
}

// bindContextualParameters types the unannotated parameters of a callback
// argument from the function type it is passed to.
func (c *Checker) bindContextualParameters(f *tsparse.File, arg *sitter.Node, ann *TypeNode) {
	fnType := ann.node
	for fnType != nil && fnType.Type() == "parenthesized_type" {
		fnType = firstNamed(fnType)
	}
	if fnType == nil || fnType.Type() != "function_type" || !isFunctionLike(arg) {
		return
	}
	expected := tsparse.NamedChildren(tsparse.Field(fnType, "parameters"))
	var actual []*sitter.Node
	if params := tsparse.Field(arg, "parameters"); params != nil {
		actual = tsparse.NamedChildren(params)
	} else if p := tsparse.Field(arg, "parameter"); p != nil {
		actual = []*sitter.Node{p}
	}
	for i, p := range actual {
		if i >= len(expected) {
			break
		}
		if p.Type() != "identifier" && tsparse.Field(p, "type") != nil {
			continue
		}
		et := tsparse.Field(expected[i], "type")
		if et == nil {
			continue
		}
		key := declKey{f, tsparse.KeyOf(p)}
		if _, ok := c.contextual[key]; !ok {
			c.contextual[key] = c.typeFromNode(ann.file, et, ann.env)
		}
	}
}

func (c *Checker) inferFromNode(f *tsparse.File, n *sitter.Node, names map[string]bool, t *Type, binds map[string]*Type) {
	if n == nil || t == nil {
		return
	}
	switch n.Type() {
	case "type_annotation", "parenthesized_type", "readonly_type":
		c.inferFromNode(f, firstNamed(n), names, t, binds)
	case "type_identifier":
		name := f.Text(n)
		if names[name] {
			if _, ok := binds[name]; !ok {
				binds[name] = t
			}
		}
	case "array_type":
		switch t.kind {
		case ObjectArray:
			c.inferFromNode(f, firstNamed(n), names, c.elementType(t), binds)
		case ObjectTuple:
			parts := make([]*Type, len(t.tuple))
			for i, el := range t.tuple {
				parts[i] = el.typ
			}
			c.inferFromNode(f, firstNamed(n), names, c.union(parts, nil), binds)
		}
	case "generic_type":
		targs := t.typeArguments
		if t.kind == ObjectArray && len(targs) == 0 {
			targs = []*Type{c.elementType(t)}
		}
		args := tsparse.Field(n, "type_arguments")
		if args == nil {
			args = tsparse.ChildOfType(n, "type_arguments")
		}
		for i, a := range tsparse.NamedChildren(args) {
			if i < len(targs) {
				c.inferFromNode(f, a, names, targs[i], binds)
			}
		}
	case "union_type":
		stripped := c.removeNullish(t, FlagNullish)
		for _, part := range flattenSyntax(n, "union_type") {
			c.inferFromNode(f, part, names, stripped, binds)
		}
	case "function_type":
		if sigs := c.CallSignatures(t); len(sigs) > 0 {
			c.inferFromNode(f, tsparse.Field(n, "return_type"), names, c.ReturnTypeOfSignature(sigs[0]), binds)
		}
	case "object_type":
		for _, member := range tsparse.NamedChildren(n) {
			if member.Type() != "property_signature" {
				continue
			}
			if p := c.PropertyOfType(t, c.propertyName(f, tsparse.Field(member, "name"))); p != nil {
				c.inferFromNode(f, tsparse.Field(member, "type"), names, c.TypeOfSymbol(p), binds)
			}
		}
	}
}
