package checker

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
)

func instantiationKey(prefix string, sym *Symbol, args []*Type) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(strconv.Itoa(sym.id))
	b.WriteByte('<')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(a.id))
	}
	b.WriteByte('>')
	return b.String()
}

// fillTypeArguments pads args with declared defaults, or unknown where no
// default exists.
func (c *Checker) fillTypeArguments(sym *Symbol, params []*Type, args []*Type) []*Type {
	out := make([]*Type, len(params))
	var e *env
	for i, p := range params {
		if i < len(args) {
			out[i] = args[i]
		} else if def := tsparse.Field(p.paramDecl, "value"); def != nil {
			d := p.symbol.decls[0]
			if e == nil {
				e = c.newEnv(d.File, c.envAt(d.File, sym.decls[0].Node))
			}
			out[i] = c.typeFromNode(d.File, def, e)
		} else {
			out[i] = c.unknownType
		}
		if e != nil {
			e.params[p.name] = out[i]
		}
	}
	return out
}

func (c *Checker) instantiateAlias(sym *Symbol, args []*Type) *Type {
	params := c.typeParametersOf(sym)
	if len(params) == 0 {
		return c.DeclaredTypeOfSymbol(sym)
	}
	args = c.fillTypeArguments(sym, params, args)
	key := instantiationKey("a", sym, args)
	if t, ok := c.instantiations[key]; ok {
		return t
	}
	if c.instantiating[key] || c.depth >= maxInstantiationDepth {
		return c.errorType
	}
	c.instantiating[key] = true
	c.depth++
	defer func() {
		delete(c.instantiating, key)
		c.depth--
	}()

	d := sym.decls[0]
	e := c.newEnv(d.File, c.envAt(d.File, d.Node))
	for i, p := range params {
		e.params[p.name] = args[i]
	}
	value := tsparse.Field(d.Node, "value")
	t := c.attachAlias(c.typeFromNode(d.File, value, e), value, sym, args)
	c.instantiations[key] = t
	return t
}

// attachAlias names t after the alias whose value syntax produced it.
// Types reached through another reference keep their own name.
func (c *Checker) attachAlias(t *Type, value *sitter.Node, sym *Symbol, args []*Type) *Type {
	if t.origin == nil || t.aliasSymbol != nil || value == nil {
		return t
	}
	if tsparse.KeyOf(t.origin.node) != tsparse.KeyOf(value) || t.origin.file != sym.decls[0].File {
		return t
	}
	t.aliasSymbol = sym
	if len(args) > 0 {
		t.aliasTypeArguments = args
	}
	return t
}

// instantiateInterface returns the reference type Name<args> for a generic
// interface or class. Members resolve lazily with args bound.
func (c *Checker) instantiateInterface(sym *Symbol, args []*Type) *Type {
	params := c.typeParametersOf(sym)
	if len(params) > 0 {
		args = c.fillTypeArguments(sym, params, args)
	} else {
		args = nil
	}
	key := instantiationKey("i", sym, args)
	if t, ok := c.instantiations[key]; ok {
		return t
	}
	kind := ObjectInterface
	if sym.Has(SymbolClass) {
		kind = ObjectClass
	}
	t := c.newObject(kind, sym, nil)
	t.typeArguments = args
	c.instantiations[key] = t
	t.resolveMembers = func() *members {
		return c.interfaceMembers(sym, args)
	}
	return t
}

// declEnv binds the type parameters of one declaration of sym to args by
// position.
func (c *Checker) declEnv(d Decl, args []*Type) *env {
	e := c.newEnv(d.File, c.envAt(d.File, d.Node))
	for i, tp := range c.typeParameterNodes(d.Node) {
		arg := c.unknownType
		if i < len(args) {
			arg = args[i]
		}
		e.params[d.File.Text(tsparse.Field(tp, "name"))] = arg
	}
	return e
}

func (c *Checker) keyOf(t *Type, origin *TypeNode) *Type {
	if containsTypeParameter(t) {
		return c.deferred(origin)
	}
	switch {
	case t.flags&(FlagAny|FlagError) != 0:
		return c.union([]*Type{c.stringType, c.numberType, c.symbolType}, nil)
	case t.flags&FlagUnion != 0 && t.symbol == nil:
		// keys common to every member
		var common []*Type
		first := c.keyOf(t.types[0], nil)
		for _, k := range unionMembers(first) {
			all := true
			for _, m := range t.types[1:] {
				if !c.isAssignable(k, c.keyOf(m, nil)) {
					all = false
					break
				}
			}
			if all {
				common = append(common, k)
			}
		}
		return c.union(common, nil)
	case t.flags&(FlagObject|FlagIntersection) != 0:
		if t.kind == ObjectArray || t.kind == ObjectTuple {
			return c.numberType
		}
		m := c.resolvedMembers(t)
		var keys []*Type
		if m.stringIndex != nil {
			keys = append(keys, c.stringType, c.numberType)
		} else if m.numberIndex != nil {
			keys = append(keys, c.numberType)
		}
		for _, p := range m.props {
			if v, err := strconv.ParseFloat(p.name, 64); err == nil && formatNumber(v) == p.name {
				keys = append(keys, c.numberLiteral(v))
				continue
			}
			keys = append(keys, c.stringLiteral(p.name))
		}
		return c.union(keys, nil)
	}
	return c.neverType
}

func (c *Checker) indexedAccess(obj, idx *Type, origin *TypeNode) *Type {
	if containsTypeParameter(obj) || containsTypeParameter(idx) {
		return c.deferred(origin)
	}
	if idx.flags&FlagUnion != 0 {
		parts := make([]*Type, len(idx.types))
		for i, k := range idx.types {
			parts[i] = c.indexedAccess(obj, k, nil)
		}
		return c.union(parts, nil)
	}
	if obj.flags&FlagUnion != 0 && obj.symbol == nil {
		parts := make([]*Type, len(obj.types))
		for i, m := range obj.types {
			parts[i] = c.indexedAccess(m, idx, nil)
		}
		return c.union(parts, nil)
	}
	if obj.flags&(FlagAny|FlagError) != 0 {
		return c.anyType
	}

	switch obj.kind {
	case ObjectArray:
		if idx.flags&(FlagNumber|FlagNumberLiteral) != 0 {
			return c.elementType(obj)
		}
	case ObjectTuple:
		switch {
		case idx.flags&FlagNumberLiteral != 0:
			i := int(idx.value.(float64))
			if i >= 0 && i < len(obj.tuple) {
				return obj.tuple[i].typ
			}
			return c.errorType
		case idx.flags&FlagNumber != 0:
			parts := make([]*Type, len(obj.tuple))
			for i, el := range obj.tuple {
				parts[i] = el.typ
			}
			return c.union(parts, nil)
		}
	}

	if name, ok := literalKeyName(idx); ok {
		if p := c.PropertyOfType(obj, name); p != nil {
			return c.TypeOfSymbol(p)
		}
	}
	m := c.resolvedMembers(obj)
	switch {
	case idx.flags&(FlagNumber|FlagNumberLiteral) != 0 && m.numberIndex != nil:
		return m.numberIndex
	case idx.flags&(FlagString|FlagNumber|FlagStringLiteral|FlagNumberLiteral) != 0 && m.stringIndex != nil:
		return m.stringIndex
	}
	return c.errorType
}

func (c *Checker) conditionalType(f *tsparse.File, n *sitter.Node, e *env) *Type {
	check := tsparse.Field(n, "left")
	if check != nil && check.Type() == "type_identifier" {
		name := f.Text(check)
		if bound, ok := e.lookup(name); ok && bound.flags&FlagUnion != 0 {
			parts := make([]*Type, 0, len(bound.types))
			for _, m := range bound.types {
				parts = append(parts, c.conditionalBranch(f, n, c.with(e, name, m)))
			}
			return c.union(parts, nil)
		}
	}
	return c.conditionalBranch(f, n, e)
}

func (c *Checker) conditionalBranch(f *tsparse.File, n *sitter.Node, e *env) *Type {
	checkType := c.typeFromNode(f, tsparse.Field(n, "left"), e)
	if containsTypeParameter(checkType) {
		return c.deferred(c.typeNode(f, n, e))
	}
	pattern := tsparse.Field(n, "right")
	binds := make(map[string]*Type)
	if c.matchPattern(f, pattern, e, checkType, binds) {
		be := c.newEnv(f, e)
		for _, name := range inferNames(f, pattern) {
			if t, ok := binds[name]; ok {
				be.params[name] = t
			} else {
				be.params[name] = c.unknownType
			}
		}
		return c.typeFromNode(f, tsparse.Field(n, "consequence"), be)
	}
	return c.typeFromNode(f, tsparse.Field(n, "alternative"), e)
}

func inferNames(f *tsparse.File, n *sitter.Node) []string {
	var out []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "infer_type" {
			if id := tsparse.ChildOfType(n, "type_identifier"); id != nil {
				out = append(out, f.Text(id))
			}
			return
		}
		for _, child := range tsparse.NamedChildren(n) {
			walk(child)
		}
	}
	walk(n)
	return out
}

// matchPattern reports whether t satisfies the `extends` pattern, binding
// each `infer X` it meets along the way.
func (c *Checker) matchPattern(f *tsparse.File, pattern *sitter.Node, e *env, t *Type, binds map[string]*Type) bool {
	if pattern == nil {
		return false
	}
	if len(inferNames(f, pattern)) == 0 {
		return c.isAssignable(t, c.typeFromNode(f, pattern, e))
	}
	switch pattern.Type() {
	case "infer_type":
		if id := tsparse.ChildOfType(pattern, "type_identifier"); id != nil {
			binds[f.Text(id)] = t
		}
		return true
	case "parenthesized_type", "type_annotation":
		return c.matchPattern(f, firstNamed(pattern), e, t, binds)
	case "array_type", "readonly_type":
		inner := firstNamed(pattern)
		if pattern.Type() == "readonly_type" {
			return c.matchPattern(f, inner, e, t, binds)
		}
		switch t.kind {
		case ObjectArray:
			return c.matchPattern(f, inner, e, c.elementType(t), binds)
		case ObjectTuple:
			parts := make([]*Type, len(t.tuple))
			for i, el := range t.tuple {
				parts[i] = el.typ
			}
			return c.matchPattern(f, inner, e, c.union(parts, nil), binds)
		}
		return false
	case "generic_type":
		name := tsparse.Field(pattern, "name")
		if name == nil {
			name = firstNamed(pattern)
		}
		sym := c.resolveTypeName(f, name, f.Text(name))
		if sym == nil || t.symbol == nil {
			return false
		}
		if t.symbol != sym && !(sym.name == "PromiseLike" && t.symbol.name == "Promise") &&
			!(sym.name == "ReadonlyArray" && t.symbol.name == "Array") {
			return false
		}
		args := tsparse.Field(pattern, "type_arguments")
		if args == nil {
			args = tsparse.ChildOfType(pattern, "type_arguments")
		}
		targs := t.typeArguments
		if t.kind == ObjectArray && len(targs) == 0 {
			targs = []*Type{c.elementType(t)}
		}
		for i, a := range tsparse.NamedChildren(args) {
			if i >= len(targs) || !c.matchPattern(f, a, e, targs[i], binds) {
				return false
			}
		}
		return true
	case "function_type":
		sigs := c.CallSignatures(t)
		if len(sigs) == 0 {
			return false
		}
		sig := sigs[0]
		if params := tsparse.Field(pattern, "parameters"); params != nil {
			for i, p := range tsparse.NamedChildren(params) {
				ann := tsparse.Field(p, "type")
				if ann == nil || len(inferNames(f, ann)) == 0 {
					continue
				}
				pt := c.unknownType
				if i < len(sig.params) {
					pt = c.TypeOfSymbol(sig.params[i])
				}
				if !c.matchPattern(f, ann, e, pt, binds) {
					return false
				}
			}
		}
		ret := tsparse.Field(pattern, "return_type")
		return c.matchPattern(f, ret, e, c.ReturnTypeOfSignature(sig), binds)
	case "tuple_type":
		if t.kind != ObjectTuple {
			return false
		}
		elems := tsparse.NamedChildren(pattern)
		if len(elems) != len(t.tuple) {
			return false
		}
		for i, el := range elems {
			if !c.matchPattern(f, el, e, t.tuple[i].typ, binds) {
				return false
			}
		}
		return true
	case "object_type":
		for _, member := range tsparse.NamedChildren(pattern) {
			if member.Type() != "property_signature" {
				continue
			}
			name := c.propertyName(f, tsparse.Field(member, "name"))
			p := c.PropertyOfType(t, name)
			if p == nil {
				if tsparse.HasToken(member, "?") {
					continue
				}
				return false
			}
			if !c.matchPattern(f, tsparse.Field(member, "type"), e, c.TypeOfSymbol(p), binds) {
				return false
			}
		}
		return true
	case "intersection_type":
		for _, part := range flattenSyntax(pattern, "intersection_type") {
			if !c.matchPattern(f, part, e, t, binds) {
				return false
			}
		}
		return true
	case "union_type":
		for _, part := range flattenSyntax(pattern, "union_type") {
			if c.matchPattern(f, part, e, t, binds) {
				return true
			}
		}
		return false
	}
	return false
}

type assignPair struct{ source, target int }

// isAssignable is a structural assignability check sufficient for
// conditional types and type argument inference.
func (c *Checker) isAssignable(source, target *Type) bool {
	return c.assignable(source, target, make(map[assignPair]bool))
}

func (c *Checker) assignable(source, target *Type, stack map[assignPair]bool) bool {
	if source == target {
		return true
	}
	if target.flags&(FlagAny|FlagUnknown|FlagError) != 0 || source.flags&(FlagAny|FlagError|FlagNever) != 0 {
		return true
	}
	if target.flags&FlagNever != 0 {
		return false
	}
	key := assignPair{source.id, target.id}
	if stack[key] {
		return true
	}
	stack[key] = true
	defer delete(stack, key)

	if source.flags&FlagUnion != 0 {
		for _, m := range source.types {
			if !c.assignable(m, target, stack) {
				return false
			}
		}
		return true
	}
	if target.flags&FlagUnion != 0 {
		for _, m := range target.types {
			if c.assignable(source, m, stack) {
				return true
			}
		}
		return false
	}
	if target.flags&FlagIntersection != 0 {
		for _, m := range target.types {
			if !c.assignable(source, m, stack) {
				return false
			}
		}
		return true
	}
	if source.flags&FlagIntersection != 0 {
		for _, m := range source.types {
			if c.assignable(m, target, stack) {
				return true
			}
		}
		return false
	}

	switch {
	case source.flags&FlagStringLiteral != 0:
		return target.flags&FlagString != 0 || sameLiteral(source, target)
	case source.flags&FlagNumberLiteral != 0:
		return target.flags&FlagNumber != 0 || sameLiteral(source, target)
	case source.flags&FlagBooleanLiteral != 0:
		return target.flags&FlagBoolean != 0
	case source.flags&FlagBigIntLiteral != 0:
		return target.flags&FlagBigInt != 0 || sameLiteral(source, target)
	case source.flags&FlagBoolean != 0:
		return target.flags&FlagBoolean != 0
	case source.flags&FlagUndefined != 0:
		return target.flags&(FlagUndefined|FlagVoid) != 0
	case source.flags&(FlagString|FlagNumber|FlagBigInt|FlagESSymbol|FlagUniqueESSymbol|FlagNull|FlagVoid) != 0:
		return source.flags&target.flags != 0 || c.isEmptyObject(target) && source.flags&(FlagNull|FlagVoid) == 0
	case source.flags&FlagNonPrimitive != 0:
		return target.flags&FlagNonPrimitive != 0 || c.isEmptyObject(target)
	}
	if source.flags&(FlagObject) == 0 {
		return false
	}
	if target.flags&FlagNonPrimitive != 0 {
		return true
	}
	if target.flags&FlagObject == 0 {
		return false
	}

	switch target.kind {
	case ObjectArray:
		switch source.kind {
		case ObjectArray:
			return c.assignable(c.elementType(source), c.elementType(target), stack)
		case ObjectTuple:
			te := c.elementType(target)
			for _, el := range source.tuple {
				if !c.assignable(el.typ, te, stack) {
					return false
				}
			}
			return true
		}
		return false
	case ObjectTuple:
		if source.kind != ObjectTuple || len(source.tuple) > len(target.tuple) {
			return false
		}
		for i, el := range target.tuple {
			if i >= len(source.tuple) {
				if !el.optional && !el.rest {
					return false
				}
				continue
			}
			if !c.assignable(source.tuple[i].typ, el.typ, stack) {
				return false
			}
		}
		return true
	}
	if source.symbol != nil && source.symbol == target.symbol && len(source.typeArguments) == len(target.typeArguments) && len(source.typeArguments) > 0 {
		for i := range source.typeArguments {
			if !c.assignable(source.typeArguments[i], target.typeArguments[i], stack) {
				return false
			}
		}
		return true
	}

	if tcalls := c.CallSignatures(target); len(tcalls) > 0 {
		scalls := c.CallSignatures(source)
		if len(scalls) == 0 {
			return false
		}
		if !c.assignable(c.ReturnTypeOfSignature(scalls[0]), c.ReturnTypeOfSignature(tcalls[0]), stack) {
			return false
		}
	}
	for _, tp := range c.PropertiesOfType(target) {
		sp := c.PropertyOfType(source, tp.name)
		if sp == nil {
			if tp.Has(SymbolOptional) {
				continue
			}
			return false
		}
		if !c.assignable(c.TypeOfSymbol(sp), c.TypeOfSymbol(tp), stack) {
			return false
		}
	}
	return true
}

func sameLiteral(a, b *Type) bool {
	return b.flags&FlagLiteral != 0 && a.value == b.value && a.flags&FlagLiteral == b.flags&FlagLiteral
}

func (c *Checker) isEmptyObject(t *Type) bool {
	if t.flags&FlagObject == 0 || t.kind == ObjectArray || t.kind == ObjectTuple {
		return false
	}
	m := c.resolvedMembers(t)
	return len(m.props) == 0 && len(m.calls) == 0 && len(m.constructs) == 0
}
