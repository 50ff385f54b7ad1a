package checker

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
)

func (c *Checker) interfaceMembers(sym *Symbol, args []*Type) *members {
	m := newMembers()
	var bases []*Type
	for _, d := range sym.decls {
		e := c.declEnv(d, args)
		switch d.Node.Type() {
		case "interface_declaration":
			body := tsparse.Field(d.Node, "body")
			if body == nil {
				body = tsparse.ChildOfType(d.Node, "interface_body", "object_type")
			}
			c.addObjectTypeMembers(d.File, body, e, m)
			if ext := tsparse.ChildOfType(d.Node, "extends_type_clause"); ext != nil {
				for _, b := range tsparse.NamedChildren(ext) {
					bases = append(bases, c.typeFromNode(d.File, b, e))
				}
			}
		case "class_declaration", "abstract_class_declaration", "class":
			c.addClassMembers(d.File, d.Node, e, m, false)
			if base := c.classBase(d.File, d.Node, e); base != nil {
				bases = append(bases, base)
			}
		}
	}
	for _, base := range bases {
		c.inherit(m, base)
	}
	return m
}

func (c *Checker) inherit(m *members, base *Type) {
	bm := c.resolvedMembers(base)
	for _, p := range bm.props {
		m.add(p)
	}
	if len(m.calls) == 0 {
		m.calls = bm.calls
	}
	if m.stringIndex == nil {
		m.stringIndex = bm.stringIndex
	}
	if m.numberIndex == nil {
		m.numberIndex = bm.numberIndex
	}
}

func (c *Checker) classBase(f *tsparse.File, class *sitter.Node, e *env) *Type {
	ext := tsparse.ChildOfType(tsparse.ChildOfType(class, "class_heritage"), "extends_clause")
	if ext == nil {
		return nil
	}
	value := tsparse.Field(ext, "value")
	if value == nil {
		value = firstNamed(ext)
	}
	if value == nil || value.Type() != "identifier" {
		return nil
	}
	sym := c.resolveValueName(f, value, f.Text(value))
	if sym != nil && sym.Has(SymbolAlias) {
		sym = c.resolveAlias(sym, false)
	}
	if sym == nil || !sym.Has(SymbolClass) {
		return nil
	}
	if len(c.typeParametersOf(sym)) == 0 {
		return c.DeclaredTypeOfSymbol(sym)
	}
	var args []*Type
	for _, a := range tsparse.NamedChildren(tsparse.Field(ext, "type_arguments")) {
		args = append(args, c.typeFromNode(f, a, e))
	}
	return c.instantiateInterface(sym, args)
}

func (c *Checker) newProperty(name string, flags SymbolFlags, f *tsparse.File, decl *sitter.Node, e *env, ann *sitter.Node) *Symbol {
	p := c.newSymbol(name, flags)
	p.addDecl(f, decl)
	if ann != nil {
		inner := ann
		if strings.HasSuffix(ann.Type(), "type_annotation") {
			inner = firstNamed(ann)
		}
		if inner != nil {
			p.annotation = c.typeNode(f, inner, e)
		}
	}
	return p
}

func (c *Checker) methodType(sigs *[]*Signature, optional bool) func() *Type {
	return func() *Type {
		t := c.newObject(ObjectFunction, nil, func() *members {
			m := newMembers()
			m.calls = *sigs
			return m
		})
		if optional {
			return c.addUndefined(t)
		}
		return t
	}
}

// addObjectTypeMembers adds the members of an object type literal or
// interface body.
func (c *Checker) addObjectTypeMembers(f *tsparse.File, body *sitter.Node, e *env, m *members) {
	overloads := make(map[string]*[]*Signature)
	for _, member := range tsparse.NamedChildren(body) {
		switch member.Type() {
		case "property_signature":
			name := c.propertyName(f, tsparse.Field(member, "name"))
			if name == "" {
				continue
			}
			flags := SymbolProperty
			optional := tsparse.HasToken(member, "?")
			if optional {
				flags |= SymbolOptional
			}
			if tsparse.HasToken(member, "readonly") {
				flags |= SymbolReadonly
			}
			ann := tsparse.Field(member, "type")
			p := c.newProperty(name, flags, f, member, e, ann)
			p.valueThunk = func() *Type {
				t := c.anyType
				if ann != nil {
					t = c.typeFromNode(f, ann, e)
				}
				if optional {
					t = c.addUndefined(t)
				}
				return t
			}
			m.add(p)
		case "method_signature":
			name := c.propertyName(f, tsparse.Field(member, "name"))
			if name == "" {
				continue
			}
			sig := c.signatureOfNode(f, member, e)
			if sigs, ok := overloads[name]; ok {
				*sigs = append(*sigs, sig)
				continue
			}
			sigs := &[]*Signature{sig}
			overloads[name] = sigs
			optional := tsparse.HasToken(member, "?")
			flags := SymbolMethod
			if optional {
				flags |= SymbolOptional
			}
			p := c.newSymbol(name, flags)
			p.addDecl(f, member)
			p.valueThunk = c.methodType(sigs, optional)
			m.add(p)
		case "call_signature":
			m.calls = append(m.calls, c.signatureOfNode(f, member, e))
		case "construct_signature":
			m.constructs = append(m.constructs, c.signatureOfNode(f, member, e))
		case "index_signature":
			c.addIndexSignature(f, member, e, m)
		}
	}
}

func (c *Checker) addIndexSignature(f *tsparse.File, sig *sitter.Node, e *env, m *members) {
	if tsparse.ChildOfType(sig, "mapped_type_clause") != nil {
		return
	}
	value := c.typeFromNode(f, tsparse.Field(sig, "type"), e)
	key := c.typeFromNode(f, tsparse.Field(sig, "index_type"), e)
	if key.flags&FlagNumber != 0 {
		m.numberIndex = value
		return
	}
	m.stringIndex = value
}

func isClassNode(n *sitter.Node) bool {
	switch n.Type() {
	case "class_declaration", "abstract_class_declaration", "class":
		return true
	}
	return false
}

// addClassMembers adds the instance members of a class body, or the static
// members when static is set.
func (c *Checker) addClassMembers(f *tsparse.File, class *sitter.Node, e *env, m *members, static bool) {
	body := tsparse.Field(class, "body")
	overloads := make(map[string]*[]*Signature)
	for _, member := range tsparse.NamedChildren(body) {
		if tsparse.HasToken(member, "static") != static {
			continue
		}
		switch member.Type() {
		case "public_field_definition":
			name := c.propertyName(f, tsparse.Field(member, "name"))
			if name == "" || strings.HasPrefix(name, "#") {
				continue
			}
			flags := SymbolProperty
			optional := tsparse.HasToken(member, "?")
			readonly := tsparse.HasToken(member, "readonly")
			if optional {
				flags |= SymbolOptional
			}
			if readonly {
				flags |= SymbolReadonly
			}
			ann := tsparse.Field(member, "type")
			value := tsparse.Field(member, "value")
			p := c.newProperty(name, flags, f, member, e, ann)
			p.valueThunk = func() *Type {
				var t *Type
				switch {
				case ann != nil:
					t = c.typeFromNode(f, ann, e)
				case value != nil:
					t = c.expressionType(f, value)
					if !readonly {
						t = c.widen(t)
					}
				default:
					t = c.anyType
				}
				if optional {
					t = c.addUndefined(t)
				}
				return t
			}
			m.add(p)
		case "method_definition", "method_signature", "abstract_method_signature":
			name := c.propertyName(f, tsparse.Field(member, "name"))
			if name == "" || strings.HasPrefix(name, "#") {
				continue
			}
			if name == "constructor" {
				if !static {
					c.addParameterProperties(f, member, e, m)
				}
				continue
			}
			sig := c.signatureOfNode(f, member, e)
			switch {
			case tsparse.HasToken(member, "get"):
				p := c.newSymbol(name, SymbolProperty)
				p.addDecl(f, member)
				if tsparse.Field(member, "return_type") != nil {
					p.annotation = c.typeNode(f, firstNamed(tsparse.Field(member, "return_type")), e)
				}
				if !hasSetter(f, body, name) {
					p.flags |= SymbolReadonly
				}
				p.valueThunk = func() *Type { return c.ReturnTypeOfSignature(sig) }
				m.add(p)
			case tsparse.HasToken(member, "set"):
				if _, ok := m.byName[name]; ok {
					continue
				}
				p := c.newSymbol(name, SymbolProperty)
				p.addDecl(f, member)
				p.valueThunk = func() *Type {
					if len(sig.params) == 0 {
						return c.anyType
					}
					return c.TypeOfSymbol(sig.params[0])
				}
				m.add(p)
			default:
				if sigs, ok := overloads[name]; ok {
					if member.Type() != "method_definition" || len(*sigs) == 0 {
						*sigs = append(*sigs, sig)
					}
					continue
				}
				sigs := &[]*Signature{sig}
				overloads[name] = sigs
				optional := tsparse.HasToken(member, "?")
				flags := SymbolMethod
				if optional {
					flags |= SymbolOptional
				}
				p := c.newSymbol(name, flags)
				p.addDecl(f, member)
				p.valueThunk = c.methodType(sigs, optional)
				m.add(p)
			}
		case "index_signature":
			c.addIndexSignature(f, member, e, m)
		}
	}
}

func hasSetter(f *tsparse.File, body *sitter.Node, name string) bool {
	for _, member := range tsparse.NamedChildren(body) {
		if member.Type() == "method_definition" && tsparse.HasToken(member, "set") &&
			f.Text(tsparse.Field(member, "name")) == name {
			return true
		}
	}
	return false
}

// addParameterProperties adds `constructor(private x: T)` style members.
func (c *Checker) addParameterProperties(f *tsparse.File, ctor *sitter.Node, e *env, m *members) {
	sig := c.signatureOfNode(f, ctor, e)
	for i, p := range tsparse.NamedChildren(tsparse.Field(ctor, "parameters")) {
		if tsparse.ChildOfType(p, "accessibility_modifier") == nil && !tsparse.HasToken(p, "readonly") {
			continue
		}
		if i >= len(sig.params) {
			break
		}
		param := sig.params[i]
		flags := SymbolProperty
		if tsparse.HasToken(p, "readonly") {
			flags |= SymbolReadonly
		}
		if param.Has(SymbolOptional) {
			flags |= SymbolOptional
		}
		prop := c.newSymbol(param.name, flags)
		prop.decls = param.decls
		prop.annotation = param.annotation
		prop.valueThunk = func() *Type { return c.TypeOfSymbol(param) }
		m.add(prop)
	}
}

// constructorType is the type of a class used as a value.
func (c *Checker) constructorType(sym *Symbol) *Type {
	t := c.newObject(ObjectConstructor, sym, nil)
	t.resolveMembers = func() *members {
		m := newMembers()
		var ctor *Signature
		for _, d := range sym.decls {
			if !isClassNode(d.Node) {
				continue
			}
			c.addClassMembers(d.File, d.Node, c.envAt(d.File, d.Node), m, true)
			if ctor != nil {
				continue
			}
			for _, member := range tsparse.NamedChildren(tsparse.Field(d.Node, "body")) {
				if member.Type() == "method_definition" && d.File.Text(tsparse.Field(member, "name")) == "constructor" {
					ctor = c.signatureOfNode(d.File, member, c.envAt(d.File, member))
					break
				}
			}
		}
		instance := c.DeclaredTypeOfSymbol(sym)
		sig := &Signature{typeParams: c.typeParametersOf(sym)}
		if ctor != nil {
			sig.params = ctor.params
			sig.file, sig.node, sig.env = ctor.file, ctor.node, ctor.env
		}
		sig.ret = func() *Type { return instance }
		m.constructs = []*Signature{sig}
		return m
	}
	return t
}

func (c *Checker) propertyName(f *tsparse.File, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	text := f.Text(n)
	switch n.Type() {
	case "string":
		return tsparse.Unquote(text)
	case "number":
		if v, ok := tsparse.ParseNumber(text); ok {
			return formatNumber(v)
		}
	case "computed_property_name":
		inner := firstNamed(n)
		if inner != nil && inner.Type() == "string" {
			return tsparse.Unquote(f.Text(inner))
		}
		return text
	}
	return text
}

// PropertiesOfType returns the properties of t in declaration order.
func (c *Checker) PropertiesOfType(t *Type) []*Symbol {
	switch {
	case t.flags&(FlagObject|FlagIntersection) != 0:
		return c.resolvedMembers(t).props
	case t.flags&FlagUnion != 0 && t.symbol == nil:
		return c.unionProperties(t)
	case t.flags&FlagTypeParameter != 0:
		if cons := c.constraintOf(t); cons != nil {
			return c.PropertiesOfType(cons)
		}
	}
	return nil
}

// PropertyOfType returns the property called name, or nil.
func (c *Checker) PropertyOfType(t *Type, name string) *Symbol {
	switch {
	case t.flags&(FlagObject|FlagIntersection) != 0:
		return c.resolvedMembers(t).byName[name]
	case t.flags&FlagUnion != 0 && t.symbol == nil:
		for _, p := range c.unionProperties(t) {
			if p.name == name {
				return p
			}
		}
	case t.flags&FlagTypeParameter != 0:
		if cons := c.constraintOf(t); cons != nil {
			return c.PropertyOfType(cons, name)
		}
	}
	return nil
}

// unionProperties returns the properties present in every member of a
// union, typed as the union of the member property types.
func (c *Checker) unionProperties(t *Type) []*Symbol {
	if t.members != nil {
		return t.members.props
	}
	m := newMembers()
	t.members = m
	if len(t.types) == 0 {
		return nil
	}
	for _, p := range c.PropertiesOfType(t.types[0]) {
		parts := []*Type{c.TypeOfSymbol(p)}
		ok := true
		for _, other := range t.types[1:] {
			op := c.PropertyOfType(other, p.name)
			if op == nil {
				ok = false
				break
			}
			parts = append(parts, c.TypeOfSymbol(op))
		}
		if !ok {
			continue
		}
		m.add(c.syntheticProperty(p.name, p.flags, c.union(parts, nil)))
	}
	return m.props
}

func (c *Checker) constraintOf(t *Type) *Type {
	if t.constraint != nil {
		return t.constraint
	}
	if t.paramDecl == nil || t.symbol == nil || len(t.symbol.decls) == 0 {
		return nil
	}
	cons := tsparse.Field(t.paramDecl, "constraint")
	if cons == nil {
		return nil
	}
	f := t.symbol.decls[0].File
	t.constraint = c.unknownType
	t.constraint = c.typeFromNode(f, cons, c.envAt(f, t.paramDecl))
	return t.constraint
}

// CallSignatures returns the call signatures of t.
func (c *Checker) CallSignatures(t *Type) []*Signature {
	if t.flags&(FlagObject|FlagIntersection) != 0 {
		return c.resolvedMembers(t).calls
	}
	return nil
}

// ConstructSignatures returns the construct signatures of t.
func (c *Checker) ConstructSignatures(t *Type) []*Signature {
	if t.flags&(FlagObject|FlagIntersection) != 0 {
		return c.resolvedMembers(t).constructs
	}
	return nil
}

// ReturnTypeOfSignature returns the declared or inferred return type.
func (c *Checker) ReturnTypeOfSignature(sig *Signature) *Type {
	if sig.retCache != nil {
		return sig.retCache
	}
	if sig.resolving || sig.ret == nil {
		return c.anyType
	}
	sig.resolving = true
	t := sig.ret()
	sig.resolving = false
	if t == nil {
		t = c.anyType
	}
	sig.retCache = t
	return t
}
