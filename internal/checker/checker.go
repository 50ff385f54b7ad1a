package checker

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
)

// maxInstantiationDepth bounds nested generic instantiation, e.g. through
// recursive conditional aliases.
const maxInstantiationDepth = 50

type declKey struct {
	file *tsparse.File
	key  tsparse.NodeKey
}

type nodeTypeKey struct {
	file *tsparse.File
	key  tsparse.NodeKey
	env  int
}

type sigKey struct {
	decl declKey
	env  int
}

// Checker answers type queries against one Program. It caches aggressively
// and is not safe for concurrent use.
type Checker struct {
	program *Program
	nextID  int

	scopes         map[*tsparse.File]*fileScope
	declSymbols    map[declKey]*Symbol
	nodeTypes      map[nodeTypeKey]*Type
	signatures     map[sigKey]*Signature
	instantiations map[string]*Type
	instantiating  map[string]bool
	typeParams     map[declKey]*Type
	fileEnvs       map[*tsparse.File]*env
	positionEnvs   map[declKey]*env
	exprTypes      map[declKey]*Type
	contextual     map[declKey]*Type
	depth          int

	stringLits map[string]*Type
	numberLits map[float64]*Type
	bigintLits map[BigInt]*Type

	anyType          *Type
	unknownType      *Type
	stringType       *Type
	numberType       *Type
	booleanType      *Type
	bigintType       *Type
	symbolType       *Type
	uniqueSymbolType *Type
	voidType         *Type
	undefinedType    *Type
	nullType         *Type
	neverType        *Type
	objectType       *Type
	errorType        *Type
	trueType         *Type
	falseType        *Type
}

// New returns a Checker for p.
func New(p *Program) *Checker {
	c := &Checker{
		program:        p,
		scopes:         make(map[*tsparse.File]*fileScope),
		declSymbols:    make(map[declKey]*Symbol),
		nodeTypes:      make(map[nodeTypeKey]*Type),
		signatures:     make(map[sigKey]*Signature),
		instantiations: make(map[string]*Type),
		instantiating:  make(map[string]bool),
		typeParams:     make(map[declKey]*Type),
		fileEnvs:       make(map[*tsparse.File]*env),
		positionEnvs:   make(map[declKey]*env),
		exprTypes:      make(map[declKey]*Type),
		contextual:     make(map[declKey]*Type),
		stringLits:     make(map[string]*Type),
		numberLits:     make(map[float64]*Type),
		bigintLits:     make(map[BigInt]*Type),
	}
	c.anyType = c.intrinsic(FlagAny, "any")
	c.unknownType = c.intrinsic(FlagUnknown, "unknown")
	c.stringType = c.intrinsic(FlagString, "string")
	c.numberType = c.intrinsic(FlagNumber, "number")
	c.booleanType = c.intrinsic(FlagBoolean, "boolean")
	c.bigintType = c.intrinsic(FlagBigInt, "bigint")
	c.symbolType = c.intrinsic(FlagESSymbol, "symbol")
	c.uniqueSymbolType = c.intrinsic(FlagUniqueESSymbol, "unique symbol")
	c.voidType = c.intrinsic(FlagVoid, "void")
	c.undefinedType = c.intrinsic(FlagUndefined, "undefined")
	c.nullType = c.intrinsic(FlagNull, "null")
	c.neverType = c.intrinsic(FlagNever, "never")
	c.objectType = c.intrinsic(FlagNonPrimitive, "object")
	c.errorType = c.intrinsic(FlagError, "any")
	c.trueType = c.intrinsic(FlagBooleanLiteral, "true")
	c.trueType.value = true
	c.falseType = c.intrinsic(FlagBooleanLiteral, "false")
	c.falseType.value = false
	return c
}

// Program returns the snapshot the checker reads.
func (c *Checker) Program() *Program { return c.program }

// ErrorType returns the unresolved-type sentinel.
func (c *Checker) ErrorType() *Type { return c.errorType }

// AnyType returns the any intrinsic.
func (c *Checker) AnyType() *Type { return c.anyType }

// UndefinedType returns the undefined intrinsic.
func (c *Checker) UndefinedType() *Type { return c.undefinedType }

func (c *Checker) newType(flags TypeFlags) *Type {
	c.nextID++
	return &Type{id: c.nextID, flags: flags}
}

func (c *Checker) intrinsic(flags TypeFlags, name string) *Type {
	t := c.newType(flags)
	t.name = name
	return t
}

func (c *Checker) newSymbol(name string, flags SymbolFlags) *Symbol {
	c.nextID++
	return &Symbol{id: c.nextID, name: name, flags: flags}
}

func (c *Checker) newObject(kind ObjectKind, sym *Symbol, resolve func() *members) *Type {
	t := c.newType(FlagObject)
	t.kind = kind
	t.symbol = sym
	t.resolveMembers = resolve
	return t
}

func (c *Checker) stringLiteral(v string) *Type {
	if t, ok := c.stringLits[v]; ok {
		return t
	}
	t := c.newType(FlagStringLiteral)
	t.value = v
	c.stringLits[v] = t
	return t
}

func (c *Checker) numberLiteral(v float64) *Type {
	if t, ok := c.numberLits[v]; ok {
		return t
	}
	t := c.newType(FlagNumberLiteral)
	t.value = v
	c.numberLits[v] = t
	return t
}

func (c *Checker) bigintLiteral(v BigInt) *Type {
	if t, ok := c.bigintLits[v]; ok {
		return t
	}
	t := c.newType(FlagBigIntLiteral)
	t.value = v
	c.bigintLits[v] = t
	return t
}

func (c *Checker) booleanLiteral(v bool) *Type {
	if v {
		return c.trueType
	}
	return c.falseType
}

// union builds a union type. Nested unions flatten, never disappears,
// duplicates collapse and any/unknown absorb the rest. `true | false`
// collapses to boolean.
func (c *Checker) union(types []*Type, origin *TypeNode) *Type {
	var flat []*Type
	seen := make(map[int]bool)
	var add func(t *Type)
	add = func(t *Type) {
		if t == nil {
			return
		}
		if t.flags&FlagUnion != 0 && t.symbol == nil {
			for _, m := range t.types {
				add(m)
			}
			return
		}
		if t.flags&FlagNever != 0 || seen[t.id] {
			return
		}
		seen[t.id] = true
		flat = append(flat, t)
	}
	for _, t := range types {
		add(t)
	}
	for _, t := range flat {
		if t.flags&(FlagAny|FlagError) != 0 {
			return c.anyType
		}
	}
	for _, t := range flat {
		if t.flags&FlagUnknown != 0 {
			return c.unknownType
		}
	}
	if seen[c.trueType.id] && seen[c.falseType.id] {
		var out []*Type
		for _, t := range flat {
			switch t {
			case c.trueType:
				if !seen[c.booleanType.id] {
					out = append(out, c.booleanType)
					seen[c.booleanType.id] = true
				}
			case c.falseType:
			default:
				out = append(out, t)
			}
		}
		flat = out
	}
	switch len(flat) {
	case 0:
		return c.neverType
	case 1:
		return flat[0]
	}
	u := c.newType(FlagUnion)
	u.types = flat
	u.origin = origin
	return u
}

func (c *Checker) intersection(types []*Type, origin *TypeNode) *Type {
	var flat []*Type
	for _, t := range types {
		if t.flags&FlagIntersection != 0 {
			flat = append(flat, t.types...)
			continue
		}
		if t.flags&FlagNever != 0 {
			return c.neverType
		}
		flat = append(flat, t)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	it := c.newType(FlagIntersection)
	it.types = flat
	it.origin = origin
	it.resolveMembers = func() *members {
		m := newMembers()
		for _, part := range flat {
			pm := c.resolvedMembers(part)
			for _, p := range pm.props {
				m.add(p)
			}
			m.calls = append(m.calls, pm.calls...)
			m.constructs = append(m.constructs, pm.constructs...)
			if m.stringIndex == nil {
				m.stringIndex = pm.stringIndex
			}
			if m.numberIndex == nil {
				m.numberIndex = pm.numberIndex
			}
		}
		return m
	}
	return it
}

// addUndefined returns t | undefined.
func (c *Checker) addUndefined(t *Type) *Type {
	return c.union([]*Type{t, c.undefinedType}, nil)
}

func (c *Checker) removeNullish(t *Type, flags TypeFlags) *Type {
	if t.flags&flags != 0 {
		return c.neverType
	}
	if t.flags&FlagUnion == 0 || t.symbol != nil {
		return t
	}
	var keep []*Type
	for _, m := range t.types {
		if m.flags&flags == 0 {
			keep = append(keep, m)
		}
	}
	if len(keep) == len(t.types) {
		return t
	}
	return c.union(keep, nil)
}

func (c *Checker) arrayOf(elem *Type) *Type {
	t := c.arrayType(func() *Type { return elem }, nil, false)
	t.typeArguments = []*Type{elem}
	return t
}

func (c *Checker) arrayType(elem func() *Type, origin *TypeNode, readonly bool) *Type {
	name := "Array"
	if readonly {
		name = "ReadonlyArray"
	}
	sym := c.globalTypeSymbol(name)
	t := c.newObject(ObjectArray, sym, nil)
	t.elem = elem
	t.readonly = readonly
	t.origin = origin
	t.resolveMembers = func() *members {
		if sym == nil {
			return newMembers()
		}
		return c.resolvedMembers(c.instantiateInterface(sym, []*Type{c.elementType(t)}))
	}
	return t
}

// elementType returns the element type of an array type.
func (c *Checker) elementType(t *Type) *Type {
	if t.elemCache != nil {
		return t.elemCache
	}
	if t.elem == nil {
		return c.anyType
	}
	// Member resolution asks for the element type, so this guard is
	// separate from resolving.
	if t.elemResolving {
		return c.anyType
	}
	t.elemResolving = true
	e := t.elem()
	t.elemResolving = false
	if e == nil {
		e = c.anyType
	}
	t.elemCache = e
	return e
}

func (c *Checker) promiseOf(t *Type) *Type {
	sym := c.globalTypeSymbol("Promise")
	if sym == nil {
		return c.anyType
	}
	return c.instantiateInterface(sym, []*Type{t})
}

func (c *Checker) resolvedMembers(t *Type) *members {
	if t.members != nil {
		return t.members
	}
	if t.resolveMembers == nil || t.resolving {
		return newMembers()
	}
	t.resolving = true
	m := t.resolveMembers()
	t.resolving = false
	if m == nil {
		m = newMembers()
	}
	t.members = m
	return m
}

// widen converts literal types to their primitive base, as for mutable
// locations.
func (c *Checker) widen(t *Type) *Type {
	switch {
	case t.flags&FlagEnumLiteral != 0 && t.symbol != nil && t.symbol.parent != nil:
		return c.DeclaredTypeOfSymbol(t.symbol.parent)
	case t.flags&FlagStringLiteral != 0:
		return c.stringType
	case t.flags&FlagNumberLiteral != 0:
		return c.numberType
	case t.flags&FlagBooleanLiteral != 0:
		return c.booleanType
	case t.flags&FlagBigIntLiteral != 0:
		return c.bigintType
	case t.flags&FlagUnion != 0 && t.symbol == nil:
		parts := make([]*Type, len(t.types))
		for i, m := range t.types {
			parts[i] = c.widen(m)
		}
		return c.union(parts, nil)
	}
	return t
}

// env binds type parameter names while resolving syntax.
type env struct {
	id     int
	file   *tsparse.File
	params map[string]*Type
	parent *env
}

func (c *Checker) newEnv(file *tsparse.File, parent *env) *env {
	c.nextID++
	return &env{id: c.nextID, file: file, params: make(map[string]*Type), parent: parent}
}

func (e *env) lookup(name string) (*Type, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if t, ok := cur.params[name]; ok {
			return t, true
		}
	}
	return nil, false
}

func (c *Checker) with(e *env, name string, t *Type) *env {
	child := c.newEnv(e.file, e)
	child.params[name] = t
	return child
}

func (c *Checker) fileEnv(f *tsparse.File) *env {
	if e, ok := c.fileEnvs[f]; ok {
		return e
	}
	e := c.newEnv(f, nil)
	c.fileEnvs[f] = e
	return e
}

// envAt returns the environment for syntax at n: every enclosing generic
// declaration contributes its own, uninstantiated type parameters.
func (c *Checker) envAt(f *tsparse.File, n *sitter.Node) *env {
	var owners []*sitter.Node
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if tsparse.Field(cur, "type_parameters") != nil {
			owners = append(owners, cur)
		}
	}
	e := c.fileEnv(f)
	for i := len(owners) - 1; i >= 0; i-- {
		owner := owners[i]
		key := declKey{f, tsparse.KeyOf(owner)}
		if cached, ok := c.positionEnvs[key]; ok {
			e = cached
			continue
		}
		child := c.newEnv(f, e)
		for _, tp := range c.typeParameterNodes(owner) {
			child.params[f.Text(tsparse.Field(tp, "name"))] = c.typeParameter(f, tp)
		}
		c.positionEnvs[key] = child
		e = child
	}
	return e
}

func (c *Checker) typeParameterNodes(owner *sitter.Node) []*sitter.Node {
	list := tsparse.Field(owner, "type_parameters")
	var out []*sitter.Node
	for _, tp := range tsparse.NamedChildren(list) {
		if tp.Type() == "type_parameter" && tsparse.Field(tp, "name") != nil {
			out = append(out, tp)
		}
	}
	return out
}

func (c *Checker) typeParameter(f *tsparse.File, n *sitter.Node) *Type {
	key := declKey{f, tsparse.KeyOf(n)}
	if t, ok := c.typeParams[key]; ok {
		return t
	}
	t := c.newType(FlagTypeParameter)
	t.name = f.Text(tsparse.Field(n, "name"))
	t.paramDecl = n
	sym := c.newSymbol(t.name, SymbolTypeParameter)
	sym.addDecl(f, n)
	sym.declaredType = t
	t.symbol = sym
	c.typeParams[key] = t
	c.declSymbols[key] = sym
	return t
}

// typeParametersOf returns the declared type parameters of a generic
// alias, interface or class.
func (c *Checker) typeParametersOf(sym *Symbol) []*Type {
	for _, d := range sym.decls {
		nodes := c.typeParameterNodes(d.Node)
		if len(nodes) == 0 {
			continue
		}
		out := make([]*Type, len(nodes))
		for i, n := range nodes {
			out[i] = c.typeParameter(d.File, n)
		}
		return out
	}
	return nil
}

func (c *Checker) globalTypeSymbol(name string) *Symbol {
	lib := c.program.lib
	if lib == nil {
		return nil
	}
	return c.scope(lib).types[name]
}

// resolveAlias follows an import or re-export binding to its target.
func (c *Checker) resolveAlias(sym *Symbol, wantType bool) *Symbol {
	seen := make(map[*Symbol]bool)
	for sym != nil && sym.Has(SymbolAlias) {
		if seen[sym] {
			return nil
		}
		seen[sym] = true
		if sym.importName == "*" {
			return sym
		}
		target, status := c.program.ResolveModule(sym.from, sym.module)
		if status != ModuleResolved {
			return nil
		}
		sym = c.moduleExport(target, sym.importName, wantType, make(map[*tsparse.File]bool))
	}
	return sym
}

func (c *Checker) moduleExport(f *tsparse.File, name string, wantType bool, visited map[*tsparse.File]bool) *Symbol {
	if visited[f] {
		return nil
	}
	visited[f] = true
	s := c.scope(f)
	table := s.expValues
	if wantType {
		table = s.expTypes
	}
	if sym, ok := table[name]; ok {
		return sym
	}
	if name == "default" {
		return nil
	}
	for _, module := range s.stars {
		target, status := c.program.ResolveModule(f, module)
		if status != ModuleResolved {
			continue
		}
		if sym := c.moduleExport(target, name, wantType, visited); sym != nil {
			return sym
		}
	}
	return nil
}

// moduleExports lists the value exports of a module, for namespace imports.
func (c *Checker) moduleExports(f *tsparse.File) []*Symbol {
	s := c.scope(f)
	var out []*Symbol
	for _, st := range s.statements {
		if !st.Exported {
			continue
		}
		if sym, ok := s.expValues[st.Name]; ok {
			out = append(out, c.propertyView(st.Name, sym))
		}
	}
	return out
}

// propertyView exposes a value symbol as a property of a namespace object.
func (c *Checker) propertyView(name string, sym *Symbol) *Symbol {
	p := c.newSymbol(name, SymbolProperty|SymbolReadonly)
	p.decls = sym.decls
	target := sym
	p.valueThunk = func() *Type { return c.TypeOfSymbol(target) }
	return p
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) && v < 1e21 && v > -1e21 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func isIdentifierName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127:
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return !strings.ContainsAny(s, " ")
}
