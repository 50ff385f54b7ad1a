package checker

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
)

// StatementKind distinguishes top-level statements relevant to extraction.
type StatementKind int

const (
	// StatementDeclaration is a local declaration, exported or not.
	StatementDeclaration StatementKind = iota
	// StatementReExport is `export { a as b } from "./mod"`.
	StatementReExport
	// StatementExportAll is `export * from "./mod"` or
	// `export * as ns from "./mod"`.
	StatementExportAll
)

// ExportSpecifier is one `name as alias` entry of an export clause.
type ExportSpecifier struct {
	Name  string
	Alias string
}

// Statement is a top-level declaration or re-export in source order.
type Statement struct {
	Kind     StatementKind
	Name     string
	Exported bool
	Symbol   *Symbol
	Decl     Decl
	DeclKind string

	Module     string
	Specifiers []ExportSpecifier
	Node       *sitter.Node
}

// Declaration kinds reported in Statement.DeclKind.
const (
	DeclTypeAlias = "type"
	DeclInterface = "interface"
	DeclEnum      = "enum"
	DeclClass     = "class"
	DeclFunction  = "function"
	DeclVariable  = "variable"
)

type fileScope struct {
	file      *tsparse.File
	types     map[string]*Symbol
	values    map[string]*Symbol
	expTypes  map[string]*Symbol
	expValues map[string]*Symbol
	stars     []string

	statements []Statement
	localExps  []localExport
}

type localExport struct {
	spec ExportSpecifier
	node *sitter.Node
}

func (c *Checker) scope(f *tsparse.File) *fileScope {
	if s, ok := c.scopes[f]; ok {
		return s
	}
	s := &fileScope{
		file:      f,
		types:     make(map[string]*Symbol),
		values:    make(map[string]*Symbol),
		expTypes:  make(map[string]*Symbol),
		expValues: make(map[string]*Symbol),
	}
	c.scopes[f] = s
	c.bind(s)
	return s
}

// Statements returns the top-level declarations and re-exports of f in
// source order. A declaration named by a local `export { a as b }` clause
// is reported once per exported name.
func (c *Checker) Statements(f *tsparse.File) []Statement {
	return c.scope(f).statements
}

func (c *Checker) bind(s *fileScope) {
	for _, n := range tsparse.NamedChildren(s.file.Root()) {
		c.bindStatement(s, n, false)
	}
	c.applyLocalExports(s)
}

func (c *Checker) bindStatement(s *fileScope, n *sitter.Node, exported bool) {
	f := s.file
	switch n.Type() {
	case "export_statement":
		c.bindExport(s, n)
	case "ambient_declaration":
		for _, child := range tsparse.NamedChildren(n) {
			c.bindStatement(s, child, exported)
		}
	case "type_alias_declaration":
		if name := declName(f, n); name != "" {
			sym := c.declare(s.types, name, SymbolTypeAlias, f, n)
			s.record(name, sym, DeclTypeAlias, f, n, exported)
		}
	case "interface_declaration":
		if name := declName(f, n); name != "" {
			sym := c.declare(s.types, name, SymbolInterface, f, n)
			s.record(name, sym, DeclInterface, f, n, exported)
		}
	case "enum_declaration":
		if name := declName(f, n); name != "" {
			sym := c.declare(s.types, name, SymbolEnum, f, n)
			s.values[name] = sym
			s.record(name, sym, DeclEnum, f, n, exported)
		}
	case "class_declaration", "abstract_class_declaration":
		if name := declName(f, n); name != "" {
			sym := c.declare(s.types, name, SymbolClass, f, n)
			s.values[name] = sym
			s.record(name, sym, DeclClass, f, n, exported)
		}
	case "function_declaration", "function_signature", "generator_function_declaration":
		if name := declName(f, n); name != "" {
			sym := c.declare(s.values, name, SymbolFunction, f, n)
			s.record(name, sym, DeclFunction, f, n, exported)
		}
	case "lexical_declaration", "variable_declaration":
		for _, d := range tsparse.Children(n) {
			if d.Type() != "variable_declarator" {
				continue
			}
			nameNode := tsparse.Field(d, "name")
			if nameNode == nil || nameNode.Type() != "identifier" {
				continue
			}
			name := f.Text(nameNode)
			sym := c.declare(s.values, name, SymbolVariable, f, d)
			s.record(name, sym, DeclVariable, f, d, exported)
		}
	case "import_statement":
		c.bindImport(s, n)
	}
}

func (c *Checker) bindExport(s *fileScope, n *sitter.Node) {
	f := s.file
	source := tsparse.Field(n, "source")
	clause := tsparse.ChildOfType(n, "export_clause")
	if decl := tsparse.Field(n, "declaration"); decl != nil {
		c.bindStatement(s, decl, true)
		return
	}
	switch {
	case source != nil && clause != nil:
		module := tsparse.Unquote(f.Text(source))
		specs := exportSpecifiers(f, clause)
		for _, spec := range specs {
			alias := c.newAlias(spec.Alias, module, spec.Name, f, n)
			s.expTypes[spec.Alias] = alias
			s.expValues[spec.Alias] = alias
		}
		s.statements = append(s.statements, Statement{
			Kind: StatementReExport, Module: module, Specifiers: specs,
			Exported: true, Node: n, Decl: Decl{File: f, Node: n},
		})
	case source != nil:
		module := tsparse.Unquote(f.Text(source))
		if tsparse.ChildOfType(n, "namespace_export") == nil {
			s.stars = append(s.stars, module)
		}
		s.statements = append(s.statements, Statement{
			Kind: StatementExportAll, Module: module,
			Exported: true, Node: n, Decl: Decl{File: f, Node: n},
		})
	case clause != nil:
		for _, spec := range exportSpecifiers(f, clause) {
			s.localExps = append(s.localExps, localExport{spec: spec, node: n})
		}
	default:
		// export default <expression>
		if value := tsparse.Field(n, "value"); value != nil {
			sym := c.newSymbol("default", SymbolVariable)
			sym.addDecl(f, n)
			s.expValues["default"] = sym
		} else if decl := firstDeclarationChild(n); decl != nil {
			c.bindStatement(s, decl, true)
		}
	}
}

func firstDeclarationChild(n *sitter.Node) *sitter.Node {
	for _, c := range tsparse.NamedChildren(n) {
		switch c.Type() {
		case "decorator", "export_clause", "string":
			continue
		}
		return c
	}
	return nil
}

func (c *Checker) applyLocalExports(s *fileScope) {
	if len(s.localExps) == 0 {
		return
	}
	declared := make(map[string][]int)
	for i, st := range s.statements {
		if st.Kind == StatementDeclaration {
			declared[st.Name] = append(declared[st.Name], i)
		}
	}

	var extra []Statement
	for _, le := range s.localExps {
		name, alias := le.spec.Name, le.spec.Alias
		if t, ok := s.types[name]; ok {
			s.expTypes[alias] = t
		}
		if v, ok := s.values[name]; ok {
			s.expValues[alias] = v
		}
		idx, ok := declared[name]
		if !ok {
			// Re-exported import binding.
			sym := s.types[name]
			if sym == nil {
				sym = s.values[name]
			}
			if sym != nil && sym.Has(SymbolAlias) && sym.importName != "*" {
				extra = append(extra, Statement{
					Kind: StatementReExport, Module: sym.module,
					Specifiers: []ExportSpecifier{{Name: sym.importName, Alias: alias}},
					Exported:   true, Node: le.node, Decl: Decl{File: s.file, Node: le.node},
				})
			}
			continue
		}
		for _, i := range idx {
			st := &s.statements[i]
			if !st.Exported {
				st.Exported = true
				st.Name = alias
				continue
			}
			dup := *st
			dup.Name = alias
			extra = append(extra, dup)
		}
	}
	s.statements = append(s.statements, extra...)
	sort.SliceStable(s.statements, func(i, j int) bool {
		return s.statements[i].Node.StartByte() < s.statements[j].Node.StartByte()
	})
}

func (s *fileScope) record(name string, sym *Symbol, kind string, f *tsparse.File, n *sitter.Node, exported bool) {
	if exported {
		s.export(name, sym)
	}
	for i := range s.statements {
		st := &s.statements[i]
		if st.Kind == StatementDeclaration && st.Symbol == sym {
			st.Exported = st.Exported || exported
			return
		}
	}
	s.statements = append(s.statements, Statement{
		Kind: StatementDeclaration, Name: name, Exported: exported,
		Symbol: sym, Decl: Decl{File: f, Node: n}, DeclKind: kind, Node: n,
	})
}

func (s *fileScope) export(name string, sym *Symbol) {
	if sym.Has(SymbolType) {
		s.expTypes[name] = sym
	}
	if sym.Has(SymbolValue) {
		s.expValues[name] = sym
	}
}

func (c *Checker) bindImport(s *fileScope, n *sitter.Node) {
	f := s.file
	source := tsparse.Field(n, "source")
	if source == nil {
		source = tsparse.ChildOfType(n, "string")
	}
	if source == nil {
		return
	}
	module := tsparse.Unquote(f.Text(source))
	clause := tsparse.ChildOfType(n, "import_clause")
	for _, part := range tsparse.NamedChildren(clause) {
		switch part.Type() {
		case "identifier":
			c.bindAlias(s, f.Text(part), module, "default", n)
		case "namespace_import":
			if id := tsparse.ChildOfType(part, "identifier"); id != nil {
				sym := c.bindAlias(s, f.Text(id), module, "*", n)
				sym.flags |= SymbolNamespace
			}
		case "named_imports":
			for _, spec := range tsparse.NamedChildren(part) {
				if spec.Type() != "import_specifier" {
					continue
				}
				nameNode := tsparse.Field(spec, "name")
				if nameNode == nil {
					continue
				}
				name := tsparse.Unquote(f.Text(nameNode))
				local := name
				if alias := tsparse.Field(spec, "alias"); alias != nil {
					local = f.Text(alias)
				}
				c.bindAlias(s, local, module, name, n)
			}
		}
	}
}

func (c *Checker) bindAlias(s *fileScope, local, module, importName string, n *sitter.Node) *Symbol {
	sym := c.newAlias(local, module, importName, s.file, n)
	s.types[local] = sym
	s.values[local] = sym
	return sym
}

func (c *Checker) newAlias(name, module, importName string, f *tsparse.File, n *sitter.Node) *Symbol {
	sym := c.newSymbol(name, SymbolAlias)
	sym.module = module
	sym.importName = importName
	sym.from = f
	sym.addDecl(f, n)
	return sym
}

func exportSpecifiers(f *tsparse.File, clause *sitter.Node) []ExportSpecifier {
	var out []ExportSpecifier
	for _, spec := range tsparse.NamedChildren(clause) {
		if spec.Type() != "export_specifier" {
			continue
		}
		nameNode := tsparse.Field(spec, "name")
		if nameNode == nil {
			continue
		}
		name := tsparse.Unquote(f.Text(nameNode))
		alias := name
		if a := tsparse.Field(spec, "alias"); a != nil {
			alias = tsparse.Unquote(f.Text(a))
		}
		out = append(out, ExportSpecifier{Name: name, Alias: alias})
	}
	return out
}

// mergeable reports whether a new declaration with flag merges into an
// existing symbol.
func mergeable(existing SymbolFlags, flag SymbolFlags) bool {
	switch flag {
	case SymbolInterface:
		return existing&(SymbolInterface|SymbolClass) != 0
	case SymbolClass:
		return existing&SymbolInterface != 0
	case SymbolEnum:
		return existing&SymbolEnum != 0
	case SymbolFunction:
		return existing&SymbolFunction != 0
	}
	return false
}

func (c *Checker) declare(table map[string]*Symbol, name string, flag SymbolFlags, f *tsparse.File, n *sitter.Node) *Symbol {
	if existing, ok := table[name]; ok {
		if mergeable(existing.flags, flag) {
			existing.flags |= flag
			existing.addDecl(f, n)
			c.declSymbols[declKey{f, tsparse.KeyOf(n)}] = existing
		}
		return existing
	}
	sym := c.newSymbol(name, flag)
	sym.addDecl(f, n)
	table[name] = sym
	c.declSymbols[declKey{f, tsparse.KeyOf(n)}] = sym
	return sym
}

func declName(f *tsparse.File, n *sitter.Node) string {
	if name := tsparse.Field(n, "name"); name != nil {
		return f.Text(name)
	}
	if id := tsparse.ChildOfType(n, "identifier", "type_identifier"); id != nil {
		return f.Text(id)
	}
	return ""
}
