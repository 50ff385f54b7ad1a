package checker

import (
	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
)

// TypeOfSymbol returns the type of a symbol used as a value.
func (c *Checker) TypeOfSymbol(sym *Symbol) *Type {
	if sym == nil {
		return c.errorType
	}
	if sym.valueType != nil {
		return sym.valueType
	}
	if sym.resolvingType {
		return c.anyType
	}
	sym.resolvingType = true
	t := c.computeTypeOfSymbol(sym)
	sym.resolvingType = false
	if t == nil {
		t = c.errorType
	}
	sym.valueType = t
	return t
}

func (c *Checker) computeTypeOfSymbol(sym *Symbol) *Type {
	switch {
	case sym.valueThunk != nil:
		return sym.valueThunk()
	case sym.Has(SymbolAlias):
		if sym.importName == "*" {
			return c.namespaceObject(sym)
		}
		target := c.resolveAlias(sym, false)
		if target == nil {
			return c.errorType
		}
		return c.TypeOfSymbol(target)
	case sym.Has(SymbolEnumMember):
		return c.DeclaredTypeOfSymbol(sym)
	case sym.Has(SymbolEnum):
		return c.enumObject(sym)
	case sym.Has(SymbolClass):
		return c.constructorType(sym)
	case sym.Has(SymbolFunction):
		return c.functionType(sym)
	case sym.Has(SymbolVariable):
		return c.variableType(sym)
	}
	return c.errorType
}

// DeclaredTypeOfSymbol returns the type a type-declaring symbol names.
// Generic declarations return their reference over their own parameters.
func (c *Checker) DeclaredTypeOfSymbol(sym *Symbol) *Type {
	if sym == nil {
		return c.errorType
	}
	if sym.declaredType != nil {
		return sym.declaredType
	}
	switch {
	case sym.Has(SymbolAlias):
		target := c.resolveAlias(sym, true)
		if target == nil || target == sym {
			return c.errorType
		}
		return c.DeclaredTypeOfSymbol(target)
	case sym.Has(SymbolEnumMember):
		if sym.parent != nil {
			c.enumMembers(sym.parent)
		}
		if sym.declaredType != nil {
			return sym.declaredType
		}
		return c.errorType
	}
	if sym.resolvingDeclared {
		return c.errorType
	}
	sym.resolvingDeclared = true
	defer func() { sym.resolvingDeclared = false }()

	var t *Type
	switch {
	case sym.Has(SymbolTypeAlias):
		if params := c.typeParametersOf(sym); len(params) > 0 {
			t = c.instantiateAlias(sym, params)
		} else {
			d := sym.decls[0]
			value := tsparse.Field(d.Node, "value")
			if value == nil {
				return c.errorType
			}
			t = c.attachAlias(c.typeFromNode(d.File, value, c.envAt(d.File, value)), value, sym, nil)
		}
	case sym.Has(SymbolInterface | SymbolClass):
		t = c.instantiateInterface(sym, c.typeParametersOf(sym))
	case sym.Has(SymbolEnum):
		t = c.enumType(sym)
	default:
		return c.errorType
	}
	sym.declaredType = t
	return t
}

// namespaceObject is the value of `import * as ns`.
func (c *Checker) namespaceObject(sym *Symbol) *Type {
	target := c.namespaceFile(sym)
	if target == nil {
		return c.errorType
	}
	return c.newObject(ObjectNamespace, sym, func() *members {
		m := newMembers()
		for _, p := range c.moduleExports(target) {
			m.add(p)
		}
		return m
	})
}

// ExportsOfSymbol returns enum members or namespace exports in
// declaration order, resolving them when needed.
func (c *Checker) ExportsOfSymbol(sym *Symbol) []*Symbol {
	if sym == nil {
		return nil
	}
	if sym.Has(SymbolEnum) {
		return c.enumMembers(sym)
	}
	return sym.exports
}
