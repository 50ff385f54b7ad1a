package checker

import (
	"math"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/d-kimuson/ts-type-expand/internal/tsparse"
)

// enumMembers evaluates the members of an enum once, in declaration order.
// Members without a constant value get the number type.
func (c *Checker) enumMembers(sym *Symbol) []*Symbol {
	if sym.exports != nil || !sym.Has(SymbolEnum) {
		return sym.exports
	}
	sym.exports = []*Symbol{}
	values := make(map[string]any)
	var list []*Symbol
	for _, d := range sym.decls {
		if d.Node.Type() != "enum_declaration" {
			continue
		}
		body := tsparse.Field(d.Node, "body")
		if body == nil {
			body = tsparse.ChildOfType(d.Node, "enum_body")
		}
		next, auto := 0.0, true
		for _, member := range tsparse.NamedChildren(body) {
			var nameNode, valueNode *sitter.Node
			switch member.Type() {
			case "enum_assignment":
				nameNode = tsparse.Field(member, "name")
				valueNode = tsparse.Field(member, "value")
			case "property_identifier", "string", "number", "computed_property_name":
				nameNode = member
			default:
				continue
			}
			if nameNode == nil {
				continue
			}
			name := c.propertyName(d.File, nameNode)
			ms := c.newSymbol(name, SymbolEnumMember|SymbolReadonly)
			ms.addDecl(d.File, member)
			ms.parent = sym
			c.declSymbols[declKey{d.File, tsparse.KeyOf(member)}] = ms

			var value any
			ok := false
			if valueNode == nil {
				value, ok = next, auto
			} else {
				value, ok = c.evalEnumValue(d.File, valueNode, values)
			}
			var t *Type
			switch v := value.(type) {
			case float64:
				if !ok {
					break
				}
				t = c.newType(FlagNumberLiteral | FlagEnumLiteral)
				t.value = v
				next, auto = v+1, true
			case string:
				if !ok {
					break
				}
				t = c.newType(FlagStringLiteral | FlagEnumLiteral)
				t.value = v
				auto = false
			}
			if t == nil {
				t = c.numberType
				auto = false
			} else {
				t.symbol = ms
				values[name] = value
			}
			ms.declaredType = t
			ms.valueType = t
			list = append(list, ms)
		}
	}
	sym.exports = list
	return list
}

func (c *Checker) enumMember(sym *Symbol, name string) *Symbol {
	for _, m := range c.enumMembers(sym) {
		if m.name == name {
			return m
		}
	}
	return nil
}

// enumType is the union of an enum's member types, carrying the enum
// symbol.
func (c *Checker) enumType(sym *Symbol) *Type {
	t := c.newType(FlagUnion)
	t.symbol = sym
	for _, m := range c.enumMembers(sym) {
		t.types = append(t.types, m.declaredType)
	}
	return t
}

// enumObject is the type of an enum used as a value.
func (c *Checker) enumObject(sym *Symbol) *Type {
	return c.newObject(ObjectNamespace, sym, func() *members {
		m := newMembers()
		for _, member := range c.enumMembers(sym) {
			m.add(member)
		}
		return m
	})
}

// evalEnumValue folds a constant enum initializer.
func (c *Checker) evalEnumValue(f *tsparse.File, n *sitter.Node, values map[string]any) (any, bool) {
	if n == nil {
		return nil, false
	}
	switch n.Type() {
	case "number":
		v, ok := tsparse.ParseNumber(f.Text(n))
		return v, ok
	case "string":
		return tsparse.Unquote(f.Text(n)), true
	case "template_string":
		if tsparse.ChildOfType(n, "template_substitution") != nil {
			return nil, false
		}
		return tsparse.Unquote(f.Text(n)), true
	case "parenthesized_expression":
		return c.evalEnumValue(f, firstNamed(n), values)
	case "identifier":
		v, ok := values[f.Text(n)]
		return v, ok
	case "member_expression":
		obj := tsparse.Field(n, "object")
		prop := tsparse.Field(n, "property")
		if obj == nil || prop == nil || obj.Type() != "identifier" {
			return nil, false
		}
		sym := c.resolveValueName(f, obj, f.Text(obj))
		if sym != nil && sym.Has(SymbolAlias) {
			sym = c.resolveAlias(sym, false)
		}
		if sym == nil || !sym.Has(SymbolEnum) {
			return nil, false
		}
		member := c.enumMember(sym, f.Text(prop))
		if member == nil || member.declaredType == nil || member.declaredType.value == nil {
			return nil, false
		}
		return member.declaredType.value, true
	case "unary_expression":
		v, ok := c.evalEnumValue(f, tsparse.Field(n, "argument"), values)
		num, isNum := v.(float64)
		if !ok || !isNum {
			return nil, false
		}
		switch strings.TrimSpace(f.Text(tsparse.Field(n, "operator"))) {
		case "-":
			return -num, true
		case "+":
			return num, true
		case "~":
			return float64(^int32(num)), true
		}
		return nil, false
	case "binary_expression":
		l, lok := c.evalEnumValue(f, tsparse.Field(n, "left"), values)
		r, rok := c.evalEnumValue(f, tsparse.Field(n, "right"), values)
		if !lok || !rok {
			return nil, false
		}
		return foldBinary(strings.TrimSpace(f.Text(tsparse.Field(n, "operator"))), l, r)
	}
	return nil, false
}

func foldBinary(op string, l, r any) (any, bool) {
	ls, lstr := l.(string)
	rs, rstr := r.(string)
	if op == "+" && (lstr || rstr) {
		return toText(l, ls, lstr) + toText(r, rs, rstr), true
	}
	a, aok := l.(float64)
	b, bok := r.(float64)
	if !aok || !bok {
		return nil, false
	}
	switch op {
	case "+":
		return a + b, true
	case "-":
		return a - b, true
	case "*":
		return a * b, true
	case "/":
		return a / b, true
	case "%":
		return math.Mod(a, b), true
	case "**":
		return math.Pow(a, b), true
	case "|":
		return float64(int32(a) | int32(b)), true
	case "&":
		return float64(int32(a) & int32(b)), true
	case "^":
		return float64(int32(a) ^ int32(b)), true
	case "<<":
		return float64(int32(a) << (uint32(b) & 31)), true
	case ">>":
		return float64(int32(a) >> (uint32(b) & 31)), true
	case ">>>":
		return float64(uint32(a) >> (uint32(b) & 31)), true
	}
	return nil, false
}

func toText(v any, s string, isString bool) string {
	if isString {
		return s
	}
	if f, ok := v.(float64); ok {
		return formatNumber(f)
	}
	return ""
}
