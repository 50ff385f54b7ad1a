package checker

import (
	"strconv"
	"strings"
)

// maxPrintDepth bounds how many nested anonymous object literals are
// spelled out before eliding with "...".
const maxPrintDepth = 3

// TypeToString renders t the way declaration hovers show it.
func (c *Checker) TypeToString(t *Type) string {
	var b strings.Builder
	c.writeType(&b, t, 0)
	return b.String()
}

func (c *Checker) writeType(b *strings.Builder, t *Type, depth int) {
	if t == nil {
		b.WriteString("any")
		return
	}
	if t.aliasSymbol != nil {
		b.WriteString(t.aliasSymbol.name)
		c.writeTypeArguments(b, t.aliasTypeArguments, depth)
		return
	}
	switch {
	case t.flags&FlagEnumLiteral != 0 && t.symbol != nil:
		if t.symbol.parent != nil {
			b.WriteString(t.symbol.parent.name)
			b.WriteByte('.')
		}
		b.WriteString(t.symbol.name)
	case t.flags&FlagStringLiteral != 0:
		b.WriteString(quoteString(t.value.(string)))
	case t.flags&FlagNumberLiteral != 0:
		b.WriteString(formatNumber(t.value.(float64)))
	case t.flags&FlagBigIntLiteral != 0:
		b.WriteString(string(t.value.(BigInt)))
		b.WriteByte('n')
	case t.flags&FlagUnion != 0:
		if t.symbol != nil {
			b.WriteString(t.symbol.name)
			return
		}
		c.writeUnion(b, t, depth)
	case t.flags&FlagIntersection != 0:
		for i, m := range t.types {
			if i > 0 {
				b.WriteString(" & ")
			}
			c.writeOperand(b, m, depth, true)
		}
	case t.flags&FlagDeferred != 0:
		if t.origin != nil {
			b.WriteString(t.origin.Text())
		} else {
			b.WriteString("any")
		}
	case t.flags&FlagObject != 0:
		c.writeObject(b, t, depth)
	default:
		b.WriteString(t.name)
	}
}

func (c *Checker) writeUnion(b *strings.Builder, t *Type, depth int) {
	ordered := make([]*Type, 0, len(t.types))
	var nulls, undefineds []*Type
	for _, m := range t.types {
		switch {
		case m.flags&FlagNull != 0:
			nulls = append(nulls, m)
		case m.flags&FlagUndefined != 0:
			undefineds = append(undefineds, m)
		default:
			ordered = append(ordered, m)
		}
	}
	ordered = append(append(ordered, nulls...), undefineds...)
	for i, m := range ordered {
		if i > 0 {
			b.WriteString(" | ")
		}
		c.writeOperand(b, m, depth, false)
	}
}

// writeOperand parenthesizes function types inside unions and
// intersections, and unions inside intersections.
func (c *Checker) writeOperand(b *strings.Builder, t *Type, depth int, inIntersection bool) {
	needParens := c.isFunctionLiteral(t) || (inIntersection && t.flags&FlagUnion != 0 && t.symbol == nil && t.aliasSymbol == nil)
	if needParens {
		b.WriteByte('(')
	}
	c.writeType(b, t, depth)
	if needParens {
		b.WriteByte(')')
	}
}

func (c *Checker) writeTypeArguments(b *strings.Builder, args []*Type, depth int) {
	if len(args) == 0 {
		return
	}
	b.WriteByte('<')
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		c.writeType(b, a, depth)
	}
	b.WriteByte('>')
}

// isFunctionLiteral reports whether t prints in arrow form.
func (c *Checker) isFunctionLiteral(t *Type) bool {
	if t.flags&FlagObject == 0 || t.aliasSymbol != nil {
		return false
	}
	switch t.kind {
	case ObjectFunction:
		if t.symbol != nil {
			return false
		}
	case ObjectAnonymous:
	default:
		return false
	}
	m := c.resolvedMembers(t)
	return len(m.props) == 0 && len(m.calls) == 1 && len(m.constructs) == 0 &&
		m.stringIndex == nil && m.numberIndex == nil
}

func (c *Checker) writeObject(b *strings.Builder, t *Type, depth int) {
	switch t.kind {
	case ObjectArray:
		if t.readonly {
			b.WriteString("readonly ")
		}
		elem := c.elementType(t)
		parens := elem.aliasSymbol == nil && (elem.flags&(FlagUnion|FlagIntersection) != 0 && elem.symbol == nil || c.isFunctionLiteral(elem))
		if parens {
			b.WriteByte('(')
		}
		c.writeType(b, elem, depth)
		if parens {
			b.WriteByte(')')
		}
		b.WriteString("[]")
		return
	case ObjectTuple:
		if t.readonly {
			b.WriteString("readonly ")
		}
		b.WriteByte('[')
		for i, el := range t.tuple {
			if i > 0 {
				b.WriteString(", ")
			}
			if el.rest {
				b.WriteString("...")
			}
			if el.name != "" {
				b.WriteString(el.name)
				if el.optional {
					b.WriteByte('?')
				}
				b.WriteString(": ")
				c.writeType(b, el.typ, depth)
				continue
			}
			c.writeType(b, el.typ, depth)
			if el.optional {
				b.WriteByte('?')
			}
		}
		b.WriteByte(']')
		return
	case ObjectInterface, ObjectClass:
		if t.symbol != nil {
			b.WriteString(t.symbol.name)
			c.writeTypeArguments(b, t.typeArguments, depth)
			return
		}
	case ObjectConstructor:
		b.WriteString("typeof ")
		b.WriteString(t.symbol.name)
		return
	case ObjectNamespace:
		if t.symbol != nil && t.symbol.Has(SymbolAlias) {
			b.WriteString(`typeof import(`)
			b.WriteString(quoteString(t.symbol.module))
			b.WriteByte(')')
			return
		}
		if t.symbol != nil {
			b.WriteString("typeof ")
			b.WriteString(t.symbol.name)
			return
		}
	case ObjectFunction:
		if t.symbol != nil {
			b.WriteString("typeof ")
			b.WriteString(t.symbol.name)
			return
		}
	}

	m := c.resolvedMembers(t)
	if c.isFunctionLiteral(t) {
		c.writeSignature(b, m.calls[0], " => ", depth)
		return
	}
	if len(m.props) == 0 && len(m.calls) == 0 && len(m.constructs) == 0 && m.stringIndex == nil && m.numberIndex == nil {
		b.WriteString("{}")
		return
	}
	if depth >= maxPrintDepth {
		b.WriteString("{ ...; }")
		return
	}
	b.WriteString("{ ")
	for _, sig := range m.calls {
		c.writeSignature(b, sig, ": ", depth+1)
		b.WriteString("; ")
	}
	for _, sig := range m.constructs {
		b.WriteString("new ")
		c.writeSignature(b, sig, ": ", depth+1)
		b.WriteString("; ")
	}
	if m.stringIndex != nil {
		b.WriteString("[x: string]: ")
		c.writeType(b, m.stringIndex, depth+1)
		b.WriteString("; ")
	}
	if m.numberIndex != nil {
		b.WriteString("[x: number]: ")
		c.writeType(b, m.numberIndex, depth+1)
		b.WriteString("; ")
	}
	for _, p := range m.props {
		if p.Has(SymbolReadonly) {
			b.WriteString("readonly ")
		}
		b.WriteString(propertyKey(p.name))
		if p.Has(SymbolOptional) {
			b.WriteByte('?')
		}
		pt := c.TypeOfSymbol(p)
		if p.Has(SymbolMethod) && pt.kind == ObjectFunction && pt.symbol == nil {
			if sigs := c.CallSignatures(pt); len(sigs) == 1 {
				c.writeSignature(b, sigs[0], ": ", depth+1)
				b.WriteString("; ")
				continue
			}
		}
		b.WriteString(": ")
		c.writeType(b, pt, depth+1)
		b.WriteString("; ")
	}
	b.WriteByte('}')
}

func (c *Checker) writeSignature(b *strings.Builder, sig *Signature, arrow string, depth int) {
	if len(sig.typeParams) > 0 {
		b.WriteByte('<')
		for i, tp := range sig.typeParams {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(tp.name)
		}
		b.WriteByte('>')
	}
	b.WriteByte('(')
	for i, p := range sig.params {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.rest {
			b.WriteString("...")
		}
		b.WriteString(p.name)
		if p.Has(SymbolOptional) && !p.rest {
			b.WriteByte('?')
		}
		b.WriteString(": ")
		c.writeType(b, c.TypeOfSymbol(p), depth)
	}
	b.WriteByte(')')
	b.WriteString(arrow)
	c.writeType(b, c.ReturnTypeOfSignature(sig), depth)
}

func propertyKey(name string) string {
	if isIdentifierName(name) {
		return name
	}
	if _, err := strconv.ParseFloat(name, 64); err == nil {
		return name
	}
	return quoteString(name)
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
