package typeobject

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// JSON serialization support for type objects.
// Every variant includes a "__type" field for discrimination.

// MarshalJSON implements json.Marshaler for Primitive.
func (t *Primitive) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Type Variant       `json:"__type"`
		Kind PrimitiveKind `json:"kind"`
	}{
		Type: VariantPrimitive,
		Kind: t.Kind,
	})
}

// MarshalJSON implements json.Marshaler for Special.
func (t *Special) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Type Variant     `json:"__type"`
		Kind SpecialKind `json:"kind"`
	}{
		Type: VariantSpecial,
		Kind: t.Kind,
	})
}

// MarshalJSON implements json.Marshaler for Literal.
func (t *Literal) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Type  Variant `json:"__type"`
		Value any     `json:"value"`
	}{
		Type:  VariantLiteral,
		Value: t.Value,
	})
}

// MarshalJSON implements json.Marshaler for Array.
func (t *Array) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Type     Variant    `json:"__type"`
		TypeName string     `json:"typeName"`
		Child    TypeObject `json:"child"`
	}{
		Type:     VariantArray,
		TypeName: t.TypeName,
		Child:    t.Child,
	})
}

// MarshalJSON implements json.Marshaler for Tuple.
func (t *Tuple) MarshalJSON() ([]byte, error) {
	items := t.Items
	if items == nil {
		items = []TypeObject{}
	}
	return json.Marshal(&struct {
		Type     Variant      `json:"__type"`
		TypeName string       `json:"typeName"`
		Items    []TypeObject `json:"items"`
	}{
		Type:     VariantTuple,
		TypeName: t.TypeName,
		Items:    items,
	})
}

// MarshalJSON implements json.Marshaler for Object.
func (t *Object) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Type     Variant `json:"__type"`
		TypeName string  `json:"typeName"`
		StoreKey string  `json:"storeKey"`
	}{
		Type:     VariantObject,
		TypeName: t.TypeName,
		StoreKey: t.StoreKey,
	})
}

// MarshalJSON implements json.Marshaler for Union.
func (t *Union) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Type     Variant      `json:"__type"`
		TypeName string       `json:"typeName"`
		Unions   []TypeObject `json:"unions"`
	}{
		Type:     VariantUnion,
		TypeName: t.TypeName,
		Unions:   t.Unions,
	})
}

type enumMemberJSON struct {
	Name string   `json:"name"`
	Type *Literal `json:"type"`
}

// MarshalJSON implements json.Marshaler for Enum.
func (t *Enum) MarshalJSON() ([]byte, error) {
	enums := make([]enumMemberJSON, 0, len(t.Enums))
	for _, m := range t.Enums {
		enums = append(enums, enumMemberJSON(m))
	}
	return json.Marshal(&struct {
		Type     Variant          `json:"__type"`
		TypeName string           `json:"typeName"`
		Enums    []enumMemberJSON `json:"enums"`
	}{
		Type:     VariantEnum,
		TypeName: t.TypeName,
		Enums:    enums,
	})
}

type argumentJSON struct {
	Name string     `json:"name"`
	Type TypeObject `json:"type"`
}

// MarshalJSON implements json.Marshaler for Callable.
func (t *Callable) MarshalJSON() ([]byte, error) {
	args := make([]argumentJSON, 0, len(t.ArgTypes))
	for _, a := range t.ArgTypes {
		args = append(args, argumentJSON(a))
	}
	return json.Marshal(&struct {
		Type       Variant        `json:"__type"`
		ArgTypes   []argumentJSON `json:"argTypes"`
		ReturnType TypeObject     `json:"returnType"`
	}{
		Type:       VariantCallable,
		ArgTypes:   args,
		ReturnType: t.ReturnType,
	})
}

// MarshalJSON implements json.Marshaler for Promise.
func (t *Promise) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Type  Variant    `json:"__type"`
		Child TypeObject `json:"child"`
	}{
		Type:  VariantPromise,
		Child: t.Child,
	})
}

// MarshalJSON implements json.Marshaler for PromiseLike.
func (t *PromiseLike) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Type  Variant    `json:"__type"`
		Child TypeObject `json:"child"`
	}{
		Type:  VariantPromiseLike,
		Child: t.Child,
	})
}

// MarshalJSON implements json.Marshaler for Unsupported.
func (t *Unsupported) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Type     Variant         `json:"__type"`
		Kind     UnsupportedKind `json:"kind"`
		TypeText string          `json:"typeText,omitempty"`
	}{
		Type:     VariantUnsupported,
		Kind:     t.Kind,
		TypeText: t.TypeText,
	})
}

// MarshalJSON implements json.Marshaler for Property.
func (p Property) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		PropName string     `json:"propName"`
		Type     TypeObject `json:"type"`
	}{
		PropName: p.Name,
		Type:     p.Type,
	})
}

// UnmarshalJSON implements json.Unmarshaler for Property.
func (p *Property) UnmarshalJSON(data []byte) error {
	var raw struct {
		PropName string          `json:"propName"`
		Type     json.RawMessage `json:"type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := Unmarshal(raw.Type)
	if err != nil {
		return fmt.Errorf("property %q: %w", raw.PropName, err)
	}
	p.Name, p.Type = raw.PropName, t
	return nil
}

// MarshalJSON implements json.Marshaler for Declaration.
func (d Declaration) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		TypeName string     `json:"typeName,omitempty"`
		Type     TypeObject `json:"type"`
	}{
		TypeName: d.DeclaredName,
		Type:     d.Type,
	})
}

// UnmarshalJSON implements json.Unmarshaler for Declaration.
func (d *Declaration) UnmarshalJSON(data []byte) error {
	var raw struct {
		TypeName string          `json:"typeName"`
		Type     json.RawMessage `json:"type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := Unmarshal(raw.Type)
	if err != nil {
		return fmt.Errorf("declaration %q: %w", raw.TypeName, err)
	}
	d.DeclaredName, d.Type = raw.TypeName, t
	return nil
}

// Marshal encodes t as tagged JSON.
func Marshal(t TypeObject) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("typeobject: marshal nil type object")
	}
	return json.Marshal(t)
}

// wire is the union of every variant's fields.
type wire struct {
	Type       Variant           `json:"__type"`
	Kind       string            `json:"kind"`
	Value      json.RawMessage   `json:"value"`
	TypeName   string            `json:"typeName"`
	Child      json.RawMessage   `json:"child"`
	Items      []json.RawMessage `json:"items"`
	StoreKey   string            `json:"storeKey"`
	Unions     []json.RawMessage `json:"unions"`
	Enums      []struct {
		Name string          `json:"name"`
		Type json.RawMessage `json:"type"`
	} `json:"enums"`
	ArgTypes []struct {
		Name string          `json:"name"`
		Type json.RawMessage `json:"type"`
	} `json:"argTypes"`
	ReturnType json.RawMessage `json:"returnType"`
	TypeText   string          `json:"typeText"`
}

// Unmarshal decodes tagged JSON produced by Marshal.
func Unmarshal(data []byte) (TypeObject, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("typeobject: decode: %w", err)
	}
	switch w.Type {
	case VariantPrimitive:
		switch k := PrimitiveKind(w.Kind); k {
		case PrimitiveString, PrimitiveNumber, PrimitiveBigInt, PrimitiveBoolean:
			return NewPrimitive(k), nil
		}
		return nil, fmt.Errorf("typeobject: unknown primitive kind %q", w.Kind)
	case VariantSpecial:
		return NewSpecial(SpecialKind(w.Kind)), nil
	case VariantLiteral:
		v, err := decodeLiteralValue(w.Value)
		if err != nil {
			return nil, err
		}
		return &Literal{Value: v}, nil
	case VariantArray:
		child, err := Unmarshal(w.Child)
		if err != nil {
			return nil, err
		}
		return &Array{TypeName: w.TypeName, Child: child}, nil
	case VariantTuple:
		items, err := unmarshalList(w.Items)
		if err != nil {
			return nil, err
		}
		return &Tuple{TypeName: w.TypeName, Items: items}, nil
	case VariantObject:
		return &Object{TypeName: w.TypeName, StoreKey: w.StoreKey}, nil
	case VariantUnion:
		unions, err := unmarshalList(w.Unions)
		if err != nil {
			return nil, err
		}
		return &Union{TypeName: w.TypeName, Unions: unions}, nil
	case VariantEnum:
		e := &Enum{TypeName: w.TypeName, Enums: make([]EnumMember, 0, len(w.Enums))}
		for _, m := range w.Enums {
			t, err := Unmarshal(m.Type)
			if err != nil {
				return nil, err
			}
			lit, ok := t.(*Literal)
			if !ok {
				return nil, fmt.Errorf("typeobject: enum member %q is %s, want %s", m.Name, t.Variant(), VariantLiteral)
			}
			e.Enums = append(e.Enums, EnumMember{Name: m.Name, Type: lit})
		}
		return e, nil
	case VariantCallable:
		c := &Callable{ArgTypes: make([]Argument, 0, len(w.ArgTypes))}
		for _, a := range w.ArgTypes {
			t, err := Unmarshal(a.Type)
			if err != nil {
				return nil, err
			}
			c.ArgTypes = append(c.ArgTypes, Argument{Name: a.Name, Type: t})
		}
		ret, err := Unmarshal(w.ReturnType)
		if err != nil {
			return nil, err
		}
		c.ReturnType = ret
		return c, nil
	case VariantPromise, VariantPromiseLike:
		child, err := Unmarshal(w.Child)
		if err != nil {
			return nil, err
		}
		if w.Type == VariantPromise {
			return &Promise{Child: child}, nil
		}
		return &PromiseLike{Child: child}, nil
	case VariantUnsupported:
		return NewUnsupported(UnsupportedKind(w.Kind), w.TypeText), nil
	case "":
		return nil, fmt.Errorf("typeobject: missing __type discriminator")
	default:
		return nil, fmt.Errorf("typeobject: unknown variant %q", w.Type)
	}
}

func unmarshalList(raw []json.RawMessage) ([]TypeObject, error) {
	out := make([]TypeObject, 0, len(raw))
	for _, r := range raw {
		t, err := Unmarshal(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func decodeLiteralValue(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var b BigInt
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("typeobject: decode bigint literal: %w", err)
		}
		return b, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("typeobject: decode literal: %w", err)
	}
	return v, nil
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.Abs(f) >= 1e21:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
