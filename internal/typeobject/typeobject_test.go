package typeobject

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() TypeObject {
	return &Union{
		TypeName: "Result",
		Unions: []TypeObject{
			&Object{TypeName: "{ ok: true; }", StoreKey: "k1"},
			&Array{TypeName: "string[]", Child: NewPrimitive(PrimitiveString)},
			&Tuple{TypeName: "[number, Date]", Items: []TypeObject{NewPrimitive(PrimitiveNumber), NewSpecial(SpecialDate)}},
			&Enum{TypeName: "Color", Enums: []EnumMember{
				{Name: "Red", Type: NewLiteral(0)},
				{Name: "Blue", Type: NewLiteral("blue")},
			}},
			&Callable{
				ArgTypes:   []Argument{{Name: "x", Type: NewLiteral(true)}},
				ReturnType: &Promise{Child: NewSpecial(SpecialVoid)},
			},
			&PromiseLike{Child: &Literal{Value: BigInt{Base10Value: "10"}}},
			NewUnsupported(UnsupportedConvert, "symbol[]"),
		},
	}
}

func TestMarshal_Discriminators(t *testing.T) {
	t.Parallel()

	data, err := Marshal(NewPrimitive(PrimitiveString))
	require.NoError(t, err)
	assert.JSONEq(t, `{"__type":"PrimitiveTO","kind":"string"}`, string(data))

	data, err = Marshal(&Object{TypeName: "User", StoreKey: "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"__type":"ObjectTO","typeName":"User","storeKey":"abc"}`, string(data))

	data, err = Marshal(NewUnsupported(UnsupportedArrayT, ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"__type":"UnsupportedTO","kind":"arrayT"}`, string(data))

	data, err = Marshal(&Enum{TypeName: "E", Enums: []EnumMember{{Name: "A", Type: NewLiteral(1)}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"__type":"EnumTO","typeName":"E","enums":[{"name":"A","type":{"__type":"LiteralTO","value":1}}]}`, string(data))

	data, err = Marshal(&Callable{ReturnType: NewSpecial(SpecialVoid)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"__type":"CallableTO","argTypes":[],"returnType":{"__type":"SpecialTO","kind":"void"}}`, string(data))
}

func TestMarshal_NilIsError(t *testing.T) {
	t.Parallel()
	_, err := Marshal(nil)
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	in := sample()
	data, err := Marshal(in)
	require.NoError(t, err)

	out, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, Equal(in, out), "round trip changed the value:\n%s", data)

	again, err := Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestUnmarshal_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{"not json", `{`},
		{"missing discriminator", `{"kind":"string"}`},
		{"unknown variant", `{"__type":"MapTO"}`},
		{"bad primitive", `{"__type":"PrimitiveTO","kind":"float"}`},
		{"non literal enum member", `{"__type":"EnumTO","typeName":"E","enums":[{"name":"A","type":{"__type":"PrimitiveTO","kind":"string"}}]}`},
		{"bad nested child", `{"__type":"ArrayTO","typeName":"x[]","child":{"__type":"Nope"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestEnvelope(t *testing.T) {
	t.Parallel()

	env, err := Serialize(sample())
	require.NoError(t, err)
	assert.Equal(t, EnvelopeKind, env.Kind)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	out, err := Deserialize(decoded)
	require.NoError(t, err)
	assert.True(t, Equal(sample(), out))

	_, err = Deserialize(Envelope{Kind: "OTHER", Value: env.Value})
	assert.Error(t, err)
}

func TestProperties_JSON(t *testing.T) {
	t.Parallel()

	props := []Property{
		{Name: "name", Type: NewPrimitive(PrimitiveString)},
		{Name: "child", Type: &Object{TypeName: "Node", StoreKey: "k2"}},
	}
	data, err := json.Marshal(props)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"propName":"name","type":{"__type":"PrimitiveTO","kind":"string"}},
		{"propName":"child","type":{"__type":"ObjectTO","typeName":"Node","storeKey":"k2"}}
	]`, string(data))

	var back []Property
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 2)
	assert.Equal(t, "child", back[1].Name)
	assert.True(t, Equal(props[1].Type, back[1].Type))

	wrapped, err := SerializeProperties(props)
	require.NoError(t, err)
	unwrapped, err := DeserializeProperties(wrapped)
	require.NoError(t, err)
	require.Len(t, unwrapped, 2)
	assert.True(t, Equal(props[0].Type, unwrapped[0].Type))
}

func TestDeclaration_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Declaration{Type: NewLiteral("x")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":{"__type":"LiteralTO","value":"x"}}`, string(data))

	var d Declaration
	require.NoError(t, json.Unmarshal([]byte(`{"typeName":"A","type":{"__type":"SpecialTO","kind":"null"}}`), &d))
	assert.Equal(t, "A", d.DeclaredName)
	assert.Equal(t, NewSpecial(SpecialNull), d.Type)
}

func TestStructurallyEqual_IgnoresStoreKeys(t *testing.T) {
	t.Parallel()

	a := &Array{TypeName: "Node[]", Child: &Object{TypeName: "Node", StoreKey: "one"}}
	b := &Array{TypeName: "Node[]", Child: &Object{TypeName: "Node", StoreKey: "two"}}

	assert.True(t, StructurallyEqual(a, b))
	assert.False(t, Equal(a, b))
	assert.False(t, StructurallyEqual(a, &Array{TypeName: "Other[]", Child: b.Child}))
	assert.False(t, StructurallyEqual(NewLiteral(1), NewLiteral("1")))
	assert.True(t, StructurallyEqual(nil, nil))
	assert.False(t, StructurallyEqual(nil, NewLiteral(1)))
}

func TestWalk(t *testing.T) {
	t.Parallel()

	var seen []Variant
	Walk(sample(), func(t TypeObject) bool {
		seen = append(seen, t.Variant())
		return t.Variant() != VariantCallable
	})
	assert.Equal(t, []Variant{
		VariantUnion, VariantObject, VariantArray, VariantPrimitive,
		VariantTuple, VariantPrimitive, VariantSpecial,
		VariantEnum, VariantLiteral, VariantLiteral,
		VariantCallable,
		VariantPromiseLike, VariantLiteral,
		VariantUnsupported,
	}, seen)
}

func TestLiteralText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hello", LiteralText("hello"))
	assert.Equal(t, "20", LiteralText(20.0))
	assert.Equal(t, "1.5", LiteralText(1.5))
	assert.Equal(t, "true", LiteralText(true))
	assert.Equal(t, "-3n", LiteralText(BigInt{Negative: true, Base10Value: "3"}))
}
