package typeobject

import (
	"encoding/json"
	"fmt"
)

// EnvelopeKind tags a serialized type object on the wire.
const EnvelopeKind = "SERIALIZED_TYPE_OBJECT"

// Envelope carries a type object as an embedded JSON string.
type Envelope struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Serialize wraps t in an Envelope.
func Serialize(t TypeObject) (Envelope, error) {
	data, err := Marshal(t)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: EnvelopeKind, Value: string(data)}, nil
}

// Deserialize decodes the type object held by e.
func Deserialize(e Envelope) (TypeObject, error) {
	if e.Kind != EnvelopeKind {
		return nil, fmt.Errorf("typeobject: envelope kind %q, want %q", e.Kind, EnvelopeKind)
	}
	return Unmarshal([]byte(e.Value))
}

// SerializedProperty is a Property whose type travels in an Envelope.
type SerializedProperty struct {
	PropName string   `json:"propName"`
	Type     Envelope `json:"type"`
}

// SerializeProperties wraps each property type in an Envelope.
func SerializeProperties(props []Property) ([]SerializedProperty, error) {
	out := make([]SerializedProperty, 0, len(props))
	for _, p := range props {
		env, err := Serialize(p.Type)
		if err != nil {
			return nil, fmt.Errorf("typeobject: property %q: %w", p.Name, err)
		}
		out = append(out, SerializedProperty{PropName: p.Name, Type: env})
	}
	return out, nil
}

// DeserializeProperties reverses SerializeProperties.
func DeserializeProperties(props []SerializedProperty) ([]Property, error) {
	out := make([]Property, 0, len(props))
	for _, p := range props {
		t, err := Deserialize(p.Type)
		if err != nil {
			return nil, fmt.Errorf("typeobject: property %q: %w", p.PropName, err)
		}
		out = append(out, Property{Name: p.PropName, Type: t})
	}
	return out, nil
}

// MarshalEnvelope is a convenience for json.Marshal(Serialize(t)).
func MarshalEnvelope(t TypeObject) ([]byte, error) {
	env, err := Serialize(t)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}
