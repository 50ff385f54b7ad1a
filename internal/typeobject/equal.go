package typeobject

// Equal reports whether a and b describe the same type, including Object
// store keys.
func Equal(a, b TypeObject) bool {
	return equal(a, b, true)
}

// StructurallyEqual reports whether a and b describe the same type. Object
// store keys are ignored since each classification allocates fresh ones.
func StructurallyEqual(a, b TypeObject) bool {
	return equal(a, b, false)
}

func equal(a, b TypeObject, keys bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Variant() != b.Variant() {
		return false
	}
	switch x := a.(type) {
	case *Primitive:
		return x.Kind == b.(*Primitive).Kind
	case *Special:
		return x.Kind == b.(*Special).Kind
	case *Literal:
		return x.Value == b.(*Literal).Value
	case *Array:
		y := b.(*Array)
		return x.TypeName == y.TypeName && equal(x.Child, y.Child, keys)
	case *Tuple:
		y := b.(*Tuple)
		return x.TypeName == y.TypeName && equalList(x.Items, y.Items, keys)
	case *Object:
		y := b.(*Object)
		return x.TypeName == y.TypeName && (!keys || x.StoreKey == y.StoreKey)
	case *Union:
		y := b.(*Union)
		return x.TypeName == y.TypeName && equalList(x.Unions, y.Unions, keys)
	case *Enum:
		y := b.(*Enum)
		if x.TypeName != y.TypeName || len(x.Enums) != len(y.Enums) {
			return false
		}
		for i := range x.Enums {
			if x.Enums[i].Name != y.Enums[i].Name || !equal(x.Enums[i].Type, y.Enums[i].Type, keys) {
				return false
			}
		}
		return true
	case *Callable:
		y := b.(*Callable)
		if len(x.ArgTypes) != len(y.ArgTypes) {
			return false
		}
		for i := range x.ArgTypes {
			if x.ArgTypes[i].Name != y.ArgTypes[i].Name || !equal(x.ArgTypes[i].Type, y.ArgTypes[i].Type, keys) {
				return false
			}
		}
		return equal(x.ReturnType, y.ReturnType, keys)
	case *Promise:
		return equal(x.Child, b.(*Promise).Child, keys)
	case *PromiseLike:
		return equal(x.Child, b.(*PromiseLike).Child, keys)
	case *Unsupported:
		y := b.(*Unsupported)
		return x.Kind == y.Kind && x.TypeText == y.TypeText
	}
	return false
}

func equalList(a, b []TypeObject, keys bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equal(a[i], b[i], keys) {
			return false
		}
	}
	return true
}
