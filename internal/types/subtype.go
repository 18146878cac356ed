package types

// IsAssignable reports whether a value of type from may be used where to
// is expected, per spec.md §4.2: class subtyping is nominal, interface
// satisfaction is structural, function types are contravariant in
// parameters and covariant in result with the n<=m arity rule, and `any`
// is a universal sink/source whose actual boxing/unboxing is a separate,
// explicit IR-level concern (see AnyBox/AnyUnbox in internal/ir), not part
// of this check.
func IsAssignable(from, to *Type) bool {
	if from == nil || to == nil {
		return false
	}
	if to.Kind == KindAny || from.Kind == KindAny {
		return true
	}
	if from.Kind == KindNull {
		return isNullable(to)
	}
	switch to.Kind {
	case KindNumber, KindString, KindBool, KindVoid:
		return from.Kind == to.Kind
	case KindClass:
		return from.Kind == KindClass && from.Class.IsSubclassOf(to.Class)
	case KindInterface:
		switch from.Kind {
		case KindClass:
			return classSatisfiesInterface(from.Class, to.Interface)
		case KindInterface:
			return interfaceSatisfiesInterface(from.Interface, to.Interface)
		default:
			return false
		}
	case KindArray:
		return from.Kind == KindArray && typesIdentical(from.Elem, to.Elem)
	case KindFunction:
		return from.Kind == KindFunction && funcIsAssignable(from.Func, to.Func)
	default:
		return false
	}
}

func isNullable(t *Type) bool {
	switch t.Kind {
	case KindClass, KindInterface, KindArray, KindString, KindFunction:
		return true
	default:
		return false
	}
}

func typesIdentical(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindClass:
		return a.Class == b.Class
	case KindInterface:
		return a.Interface == b.Interface
	case KindArray:
		return typesIdentical(a.Elem, b.Elem)
	case KindFunction:
		return funcIsAssignable(a.Func, b.Func) && funcIsAssignable(b.Func, a.Func)
	default:
		return true
	}
}

// classSatisfiesInterface reports whether every member iface declares has
// a compatible counterpart in c (own or inherited).
func classSatisfiesInterface(c *ClassType, iface *InterfaceType) bool {
	for _, member := range iface.Members {
		if member.Func != nil {
			m := c.FindMethod(member.Name)
			if m == nil || !funcIsAssignable(m.Sig, member.Func) {
				return false
			}
			continue
		}
		f := c.FindField(member.Name)
		if f == nil || !typesIdentical(f.Type, member.Prop) {
			return false
		}
	}
	return true
}

func interfaceSatisfiesInterface(a, b *InterfaceType) bool {
	for _, member := range b.Members {
		found := false
		for _, cand := range a.Members {
			if cand.Name != member.Name {
				continue
			}
			if member.Func != nil {
				found = cand.Func != nil && funcIsAssignable(cand.Func, member.Func)
			} else {
				found = cand.Prop != nil && typesIdentical(cand.Prop, member.Prop)
			}
			break
		}
		if !found {
			return false
		}
	}
	return true
}

// funcIsAssignable reports whether a function of type from may be used
// where to is expected: from may accept no more parameters than to
// supplies (n<=m), each accepted parameter is contravariant, and the
// result is covariant.
func funcIsAssignable(from, to *FuncType) bool {
	if from == nil || to == nil {
		return false
	}
	if len(from.Params) > len(to.Params) {
		return false
	}
	for i, fp := range from.Params {
		tp := to.Params[i]
		if !IsAssignable(tp, fp) { // contravariant: to's param must satisfy from's param position
			return false
		}
	}
	if from.Result == nil || to.Result == nil {
		return from.Result == to.Result
	}
	return IsAssignable(from.Result, to.Result)
}
