package effects

// List is an actor's embedded effect collection
type List []*Effect

// ByOrigin returns the first effect whose origin is the given source UUID
func (l List) ByOrigin(sourceUUID string) *Effect {
	for _, e := range l {
		if e.Origin == sourceUUID {
			return e
		}
	}
	return nil
}

// ByID returns the effect with the given document ID
func (l List) ByID(id string) *Effect {
	for _, e := range l {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Derived returns the aura-derived effects
func (l List) Derived() List {
	out := List{}
	for _, e := range l {
		if e.IsDerived() {
			out = append(out, e)
		}
	}
	return out
}

// Sources returns the aura source effects
func (l List) Sources() List {
	out := List{}
	for _, e := range l {
		if e.IsAuraSource() {
			out = append(out, e)
		}
	}
	return out
}

// OriginIn returns the effects whose origin is one of the given UUIDs
func (l List) OriginIn(origins map[string]bool) List {
	out := List{}
	for _, e := range l {
		if origins[e.Origin] {
			out = append(out, e)
		}
	}
	return out
}

// Clone deep-copies every effect
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	for i, e := range l {
		out[i] = e.Clone()
	}
	return out
}
