// Package attr implements the name-keyed attribute bags attached to the game,
// to tiles and to entities.
package attr

// Attribute is a named, typed value stored in a Bag.
//
// AttributeName returns a constant tag declared next to the concrete type: the
// type identifier in lowercase, underscore-separated form (LightInfo ->
// "light_info"). Implementations must use value receivers so the zero value of
// the type reports the same tag as any populated value.
type Attribute interface {
	AttributeName() string
}

// Bag maps attribute names to values. A bag never holds two attributes with
// the same name; a later Set for that name replaces the former value.
type Bag map[string]Attribute

func New(attrs ...Attribute) Bag {
	b := make(Bag, len(attrs))
	for _, a := range attrs {
		b.Set(a)
	}
	return b
}

func (b Bag) Set(a Attribute) {
	if a == nil {
		return
	}
	b[a.AttributeName()] = a
}

// Delete removes name from the bag and reports whether it was present.
// Effects never call it directly; removal goes through a command.
func (b Bag) Delete(name string) bool {
	if _, ok := b[name]; !ok {
		return false
	}
	delete(b, name)
	return true
}

func (b Bag) Has(name string) bool {
	_, ok := b[name]
	return ok
}

// Clone returns a shallow copy. Attribute values are treated as immutable, so
// sharing them between bags is safe.
func (b Bag) Clone() Bag {
	if b == nil {
		return Bag{}
	}
	out := make(Bag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Lookup returns the attribute stored under name if its dynamic type is T.
// A type mismatch is reported as absent.
func Lookup[T Attribute](b Bag, name string) (T, bool) {
	var zero T
	v, ok := b[name]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Get looks T up under T's own tag.
func Get[T Attribute](b Bag) (T, bool) {
	var zero T
	return Lookup[T](b, zero.AttributeName())
}

// Name returns the tag of T without needing a value.
func Name[T Attribute]() string {
	var zero T
	return zero.AttributeName()
}
