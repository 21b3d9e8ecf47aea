package util

// Option is a value that may be absent. Unlike a pointer, it serialises
// the same way whether it is present or not.
type Option[A any] struct {
	Value   A    `msgpack:"v,omitempty" yaml:"value,omitempty"`
	Present bool `msgpack:"p" yaml:"present"`
}

func Some[A any](a A) Option[A] {
	return Option[A]{Value: a, Present: true}
}

func None[A any]() Option[A] {
	return Option[A]{}
}

// Get returns the value and whether it is present, like a map lookup
func (o Option[A]) Get() (A, bool) {
	return o.Value, o.Present
}

// OrElse returns the value if present, or fallback otherwise
func (o Option[A]) OrElse(fallback A) A {
	if o.Present {
		return o.Value
	}
	return fallback
}

// OptionOf is Some(a) if ok, None otherwise
func OptionOf[A any](a A, ok bool) Option[A] {
	if !ok {
		return None[A]()
	}
	return Some(a)
}
