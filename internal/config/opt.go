package config

// Opt is a value that is either present or absent.
//
// The zero Opt is absent. Presence is tracked explicitly, so a present zero
// value (false, "", nil slice) is still present.
type Opt[T any] struct {
	v  T
	ok bool
}

func Some[T any](v T) Opt[T] { return Opt[T]{v: v, ok: true} }

func None[T any]() Opt[T] { return Opt[T]{} }

// Get returns the value and whether it is present.
func (o Opt[T]) Get() (T, bool) { return o.v, o.ok }

func (o Opt[T]) Present() bool { return o.ok }

// OrElse returns the value if present, def otherwise.
func (o Opt[T]) OrElse(def T) T {
	if o.ok {
		return o.v
	}
	return def
}

// First returns the first present option, or an absent one.
func First[T any](opts ...Opt[T]) Opt[T] {
	for _, o := range opts {
		if o.ok {
			return o
		}
	}
	return Opt[T]{}
}

// someList copies v so the caller can't mutate the stored slice.
func someList(v []string) Opt[[]string] {
	return Some(append([]string(nil), v...))
}
