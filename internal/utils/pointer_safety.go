package utils

// Value dereferences v, or returns the zero value when v is nil.
func Value[T any](v *T) T {
	return ValueOr(v, *new(T))
}

func ValueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// Clone returns a pointer to a copy of *v, or nil.
func Clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
