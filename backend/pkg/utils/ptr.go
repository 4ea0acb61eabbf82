package utils

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the value p points to, or fallback when p is nil.
//
//nolint:ireturn // Generic functions must return type parameter T
func Deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}

	return *p
}
