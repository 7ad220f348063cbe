package utils

// ValueOr dereferences v, returning fallback when v is nil or points at the
// zero value.
func ValueOr[T comparable](v *T, fallback T) T {
	var zero T
	if v == nil || *v == zero {
		return fallback
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}
