// Package utils holds small pointer helpers for the optional fields used by
// profile patches and billing snapshots.
package utils

// Value dereferences v, returning the zero value when v is nil.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// Ptr returns a pointer to v, for building patch literals inline.
func Ptr[T any](v T) *T {
	return &v
}
