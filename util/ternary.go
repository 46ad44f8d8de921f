package util

// Tern returns a if cond holds, else b.
func Tern[T any](cond bool, a T, b T) T {
	if cond {
		return a
	}
	return b
}
