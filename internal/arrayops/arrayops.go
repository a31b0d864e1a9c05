// Package arrayops holds the positional primitives behind field-array operations.
// Every function returns a new slice and leaves its input untouched, so callers can
// apply the same operation to a value slice, its key slice and the per-index state
// trees in one step.
package arrayops

// Clamp bounds i to [0, n].
func Clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// Insert splices items in at index (clamped to the slice bounds).
func Insert[T any](s []T, index int, items ...T) []T {
	index = Clamp(index, len(s))
	out := make([]T, 0, len(s)+len(items))
	out = append(out, s[:index]...)
	out = append(out, items...)
	return append(out, s[index:]...)
}

// Remove drops the given indices. Out-of-range and repeated indices are ignored.
// With no indices every element is removed.
func Remove[T any](s []T, indices ...int) []T {
	if len(indices) == 0 {
		return []T{}
	}
	drop := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(s) {
			drop[i] = struct{}{}
		}
	}
	out := make([]T, 0, len(s))
	for i, v := range s {
		if _, ok := drop[i]; !ok {
			out = append(out, v)
		}
	}
	return out
}

// Swap exchanges two positions. Indices are clamped to the last element; an empty
// slice is returned as a copy.
func Swap[T any](s []T, a, b int) []T {
	out := append([]T(nil), s...)
	if len(out) == 0 {
		return out
	}
	a, b = Clamp(a, len(out)-1), Clamp(b, len(out)-1)
	out[a], out[b] = out[b], out[a]
	return out
}

// Move relocates the element at from so that it ends up at to, shifting the
// elements in between. An out-of-range from leaves the slice unchanged; to is
// clamped.
func Move[T any](s []T, from, to int) []T {
	out := append([]T(nil), s...)
	if from < 0 || from >= len(out) {
		return out
	}
	to = Clamp(to, len(out)-1)
	v := out[from]
	out = append(out[:from], out[from+1:]...)
	return Insert(out, to, v)
}

// Pad extends s with zero values up to n elements, or truncates it to n.
func Pad[T any](s []T, n int) []T {
	if len(s) >= n {
		return append([]T(nil), s[:n]...)
	}
	out := make([]T, n)
	copy(out, s)
	return out
}

// Fill returns a slice of n copies of v.
func Fill[T any](n int, v T) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = v
	}
	return out
}
