package workspace

// appendEntity returns a new slice with v after the existing entries.
func appendEntity[T any](list []T, v T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, list...)
	return append(out, v)
}

// replaceByID returns a copy of list with the entry matching v's id replaced.
// A missing id leaves the list unchanged.
func replaceByID[T any](list []T, v T, id func(T) int) []T {
	out := make([]T, len(list))
	copy(out, list)
	want := id(v)
	for i := range out {
		if id(out[i]) == want {
			out[i] = v
		}
	}
	return out
}
