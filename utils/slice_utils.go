package utils

// SliceSelect maps every element of x through f, returning the results in order.
func SliceSelect[T any, K any](x []T, f func(x T) K) []K {
	selected := make([]K, len(x))
	for i, element := range x {
		selected[i] = f(element)
	}
	return selected
}

// SliceWhere returns the elements of x for which f returns true, preserving their order.
func SliceWhere[T any](x []T, f func(x T) bool) []T {
	var matches []T
	for _, element := range x {
		if f(element) {
			matches = append(matches, element)
		}
	}
	return matches
}
