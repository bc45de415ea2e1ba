package models

import "sort"

// DefaultPriority is the preference order used when picking the session model
var DefaultPriority = []string{
	"models/gemini-1.5-flash",
	"models/gemini-1.5-flash-latest",
	"models/gemini-pro",
	"models/gemini-1.0-pro",
}

// Select returns the first priority entry present in available. When nothing
// matches it falls back to available[0], so the result follows provider order.
// ok is false only when available is empty.
func Select(available, priority []string) (name string, ok bool) {
	if len(available) == 0 {
		return "", false
	}

	present := make(map[string]bool, len(available))
	for _, n := range available {
		present[n] = true
	}

	for _, want := range priority {
		if present[want] {
			return want, true
		}
	}
	return available[0], true
}

// SelectSorted behaves like Select but falls back to the lexically smallest name
func SelectSorted(available, priority []string) (string, bool) {
	sorted := append([]string(nil), available...)
	sort.Strings(sorted)
	return Select(sorted, priority)
}
