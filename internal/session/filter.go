package session

import "strings"

// Identified is anything keyed by an nct_id.
type Identified interface {
	TrialID() string
}

// Filter returns the items whose nct_id contains query, ignoring case, in
// their original order. A blank query returns items unchanged.
func Filter[T Identified](items []T, query string) []T {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.TrialID()), q) {
			out = append(out, it)
		}
	}
	return out
}
