package storage

import "github.com/google/uuid"

// NewID returns a fresh document id.
func NewID() string {
	return uuid.NewString()
}

// Dedupe returns ids without empty entries or repeats, keeping first-seen order.
func Dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Union appends the members of add missing from base.
func Union(base, add []string) []string {
	return Dedupe(append(append(make([]string, 0, len(base)+len(add)), base...), add...))
}

// Subtract returns base without any member of remove.
func Subtract(base, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, id := range remove {
		drop[id] = struct{}{}
	}
	out := make([]string, 0, len(base))
	for _, id := range Dedupe(base) {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Contains reports whether id is a member of ids.
func Contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
