package domain

import "sort"

// RoleDiff is the delta between two role-id sets. Both slices are sorted so
// downstream iteration (and log output) is reproducible.
type RoleDiff struct {
	Added   []string
	Removed []string
}

// Empty reports whether the diff carries no changes.
func (d RoleDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// DiffRoles computes added = after \ before and removed = before \ after with
// set semantics: duplicates and ordering in the inputs are irrelevant.
func DiffRoles(before, after []string) RoleDiff {
	return RoleDiff{
		Added:   subtract(after, before),
		Removed: subtract(before, after),
	}
}

// SameRoleSet reports whether two role-id slices contain the same set of ids.
func SameRoleSet(a, b []string) bool {
	d := DiffRoles(a, b)
	return d.Empty()
}

func subtract(from, exclude []string) []string {
	excluded := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(from))
	var out []string
	for _, id := range from {
		if _, ok := excluded[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
