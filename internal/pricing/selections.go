package pricing

import "slices"

// Selections maps a stable step id to the ordered set of selected product ids.
// Every helper returns a new value; callers never observe in-place mutation.
type Selections map[string][]string

// Clone deep-copies the selections.
func (s Selections) Clone() Selections {
	out := make(Selections, len(s))
	for stepID, ids := range s {
		out[stepID] = slices.Clone(ids)
	}
	return out
}

// Count returns the number of items selected on a step.
func (s Selections) Count(stepID string) int {
	return len(s[stepID])
}

// Contains reports whether productID is selected on stepID.
func (s Selections) Contains(stepID, productID string) bool {
	return slices.Contains(s[stepID], productID)
}

// With appends productID to the step set if absent.
func (s Selections) With(stepID, productID string) Selections {
	out := s.Clone()
	if !slices.Contains(out[stepID], productID) {
		out[stepID] = append(out[stepID], productID)
	}
	return out
}

// Without removes productID from the step set.
func (s Selections) Without(stepID, productID string) Selections {
	out := s.Clone()
	ids := slices.DeleteFunc(out[stepID], func(id string) bool { return id == productID })
	if len(ids) == 0 {
		delete(out, stepID)
	} else {
		out[stepID] = ids
	}
	return out
}

// Replace sets the step set to exactly the given ids.
func (s Selections) Replace(stepID string, ids ...string) Selections {
	out := s.Clone()
	if len(ids) == 0 {
		delete(out, stepID)
		return out
	}
	out[stepID] = slices.Clone(ids)
	return out
}

// Prune drops every step that is not in keep.
func (s Selections) Prune(keep []string) Selections {
	out := make(Selections, len(s))
	for stepID, ids := range s {
		if slices.Contains(keep, stepID) {
			out[stepID] = slices.Clone(ids)
		}
	}
	return out
}

// Equal reports whether both selections hold the same ids per step, order included.
func (s Selections) Equal(other Selections) bool {
	if len(s) != len(other) {
		return false
	}
	for stepID, ids := range s {
		if !slices.Equal(ids, other[stepID]) {
			return false
		}
	}
	return true
}
