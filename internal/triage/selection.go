package triage

import "sort"

// Selection tracks the set of email ids marked for a bulk action. It is
// scoped to whatever filtered view is on screen: SelectAll takes exactly the
// visible ids, and Prune drops ids that left the authoritative dataset.
type Selection struct {
	ids map[int]struct{}
}

func NewSelection() *Selection {
	return &Selection{ids: make(map[int]struct{})}
}

func (s *Selection) Toggle(id int) {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

func (s *Selection) Selected(id int) bool {
	_, ok := s.ids[id]
	return ok
}

// SelectAll replaces the selection with exactly the given visible ids.
// Ids outside the current view are never resurrected by a reselect.
func (s *Selection) SelectAll(visible []int) {
	s.ids = make(map[int]struct{}, len(visible))
	for _, id := range visible {
		s.ids[id] = struct{}{}
	}
}

func (s *Selection) Clear() {
	s.ids = make(map[int]struct{})
}

func (s *Selection) Remove(id int) {
	delete(s.ids, id)
}

// Prune drops every selected id that is not in live. Enforced after each
// authoritative fetch so the selection never silently retains stale ids.
func (s *Selection) Prune(live map[int]struct{}) {
	for id := range s.ids {
		if _, ok := live[id]; !ok {
			delete(s.ids, id)
		}
	}
}

func (s *Selection) Len() int { return len(s.ids) }

// IDs returns the selected ids in ascending order.
func (s *Selection) IDs() []int {
	out := make([]int, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
