package traits

type color uint8

const (
	white color = iota
	grey
	black
)

// markCycles runs a three-color DFS over supertrait edges and flags every
// trait that lies on a cycle. traits[0] is the reserved slot.
func markCycles(traits []TraitDef) {
	colors := make([]color, len(traits))
	var stack []TraitID
	var visit func(id TraitID)
	visit = func(id TraitID) {
		colors[id] = grey
		stack = append(stack, id)
		for _, s := range traits[id].Supers {
			if !s.ID.IsValid() {
				continue
			}
			switch colors[s.ID] {
			case white:
				visit(s.ID)
			case grey:
				// every trait from s.ID up to the top of the stack is on the cycle
				for i := len(stack) - 1; i >= 0; i-- {
					traits[stack[i]].Cyclic = true
					if stack[i] == s.ID {
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		colors[id] = black
	}
	for i := 1; i < len(traits); i++ {
		if colors[i] == white {
			visit(TraitID(i)) // #nosec G115 -- bounded by arena size
		}
	}
}

// Cycles groups the cyclic traits into their cycles, each listed from its
// lowest id in edge order. Used for reporting.
func (r *Registry) Cycles() [][]TraitID {
	var out [][]TraitID
	done := make(map[TraitID]bool)
	for i := 1; i < len(r.traits); i++ {
		id := TraitID(i) // #nosec G115 -- bounded by arena size
		if !r.traits[id].Cyclic || done[id] {
			continue
		}
		cycle := r.cycleFrom(id)
		for _, c := range cycle {
			done[c] = true
		}
		if len(cycle) > 0 {
			out = append(out, cycle)
		}
	}
	return out
}

// cycleFrom follows cyclic supertrait edges from start until it returns to
// start.
func (r *Registry) cycleFrom(start TraitID) []TraitID {
	path := []TraitID{start}
	onPath := map[TraitID]int{start: 0}
	var walk func(id TraitID) bool
	walk = func(id TraitID) bool {
		for _, s := range r.traits[id].Supers {
			if !s.ID.IsValid() || !r.traits[s.ID].Cyclic {
				continue
			}
			if s.ID == start {
				return true
			}
			if _, seen := onPath[s.ID]; seen {
				continue
			}
			onPath[s.ID] = len(path)
			path = append(path, s.ID)
			if walk(s.ID) {
				return true
			}
			path = path[:len(path)-1]
			delete(onPath, s.ID)
		}
		return false
	}
	if walk(start) {
		return path
	}
	return nil
}
