package validation

import (
	"github.com/taskmill/mcp-tasks/internal/store"
	"github.com/taskmill/mcp-tasks/internal/task"
	"github.com/taskmill/mcp-tasks/internal/taskerr"
)

// BlockedByGraph builds the directed blocked-by graph over every task in the
// store (both files). When override is non-nil its relations replace the
// stored ones for that id, so a proposed mutation can be checked before it
// lands.
func BlockedByGraph(st *store.Store, override *task.Task) map[int][]int {
	graph := make(map[int][]int)
	for _, t := range st.Union() {
		if override != nil && t.ID == override.ID {
			continue
		}
		if ids := t.BlockedByIDs(); len(ids) > 0 {
			graph[t.ID] = ids
		}
	}
	if override != nil {
		if ids := override.BlockedByIDs(); len(ids) > 0 {
			graph[override.ID] = ids
		}
	}
	return graph
}

// CheckCycles runs a depth-first search from each start id over the
// blocked-by graph and reports the first cycle found. The cycle path in the
// metadata starts and ends with the same id.
func CheckCycles(graph map[int][]int, startIDs []int) *taskerr.Error {
	const (
		white = iota
		gray
		black
	)
	state := make(map[int]int)
	var stack []int
	var cycle []int

	var dfs func(id int) bool
	dfs = func(id int) bool {
		state[id] = gray
		stack = append(stack, id)
		for _, b := range graph[id] {
			switch state[b] {
			case gray:
				for i, v := range stack {
					if v == b {
						cycle = append(append([]int(nil), stack[i:]...), b)
						break
					}
				}
				return true
			case white:
				if dfs(b) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = black
		return false
	}

	for _, id := range startIDs {
		if state[id] == white && dfs(id) {
			return taskerr.New(taskerr.KindCycle, "blocked-by relation would create a cycle %v", cycle).
				With("cycle", cycle)
		}
	}
	return nil
}

// CheckTaskCycles validates that the proposed task's blocked-by relations
// keep the union graph acyclic.
func CheckTaskCycles(st *store.Store, proposed *task.Task) *taskerr.Error {
	if len(proposed.BlockedByIDs()) == 0 {
		return nil
	}
	graph := BlockedByGraph(st, proposed)
	return CheckCycles(graph, []int{proposed.ID})
}
