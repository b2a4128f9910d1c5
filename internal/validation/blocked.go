package validation

import (
	"fmt"
	"sort"

	"github.com/taskmill/mcp-tasks/internal/store"
)

// BlockedInfo is the blocked status of one task.
//
// BlockingIDs names the unsettled transitive blockers that are themselves
// unblocked — the actionable frontier. A task whose direct blocker is itself
// blocked reports the deeper blocker, not the intermediate one.
type BlockedInfo struct {
	Blocked            bool   `json:"blocked?"`
	BlockingIDs        []int  `json:"blocking-ids"`
	Error              string `json:"error,omitempty"`
	CircularDependency []int  `json:"circular-dependency,omitempty"`
}

// nodeStatus is the memoized traversal result for one graph node.
type nodeStatus struct {
	anyOpen  bool
	frontier map[int]struct{}
	errMsg   string
	circular []int
}

// BlockedStatuses computes BlockedInfo for each requested id in one
// traversal of the relevant subgraph. Results match computing each id
// individually.
func BlockedStatuses(st *store.Store, ids []int) map[int]BlockedInfo {
	const (
		white = iota
		gray
		black
	)
	state := make(map[int]int)
	memo := make(map[int]*nodeStatus)
	var stack []int

	var visit func(id int) *nodeStatus
	visit = func(id int) *nodeStatus {
		if res, ok := memo[id]; ok && state[id] == black {
			return res
		}
		res := &nodeStatus{frontier: make(map[int]struct{})}
		memo[id] = res
		state[id] = gray
		stack = append(stack, id)

		t, found := st.ByID(id)
		if !found {
			res.anyOpen = true
			res.errMsg = fmt.Sprintf("task %d not found", id)
			res.frontier[id] = struct{}{}
			stack = stack[:len(stack)-1]
			state[id] = black
			return res
		}

		for _, b := range t.BlockedByIDs() {
			if state[b] == gray {
				// Cycle in hand-edited data; report it rather than recurse.
				var cyc []int
				for i, v := range stack {
					if v == b {
						cyc = append(append([]int(nil), stack[i:]...), b)
						break
					}
				}
				res.anyOpen = true
				res.circular = cyc
				res.errMsg = fmt.Sprintf("circular dependency %v", cyc)
				continue
			}
			sub := visit(b)
			if sub.errMsg != "" && res.errMsg == "" {
				res.errMsg = sub.errMsg
				res.circular = sub.circular
			}
			blocker, ok := st.ByID(b)
			if ok && !blocker.Settled() {
				res.anyOpen = true
				if sub.anyOpen {
					for f := range sub.frontier {
						res.frontier[f] = struct{}{}
					}
				} else {
					res.frontier[b] = struct{}{}
				}
				continue
			}
			// Settled or missing blockers still transmit deeper blockage.
			if sub.anyOpen {
				res.anyOpen = true
				for f := range sub.frontier {
					res.frontier[f] = struct{}{}
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[id] = black
		return res
	}

	out := make(map[int]BlockedInfo, len(ids))
	for _, id := range ids {
		res := visit(id)
		blocking := make([]int, 0, len(res.frontier))
		for f := range res.frontier {
			blocking = append(blocking, f)
		}
		sort.Ints(blocking)
		info := BlockedInfo{
			Blocked:            res.anyOpen,
			BlockingIDs:        blocking,
			Error:              res.errMsg,
			CircularDependency: res.circular,
		}
		if info.BlockingIDs == nil {
			info.BlockingIDs = []int{}
		}
		out[id] = info
	}
	return out
}

// BlockedStatus computes BlockedInfo for one task.
func BlockedStatus(st *store.Store, id int) BlockedInfo {
	return BlockedStatuses(st, []int{id})[id]
}
