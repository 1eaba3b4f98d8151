package core

import "sync/atomic"

// relaxEpsilon is the margin by which a candidate distance must undercut
// the current one for a relaxation to count. Differences at floating-point
// rounding level (e.g. log(p) + -log(p) != 0 exactly) are treated as equal,
// so zero-weight cycles cannot be relaxed around forever.
const relaxEpsilon = 1e-12

// FindArbitrageCycle drains the dirty queue, incrementally relaxing from
// each dequeued vertex. Whenever a vertex's update_counts reaches N (the
// vertex count) it attempts to reconstruct a cycle; this is the
// Bellman-Ford invariant that a vertex relaxed >= N times lies on or
// downstream of a negative cycle. A reconstructed cycle is returned only if
// its edge weights sum below zero; otherwise (including a reconstruction
// that hits predecessor -1) it is discarded and relaxation continues.
//
// Returns the cycle's currency sequence (length >= 2, c[0] == c[last]) and
// true, or nil and false if the queue empties with no detection. Never
// returns an error: absence of a cycle is a first-class result, and an
// internal-consistency failure during reconstruction degrades to "no
// cycle" rather than propagating.
//
// SPFA bookkeeping (distance, predecessor, update_counts) is not reset
// after a cycle is found or after the queue drains; it persists for the
// lifetime of the engine (see the design notes on the persistence open
// question). Consequently, once a negative cycle exists, a later tick may
// cause this method to re-detect it again on the next call — the core
// does not deduplicate repeated cycle reports, matching its non-goals.
func (e *Engine) FindArbitrageCycle() ([]string, bool) {
	n := e.registry.Size()

	for len(e.dirtyQueue) > 0 {
		u := e.dirtyQueue[0]
		e.dirtyQueue = e.dirtyQueue[1:]

		// The classical algorithm guards relaxation on "distance[u] < inf".
		// Under this engine's all-zero super-source initialisation every
		// vertex's distance is finite from construction onward, so that
		// guard is vacuously true here and is omitted.
		for _, edge := range e.store.Neighbors(u) {
			v, w := edge.Destination, edge.Weight
			candidate := e.distance[u] + w
			if candidate < e.distance[v]-relaxEpsilon {
				e.distance[v] = candidate
				e.predecessor[v] = u
				e.dirtyQueue = append(e.dirtyQueue, v)
				e.updateCounts[v]++

				if e.updateCounts[v] >= n {
					if cycle, ok := e.reconstructCycle(v); ok {
						atomic.AddInt64(&e.cyclesDetected, 1)
						return cycle, true
					}
				}
			}
		}
	}

	return nil, false
}

// reconstructCycle implements the two-walk predecessor trick described in
// the spec: walk back exactly n hops from the detection seed to guarantee
// landing inside the cycle, then walk back again from that vertex,
// prepending each vertex visited, until the walk returns to its start.
// The result is rejected (false) if a walk hits predecessor -1 or if the
// cycle's edge weights do not sum below zero, which stale predecessors
// left over from earlier calls can produce.
func (e *Engine) reconstructCycle(seed int) ([]string, bool) {
	n := e.registry.Size()

	x := seed
	for i := 0; i < n; i++ {
		if e.predecessor[x] == -1 {
			return nil, false
		}
		x = e.predecessor[x]
	}

	path := []int{x}
	cur := e.predecessor[x]
	for cur != x {
		if cur == -1 {
			return nil, false
		}
		path = append([]int{cur}, path...)
		cur = e.predecessor[cur]
	}
	path = append([]int{x}, path...)

	total := 0.0
	for i := 0; i+1 < len(path); i++ {
		u, v := path[i], path[i+1]
		total += e.store.adjacency[u][e.store.edgeIndex[edgeKey(u, v)]].Weight
	}
	if total >= 0 {
		return nil, false
	}

	names := make([]string, len(path))
	for i, id := range path {
		name, ok := e.registry.NameOf(id)
		if !ok {
			return nil, false
		}
		names[i] = name
	}
	return names, true
}
