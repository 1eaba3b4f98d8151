// Package core implements the incremental negative-cycle detection engine:
// a weighted directed graph over currencies whose edge weights are derived
// from live prices, together with an incremental SPFA relaxer that detects
// arbitrage cycles without a full Bellman-Ford pass per tick.
//
// The engine is single-threaded and not internally thread-safe: one owner
// goroutine is expected to serialise UpdatePrice and FindArbitrageCycle
// calls. The atomic counters exposed by Stats are the one exception —
// they may be read concurrently from an HTTP handler goroutine while the
// owner goroutine writes them, following the same sync/atomic-counter
// texture as a typical detector/coordinator pairing.
//
// If a future deployment needs concurrent updates and queries, guard the
// dirty queue and SPFA state with a single mutex covering both operations;
// finer-grained locking is not justified by the access pattern.
package core

import "sync/atomic"

// Engine owns the Symbol Registry, Graph Store, and SPFA state for one
// currency universe. It is constructed once from a fixed symbol list and
// lives for the process lifetime.
type Engine struct {
	registry *SymbolRegistry
	store    *GraphStore

	// SPFA state, indexed by vertex id.
	distance     []float64
	predecessor  []int
	updateCounts []int
	dirtyQueue   []int

	ticksProcessed int64
	cyclesDetected int64
}

// NewEngine builds the fixed vertex universe from symbols and initialises
// SPFA state. All vertices start at distance 0 (the "virtual super-source"
// initialisation — see the design notes on why distance-from-vertex-0-only
// was rejected for a possibly-disconnected symbol universe).
func NewEngine(symbols []string) *Engine {
	registry := NewSymbolRegistry(symbols)
	n := registry.Size()

	distance := make([]float64, n)
	predecessor := make([]int, n)
	for i := range predecessor {
		predecessor[i] = -1
	}

	return &Engine{
		registry:     registry,
		store:        NewGraphStore(n),
		distance:     distance,
		predecessor:  predecessor,
		updateCounts: make([]int, n),
	}
}

// Registry exposes the engine's fixed Symbol Registry for read-only use
// (e.g. the /api/v1/symbols listing).
func (e *Engine) Registry() *SymbolRegistry {
	return e.registry
}

// Stats is a point-in-time snapshot of the engine's lifetime counters.
// Never persisted (no-persistence is a deliberate non-goal of the core).
type Stats struct {
	TicksProcessed int64
	CyclesDetected int64
	VertexCount    int
}

// Stats returns the current counters. Safe to call concurrently with
// UpdatePrice/FindArbitrageCycle from another goroutine.
func (e *Engine) Stats() Stats {
	return Stats{
		TicksProcessed: atomic.LoadInt64(&e.ticksProcessed),
		CyclesDetected: atomic.LoadInt64(&e.cyclesDetected),
		VertexCount:    e.registry.Size(),
	}
}
