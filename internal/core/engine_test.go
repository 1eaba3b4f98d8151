package core

import (
	"errors"
	"math"
	"testing"
)

const floatEpsilon = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatEpsilon
}

// --- Invariant 1: registry bijection ---

func TestRegistry_Bijection(t *testing.T) {
	e := NewEngine([]string{"A-B", "B-C", "A-C"})
	reg := e.Registry()

	if reg.Size() != 3 {
		t.Fatalf("expected N=3, got %d", reg.Size())
	}
	for i := 0; i < reg.Size(); i++ {
		name, ok := reg.NameOf(i)
		if !ok {
			t.Fatalf("NameOf(%d) not found", i)
		}
		id, ok := reg.IDOf(name)
		if !ok || id != i {
			t.Fatalf("IDOf(NameOf(%d)) = %d, want %d", i, id, i)
		}
	}
}

func TestRegistry_EmptySymbolList(t *testing.T) {
	e := NewEngine(nil)
	if e.Registry().Size() != 0 {
		t.Fatalf("expected N=0 for empty symbol list")
	}
	cycle, found := e.FindArbitrageCycle()
	if found || cycle != nil {
		t.Fatalf("expected no cycle immediately for empty registry")
	}
}

func TestRegistry_SkipsMalformedSymbol(t *testing.T) {
	e := NewEngine([]string{"A-B", "NODASH", "-C", "D-"})
	reg := e.Registry()
	// Only A and B come from a well-formed symbol.
	if reg.Size() != 2 {
		t.Fatalf("expected N=2 (only A-B well-formed), got %d", reg.Size())
	}
	if _, ok := reg.IDOf("NODASH"); ok {
		t.Fatalf("malformed symbol should not register a currency")
	}
}

// --- Invariant 2: edge weights from update_price ---

func TestUpdatePrice_SetsForwardAndReverseWeights(t *testing.T) {
	e := NewEngine([]string{"A-B"})
	aID, _ := e.Registry().IDOf("A")
	bID, _ := e.Registry().IDOf("B")

	if err := e.UpdatePrice("A-B", 2.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fwd := findEdge(e.store, aID, bID)
	rev := findEdge(e.store, bID, aID)
	if fwd == nil || rev == nil {
		t.Fatalf("expected both edges to exist")
	}
	if !floatEquals(fwd.Weight, -math.Log(2.0)) {
		t.Errorf("forward weight = %v, want %v", fwd.Weight, -math.Log(2.0))
	}
	if !floatEquals(rev.Weight, math.Log(2.0)) {
		t.Errorf("reverse weight = %v, want %v", rev.Weight, math.Log(2.0))
	}
}

func TestUpdatePrice_PriceOne_BothWeightsZero(t *testing.T) {
	e := NewEngine([]string{"A-B"})
	if err := e.UpdatePrice("A-B", 1.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	aID, _ := e.Registry().IDOf("A")
	bID, _ := e.Registry().IDOf("B")
	fwd := findEdge(e.store, aID, bID)
	rev := findEdge(e.store, bID, aID)
	if fwd.Weight != 0.0 || rev.Weight != 0.0 {
		t.Errorf("expected both weights exactly 0.0, got fwd=%v rev=%v", fwd.Weight, rev.Weight)
	}
}

func TestUpdatePrice_RoundTrip(t *testing.T) {
	e := NewEngine([]string{"A-B"})
	prices := []float64{0.5, 1.0, 2.0, 123.456}
	for _, p := range prices {
		if err := e.UpdatePrice("A-B", p); err != nil {
			t.Fatalf("unexpected error for price %v: %v", p, err)
		}
		aID, _ := e.Registry().IDOf("A")
		bID, _ := e.Registry().IDOf("B")
		fwd := findEdge(e.store, aID, bID)
		rev := findEdge(e.store, bID, aID)
		if !floatEquals(fwd.Weight+rev.Weight, 0.0) {
			t.Errorf("price %v: forward+reverse = %v, want 0", p, fwd.Weight+rev.Weight)
		}
	}
}

// --- Invariant 3: edge index monotonicity ---

func TestUpsertEdge_IndexNeverChangesAfterFirstInsertion(t *testing.T) {
	store := NewGraphStore(3)
	store.UpsertEdge(0, 1, 1.0)
	store.UpsertEdge(0, 2, 2.0)
	idxBefore := store.edgeIndex[edgeKey(0, 1)]

	store.UpsertEdge(0, 1, 5.0) // overwrite, must not move position
	idxAfter := store.edgeIndex[edgeKey(0, 1)]

	if idxBefore != idxAfter {
		t.Fatalf("index moved after overwrite: before=%d after=%d", idxBefore, idxAfter)
	}
	if store.adjacency[0][idxAfter].Weight != 5.0 {
		t.Fatalf("overwrite did not update weight in place")
	}
	// Reordering never happens: adjacency[0] must still have len 2.
	if len(store.adjacency[0]) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(store.adjacency[0]))
	}
}

func TestUpdatePrice_Idempotent(t *testing.T) {
	e := NewEngine([]string{"A-B", "B-C", "A-C"})
	apply := func(eng *Engine) {
		_ = eng.UpdatePrice("A-B", 2.0)
		_ = eng.UpdatePrice("B-C", 3.0)
		_ = eng.UpdatePrice("A-C", 6.0)
	}
	apply(e)
	apply(e) // second application must land on the same weights

	aID, _ := e.Registry().IDOf("A")
	bID, _ := e.Registry().IDOf("B")
	cID, _ := e.Registry().IDOf("C")

	if !floatEquals(findEdge(e.store, aID, bID).Weight, -math.Log(2.0)) {
		t.Errorf("A-B weight drifted on repeated update")
	}
	if !floatEquals(findEdge(e.store, bID, cID).Weight, -math.Log(3.0)) {
		t.Errorf("B-C weight drifted on repeated update")
	}
	if !floatEquals(findEdge(e.store, aID, cID).Weight, -math.Log(6.0)) {
		t.Errorf("A-C weight drifted on repeated update")
	}
}

// --- Error taxonomy ---

func TestUpdatePrice_MalformedSymbol(t *testing.T) {
	e := NewEngine([]string{"A-B"})
	err := e.UpdatePrice("ABUSD", 1.0)
	if !errors.Is(err, ErrMalformedSymbol) {
		t.Fatalf("expected ErrMalformedSymbol, got %v", err)
	}
	// Engine remains usable for a subsequent valid update.
	if err := e.UpdatePrice("A-B", 2.0); err != nil {
		t.Fatalf("engine should remain usable after malformed symbol: %v", err)
	}
}

func TestUpdatePrice_UnknownCurrency(t *testing.T) {
	e := NewEngine([]string{"A-B"})
	err := e.UpdatePrice("A-C", 1.0)
	if !errors.Is(err, ErrUnknownCurrency) {
		t.Fatalf("expected ErrUnknownCurrency, got %v", err)
	}
	cycle, found := e.FindArbitrageCycle()
	if found || cycle != nil {
		t.Fatalf("graph must be unchanged after an unknown-currency update")
	}
}

func TestUpdatePrice_InvalidPrice(t *testing.T) {
	e := NewEngine([]string{"A-B"})
	cases := []float64{0, -1.0, math.NaN(), math.Inf(1), math.Inf(-1)}
	for _, p := range cases {
		if err := e.UpdatePrice("A-B", p); !errors.Is(err, ErrInvalidPrice) {
			t.Errorf("price %v: expected ErrInvalidPrice, got %v", p, err)
		}
	}
}

// --- Concrete scenarios from spec.md section 8 ---

func TestScenario1_TrivialNoArbitrage(t *testing.T) {
	e := NewEngine([]string{"A-B", "B-C", "A-C"})
	mustUpdate(t, e, "A-B", 2.0)
	mustUpdate(t, e, "B-C", 3.0)
	mustUpdate(t, e, "A-C", 6.0)

	if cycle, found := e.FindArbitrageCycle(); found {
		t.Fatalf("expected no cycle, got %v", cycle)
	}
}

func TestScenario2_TriangularProfit(t *testing.T) {
	e := NewEngine([]string{"A-B", "B-C", "A-C"})
	mustUpdate(t, e, "A-B", 2.0)
	mustUpdate(t, e, "B-C", 3.0)
	mustUpdate(t, e, "A-C", 5.0)

	cycle, found := e.FindArbitrageCycle()
	if !found {
		t.Fatalf("expected a profitable cycle to be detected")
	}
	assertCycleIsProfitable(t, e, cycle)
}

func TestScenario3_CycleEmergesAfterLastTick(t *testing.T) {
	e := NewEngine([]string{"A-B", "B-C", "A-C"})
	mustUpdate(t, e, "A-B", 2.0)
	mustUpdate(t, e, "B-C", 3.0)
	mustUpdate(t, e, "A-C", 6.0)

	if _, found := e.FindArbitrageCycle(); found {
		t.Fatalf("expected no cycle before the profitable tick")
	}

	mustUpdate(t, e, "A-C", 5.0)

	cycle, found := e.FindArbitrageCycle()
	if !found {
		t.Fatalf("expected a cycle after the profitable tick")
	}
	assertCycleIsProfitable(t, e, cycle)
}

func TestScenario4_MalformedSymbol(t *testing.T) {
	e := NewEngine([]string{"A-B"})
	if err := e.UpdatePrice("ABUSD", 1.0); !errors.Is(err, ErrMalformedSymbol) {
		t.Fatalf("expected ErrMalformedSymbol, got %v", err)
	}
	mustUpdate(t, e, "A-B", 2.0)
}

func TestScenario5_UnknownCurrency(t *testing.T) {
	e := NewEngine([]string{"A-B"})
	if err := e.UpdatePrice("A-C", 1.0); !errors.Is(err, ErrUnknownCurrency) {
		t.Fatalf("expected ErrUnknownCurrency, got %v", err)
	}
	if _, found := e.FindArbitrageCycle(); found {
		t.Fatalf("expected no cycle")
	}
}

func TestScenario6_TwoCycleDirect(t *testing.T) {
	e := NewEngine([]string{"A-B"})
	mustUpdate(t, e, "A-B", 2.0)
	if _, found := e.FindArbitrageCycle(); found {
		t.Fatalf("a single pair round trip must never be flagged as a cycle")
	}
	mustUpdate(t, e, "A-B", 2.0)
	if _, found := e.FindArbitrageCycle(); found {
		t.Fatalf("a repeated identical update must still not be flagged as a cycle")
	}
}

// --- Helpers ---

func mustUpdate(t *testing.T, e *Engine, symbol string, price float64) {
	t.Helper()
	if err := e.UpdatePrice(symbol, price); err != nil {
		t.Fatalf("UpdatePrice(%q, %v): %v", symbol, price, err)
	}
}

func findEdge(store *GraphStore, u, v int) *Edge {
	for i, edge := range store.adjacency[u] {
		if edge.Destination == v {
			return &store.adjacency[u][i]
		}
	}
	return nil
}

// assertCycleIsProfitable checks invariant 4: a returned cycle's edges sum
// to a negative total weight (equivalently, the product of rates > 1).
func assertCycleIsProfitable(t *testing.T, e *Engine, cycle []string) {
	t.Helper()
	if len(cycle) < 2 || cycle[0] != cycle[len(cycle)-1] {
		t.Fatalf("cycle must have length >= 2 and begin/end with the same currency: %v", cycle)
	}

	total := 0.0
	for i := 0; i+1 < len(cycle); i++ {
		fromID, ok := e.Registry().IDOf(cycle[i])
		if !ok {
			t.Fatalf("unknown currency in cycle: %s", cycle[i])
		}
		toID, ok := e.Registry().IDOf(cycle[i+1])
		if !ok {
			t.Fatalf("unknown currency in cycle: %s", cycle[i+1])
		}
		edge := findEdge(e.store, fromID, toID)
		if edge == nil {
			t.Fatalf("cycle references a non-existent edge %s -> %s", cycle[i], cycle[i+1])
		}
		total += edge.Weight
	}

	if total >= 0 {
		t.Errorf("cycle weight sum = %v, want < 0", total)
	}
}
