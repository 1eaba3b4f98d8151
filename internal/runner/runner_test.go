package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"arbitrage/internal/core"
	"arbitrage/internal/ingest"
	"arbitrage/pkg/queue"
)

type recordingSink struct {
	mu      sync.Mutex
	reports []core.CycleReport
}

func (s *recordingSink) PublishCycle(r core.CycleReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

func pushTick(t *testing.T, q *queue.TickQueue, symbol string, price float64) {
	t.Helper()
	encoded, err := ingest.EncodeTick(ingest.Tick{Symbol: symbol, Price: price})
	if err != nil {
		t.Fatalf("EncodeTick: %v", err)
	}
	if !q.TryPush(encoded) {
		t.Fatalf("TryPush(%s) failed, queue full", encoded)
	}
}

func TestRunner_DetectsCycleAcrossQueuedTicks(t *testing.T) {
	engine := core.NewEngine([]string{"A-B", "B-C", "A-C"})
	q := queue.New("test", 16)
	sink := &recordingSink{}
	r := New(engine, q, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go r.Run(ctx)

	pushTick(t, q, "A-B", 2.0)
	pushTick(t, q, "B-C", 3.0)
	pushTick(t, q, "A-C", 5.0) // 2*3 > 5 => profitable rotation C->A->B->C

	deadline := time.After(2 * time.Second)
	for {
		if sink.count() > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("runner did not detect the expected cycle in time")
		case <-time.After(5 * time.Millisecond):
		}
	}

	report := sink.reports[0]
	if len(report.Cycle) < 2 || report.Cycle[0] != report.Cycle[len(report.Cycle)-1] {
		t.Errorf("cycle report is not a closed rotation: %+v", report.Cycle)
	}
}

func TestRunner_StopsOnStopSentinel(t *testing.T) {
	engine := core.NewEngine([]string{"A-B"})
	q := queue.New("test", 4)
	r := New(engine, q, nil, nil)

	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()

	q.TryPush(queue.Stop)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after Stop sentinel")
	}
}

func TestRunner_IgnoresMalformedPayloadAndContinues(t *testing.T) {
	engine := core.NewEngine([]string{"A-B"})
	q := queue.New("test", 4)
	sink := &recordingSink{}
	r := New(engine, q, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	q.TryPush("not json")
	pushTick(t, q, "A-B", 2.0)

	time.Sleep(50 * time.Millisecond)

	if sink.count() != 0 {
		t.Errorf("a single-pair update should never produce a cycle, got %d reports", sink.count())
	}
}
