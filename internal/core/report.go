package core

import "time"

// CycleReport pairs a detected cycle's currency sequence with the wall
// clock time of detection. The core itself never constructs or stores
// these; runner.Runner wraps FindArbitrageCycle's return value into one
// for downstream consumers (the WebSocket hub, the /api/v1/cycles/last
// cache). Repeated reports of the same rotation are not deduplicated,
// matching the engine's non-goals.
type CycleReport struct {
	Cycle      []string
	DetectedAt time.Time
}
