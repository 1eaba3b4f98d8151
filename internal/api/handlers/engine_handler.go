package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"arbitrage/internal/core"
)

// EngineHandler exposes the detection engine's registry, running counters
// and most recently detected cycle over HTTP.
//
// Назначение:
// Даёт read-only снимок состояния движка для внешних потребителей (UI,
// мониторинг). Сам движок принадлежит единственной горутине runner.Runner;
// этот handler никогда не вызывает UpdatePrice/FindArbitrageCycle, только
// Registry()/Stats() — обе операции безопасны для вызова из другой
// горутины, так как не мутируют состояние.
type EngineHandler struct {
	engine *core.Engine

	mu        sync.RWMutex
	lastCycle *core.CycleReport
}

// NewEngineHandler создает новый EngineHandler с внедрением зависимости.
func NewEngineHandler(engine *core.Engine) *EngineHandler {
	return &EngineHandler{engine: engine}
}

// RecordCycle запоминает последний обнаруженный цикл для отдачи через
// GET /api/v1/cycles/last. Вызывается из обёртки в cmd/server/main.go,
// которая получает отчёт от runner.Runner, а не напрямую из движка.
func (h *EngineHandler) RecordCycle(report core.CycleReport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := report
	h.lastCycle = &r
}

// GetSymbols возвращает зарегистрированные валюты (вершины графа).
//
// GET /api/v1/symbols
//
// Response 200 OK:
//
//	{"symbols": ["BTC", "ETH", "USDT"], "count": 3}
func (h *EngineHandler) GetSymbols(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.engine == nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "engine not initialized"})
		return
	}

	names := h.engine.Registry().Names()
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"symbols": names,
		"count":   len(names),
	})
}

// GetStats возвращает текущие счётчики движка.
//
// GET /api/v1/stats
//
// Response 200 OK:
//
//	{"TicksProcessed": 10523, "CyclesDetected": 3, "VertexCount": 12}
func (h *EngineHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.engine == nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "engine not initialized"})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(h.engine.Stats())
}

// GetLastCycle возвращает последний обнаруженный отрицательный цикл.
//
// GET /api/v1/cycles/last
//
// Response 200 OK (цикл был обнаружен):
//
//	{"Cycle": ["BTC", "ETH", "USDT", "BTC"], "DetectedAt": "2026-07-31T10:00:00Z"}
//
// Response 404 Not Found (циклов ещё не было с момента запуска):
//
//	{"error": "no cycle has been detected yet"}
func (h *EngineHandler) GetLastCycle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	h.mu.RLock()
	last := h.lastCycle
	h.mu.RUnlock()

	if last == nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "no cycle has been detected yet"})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(last)
}
