// Package metrics собирает Prometheus-метрики движка обнаружения циклов:
// латентность обработки тиков, счётчики найденных циклов, состояние
// очереди приёма и подключений источников котировок.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============ Метрики латентности ============

// TickProcessingLatency - время обработки одного тика движком (от выхода
// из очереди до завершения FindArbitrageCycle).
var TickProcessingLatency = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "arbitrage",
		Subsystem: "engine",
		Name:      "tick_processing_latency_ms",
		Help:      "Time to process a single tick end to end in milliseconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	},
)

// ============ Счётчики событий ============

// TicksProcessed - количество тиков, принятых движком.
var TicksProcessed = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "engine",
		Name:      "ticks_processed_total",
		Help:      "Total number of price ticks processed by the engine",
	},
)

// TicksRejected - количество тиков, отклонённых при приёме (нераскодируемое
// сообщение очереди, неизвестная валюта, некорректный формат символа,
// некорректная цена).
var TicksRejected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "engine",
		Name:      "ticks_rejected_total",
		Help:      "Total number of ticks rejected, by reason",
	},
	[]string{"reason"}, // malformed_payload, malformed_symbol, unknown_currency, invalid_price
)

// CyclesDetected - количество обнаруженных отрицательных циклов.
var CyclesDetected = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "engine",
		Name:      "cycles_detected_total",
		Help:      "Total number of negative cycles detected",
	},
)

// ============ Метрики состояния ============

// QueueDepth - текущая глубина очереди тиков между источником и движком.
var QueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "arbitrage",
		Subsystem: "ingest",
		Name:      "tick_queue_depth",
		Help:      "Current number of ticks waiting in the ingest queue",
	},
)

// QueueOverflows - количество тиков, отброшенных из-за переполнения очереди.
var QueueOverflows = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "ingest",
		Name:      "tick_queue_overflows_total",
		Help:      "Number of ticks dropped because the ingest queue was full",
	},
)

// SourceConnectionStatus - состояние подключения источника котировок
// (1=подключен, 0=отключен).
var SourceConnectionStatus = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "arbitrage",
		Subsystem: "ingest",
		Name:      "source_connection_status",
		Help:      "Ingestion source connection status (1=connected, 0=disconnected)",
	},
	[]string{"source"},
)

// SourceReconnects - количество переподключений источника котировок.
var SourceReconnects = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "ingest",
		Name:      "source_reconnects_total",
		Help:      "Number of times an ingestion source had to reconnect",
	},
	[]string{"source"},
)

// ============ Вспомогательные функции ============

// RecordTickProcessed записывает факт обработки тика и его латентность.
func RecordTickProcessed(latencyMs float64) {
	TicksProcessed.Inc()
	TickProcessingLatency.Observe(latencyMs)
}

// RecordTickRejected записывает отклонение тика с указанием причины.
func RecordTickRejected(reason string) {
	TicksRejected.WithLabelValues(reason).Inc()
}

// RecordCycleDetected записывает обнаружение отрицательного цикла.
func RecordCycleDetected() {
	CyclesDetected.Inc()
}

// RecordQueueDepth обновляет текущую глубину очереди тиков.
func RecordQueueDepth(depth int) {
	QueueDepth.Set(float64(depth))
}

// RecordQueueOverflow записывает отброшенный из-за переполнения тик.
func RecordQueueOverflow() {
	QueueOverflows.Inc()
}

// RecordSourceStatus обновляет состояние подключения источника котировок.
func RecordSourceStatus(source string, connected bool) {
	if connected {
		SourceConnectionStatus.WithLabelValues(source).Set(1)
	} else {
		SourceConnectionStatus.WithLabelValues(source).Set(0)
	}
}

// RecordSourceReconnect записывает переподключение источника котировок.
func RecordSourceReconnect(source string) {
	SourceReconnects.WithLabelValues(source).Inc()
}
