package websocket

import (
	"time"

	"arbitrage/internal/core"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений, транслируемых клиентам /ws/stream
const (
	// MessageTypeTickProcessed - один тик принят и применён движком
	MessageTypeTickProcessed MessageType = "tickProcessed"

	// MessageTypeCycleFound - обнаружен отрицательный цикл (арбитраж)
	MessageTypeCycleFound MessageType = "cycleFound"

	// MessageTypeStatsUpdate - снимок счётчиков движка
	MessageTypeStatsUpdate MessageType = "statsUpdate"
)

// BaseMessage - общая часть всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// TickProcessedMessage сообщает о применённом тике. Рассылается через
// Hub.BroadcastTickProcessed; runner этот метод не вызывает.
type TickProcessedMessage struct {
	BaseMessage
	Data TickProcessedData `json:"data"`
}

// TickProcessedData - данные одного обработанного тика.
type TickProcessedData struct {
	Symbol         string  `json:"symbol"`
	Price          float64 `json:"price"`
	TicksProcessed int64   `json:"ticks_processed"`
}

// CycleFoundMessage сообщает об обнаруженном отрицательном цикле.
type CycleFoundMessage struct {
	BaseMessage
	Data CycleFoundData `json:"data"`
}

// CycleFoundData - последовательность валют цикла в порядке обхода;
// первый и последний элемент совпадают.
type CycleFoundData struct {
	Cycle      []string  `json:"cycle"`
	DetectedAt time.Time `json:"detected_at"`
}

// StatsUpdateMessage - снимок счётчиков движка, рассылаемый через
// Hub.BroadcastStatsUpdate.
type StatsUpdateMessage struct {
	BaseMessage
	Data StatsUpdateData `json:"data"`
}

// StatsUpdateData отражает core.Stats один к одному.
type StatsUpdateData struct {
	TicksProcessed int64 `json:"ticks_processed"`
	CyclesDetected int64 `json:"cycles_detected"`
	VertexCount    int   `json:"vertex_count"`
}

// ============ Фабричные функции для создания сообщений ============

// NewTickProcessedMessage создаёт сообщение об обработанном тике.
func NewTickProcessedMessage(symbol string, price float64, ticksProcessed int64) *TickProcessedMessage {
	return &TickProcessedMessage{
		BaseMessage: BaseMessage{Type: MessageTypeTickProcessed, Timestamp: time.Now()},
		Data: TickProcessedData{
			Symbol:         symbol,
			Price:          price,
			TicksProcessed: ticksProcessed,
		},
	}
}

// NewCycleFoundMessage создаёт сообщение об обнаруженном цикле из core.CycleReport.
func NewCycleFoundMessage(report core.CycleReport) *CycleFoundMessage {
	return &CycleFoundMessage{
		BaseMessage: BaseMessage{Type: MessageTypeCycleFound, Timestamp: time.Now()},
		Data: CycleFoundData{
			Cycle:      report.Cycle,
			DetectedAt: report.DetectedAt,
		},
	}
}

// NewStatsUpdateMessage создаёт сообщение со снимком счётчиков движка.
func NewStatsUpdateMessage(stats core.Stats) *StatsUpdateMessage {
	return &StatsUpdateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeStatsUpdate, Timestamp: time.Now()},
		Data: StatsUpdateData{
			TicksProcessed: stats.TicksProcessed,
			CyclesDetected: stats.CyclesDetected,
			VertexCount:    stats.VertexCount,
		},
	}
}
