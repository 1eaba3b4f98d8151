package websocket

import (
	"bytes"
	"encoding/json"
	"sync"

	"arbitrage/internal/core"
	"arbitrage/pkg/utils"
)

// ============ ОПТИМИЗАЦИЯ: sync.Pool для JSON буферов ============
// Убирает аллокации при каждом Broadcast (было ~1000+/сек)

var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512)) // начальный размер 512 байт
	},
}

// Hub управляет всеми активными WebSocket соединениями
//
// Назначение:
// Центральный менеджер для broadcast сообщений всем подключенным клиентам.
// Обеспечивает real-time трансляцию событий движка без необходимости
// polling со стороны frontend. В cmd/server транслируются только найденные
// циклы (через PublishCycle); BroadcastTickProcessed и BroadcastStatsUpdate
// там не вызываются.
//
// Hub никогда не читает и не изменяет состояние движка напрямую: он
// получает уже готовые core.Stats/core.CycleReport от вызывающей стороны
// (runner.Runner через PublishCycle) и только сериализует их для клиентов.
//
// Использование:
// 1. Создать hub: hub := NewHub(logger)
// 2. Запустить в горутине: go hub.Run()
// 3. Отправлять сообщения: hub.PublishCycle(report) / hub.BroadcastStatsUpdate(stats)
type Hub struct {
	clients map[*Client]bool

	broadcast chan []byte

	register chan *Client

	unregister chan *Client

	mu sync.RWMutex

	logger *utils.Logger
}

// NewHub создает новый Hub.
func NewHub(logger *utils.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run запускает главный цикл Hub.
//
// Должен запускаться в отдельной горутине: go hub.Run()
// Обрабатывает регистрацию, отмену регистрации и broadcast
//
// ОПТИМИЗАЦИЯ: исправлен race condition при удалении клиентов под RLock
// Теперь: копируем список → отправляем без Lock → удаляем под Write Lock
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("websocket client connected", utils.Int("total_clients", count))
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("websocket client disconnected", utils.Int("total_clients", count))
			}

		case message := <-h.broadcast:
			// ОПТИМИЗАЦИЯ: копируем список клиентов под коротким RLock
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			// Отправляем сообщения БЕЗ блокировки (не блокируем register/unregister)
			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				count := len(h.clients)
				h.mu.Unlock()
				if h.logger != nil {
					h.logger.Warn("removed slow websocket clients",
						utils.Int("removed", len(toRemove)),
						utils.Int("total_clients", count),
					)
				}
			}
		}
	}
}

// Broadcast отправляет уже готовое сообщение всем подключенным клиентам.
// ОПТИМИЗАЦИЯ: использует sync.Pool для буферов (убирает аллокации)
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	if err := json.NewEncoder(buf).Encode(message); err != nil {
		if h.logger != nil {
			h.logger.Error("error marshaling broadcast message", utils.Err(err))
		}
		jsonBufferPool.Put(buf)
		return
	}

	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}

	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)

	jsonBufferPool.Put(buf)

	h.broadcast <- msgCopy
}

// PublishCycle implements runner.CycleSink: broadcasts a detected cycle to
// all connected clients. Called synchronously from the engine's owner
// goroutine, so it must never block — Broadcast only enqueues onto an
// internal buffered channel, it does not wait on slow clients.
func (h *Hub) PublishCycle(report core.CycleReport) {
	h.Broadcast(NewCycleFoundMessage(report))
}

// BroadcastTickProcessed отправляет уведомление об обработанном тике.
func (h *Hub) BroadcastTickProcessed(symbol string, price float64, ticksProcessed int64) {
	h.Broadcast(NewTickProcessedMessage(symbol, price, ticksProcessed))
}

// BroadcastStatsUpdate отправляет снимок счётчиков движка.
func (h *Hub) BroadcastStatsUpdate(stats core.Stats) {
	h.Broadcast(NewStatsUpdateMessage(stats))
}

// ClientCount возвращает количество подключенных клиентов.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register регистрирует нового клиента в Hub (вызывается из client.go
// после успешного апгрейда HTTP-соединения до WebSocket).
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister отменяет регистрацию клиента.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}
