// Package queue реализует ограниченную MPMC-очередь тиков между
// источниками котировок и движком обнаружения циклов. Несколько
// источников могут писать в неё конкурентно; один владелец-движок читает.
package queue

import (
	"arbitrage/internal/metrics"
)

// Stop - значение-сентинел: получатель, увидевший его, должен прекратить
// чтение и закрыть очередь со своей стороны. Используется вместо закрытия
// канала, чтобы несколько производителей могли безопасно продолжать
// писать, не вызывая панику на закрытом канале.
const Stop = "STOP"

// TickQueue - ограниченная очередь строковых сообщений (закодированных
// тиков или сентинела Stop) с метриками переполнения и глубины.
type TickQueue struct {
	ch   chan string
	name string
}

// New создаёт очередь указанной ёмкости. name возвращается методом Name;
// метрики переполнения и глубины общие и метки с именем очереди не имеют.
func New(name string, capacity int) *TickQueue {
	return &TickQueue{
		ch:   make(chan string, capacity),
		name: name,
	}
}

// TryPush помещает сообщение в очередь, не блокируясь. Возвращает false
// и записывает метрику переполнения, если очередь заполнена.
func (q *TickQueue) TryPush(msg string) bool {
	select {
	case q.ch <- msg:
		metrics.RecordQueueDepth(len(q.ch))
		return true
	default:
		metrics.RecordQueueOverflow()
		return false
	}
}

// Push помещает сообщение в очередь, блокируясь до появления места (без
// возможности отмены). Используется источниками, которым важнее не терять тики,
// чем не блокироваться (в отличие от TryPush).
func (q *TickQueue) Push(msg string) {
	q.ch <- msg
	metrics.RecordQueueDepth(len(q.ch))
}

// Pop блокируется до появления сообщения в очереди.
func (q *TickQueue) Pop() string {
	msg := <-q.ch
	metrics.RecordQueueDepth(len(q.ch))
	return msg
}

// Chan возвращает исходный канал для использования в select с другими
// источниками событий (таймеры, контекст отмены).
func (q *TickQueue) Chan() <-chan string {
	return q.ch
}

// Len возвращает текущее число сообщений, ожидающих в очереди.
func (q *TickQueue) Len() int {
	return len(q.ch)
}

// Cap возвращает ёмкость очереди.
func (q *TickQueue) Cap() int {
	return cap(q.ch)
}

// Name возвращает имя очереди, заданное при создании.
func (q *TickQueue) Name() string {
	return q.name
}
