// Package ingest адаптирует внешние источники котировок (файловый replay,
// WebSocket-поток биржи) к единому представлению тика, которое затем
// отправляется в очередь между источником и движком обнаружения циклов.
package ingest

import (
	jsoniter "github.com/json-iterator/go"

	"arbitrage/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Tick - одно ценовое обновление в формате, понятном движку:
// символ вида "BASE-QUOTE" и положительная конечная цена.
type Tick struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// Handler обрабатывает один принятый тик. Возвращаемая ошибка логируется
// вызывающей стороной, но не останавливает источник: один некорректный тик
// не должен прерывать поток остальных.
type Handler func(Tick) error

// DecodeTick разбирает одну строку JSON в Tick. Источники, получающие
// сырые байты (WebSocket-сообщения, строки файла), используют эту функцию
// как общую точку разбора, чтобы формат ошибок был одинаковым независимо
// от транспорта. Экспортирована, чтобы принимающая сторона очереди
// (internal/runner) могла разобрать сообщение тем же кодом.
func DecodeTick(raw []byte) (Tick, error) {
	var t Tick
	if err := json.Unmarshal(raw, &t); err != nil {
		return Tick{}, err
	}
	return t, nil
}

// EncodeTick сериализует Tick для передачи через pkg/queue.TickQueue,
// которая переносит сообщения как строки.
func EncodeTick(t Tick) (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// logSkippedTick - общий helper для источников: логирует и пропускает тик,
// не годный к дальнейшей обработке (битый JSON, ошибка Handler).
func logSkippedTick(logger *utils.Logger, source string, raw []byte, err error) {
	if logger == nil {
		return
	}
	logger.Warn("skipping tick",
		utils.Component(source),
		utils.Err(err),
		utils.String("raw", string(raw)),
	)
}
