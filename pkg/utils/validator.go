package utils

// validator.go - валидация символов и секретов источников котировок на
// границе приёма данных. Валидаторы торговых параметров (спред, объём,
// плечо, конфигурация пары), почты и per-exchange allowlisting сюда не
// перенесены: движок обнаружения циклов не принимает решений об
// исполнении ордеров и не содержит адаптеров конкретных бирж.

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrInvalidSymbol    = errors.New("invalid symbol format")
	ErrInvalidAPISecret = errors.New("invalid API secret format")
)

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9\-_/]{2,20}$`)

// ValidateSymbol проверяет формат торгового символа, читаемого из списка
// символов движка: 2-20 символов из букв, цифр и разделителей "-", "_", "/".
func ValidateSymbol(symbol string) error {
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return nil
}

// ValidateAPISecret проверяет длину секрета, расшифрованного из
// INGEST_WS_API_SECRET_ENCRYPTED; набор символов не ограничивается -
// секреты источников котировок часто содержат спецсимволы.
func ValidateAPISecret(secret string) error {
	if len(secret) < 16 {
		return fmt.Errorf("%w: length %d", ErrInvalidAPISecret, len(secret))
	}
	return nil
}
