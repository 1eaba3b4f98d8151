package utils

import (
	"math"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig описывает настройки создаваемого логгера.
type LogConfig struct {
	Level       string // debug, info, warn, error, fatal (по умолчанию info)
	Format      string // json или text (по умолчанию json)
	Development bool   // режим разработки: человекочитаемые стектрейсы, больше деталей
	Output      string // путь к файлу; пусто или невалидный путь => stderr
}

// Logger оборачивает *zap.Logger, добавляя доменные поля и sugared API.
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

// InitLogger создаёт новый Logger по конфигурации. Никогда не паникует:
// если Output указывает на недоступный путь, запись идёт в stderr.
func InitLogger(cfg LogConfig) *Logger {
	level := parseLevel(cfg.Level)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Development {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
	}

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "text" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	writer := zapcore.AddSync(os.Stderr)
	if cfg.Output != "" {
		if f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
			writer = zapcore.AddSync(f)
		}
		// Невалидный путь -> остаёмся на stderr, не паникуем.
	}

	core := zapcore.NewCore(encoder, writer, level)

	var zapOpts []zap.Option
	if cfg.Development {
		zapOpts = append(zapOpts, zap.Development(), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}

	z := zap.New(core, zapOpts...)

	return &Logger{
		Logger: z,
		sugar:  z.Sugar(),
	}
}

// parseLevel преобразует строку в zapcore.Level. Неизвестные значения и
// пустая строка трактуются как info.
func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// With возвращает новый Logger с добавленными полями; исходный Logger не
// изменяется.
func (l *Logger) With(fields ...zap.Field) *Logger {
	newZap := l.Logger.With(fields...)
	return &Logger{
		Logger: newZap,
		sugar:  newZap.Sugar(),
	}
}

// WithComponent возвращает новый Logger с полем component.
func (l *Logger) WithComponent(component string) *Logger {
	return l.With(Component(component))
}

// WithExchange возвращает новый Logger с полем exchange (имя источника
// котировок, ранее — биржевого аккаунта).
func (l *Logger) WithExchange(exchange string) *Logger {
	return l.With(Exchange(exchange))
}

// WithSymbol возвращает новый Logger с полем symbol.
func (l *Logger) WithSymbol(symbol string) *Logger {
	return l.With(Symbol(symbol))
}

// WithPairID возвращает новый Logger с полем pair_id.
func (l *Logger) WithPairID(id int) *Logger {
	return l.With(PairID(id))
}

// Sugar возвращает встроенный SugaredLogger для форматированного логирования.
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// ============================================================
// Глобальный логгер
// ============================================================

var (
	globalLogger *Logger
	globalMu     sync.Mutex
)

// GetGlobalLogger лениво создаёт логгер по умолчанию при первом вызове и
// возвращает один и тот же экземпляр при повторных вызовах.
func GetGlobalLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{})
	}
	return globalLogger
}

// InitGlobalLogger создаёт логгер по конфигурации и устанавливает его как
// глобальный.
func InitGlobalLogger(cfg LogConfig) *Logger {
	logger := InitLogger(cfg)
	SetGlobalLogger(logger)
	return logger
}

// SetGlobalLogger устанавливает произвольный Logger как глобальный
// (используется в тестах для перехвата вывода).
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// L — короткий алиас для GetGlobalLogger().
func L() *Logger {
	return GetGlobalLogger()
}

// ============================================================
// Пакетные функции логирования через глобальный логгер
// ============================================================

func Debug(msg string, fields ...zap.Field) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetGlobalLogger().Error(msg, fields...) }

func Debugf(format string, args ...interface{}) { GetGlobalLogger().sugar.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { GetGlobalLogger().sugar.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { GetGlobalLogger().sugar.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { GetGlobalLogger().sugar.Errorf(format, args...) }

// fieldsToInterface разворачивает zap.Field в чередующийся список
// ключ/значение для передачи в sugared-логгер, сохраняя порядок полей
// (map-based encoder здесь не годится: порядок обхода map не определён).
func fieldsToInterface(fields []zap.Field) []interface{} {
	out := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, f.Key, fieldValue(f))
	}
	return out
}

// fieldValue извлекает значение одного zap.Field без промежуточного
// кодировщика, чтобы не терять порядок полей при разворачивании.
func fieldValue(f zap.Field) interface{} {
	switch f.Type {
	case zapcore.StringType:
		return f.String
	case zapcore.BoolType:
		return f.Integer == 1
	case zapcore.Float64Type, zapcore.Float32Type:
		return math.Float64frombits(uint64(f.Integer))
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return f.Integer
	case zapcore.ErrorType:
		if err, ok := f.Interface.(error); ok {
			return err.Error()
		}
		return f.Interface
	default:
		return f.Interface
	}
}

// ============================================================
// Доменные конструкторы полей
// ============================================================

func Exchange(v string) zap.Field  { return zap.String("exchange", v) }
func Symbol(v string) zap.Field    { return zap.String("symbol", v) }
func PairID(v int) zap.Field       { return zap.Int("pair_id", v) }
func Price(v float64) zap.Field    { return zap.Float64("price", v) }
func Latency(v float64) zap.Field  { return zap.Float64("latency_ms", v) }
func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func UserID(v int) zap.Field       { return zap.Int("user_id", v) }
func Component(v string) zap.Field { return zap.String("component", v) }

// VertexID, CycleLength, QueueDepth, TickCount — доменные поля,
// специфичные для движка обнаружения отрицательных циклов.
func VertexID(v int) zap.Field    { return zap.Int("vertex_id", v) }
func CycleLength(v int) zap.Field { return zap.Int("cycle_length", v) }
func QueueDepth(v int) zap.Field  { return zap.Int("queue_depth", v) }
func TickCount(v int64) zap.Field { return zap.Int64("tick_count", v) }

// ============================================================
// Переэкспортированные обёртки над zap для единообразного импорта
// ============================================================

func String(k, v string) zap.Field          { return zap.String(k, v) }
func Int(k string, v int) zap.Field         { return zap.Int(k, v) }
func Int64(k string, v int64) zap.Field     { return zap.Int64(k, v) }
func Float64(k string, v float64) zap.Field { return zap.Float64(k, v) }
func Bool(k string, v bool) zap.Field       { return zap.Bool(k, v) }
func Err(err error) zap.Field               { return zap.Error(err) }
func Any(k string, v interface{}) zap.Field { return zap.Any(k, v) }
