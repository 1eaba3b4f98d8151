package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"arbitrage/pkg/crypto"
	"arbitrage/pkg/utils"
)

// Config содержит всю конфигурацию процесса.
type Config struct {
	Server   ServerConfig
	Engine   EngineConfig
	Ingest   IngestConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера (REST + WebSocket-трансляция).
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// EngineConfig - настройки движка обнаружения циклов.
type EngineConfig struct {
	// SymbolsFile указывает на список торговых символов вида "BASE-QUOTE",
	// по одному на строку, из которого строится фиксированная вселенная
	// вершин движка при старте.
	SymbolsFile string
}

// IngestConfig - настройки источников котировок.
type IngestConfig struct {
	// Sources перечисляет включённые источники: "file", "ws".
	Sources []string

	// FilePath - путь к файлу с тиками (построчный JSON), используется
	// источником file.
	FilePath string

	// WSURL - адрес WebSocket-эндпоинта с тиками, используется источником ws.
	WSURL string

	// WSAPISecret - расшифрованный секрет аутентификации источника ws
	// (пусто, если INGEST_WS_API_SECRET_ENCRYPTED не задан). Хранится в
	// окружении в зашифрованном виде (crypto.Encrypt с ENCRYPTION_KEY),
	// расшифровывается один раз при Load.
	WSAPISecret string

	WSReconnectDelay    time.Duration
	WSMaxReconnectDelay time.Duration
	WSPingInterval      time.Duration
	WSReadTimeout       time.Duration

	// QueueCapacity - ёмкость очереди тиков между источниками и движком.
	QueueCapacity int

	// RateLimitPerSecond ограничивает скорость приёма тиков от одного
	// источника (0 = без ограничения).
	RateLimitPerSecond int

	// MaxRetries ограничивает число попыток переподключения источника ws
	// (0 = без ограничения), передаётся в WSSourceConfig.MaxRetries.
	MaxRetries int
}

// SecurityConfig - настройки безопасности.
type SecurityConfig struct {
	JWTSecret     string
	EncryptionKey string
}

// LoggingConfig - настройки логирования.
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Engine: EngineConfig{
			SymbolsFile: getEnv("SYMBOLS_FILE", "symbols.txt"),
		},
		Ingest: IngestConfig{
			Sources:  getEnvAsList("INGEST_SOURCES", []string{"file"}),
			FilePath: getEnv("INGEST_FILE_PATH", "ticks.jsonl"),
			WSURL:    getEnv("INGEST_WS_URL", ""),

			WSReconnectDelay:    getEnvAsDuration("WS_RECONNECT_DELAY", 2*time.Second),
			WSMaxReconnectDelay: getEnvAsDuration("WS_MAX_RECONNECT_DELAY", 16*time.Second),
			WSPingInterval:      getEnvAsDuration("WS_PING_INTERVAL", 15*time.Second),
			WSReadTimeout:       getEnvAsDuration("WS_READ_TIMEOUT", 30*time.Second),

			QueueCapacity:      getEnvAsInt("QUEUE_CAPACITY", 4096),
			RateLimitPerSecond: getEnvAsInt("INGEST_RATE_LIMIT", 0),

			MaxRetries: getEnvAsInt("MAX_RETRIES", 4),
		},
		Security: SecurityConfig{
			JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Валидация критичных параметров.
	if cfg.Security.EncryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required for encrypting ingestion credentials")
	}
	if len(cfg.Security.EncryptionKey) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	if encrypted := getEnv("INGEST_WS_API_SECRET_ENCRYPTED", ""); encrypted != "" {
		secret, err := crypto.DecryptWithKeyString(encrypted, cfg.Security.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt INGEST_WS_API_SECRET_ENCRYPTED: %w", err)
		}
		if err := utils.ValidateAPISecret(secret); err != nil {
			return nil, fmt.Errorf("invalid INGEST_WS_API_SECRET_ENCRYPTED: %w", err)
		}
		cfg.Ingest.WSAPISecret = secret
	}

	return cfg, nil
}

// Вспомогательные функции для чтения переменных окружения.

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	start := 0
	for i := 0; i <= len(valueStr); i++ {
		if i == len(valueStr) || valueStr[i] == ',' {
			if item := strings.TrimSpace(valueStr[start:i]); item != "" {
				out = append(out, item)
			}
			start = i + 1
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
