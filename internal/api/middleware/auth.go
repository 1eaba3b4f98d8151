package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"arbitrage/pkg/crypto"
)

// debugUsername, debugPassword и debugPasswordHash защищают debug endpoints.
// Загружаются из переменных окружения DEBUG_USERNAME, DEBUG_PASSWORD и
// DEBUG_PASSWORD_HASH. DEBUG_PASSWORD_HASH (bcrypt, см. pkg/crypto.
// HashPassword) имеет приоритет над DEBUG_PASSWORD в открытом виде — если
// оба заданы, сравнение идёт по хешу. Если ничего не установлено, debug
// endpoints недоступны в production.
var (
	debugUsername     = os.Getenv("DEBUG_USERNAME")
	debugPassword     = os.Getenv("DEBUG_PASSWORD")
	debugPasswordHash = os.Getenv("DEBUG_PASSWORD_HASH")
)

// DebugAuth - middleware для защиты debug/pprof endpoints
//
// Назначение:
// Защищает debug endpoints (/debug/pprof/*, /debug/runtime) от неавторизованного доступа.
// Использует HTTP Basic Authentication для простоты.
//
// Конфигурация:
// - DEBUG_USERNAME: имя пользователя для доступа к debug endpoints
// - DEBUG_PASSWORD: пароль для доступа к debug endpoints
// - DEBUG_PASSWORD_HASH: bcrypt-хеш пароля (имеет приоритет над DEBUG_PASSWORD)
// - Без этих переменных: при ENV=development или пустом ENV доступ открыт, иначе 403
//
// Безопасность:
// - Использует constant-time сравнение для предотвращения timing attacks
// - В production ОБЯЗАТЕЛЬНО установить DEBUG_USERNAME и DEBUG_PASSWORD
// - Рекомендуется использовать сложные пароли
//
// Использование:
//
//	debug := router.PathPrefix("/debug").Subrouter()
//	debug.Use(middleware.DebugAuth)
func DebugAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Если credentials не настроены, запрещаем доступ в production
		if debugUsername == "" || (debugPassword == "" && debugPasswordHash == "") {
			// В development (если явно не настроено) разрешаем доступ
			if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Debug endpoints disabled. Set DEBUG_USERNAME and DEBUG_PASSWORD(_HASH).", http.StatusForbidden)
			return
		}

		// Получаем credentials из запроса
		user, pass, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(debugUsername)) == 1

		var passMatch bool
		if debugPasswordHash != "" {
			passMatch = crypto.CheckPasswordMatch(pass, debugPasswordHash)
		} else {
			// Constant-time сравнение для предотвращения timing attacks
			passMatch = subtle.ConstantTimeCompare([]byte(pass), []byte(debugPassword)) == 1
		}

		if !userMatch || !passMatch {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Auth - middleware для аутентификации и авторизации запросов
//
// Текущее поведение:
// Пропускает все запросы без каких-либо проверок: токены (JWT, cookie) не
// читаются и не валидируются, 401 не возвращается, context запроса не
// дополняется, rate limiting не выполняется. SetupRoutes не подключает этот
// middleware ни к одному маршруту.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
	})
}

// OptionalAuth - опциональная аутентификация
//
// Текущее поведение:
// Пропускает все запросы без изменений: предоставленный токен не читается
// и не валидируется, context запроса не дополняется. SetupRoutes не
// подключает этот middleware ни к одному маршруту.
func OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
	})
}
