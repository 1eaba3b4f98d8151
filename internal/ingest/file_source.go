package ingest

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"arbitrage/internal/metrics"
	"arbitrage/pkg/ratelimit"
	"arbitrage/pkg/utils"
)

// FileSource replay-ит тики построчно из файла в формате JSON-lines. Предназначен
// для тестовых прогонов и бэктеста: в отличие от WSSource он не переподключается
// и завершается сам, как только файл прочитан до конца.
type FileSource struct {
	path    string
	limiter *ratelimit.RateLimiter
	logger  *utils.Logger
}

// NewFileSource создаёт источник, читающий тики из path. ratePerSecond
// ограничивает скорость воспроизведения (0 = без ограничения, читать так
// быстро, как разбирается файл).
func NewFileSource(path string, ratePerSecond int, logger *utils.Logger) *FileSource {
	var limiter *ratelimit.RateLimiter
	if ratePerSecond > 0 {
		limiter = ratelimit.NewRateLimiter(float64(ratePerSecond), float64(ratePerSecond)*2)
	}
	return &FileSource{path: path, limiter: limiter, logger: logger}
}

// Run читает файл построчно до EOF или отмены ctx, вызывая handler для
// каждой успешно разобранной строки. Пустые строки и строки, начинающиеся
// с "#", пропускаются без логирования (комментарии/пустые разделители).
func (s *FileSource) Run(ctx context.Context, handler Handler) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("ingest: open %s: %w", s.path, err)
	}
	defer f.Close()

	metrics.RecordSourceStatus("file", true)
	defer metrics.RecordSourceStatus("file", false)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		tick, err := DecodeTick([]byte(line))
		if err != nil {
			logSkippedTick(s.logger, "ingest.file", []byte(line), err)
			continue
		}

		if err := handler(tick); err != nil {
			logSkippedTick(s.logger, "ingest.file", []byte(line), err)
		}
	}

	return scanner.Err()
}
