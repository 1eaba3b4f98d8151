package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"arbitrage/internal/api"
	"arbitrage/internal/api/handlers"
	"arbitrage/internal/config"
	"arbitrage/internal/core"
	"arbitrage/internal/ingest"
	"arbitrage/internal/runner"
	"arbitrage/internal/websocket"
	"arbitrage/pkg/queue"
	"arbitrage/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	defer logger.Sync()

	symbols, err := loadSymbols(cfg.Engine.SymbolsFile, logger)
	if err != nil {
		logger.Fatal("failed to load symbol universe", utils.Err(err), utils.String("path", cfg.Engine.SymbolsFile))
	}

	engine := core.NewEngine(symbols)
	logger.Info("engine initialized",
		utils.Int("vertex_count", engine.Registry().Size()),
		utils.Int("symbol_count", len(symbols)),
	)

	hub := websocket.NewHub(logger)
	go hub.Run()

	engineHandler := handlers.NewEngineHandler(engine)

	tickQueue := queue.New("ticks", cfg.Ingest.QueueCapacity)

	sink := &fanoutSink{hub: hub, handler: engineHandler}
	r := runner.New(engine, tickQueue, sink, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go r.Run(ctx)

	sourceWG := startIngestSources(ctx, cfg, tickQueue, logger)

	deps := &api.Dependencies{
		EngineHandler: engineHandler,
		Hub:           hub,
	}

	router := api.SetupRoutes(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", utils.String("addr", server.Addr))
		if cfg.Server.UseHTTPS {
			if err := server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
				logger.Fatal("server failed", utils.Err(err))
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("server failed", utils.Err(err))
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	cancel() // stops ingest sources and the runner

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", utils.Err(err))
	}

	sourceWG.Wait()
	logger.Info("server exited")
}

// fanoutSink implements runner.CycleSink, forwarding every detected cycle
// both to the WebSocket hub (for live clients) and the REST handler's
// last-cycle cache (for GET /api/v1/cycles/last).
type fanoutSink struct {
	hub     *websocket.Hub
	handler *handlers.EngineHandler
}

func (s *fanoutSink) PublishCycle(report core.CycleReport) {
	s.handler.RecordCycle(report)
	s.hub.PublishCycle(report)
}

// loadSymbols reads one "BASE-QUOTE" symbol per line from path. Blank
// lines and lines starting with '#' are skipped; lines that fail
// utils.ValidateSymbol (wrong length or disallowed characters) are logged
// and skipped rather than handed to the registry.
func loadSymbols(path string, logger *utils.Logger) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var symbols []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := utils.ValidateSymbol(line); err != nil {
			logger.Warn("skipping malformed symbol line", utils.String("line", line), utils.Err(err))
			continue
		}
		symbols = append(symbols, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return symbols, nil
}

// ingestWaiter lets the two source goroutines (file, ws) signal completion
// without pulling in a full sync.WaitGroup import at the call site.
type ingestWaiter struct {
	done chan struct{}
	n    int
}

func (w *ingestWaiter) Wait() {
	for i := 0; i < w.n; i++ {
		<-w.done
	}
}

// startIngestSources launches one goroutine per configured source
// ("file", "ws"), each pushing decoded ticks onto q until ctx is
// cancelled. Unknown source names are logged and skipped.
func startIngestSources(ctx context.Context, cfg *config.Config, q *queue.TickQueue, logger *utils.Logger) *ingestWaiter {
	w := &ingestWaiter{done: make(chan struct{})}

	handler := func(t ingest.Tick) error {
		encoded, err := ingest.EncodeTick(t)
		if err != nil {
			return err
		}
		if !q.TryPush(encoded) {
			return fmt.Errorf("tick queue full, dropping %s", t.Symbol)
		}
		return nil
	}

	for _, name := range cfg.Ingest.Sources {
		w.n++
		switch name {
		case "file":
			src := ingest.NewFileSource(cfg.Ingest.FilePath, cfg.Ingest.RateLimitPerSecond, logger)
			go func() {
				defer func() { w.done <- struct{}{} }()
				if err := src.Run(ctx, handler); err != nil && ctx.Err() == nil {
					logger.Error("file source exited", utils.Err(err))
				}
			}()
		case "ws":
			wsCfg := ingest.DefaultWSSourceConfig()
			wsCfg.InitialDelay = cfg.Ingest.WSReconnectDelay
			wsCfg.MaxDelay = cfg.Ingest.WSMaxReconnectDelay
			wsCfg.PingInterval = cfg.Ingest.WSPingInterval
			wsCfg.ReadTimeout = cfg.Ingest.WSReadTimeout
			wsCfg.MaxRetries = cfg.Ingest.MaxRetries
			src := ingest.NewWSSource("ws", cfg.Ingest.WSURL, cfg.Ingest.WSAPISecret, wsCfg, logger)
			go func() {
				defer func() { w.done <- struct{}{} }()
				if err := src.Run(ctx, handler); err != nil && ctx.Err() == nil {
					logger.Error("ws source exited", utils.Err(err))
				}
			}()
		default:
			logger.Warn("unknown ingest source, skipping", utils.String("source", name))
			w.n--
		}
	}

	return w
}
