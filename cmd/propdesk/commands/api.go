package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/propdesk/internal/analysis"
	"github.com/wonny/propdesk/internal/api"
	"github.com/wonny/propdesk/internal/api/handlers"
	"github.com/wonny/propdesk/internal/events"
	"github.com/wonny/propdesk/pkg/logger"
	"github.com/wonny/propdesk/pkg/redis"
	"github.com/wonny/propdesk/pkg/trace"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 캘린더 파일 주기적 재적재 (CALENDAR_FILE 설정 시)
- Redis 캐시/레이트 리밋, Kafka 이벤트, 트레이싱 연결 (설정 시)

Endpoints:
  GET  /health                          - Health check
  GET  /health/ready                    - Readiness probe
  GET  /health/live                     - Liveness probe
  POST /api/v1/ylos/analyze             - 출금 분석
  POST /api/v1/ylos/daily               - 일별 분석 (필터/정렬)
  GET  /api/v1/ylos/rules/{conta_type}  - 계정 규정
  GET  /api/v1/ylos/csv-example         - CSV 형식 안내
  GET  /api/v1/ylos/calendar            - 경제 지표 캘린더

Example:
  go run ./cmd/propdesk api
  go run ./cmd/propdesk api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT 환경변수)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== propdesk API Server ===")

	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 3. Connect to Redis (cache + rate limit)
	rdb, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	if rdb.Enabled() {
		log.Info("Connected to Redis")
	}

	// 4. Tracing
	tracer, err := trace.Init(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("Tracer shutdown failed")
		}
	}()

	// 5. Verdict events
	publisher := events.New(cfg.Kafka)
	defer publisher.Close()

	// 6. Engine (calendar + market clock)
	store, engine, err := newEngine(cfg, log)
	if err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"calendar": store.Current().Source(),
		"events":   store.Current().Len(),
		"market":   cfg.Analysis.MarketTimezone,
	}).Info("Analysis engine ready")

	// 7. Service
	cache := redis.NewCache(rdb, "propdesk")
	service := analysis.NewService(engine, cache, cfg.Analysis.CacheTTL, tracer, publisher, log)

	// 8. Scheduler (calendar reload)
	sched, err := newScheduler(cfg, store, log)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	// 9. Handlers + router
	analysisHandler := handlers.NewAnalysisHandler(service, cfg.Analysis, log)
	healthHandler := handlers.NewHealthHandler(rdb, store, cfg.Kafka.Enabled, log).WithJobs(sched)
	limiter := api.NewLimiter(cfg.RateLimit, redis.NewRateLimiter(rdb, "propdesk"))
	router := api.NewRouter(analysisHandler, healthHandler, limiter, log)

	// 10. Create server
	server := api.New(cfg, log, router)

	// 11. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	PrintList([]string{
		"GET  /health",
		"POST /api/v1/ylos/analyze",
		"POST /api/v1/ylos/daily",
		"GET  /api/v1/ylos/rules/{conta_type}",
		"GET  /api/v1/ylos/csv-example",
		"GET  /api/v1/ylos/calendar",
	})
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-quit:
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
