package main

import (
	"chatrooms/auth"
	"chatrooms/contract"
	"chatrooms/infrastructure/cache"
	"chatrooms/infrastructure/grpc/server"
	"chatrooms/infrastructure/httpapi"
	"chatrooms/infrastructure/storage"
	"chatrooms/internal"
	"chatrooms/runtime"
	"chatrooms/runtime/presence"
	"chatrooms/services"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Deferred cleanups (badger, bluge, redis) run before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	// A missing .env is fine, the environment may already be set.
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		url := fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint)
		logger.Info("Debug Badger inspector available", "url", url)
		database.StartDebugServer(db, config.DebugPort, endpoint, RecordMapper)
	}

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	roomRepository := storage.NewRoomRepository(db, logger)
	profileRepository := storage.NewProfileRepository(db, logger)
	messageRepository := storage.NewMessageRepository(db, logger, config.LimitMessages)
	searchIndex := storage.NewSearchIndex(blugeWriter, logger)

	// 3. Runtime: telemetry, hub, presence tracker
	orchestrator := runtime.NewOrchestrator(logger, runtime.OrchestratorConfig{
		RestartInterval:      config.RestartInterval,
		MetricInterval:       config.MetricInterval,
		TelemetryBufferSize:  config.TelemetryBufferSize,
		LatencyThreshold:     config.LatencyThreshold,
		LowCapacityThreshold: config.LowCapacityThreshold,
	})
	hub := runtime.NewHub(logger, orchestrator.Emitter(), config.SubscriberBufferSize, config.FanoutChunkSize)
	tracker := presence.NewTracker(logger, config.LivenessWindow, orchestrator.Emitter())
	memberLocks := runtime.NewMemberLocks(config.LockStripes)
	runtime.LinkPresence(hub, tracker, memberLocks)

	// Nobody is online before the first subscription of this process.
	if _, err = profileRepository.ResetPresence(ctx); err != nil {
		return exitRuntime, fmt.Errorf("presence reset failed: %w", err)
	}
	presenceStores := []contract.PresenceStore{profileRepository}
	if config.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(config.RedisAddr, config.RedisPassword, config.RedisDB)
		if err != nil {
			return exitRuntime, err
		}
		defer func() { _ = rdb.Close() }()
		logger.Info("Redis presence mirror enabled", "addr", config.RedisAddr)
		mirror := cache.NewRedisPresence(logger, rdb)
		if _, err = mirror.Reset(ctx); err != nil {
			return exitRuntime, fmt.Errorf("presence mirror reset failed: %w", err)
		}
		presenceStores = append(presenceStores, mirror)
	}
	orchestrator.Attach(hub, tracker, presenceStores...)

	moderator, err := runtime.PrepareModeration(logger, charReplacement)
	if err != nil {
		return exitRuntime, fmt.Errorf("moderation init failed: %w", err)
	}

	// 4. Services
	chatService := services.NewChatService(logger,
		services.NewRoomService(logger, roomRepository),
		services.NewMessageLog(logger, roomRepository, profileRepository, messageRepository,
			runtime.NewRoomLocks(config.LockStripes), hub,
			services.WithModerator(moderator),
			services.WithSearchIndex(searchIndex),
			services.WithEmitter(orchestrator.Emitter()),
			services.WithPageSize(config.DefaultPageSize, config.LimitMessages),
		),
		services.NewProfileService(logger, profileRepository, tracker),
		tracker,
		hub,
		memberLocks,
	)
	resolver := auth.NewJWTResolver(config.JwtSecret, config.AuthTokenDuration)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errChan := make(chan error, 3)

	go func() {
		logger.Info("Starting orchestrator...")
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator error: %w", err)
		}
	}()

	// 6. gRPC Server
	listener, err := net.Listen("tcp", config.GrpcAddress())
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.GrpcAddress(), err)
	}
	s := server.NewGRPCServer(logger, auth.NewInterceptors(resolver), server.NewChatServer(logger, chatService))
	go func() {
		logger.Info("Starting gRPC server", "address", config.GrpcAddress(), "at", time.Now().UTC())
		for serviceName := range s.GetServiceInfo() {
			logger.Debug("gRPC exposed services", "name", serviceName)
		}
		if err := s.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 7. HTTP gateway
	handler := httpapi.NewHandler(logger, chatService, func(*http.Request) bool { return true })
	httpServer := &http.Server{
		Addr:              config.HttpAddress(),
		Handler:           httpapi.NewRouter(logger, handler, resolver),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP gateway", "address", config.HttpAddress())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 9. Graceful shutdown
	// Closing the hub ends every live stream first, otherwise GracefulStop
	// would wait for subscribers to hang up.
	logger.Info("Shutting down gracefully...")
	orchestrator.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP gateway did not stop cleanly", "error", err)
	}
	s.GracefulStop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG).WithBypassLockGuard(true)
	}
	return options.WithLoggingLevel(badger.INFO)
}

// RecordMapper renders chat records in the debug inspector.
func RecordMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	record := storage.Describe(key, val)
	row.Type = record.Kind
	row.Detail = record.Detail
	return row
}
