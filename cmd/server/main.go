package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ignite/blast-sender/internal/api"
	"github.com/ignite/blast-sender/internal/config"
	"github.com/ignite/blast-sender/internal/pkg/logger"
	"github.com/ignite/blast-sender/internal/ratelimit"
	"github.com/ignite/blast-sender/internal/service/sending"
	"github.com/ignite/blast-sender/internal/storage"
	"github.com/ignite/blast-sender/internal/transport"
	"golang.org/x/sync/errgroup"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := net.JoinHostPort(host, fmt.Sprint(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %w\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func fatal(msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		fatal("Failed to load config", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactPII(*cfg.Log.RedactPII)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gateway, err := transport.New(ctx, cfg)
	if err != nil {
		fatal("Failed to configure mail transport", err)
	}
	defer gateway.Close()
	logger.Info("Mail transport ready", "transport", gateway.Name())

	limiter, err := ratelimit.New(ctx, cfg.RateLimit.RedisURL, cfg.RateLimit.RequestsPerMinute)
	if err != nil {
		logger.Warn("Redis rate limiter unavailable, using in-process limiter", "error", err)
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.RequestsPerMinute)
	}
	defer limiter.Close()

	var archiver storage.Archiver = storage.NopArchiver{}
	if cfg.Uploads.S3Bucket != "" {
		region := cfg.Uploads.S3Region
		if region == "" {
			region = cfg.SES.Region
		}
		s3Archiver, err := storage.NewS3Archiver(ctx, cfg.Uploads.S3Bucket, cfg.Uploads.S3Prefix, region)
		if err != nil {
			logger.Warn("Upload archiving disabled", "bucket", cfg.Uploads.S3Bucket, "error", err)
		} else {
			archiver = s3Archiver
			logger.Info("Upload archiving enabled", "bucket", cfg.Uploads.S3Bucket, "prefix", cfg.Uploads.S3Prefix)
		}
	}

	dispatcher := sending.NewDispatcher(gateway,
		sending.WithDelay(cfg.Sending.Delay()),
		sending.WithTestModeLimit(cfg.Sending.TestModeLimit),
	)
	pipeline := sending.NewPipeline(dispatcher, cfg.Sending.MaxPerBatch)

	handlers := api.NewHandlers(pipeline, archiver, gateway.Name(), cfg)
	server := api.NewServer(cfg.Server, handlers, limiter)

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		fatal("Pre-flight check failed", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		addr := cfg.Server.Addr()
		logger.Info("Starting server",
			"addr", addr,
			"max_per_batch", pipeline.MaxPerBatch(),
			"delay", dispatcher.Delay().String(),
		)
		if err := server.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		// In-flight batches are allowed to finish within the timeout.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
	}
	logger.Info("Server stopped")
}
