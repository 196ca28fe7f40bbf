package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	utils "blobdrop/internal"
	"blobdrop/internal/config"
	"blobdrop/internal/logging"
	"blobdrop/internal/middleware"
	"blobdrop/internal/s3"
	"blobdrop/internal/storage"
	"blobdrop/internal/upload"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	uploadConfig, err := config.LoadUploadConfig()
	if err != nil {
		log.Fatalf("🚨 Failed to load upload config: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.IsProduction())

	gateway, err := newGateway(ctx, cfg)
	if err != nil {
		log.Fatalf("🚨 Failed to initialize storage: %v", err)
	}
	if gateway == nil {
		logger.Warn(ctx, "storage credentials not set, uploads will be refused")
	} else if err := gateway.Ping(ctx); err != nil {
		logger.Warn(ctx, "storage not reachable, small files will be inlined", "bucket", cfg.S3Bucket, "error", err)
	}

	policy := upload.Policy{
		MaxSizeBytes:         uploadConfig.Upload.MaxSizeBytes,
		InlineThresholdBytes: uploadConfig.Upload.InlineThresholdBytes,
		KeyPrefix:            uploadConfig.Upload.KeyPrefix,
	}
	uploadService := upload.NewService(gateway, policy, logger.With("component", "upload"))
	uploadHandler := upload.NewHandler(uploadService, cfg.AppEnv, logger.With("component", "http"))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	// APIs
	r.Handle("/api/upload", uploadHandler)
	r.Get("/health", uploadHandler.HandleHealth)

	server := newServer(cfg.Port, r)

	go func() {
		log.Printf("Starting server on port %s 🚀", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start 🚨: %v", err)
		}
	}()

	signal.Notify(utils.QuitChan, syscall.SIGINT, syscall.SIGTERM)
	<-utils.QuitChan

	log.Println("Shutting down server... 🛑")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown 🚨: %v", err)
	}

	log.Println("Server exited")
}

// newServer bounds only the header read. Bodies of up to the upload ceiling may
// arrive over slow links, so reads and writes carry no deadline.
func newServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           handler,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// newGateway returns a nil Gateway when credentials are missing.
func newGateway(ctx context.Context, cfg *config.Config) (storage.Gateway, error) {
	if !cfg.BlobConfigured() {
		return nil, nil
	}

	switch cfg.StorageDriver {
	case config.DriverMinio:
		if cfg.S3Endpoint == "" {
			return nil, errors.New("S3_ENDPOINT is required for the minio driver")
		}
		gw, err := storage.NewMinioGateway(ctx, cfg.S3Endpoint, cfg.AWSAccessKey, cfg.AWSSecretKey,
			cfg.S3Bucket, cfg.StoragePublicBase, cfg.StorageUseSSL)
		if err != nil {
			return nil, err
		}
		return gw, nil
	case config.DriverS3:
		client, err := s3.NewClient(ctx, s3.Options{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.AWSAccessKey,
			SecretKey:  cfg.AWSSecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.StoragePublicBase,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}
