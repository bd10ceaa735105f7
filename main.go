package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/johnwmail/cryptnote/config"
	"github.com/johnwmail/cryptnote/handlers"
	"github.com/johnwmail/cryptnote/handlers/retrieval"
	"github.com/johnwmail/cryptnote/handlers/upload"
	"github.com/johnwmail/cryptnote/internal/metrics"
	"github.com/johnwmail/cryptnote/internal/middleware"
	"github.com/johnwmail/cryptnote/internal/services"
	"github.com/johnwmail/cryptnote/storage"

	// Lambda imports (only used when in Lambda mode)
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
)

// Version/build info (set via -ldflags at build time)
var (
	Version    = "dev"
	BuildTime  = "unknown"
	CommitHash = "none"
)

// Lambda-specific variables
var (
	ginLambdaV1   *ginadapter.GinLambda
	ginLambdaV2   *ginadapter.GinLambdaV2
	ginLambdaOnce sync.Once
)

// isLambdaEnvironment detects if running in AWS Lambda
func isLambdaEnvironment() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}
	cfg.Version = Version
	cfg.BuildTime = BuildTime
	cfg.CommitHash = CommitHash

	setupLogging(cfg.LogLevel)

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", CommitHash).
		Msg("cryptnote starting")

	// Lambda has no writable disk worth keeping; notes go to S3
	if isLambdaEnvironment() {
		cfg.StorageType = config.StorageS3
		if err := cfg.Validate(); err != nil {
			log.Fatal().Err(err).Msg("invalid configuration for Lambda mode")
		}
	}

	if os.Getenv("GIN_MODE") == "release" || isLambdaEnvironment() {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := storage.NewStore(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Str("storage", cfg.StorageType).Msg("failed to initialize storage")
	}

	var m *metrics.Metrics
	if cfg.EnableMetrics {
		m = metrics.New()
	}

	router := setupRouter(store, cfg, m)

	if isLambdaEnvironment() {
		log.Info().Msg("Starting in AWS Lambda mode")
		ginLambdaOnce.Do(func() {
			ginLambdaV1 = ginadapter.New(router)
			ginLambdaV2 = ginadapter.NewV2(router)
		})
		lambda.Start(lambdaHandler)
		return
	}

	log.Info().Msg("Starting in HTTP server mode")
	runHTTPServer(router, cfg, store)
}

// setupLogging configures the global zerolog logger. Debug runs get a
// human-readable console writer, everything else JSON on stdout.
func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if lvl <= zerolog.DebugLevel {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05 MST"}).
			With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "cryptnote").Logger()
}

// lambdaHandler handles Lambda requests for both v1 and v2 formats
func lambdaHandler(ctx context.Context, event interface{}) (interface{}, error) {
	if ginLambdaV1 == nil || ginLambdaV2 == nil {
		log.Fatal().Msg("Lambda adapters are not initialized")
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal Lambda event")
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       `{"ok":false,"error":"Failed to process event"}`,
			Headers:    map[string]string{"Content-Type": "application/json"},
		}, err
	}

	// Lambda Function URLs and HTTP API
	var reqV2 events.APIGatewayV2HTTPRequest
	if err := json.Unmarshal(eventBytes, &reqV2); err == nil && reqV2.RequestContext.HTTP.Method != "" {
		log.Debug().Str("method", reqV2.RequestContext.HTTP.Method).Str("path", reqV2.RawPath).Msg("API Gateway v2 event")
		return ginLambdaV2.ProxyWithContext(ctx, reqV2)
	}

	// REST API and ALB
	var reqV1 events.APIGatewayProxyRequest
	if err := json.Unmarshal(eventBytes, &reqV1); err == nil && reqV1.HTTPMethod != "" {
		log.Debug().Str("method", reqV1.HTTPMethod).Str("path", reqV1.Path).Msg("API Gateway v1 event")
		return ginLambdaV1.ProxyWithContext(ctx, reqV1)
	}

	// Console test events carry key1/key2/key3
	var testEvent map[string]interface{}
	if err := json.Unmarshal(eventBytes, &testEvent); err == nil {
		if _, hasKey1 := testEvent["key1"]; hasKey1 {
			return events.APIGatewayV2HTTPResponse{
				StatusCode: http.StatusOK,
				Body:       `{"message":"cryptnote Lambda function is working! Use a real HTTP request or API Gateway integration."}`,
				Headers:    map[string]string{"Content-Type": "application/json"},
			}, nil
		}
	}

	log.Error().Str("event_type", fmt.Sprintf("%T", event)).Msg("unsupported Lambda event")
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"ok":false,"error":"Unsupported event type"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}, fmt.Errorf("unsupported event type: %T", event)
}

// setupRouter creates and configures the Gin router. m may be nil when
// metrics are disabled.
func setupRouter(store storage.BlobStore, cfg *config.Config, m *metrics.Metrics) *gin.Engine {
	noteService := services.NewNoteService(store, cfg,
		services.WithLogger(log.Logger),
		services.WithMetrics(m),
	)

	uploadHandler := upload.NewHandler(noteService, cfg)
	retrievalHandler := retrieval.NewHandler(noteService)
	systemHandler := handlers.NewSystemHandler(cfg.Version)

	router := gin.New()

	// canonicalErrors wraps jsonRecovery so a recovered panic still leaves
	// through the canonical JSON writer.
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging(log.Logger))
	if m != nil {
		router.Use(m.Middleware())
	}
	router.Use(handlers.NoStore())
	router.Use(canonicalErrors())
	router.Use(jsonRecovery())

	api := router.Group("/api/v1")
	api.POST("/notes", uploadHandler.Create)
	api.GET("/notes/:id", retrievalHandler.Get)

	// Endpoints of the original PHP deployment, kept for existing clients
	router.POST("/save.php", uploadHandler.Save)
	router.GET("/get.php", retrievalHandler.GetCompat)

	router.GET("/health", systemHandler.Health)
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Not found"})
	})

	return router
}

// jsonRecovery returns a middleware that recovers from panics and ensures
// the response is JSON formatted.
func jsonRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("request_id", middleware.GetRequestID(c)).
					Interface("panic", r).
					Msg("recovered from panic")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Internal server error"})
			}
		}()
		c.Next()
	}
}

// canonicalErrors ensures every response with status >= 400 carries a
// {"ok":false,"error":...} JSON body, whatever the handler wrote.
func canonicalErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origWriter := c.Writer
		bcw := &bodyCaptureWriter{ResponseWriter: origWriter}
		c.Writer = bcw
		defer func() { c.Writer = origWriter }()

		c.Next()

		status := bcw.Status()
		buf := bcw.body.Bytes()

		if status < 400 {
			if len(buf) > 0 {
				origWriter.WriteHeader(status)
				if _, err := origWriter.Write(buf); err != nil {
					log.Error().Err(err).Msg("canonicalErrors: failed to write response body")
				}
			}
			return
		}

		msg := errorMessage(buf, bcw.Header().Get("Content-Type"))
		if msg == "" {
			if len(c.Errors) > 0 {
				msg = c.Errors.Last().Error()
			} else {
				msg = http.StatusText(status)
			}
		}

		origWriter.Header().Set("Content-Type", "application/json; charset=utf-8")
		origWriter.WriteHeader(status)
		out, _ := json.Marshal(gin.H{"ok": false, "error": msg})
		if _, err := origWriter.Write(out); err != nil {
			log.Error().Err(err).Msg("canonicalErrors: failed to write error response")
		}
	}
}

// errorMessage extracts the message a handler already chose, from a JSON
// body's error/message field or a plain-text body.
func errorMessage(buf []byte, contentType string) string {
	if len(buf) == 0 {
		return ""
	}
	if strings.Contains(contentType, "application/json") {
		var parsed map[string]interface{}
		if err := json.Unmarshal(buf, &parsed); err == nil {
			if e, ok := parsed["error"].(string); ok {
				return e
			}
			if m, ok := parsed["message"].(string); ok {
				return m
			}
			return ""
		}
	}
	return string(bytes.TrimSpace(buf))
}

// bodyCaptureWriter buffers response body writes so middleware can inspect
// and optionally rewrite the output before sending to the client.
type bodyCaptureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

// runHTTPServer serves until SIGINT/SIGTERM, then drains in-flight requests
func runHTTPServer(router *gin.Engine, cfg *config.Config, store storage.BlobStore) {
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("error closing storage")
		}
	}()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("storage", cfg.StorageType).Msg("Starting cryptnote server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("server failed")
		return
	case <-ctx.Done():
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	} else {
		log.Info().Msg("Server shutdown complete")
	}
}
