package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vertextoedge/mediafs-sidecar/internal/domain"
	"github.com/vertextoedge/mediafs-sidecar/internal/port"
)

// Config contains HTTP server configuration
type Config struct {
	BindAddr         string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	CORSAllowOrigins []string

	// JournalLimit is the default page size of GET /journal
	JournalLimit int
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		BindAddr:         "0.0.0.0:3000",
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     5 * time.Minute,
		IdleTimeout:      60 * time.Second,
		CORSAllowOrigins: []string{"*"},
		JournalLimit:     100,
	}
}

// Operations is the file operation surface served over HTTP
type Operations interface {
	DeleteFile(ctx context.Context, directory, fileName string) (*domain.OpResult, error)
	CreateDirectory(ctx context.Context, directory string) (*domain.OpResult, error)
	DeleteDirectory(ctx context.Context, directory string) (*domain.OpResult, error)
	DeleteDirectoryAndPrune(ctx context.Context, directory string) (*domain.OpResult, error)
	WriteArtifact(ctx context.Context, directory, fileName, content string) (*domain.OpResult, error)
	FetchToFile(ctx context.Context, req domain.DownloadRequest) (*domain.OpResult, error)
	RecentOperations(ctx context.Context, limit int) ([]*domain.JournalEntry, error)
	Stats() (*port.DiskUsage, error)
	Root() string
	Health(ctx context.Context) error
}

// Metrics records request measurements and exposes the registry
type Metrics interface {
	RecordRequest(method, path, status string, d time.Duration)
	Handler() http.Handler
}

// Server represents the HTTP API server
type Server struct {
	config      *Config
	ops         Operations
	logger      *zap.Logger
	router      *gin.Engine
	server      *http.Server
	fileHandler *FileHandler
}

// New creates a new HTTP server. metrics may be nil.
func New(cfg *Config, ops Operations, metrics Metrics, logger *zap.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.JournalLimit <= 0 {
		cfg.JournalLimit = 100
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(LoggingMiddleware(logger))
	if metrics != nil {
		router.Use(MetricsMiddleware(metrics))
	}
	router.Use(CORSMiddleware(cfg.CORSAllowOrigins))

	s := &Server{
		config:      cfg,
		ops:         ops,
		logger:      logger,
		router:      router,
		fileHandler: NewFileHandler(ops, logger),
	}

	// File operations
	router.POST("/delete-file", s.fileHandler.HandleDeleteFile)
	router.POST("/create-directory", s.fileHandler.HandleCreateDirectory)
	router.POST("/delete-directory", s.fileHandler.HandleDeleteDirectory)
	router.POST("/delete-directory-empty", s.fileHandler.HandleDeleteDirectoryAndPrune)
	router.POST("/generate-nfo", s.fileHandler.HandleWriteArtifact)
	router.POST("/generate-strm", s.fileHandler.HandleWriteArtifact)
	router.POST("/download-image", s.fileHandler.HandleDownloadImage)

	// Introspection
	router.GET("/health", s.handleHealth)
	router.GET("/stats", s.handleStats)
	router.GET("/journal", s.fileHandler.HandleJournal(cfg.JournalLimit))
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	s.server = &http.Server{
		Addr:         cfg.BindAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server",
		zap.String("addr", s.server.Addr),
		zap.String("root", s.ops.Root()))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.ops.Health(c.Request.Context()); err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "journal unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"root":   s.ops.Root(),
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleStats reports disk usage of the sandbox filesystem
func (s *Server) handleStats(c *gin.Context) {
	usage, err := s.ops.Stats()
	if err != nil {
		s.logger.Error("failed to get disk usage", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get disk usage"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"root": s.ops.Root(),
		"disk": usage,
	})
}
