package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"catalogcsv/internal"
	"catalogcsv/internal/pipeline"
	"catalogcsv/internal/storage"
)

const uploadField = "csv-file"

// Runner is the part of pipeline.Runner the server drives.
type Runner interface {
	Run(ctx context.Context, progress internal.ProgressFunc) (pipeline.Result, error)
}

type Options struct {
	Runner   Runner
	DB       *storage.DB
	InputDir string
	UploadMB int
	Logger   *logrus.Logger
}

// Server accepts source uploads, runs the pipeline one run at a time and streams the
// latest progress to clients.
type Server struct {
	router   *gin.Engine
	runner   Runner
	db       *storage.DB
	inputDir string
	board    *StatusBoard
	log      *logrus.Entry

	statusInterval time.Duration
	baseCtx        context.Context
	wg             sync.WaitGroup
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router:         gin.New(),
		runner:         opts.Runner,
		db:             opts.DB,
		inputDir:       opts.InputDir,
		board:          NewStatusBoard(),
		log:            logger.WithField("component", "server"),
		statusInterval: 500 * time.Millisecond,
		baseCtx:        context.Background(),
	}
	if opts.UploadMB > 0 {
		s.router.MaxMultipartMemory = int64(opts.UploadMB) << 20
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}

	s.router.Use(gin.Recovery(), s.requestLogger(), cors.New(config))

	api := s.router.Group("/api")
	api.POST("/send", s.handleSend)
	api.GET("/status", s.handleStatus)
	api.GET("/runs", s.handleRuns)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Board() *StatusBoard {
	return s.board
}

// Wait blocks until the background run, if any, has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// ListenAndServe serves until ctx is cancelled, then shuts down and waits for an
// in-flight run to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.baseCtx = ctx
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.wg.Wait()
	return err
}

// POST /api/send
func (s *Server) handleSend(c *gin.Context) {
	if !s.board.TryStart() {
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress"})
		return
	}

	saved, err := s.saveUploads(c)
	if err != nil {
		s.board.Done()
		s.log.WithError(err).Warn("upload rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.log.WithField("files", saved).Info("files received")
	c.JSON(http.StatusOK, gin.H{"status": "Processing started", "filesCount": len(saved)})

	s.wg.Add(1)
	go s.runInBackground()
}

func (s *Server) saveUploads(c *gin.Context) ([]string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	if err := os.MkdirAll(s.inputDir, 0o755); err != nil {
		return nil, err
	}

	saved := []string{}
	for _, file := range form.File[uploadField] {
		name := filepath.Base(file.Filename)
		if name == "." || name == ".." || name == string(filepath.Separator) {
			return saved, fmt.Errorf("invalid file name %q", file.Filename)
		}
		if err := c.SaveUploadedFile(file, filepath.Join(s.inputDir, name)); err != nil {
			return saved, fmt.Errorf("save %s: %w", name, err)
		}
		saved = append(saved, name)
	}
	return saved, nil
}

func (s *Server) runInBackground() {
	defer s.wg.Done()
	defer s.board.Done()

	_, err := s.runner.Run(s.baseCtx, s.board.Set)
	if err == nil {
		return
	}
	s.log.WithError(err).Error("run failed")
	if latest, ok := s.board.Latest(); !ok || latest.Type != internal.ProgressPipelineError {
		s.board.Set(internal.ProgressEvent{
			Type:      internal.ProgressPipelineError,
			Message:   err.Error(),
			Timestamp: time.Now(),
		})
	}
}

// GET /api/status streams the latest progress event every statusInterval until the
// client goes away.
func (s *Server) handleStatus(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	c.Status(http.StatusOK)
	writeEvent(c, gin.H{"type": "connected", "message": "Connected to server"})
	flusher.Flush()

	ticker := time.NewTicker(s.statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			latest, ok := s.board.Latest()
			if !ok {
				continue
			}
			writeEvent(c, latest)
			flusher.Flush()
		}
	}
}

func writeEvent(c *gin.Context, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
}

// GET /api/runs
func (s *Server) handleRuns(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusOK, gin.H{"runs": []internal.RunRow{}})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := s.db.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []internal.RunRow{}
	}
	lastCSV, err := s.db.GetMetadata(pipeline.LastCSVKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "lastCsv": lastCSV})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
			"ms":     time.Since(started).Milliseconds(),
		}).Debug("request")
	}
}
