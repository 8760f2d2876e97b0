package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"mediatasks/internal/api"
	"mediatasks/internal/config"
	fileutil "mediatasks/internal/file"
	"mediatasks/internal/jobs"
	"mediatasks/internal/media"
	"mediatasks/internal/task"
	"mediatasks/internal/upload"
)

func main() {

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load("config.yml")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := cfg.Level(); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	for _, dir := range []string{cfg.AudioDir(), cfg.VideoDir(), cfg.SubtitlesDir()} {
		if err := fileutil.EnsureDir(dir); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("ensure output dir")
		}
	}
	if cfg.ExternalAPIURL == "" {
		log.Warn().Msg("EXTERNAL_API_URL is not set: audio auto-upload and /send-external will fail")
	}

	uploader := upload.NewClient(cfg.ExternalAPIURL, cfg.UploadTimeout)
	runner := buildRunner(cfg, uploader)
	taskManager := task.NewManagerWithOptions(task.Options{MaxConcurrentTasks: cfg.MaxConcurrentTasks})

	baseCtx, baseCancel := context.WithCancel(context.Background())
	taskManager.SetBaseContext(baseCtx)

	router := setupRouter()
	wireAPI(router, cfg, taskManager, runner, uploader)

	const (
		readHeaderTimeout = 5 * time.Second
		shutdownTimeout   = 30 * time.Second
	)

	srv := newHTTPServer(cfg.Port, router, readHeaderTimeout)

	go func() {
		log.Info().Int("port", cfg.Port).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdownSignal()

	gracefulShutdown(srv, baseCancel, taskManager, shutdownTimeout)
}

func setupRouter() *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(api.RequestID())
	r.Use(api.ZerologLogger())
	return r
}

func buildRunner(cfg config.Config, uploader *upload.Client) *jobs.Runner {
	extractor := media.NewYTDLP(media.YTDLPOptions{
		CookiesFile:    cfg.CookiesFile,
		FFmpegLocation: cfg.FFmpegLocation,
	})
	return jobs.NewRunner(extractor, uploader, jobs.Dirs{
		Audio:     cfg.AudioDir(),
		Video:     cfg.VideoDir(),
		Subtitles: cfg.SubtitlesDir(),
	})
}

func wireAPI(router *gin.Engine, cfg config.Config, tm *task.Manager, runner *jobs.Runner, uploader *upload.Client) {
	apiHandler := api.NewAPI(api.Options{
		Tasks:               tm,
		Runner:              runner,
		Uploader:            uploader,
		StaticDir:           cfg.StaticDir,
		DefaultSubtitleLang: cfg.DefaultSubtitleLang,
	})
	apiHandler.RegisterRoutes(router)
	apiHandler.RegisterUIRoutes(router)
}

func newHTTPServer(port int, handler http.Handler, readHeaderTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

func waitForShutdownSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")
}

// gracefulShutdown stops accepting requests, then lets running jobs reach a
// terminal state. Jobs ignore baseCancel; it only releases the context.
func gracefulShutdown(srv *http.Server, cancelBase context.CancelFunc, tm *task.Manager, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown warning")
	}

	cancelBase()
	done := tm.WaitAll(ctx)
	if !done {
		log.Warn().Msg("background workers did not finish before timeout")
	}
	log.Info().Msg("server exited cleanly")
}
