package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	fileutil "mediatasks/internal/file"
	"mediatasks/internal/jobs"
	"mediatasks/internal/task"
	"mediatasks/internal/upload"
)

const (
	audioMIME        = "audio/mpeg"
	maxUploadMemory  = 32 << 20
	autoUploadParam  = "autoUpload"
	fallbackFileName = "audio.mp3"
)

type submitResponse struct {
	TaskID string      `json:"task_id"`
	Status task.Status `json:"status"`
}

type mediaQuery struct {
	URL string `form:"url" binding:"required,url"`
}

type subtitlesQuery struct {
	URL  string `form:"url" binding:"required,url"`
	Lang string `form:"lang" binding:"omitempty,max=16"`
}

// Options wires the API to the rest of the service.
type Options struct {
	Tasks               *task.Manager
	Runner              *jobs.Runner
	Uploader            *upload.Client
	StaticDir           string
	DefaultSubtitleLang string
}

type API struct {
	tasks       *task.Manager
	runner      *jobs.Runner
	uploader    *upload.Client
	staticDir   string
	defaultLang string
}

func NewAPI(opts Options) *API {
	return &API{
		tasks:       opts.Tasks,
		runner:      opts.Runner,
		uploader:    opts.Uploader,
		staticDir:   opts.StaticDir,
		defaultLang: opts.DefaultSubtitleLang,
	}
}

// RegisterRoutes registers API routes on the provided gin engine
func (a *API) RegisterRoutes(router *gin.Engine) {
	router.GET("/audio", a.SubmitAudio)
	router.GET("/video", a.SubmitVideo)
	router.GET("/subtitles", a.SubmitSubtitles)
	router.GET("/title", a.SubmitTitle)
	router.GET("/task/:id", a.GetTask)
	router.GET("/get-audio-file/:filename", a.GetAudioFile)
	router.POST("/send-external", a.SendExternal)
	router.GET("/healthz", a.Health)

	if a.staticDir != "" && fileutil.Exists(a.staticDir) {
		router.Static("/static", a.staticDir)
	}
}

// SubmitAudio starts an audio download, forwarding the file unless autoUpload=false.
func (a *API) SubmitAudio(c *gin.Context) {
	var q mediaQuery
	if !bindQuery(c, &q) {
		return
	}
	autoUpload := parseAutoUpload(c.Query(autoUploadParam))
	id := a.submitAudio(q.URL, autoUpload)
	a.accepted(c, id)
}

// SubmitVideo starts an mp4 download.
func (a *API) SubmitVideo(c *gin.Context) {
	var q mediaQuery
	if !bindQuery(c, &q) {
		return
	}
	a.accepted(c, a.tasks.Submit(task.KindVideo, a.runner.Video(q.URL)))
}

// SubmitSubtitles starts a subtitle download; lang defaults to the configured language.
func (a *API) SubmitSubtitles(c *gin.Context) {
	var q subtitlesQuery
	if !bindQuery(c, &q) {
		return
	}
	lang := strings.TrimSpace(q.Lang)
	if lang == "" {
		lang = a.defaultLang
	}
	a.accepted(c, a.tasks.Submit(task.KindSubtitles, a.runner.Subtitles(q.URL, lang)))
}

// SubmitTitle starts a title lookup.
func (a *API) SubmitTitle(c *gin.Context) {
	var q mediaQuery
	if !bindQuery(c, &q) {
		return
	}
	a.accepted(c, a.tasks.Submit(task.KindTitle, a.runner.Title(q.URL)))
}

// GetTask returns task status
func (a *API) GetTask(c *gin.Context) {
	id := c.Param("id")
	found, err := a.tasks.GetTask(id)
	if err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			requestLogger(c).Warn().Str("task_id", id).Msg("task not found on get")
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, found)
}

// GetAudioFile streams a finished mp3 from the audio directory.
func (a *API) GetAudioFile(c *gin.Context) {
	name := c.Param("filename")
	path, err := fileutil.SafeJoin(a.runner.Dirs().Audio, name)
	if err != nil || !fileutil.Exists(path) {
		requestLogger(c).Warn().Str("filename", name).Msg("audio file not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	c.Header("Content-Type", audioMIME)
	c.File(path)
}

// SendExternal proxies one multipart upload to the external endpoint.
func (a *API) SendExternal(c *gin.Context) {
	logger := requestLogger(c)
	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	fileHeader, err := formFile(c, "file", upload.FileField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
		return
	}
	defer func() { _ = src.Close() }()

	filename := strings.TrimSpace(c.PostForm("filename"))
	if filename == "" {
		filename = fileHeader.Filename
	}
	if filename == "" {
		filename = fallbackFileName
	}

	resp, err := a.uploader.Send(c.Request.Context(), upload.Request{
		Title:       c.PostForm("title"),
		URL:         c.PostForm("url"),
		Filename:    filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		File:        src,
	})
	if err != nil {
		var statusErr *upload.StatusError
		switch {
		case errors.As(err, &statusErr):
			logger.Warn().Int("status", statusErr.StatusCode).Msg("external service rejected upload")
			c.JSON(statusErr.StatusCode, gin.H{"error": statusErr.Error()})
		case errors.Is(err, upload.ErrNotConfigured):
			logger.Error().Msg("send-external called without EXTERNAL_API_URL")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			logger.Error().Err(err).Msg("send-external failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Error sending to external service: %v", err)})
		}
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = gin.MIMEJSON
	}
	c.Data(http.StatusOK, contentType, resp.Body)
}

// Health reports liveness.
func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) submitAudio(url string, autoUpload bool) string {
	return a.tasks.Submit(task.KindAudio, a.runner.Audio(url, autoUpload), task.WithAutoUpload(autoUpload))
}

func (a *API) accepted(c *gin.Context, id string) {
	// a busy manager still accepts; the job waits for a free slot
	requestLogger(c).Info().Str("task_id", id).Bool("queued", a.tasks.IsBusy()).Msg("task accepted")
	c.JSON(http.StatusOK, submitResponse{TaskID: id, Status: task.StatusProcessing})
}

func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		requestLogger(c).Warn().Err(err).Msg("invalid query")
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid url parameter is required"})
		return false
	}
	return true
}

// parseAutoUpload treats anything but a case-insensitive "false" as enabled.
func parseAutoUpload(raw string) bool {
	return !strings.EqualFold(strings.TrimSpace(raw), "false")
}

func formFile(c *gin.Context, fields ...string) (*multipart.FileHeader, error) {
	var lastErr error
	for _, field := range fields {
		fh, err := c.FormFile(field)
		if err == nil {
			return fh, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func requestLogger(c *gin.Context) *zerolog.Logger {
	return zerolog.Ctx(c.Request.Context())
}
