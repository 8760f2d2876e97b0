// Package jobs builds the task bodies the API submits: audio (with optional
// upload), video, subtitles and title lookups.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	fileutil "mediatasks/internal/file"
	"mediatasks/internal/media"
	"mediatasks/internal/task"
	"mediatasks/internal/upload"
)

const (
	msgAudioDownloaded = "Audio downloaded successfully"
	msgAudioUploaded   = "Audio downloaded and uploaded successfully"
)

// ErrOutputMissing means the extractor reported success but the expected file
// is not on disk.
var ErrOutputMissing = errors.New("output file not found")

// Uploader forwards a finished audio file.
type Uploader interface {
	Endpoint() string
	SendFile(ctx context.Context, path string, req upload.Request) (*upload.Response, error)
}

// Dirs are the output directories, one per media kind.
type Dirs struct {
	Audio     string
	Video     string
	Subtitles string
}

type Runner struct {
	extractor media.Extractor
	uploader  Uploader
	dirs      Dirs
}

func NewRunner(extractor media.Extractor, uploader Uploader, dirs Dirs) *Runner {
	return &Runner{extractor: extractor, uploader: uploader, dirs: dirs}
}

// Dirs returns the configured output directories.
func (r *Runner) Dirs() Dirs {
	return r.dirs
}

// Audio downloads url as mp3 and, when autoUpload is set, forwards it.
func (r *Runner) Audio(url string, autoUpload bool) task.Job {
	return func(ctx context.Context, taskID string) (task.Result, error) {
		logger := zerolog.Ctx(ctx)
		logger.Info().Str("url", url).Bool("auto_upload", autoUpload).Msg("starting audio download")

		finalPath, result, err := r.download(ctx, taskID, r.dirs.Audio, "temp_audio_", ".mp3", func(base string) (*media.Info, error) {
			return r.extractor.DownloadAudio(ctx, url, base)
		})
		if err != nil {
			return task.Result{}, err
		}
		logger.Info().Str("path", finalPath).Msg("audio downloaded")

		return r.deliverAudio(ctx, url, finalPath, result, autoUpload)
	}
}

// Video downloads url as mp4.
func (r *Runner) Video(url string) task.Job {
	return func(ctx context.Context, taskID string) (task.Result, error) {
		zerolog.Ctx(ctx).Info().Str("url", url).Msg("starting video download")
		_, result, err := r.download(ctx, taskID, r.dirs.Video, "temp_video_", ".mp4", func(base string) (*media.Info, error) {
			return r.extractor.DownloadVideo(ctx, url, base)
		})
		return result, err
	}
}

// Title looks up the media title without downloading anything.
func (r *Runner) Title(url string) task.Job {
	return func(ctx context.Context, _ string) (task.Result, error) {
		probe, err := r.extractor.Probe(ctx, url)
		if err != nil {
			return task.Result{}, err
		}
		if strings.TrimSpace(probe.Title) == "" {
			return task.Result{}, fmt.Errorf("%w: %s", media.ErrTitleNotFound, url)
		}
		return task.Result{Title: probe.Title}, nil
	}
}

// download runs fetch against a task-namespaced temporary path, then renames
// the produced file after the normalized title.
func (r *Runner) download(
	ctx context.Context,
	taskID, dir, tempPrefix, ext string,
	fetch func(outputBase string) (*media.Info, error),
) (string, task.Result, error) {
	if err := fileutil.EnsureDir(dir); err != nil {
		return "", task.Result{}, err
	}
	tempBase := filepath.Join(dir, tempPrefix+taskID)

	info, err := fetch(tempBase)
	if err != nil {
		return "", task.Result{}, err
	}

	fileName := media.FileBase(info.Title, taskID) + ext
	finalPath := filepath.Join(dir, fileName)
	if err := moveOutput(tempBase+ext, finalPath); err != nil {
		return "", task.Result{}, err
	}
	zerolog.Ctx(ctx).Debug().Str("file_name", fileName).Msg("output renamed")
	return finalPath, task.Result{Title: info.Title, FileName: fileName}, nil
}

func (r *Runner) deliverAudio(ctx context.Context, url, path string, result task.Result, autoUpload bool) (task.Result, error) {
	logger := zerolog.Ctx(ctx)
	if !autoUpload {
		logger.Info().Msg("auto-upload disabled, audio ready for manual retrieval")
		result.Message = msgAudioDownloaded
		return result, nil
	}
	if r.uploader == nil || r.uploader.Endpoint() == "" {
		return task.Result{}, upload.ErrNotConfigured
	}

	_, err := r.uploader.SendFile(ctx, path, upload.Request{
		Title:    result.Title,
		URL:      url,
		Filename: result.FileName,
	})
	if err != nil {
		return task.Result{}, err
	}
	result.Message = msgAudioUploaded
	return result, nil
}

func moveOutput(src, dst string) error {
	if err := fileutil.Move(src, dst); err != nil {
		if errors.Is(err, fileutil.ErrNotExist) {
			return fmt.Errorf("%w at %s", ErrOutputMissing, src)
		}
		return err
	}
	return nil
}
