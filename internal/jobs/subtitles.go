package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	fileutil "mediatasks/internal/file"
	"mediatasks/internal/media"
	"mediatasks/internal/task"
)

// Subtitles fetches one subtitle track for url and flattens it to text. lang is
// a hint; see media.SelectLanguage for when it is overridden.
func (r *Runner) Subtitles(url, lang string) task.Job {
	return func(ctx context.Context, taskID string) (task.Result, error) {
		logger := zerolog.Ctx(ctx)

		probe, err := r.extractor.Probe(ctx, url)
		if err != nil {
			return task.Result{}, err
		}
		if len(probe.Subtitles) == 0 && len(probe.AutomaticCaptions) == 0 {
			return task.Result{}, fmt.Errorf("%w for %s", media.ErrNoSubtitles, url)
		}

		resolved, automatic := media.SelectLanguage(probe.Subtitles, probe.AutomaticCaptions, lang)
		available := probe.Subtitles
		if automatic {
			available = probe.AutomaticCaptions
		}
		if !slices.Contains(available, resolved) {
			return task.Result{}, fmt.Errorf("%w: no track for language %q", media.ErrNoSubtitles, resolved)
		}
		logger.Info().Str("lang", resolved).Bool("automatic", automatic).Msg("downloading subtitles")

		dir := r.dirs.Subtitles
		if err := fileutil.EnsureDir(dir); err != nil {
			return task.Result{}, err
		}
		tempBase := filepath.Join(dir, "temp_sub_"+taskID)
		info, err := r.extractor.DownloadSubtitles(ctx, url, media.SubtitleRequest{
			Lang:       resolved,
			Automatic:  automatic,
			OutputBase: tempBase,
		})
		if err != nil {
			return task.Result{}, err
		}

		base := media.FileBase(info.Title, taskID)
		trackSuffix := "." + resolved + ".vtt"
		vttPath := filepath.Join(dir, base+trackSuffix)
		if err := moveOutput(tempBase+trackSuffix, vttPath); err != nil {
			return task.Result{}, err
		}

		text, err := extractText(vttPath)
		if err != nil {
			return task.Result{}, err
		}
		logger.Info().Str("file_name", base).Int("chars", len(text)).Msg("subtitles converted to text")

		return task.Result{
			Title:    info.Title,
			FileName: base,
			Lang:     resolved,
			Text:     text,
		}, nil
	}
}

// extractText converts the vtt at path and stores the text beside it as .txt.
func extractText(vttPath string) (string, error) {
	f, err := os.Open(vttPath) //nolint:gosec // path is built by the application
	if err != nil {
		return "", fmt.Errorf("open subtitles: %w", err)
	}
	defer func() { _ = f.Close() }()

	text, err := media.ExtractText(f)
	if err != nil {
		return "", err
	}
	txtPath := strings.TrimSuffix(vttPath, ".vtt") + ".txt"
	if err := fileutil.WriteAtomic(txtPath, strings.NewReader(text)); err != nil {
		return "", fmt.Errorf("write text: %w", err)
	}
	return text, nil
}
