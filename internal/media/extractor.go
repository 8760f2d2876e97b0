// Package media wraps yt-dlp behind a small contract used by the background
// jobs: probing a URL for its title and subtitle tracks, and downloading
// audio, video or a subtitle track to a caller chosen path.
package media

import (
	"context"
	"errors"
)

var (
	// ErrExtraction wraps any failure reported by the extraction tool.
	ErrExtraction = errors.New("extraction failed")
	// ErrNoSubtitles is returned when a URL has neither manual nor automatic tracks.
	ErrNoSubtitles = errors.New("no subtitles available")
	// ErrTitleNotFound is returned when the tool reports no title for a URL.
	ErrTitleNotFound = errors.New("title not found")
)

// Probe describes a URL without downloading it. Track lists keep the order
// the extractor reported them in.
type Probe struct {
	Title             string
	Subtitles         []string
	AutomaticCaptions []string
}

// Info is what a download reports about the fetched media.
type Info struct {
	Title string
}

// SubtitleRequest selects one track to fetch.
type SubtitleRequest struct {
	Lang      string
	Automatic bool
	// OutputBase is the path without extension; the track lands at
	// OutputBase + "." + Lang + ".vtt".
	OutputBase string
}

// Extractor is the boundary to the media extraction tool.
type Extractor interface {
	Probe(ctx context.Context, url string) (*Probe, error)
	DownloadSubtitles(ctx context.Context, url string, req SubtitleRequest) (*Info, error)
	// DownloadVideo writes an mp4 to outputBase + ".mp4".
	DownloadVideo(ctx context.Context, url, outputBase string) (*Info, error)
	// DownloadAudio writes an mp3 to outputBase + ".mp3".
	DownloadAudio(ctx context.Context, url, outputBase string) (*Info, error)
}
