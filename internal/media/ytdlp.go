package media

import (
	"context"
	"fmt"
	"os"

	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"
)

const (
	videoFormat  = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/mp4"
	audioFormat  = "bestaudio/best"
	audioCodec   = "mp3"
	audioBitrate = "192K"
	subtitleExt  = "vtt"

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// YTDLPOptions configures the yt-dlp backed extractor.
type YTDLPOptions struct {
	// CookiesFile is optional; a missing or empty file only produces a warning.
	CookiesFile    string
	FFmpegLocation string
	UserAgent      string
}

// YTDLP implements Extractor by running the yt-dlp executable.
type YTDLP struct {
	opts YTDLPOptions
}

func NewYTDLP(opts YTDLPOptions) *YTDLP {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &YTDLP{opts: opts}
}

func (y *YTDLP) Probe(ctx context.Context, url string) (*Probe, error) {
	result, err := y.command(ctx).
		SkipDownload().
		DumpSingleJSON().
		Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	probe, err := parseProbe([]byte(result.Stdout))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	return probe, nil
}

func (y *YTDLP) DownloadSubtitles(ctx context.Context, url string, req SubtitleRequest) (*Info, error) {
	cmd := y.command(ctx).
		SkipDownload().
		WriteSubs().
		SubLangs(req.Lang).
		SubFormat(subtitleExt).
		Output(req.OutputBase)
	if req.Automatic {
		cmd = cmd.WriteAutoSubs()
	}
	return y.run(ctx, cmd, url)
}

func (y *YTDLP) DownloadVideo(ctx context.Context, url, outputBase string) (*Info, error) {
	cmd := y.command(ctx).
		Format(videoFormat).
		MergeOutputFormat("mp4").
		Output(outputBase + ".%(ext)s")
	return y.run(ctx, cmd, url)
}

func (y *YTDLP) DownloadAudio(ctx context.Context, url, outputBase string) (*Info, error) {
	cmd := y.command(ctx).
		Format(audioFormat).
		ExtractAudio().
		AudioFormat(audioCodec).
		AudioQuality(audioBitrate).
		Output(outputBase + ".%(ext)s")
	return y.run(ctx, cmd, url)
}

func (y *YTDLP) command(ctx context.Context) *ytdlp.Command {
	cmd := ytdlp.New().
		NoPlaylist().
		NoProgress().
		ForceOverwrites().
		AddHeaders("Accept-Encoding:identity;q=1, *;q=0").
		AddHeaders("User-Agent:" + y.opts.UserAgent)
	if cookies := y.cookiesFile(ctx); cookies != "" {
		cmd = cmd.Cookies(cookies)
	}
	if y.opts.FFmpegLocation != "" {
		cmd = cmd.FFmpegLocation(y.opts.FFmpegLocation)
	}
	return cmd
}

// run executes a download and reads the title from the printed info JSON.
func (y *YTDLP) run(ctx context.Context, cmd *ytdlp.Command, url string) (*Info, error) {
	result, err := cmd.PrintJSON().Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	extracted, err := result.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("%w: read info: %w", ErrExtraction, err)
	}
	if len(extracted) == 0 || extracted[0].Title == nil || *extracted[0].Title == "" {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, ErrTitleNotFound)
	}
	return &Info{Title: *extracted[0].Title}, nil
}

func (y *YTDLP) cookiesFile(ctx context.Context) string {
	logger := zerolog.Ctx(ctx)
	path := y.opts.CookiesFile
	if path == "" {
		return ""
	}
	info, err := os.Stat(path)
	switch {
	case err != nil:
		logger.Warn().Str("cookies_file", path).Msg("cookies file not found, continuing without cookies; private or restricted media may be unavailable")
		return ""
	case info.Size() == 0:
		logger.Warn().Str("cookies_file", path).Msg("cookies file is empty, continuing without cookies; private or restricted media may be unavailable")
		return ""
	}
	return path
}
