package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort               = 8080
	defaultOutputDir          = "resources"
	defaultStaticDir          = "static"
	defaultCookiesFile        = "cookies.txt"
	defaultMaxConcurrentTasks = 3
	defaultUploadTimeout      = 30 * time.Second
	defaultSubtitleLang       = "es"
	defaultLogLevel           = "info"
	minUploadTimeout          = time.Second

	audioSubdir     = "audios"
	videoSubdir     = "videos"
	subtitlesSubdir = "subtitles"
)

// Config describes runtime configuration for the service. Values come from
// the YAML file first; environment variables override them.
type Config struct {
	Port                int           `yaml:"port" env:"PORT"`
	OutputDir           string        `yaml:"output_dir" env:"OUTPUT_DIR"`
	StaticDir           string        `yaml:"static_dir" env:"STATIC_DIR"`
	ExternalAPIURL      string        `yaml:"external_api_url" env:"EXTERNAL_API_URL"`
	CookiesFile         string        `yaml:"cookies_file" env:"COOKIES_FILE"`
	FFmpegLocation      string        `yaml:"ffmpeg_location" env:"FFMPEG_LOCATION"`
	MaxConcurrentTasks  int           `yaml:"max_concurrent_tasks" env:"MAX_CONCURRENT_TASKS"`
	UploadTimeout       time.Duration `yaml:"upload_timeout" env:"UPLOAD_TIMEOUT"`
	DefaultSubtitleLang string        `yaml:"default_subtitle_lang" env:"DEFAULT_SUBTITLE_LANG"`
	LogLevel            string        `yaml:"log_level" env:"LOG_LEVEL"`
}

// Default returns the configuration used when nothing is provided.
func Default() Config {
	return Config{
		Port:                defaultPort,
		OutputDir:           defaultOutputDir,
		StaticDir:           defaultStaticDir,
		CookiesFile:         defaultCookiesFile,
		MaxConcurrentTasks:  defaultMaxConcurrentTasks,
		UploadTimeout:       defaultUploadTimeout,
		DefaultSubtitleLang: defaultSubtitleLang,
		LogLevel:            defaultLogLevel,
	}
}

// Load reads YAML config from the provided path and applies environment
// overrides. A missing or empty file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	fileData, err := os.ReadFile(path) //nolint:gosec // config path is controlled by deployment
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if len(fileData) > 0 {
		if err := yaml.Unmarshal(fileData, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml: %w", err)
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}
	return cfg, cfg.normalize()
}

func (c *Config) normalize() error {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.OutputDir == "" {
		c.OutputDir = defaultOutputDir
	}
	if c.UploadTimeout == 0 {
		c.UploadTimeout = defaultUploadTimeout
	}
	if c.DefaultSubtitleLang == "" {
		c.DefaultSubtitleLang = defaultSubtitleLang
	}
	c.ExternalAPIURL = strings.TrimSpace(c.ExternalAPIURL)

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	// validate concurrency explicitly: values < 1 are not allowed
	if c.MaxConcurrentTasks < 1 {
		return fmt.Errorf("invalid max_concurrent_tasks: %d (must be >= 1)", c.MaxConcurrentTasks)
	}
	if c.UploadTimeout < minUploadTimeout {
		return fmt.Errorf("invalid upload_timeout: %s (must be >= %s)", c.UploadTimeout, minUploadTimeout)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel, defaulting to info.
func (c Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

func (c Config) AudioDir() string     { return filepath.Join(c.OutputDir, audioSubdir) }
func (c Config) VideoDir() string     { return filepath.Join(c.OutputDir, videoSubdir) }
func (c Config) SubtitlesDir() string { return filepath.Join(c.OutputDir, subtitlesSubdir) }
