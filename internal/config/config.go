package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and database locations.
type Paths struct {
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
	CatalogDB  string `toml:"catalog_db"`
	LockFile   string `toml:"lock_file"`
}

// Redis contains connection settings for the job queue and progress store.
type Redis struct {
	Addr               string `toml:"addr"`
	Password           string `toml:"password"`
	DB                 int    `toml:"db"`
	JobQueue           string `toml:"job_queue"`
	ProgressTTLSeconds int    `toml:"progress_ttl_seconds"`
}

// Storage contains object storage connection settings.
type Storage struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
}

// TTS contains configuration for the voice synthesis service.
type TTS struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Media contains subprocess binaries, timing constants, and encode targets.
type Media struct {
	FFmpegBinary     string  `toml:"ffmpeg_binary"`
	FFprobeBinary    string  `toml:"ffprobe_binary"`
	TransitionMargin float64 `toml:"transition_margin"`
	ProbeTimeout     int     `toml:"probe_timeout"`
	CutTimeout       int     `toml:"cut_timeout"`
	EncodeTimeout    int     `toml:"encode_timeout"`
	CutMaxRetries    int     `toml:"cut_max_retries"`
	TargetWidth      int     `toml:"target_width"`
	TargetHeight     int     `toml:"target_height"`
	VideoCodec       string  `toml:"video_codec"`
	VideoBitrate     string  `toml:"video_bitrate"`
	AudioCodec       string  `toml:"audio_codec"`
	AudioBitrate     string  `toml:"audio_bitrate"`
	FrameRate        int     `toml:"frame_rate"`
}

// Subtitle contains subtitle track generation settings.
type Subtitle struct {
	Enabled bool   `toml:"enabled"`
	Style   string `toml:"style"`
}

// Upload contains retry policy for the final output upload.
type Upload struct {
	MaxRetries        int `toml:"max_retries"`
	RetryDelaySeconds int `toml:"retry_delay_seconds"`
}

// Callback contains retry policy for completion callback delivery.
type Callback struct {
	MaxAttempts      int `toml:"max_attempts"`
	BaseDelaySeconds int `toml:"base_delay_seconds"`
	RequestTimeout   int `toml:"request_timeout"`
}

// Workflow contains worker pool sizing.
type Workflow struct {
	Workers int `toml:"workers"`
}

// Logging contains log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for montage.
//
// Configuration sections by subsystem:
//   - Paths: scratch/log directories, shot catalog database, daemon lock
//   - Redis: job queue list and progress record store
//   - Storage: durable object storage for audio, subtitles, and output
//   - TTS: voice synthesis service connection
//   - Media: ffmpeg/ffprobe binaries, timing margins, encode targets
//   - Subtitle: track generation toggle and style preset
//   - Upload: final output upload retry policy
//   - Callback: completion notification retry policy
//   - Workflow: worker pool size
//   - Logging: log level and format
type Config struct {
	Paths    Paths    `toml:"paths"`
	Redis    Redis    `toml:"redis"`
	Storage  Storage  `toml:"storage"`
	TTS      TTS      `toml:"tts"`
	Media    Media    `toml:"media"`
	Subtitle Subtitle `toml:"subtitle"`
	Upload   Upload   `toml:"upload"`
	Callback Callback `toml:"callback"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// Default returns the built-in configuration values.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: "~/.local/share/montage/scratch",
			LogDir:     "~/.local/share/montage/logs",
			CatalogDB:  "~/.local/share/montage/catalog.db",
			LockFile:   "~/.local/share/montage/montaged.lock",
		},
		Redis: Redis{
			Addr:               "127.0.0.1:6379",
			JobQueue:           "q_video_compose",
			ProgressTTLSeconds: 3600,
		},
		Storage: Storage{
			Endpoint: "127.0.0.1:9000",
			Bucket:   "montage",
		},
		TTS: TTS{
			RequestTimeout: 60,
		},
		Media: Media{
			FFmpegBinary:     "ffmpeg",
			FFprobeBinary:    "ffprobe",
			TransitionMargin: 0.5,
			ProbeTimeout:     30,
			CutTimeout:       60,
			EncodeTimeout:    300,
			CutMaxRetries:    2,
			TargetWidth:      1080,
			TargetHeight:     1920,
			VideoCodec:       "libx264",
			VideoBitrate:     "4000k",
			AudioCodec:       "aac",
			AudioBitrate:     "128k",
			FrameRate:        30,
		},
		Subtitle: Subtitle{
			Enabled: true,
			Style:   "classic",
		},
		Upload: Upload{
			MaxRetries:        3,
			RetryDelaySeconds: 2,
		},
		Callback: Callback{
			MaxAttempts:      3,
			BaseDelaySeconds: 2,
			RequestTimeout:   10,
		},
		Workflow: Workflow{
			Workers: 4,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/montage/config.toml")
}

// Load locates, parses, and validates a configuration file. An empty path
// uses the default location; a missing file at the default location yields
// the built-in defaults.
func Load(path string) (*Config, string, error) {
	resolved := strings.TrimSpace(path)
	usedDefault := false
	if resolved == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, "", err
		}
		resolved = defaultPath
		usedDefault = true
	} else {
		expanded, err := expandPath(resolved)
		if err != nil {
			return nil, "", err
		}
		resolved = expanded
	}

	cfg := Default()
	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, resolved, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(err, fs.ErrNotExist) && usedDefault:
		// Defaults apply when no config file has been written yet.
	default:
		return nil, resolved, fmt.Errorf("read config %s: %w", resolved, err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, resolved, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, resolved, err
	}
	return &cfg, resolved, nil
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures mid-pipeline.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		problems = append(problems, "paths.scratch_dir is required")
	}
	if strings.TrimSpace(c.Redis.Addr) == "" {
		problems = append(problems, "redis.addr is required")
	}
	if strings.TrimSpace(c.Redis.JobQueue) == "" {
		problems = append(problems, "redis.job_queue is required")
	}
	if c.Redis.ProgressTTLSeconds <= 0 {
		problems = append(problems, "redis.progress_ttl_seconds must be positive")
	}
	if strings.TrimSpace(c.Storage.Bucket) == "" {
		problems = append(problems, "storage.bucket is required")
	}
	if c.Media.TransitionMargin < 0 {
		problems = append(problems, "media.transition_margin must not be negative")
	}
	if c.Media.TargetWidth <= 0 || c.Media.TargetHeight <= 0 {
		problems = append(problems, "media.target_width and media.target_height must be positive")
	}
	if c.Media.ProbeTimeout <= 0 || c.Media.CutTimeout <= 0 || c.Media.EncodeTimeout <= 0 {
		problems = append(problems, "media timeouts must be positive")
	}
	if c.Media.CutMaxRetries < 0 {
		problems = append(problems, "media.cut_max_retries must not be negative")
	}
	if c.Upload.MaxRetries < 0 {
		problems = append(problems, "upload.max_retries must not be negative")
	}
	if c.Callback.MaxAttempts <= 0 {
		problems = append(problems, "callback.max_attempts must be positive")
	}
	if c.Workflow.Workers <= 0 {
		problems = append(problems, "workflow.workers must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// ErrInvalidConfig marks configuration validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

// EnsureDirectories creates the directories the daemon writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.ScratchDir,
		c.Paths.LogDir,
		filepath.Dir(c.Paths.CatalogDB),
		filepath.Dir(c.Paths.LockFile),
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the annotated sample configuration to the target path.
// It refuses to overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

func (c *Config) expandPaths() error {
	fields := []*string{
		&c.Paths.ScratchDir,
		&c.Paths.LogDir,
		&c.Paths.CatalogDB,
		&c.Paths.LockFile,
	}
	for _, field := range fields {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			trimmed = home
		} else {
			trimmed = filepath.Join(home, trimmed[2:])
		}
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	return abs, nil
}
