package utils

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// PostgresConfig describes the database holding API tokens.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// Config is the invite-server configuration file.
type Config struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    string `yaml:"port"`
		Prefork bool   `yaml:"prefork"`
	} `yaml:"server"`

	Limits struct {
		MaxTextLength     int `yaml:"max_text_length"`
		MaxFileNameLength int `yaml:"max_file_name_length"`
		MaxUploadBytes    int `yaml:"max_upload_bytes"`
		MaxPDFBytes       int `yaml:"max_pdf_bytes"`
	} `yaml:"limits"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Cache struct {
		PDFCacheEnabled bool          `yaml:"pdf_cache_enabled"`
		PDFCacheTTL     time.Duration `yaml:"pdf_cache_ttl"`
		RedisHost       string        `yaml:"redis_host"`
		RateLimitDB     int           `yaml:"redis_rate_db"`
		PDFCacheDB      int           `yaml:"redis_pdf_db"`
	} `yaml:"cache"`

	Auth struct {
		Enabled         bool           `yaml:"enabled"`
		Postgres        PostgresConfig `yaml:"postgres"`
		RefreshInterval time.Duration  `yaml:"refresh_interval"`
	} `yaml:"auth"`

	RateLimiter struct {
		Interval          time.Duration `yaml:"interval"`
		EnableUserLimiter bool          `yaml:"enable_user_limiter"`
		UserLimit         int           `yaml:"user_limit"`
	} `yaml:"rate_limiter"`

	PDF struct {
		// Engine is "chrome" (headless browser) or "fpdf" (pure Go).
		Engine          string `yaml:"engine"`
		TimeoutSecs     int    `yaml:"timeout_secs"`
		ChromePath      string `yaml:"chrome_path"`
		ChromeNoSandbox bool   `yaml:"chrome_no_sandbox"`
		ChromePoolSize  int    `yaml:"chrome_pool_size"`
		UserDataDir     string `yaml:"user_data_dir"`
	} `yaml:"pdf"`

	Storage struct {
		PublicDir      string `yaml:"public_dir"`
		OutputDir      string `yaml:"output_dir"`
		UploadsDir     string `yaml:"uploads_dir"`
		BackgroundPath string `yaml:"background_path"`
		PublicBaseURL  string `yaml:"public_base_url"`
	} `yaml:"storage"`

	Overlay struct {
		DefaultX        float64 `yaml:"default_x"`
		DefaultY        float64 `yaml:"default_y"`
		DefaultFontSize int     `yaml:"default_font_size"`
		DefaultColor    string  `yaml:"default_color"`
		DefaultFileStem string  `yaml:"default_file_stem"`
	} `yaml:"overlay"`
}

const (
	EngineChrome = "chrome"
	EngineFPDF   = "fpdf"

	MinFontSize = 8
	MaxFontSize = 200
)

var (
	AppConfig Config
	cfgMu     sync.RWMutex
)

// LoadConfig reads the file named by CONFIG_PATH, or config.yaml.
func LoadConfig() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadConfigFrom(path)
}

// LoadConfigFrom reads, defaults and validates the config at path. It panics on
// any problem since the server cannot start without a usable config.
func LoadConfigFrom(path string) Config {
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("config: read %s: %v", path, err))
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		panic(fmt.Sprintf("config: parse %s: %v", path, err))
	}

	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		panic(fmt.Sprintf("config: %s: %v", path, err))
	}

	cfgMu.Lock()
	AppConfig = cfg
	cfgMu.Unlock()
	return cfg
}

// GetConfig returns the last loaded config.
func GetConfig() Config {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return AppConfig
}

// DefaultConfig returns a config with every default applied. Tests start from it.
func DefaultConfig() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8000"
	}
	if cfg.Limits.MaxTextLength == 0 {
		cfg.Limits.MaxTextLength = 255
	}
	if cfg.Limits.MaxFileNameLength == 0 {
		cfg.Limits.MaxFileNameLength = 255
	}
	if cfg.Limits.MaxUploadBytes == 0 {
		cfg.Limits.MaxUploadBytes = 10 << 20
	}
	if cfg.Limits.MaxPDFBytes == 0 {
		cfg.Limits.MaxPDFBytes = 20 << 20
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Cache.PDFCacheTTL == 0 {
		cfg.Cache.PDFCacheTTL = time.Minute
	}
	if cfg.Cache.RedisHost == "" {
		cfg.Cache.RedisHost = "127.0.0.1:6379"
	}
	if cfg.Auth.RefreshInterval == 0 {
		cfg.Auth.RefreshInterval = time.Minute
	}
	if cfg.RateLimiter.Interval == 0 {
		cfg.RateLimiter.Interval = time.Minute
	}
	if cfg.PDF.Engine == "" {
		cfg.PDF.Engine = EngineChrome
	}
	if cfg.PDF.TimeoutSecs == 0 {
		cfg.PDF.TimeoutSecs = 30
	}
	if cfg.Storage.PublicDir == "" {
		cfg.Storage.PublicDir = "public"
	}
	if cfg.Storage.OutputDir == "" {
		cfg.Storage.OutputDir = cfg.Storage.PublicDir + "/pdfs"
	}
	if cfg.Storage.UploadsDir == "" {
		cfg.Storage.UploadsDir = cfg.Storage.PublicDir + "/storage/uploads"
	}
	if cfg.Storage.BackgroundPath == "" {
		cfg.Storage.BackgroundPath = cfg.Storage.PublicDir + "/invite-background.png"
	}
	if cfg.Overlay.DefaultX == 0 {
		cfg.Overlay.DefaultX = 50
	}
	if cfg.Overlay.DefaultY == 0 {
		cfg.Overlay.DefaultY = 50
	}
	if cfg.Overlay.DefaultFontSize == 0 {
		cfg.Overlay.DefaultFontSize = 48
	}
	if cfg.Overlay.DefaultColor == "" {
		cfg.Overlay.DefaultColor = "#000000"
	}
	if cfg.Overlay.DefaultFileStem == "" {
		cfg.Overlay.DefaultFileStem = "invite"
	}
}

func validate(cfg Config) error {
	switch cfg.PDF.Engine {
	case EngineChrome, EngineFPDF:
	default:
		return fmt.Errorf("pdf.engine must be %q or %q, got %q", EngineChrome, EngineFPDF, cfg.PDF.Engine)
	}
	if cfg.PDF.TimeoutSecs < 0 {
		return fmt.Errorf("pdf.timeout_secs must not be negative")
	}
	if cfg.PDF.ChromePoolSize < 0 {
		return fmt.Errorf("pdf.chrome_pool_size must not be negative")
	}
	if cfg.Limits.MaxTextLength < 0 || cfg.Limits.MaxFileNameLength < 0 ||
		cfg.Limits.MaxUploadBytes < 0 || cfg.Limits.MaxPDFBytes < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	if cfg.RateLimiter.Interval < 0 {
		return fmt.Errorf("rate_limiter.interval must not be negative")
	}
	if cfg.RateLimiter.UserLimit < 0 {
		return fmt.Errorf("rate_limiter.user_limit must not be negative")
	}
	if cfg.Cache.PDFCacheTTL < 0 {
		return fmt.Errorf("cache.pdf_cache_ttl must not be negative")
	}
	if x := cfg.Overlay.DefaultX; x < 0 || x > 100 {
		return fmt.Errorf("overlay.default_x must be within 0..100")
	}
	if y := cfg.Overlay.DefaultY; y < 0 || y > 100 {
		return fmt.Errorf("overlay.default_y must be within 0..100")
	}
	if fs := cfg.Overlay.DefaultFontSize; fs < MinFontSize || fs > MaxFontSize {
		return fmt.Errorf("overlay.default_font_size must be within %d..%d", MinFontSize, MaxFontSize)
	}
	if _, err := ParseHexColor(cfg.Overlay.DefaultColor); err != nil {
		return fmt.Errorf("overlay.default_color: %w", err)
	}
	if strings.TrimSpace(cfg.Storage.OutputDir) == "" {
		return fmt.Errorf("storage.output_dir is empty")
	}
	return nil
}

// ParseHexColor accepts #RGB or #RRGGBB.
func ParseHexColor(s string) (colorful.Color, error) {
	if len(s) == 4 && s[0] == '#' {
		s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
	}
	if len(s) != 7 || s[0] != '#' || strings.Trim(s[1:], "0123456789abcdefABCDEF") != "" {
		return colorful.Color{}, fmt.Errorf("invalid hex colour %q", s)
	}
	return colorful.Hex(s)
}
