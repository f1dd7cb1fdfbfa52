package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read at startup.
const (
	EnvAccessToken = "TMDB_ACCESS_TOKEN"
	EnvPort        = "PORT"
	EnvConfigPath  = "MOVIEPICKER_CONFIG"
	EnvLogFile     = "MOVIEPICKER_LOG_FILE"
)

var ErrAccessTokenRequired = errors.New(EnvAccessToken + " is required")

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server    ServerSettings    `json:"server"`
	Catalog   CatalogSettings   `json:"catalog"`
	Providers ProvidersSettings `json:"providers"`
	Session   SessionSettings   `json:"session"`
	Images    ImageSettings     `json:"images"`
	Log       LogConfig         `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// CatalogSettings configures the upstream movie catalog. AccessToken is only
// ever read from the environment and never written back to disk.
type CatalogSettings struct {
	AccessToken       string  `json:"-"`
	BaseURL           string  `json:"baseUrl"`
	ImageBaseURL      string  `json:"imageBaseUrl"`
	WebsiteURL        string  `json:"websiteUrl"`
	Language          string  `json:"language"`
	Region            string  `json:"region"`
	TimeoutSeconds    int     `json:"timeoutSeconds"`
	RequestsPerSecond float64 `json:"requestsPerSecond"`
	Burst             int     `json:"burst"`
	MaxPage           int     `json:"maxPage"`
}

// Timeout returns the per-request upstream timeout.
func (c CatalogSettings) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type ProvidersSettings struct {
	TTLMinutes int `json:"ttlMinutes"`
	MaxEntries int `json:"maxEntries"`
}

// TTL returns how long a provider lookup stays fresh.
func (p ProvidersSettings) TTL() time.Duration {
	if p.TTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(p.TTLMinutes) * time.Minute
}

type SessionSettings struct {
	IdleTimeoutMinutes int `json:"idleTimeoutMinutes"`
	MovieCacheSize     int `json:"movieCacheSize"`
	ProviderCacheSize  int `json:"providerCacheSize"`
}

// IdleTimeout returns how long an untouched session survives.
func (s SessionSettings) IdleTimeout() time.Duration {
	if s.IdleTimeoutMinutes <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(s.IdleTimeoutMinutes) * time.Minute
}

// ImageSettings configures the poster proxy cache.
type ImageSettings struct {
	CacheDirectory string `json:"cacheDirectory"`
	PosterSize     string `json:"posterSize"`
	LogoSize       string `json:"logoSize"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns sane defaults for a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{Host: "0.0.0.0", Port: 3000},
		Catalog: CatalogSettings{
			BaseURL:           "https://api.themoviedb.org/3",
			ImageBaseURL:      "https://image.tmdb.org/t/p",
			WebsiteURL:        "https://www.themoviedb.org",
			Language:          "en-US",
			Region:            "GB",
			TimeoutSeconds:    15,
			RequestsPerSecond: 40, // TMDB allows ~50/s
			Burst:             10,
			MaxPage:           500,
		},
		Providers: ProvidersSettings{TTLMinutes: 60, MaxEntries: 2000},
		Session:   SessionSettings{IdleTimeoutMinutes: 720, MovieCacheSize: 500, ProviderCacheSize: 100},
		Images:    ImageSettings{CacheDirectory: "cache/images", PosterSize: "w342", LogoSize: "w92"},
		Log: LogConfig{
			File:       "cache/logs/moviepicker.log",
			Level:      "info",
			MaxSize:    20,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
	}
}

// Validate reports settings the server cannot start without.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Catalog.AccessToken) == "" {
		return ErrAccessTokenRequired
	}
	if s.Server.Port <= 0 || s.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", s.Server.Port)
	}
	return nil
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// Path returns the settings file location.
func (m *Manager) Path() string {
	return m.path
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk or creates defaults if missing, then
// applies environment overrides.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		applyEnv(&defaults)
		return defaults, nil
	}

	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	// Start from defaults so fields missing from older files keep sane values.
	s := DefaultSettings()
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("decode %s: %w", m.path, err)
	}

	if strings.TrimSpace(s.Catalog.Region) == "" {
		s.Catalog.Region = "GB"
	}
	s.Catalog.Region = strings.ToUpper(strings.TrimSpace(s.Catalog.Region))
	if s.Catalog.MaxPage <= 0 {
		s.Catalog.MaxPage = 500
	}

	applyEnv(&s)
	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; existing variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

func applyEnv(s *Settings) {
	if token := strings.TrimSpace(os.Getenv(EnvAccessToken)); token != "" {
		s.Catalog.AccessToken = token
	}
	if portStr := strings.TrimSpace(os.Getenv(EnvPort)); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			s.Server.Port = port
		}
	}
	if logFile, ok := os.LookupEnv(EnvLogFile); ok {
		s.Log.File = strings.TrimSpace(logFile)
	}
}
