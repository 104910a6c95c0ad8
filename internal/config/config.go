package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

const (
	DirName         = "jobmine"
	ConfigFileName  = "config.json"
	ProxiesFileName = "proxies.txt"
	EnvFileName     = ".env"
)

var ErrMissingCredentials = errors.New("JOBMINE_USERNAME and JOBMINE_PASSWORD must be set")

// Config holds portal and scraping settings.
type Config struct {
	BaseURL            string   `json:"base_url"`
	Browser            string   `json:"browser"`
	Headless           bool     `json:"headless"`
	PoolSize           int      `json:"pool_size"`
	JobsPerWorker      int      `json:"jobs_per_worker"`
	WaitTimeoutSeconds int      `json:"wait_timeout_seconds"`
	DefaultTerm        int      `json:"default_term"`
	DefaultDisciplines []string `json:"default_disciplines"`
	DefaultLevels      []string `json:"default_levels"`
	SetLevels          bool     `json:"set_levels"`
	MaxPages           int      `json:"max_pages"`
	DetailRate         float64  `json:"detail_rate"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:            envString("JOBMINE_BASE_URL", "https://jobmine.ccol.uwaterloo.ca"),
		Browser:            envString("JOBMINE_BROWSER", "firefox"),
		Headless:           envBool("JOBMINE_HEADLESS", true),
		PoolSize:           envInt("JOBMINE_POOL_SIZE", 10),
		JobsPerWorker:      envInt("JOBMINE_JOBS_PER_WORKER", 10),
		WaitTimeoutSeconds: envInt("JOBMINE_WAIT_TIMEOUT", 10),
		DefaultTerm:        envInt("JOBMINE_DEFAULT_TERM", 1165),
		DefaultDisciplines: envList("JOBMINE_DEFAULT_DISCIPLINES", []string{"ENG-Software", "MATH-Computer Science", "MATH-Computing & Financial Mgm"}),
		DefaultLevels:      envList("JOBMINE_DEFAULT_LEVELS", []string{"junior", "intermediate", "senior"}),
		SetLevels:          envBool("JOBMINE_SET_LEVELS", false),
		MaxPages:           envInt("JOBMINE_MAX_PAGES", 0),
		DetailRate:         envFloat("JOBMINE_DETAIL_RATE", 0),
	}
}

func (c Config) WaitTimeout() time.Duration {
	if c.WaitTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.WaitTimeoutSeconds) * time.Second
}

func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, DirName), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

func ProxiesPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ProxiesFileName), nil
}

func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}
	return LoadFile(path)
}

// LoadFile overlays the JSON5 file at path on the defaults. A missing or
// empty file yields the defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}

	if err := json5.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Init writes default config.json and proxies.txt if they don't already exist.
func Init() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return InitDir(dir)
}

func InitDir(dir string) ([]string, error) {
	var created []string

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return created, err
	}

	configPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := writeConfig(configPath, DefaultConfig()); err != nil {
			return created, err
		}
		created = append(created, configPath)
	}

	proxiesPath := filepath.Join(dir, ProxiesFileName)
	if _, err := os.Stat(proxiesPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(proxiesPath, []byte(""), 0o644); err != nil {
			return created, err
		}
		created = append(created, proxiesPath)
	}

	return created, nil
}

func writeConfig(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

type Credentials struct {
	Username string
	Password string
}

// LoadCredentials reads JOBMINE_USERNAME and JOBMINE_PASSWORD. envFile is
// loaded first when given; otherwise .env in the working directory and in
// the config directory are tried. Variables already set are not overridden.
func LoadCredentials(envFile string) (Credentials, error) {
	if strings.TrimSpace(envFile) != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Credentials{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else {
		candidates := []string{EnvFileName}
		if dir, err := ConfigDir(); err == nil {
			candidates = append(candidates, filepath.Join(dir, EnvFileName))
		}
		for _, path := range candidates {
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := godotenv.Load(path); err != nil {
				return Credentials{}, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	creds := Credentials{
		Username: strings.TrimSpace(os.Getenv("JOBMINE_USERNAME")),
		Password: os.Getenv("JOBMINE_PASSWORD"),
	}
	if creds.Username == "" || creds.Password == "" {
		return creds, ErrMissingCredentials
	}
	return creds, nil
}

func LoadProxies(flagValue string) ([]string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return splitCSV(flagValue), nil
	}

	if env := strings.TrimSpace(os.Getenv("JOBMINE_PROXIES")); env != "" {
		return splitCSV(env), nil
	}

	path, err := ProxiesPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var proxies []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxies = append(proxies, line)
	}
	return proxies, nil
}

func envString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return parsed
}

func envList(key string, fallback []string) []string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return splitCSV(val)
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
