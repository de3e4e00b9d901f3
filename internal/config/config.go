package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/meshwatch/internal/controller"
)

// Config captures everything meshwatch needs to reach one controller.
type Config struct {
	Controller string
	PushPath   string
	LogFile    string

	StatusInterval  time.Duration
	DevicesInterval time.Duration
	LogsInterval    time.Duration
	MotionInterval  time.Duration

	ReconnectDelay time.Duration
	ReconnectMax   time.Duration // zero keeps the reconnect delay fixed
	RequestTimeout time.Duration

	LogLimit    int
	MotionLimit int
}

// Intervals are the polling periods of the four cached resources.
type Intervals struct {
	Status  time.Duration
	Devices time.Duration
	Logs    time.Duration
	Motion  time.Duration
}

// EnvController overrides the controller address from the environment.
const EnvController = "MESHWATCH_CONTROLLER"

const (
	defaultConfigPath = "~/.config/meshwatch/config.toml"
	defaultController = "192.168.4.1"
	defaultPushPath   = "/ws"

	defaultStatusInterval  = 10 * time.Second
	defaultDevicesInterval = 5 * time.Second
	defaultLogsInterval    = 30 * time.Second
	defaultMotionInterval  = 60 * time.Second
	defaultReconnectDelay  = 5 * time.Second
	defaultRequestTimeout  = 10 * time.Second

	defaultLogLimit    = 50
	defaultMotionLimit = 100
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Controller:      defaultController,
		PushPath:        defaultPushPath,
		StatusInterval:  defaultStatusInterval,
		DevicesInterval: defaultDevicesInterval,
		LogsInterval:    defaultLogsInterval,
		MotionInterval:  defaultMotionInterval,
		ReconnectDelay:  defaultReconnectDelay,
		RequestTimeout:  defaultRequestTimeout,
		LogLimit:        defaultLogLimit,
		MotionLimit:     defaultMotionLimit,
	}
}

// Load locates and parses the meshwatch config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		Controller        string `toml:"controller"`
		PushPath          string `toml:"push_path"`
		LogFile           string `toml:"log_file"`
		StatusInterval    int    `toml:"status_interval_sec"`
		DevicesInterval   int    `toml:"devices_interval_sec"`
		LogsInterval      int    `toml:"logs_interval_sec"`
		MotionInterval    int    `toml:"motion_interval_sec"`
		ReconnectDelay    int    `toml:"reconnect_delay_sec"`
		ReconnectMax      int    `toml:"reconnect_max_sec"`
		RequestTimeoutSec int    `toml:"request_timeout_sec"`
		LogLimit          int    `toml:"log_limit"`
		MotionLimit       int    `toml:"motion_limit"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.Controller); v != "" {
		cfg.Controller = v
	}
	if v := strings.TrimSpace(raw.PushPath); v != "" {
		cfg.PushPath = v
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}

	cfg.StatusInterval = seconds(raw.StatusInterval, cfg.StatusInterval)
	cfg.DevicesInterval = seconds(raw.DevicesInterval, cfg.DevicesInterval)
	cfg.LogsInterval = seconds(raw.LogsInterval, cfg.LogsInterval)
	cfg.MotionInterval = seconds(raw.MotionInterval, cfg.MotionInterval)
	cfg.ReconnectDelay = seconds(raw.ReconnectDelay, cfg.ReconnectDelay)
	cfg.RequestTimeout = seconds(raw.RequestTimeoutSec, cfg.RequestTimeout)
	if raw.ReconnectMax > 0 {
		cfg.ReconnectMax = time.Duration(raw.ReconnectMax) * time.Second
	}
	if raw.LogLimit > 0 {
		cfg.LogLimit = raw.LogLimit
	}
	if raw.MotionLimit > 0 {
		cfg.MotionLimit = raw.MotionLimit
	}

	applyEnv(&cfg)
	return cfg, nil
}

// Intervals returns the configured polling periods.
func (c Config) Intervals() Intervals {
	return Intervals{
		Status:  c.StatusInterval,
		Devices: c.DevicesInterval,
		Logs:    c.LogsInterval,
		Motion:  c.MotionInterval,
	}
}

// BaseURL returns the controller's HTTP base URL.
func (c Config) BaseURL() (*url.URL, error) {
	return controller.ParseBaseURL(c.Controller)
}

// PushURL returns the websocket URL of the controller's push channel.
func (c Config) PushURL() (string, error) {
	base, err := c.BaseURL()
	if err != nil {
		return "", err
	}
	return controller.PushURL(base, c.PushPath), nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvController)); v != "" {
		cfg.Controller = v
	}
}

func seconds(v int, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return time.Duration(v) * time.Second
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
