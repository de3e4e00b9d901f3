package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/five82/meshwatch/internal/config"
	"github.com/five82/meshwatch/internal/controller"
	"github.com/five82/meshwatch/internal/prefs"
	"github.com/five82/meshwatch/internal/ui"
)

// Options configure the meshwatch application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/meshwatch/prefs.toml
	Controller string // overrides the configured controller when set
	Headless   bool   // log state changes instead of drawing the TUI
	Stdout     io.Writer
}

const headlessReportEvery = 30 * time.Second

// Run boots meshwatch until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c := strings.TrimSpace(opts.Controller); c != "" {
		cfg.Controller = c
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	logger, closeLog, err := newLogger(cfg, opts)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := controller.NewClient(cfg.Controller, cfg.RequestTimeout)
	if err != nil {
		return fmt.Errorf("init controller client: %w", err)
	}

	sessCfg, err := SessionConfigFrom(cfg)
	if err != nil {
		return err
	}
	changes := make(chan struct{}, 1)
	sessCfg.OnChange = func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	session, err := StartSession(ctx, sessCfg, client, logger)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.Close()

	if opts.Headless {
		return runHeadless(ctx, session, changes, logger)
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)
	return ui.Run(ctx, ui.Options{
		Session:    session,
		Changes:    changes,
		Controller: client.BaseURL().Host,
		ThemeName:  userPrefs.Theme,
		LogLevel:   userPrefs.LogLevel,
		PrefsPath:  opts.PrefsPath,
	})
}

// newLogger writes JSON logs to stdout in headless mode. The TUI owns the
// terminal, so there logs go to log_file or nowhere.
func newLogger(cfg config.Config, opts Options) (*slog.Logger, func(), error) {
	if opts.Headless {
		return slog.New(slog.NewJSONHandler(opts.Stdout, nil)), func() {}, nil
	}
	if cfg.LogFile == "" {
		return slog.New(slog.NewJSONHandler(io.Discard, nil)), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewJSONHandler(f, nil)), func() { _ = f.Close() }, nil
}

func runHeadless(ctx context.Context, session *Session, changes <-chan struct{}, logger *slog.Logger) error {
	ticker := time.NewTicker(headlessReportEvery)
	defer ticker.Stop()

	var last string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
		case <-ticker.C:
			last = ""
		}
		summary := summarize(session)
		if summary.key() == last {
			continue
		}
		last = summary.key()
		logger.Info("mesh state", summary.attrs()...)
	}
}

type meshSummary struct {
	channel     string
	uptime      time.Duration
	devices     int
	online      int
	meshRSSI    int
	motion      int
	statusError string
	offline     bool
}

func summarize(s *Session) meshSummary {
	status := s.Status()
	devices := s.Devices()
	out := meshSummary{
		channel:     s.ChannelState().String(),
		devices:     len(devices.Value),
		motion:      len(s.Motion().Value),
		statusError: status.ErrorText(),
		offline:     status.IsOffline(),
	}
	if status.HasValue {
		out.uptime = status.Value.Uptime()
		out.meshRSSI = status.Value.MeshRSSI
	}
	for _, d := range devices.Value {
		if d.Online {
			out.online++
		}
	}
	return out
}

// key ignores uptime so the headless log only moves on real changes.
func (m meshSummary) key() string {
	return fmt.Sprintf("%s|%d|%d|%d|%d|%s|%t", m.channel, m.devices, m.online, m.meshRSSI, m.motion, m.statusError, m.offline)
}

func (m meshSummary) attrs() []any {
	attrs := []any{
		"channel", m.channel,
		"uptime", m.uptime.String(),
		"devices", m.devices,
		"online", m.online,
		"mesh_rssi", m.meshRSSI,
		"motion_events", m.motion,
	}
	if m.statusError != "" {
		attrs = append(attrs, "status_error", m.statusError, "controller_offline", m.offline)
	}
	return attrs
}
