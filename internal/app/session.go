package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/five82/meshwatch/internal/config"
	"github.com/five82/meshwatch/internal/controller"
	"github.com/five82/meshwatch/internal/realtime"
	"github.com/five82/meshwatch/internal/resource"
	"github.com/five82/meshwatch/internal/router"
	"github.com/five82/meshwatch/internal/state"
)

// Controller is the subset of *controller.Client a Session drives.
type Controller interface {
	controller.Fetcher
	controller.Commander
}

// SessionConfig tunes a Session. Zero durations and limits use the
// config package defaults.
type SessionConfig struct {
	Intervals         config.Intervals
	PushURL           string
	PushHeader        http.Header
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	LogLimit          int
	MotionLimit       int
	// OnChange is called whenever any cached value or the channel state
	// changes. It must not block.
	OnChange func()
}

// SessionConfigFrom derives session settings from the loaded configuration.
func SessionConfigFrom(cfg config.Config) (SessionConfig, error) {
	push, err := cfg.PushURL()
	if err != nil {
		return SessionConfig{}, fmt.Errorf("push url: %w", err)
	}
	return SessionConfig{
		Intervals:         cfg.Intervals(),
		PushURL:           push,
		ReconnectDelay:    cfg.ReconnectDelay,
		MaxReconnectDelay: cfg.ReconnectMax,
		LogLimit:          cfg.LogLimit,
		MotionLimit:       cfg.MotionLimit,
	}, nil
}

// Session owns every resource, the push channel and the selected-device
// projection for one controller. It is acquired by StartSession and released
// by Close.
type Session struct {
	cfg    SessionConfig
	client Controller
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	status  *resource.Resource[controller.SystemStatus]
	devices *resource.Resource[[]controller.Device]
	motion  *resource.Resource[[]controller.MotionEvent]

	logsMu    sync.RWMutex
	logs      *resource.Resource[[]controller.DeviceLog]
	logFilter string

	selection *state.Selection
	router    *router.Router
	channel   *realtime.Channel

	closeOnce sync.Once
}

// StartSession starts polling every resource and opens the push channel.
func StartSession(ctx context.Context, cfg SessionConfig, client Controller, logger *slog.Logger) (*Session, error) {
	if client == nil {
		return nil, errors.New("session requires a controller client")
	}
	if strings.TrimSpace(cfg.PushURL) == "" {
		return nil, errors.New("session requires a push url")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg = withDefaults(cfg)

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		cfg:       cfg,
		client:    client,
		logger:    logger,
		ctx:       sctx,
		cancel:    cancel,
		selection: &state.Selection{},
	}

	s.status = resource.Start(sctx, s.options("status", cfg.Intervals.Status), client.FetchStatus)
	s.status.Subscribe(func(resource.Snapshot[controller.SystemStatus]) { s.changed() })

	s.devices = resource.Start(sctx, s.options("devices", cfg.Intervals.Devices), client.FetchDevices)
	s.devices.Subscribe(func(snap resource.Snapshot[[]controller.Device]) {
		if snap.Err == nil {
			s.selection.Sync(snap.Value, snap.Seq)
		}
		s.changed()
	})

	s.motion = resource.Start(sctx, s.options("motion", cfg.Intervals.Motion), func(ctx context.Context) ([]controller.MotionEvent, error) {
		return client.FetchMotion(ctx, cfg.MotionLimit)
	})
	s.motion.Subscribe(func(resource.Snapshot[[]controller.MotionEvent]) { s.changed() })

	s.logs = s.startLogs("")

	s.router = router.New(logger)
	router.Install(s.router, router.Targets{
		Status:    s.status,
		Devices:   s.devices,
		Motion:    s.motion,
		Selection: s.selection,
	})

	s.channel = realtime.Dial(sctx, realtime.Config{
		URL:               cfg.PushURL,
		ReconnectDelay:    cfg.ReconnectDelay,
		MaxReconnectDelay: cfg.MaxReconnectDelay,
		Header:            cfg.PushHeader,
		Logger:            logger,
		OnState:           func(realtime.State) { s.changed() },
	}, s.router.Dispatch)

	logger.Info("session started",
		"push_url", cfg.PushURL,
		"status_every", cfg.Intervals.Status,
		"devices_every", cfg.Intervals.Devices,
		"logs_every", cfg.Intervals.Logs,
		"motion_every", cfg.Intervals.Motion,
	)
	return s, nil
}

func withDefaults(cfg SessionConfig) SessionConfig {
	def := config.Default()
	in := &cfg.Intervals
	if in.Status <= 0 {
		in.Status = def.StatusInterval
	}
	if in.Devices <= 0 {
		in.Devices = def.DevicesInterval
	}
	if in.Logs <= 0 {
		in.Logs = def.LogsInterval
	}
	if in.Motion <= 0 {
		in.Motion = def.MotionInterval
	}
	if cfg.LogLimit <= 0 {
		cfg.LogLimit = def.LogLimit
	}
	if cfg.MotionLimit <= 0 {
		cfg.MotionLimit = def.MotionLimit
	}
	return cfg
}

func (s *Session) options(name string, every time.Duration) resource.Options {
	return resource.Options{Name: name, Interval: every, Logger: s.logger}
}

func (s *Session) startLogs(deviceID string) *resource.Resource[[]controller.DeviceLog] {
	query := controller.LogQuery{Limit: s.cfg.LogLimit, DeviceID: deviceID}
	logs := resource.Start(s.ctx, s.options("logs", s.cfg.Intervals.Logs), func(ctx context.Context) ([]controller.DeviceLog, error) {
		return s.client.FetchLogs(ctx, query)
	})
	logs.Subscribe(func(resource.Snapshot[[]controller.DeviceLog]) { s.changed() })
	return logs
}

func (s *Session) changed() {
	if s.cfg.OnChange != nil {
		s.cfg.OnChange()
	}
}

// Status returns the cached system status.
func (s *Session) Status() resource.Snapshot[controller.SystemStatus] {
	return s.status.Snapshot()
}

// Devices returns the cached device roster.
func (s *Session) Devices() resource.Snapshot[[]controller.Device] {
	return s.devices.Snapshot()
}

// Logs returns the cached device logs for the current filter.
func (s *Session) Logs() resource.Snapshot[[]controller.DeviceLog] {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return s.logs.Snapshot()
}

// LogFilter returns the device id the logs are filtered by, or "".
func (s *Session) LogFilter() string {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return s.logFilter
}

// Motion returns the cached motion events.
func (s *Session) Motion() resource.Snapshot[[]controller.MotionEvent] {
	return s.motion.Snapshot()
}

// Selection returns the focused device, if any.
func (s *Session) Selection() (controller.Device, bool) {
	return s.selection.Current()
}

// ChannelState returns the push channel state.
func (s *Session) ChannelState() realtime.State {
	return s.channel.State()
}

// RefreshStatus issues an out-of-band status fetch.
func (s *Session) RefreshStatus() { s.status.Refetch() }

// RefreshDevices issues an out-of-band roster fetch.
func (s *Session) RefreshDevices() { s.devices.Refetch() }

// RefreshMotion issues an out-of-band motion fetch.
func (s *Session) RefreshMotion() { s.motion.Refetch() }

// RefreshLogs issues an out-of-band log fetch.
func (s *Session) RefreshLogs() {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	s.logs.Refetch()
}

// FilterLogs replaces the logs resource with one scoped to deviceID. An
// empty id shows every device. The previous resource is closed, so a fetch it
// still has in flight can no longer land.
func (s *Session) FilterLogs(deviceID string) {
	deviceID = strings.TrimSpace(deviceID)

	s.logsMu.Lock()
	if deviceID == s.logFilter {
		s.logsMu.Unlock()
		return
	}
	old := s.logs
	s.logs = s.startLogs(deviceID)
	s.logFilter = deviceID
	s.logsMu.Unlock()

	old.Close()
	s.logger.Debug("log filter changed", "device_id", deviceID)
	s.changed()
}

// SelectDevice focuses the device with id from the current roster. An empty
// id clears the selection. It reports whether a device is now selected.
func (s *Session) SelectDevice(id string) bool {
	if id == "" {
		s.selection.Clear()
		s.changed()
		return false
	}
	snap := s.devices.Snapshot()
	for _, d := range snap.Value {
		if d.DeviceID == id {
			s.selection.Select(d, snap.Seq)
			s.changed()
			return true
		}
	}
	return false
}

// SendCommand sends one command and, on success, refreshes the roster so the
// device's new state shows up without waiting for the next tick. Failures
// leave every cached value untouched.
func (s *Session) SendCommand(ctx context.Context, deviceID, command string, payload any) (controller.CommandAck, error) {
	ack, err := s.client.SendCommand(ctx, deviceID, command, payload)
	if err != nil {
		var cmdErr *controller.CommandError
		if errors.As(err, &cmdErr) {
			s.logger.Warn("command failed",
				"device_id", cmdErr.DeviceID,
				"command", cmdErr.Command,
				"request_id", cmdErr.RequestID,
				"err", cmdErr.Err,
			)
		} else {
			s.logger.Warn("command failed", "device_id", deviceID, "command", command, "err", err)
		}
		return nil, err
	}
	s.logger.Info("command sent", "device_id", deviceID, "command", command)
	s.devices.Refetch()
	return ack, nil
}

// Close stops every resource and the push channel. It is idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		_ = s.channel.Close()
		s.status.Close()
		s.devices.Close()
		s.motion.Close()
		s.logsMu.RLock()
		logs := s.logs
		s.logsMu.RUnlock()
		logs.Close()
		s.cancel()
		s.logger.Info("session closed")
	})
}
