package router

import (
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/five82/meshwatch/internal/realtime"
)

// Reaction handles one push message.
type Reaction func(msg realtime.Message)

// Router dispatches messages to the reactions registered for their type.
type Router struct {
	logger *slog.Logger

	mu    sync.RWMutex
	table map[string][]Reaction
}

// New returns an empty router.
func New(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Router{logger: logger.With("component", "router"), table: make(map[string][]Reaction)}
}

// On appends reactions for msgType. Existing reactions are kept.
func (r *Router) On(msgType string, reactions ...Reaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fn := range reactions {
		if fn != nil {
			r.table[msgType] = append(r.table[msgType], fn)
		}
	}
}

// Types lists the registered message types in sorted order.
func (r *Router) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.table))
	for t := range r.table {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Dispatch runs every reaction registered for msg.Type in registration
// order. Unknown types are ignored and a panicking reaction is logged and
// skipped.
func (r *Router) Dispatch(msg realtime.Message) {
	r.mu.RLock()
	reactions := r.table[msg.Type]
	r.mu.RUnlock()

	if len(reactions) == 0 {
		r.logger.Debug("ignoring push message", "type", msg.Type)
		return
	}
	for _, fn := range reactions {
		r.run(fn, msg)
	}
}

func (r *Router) run(fn Reaction, msg realtime.Message) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("push reaction panicked", "type", msg.Type, "panic", p)
		}
	}()
	fn(msg)
}

// Refetcher is anything that can schedule an out-of-band refresh.
type Refetcher interface {
	Refetch()
}

// DevicesResource is the devices resource as seen by the router.
type DevicesResource interface {
	Refetcher
	Issued() uint64
}

// SelectionMerger is the selected-device projection as seen by the router.
type SelectionMerger interface {
	Merge(deviceID string, data json.RawMessage, mark uint64) (bool, error)
}

// Targets are the resources the default reactions refresh.
type Targets struct {
	Status    Refetcher
	Devices   DevicesResource
	Motion    Refetcher
	Selection SelectionMerger
}

// Push message types understood by Install.
const (
	TypeDeviceStatus = "device_status"
	TypeMotionEvent  = "motion_event"
	TypeStatusUpdate = "status_update"
)

// Install registers the standard reactions on r.
func Install(r *Router, t Targets) {
	if t.Devices != nil {
		if t.Selection != nil {
			r.On(TypeDeviceStatus, mergeSelected(t.Selection, t.Devices, r.logger))
		}
		r.On(TypeDeviceStatus, refetch(t.Devices))
	}
	if t.Motion != nil {
		r.On(TypeMotionEvent, refetch(t.Motion))
	}
	if t.Status != nil {
		r.On(TypeStatusUpdate, refetch(t.Status))
	}
}

func refetch(target Refetcher) Reaction {
	return func(realtime.Message) { target.Refetch() }
}

// mergeSelected must run before the devices refetch so the mark it records
// precedes the refetch's sequence number.
func mergeSelected(sel SelectionMerger, devices DevicesResource, logger *slog.Logger) Reaction {
	return func(msg realtime.Message) {
		var head struct {
			DeviceID string `json:"device_id"`
		}
		if err := json.Unmarshal(msg.Data, &head); err != nil || head.DeviceID == "" {
			return
		}
		if _, err := sel.Merge(head.DeviceID, msg.Data, devices.Issued()); err != nil {
			logger.Warn("device_status merge failed", "device_id", head.DeviceID, "err", err)
		}
	}
}
