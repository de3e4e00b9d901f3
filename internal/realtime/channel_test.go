package realtime_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/five82/meshwatch/internal/controller/controllertest"
	"github.com/five82/meshwatch/internal/realtime"
)

type recorder struct {
	mu       sync.Mutex
	states   []realtime.State
	messages []realtime.Message
}

func (r *recorder) onState(s realtime.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) onMessage(m realtime.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

func (r *recorder) snapshot() ([]realtime.State, []realtime.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]realtime.State(nil), r.states...), append([]realtime.Message(nil), r.messages...)
}

func (r *recorder) transitions(from, to realtime.State) int {
	states, _ := r.snapshot()
	n := 0
	for i := 1; i < len(states); i++ {
		if states[i-1] == from && states[i] == to {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func pushURL(fake *controllertest.Server) string {
	return "ws" + strings.TrimPrefix(fake.URL, "http") + controllertest.PushPath
}

func dialOpen(t *testing.T, fake *controllertest.Server, delay time.Duration, rec *recorder) *realtime.Channel {
	t.Helper()
	ch := realtime.Dial(context.Background(), realtime.Config{
		URL:            pushURL(fake),
		ReconnectDelay: delay,
		OnState:        rec.onState,
	}, rec.onMessage)
	t.Cleanup(func() { _ = ch.Close() })
	waitFor(t, "open", func() bool { return ch.State() == realtime.StateOpen })
	if !fake.WaitAccepted(1, time.Second) {
		t.Fatalf("server never accepted the connection")
	}
	return ch
}

func TestChannel_DeliversMessagesInOrder(t *testing.T) {
	fake := controllertest.New(t)
	rec := &recorder{}
	dialOpen(t, fake, time.Second, rec)

	for _, typ := range []string{"status_update", "device_status", "motion_event"} {
		if err := fake.Push(map[string]any{"type": typ, "data": map[string]any{"device_id": "dev-1"}}); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	waitFor(t, "3 messages", func() bool {
		_, msgs := rec.snapshot()
		return len(msgs) == 3
	})

	_, msgs := rec.snapshot()
	want := []string{"status_update", "device_status", "motion_event"}
	for i, m := range msgs {
		if m.Type != want[i] {
			t.Fatalf("message %d type = %q, want %q", i, m.Type, want[i])
		}
	}
	if !strings.Contains(string(msgs[1].Data), `"dev-1"`) {
		t.Fatalf("data = %s, want device_id dev-1", msgs[1].Data)
	}
}

func TestChannel_MalformedFrameIsDropped(t *testing.T) {
	fake := controllertest.New(t)
	rec := &recorder{}
	ch := dialOpen(t, fake, time.Second, rec)

	if err := fake.PushRaw([]byte("this is not json")); err != nil {
		t.Fatalf("PushRaw: %v", err)
	}
	if err := fake.PushRaw([]byte(`{"data":{}}`)); err != nil {
		t.Fatalf("PushRaw: %v", err)
	}
	// A valid frame after the bad ones proves the bad ones were processed.
	if err := fake.Push(map[string]any{"type": "status_update", "data": map[string]any{}}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	waitFor(t, "valid message", func() bool {
		_, msgs := rec.snapshot()
		return len(msgs) >= 1
	})

	_, msgs := rec.snapshot()
	if len(msgs) != 1 || msgs[0].Type != "status_update" {
		t.Fatalf("messages = %#v, want only the valid frame", msgs)
	}
	if got := ch.State(); got != realtime.StateOpen {
		t.Fatalf("State = %v, want open", got)
	}
	if n := rec.transitions(realtime.StateOpen, realtime.StateReconnecting); n != 0 {
		t.Fatalf("open->reconnecting transitions = %d, want 0", n)
	}
}

func TestChannel_ReconnectsOnceAfterServerClose(t *testing.T) {
	fake := controllertest.New(t)
	rec := &recorder{}
	ch := dialOpen(t, fake, 50*time.Millisecond, rec)

	fake.DropConnections()
	waitFor(t, "second connection", func() bool { return fake.Accepted() >= 2 })
	waitFor(t, "open again", func() bool { return ch.State() == realtime.StateOpen })

	// Give a duplicate attempt time to show up if there were one.
	time.Sleep(200 * time.Millisecond)

	if got := fake.Accepted(); got != 2 {
		t.Fatalf("accepted connections = %d, want 2", got)
	}
	if n := rec.transitions(realtime.StateReconnecting, realtime.StateConnecting); n != 1 {
		states, _ := rec.snapshot()
		t.Fatalf("reconnecting->connecting transitions = %d, want 1 (states %v)", n, states)
	}
	states, _ := rec.snapshot()
	want := []realtime.State{
		realtime.StateConnecting,
		realtime.StateOpen,
		realtime.StateReconnecting,
		realtime.StateConnecting,
		realtime.StateOpen,
	}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}
}

func TestChannel_NoReconnectAfterClose(t *testing.T) {
	fake := controllertest.New(t)
	rec := &recorder{}
	ch := dialOpen(t, fake, 20*time.Millisecond, rec)

	if err := ch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	time.Sleep(150 * time.Millisecond)

	if got := fake.Accepted(); got != 1 {
		t.Fatalf("accepted connections = %d, want 1 after close", got)
	}
	if got := ch.State(); got != realtime.StateClosed {
		t.Fatalf("State = %v, want closed", got)
	}
	select {
	case <-ch.Done():
	default:
		t.Fatalf("Done not closed after Close")
	}
}

func TestChannel_CloseCancelsPendingReconnect(t *testing.T) {
	fake := controllertest.New(t)
	rec := &recorder{}
	ch := dialOpen(t, fake, 150*time.Millisecond, rec)

	fake.DropConnections()
	waitFor(t, "reconnecting", func() bool { return ch.State() == realtime.StateReconnecting })

	_ = ch.Close()
	time.Sleep(300 * time.Millisecond)

	if got := fake.Accepted(); got != 1 {
		t.Fatalf("accepted connections = %d, want 1; pending reconnect must be cancelled", got)
	}
	if n := rec.transitions(realtime.StateReconnecting, realtime.StateConnecting); n != 0 {
		t.Fatalf("reconnecting->connecting transitions = %d, want 0", n)
	}
}

func TestChannel_SilentPeerTriggersReconnect(t *testing.T) {
	fake := controllertest.New(t)
	fake.Mute(true)
	rec := &recorder{}
	ch := realtime.Dial(context.Background(), realtime.Config{
		URL:            pushURL(fake),
		ReconnectDelay: 20 * time.Millisecond,
		PongWait:       100 * time.Millisecond,
		PingInterval:   25 * time.Millisecond,
		OnState:        rec.onState,
	}, rec.onMessage)
	t.Cleanup(func() { _ = ch.Close() })

	waitFor(t, "open", func() bool { return ch.State() == realtime.StateOpen })
	waitFor(t, "reconnect after silence", func() bool {
		return rec.transitions(realtime.StateOpen, realtime.StateReconnecting) >= 1
	})

	fake.Mute(false)
	waitFor(t, "second connection", func() bool { return fake.Accepted() >= 2 })
}

func TestChannel_PongsKeepConnectionOpen(t *testing.T) {
	fake := controllertest.New(t)
	rec := &recorder{}
	ch := realtime.Dial(context.Background(), realtime.Config{
		URL:            pushURL(fake),
		ReconnectDelay: 20 * time.Millisecond,
		PongWait:       100 * time.Millisecond,
		PingInterval:   25 * time.Millisecond,
		OnState:        rec.onState,
	}, rec.onMessage)
	t.Cleanup(func() { _ = ch.Close() })
	waitFor(t, "open", func() bool { return ch.State() == realtime.StateOpen })

	time.Sleep(400 * time.Millisecond)

	if got := fake.Accepted(); got != 1 {
		t.Fatalf("accepted connections = %d, want 1 while pongs arrive", got)
	}
	if got := ch.State(); got != realtime.StateOpen {
		t.Fatalf("State = %v, want open", got)
	}
}

func TestChannel_DialFailureRetriesUntilClosed(t *testing.T) {
	fake := controllertest.New(t)
	url := pushURL(fake)
	fake.Close()

	rec := &recorder{}
	ch := realtime.Dial(context.Background(), realtime.Config{
		URL:            url,
		ReconnectDelay: 10 * time.Millisecond,
		OnState:        rec.onState,
	}, rec.onMessage)

	waitFor(t, "two reconnect cycles", func() bool {
		return rec.transitions(realtime.StateReconnecting, realtime.StateConnecting) >= 2
	})
	_ = ch.Close()
	if got := ch.State(); got != realtime.StateClosed {
		t.Fatalf("State = %v, want closed", got)
	}
}

func TestChannel_ContextCancelCloses(t *testing.T) {
	fake := controllertest.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	ch := realtime.Dial(ctx, realtime.Config{URL: pushURL(fake), ReconnectDelay: 10 * time.Millisecond}, nil)
	waitFor(t, "open", func() bool { return ch.State() == realtime.StateOpen })

	cancel()
	select {
	case <-ch.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("channel did not stop on context cancel")
	}
	if got := ch.State(); got != realtime.StateClosed {
		t.Fatalf("State = %v, want closed", got)
	}
}

func TestState_String(t *testing.T) {
	cases := map[realtime.State]string{
		realtime.StateConnecting:   "connecting",
		realtime.StateOpen:         "open",
		realtime.StateReconnecting: "reconnecting",
		realtime.StateClosed:       "closed",
		realtime.State(42):         "unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
