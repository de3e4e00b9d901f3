package controller_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/five82/meshwatch/internal/controller"
	"github.com/five82/meshwatch/internal/controller/controllertest"
)

func TestSendCommand_PostsBodyAndDecodesAck(t *testing.T) {
	fake := controllertest.New(t)
	c, err := controller.NewClient(fake.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	ack, err := c.SendCommand(context.Background(), "dev-7", "led_color", map[string]any{"color": "00FF00"})
	if err != nil {
		t.Fatalf("SendCommand returned error: %v", err)
	}
	if ack["status"] != "queued" {
		t.Fatalf("ack = %#v, want status queued", ack)
	}

	cmds := fake.Commands()
	if len(cmds) != 1 {
		t.Fatalf("commands = %d, want 1", len(cmds))
	}
	got := cmds[0]
	if got.DeviceID != "dev-7" || got.Command != "led_color" {
		t.Fatalf("command = %#v, want dev-7 led_color", got)
	}
	payload, ok := got.Payload.(map[string]any)
	if !ok || payload["color"] != "00FF00" {
		t.Fatalf("payload = %#v, want color 00FF00", got.Payload)
	}
	if ids := fake.RequestIDs(); len(ids) != 1 || ids[0] == "" {
		t.Fatalf("request ids = %#v, want one non-empty id", ids)
	}
}

func TestSendCommand_HTTP500IsCommandError(t *testing.T) {
	fake := controllertest.New(t)
	fake.Fail(controllertest.CommandPath, http.StatusInternalServerError)

	c, err := controller.NewClient(fake.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = c.SendCommand(context.Background(), "dev-2", "capture", map[string]any{"mode": "burst", "frames": 5})
	var cmdErr *controller.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("SendCommand error = %v, want *CommandError", err)
	}
	var httpErr *controller.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("SendCommand error = %v, want wrapped HTTP 500", err)
	}
	if !strings.Contains(err.Error(), "command capture to dev-2 failed") {
		t.Fatalf("error = %q, want it to identify the failed command", err.Error())
	}
	if cmdErr.RequestID == "" {
		t.Fatalf("RequestID is empty")
	}
}
