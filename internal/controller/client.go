package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Fetcher defines the read side of the controller API.
// This interface is implemented by *Client and can be used for testing.
type Fetcher interface {
	FetchStatus(ctx context.Context) (SystemStatus, error)
	FetchDevices(ctx context.Context) ([]Device, error)
	FetchLogs(ctx context.Context, query LogQuery) ([]DeviceLog, error)
	FetchMotion(ctx context.Context, limit int) ([]MotionEvent, error)
}

// Commander sends one-shot device commands.
type Commander interface {
	SendCommand(ctx context.Context, deviceID, command string, payload any) (CommandAck, error)
}

// Ensure Client implements both interfaces at compile time.
var (
	_ Fetcher   = (*Client)(nil)
	_ Commander = (*Client)(nil)
)

var validate = validator.New()

// Client talks to the controller HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultController = "192.168.4.1"
	defaultUserAgent  = "meshwatch/0.1"
	maxErrorBody      = 256

	pathStatus  = "/api/v1/status"
	pathDevices = "/api/v1/devices"
	pathCommand = "/api/v1/command"
	pathLogs    = "/api/logs"
	pathMotion  = "/api/motion"
)

// NewClient builds a Client for the controller at base (host[:port] or URL).
// A zero timeout leaves requests bounded only by ctx.
func NewClient(base string, timeout time.Duration) (*Client, error) {
	u, err := ParseBaseURL(base)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
	}, nil
}

// BaseURL returns a copy of the controller origin.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// FetchStatus retrieves the controller's system status.
func (c *Client) FetchStatus(ctx context.Context) (SystemStatus, error) {
	if c == nil {
		return SystemStatus{}, fmt.Errorf("client is nil")
	}
	var payload SystemStatus
	if err := c.get(ctx, &url.URL{Path: pathStatus}, &payload); err != nil {
		return SystemStatus{}, err
	}
	return payload, nil
}

// FetchDevices retrieves the device roster.
func (c *Client) FetchDevices(ctx context.Context) ([]Device, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload []Device
	if err := c.get(ctx, &url.URL{Path: pathDevices}, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// LogQuery configures /api/logs requests.
type LogQuery struct {
	Limit    int
	DeviceID string
}

// FetchLogs retrieves recent device logs, optionally for one device.
func (c *Client) FetchLogs(ctx context.Context, query LogQuery) ([]DeviceLog, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	if query.Limit > 0 {
		values.Set("limit", strconv.Itoa(query.Limit))
	}
	if id := strings.TrimSpace(query.DeviceID); id != "" {
		values.Set("device_id", id)
	}
	var payload []DeviceLog
	if err := c.get(ctx, &url.URL{Path: pathLogs, RawQuery: values.Encode()}, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// FetchMotion retrieves the most recent motion events.
func (c *Client) FetchMotion(ctx context.Context, limit int) ([]MotionEvent, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var payload []MotionEvent
	if err := c.get(ctx, &url.URL{Path: pathMotion, RawQuery: values.Encode()}, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// SendCommand posts a single command for deviceID. It never retries; every
// failure comes back as a *CommandError.
func (c *Client) SendCommand(ctx context.Context, deviceID, command string, payload any) (CommandAck, error) {
	requestID := uuid.NewString()
	fail := func(err error) (CommandAck, error) {
		return nil, &CommandError{DeviceID: deviceID, Command: command, RequestID: requestID, Err: err}
	}
	if c == nil {
		return fail(fmt.Errorf("client is nil"))
	}
	if payload == nil {
		payload = map[string]any{}
	}
	req := CommandRequest{DeviceID: deviceID, Command: strings.TrimSpace(command), Payload: payload}
	if err := validate.Struct(req); err != nil {
		return fail(fmt.Errorf("invalid command: %w", err))
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fail(fmt.Errorf("encode command: %w", err))
	}

	var ack CommandAck
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("X-Request-ID", requestID)
	if err := c.doURL(ctx, http.MethodPost, &url.URL{Path: pathCommand}, header, bytes.NewReader(body), &ack); err != nil {
		return fail(err)
	}
	return ack, nil
}

func (c *Client) get(ctx context.Context, rel *url.URL, dest any) error {
	return c.doURL(ctx, http.MethodGet, rel, nil, nil, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, header http.Header, body io.Reader, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: method, URL: reqURL.String(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{Path: rel.Path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if dest == nil {
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: "read", URL: reqURL.String(), Err: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return &ParseError{Source: rel.Path, Err: err}
	}
	return nil
}

// ParseBaseURL normalizes a host[:port] or URL into a bare origin.
func ParseBaseURL(base string) (*url.URL, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = defaultController
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse controller %q: %w", base, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse controller %q: missing host", base)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// PushURL derives the push-channel URL from an http(s) origin.
func PushURL(base *url.URL, path string) string {
	u := *base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	if strings.TrimSpace(path) == "" {
		path = "/ws"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = path
	return u.String()
}
